package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key the adapter writes.
const DefaultPrefix = "waypoint:"

const defaultMaxRetries = 50

// Store implements ports.WorkflowStore using Redis.
//
// Layout under the prefix:
//
//	workflow:<id>  JSON aggregate
//	workflows      ZSET of ids scored by creation sequence
//	seq            creation sequence counter
//	node_owner     HASH node id -> workflow id
//	edge_owner     HASH edge id -> workflow id
//
// Writes are WATCH/MULTI transactions retried when a concurrent writer wins.
type Store struct {
	client     backend.UniversalClient
	prefix     string
	maxRetries int
	logger     *slog.Logger
}

type Option func(*Store)

// WithPrefix sets the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// WithMaxRetries bounds optimistic transaction retries.
func WithMaxRetries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxRetries = n
		}
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client backend.UniversalClient, opts ...Option) *Store {
	store := &Store{
		client:     client,
		prefix:     DefaultPrefix,
		maxRetries: defaultMaxRetries,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *Store) key(workflowID string) string { return s.prefix + "workflow:" + workflowID }
func (s *Store) indexKey() string             { return s.prefix + "workflows" }
func (s *Store) seqKey() string               { return s.prefix + "seq" }
func (s *Store) nodeOwnerKey() string         { return s.prefix + "node_owner" }
func (s *Store) edgeOwnerKey() string         { return s.prefix + "edge_owner" }

// Create stores the aggregate and claims its node and edge ids.
func (s *Store) Create(ctx context.Context, wf *domain.Workflow) error {
	data, err := json.Marshal(wf)
	if err != nil {
		return fmt.Errorf("%w: failed to marshal workflow: %v", domain.ErrStore, err)
	}

	return s.transact(ctx, func(tx *backend.Tx) error {
		exists, err := tx.Exists(ctx, s.key(wf.ID)).Result()
		if err != nil {
			return s.fail("checking workflow", err)
		}
		if exists > 0 {
			return fmt.Errorf("%w: workflow %s", domain.ErrDuplicateID, wf.ID)
		}
		if err := s.checkOwnership(ctx, tx, wf.ID, wf.Nodes, wf.Edges); err != nil {
			return err
		}

		seq, err := tx.Incr(ctx, s.seqKey()).Result()
		if err != nil {
			return s.fail("allocating sequence", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.key(wf.ID), data, 0)
			pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: float64(seq), Member: wf.ID})
			s.claim(ctx, pipe, wf.ID, wf.Nodes, wf.Edges)
			return nil
		})
		return err
	}, s.key(wf.ID), s.nodeOwnerKey(), s.edgeOwnerKey())
}

// Load decodes the aggregate.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.load(ctx, s.client, id)
}

type getter interface {
	Get(ctx context.Context, key string) *backend.StringCmd
}

func (s *Store) load(ctx context.Context, c getter, id string) (*domain.Workflow, error) {
	val, err := c.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
		}
		return nil, s.fail("loading workflow", err)
	}

	var wf domain.Workflow
	if err := json.Unmarshal(val, &wf); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal workflow: %v", domain.ErrStore, err)
	}
	wf.Reindex()
	return &wf, nil
}

// Update watches the aggregate and owner hashes, applies fn and commits in MULTI.
// fn may run more than once when a concurrent writer forces a retry.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Workflow) error) error {
	return s.transact(ctx, func(tx *backend.Tx) error {
		current, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		next := current.Clone()
		if err := fn(next); err != nil {
			return err
		}
		next.ID = id
		next.Reindex()

		diff := domain.Diff(current, next)
		if diff.IsEmpty() {
			return nil
		}
		if err := s.checkOwnership(ctx, tx, id, diff.AddedNodes, diff.AddedEdges); err != nil {
			return err
		}

		data, err := json.Marshal(next)
		if err != nil {
			return fmt.Errorf("%w: failed to marshal workflow: %v", domain.ErrStore, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Set(ctx, s.key(id), data, 0)
			if len(diff.RemovedNodes) > 0 {
				pipe.HDel(ctx, s.nodeOwnerKey(), diff.RemovedNodes...)
			}
			if len(diff.RemovedEdges) > 0 {
				pipe.HDel(ctx, s.edgeOwnerKey(), diff.RemovedEdges...)
			}
			s.claim(ctx, pipe, id, diff.AddedNodes, diff.AddedEdges)
			return nil
		})
		return err
	}, s.key(id), s.nodeOwnerKey(), s.edgeOwnerKey())
}

// Delete removes the aggregate, its index entry and its owner entries.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.transact(ctx, func(tx *backend.Tx) error {
		wf, err := s.load(ctx, tx, id)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe backend.Pipeliner) error {
			pipe.Del(ctx, s.key(id))
			pipe.ZRem(ctx, s.indexKey(), id)
			if len(wf.Nodes) > 0 {
				ids := make([]string, len(wf.Nodes))
				for i, n := range wf.Nodes {
					ids[i] = n.ID
				}
				pipe.HDel(ctx, s.nodeOwnerKey(), ids...)
			}
			if len(wf.Edges) > 0 {
				ids := make([]string, len(wf.Edges))
				for i, e := range wf.Edges {
					ids[i] = e.ID
				}
				pipe.HDel(ctx, s.edgeOwnerKey(), ids...)
			}
			return nil
		})
		return err
	}, s.key(id))
}

// List returns workflow ids in creation order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	ids, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, s.fail("listing workflows", err)
	}
	return ids, nil
}

// LocateNode returns the owning workflow id.
func (s *Store) LocateNode(ctx context.Context, nodeID string) (string, error) {
	return s.locate(ctx, s.nodeOwnerKey(), nodeID, domain.ErrNodeNotFound)
}

// LocateEdge returns the owning workflow id.
func (s *Store) LocateEdge(ctx context.Context, edgeID string) (string, error) {
	return s.locate(ctx, s.edgeOwnerKey(), edgeID, domain.ErrEdgeNotFound)
}

func (s *Store) locate(ctx context.Context, hash, id string, notFound error) (string, error) {
	owner, err := s.client.HGet(ctx, hash, id).Result()
	if errors.Is(err, backend.Nil) {
		return "", fmt.Errorf("%w: %s", notFound, id)
	}
	if err != nil {
		return "", s.fail("locating "+id, err)
	}
	return owner, nil
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) checkOwnership(ctx context.Context, tx *backend.Tx, workflowID string, nodes []domain.Node, edges []domain.Edge) error {
	if len(nodes) > 0 {
		ids := make([]string, len(nodes))
		for i, n := range nodes {
			ids[i] = n.ID
		}
		if err := s.checkOwners(ctx, tx, s.nodeOwnerKey(), "node", workflowID, ids); err != nil {
			return err
		}
	}
	if len(edges) > 0 {
		ids := make([]string, len(edges))
		for i, e := range edges {
			ids[i] = e.ID
		}
		if err := s.checkOwners(ctx, tx, s.edgeOwnerKey(), "edge", workflowID, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) checkOwners(ctx context.Context, tx *backend.Tx, hash, kind, workflowID string, ids []string) error {
	owners, err := tx.HMGet(ctx, hash, ids...).Result()
	if err != nil {
		return s.fail("checking "+kind+" owners", err)
	}
	for i, owner := range owners {
		if owner == nil || owner == workflowID {
			continue
		}
		return fmt.Errorf("%w: %s %s belongs to workflow %v", domain.ErrDuplicateID, kind, ids[i], owner)
	}
	return nil
}

func (s *Store) claim(ctx context.Context, pipe backend.Pipeliner, workflowID string, nodes []domain.Node, edges []domain.Edge) {
	if len(nodes) > 0 {
		fields := make(map[string]any, len(nodes))
		for _, n := range nodes {
			fields[n.ID] = workflowID
		}
		pipe.HSet(ctx, s.nodeOwnerKey(), fields)
	}
	if len(edges) > 0 {
		fields := make(map[string]any, len(edges))
		for _, e := range edges {
			fields[e.ID] = workflowID
		}
		pipe.HSet(ctx, s.edgeOwnerKey(), fields)
	}
}

// transact runs fn under WATCH on keys, retrying when EXEC aborts.
func (s *Store) transact(ctx context.Context, fn func(*backend.Tx) error, keys ...string) error {
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		err := s.client.Watch(ctx, fn, keys...)
		if !errors.Is(err, backend.TxFailedErr) {
			return err
		}
		s.logger.Debug("redis transaction conflict, retrying", "attempt", attempt+1, "keys", keys)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	return fmt.Errorf("%w: transaction aborted after %d retries", domain.ErrStore, s.maxRetries)
}

func (s *Store) fail(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStore, op, err)
}
