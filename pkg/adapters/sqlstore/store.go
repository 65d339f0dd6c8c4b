// Package sqlstore persists workflows in a relational database through database/sql.
//
// Nodes and edges live in their own tables, so Update writes only the rows a mutation
// touched. SQLite (modernc.org/sqlite) and MySQL (go-sql-driver/mysql) are supported;
// the schema is created by embedded migrations on open.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/pkg/domain"
)

const timeLayout = time.RFC3339Nano

// Store implements ports.WorkflowStore on top of *sql.DB.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// Option configures the store.
type Option func(*Store)

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// OpenSQLite opens (or creates) the database file at path.
// The write path is funnelled through a single connection, as SQLite allows one writer.
func OpenSQLite(ctx context.Context, path string, opts ...Option) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	db, err := sql.Open(SQLite.driver, path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening sqlite database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s, err := New(ctx, db, SQLite, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenMySQL connects to the database named by dsn,
// e.g. "user:password@tcp(localhost:3306)/waypoint".
func OpenMySQL(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	db, err := sql.Open(MySQL.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening mysql connection: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging mysql: %w", err)
	}

	s, err := New(ctx, db, MySQL, opts...)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// New wraps an open database and applies pending migrations.
func New(ctx context.Context, db *sql.DB, dialect Dialect, opts ...Option) (*Store, error) {
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("%w: running migrations: %v", domain.ErrStore, err)
	}
	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Create inserts the workflow with its nodes and edges.
func (s *Store) Create(ctx context.Context, wf *domain.Workflow) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var one int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM workflows WHERE id = ?", wf.ID).Scan(&one)
		switch {
		case err == nil:
			return fmt.Errorf("%w: workflow %s", domain.ErrDuplicateID, wf.ID)
		case !errors.Is(err, sql.ErrNoRows):
			return s.fail("checking workflow", err)
		}

		if err := s.checkOwnership(ctx, tx, wf.Nodes, wf.Edges); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO workflows (id, name, created_at, updated_at) VALUES (?, ?, ?, ?)",
			wf.ID, wf.Name, wf.CreatedAt.UTC().Format(timeLayout), wf.UpdatedAt.UTC().Format(timeLayout),
		); err != nil {
			return s.fail("inserting workflow", err)
		}
		for _, n := range wf.Nodes {
			if err := s.insertNode(ctx, tx, wf.ID, n); err != nil {
				return err
			}
		}
		for _, e := range wf.Edges {
			if err := s.insertEdge(ctx, tx, wf.ID, e); err != nil {
				return err
			}
		}
		return nil
	})
}

// Load reads the workflow and rebuilds its index.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	return s.load(ctx, s.db, id, false)
}

// Update locks the workflow row (MySQL) or the single connection (SQLite),
// applies fn to a copy and writes the difference.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Workflow) error) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		current, err := s.load(ctx, tx, id, true)
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
		return s.apply(ctx, tx, next, diff)
	})
}

func (s *Store) apply(ctx context.Context, tx *sql.Tx, wf *domain.Workflow, diff *domain.WorkflowDiff) error {
	if err := s.checkOwnership(ctx, tx, diff.AddedNodes, diff.AddedEdges); err != nil {
		return err
	}

	for _, id := range diff.RemovedEdges {
		if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE id = ?", id); err != nil {
			return s.fail("deleting edge", err)
		}
	}
	for _, id := range diff.RemovedNodes {
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE id = ?", id); err != nil {
			return s.fail("deleting node", err)
		}
	}

	if diff.HeaderChanged {
		if _, err := tx.ExecContext(ctx,
			"UPDATE workflows SET name = ?, created_at = ?, updated_at = ? WHERE id = ?",
			wf.Name, wf.CreatedAt.UTC().Format(timeLayout), wf.UpdatedAt.UTC().Format(timeLayout), wf.ID,
		); err != nil {
			return s.fail("updating workflow", err)
		}
	}

	for _, n := range diff.ChangedNodes {
		if _, err := tx.ExecContext(ctx,
			`UPDATE nodes SET node_type = ?, status = ?, message = ?, condition_text = ?, condition_expression = ?
			WHERE id = ?`,
			string(n.Type), string(n.Status), n.Message, n.ConditionText, n.ConditionExpression, n.ID,
		); err != nil {
			return s.fail("updating node", err)
		}
	}
	for _, n := range diff.AddedNodes {
		if err := s.insertNode(ctx, tx, wf.ID, n); err != nil {
			return err
		}
	}

	for _, e := range diff.ChangedEdges {
		if _, err := tx.ExecContext(ctx,
			"UPDATE edges SET start_node_id = ?, end_node_id = ?, status = ? WHERE id = ?",
			e.StartNodeID, e.EndNodeID, string(e.Status), e.ID,
		); err != nil {
			return s.fail("updating edge", err)
		}
	}
	for _, e := range diff.AddedEdges {
		if err := s.insertEdge(ctx, tx, wf.ID, e); err != nil {
			return err
		}
	}

	s.logger.Debug("workflow updated",
		"workflow_id", wf.ID,
		"nodes_added", len(diff.AddedNodes),
		"nodes_removed", len(diff.RemovedNodes),
		"edges_added", len(diff.AddedEdges),
		"edges_removed", len(diff.RemovedEdges),
	)
	return nil
}

// Delete removes the workflow rows.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM workflows WHERE id = ?", id)
		if err != nil {
			return s.fail("deleting workflow", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return s.fail("deleting workflow", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM edges WHERE workflow_id = ?", id); err != nil {
			return s.fail("deleting edges", err)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes WHERE workflow_id = ?", id); err != nil {
			return s.fail("deleting nodes", err)
		}
		return nil
	})
}

// List returns workflow ids in creation order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM workflows ORDER BY seq")
	if err != nil {
		return nil, s.fail("listing workflows", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, s.fail("scanning workflow id", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("listing workflows", err)
	}
	return ids, nil
}

// LocateNode returns the owning workflow id.
func (s *Store) LocateNode(ctx context.Context, nodeID string) (string, error) {
	return s.locate(ctx, s.db, "nodes", nodeID, domain.ErrNodeNotFound)
}

// LocateEdge returns the owning workflow id.
func (s *Store) LocateEdge(ctx context.Context, edgeID string) (string, error) {
	return s.locate(ctx, s.db, "edges", edgeID, domain.ErrEdgeNotFound)
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) locate(ctx context.Context, q queryer, table, id string, notFound error) (string, error) {
	var owner string
	err := q.QueryRowContext(ctx, "SELECT workflow_id FROM "+table+" WHERE id = ?", id).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %s", notFound, id)
	}
	if err != nil {
		return "", s.fail("locating "+table, err)
	}
	return owner, nil
}

func (s *Store) load(ctx context.Context, q queryer, id string, forUpdate bool) (*domain.Workflow, error) {
	query := "SELECT name, created_at, updated_at FROM workflows WHERE id = ?"
	if forUpdate {
		query += s.dialect.lockClause
	}

	var name, created, updated string
	err := q.QueryRowContext(ctx, query, id).Scan(&name, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	if err != nil {
		return nil, s.fail("loading workflow", err)
	}

	wf := &domain.Workflow{ID: id, Name: name, Nodes: []domain.Node{}, Edges: []domain.Edge{}}
	if wf.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, s.fail("parsing created_at", err)
	}
	if wf.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, s.fail("parsing updated_at", err)
	}

	if wf.Nodes, err = s.loadNodes(ctx, q, id); err != nil {
		return nil, err
	}
	if wf.Edges, err = s.loadEdges(ctx, q, id); err != nil {
		return nil, err
	}
	wf.Reindex()
	return wf, nil
}

func (s *Store) loadNodes(ctx context.Context, q queryer, workflowID string) ([]domain.Node, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT id, node_type, status, message, condition_text, condition_expression
		FROM nodes WHERE workflow_id = ? ORDER BY seq`, workflowID)
	if err != nil {
		return nil, s.fail("loading nodes", err)
	}
	defer rows.Close()

	nodes := []domain.Node{}
	for rows.Next() {
		n := domain.Node{WorkflowID: workflowID}
		var typ, status string
		if err := rows.Scan(&n.ID, &typ, &status, &n.Message, &n.ConditionText, &n.ConditionExpression); err != nil {
			return nil, s.fail("scanning node", err)
		}
		n.Type = domain.NodeType(typ)
		n.Status = domain.NodeStatus(status)
		nodes = append(nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("loading nodes", err)
	}
	return nodes, nil
}

func (s *Store) loadEdges(ctx context.Context, q queryer, workflowID string) ([]domain.Edge, error) {
	rows, err := q.QueryContext(ctx,
		"SELECT id, start_node_id, end_node_id, status FROM edges WHERE workflow_id = ? ORDER BY seq", workflowID)
	if err != nil {
		return nil, s.fail("loading edges", err)
	}
	defer rows.Close()

	edges := []domain.Edge{}
	for rows.Next() {
		e := domain.Edge{WorkflowID: workflowID}
		var status string
		if err := rows.Scan(&e.ID, &e.StartNodeID, &e.EndNodeID, &status); err != nil {
			return nil, s.fail("scanning edge", err)
		}
		e.Status = domain.EdgeStatus(status)
		edges = append(edges, e)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail("loading edges", err)
	}
	return edges, nil
}

func (s *Store) insertNode(ctx context.Context, tx *sql.Tx, workflowID string, n domain.Node) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO nodes (id, workflow_id, node_type, status, message, condition_text, condition_expression)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, workflowID, string(n.Type), string(n.Status), n.Message, n.ConditionText, n.ConditionExpression,
	)
	if err != nil {
		return s.fail("inserting node "+n.ID, err)
	}
	return nil
}

func (s *Store) insertEdge(ctx context.Context, tx *sql.Tx, workflowID string, e domain.Edge) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO edges (id, workflow_id, start_node_id, end_node_id, status) VALUES (?, ?, ?, ?, ?)",
		e.ID, workflowID, e.StartNodeID, e.EndNodeID, string(e.Status),
	)
	if err != nil {
		return s.fail("inserting edge "+e.ID, err)
	}
	return nil
}

// checkOwnership rejects node or edge ids that already have a row.
// Callers pass only entities new to the workflow, so any existing row belongs elsewhere.
func (s *Store) checkOwnership(ctx context.Context, tx *sql.Tx, nodes []domain.Node, edges []domain.Edge) error {
	for _, n := range nodes {
		owner, err := s.locate(ctx, tx, "nodes", n.ID, domain.ErrNodeNotFound)
		if errors.Is(err, domain.ErrNodeNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: node %s belongs to workflow %s", domain.ErrDuplicateID, n.ID, owner)
	}
	for _, e := range edges {
		owner, err := s.locate(ctx, tx, "edges", e.ID, domain.ErrEdgeNotFound)
		if errors.Is(err, domain.ErrEdgeNotFound) {
			continue
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: edge %s belongs to workflow %s", domain.ErrDuplicateID, e.ID, owner)
	}
	return nil
}

// withTx runs fn in a transaction, committing only when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.fail("beginning transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return s.fail("committing transaction", err)
	}
	return nil
}

// fail maps a driver error to the domain. Unique violations lost to a concurrent
// writer surface as ErrDuplicateID.
func (s *Store) fail(op string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if s.dialect.isDuplicate != nil && s.dialect.isDuplicate(err) {
		return fmt.Errorf("%w: %s: %v", domain.ErrDuplicateID, op, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrStore, op, err)
}
