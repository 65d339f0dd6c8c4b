package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Store implements ports.WorkflowStore in memory.
// Safe for concurrent use.
type Store struct {
	mu        sync.RWMutex
	workflows map[string]*domain.Workflow
	order     []string
	nodeOwner map[string]string
	edgeOwner map[string]string
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		workflows: make(map[string]*domain.Workflow),
		nodeOwner: make(map[string]string),
		edgeOwner: make(map[string]string),
	}
}

// Create persists a copy of wf.
func (s *Store) Create(ctx context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[wf.ID]; exists {
		return fmt.Errorf("%w: workflow %s", domain.ErrDuplicateID, wf.ID)
	}
	if err := s.checkOwnership(wf); err != nil {
		return err
	}

	stored := wf.Clone()
	s.workflows[wf.ID] = stored
	s.order = append(s.order, wf.ID)
	s.claim(stored)
	return nil
}

// Load returns a copy so callers can't mutate the store through the pointer.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	wf, ok := s.workflows[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	return wf.Clone(), nil
}

// Update applies fn to a copy and swaps it in when fn succeeds.
// Updates are serialized by the store mutex.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Workflow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.workflows[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}

	next := current.Clone()
	if err := fn(next); err != nil {
		return err
	}
	next.ID = id
	next.Reindex()
	if err := s.checkOwnership(next); err != nil {
		return err
	}

	s.release(current)
	s.workflows[id] = next
	s.claim(next)
	return nil
}

// Delete removes the workflow.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	wf, ok := s.workflows[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
	}
	s.release(wf)
	delete(s.workflows, id)
	for i, existing := range s.order {
		if existing == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// List returns workflow ids in creation order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...), nil
}

// LocateNode returns the owning workflow id.
func (s *Store) LocateNode(ctx context.Context, nodeID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.nodeOwner[nodeID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
	}
	return owner, nil
}

// LocateEdge returns the owning workflow id.
func (s *Store) LocateEdge(ctx context.Context, edgeID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	owner, ok := s.edgeOwner[edgeID]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, edgeID)
	}
	return owner, nil
}

// checkOwnership rejects node or edge ids held by another workflow. Caller holds the lock.
func (s *Store) checkOwnership(wf *domain.Workflow) error {
	for _, n := range wf.Nodes {
		if owner, ok := s.nodeOwner[n.ID]; ok && owner != wf.ID {
			return fmt.Errorf("%w: node %s belongs to workflow %s", domain.ErrDuplicateID, n.ID, owner)
		}
	}
	for _, e := range wf.Edges {
		if owner, ok := s.edgeOwner[e.ID]; ok && owner != wf.ID {
			return fmt.Errorf("%w: edge %s belongs to workflow %s", domain.ErrDuplicateID, e.ID, owner)
		}
	}
	return nil
}

func (s *Store) claim(wf *domain.Workflow) {
	for _, n := range wf.Nodes {
		s.nodeOwner[n.ID] = wf.ID
	}
	for _, e := range wf.Edges {
		s.edgeOwner[e.ID] = wf.ID
	}
}

func (s *Store) release(wf *domain.Workflow) {
	for _, n := range wf.Nodes {
		delete(s.nodeOwner, n.ID)
	}
	for _, e := range wf.Edges {
		delete(s.edgeOwner, e.ID)
	}
}
