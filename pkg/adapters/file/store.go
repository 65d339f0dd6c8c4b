// Package file stores each workflow as a JSON document in a directory.
//
// Writes go through an atomic rename, so a crash never leaves a half-written workflow behind.
// The store is meant for a single process (CLI usage); concurrent access from several
// processes is not coordinated.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

const ext = ".json"

// document is the on-disk shape. Seq records creation order.
type document struct {
	Seq      int64            `json:"seq"`
	Workflow *domain.Workflow `json:"workflow"`
}

// Store implements ports.WorkflowStore using the local filesystem.
type Store struct {
	BasePath string

	mu sync.Mutex
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".waypoint/workflows".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".waypoint", "workflows")
	}
	return &Store{BasePath: basePath}
}

// Create writes a new workflow document.
func (s *Store) Create(ctx context.Context, wf *domain.Workflow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(wf.ID)
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%w: workflow %s", domain.ErrDuplicateID, wf.ID)
	}

	docs, err := s.readAll(ctx)
	if err != nil {
		return err
	}
	if err := checkOwnership(docs, wf); err != nil {
		return err
	}

	var seq int64
	for _, d := range docs {
		if d.Seq > seq {
			seq = d.Seq
		}
	}
	return s.write(path, document{Seq: seq + 1, Workflow: wf})
}

// Load reads the workflow document.
func (s *Store) Load(ctx context.Context, id string) (*domain.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(id)
	if err != nil {
		return nil, err
	}
	return doc.Workflow, nil
}

// Update applies fn to the decoded workflow and rewrites the document when fn succeeds.
func (s *Store) Update(ctx context.Context, id string, fn func(*domain.Workflow) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read(id)
	if err != nil {
		return err
	}
	if err := fn(doc.Workflow); err != nil {
		return err
	}
	doc.Workflow.ID = id

	docs, err := s.readAll(ctx)
	if err != nil {
		return err
	}
	if err := checkOwnership(docs, doc.Workflow); err != nil {
		return err
	}

	path, err := s.path(id)
	if err != nil {
		return err
	}
	return s.write(path, doc)
}

// Delete removes the workflow document.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
		}
		return fmt.Errorf("%w: failed to delete workflow file: %v", domain.ErrStore, err)
	}
	return nil
}

// List returns workflow ids in creation order.
func (s *Store) List(ctx context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.Workflow.ID)
	}
	return ids, nil
}

// LocateNode scans every document for the node.
func (s *Store) LocateNode(ctx context.Context, nodeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if _, ok := d.Workflow.Node(nodeID); ok {
			return d.Workflow.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
}

// LocateEdge scans every document for the edge.
func (s *Store) LocateEdge(ctx context.Context, edgeID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	docs, err := s.readAll(ctx)
	if err != nil {
		return "", err
	}
	for _, d := range docs {
		if _, ok := d.Workflow.Edge(edgeID); ok {
			return d.Workflow.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", domain.ErrEdgeNotFound, edgeID)
}

func (s *Store) path(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: invalid workflow id %q", domain.ErrStore, id)
	}
	return filepath.Join(s.BasePath, id+ext), nil
}

func (s *Store) read(id string) (document, error) {
	path, err := s.path(id)
	if err != nil {
		return document{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return document{}, fmt.Errorf("%w: %s", domain.ErrWorkflowNotFound, id)
		}
		return document{}, fmt.Errorf("%w: failed to read workflow file: %v", domain.ErrStore, err)
	}
	return decode(data)
}

func decode(data []byte) (document, error) {
	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return document{}, fmt.Errorf("%w: failed to unmarshal workflow: %v", domain.ErrStore, err)
	}
	if doc.Workflow == nil {
		return document{}, fmt.Errorf("%w: workflow document is empty", domain.ErrStore)
	}
	doc.Workflow.Reindex()
	return doc, nil
}

// readAll loads every document sorted by creation order.
func (s *Store) readAll(ctx context.Context) ([]document, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to list workflows: %v", domain.ErrStore, err)
	}

	var docs []document
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := entry.Name()
		if entry.IsDir() || filepath.Ext(name) != ext || strings.HasPrefix(name, ".") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.BasePath, name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrStore, name, err)
		}
		doc, err := decode(data)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	sort.SliceStable(docs, func(i, j int) bool { return docs[i].Seq < docs[j].Seq })
	return docs, nil
}

func (s *Store) write(path string, doc document) error {
	if err := os.MkdirAll(s.BasePath, 0o755); err != nil {
		return fmt.Errorf("%w: failed to ensure workflow directory: %v", domain.ErrStore, err)
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: failed to marshal workflow: %v", domain.ErrStore, err)
	}
	if err := writeAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("%w: failed to write workflow file: %v", domain.ErrStore, err)
	}
	return nil
}

func checkOwnership(docs []document, wf *domain.Workflow) error {
	for _, d := range docs {
		other := d.Workflow
		if other.ID == wf.ID {
			continue
		}
		for _, n := range wf.Nodes {
			if _, ok := other.Node(n.ID); ok {
				return fmt.Errorf("%w: node %s belongs to workflow %s", domain.ErrDuplicateID, n.ID, other.ID)
			}
		}
		for _, e := range wf.Edges {
			if _, ok := other.Edge(e.ID); ok {
				return fmt.Errorf("%w: edge %s belongs to workflow %s", domain.ErrDuplicateID, e.ID, other.ID)
			}
		}
	}
	return nil
}
