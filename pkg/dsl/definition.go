package dsl

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"gopkg.in/yaml.v3"
)

// Definition is a workflow described as data. Order matters: nodes and edges are created in
// the order listed.
type Definition struct {
	Name  string        `yaml:"name"`
	Nodes []domain.Node `yaml:"nodes"`
	Edges []domain.Edge `yaml:"edges"`
}

// Parse decodes a YAML or JSON definition and checks that it is self-consistent.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("parsing workflow definition: %w", err)
	}
	if err := def.Check(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Load reads and parses a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading workflow definition: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Marshal encodes the definition as YAML.
func (d *Definition) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Check reports references the definition cannot satisfy on its own: missing ids, duplicate
// ids and edges to undeclared nodes. Graph rules are left to the validator at import time.
func (d *Definition) Check() error {
	var errs []error
	if d.Name == "" {
		errs = append(errs, errors.New("name is required"))
	}

	seen := make(map[string]bool, len(d.Nodes))
	for i, n := range d.Nodes {
		switch {
		case n.ID == "":
			errs = append(errs, fmt.Errorf("nodes[%d]: id is required", i))
		case seen[n.ID]:
			errs = append(errs, fmt.Errorf("nodes[%d]: duplicate id %q", i, n.ID))
		}
		seen[n.ID] = true
	}

	for i, e := range d.Edges {
		if !seen[e.StartNodeID] {
			errs = append(errs, fmt.Errorf("edges[%d]: unknown node %q", i, e.StartNodeID))
		}
		if !seen[e.EndNodeID] {
			errs = append(errs, fmt.Errorf("edges[%d]: unknown node %q", i, e.EndNodeID))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrValidation, &domain.AggregateError{Errors: errs})
	}
	return nil
}

// FromWorkflow turns a stored workflow back into a definition, for export.
func FromWorkflow(wf *domain.Workflow) *Definition {
	def := &Definition{
		Name:  wf.Name,
		Nodes: make([]domain.Node, len(wf.Nodes)),
		Edges: make([]domain.Edge, len(wf.Edges)),
	}
	copy(def.Nodes, wf.Nodes)
	copy(def.Edges, wf.Edges)
	return def
}

// Workflow assembles the definition into an unsaved workflow without running the edge
// validator, so a graph audit can report every problem at once. Edges without an id are
// named after their position, as in "edges[2]".
func (d *Definition) Workflow(id string, now time.Time) *domain.Workflow {
	wf := domain.NewWorkflow(id, d.Name, now)
	for _, n := range d.Nodes {
		n.WorkflowID = id
		wf.Nodes = append(wf.Nodes, n)
	}
	for i, e := range d.Edges {
		if e.ID == "" {
			e.ID = fmt.Sprintf("edges[%d]", i)
		}
		e.WorkflowID = id
		wf.Edges = append(wf.Edges, e)
	}
	wf.Reindex()
	return wf
}
