// Package condition implements the boolean expression language used by Condition nodes.
//
// An expression sees a single variable, message, holding the text of the Message node that
// precedes the condition:
//
//	message == 'hello'
//	message.as_lower in ['yes', 'y'] or message =~ 'ok.*'
//	not message.is_empty and message.length < 140
//
// Expressions are parsed by a small recursive-descent parser and never executed as code.
// Regular expressions use RE2 semantics and are anchored at the start of the subject.
package condition

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/aretw0/waypoint/pkg/domain"
)

// Error describes why an expression could not be parsed or evaluated.
// Kind is domain.ErrInvalidExpression or domain.ErrEvaluation.
type Error struct {
	Expression string
	Kind       error
	Detail     string
	Pos        int
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s at position %d in %q", e.Kind, e.Detail, e.Pos, e.Expression)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

func wrap(expression string, err error) error {
	var se *syntaxError
	if errors.As(err, &se) {
		return &Error{Expression: expression, Kind: se.kind, Detail: se.detail, Pos: se.pos}
	}
	return &Error{Expression: expression, Kind: domain.ErrEvaluation, Detail: err.Error()}
}

// Program is a parsed expression, safe for concurrent use.
type Program struct {
	source string
	root   expr
}

// Compile parses expression.
func Compile(expression string) (*Program, error) {
	root, err := parse(expression)
	if err != nil {
		return nil, wrap(expression, err)
	}
	return &Program{source: expression, root: root}, nil
}

// String returns the source text.
func (p *Program) String() string {
	return p.source
}

// Eval runs the program with message bound and reduces the result by truthiness.
func (p *Program) Eval(message string) (bool, error) {
	v, err := p.root.eval(map[string]any{"message": message})
	if err != nil {
		return false, wrap(p.source, err)
	}
	return truthy(v), nil
}

// Evaluate compiles and runs expression against message.
func Evaluate(expression, message string) (bool, error) {
	p, err := Compile(expression)
	if err != nil {
		return false, err
	}
	return p.Eval(message)
}

// Evaluator caches compiled programs by source text.
type Evaluator struct {
	mu       sync.RWMutex
	programs map[string]*Program
}

// NewEvaluator returns an empty cache.
func NewEvaluator() *Evaluator {
	return &Evaluator{programs: make(map[string]*Program)}
}

// Compile returns the cached program for expression, parsing it on first use.
// Parse failures are not cached.
func (e *Evaluator) Compile(expression string) (*Program, error) {
	e.mu.RLock()
	p, ok := e.programs[expression]
	e.mu.RUnlock()
	if ok {
		return p, nil
	}

	p, err := Compile(expression)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.programs[expression] = p
	e.mu.Unlock()
	return p, nil
}

// Evaluate has the shape of runtime.ConditionEvaluator.
func (e *Evaluator) Evaluate(ctx context.Context, expression, message string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := e.Compile(expression)
	if err != nil {
		return false, err
	}
	return p.Eval(message)
}

// Len reports how many programs are cached.
func (e *Evaluator) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.programs)
}
