// Package runtime holds the graph core: edge validation, path resolution and execution.
//
// Every function here works on an in-memory *domain.Workflow snapshot. Callers are expected to
// run them inside a store transaction so that a rejected mutation or a failed run leaves the
// persisted workflow untouched.
package runtime

import (
	"context"
	"io"
	"log/slog"

	"github.com/aretw0/waypoint/internal/condition"
)

// ConditionEvaluator decides a Condition node's expression against the preceding message.
type ConditionEvaluator func(ctx context.Context, expression, message string) (bool, error)

// DefaultEvaluator returns an evaluator backed by a compiled-expression cache.
func DefaultEvaluator() ConditionEvaluator {
	return condition.NewEvaluator().Evaluate
}

// NodeLocator reports which workflow owns a node that is absent from the current snapshot.
type NodeLocator interface {
	LocateNode(ctx context.Context, nodeID string) (string, error)
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
