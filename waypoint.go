package waypoint

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aretw0/waypoint/internal/logging"
	"github.com/aretw0/waypoint/internal/runtime"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/locking"
	"github.com/aretw0/waypoint/pkg/ports"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Version is the library version reported by the CLI and the HTTP API.
const Version = "0.4.0"

// DefaultListLimit is the page size used when a list call passes limit <= 0.
const DefaultListLimit = 100

const tracerName = "github.com/aretw0/waypoint"

// ConditionEvaluator decides a Condition node's expression against the preceding message.
type ConditionEvaluator = runtime.ConditionEvaluator

// Engine is the high-level entry point for the Waypoint library.
// It serializes mutations per workflow and runs the graph core inside store transactions.
type Engine struct {
	store     ports.WorkflowStore
	locks     *locking.Manager
	evaluator runtime.ConditionEvaluator
	hooks     domain.LifecycleHooks
	logger    *slog.Logger
	tracer    trace.Tracer
	now       func() time.Time
	newID     func() string

	locker  ports.DistributedLocker
	lockTTL time.Duration
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the workflow store. The default is an in-memory store.
func WithStore(store ports.WorkflowStore) Option {
	return func(e *Engine) {
		e.store = store
	}
}

// WithLocker adds a distributed lock around every mutation, for multi-replica deployments.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) {
		e.locker = locker
	}
}

// WithLockTTL sets how long a distributed lock outlives a crashed holder.
func WithLockTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.lockTTL = ttl
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks. Hooks fire after the store commits.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(e *Engine) {
		e.hooks = e.hooks.Merge(hooks)
	}
}

// WithTracerProvider sets the OpenTelemetry provider. The default is the global provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(e *Engine) {
		if tp != nil {
			e.tracer = tp.Tracer(tracerName)
		}
	}
}

// WithConditionEvaluator replaces the built-in expression language.
func WithConditionEvaluator(eval ConditionEvaluator) Option {
	return func(e *Engine) {
		e.evaluator = eval
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithIDGenerator overrides how ids are minted for workflows, nodes and edges.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// New initializes a new Engine.
func New(opts ...Option) *Engine {
	eng := &Engine{
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(eng)
	}

	if eng.store == nil {
		eng.store = memory.NewStore()
	}
	if eng.logger == nil {
		eng.logger = logging.NewNop()
	}
	if eng.evaluator == nil {
		eng.evaluator = runtime.DefaultEvaluator()
	}
	if eng.tracer == nil {
		eng.tracer = otel.GetTracerProvider().Tracer(tracerName)
	}

	lockOpts := []locking.Option{locking.WithLogger(eng.logger), locking.WithTTL(eng.lockTTL)}
	if eng.locker != nil {
		lockOpts = append(lockOpts, locking.WithLocker(eng.locker))
	}
	eng.locks = locking.NewManager(lockOpts...)
	return eng
}

// Store returns the underlying workflow store.
func (e *Engine) Store() ports.WorkflowStore {
	return e.store
}

// mutate runs fn on a snapshot of the workflow under the workflow lock and commits it when fn
// succeeds.
func (e *Engine) mutate(ctx context.Context, workflowID string, fn func(*domain.Workflow) error) error {
	return e.locks.WithLock(ctx, workflowID, func(ctx context.Context) error {
		return e.store.Update(ctx, workflowID, fn)
	})
}

func (e *Engine) startSpan(ctx context.Context, name, workflowID string) (context.Context, trace.Span) {
	return e.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("waypoint.workflow_id", workflowID)))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// owners pre-resolves node ownership so the validator can tell foreign nodes from unknown ones
// without calling back into the store mid-transaction.
type owners map[string]string

func (o owners) LocateNode(_ context.Context, nodeID string) (string, error) {
	if owner, ok := o[nodeID]; ok {
		return owner, nil
	}
	return "", fmt.Errorf("%w: %s", domain.ErrNodeNotFound, nodeID)
}

func (e *Engine) locateNodes(ctx context.Context, ids ...string) (owners, error) {
	found := make(owners, len(ids))
	for _, id := range ids {
		owner, err := e.store.LocateNode(ctx, id)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, err
		}
		found[id] = owner
	}
	return found, nil
}

// window applies skip/limit to n items and returns the [lo, hi) bounds.
func window(n, skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	if skip > n {
		skip = n
	}
	if limit > n-skip {
		limit = n - skip
	}
	return skip, skip + limit
}

var _ ports.WorkflowService = (*Engine)(nil)
