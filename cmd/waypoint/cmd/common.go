package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/internal/config"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/dsl"
	"github.com/aretw0/waypoint/pkg/observability"
)

// openEngine builds an engine on the configured store. The returned close func releases it.
func openEngine(ctx context.Context, opts ...waypoint.Option) (*waypoint.Engine, func(), error) {
	backing, err := config.OpenStore(ctx, appConfig, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("opening %s store: %w", appConfig.Store.Backend, err)
	}
	all := append([]waypoint.Option{}, backing.Options...)
	all = append(all,
		waypoint.WithLogger(logger),
		waypoint.WithLifecycleHooks(observability.LogHooks(logger)),
		waypoint.WithLockTTL(appConfig.Lock.TTL),
	)
	all = append(all, opts...)

	closeFn := func() {
		if err := backing.Close(); err != nil {
			logger.Warn("closing store failed", "err", err)
		}
	}
	return waypoint.New(all...), closeFn, nil
}

// target is the workflow a command works on: either a definition file imported into a
// scratch in-memory engine, or a workflow already in the configured store.
type target struct {
	eng   *waypoint.Engine
	id    string
	close func()
}

// resolveTarget picks the workflow named by --workflow or by the file argument.
func resolveTarget(ctx context.Context, workflowID string, args []string) (*target, error) {
	switch {
	case workflowID != "" && len(args) > 0:
		return nil, errors.New("pass either a definition file or --workflow, not both")
	case workflowID != "":
		eng, closeFn, err := openEngine(ctx)
		if err != nil {
			return nil, err
		}
		return &target{eng: eng, id: workflowID, close: closeFn}, nil
	case len(args) == 0:
		return nil, errors.New("a definition file or --workflow is required")
	}

	def, err := dsl.Load(args[0])
	if err != nil {
		return nil, err
	}
	eng := waypoint.New(
		waypoint.WithStore(memory.NewStore()),
		waypoint.WithLogger(logger),
		waypoint.WithLifecycleHooks(observability.LogHooks(logger)),
	)
	wf, err := dsl.Import(ctx, eng, def)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", args[0], err)
	}
	return &target{eng: eng, id: wf.ID, close: func() {}}, nil
}

// describe prints each error of an aggregate on its own line.
func describe(err error) []string {
	if errs := domain.ValidationErrors(err); len(errs) > 0 {
		lines := make([]string, 0, len(errs))
		for _, e := range errs {
			lines = append(lines, e.Error())
		}
		return lines
	}
	return []string{err.Error()}
}
