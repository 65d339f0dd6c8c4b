package waypoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/file"
	"github.com/aretw0/waypoint/pkg/adapters/memory"
	"github.com/aretw0/waypoint/pkg/adapters/redis"
	"github.com/aretw0/waypoint/pkg/adapters/sqlstore"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/aretw0/waypoint/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_AcrossStores(t *testing.T) {
	stores := map[string]func(t *testing.T) []waypoint.Option{
		"memory": func(t *testing.T) []waypoint.Option {
			return []waypoint.Option{waypoint.WithStore(memory.NewStore())}
		},
		"file": func(t *testing.T) []waypoint.Option {
			return []waypoint.Option{waypoint.WithStore(file.New(t.TempDir()))}
		},
		"sqlite": func(t *testing.T) []waypoint.Option {
			s, err := sqlstore.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "waypoint.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = s.Close() })
			return []waypoint.Option{waypoint.WithStore(s)}
		},
		"redis": func(t *testing.T) []waypoint.Option {
			mr := miniredis.RunT(t)
			client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
			t.Cleanup(func() { _ = client.Close() })
			return []waypoint.Option{
				waypoint.WithStore(redis.NewFromClient(client)),
				waypoint.WithLocker(redis.NewLocker(client, "")),
			}
		},
	}

	for name, setup := range stores {
		t.Run(name, func(t *testing.T) {
			eng := newEngine(t, setup(t)...)
			ctx := context.Background()
			wfID := scenario(t, eng, "goodbye")

			trace, err := eng.RunWorkflow(ctx, wfID)
			require.NoError(t, err)
			assert.Equal(t, []string{"1", "2", "3", "5", "6"}, trace.NodeIDs())
			assert.Equal(t, domain.EdgeStatusNo, statusBetween(t, eng, wfID, "3", "5"))

			// Node ids are unique across the store.
			other, err := eng.CreateWorkflow(ctx, "other")
			require.NoError(t, err)
			_, err = eng.CreateNode(ctx, other.ID, domain.Node{ID: "1", Type: domain.NodeTypeStart})
			assert.ErrorIs(t, err, domain.ErrDuplicateID)

			_, err = eng.DeleteNode(ctx, "3")
			require.NoError(t, err)
			_, err = eng.RunWorkflow(ctx, wfID)
			assert.ErrorIs(t, err, domain.ErrNoPathFound)
		})
	}
}

func TestEngine_StoreAccessor(t *testing.T) {
	store := memory.NewStore()
	eng := waypoint.New(waypoint.WithStore(store))
	var _ ports.WorkflowStore = eng.Store()
	assert.Same(t, store, eng.Store())
}
