package ports

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunWorkflowStoreContract runs a suite of tests to verify that a WorkflowStore implementation
// adheres to the defined interface contract. Ids are randomized so the suite can run against
// shared databases.
func RunWorkflowStoreContract(t *testing.T, store WorkflowStore) {
	ctx := context.Background()
	prefix := uuid.NewString()[:8] + "-"
	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	fixture := func(name string) *domain.Workflow {
		id := prefix + name
		wf := domain.NewWorkflow(id, "contract "+name, created)
		require.NoError(t, wf.AddNode(domain.Node{ID: id + "-s", Type: domain.NodeTypeStart}))
		require.NoError(t, wf.AddNode(domain.Node{ID: id + "-m", Type: domain.NodeTypeMessage, Message: "hello", Status: domain.NodeStatusPending}))
		require.NoError(t, wf.AddNode(domain.Node{ID: id + "-c", Type: domain.NodeTypeCondition, ConditionText: "said hello?", ConditionExpression: "message == 'hello'"}))
		require.NoError(t, wf.AddNode(domain.Node{ID: id + "-e", Type: domain.NodeTypeEnd}))
		require.NoError(t, wf.AddEdge(domain.Edge{ID: id + "-e1", StartNodeID: id + "-s", EndNodeID: id + "-m"}))
		require.NoError(t, wf.AddEdge(domain.Edge{ID: id + "-e2", StartNodeID: id + "-m", EndNodeID: id + "-c", Status: domain.EdgeStatusYes}))
		require.NoError(t, wf.AddEdge(domain.Edge{ID: id + "-e3", StartNodeID: id + "-c", EndNodeID: id + "-e", Status: domain.EdgeStatusYes}))
		return wf
	}

	t.Run("Create and Load", func(t *testing.T) {
		wf := fixture("roundtrip")
		require.NoError(t, store.Create(ctx, wf))

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.ID, loaded.ID)
		assert.Equal(t, wf.Name, loaded.Name)
		assert.True(t, wf.CreatedAt.Equal(loaded.CreatedAt), "created_at %v != %v", wf.CreatedAt, loaded.CreatedAt)
		assert.Equal(t, wf.Nodes, loaded.Nodes, "nodes keep insertion order")
		assert.Equal(t, wf.Edges, loaded.Edges, "edges keep insertion order")

		out := loaded.Outgoing(wf.ID + "-m")
		require.Len(t, out, 1, "index is rebuilt after load")
		assert.Equal(t, wf.ID+"-e2", out[0].ID)
	})

	t.Run("Load returns a copy", func(t *testing.T) {
		wf := fixture("copy")
		require.NoError(t, store.Create(ctx, wf))

		a, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		a.Name = "mutated"
		a.Nodes[0].Status = domain.NodeStatusOpened

		b, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.Name, b.Name)
		assert.Equal(t, domain.NodeStatus(""), b.Nodes[0].Status)
	})

	t.Run("Create duplicate", func(t *testing.T) {
		wf := fixture("dup")
		require.NoError(t, store.Create(ctx, wf))
		assert.ErrorIs(t, store.Create(ctx, fixture("dup")), domain.ErrDuplicateID)
	})

	t.Run("Create with a node id owned elsewhere", func(t *testing.T) {
		owner := fixture("owner")
		require.NoError(t, store.Create(ctx, owner))

		thief := domain.NewWorkflow(prefix+"thief", "thief", created)
		require.NoError(t, thief.AddNode(domain.Node{ID: owner.ID + "-s", Type: domain.NodeTypeStart}))
		assert.ErrorIs(t, store.Create(ctx, thief), domain.ErrDuplicateID)

		_, err := store.Load(ctx, thief.ID)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, prefix+"missing")
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Update commits", func(t *testing.T) {
		wf := fixture("update")
		require.NoError(t, store.Create(ctx, wf))

		updated := created.Add(time.Hour)
		err := store.Update(ctx, wf.ID, func(w *domain.Workflow) error {
			w.Name = "renamed"
			w.UpdatedAt = updated
			if err := w.AddNode(domain.Node{ID: wf.ID + "-m2", Type: domain.NodeTypeMessage, Message: "second"}); err != nil {
				return err
			}
			if err := w.SetEdgeStatus(wf.ID+"-e2", domain.EdgeStatusNo); err != nil {
				return err
			}
			n, _ := w.Node(wf.ID + "-m")
			n.Status = domain.NodeStatusSent
			return w.ReplaceNode(n)
		})
		require.NoError(t, err)

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, "renamed", loaded.Name)
		assert.True(t, updated.Equal(loaded.UpdatedAt))
		require.Len(t, loaded.Nodes, 5)
		assert.Equal(t, wf.ID+"-m2", loaded.Nodes[4].ID)
		assert.Equal(t, wf.ID, loaded.Nodes[4].WorkflowID)

		e, ok := loaded.Edge(wf.ID + "-e2")
		require.True(t, ok)
		assert.Equal(t, domain.EdgeStatusNo, e.Status)

		m, ok := loaded.Node(wf.ID + "-m")
		require.True(t, ok)
		assert.Equal(t, domain.NodeStatusSent, m.Status)

		owner, err := store.LocateNode(ctx, wf.ID+"-m2")
		require.NoError(t, err)
		assert.Equal(t, wf.ID, owner)
	})

	t.Run("Update aborts on error", func(t *testing.T) {
		wf := fixture("abort")
		require.NoError(t, store.Create(ctx, wf))

		boom := errors.New("boom")
		err := store.Update(ctx, wf.ID, func(w *domain.Workflow) error {
			w.Name = "half-done"
			_, _ = w.RemoveNode(wf.ID + "-c")
			return boom
		})
		assert.ErrorIs(t, err, boom)

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Equal(t, wf.Name, loaded.Name)
		assert.Len(t, loaded.Nodes, 4)
		assert.Len(t, loaded.Edges, 3)
	})

	t.Run("Update removes nodes and edges", func(t *testing.T) {
		wf := fixture("remove")
		require.NoError(t, store.Create(ctx, wf))

		err := store.Update(ctx, wf.ID, func(w *domain.Workflow) error {
			_, err := w.RemoveNode(wf.ID + "-c")
			return err
		})
		require.NoError(t, err)

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 3)
		require.Len(t, loaded.Edges, 1)
		assert.Equal(t, wf.ID+"-e1", loaded.Edges[0].ID)

		_, err = store.LocateNode(ctx, wf.ID+"-c")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		_, err = store.LocateEdge(ctx, wf.ID+"-e3")
		assert.ErrorIs(t, err, domain.ErrEdgeNotFound)
	})

	t.Run("Update rejects foreign ids", func(t *testing.T) {
		a := fixture("ua")
		b := fixture("ub")
		require.NoError(t, store.Create(ctx, a))
		require.NoError(t, store.Create(ctx, b))

		err := store.Update(ctx, b.ID, func(w *domain.Workflow) error {
			return w.AddNode(domain.Node{ID: a.ID + "-s", Type: domain.NodeTypeStart})
		})
		assert.ErrorIs(t, err, domain.ErrDuplicateID)

		owner, err := store.LocateNode(ctx, a.ID+"-s")
		require.NoError(t, err)
		assert.Equal(t, a.ID, owner)
	})

	t.Run("Update Non-Existent", func(t *testing.T) {
		called := false
		err := store.Update(ctx, prefix+"missing", func(*domain.Workflow) error {
			called = true
			return nil
		})
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound)
		assert.False(t, called)
	})

	t.Run("Concurrent updates", func(t *testing.T) {
		wf := fixture("concurrent")
		require.NoError(t, store.Create(ctx, wf))

		const writers = 8
		var wg sync.WaitGroup
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := store.Update(ctx, wf.ID, func(w *domain.Workflow) error {
					return w.AddNode(domain.Node{
						ID:      fmt.Sprintf("%s-w%d", wf.ID, i),
						Type:    domain.NodeTypeMessage,
						Message: "writer",
					})
				})
				assert.NoError(t, err)
			}(i)
		}
		wg.Wait()

		loaded, err := store.Load(ctx, wf.ID)
		require.NoError(t, err)
		assert.Len(t, loaded.Nodes, 4+writers, "no update may be lost")
	})

	t.Run("Locate", func(t *testing.T) {
		wf := fixture("locate")
		require.NoError(t, store.Create(ctx, wf))

		owner, err := store.LocateNode(ctx, wf.ID+"-c")
		require.NoError(t, err)
		assert.Equal(t, wf.ID, owner)

		owner, err = store.LocateEdge(ctx, wf.ID+"-e3")
		require.NoError(t, err)
		assert.Equal(t, wf.ID, owner)

		_, err = store.LocateNode(ctx, prefix+"ghost")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		_, err = store.LocateEdge(ctx, prefix+"ghost")
		assert.ErrorIs(t, err, domain.ErrEdgeNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		wf := fixture("delete")
		require.NoError(t, store.Create(ctx, wf))

		require.NoError(t, store.Delete(ctx, wf.ID))

		_, err := store.Load(ctx, wf.ID)
		assert.ErrorIs(t, err, domain.ErrWorkflowNotFound, "Load after Delete should return ErrWorkflowNotFound")
		_, err = store.LocateNode(ctx, wf.ID+"-s")
		assert.ErrorIs(t, err, domain.ErrNodeNotFound)
		_, err = store.LocateEdge(ctx, wf.ID+"-e1")
		assert.ErrorIs(t, err, domain.ErrEdgeNotFound)

		assert.ErrorIs(t, store.Delete(ctx, wf.ID), domain.ErrWorkflowNotFound)
	})

	t.Run("List", func(t *testing.T) {
		first := fixture("list-1")
		second := fixture("list-2")
		require.NoError(t, store.Create(ctx, first))
		require.NoError(t, store.Create(ctx, second))

		ids, err := store.List(ctx)
		require.NoError(t, err)

		pos := make(map[string]int, len(ids))
		for i, id := range ids {
			pos[id] = i
		}
		require.Contains(t, pos, first.ID)
		require.Contains(t, pos, second.ID)
		assert.Less(t, pos[first.ID], pos[second.ID], "creation order")
		assert.NotContains(t, pos, prefix+"delete")
	})
}
