package mcp_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/aretw0/waypoint"
	"github.com/aretw0/waypoint/pkg/adapters/mcp"
	"github.com/aretw0/waypoint/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolResult struct {
	IsError bool `json:"isError"`
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

type client struct {
	t   *testing.T
	srv *mcp.Server
	id  int
}

func newClient(t *testing.T) *client {
	t.Helper()
	var seq atomic.Int64
	eng := waypoint.New(waypoint.WithIDGenerator(func() string { return fmt.Sprintf("id-%d", seq.Add(1)) }))
	c := &client{t: t, srv: mcp.NewServer(eng)}
	c.rpc("initialize", map[string]any{
		"protocolVersion": "2025-03-26",
		"capabilities":    map[string]any{},
		"clientInfo":      map[string]any{"name": "test", "version": "1.0.0"},
	})
	return c
}

func (c *client) rpc(method string, params any) json.RawMessage {
	c.t.Helper()
	c.id++
	req, err := json.Marshal(map[string]any{"jsonrpc": "2.0", "id": c.id, "method": method, "params": params})
	require.NoError(c.t, err)

	msg := c.srv.MCPServer().HandleMessage(context.Background(), req)
	raw, err := json.Marshal(msg)
	require.NoError(c.t, err)

	var resp rpcResponse
	require.NoError(c.t, json.Unmarshal(raw, &resp))
	require.Nil(c.t, resp.Error, "rpc %s failed", method)
	return resp.Result
}

// tool calls a tool and decodes its text content into out. It returns the raw text when the
// tool reported an error.
func (c *client) tool(name string, args map[string]any, out any) (string, bool) {
	c.t.Helper()
	var res toolResult
	require.NoError(c.t, json.Unmarshal(c.rpc("tools/call", map[string]any{"name": name, "arguments": args}), &res))
	require.NotEmpty(c.t, res.Content)
	text := res.Content[0].Text
	if res.IsError {
		return text, false
	}
	if out != nil {
		require.NoError(c.t, json.Unmarshal([]byte(text), out))
	}
	return text, true
}

func TestServer_ListTools(t *testing.T) {
	c := newClient(t)
	var res struct {
		Tools []struct {
			Name string `json:"name"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(c.rpc("tools/list", map[string]any{}), &res))

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{"create_workflow", "create_node", "create_edge", "run_workflow", "get_workflow"}, names)
}

func TestServer_BuildAndRun(t *testing.T) {
	c := newClient(t)

	var wf domain.Workflow
	_, ok := c.tool("create_workflow", map[string]any{"name": "greeting"}, &wf)
	require.True(t, ok)

	nodes := []map[string]any{
		{"id": "1", "type": "Start"},
		{"id": "2", "type": "Message", "message": "hello"},
		{"id": "3", "type": "Condition", "condition_expression": "message == 'hello'"},
		{"id": "4", "type": "Message", "message": "yes"},
		{"id": "5", "type": "Message", "message": "no"},
		{"id": "6", "type": "End"},
	}
	for _, n := range nodes {
		n["workflow_id"] = wf.ID
		_, ok := c.tool("create_node", n, nil)
		require.True(t, ok, "node %v", n["id"])
	}

	edges := [][3]string{{"1", "2", ""}, {"2", "3", ""}, {"3", "4", "Yes"}, {"3", "5", "No"}, {"4", "6", ""}, {"5", "6", ""}}
	for _, e := range edges {
		args := map[string]any{"workflow_id": wf.ID, "start_node_id": e[0], "end_node_id": e[1]}
		if e[2] != "" {
			args["status"] = e[2]
		}
		_, ok := c.tool("create_edge", args, nil)
		require.True(t, ok, "edge %s -> %s", e[0], e[1])
	}

	text, ok := c.tool("create_edge", map[string]any{"workflow_id": wf.ID, "start_node_id": "1", "end_node_id": "4"}, nil)
	assert.False(t, ok)
	assert.Contains(t, text, "Start Node can only have one outgoing edge.")

	var run mcp.RunResponse
	_, ok = c.tool("run_workflow", map[string]any{"workflow_id": wf.ID}, &run)
	require.True(t, ok)
	assert.Equal(t, []string{"1", "2", "3", "4", "6"}, run.Path.NodeIDs())

	var got domain.Workflow
	_, ok = c.tool("get_workflow", map[string]any{"workflow_id": wf.ID}, &got)
	require.True(t, ok)
	e, found := got.EdgeBetween("3", "4")
	require.True(t, found)
	assert.Equal(t, domain.EdgeStatusYes, e.Status)
}

func TestServer_ToolErrors(t *testing.T) {
	c := newClient(t)

	text, ok := c.tool("run_workflow", map[string]any{"workflow_id": "missing"}, nil)
	assert.False(t, ok)
	assert.Contains(t, text, "not found")

	text, ok = c.tool("create_workflow", map[string]any{"name": "x", "colour": "blue"}, nil)
	assert.False(t, ok)
	assert.Contains(t, text, "invalid arguments")
}

func TestServer_Resources(t *testing.T) {
	c := newClient(t)
	var wf domain.Workflow
	_, ok := c.tool("create_workflow", map[string]any{"name": "listed"}, &wf)
	require.True(t, ok)

	var res struct {
		Contents []struct {
			URI  string `json:"uri"`
			Text string `json:"text"`
		} `json:"contents"`
	}
	require.NoError(t, json.Unmarshal(c.rpc("resources/read", map[string]any{"uri": "waypoint://workflows"}), &res))
	require.Len(t, res.Contents, 1)

	var listed []domain.Workflow
	require.NoError(t, json.Unmarshal([]byte(res.Contents[0].Text), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "listed", listed[0].Name)
}
