package mcp

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/pkg/state"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	router, err := switchback.New(
		switchback.WithStates(
			state.State{Name: "app", URL: "/"},
			state.State{Name: "app.users", URL: "/users"},
			state.State{Name: "app.users.detail", URL: "/:id", Params: []state.Param{{Name: "id"}}},
		),
		switchback.WithLogger(slog.New(slog.NewJSONHandler(io.Discard, nil))),
	)
	require.NoError(t, err)
	return NewServer(router)
}

func TestHandleNavigate(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users.detail",
		"params": `{"id":"42"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "success", resp.Status)
	assert.Equal(t, "app.users.detail", resp.State)
	assert.Equal(t, []string{"app", "app.users", "app.users.detail"}, resp.Path)
	assert.Equal(t, "42", resp.Params["id"])
}

func TestHandleNavigate_Arguments(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{})
	assert.ErrorContains(t, err, "missing target state")

	_, err = s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users",
		"params": "not json",
	})
	assert.ErrorContains(t, err, "params is not a JSON object")

	_, err = s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users",
		"reload": "definitely",
	})
	assert.ErrorContains(t, err, "invalid arguments")

	// Unknown states fail at creation: there is no transition to
	// describe, so the tool call itself errors.
	_, err = s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "ghost",
	})
	assert.ErrorContains(t, err, "navigate failed")
}

func TestHandleNavigate_SettledOutcomesStayStructured(t *testing.T) {
	s := newTestServer(t)

	_, err := s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users",
	})
	require.NoError(t, err)

	resp, err := s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users",
	})
	require.NoError(t, err)

	assert.Equal(t, "ignored", resp.Status)
	assert.Equal(t, "same-state", resp.Kind)
	assert.NotEmpty(t, resp.Error)
}

func TestHandleCurrent(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.handleCurrent(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Empty(t, resp.State)
	assert.Empty(t, resp.Path)

	_, err = s.handleNavigate(context.Background(), mcp.CallToolRequest{}, map[string]any{
		"target": "app.users",
	})
	require.NoError(t, err)

	resp, err = s.handleCurrent(context.Background(), mcp.CallToolRequest{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "app.users", resp.State)
	assert.Equal(t, []string{"app", "app.users"}, resp.Path)
}

func TestStatesJSON(t *testing.T) {
	s := newTestServer(t)

	out := s.statesJSON()
	assert.Contains(t, out, `"name":"app.users.detail"`)
	assert.Contains(t, out, `"parent":"app.users"`)
	assert.Contains(t, out, `"params":["id"]`)
}
