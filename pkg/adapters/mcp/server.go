// Package mcp exposes a router over the Model Context Protocol so
// agents can navigate the state tree as a set of tools. The server
// wraps a single router: one MCP client conversation is one session.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/internal/presentation/graph"
	"github.com/aretw0/switchback/pkg/transition"
)

// NavigateResponse is the structured result of the navigate tool.
type NavigateResponse struct {
	Status    string         `json:"status" jsonschema_description:"Terminal status of the transition (success, error, ignored)"`
	State     string         `json:"state" jsonschema_description:"Name of the targeted state"`
	Params    map[string]any `json:"params,omitempty" jsonschema_description:"Effective parameter values of the committed path"`
	Path      []string       `json:"path,omitempty" jsonschema_description:"Active path after the transition, root to leaf"`
	Redirects []string       `json:"redirects,omitempty" jsonschema_description:"States visited while following redirects"`
	Kind      string         `json:"kind,omitempty" jsonschema_description:"Failure kind when the transition did not succeed"`
	Error     string         `json:"error,omitempty" jsonschema_description:"Error message when the transition did not succeed"`
}

// CurrentResponse is the structured result of the current_state tool.
type CurrentResponse struct {
	State  string         `json:"state" jsonschema_description:"Name of the current leaf state, empty before the first navigation"`
	Params map[string]any `json:"params,omitempty" jsonschema_description:"Parameter values of the current path"`
	Path   []string       `json:"path,omitempty" jsonschema_description:"Current path, root to leaf"`
}

// Server wraps a router and exposes it as an MCP server.
type Server struct {
	router    *switchback.Router
	logger    *slog.Logger
	mcpServer *server.MCPServer
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to the router's.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates an MCP server around the router.
func NewServer(router *switchback.Router, opts ...Option) *Server {
	s := &Server{
		router:    router,
		mcpServer: server.NewMCPServer("switchback-mcp", strings.TrimSpace(switchback.Version)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = router.Logger()
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and blocks
// until the listener fails or the context is canceled.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("mcp server listening (sse)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: navigate
	navigateTool := mcp.NewTool("navigate",
		mcp.WithDescription("Navigate to a state by name. Redirects issued by hooks are followed automatically."),
		mcp.WithString("target", mcp.Required(), mcp.Description("Name of the state to navigate to, e.g. \"app.users.detail\"")),
		mcp.WithString("params", mcp.Description("JSON object of parameter values, e.g. {\"id\": \"42\"} (optional)")),
		mcp.WithBoolean("reload", mcp.Description("Force a full exit and re-entry even when already on the target state (optional)")),
		mcp.WithOutputSchema[NavigateResponse](),
	)
	s.mcpServer.AddTool(navigateTool, mcp.NewStructuredToolHandler(s.handleNavigate))

	// TOOL: current_state
	currentTool := mcp.NewTool("current_state",
		mcp.WithDescription("Report the current position: leaf state, parameters and the active path."),
		mcp.WithOutputSchema[CurrentResponse](),
	)
	s.mcpServer.AddTool(currentTool, mcp.NewStructuredToolHandler(s.handleCurrent))

	// TOOL: list_states
	s.mcpServer.AddTool(mcp.NewTool("list_states",
		mcp.WithDescription("List every navigable state with its parent, URL fragment and parameters."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(s.statesJSON()), nil
	})
}

// Handler methods for structured tools

// navigateArgs is the decoded argument set of the navigate tool.
type navigateArgs struct {
	Target string `mapstructure:"target"`
	Params string `mapstructure:"params"`
	Reload bool   `mapstructure:"reload"`
}

func (s *Server) handleNavigate(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (NavigateResponse, error) {
	var in navigateArgs
	if err := mapstructure.Decode(args, &in); err != nil {
		return NavigateResponse{}, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Target == "" {
		return NavigateResponse{}, fmt.Errorf("missing target state")
	}

	var params map[string]any
	if in.Params != "" {
		if err := json.Unmarshal([]byte(in.Params), &params); err != nil {
			return NavigateResponse{}, fmt.Errorf("params is not a JSON object: %w", err)
		}
	}

	var opts []transition.TargetOption
	if in.Reload {
		opts = append(opts, transition.WithReload())
	}

	tr, err := s.router.Go(ctx, in.Target, params, opts...)
	if err != nil && tr == nil {
		return NavigateResponse{}, fmt.Errorf("navigate failed: %w", err)
	}

	resp := NavigateResponse{
		Status: tr.Status().String(),
		State:  tr.Target().State,
		Params: tr.Params(),
		Path:   tr.To().Names(),
	}
	if chain := tr.RedirectChain(); len(chain) > 1 {
		resp.Redirects = chain
	}
	if err != nil {
		// Settled failures stay structured so the agent can react to
		// the kind instead of parsing an error string.
		resp.Kind = transition.KindOf(err).String()
		resp.Error = err.Error()
	}
	return resp, nil
}

func (s *Server) handleCurrent(ctx context.Context, request mcp.CallToolRequest, args map[string]any) (CurrentResponse, error) {
	cur := s.router.Current()
	resp := CurrentResponse{
		Params: cur.Params(),
		Path:   cur.Names(),
	}
	if terminal := cur.Terminal(); terminal != nil {
		resp.State = terminal.Name()
	}
	return resp, nil
}

// statesJSON renders the state definitions for the list tool and the
// states resource.
func (s *Server) statesJSON() string {
	type stateInfo struct {
		Name    string         `json:"name"`
		Parent  string         `json:"parent,omitempty"`
		URL     string         `json:"url,omitempty"`
		Params  []string       `json:"params,omitempty"`
		Resolve []string       `json:"resolve,omitempty"`
		Data    map[string]any `json:"data,omitempty"`
	}

	defs := s.router.States()
	out := make([]stateInfo, len(defs))
	for i, st := range defs {
		info := stateInfo{
			Name:   st.Name,
			Parent: st.ParentName(),
			URL:    st.URL,
			Data:   st.Data,
		}
		for _, p := range st.Params {
			info.Params = append(info.Params, p.Name)
		}
		for _, d := range st.Resolves {
			info.Resolve = append(info.Resolve, d.Token)
		}
		out[i] = info
	}

	data, err := json.Marshal(out)
	if err != nil {
		s.logger.Error("failed to marshal state definitions", "err", err)
		return "[]"
	}
	return string(data)
}

func (s *Server) registerResources() {
	// EXPOSE: switchback://graph
	s.mcpServer.AddResource(mcp.NewResource("switchback://graph", "State Tree Diagram",
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		var overlay *graph.PathOverlay
		if names := s.router.Current().Names(); len(names) > 0 {
			overlay = &graph.PathOverlay{ActivePath: names}
		}
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "switchback://graph",
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(s.router.States(), overlay),
			},
		}, nil
	})

	// EXPOSE: switchback://states
	s.mcpServer.AddResource(mcp.NewResource("switchback://states", "State Definitions",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "switchback://states",
				MIMEType: "application/json",
				Text:     s.statesJSON(),
			},
		}, nil
	})
}
