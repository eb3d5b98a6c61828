package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/switchback"
	"github.com/aretw0/switchback/pkg/path"
	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/session"
	"github.com/aretw0/switchback/pkg/transition"
)

// RouterFactory builds a fresh router from the configured state tree.
// The server calls it once per session, so hooks registered inside the
// factory are session-scoped.
type RouterFactory func() (*switchback.Router, error)

// Server serves one router per session over HTTP. Routers are built
// lazily on a session's first request and restored from the session
// manager's persisted snapshot when one exists.
type Server struct {
	factory  RouterFactory
	sessions *session.Manager
	streams  *StreamManager
	logger   *slog.Logger
	version  string

	// blueprint serves the endpoints that only read definitions.
	blueprint *switchback.Router

	mu      sync.Mutex
	routers map[string]*switchback.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the structured logger. Defaults to slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithVersion overrides the version reported by the info endpoint.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// NewServer builds a Server. The factory runs once immediately, both to
// validate the configuration and to provide the definition endpoints
// with a router to read from.
func NewServer(factory RouterFactory, sessions *session.Manager, opts ...Option) (*Server, error) {
	if factory == nil {
		return nil, fmt.Errorf("nil router factory")
	}
	if sessions == nil {
		return nil, fmt.Errorf("nil session manager")
	}
	s := &Server{
		factory:  factory,
		sessions: sessions,
		version:  switchback.Version,
		routers:  make(map[string]*switchback.Router),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.streams = NewStreamManager(s.logger)

	blueprint, err := factory()
	if err != nil {
		return nil, fmt.Errorf("router factory failed: %w", err)
	}
	s.blueprint = blueprint
	return s, nil
}

// NewHandler builds a Server and returns its routed handler.
func NewHandler(factory RouterFactory, sessions *session.Manager, opts ...Option) (http.Handler, error) {
	s, err := NewServer(factory, sessions, opts...)
	if err != nil {
		return nil, err
	}
	return s.Handler(), nil
}

// Handler returns the routed HTTP handler with CORS enabled.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)
	r.Get("/info", s.handleInfo)
	r.Get("/states", s.handleStates)
	r.Get("/graph", s.handleGraph)
	r.Get("/events", s.handleWatchEvents)

	r.Get("/sessions", s.handleListSessions)
	r.Route("/sessions/{sessionID}", func(r chi.Router) {
		r.Get("/", s.handleGetSession)
		r.Delete("/", s.handleDeleteSession)
		r.Post("/transitions", s.handleTransition)
		r.Get("/events", s.handleSessionEvents)
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// routerFor returns the session's live router, building and restoring
// it on first use.
func (s *Server) routerFor(ctx context.Context, sessionID string) (*switchback.Router, error) {
	s.mu.Lock()
	if router, ok := s.routers[sessionID]; ok {
		s.mu.Unlock()
		return router, nil
	}
	s.mu.Unlock()

	// Building outside the lock keeps slow factories and restores from
	// serializing unrelated sessions.
	router, err := s.factory()
	if err != nil {
		return nil, fmt.Errorf("router factory failed: %w", err)
	}
	s.attachObservers(sessionID, router)

	snap, err := s.sessions.Load(ctx, sessionID)
	switch {
	case err == nil:
		if _, gerr := router.Go(ctx, snap.State, snap.Params); gerr != nil {
			s.logger.Warn("session restore navigation failed",
				"session_id", sessionID, "state", snap.State, "err", gerr)
		}
	case errors.Is(err, ports.ErrSnapshotNotFound):
		// Fresh session.
	default:
		return nil, fmt.Errorf("load session %q: %w", sessionID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.routers[sessionID]; ok {
		// Lost the race to a concurrent first request.
		return existing, nil
	}
	s.routers[sessionID] = router
	return router, nil
}

func (s *Server) liveRouter(sessionID string) (*switchback.Router, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	router, ok := s.routers[sessionID]
	return router, ok
}

func (s *Server) dropRouter(sessionID string) {
	s.mu.Lock()
	delete(s.routers, sessionID)
	s.mu.Unlock()
}

// attachObservers wires the settled-transition observers that feed the
// session's event stream. Observer errors are logged by the pipeline
// and never affect the transition itself.
func (s *Server) attachObservers(sessionID string, router *switchback.Router) {
	publish := func(ctx context.Context, tr *transition.Transition, _ *path.Node) (transition.Result, error) {
		evt := transitionEvent{
			Session: sessionID,
			Status:  tr.Status().String(),
			State:   tr.Target().State,
			Params:  tr.Params(),
		}
		if err := tr.Err(); err != nil {
			evt.Kind = transition.KindOf(err).String()
			evt.Error = err.Error()
		}
		data, err := json.Marshal(evt)
		if err != nil {
			return nil, err
		}
		s.streams.Broadcast(sessionID, string(data))
		return nil, nil
	}
	if _, err := router.OnSuccess(transition.Criteria{}, publish, transition.WithHookName("httpapi.events")); err != nil {
		s.logger.Error("failed to attach success observer", "session_id", sessionID, "err", err)
	}
	if _, err := router.OnError(transition.Criteria{}, publish, transition.WithHookName("httpapi.events")); err != nil {
		s.logger.Error("failed to attach error observer", "session_id", sessionID, "err", err)
	}
}

// persist saves the router's committed position under the session ID.
// Persistence failures are logged, never surfaced to the client: the
// navigation itself already succeeded.
func (s *Server) persist(ctx context.Context, sessionID string, router *switchback.Router) {
	cur := router.Current()
	terminal := cur.Terminal()
	if terminal == nil {
		return
	}
	snap := ports.Snapshot{
		State:   terminal.Name(),
		Params:  cur.Params(),
		SavedAt: time.Now().UTC(),
	}
	if err := s.sessions.Save(ctx, sessionID, snap); err != nil {
		s.logger.Warn("failed to persist session", "session_id", sessionID, "err", err)
	}
}
