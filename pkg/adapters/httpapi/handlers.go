package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aretw0/switchback/internal/presentation/graph"
	"github.com/aretw0/switchback/pkg/ports"
	"github.com/aretw0/switchback/pkg/transition"
)

// handleTransition runs a navigation for the session and reports the
// attempt that settled last, redirects already followed.
func (s *Server) handleTransition(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("transition: invalid request body", "session_id", sessionID, "err", err)
		return
	}
	if body.Target == "" && body.URL == "" {
		http.Error(w, "Missing target state or url", http.StatusBadRequest)
		return
	}

	router, err := s.routerFor(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("transition: session router unavailable", "session_id", sessionID, "err", err)
		return
	}

	var tr *transition.Transition
	if body.Target != "" {
		var opts []transition.TargetOption
		if body.Reload {
			opts = append(opts, transition.WithReload())
		}
		tr, err = router.Go(r.Context(), body.Target, body.Params, opts...)
	} else {
		tr, err = router.GoURL(r.Context(), body.URL)
	}
	if err != nil {
		s.writeJSON(w, statusForError(err), newTransitionResponse(tr, err))
		return
	}

	s.persist(r.Context(), sessionID, router)
	s.writeJSON(w, http.StatusOK, newTransitionResponse(tr, nil))
}

// handleGetSession reports the session's position: the live router when
// one is resident, otherwise the persisted snapshot.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if router, ok := s.liveRouter(sessionID); ok {
		cur := router.Current()
		resp := sessionResponse{
			ID:     sessionID,
			Live:   true,
			Path:   cur.Names(),
			Params: cur.Params(),
		}
		if terminal := cur.Terminal(); terminal != nil {
			resp.State = terminal.Name()
		}
		s.writeJSON(w, http.StatusOK, resp)
		return
	}

	snap, err := s.sessions.Load(r.Context(), sessionID)
	if errors.Is(err, ports.ErrSnapshotNotFound) {
		http.Error(w, "Session not found", http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("session load failed", "session_id", sessionID, "err", err)
		return
	}

	resp := sessionResponse{
		ID:      sessionID,
		State:   snap.State,
		Params:  snap.Params,
		SavedAt: &snap.SavedAt,
	}
	// The snapshot stores only the leaf; the ancestor chain comes from
	// the definitions.
	if chain, err := s.blueprint.Tree().PathTo(snap.State); err == nil {
		names := make([]string, len(chain))
		for i, st := range chain {
			names[i] = st.Name
		}
		resp.Path = names
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// handleDeleteSession drops the live router and the persisted snapshot.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	if err := s.sessions.Delete(r.Context(), sessionID); err != nil && !errors.Is(err, ports.ErrSnapshotNotFound) {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("session delete failed", "session_id", sessionID, "err", err)
		return
	}
	s.dropRouter(sessionID)
	w.WriteHeader(http.StatusNoContent)
}

// handleListSessions lists the session IDs known to the snapshot store.
func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.sessions.List(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("session list failed", "err", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, map[string][]string{"sessions": ids})
}

// handleStates lists the registered state definitions.
func (s *Server) handleStates(w http.ResponseWriter, r *http.Request) {
	defs := s.blueprint.States()
	out := make([]stateInfo, len(defs))
	for i, st := range defs {
		out[i] = newStateInfo(st)
	}
	s.writeJSON(w, http.StatusOK, out)
}

// handleGraph renders the state tree as a Mermaid diagram. An optional
// session query parameter highlights that session's active path.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.PathOverlay
	if sid := r.URL.Query().Get("session"); sid != "" {
		if router, ok := s.liveRouter(sid); ok {
			if names := router.Current().Names(); len(names) > 0 {
				overlay = &graph.PathOverlay{ActivePath: names}
			}
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(s.blueprint.States(), overlay))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "switchback-http",
		"version": s.version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}
