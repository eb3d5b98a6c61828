package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
)

// StreamManager fans settled-transition events out to the SSE
// subscribers of each session.
type StreamManager struct {
	logger *slog.Logger

	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{}
}

// NewStreamManager builds an empty StreamManager. A nil logger falls
// back to slog.Default.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamManager{
		logger:      logger,
		subscribers: make(map[string]map[chan<- string]struct{}),
	}
}

// Subscribe registers a subscriber for the session's events. The
// returned cancel func closes the channel and drops the registration.
func (sm *StreamManager) Subscribe(sessionID string) (<-chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 10)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

// Broadcast delivers a message to every subscriber of the session.
// Slow clients with a full buffer lose the message instead of stalling
// the transition observer.
func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	for ch := range sm.subscribers[sessionID] {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("sse client buffer full, dropping event", "session_id", sessionID)
		}
	}
}

// handleSessionEvents streams the session's settled transitions as
// server-sent events. An optional status query parameter filters by
// outcome, e.g. status=error or status=success,error.
func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}
	sessionID := chi.URLParam(r, "sessionID")

	// Materialize the session router up front so its observers feed the
	// stream even when the subscriber connects before the first
	// transition.
	if _, err := s.routerFor(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("events: session router unavailable", "session_id", sessionID, "err", err)
		return
	}

	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	var statuses []string
	if raw := r.URL.Query().Get("status"); raw != "" {
		statuses = strings.Split(raw, ",")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(statuses) > 0 && !eventMatchesStatus(msg, statuses) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// eventMatchesStatus deserializes the event to check its status field.
// Unparseable events pass through rather than vanish.
func eventMatchesStatus(msg string, statuses []string) bool {
	var evt transitionEvent
	if err := json.Unmarshal([]byte(msg), &evt); err != nil {
		return true
	}
	for _, want := range statuses {
		if strings.TrimSpace(want) == evt.Status {
			return true
		}
	}
	return false
}

// handleWatchEvents streams state definition reloads as server-sent
// events. It requires a loader that supports watching.
func (s *Server) handleWatchEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		return
	}

	events, err := s.blueprint.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: reload\n\n")
			flusher.Flush()
		}
	}
}
