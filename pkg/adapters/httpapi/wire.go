package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/aretw0/switchback/pkg/state"
	"github.com/aretw0/switchback/pkg/transition"
)

// transitionRequest asks the session's router to navigate. Target names
// a state directly; URL goes through the router's URL matcher instead.
type transitionRequest struct {
	Target string         `json:"target,omitempty"`
	URL    string         `json:"url,omitempty"`
	Params map[string]any `json:"params,omitempty"`
	Reload bool           `json:"reload,omitempty"`
}

// transitionResponse reports a settled transition attempt.
type transitionResponse struct {
	ID        uint64         `json:"id,omitempty"`
	Status    string         `json:"status"`
	State     string         `json:"state,omitempty"`
	Params    map[string]any `json:"params,omitempty"`
	Path      []string       `json:"path,omitempty"`
	Redirects []string       `json:"redirects,omitempty"`
	Kind      string         `json:"kind,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// newTransitionResponse maps a transition and its outcome to the wire
// form. tr is nil when creation itself failed.
func newTransitionResponse(tr *transition.Transition, err error) transitionResponse {
	var resp transitionResponse
	if tr != nil {
		resp.ID = tr.ID()
		resp.Status = tr.Status().String()
		resp.State = tr.Target().State
		resp.Params = tr.Params()
		resp.Path = tr.To().Names()
		if chain := tr.RedirectChain(); len(chain) > 1 {
			resp.Redirects = chain
		}
	}
	if err != nil {
		resp.Kind = transition.KindOf(err).String()
		resp.Error = err.Error()
		if tr == nil {
			resp.Status = transition.StatusError.String()
			var terr *transition.Error
			if errors.As(err, &terr) {
				resp.State = terr.State
			}
		}
	}
	return resp
}

// statusForError maps a navigation error to an HTTP status. Same-state
// is a no-op rather than a failure, so it stays 200.
func statusForError(err error) int {
	switch transition.KindOf(err) {
	case transition.KindSameState:
		return http.StatusOK
	case transition.KindAborted, transition.KindSuperseded:
		return http.StatusConflict
	case transition.KindInvalidTransition:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// sessionResponse describes a session's position: the live router when
// one is resident in this process, otherwise the persisted snapshot.
type sessionResponse struct {
	ID      string         `json:"id"`
	State   string         `json:"state,omitempty"`
	Params  map[string]any `json:"params,omitempty"`
	Path    []string       `json:"path,omitempty"`
	Live    bool           `json:"live"`
	SavedAt *time.Time     `json:"saved_at,omitempty"`
}

// stateInfo is the wire form of a state definition.
type stateInfo struct {
	Name    string         `json:"name"`
	Parent  string         `json:"parent,omitempty"`
	URL     string         `json:"url,omitempty"`
	Doc     string         `json:"doc,omitempty"`
	Params  []paramInfo    `json:"params,omitempty"`
	Resolve []string       `json:"resolve,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

type paramInfo struct {
	Name     string `json:"name"`
	Optional bool   `json:"optional,omitempty"`
	Dynamic  bool   `json:"dynamic,omitempty"`
	Default  any    `json:"default,omitempty"`
}

func newStateInfo(st *state.State) stateInfo {
	info := stateInfo{
		Name:   st.Name,
		Parent: st.ParentName(),
		URL:    st.URL,
		Doc:    st.Doc,
		Data:   st.Data,
	}
	for _, p := range st.Params {
		info.Params = append(info.Params, paramInfo{
			Name:     p.Name,
			Optional: p.Optional,
			Dynamic:  p.Dynamic,
			Default:  p.Default,
		})
	}
	for _, d := range st.Resolves {
		info.Resolve = append(info.Resolve, d.Token)
	}
	return info
}

// transitionEvent is the SSE payload for a settled transition.
type transitionEvent struct {
	Session string         `json:"session"`
	Status  string         `json:"status"`
	State   string         `json:"state"`
	Params  map[string]any `json:"params,omitempty"`
	Kind    string         `json:"kind,omitempty"`
	Error   string         `json:"error,omitempty"`
}
