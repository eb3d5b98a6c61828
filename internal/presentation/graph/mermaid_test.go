package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/switchback/internal/presentation/graph"
	"github.com/aretw0/switchback/pkg/resolve"
	"github.com/aretw0/switchback/pkg/state"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		states   []*state.State
		overlay  *graph.PathOverlay
		contains []string
	}{
		{
			name: "Root State Shape",
			states: []*state.State{
				{Name: "app"},
			},
			contains: []string{
				`app(("app"))`,
			},
		},
		{
			name: "Resolving State Shape",
			states: []*state.State{
				{Name: "app"},
				{Name: "app.users", Resolves: []resolve.Declaration{resolve.Static("roster", nil)}},
			},
			contains: []string{
				`app_users[["app.users"]]`,
				"app --> app_users",
			},
		},
		{
			name: "URL Annotation",
			states: []*state.State{
				{Name: "app"},
				{Name: "app.users", URL: "/users"},
			},
			contains: []string{
				`app_users["app.users <br/> /users"]`,
			},
		},
		{
			name: "ID Sanitization",
			states: []*state.State{
				{Name: "hyphen-ated"},
				{Name: "hyphen-ated.child"},
			},
			contains: []string{
				`hyphen_ated(("hyphen-ated"))`,
				`hyphen_ated --> hyphen_ated_child`,
			},
		},
		{
			name: "Explicit Parent Edge",
			states: []*state.State{
				{Name: "app"},
				{Name: "detached", Parent: "app"},
			},
			contains: []string{
				"app --> detached",
			},
		},
		{
			name: "Overlay Styles",
			states: []*state.State{
				{Name: "app"},
				{Name: "app.users"},
				{Name: "app.users.detail"},
			},
			overlay: &graph.PathOverlay{
				ActivePath: []string{"app", "app.users", "app.users.detail"},
			},
			contains: []string{
				"class app active;",
				"class app_users active;",
				"class app_users_detail current;",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(tt.states, tt.overlay)
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("GenerateMermaid() = \n%v\nWant substring: %v", got, want)
				}
			}
		})
	}
}

func TestGenerateMermaid_NoOverlay(t *testing.T) {
	got := graph.GenerateMermaid([]*state.State{{Name: "app"}}, nil)
	if strings.Contains(got, "classDef") {
		t.Errorf("Expected no overlay styles, got:\n%v", got)
	}
}
