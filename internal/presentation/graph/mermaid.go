package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/switchback/pkg/state"
)

// PathOverlay contains dynamic position data to visualize on the tree.
type PathOverlay struct {
	// ActivePath holds the committed path, root to leaf. Every state on
	// it is styled active; the leaf additionally as current.
	ActivePath []string
}

// GenerateMermaid produces a Mermaid flowchart of the state hierarchy.
// It applies semantic styling:
// - Root states: ((Circle))
// - States with resolvables: [[Subroutine]]
// - Default: [Rectangle]
// URL fragments are annotated inside the label. Overlay styles mark the
// active path when provided.
func GenerateMermaid(states []*state.State, overlay *PathOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")

	for _, st := range states {
		safeID := sanitizeMermaidID(st.Name)

		opener, closer := "[", "]"
		switch {
		case st.ParentName() == "":
			opener, closer = "((", "))" // Circle
		case len(st.Resolves) > 0:
			opener, closer = "[[", "]]" // Subroutine
		}

		label := st.Name
		if st.URL != "" {
			label = fmt.Sprintf("%s <br/> %s", st.Name, st.URL)
		}
		sb.WriteString(fmt.Sprintf("    %s%s\"%s\"%s\n", safeID, opener, label, closer))

		if parent := st.ParentName(); parent != "" {
			sb.WriteString(fmt.Sprintf("    %s --> %s\n", sanitizeMermaidID(parent), safeID))
		}
	}

	if overlay != nil && len(overlay.ActivePath) > 0 {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text for high contrast regardless of theme.
		sb.WriteString("    classDef active fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		for i, name := range overlay.ActivePath {
			safeID := sanitizeMermaidID(name)
			if safeID == "" {
				continue
			}
			if i == len(overlay.ActivePath)-1 {
				sb.WriteString(fmt.Sprintf("    class %s current;\n", safeID))
				continue
			}
			sb.WriteString(fmt.Sprintf("    class %s active;\n", safeID))
		}
	}

	return sb.String()
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	return s
}
