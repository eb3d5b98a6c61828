package resolve

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownToken is returned when a value is requested for a token no
// node on the path declares.
var ErrUnknownToken = errors.New("unknown resolvable")

// ErrUnknownDependency is returned when a declaration depends on a token
// that neither its own node nor any ancestor declares.
var ErrUnknownDependency = errors.New("unknown resolve dependency")

// ErrDuplicateToken is returned when a node declares the same token twice.
// Shadowing an ancestor's token is allowed; duplicating a sibling is not.
var ErrDuplicateToken = errors.New("duplicate resolvable token")

// ErrNilProvider is returned when a declaration has no provider function.
var ErrNilProvider = errors.New("resolvable has no provider")

// ErrUnknownNode is returned when a node is passed to a graph it does not
// belong to.
var ErrUnknownNode = errors.New("node is not part of this resolve graph")

// CycleError reports a dependency cycle among resolvables. Chain holds
// the tokens along the cycle, first token repeated at the end.
type CycleError struct {
	Chain []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("resolve cycle: %s", strings.Join(e.Chain, " -> "))
}
