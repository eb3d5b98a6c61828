package tests

import (
	"context"
	"testing"

	"github.com/aretw0/switchback/pkg/ports"
)

// TreeLoaderContractTest is a reusable test suite that verifies if an adapter
// complies with ports.TreeLoader. expected maps state names to their parents
// ("" for roots).
func TreeLoaderContractTest(t *testing.T, loader ports.TreeLoader, expected map[string]string) {
	t.Helper()
	ctx := context.Background()

	states, err := loader.Load(ctx)
	if err != nil {
		t.Fatalf("unexpected error loading tree: %v", err)
	}

	if len(states) != len(expected) {
		t.Errorf("expected %d states, got %d", len(expected), len(states))
	}

	lookup := make(map[string]string)
	for _, s := range states {
		lookup[s.Name] = s.ParentName()
	}

	for name, parent := range expected {
		got, ok := lookup[name]
		if !ok {
			t.Errorf("state %s missing from load", name)
			continue
		}
		if got != parent {
			t.Errorf("state %s: expected parent %q, got %q", name, parent, got)
		}
	}
}
