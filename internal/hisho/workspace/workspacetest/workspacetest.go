// Package workspacetest builds throwaway workspaces for collaborator tests.
package workspacetest

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/bdobrica/Hisho/internal/hisho/store"
	"github.com/bdobrica/Hisho/internal/hisho/workspace"
)

// Owner is the user the seeded rows belong to.
const Owner = "@alice:example.com"

// Now is the fixed clock: Monday, 2 March 2026, noon UTC.
var Now = time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

// New returns an empty workspace on a temp-file database with the clock
// pinned to Now.
func New(t testing.TB) *workspace.Workspace {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "hisho-svc-test-*.db")
	if err != nil {
		t.Fatalf("create temp db file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("store.New: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	w := workspace.New(s)
	w.SetClock(func() time.Time { return Now })
	return w
}

// Seeded returns a workspace holding the demo fixture for Owner, resolved in
// UTC.
func Seeded(t testing.TB) *workspace.Workspace {
	t.Helper()
	w := New(t)
	fx, err := workspace.DemoFixture()
	if err != nil {
		t.Fatalf("DemoFixture: %v", err)
	}
	if _, err := w.Seed(context.Background(), Owner, fx, time.UTC); err != nil {
		t.Fatalf("Seed: %v", err)
	}
	return w
}
