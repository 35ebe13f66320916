// Package testutil provides shared test helpers for setting up workspaces
// and index stores.
package testutil

import (
	"log/slog"
	"os"
	"testing"

	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/workspace"
)

// Logger returns a quiet logger for tests.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// TestWorkspace creates a temporary workspace directory.
func TestWorkspace(t *testing.T) *workspace.FS {
	t.Helper()
	ws, err := workspace.NewFS(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return ws
}

// TestStore creates an index store over a fresh temporary workspace.
func TestStore(t *testing.T) (*workspace.FS, *pathindex.Store) {
	t.Helper()
	ws := TestWorkspace(t)
	return ws, pathindex.NewStore(ws, "", Logger())
}
