package reconciler

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/laomst/lmrc/internal/debounce"
	"github.com/laomst/lmrc/internal/header"
	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/workspace"
)

// watcherEnv sets up a workspace, index store, and running watcher.
func watcherEnv(t *testing.T) (recEnv, context.CancelFunc) {
	t.Helper()
	dir := t.TempDir()
	ws, err := workspace.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	store := pathindex.NewStore(ws, "", logger)
	rec := New(ws, store, debounce.NewGate(10*time.Second), Config{}, logger)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go func() { _ = rec.Watch(ctx) }()
	time.Sleep(100 * time.Millisecond)

	return recEnv{ws: ws, store: store, rec: rec}, cancel
}

// eventually polls fn every tick until it returns true or timeout elapses.
func eventually(t *testing.T, timeout, tick time.Duration, fn func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if fn() {
			return
		}
		time.Sleep(tick)
	}
	t.Error(msg)
}

func (e recEnv) indexedPath(serial string) string {
	idx, _ := e.store.Load()
	return idx[serial]
}

func (e recEnv) anyEntry() (string, string) {
	idx, _ := e.store.Load()
	for s, p := range idx {
		return s, p
	}
	return "", ""
}

func TestWatch_NewDocumentIndexed(t *testing.T) {
	e, _ := watcherEnv(t)

	_ = os.WriteFile(filepath.Join(e.ws.Root(), "new.md"), []byte("# New\n"), 0o644)

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, p := e.anyEntry()
		return p == "/new.md"
	}, "new document not indexed by watcher")

	content, err := e.ws.Read("new.md")
	if err != nil {
		t.Fatal(err)
	}
	if !header.Has(content) {
		t.Errorf("document did not receive a header: %q", content)
	}
}

func TestWatch_NewDirectorySwept(t *testing.T) {
	e, _ := watcherEnv(t)

	// Build the directory outside the workspace, then move it in whole.
	staging := t.TempDir()
	_ = os.MkdirAll(filepath.Join(staging, "docs"), 0o755)
	_ = os.WriteFile(filepath.Join(staging, "docs", "deep.md"), []byte("# Deep\n"), 0o644)
	if err := os.Rename(filepath.Join(staging, "docs"), filepath.Join(e.ws.Root(), "docs")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, p := e.anyEntry()
		return p == "/docs/deep.md"
	}, "document inside moved directory not indexed")
}

func TestWatch_DeleteRemovesEntry(t *testing.T) {
	e, _ := watcherEnv(t)

	_ = os.WriteFile(filepath.Join(e.ws.Root(), "del.md"), []byte("# Bye\n"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, p := e.anyEntry()
		return p == "/del.md"
	}, "precondition: document should be indexed")

	_ = os.Remove(filepath.Join(e.ws.Root(), "del.md"))

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		idx, _ := e.store.Load()
		return len(idx) == 0
	}, "deleted document still in index")
}

func TestWatch_RenameKeepsSerial(t *testing.T) {
	e, _ := watcherEnv(t)

	_ = os.WriteFile(filepath.Join(e.ws.Root(), "old.md"), []byte("# Rename\n"), 0o644)

	var s string
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		s, _ = e.anyEntry()
		return s != ""
	}, "precondition: document should be indexed")

	_ = os.MkdirAll(filepath.Join(e.ws.Root(), "sub"), 0o755)
	time.Sleep(200 * time.Millisecond) // let the new dir be watched
	if err := os.Rename(
		filepath.Join(e.ws.Root(), "old.md"),
		filepath.Join(e.ws.Root(), "sub", "renamed.md"),
	); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		return e.indexedPath(s) == "/sub/renamed.md"
	}, "rename did not carry the serial to the new path")

	idx, _ := e.store.Load()
	if len(idx) != 1 {
		t.Errorf("index = %v, want exactly one entry", idx)
	}
}

func TestWatch_RenameOutOfWorkspaceDeletes(t *testing.T) {
	e, _ := watcherEnv(t)

	_ = os.WriteFile(filepath.Join(e.ws.Root(), "leaving.md"), []byte("# Gone\n"), 0o644)
	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		_, p := e.anyEntry()
		return p == "/leaving.md"
	}, "precondition: document should be indexed")

	outside := t.TempDir()
	if err := os.Rename(filepath.Join(e.ws.Root(), "leaving.md"), filepath.Join(outside, "leaving.md")); err != nil {
		t.Fatal(err)
	}

	eventually(t, 5*time.Second, 50*time.Millisecond, func() bool {
		idx, _ := e.store.Load()
		return len(idx) == 0
	}, "document moved out of the workspace should be unindexed")
}
