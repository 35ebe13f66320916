package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/laomst/lmrc/internal/apperr"
)

func tempWorkspace(t *testing.T) *FS {
	t.Helper()
	dir := t.TempDir()
	ws, err := NewFS(dir)
	if err != nil {
		t.Fatalf("NewFS: %v", err)
	}
	return ws
}

func TestNewFS_MissingDir(t *testing.T) {
	if _, err := NewFS(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected error for missing root")
	}
}

func TestAbs_RejectsEscape(t *testing.T) {
	ws := tempWorkspace(t)
	cases := []string{
		"../outside.md",
		"sub/../../outside.md",
		"/etc/passwd",
	}
	for _, c := range cases {
		if _, err := ws.Abs(c); !errors.Is(err, apperr.ErrOutsideWorkspace) {
			t.Errorf("Abs(%q): err = %v, want ErrOutsideWorkspace", c, err)
		}
	}
}

func TestRel_SlashRooted(t *testing.T) {
	ws := tempWorkspace(t)
	rel, err := ws.Rel(filepath.Join(ws.Root(), "sub", "note.md"))
	if err != nil {
		t.Fatalf("Rel: %v", err)
	}
	if rel != "/sub/note.md" {
		t.Errorf("rel = %q, want /sub/note.md", rel)
	}
}

func TestFromRooted_RoundTrip(t *testing.T) {
	ws := tempWorkspace(t)
	abs, err := ws.FromRooted("/sub/note.md")
	if err != nil {
		t.Fatalf("FromRooted: %v", err)
	}
	if abs != filepath.Join(ws.Root(), "sub", "note.md") {
		t.Errorf("abs = %q", abs)
	}
}

func TestRootURL_Depth(t *testing.T) {
	ws := tempWorkspace(t)
	cases := []struct {
		path string
		want string
	}{
		{"note.md", ""},
		{"sub/note.md", "../"},
		{"a/b/note.md", "../../"},
		{"a/b/c/note.md", "../../../"},
	}
	for _, c := range cases {
		got, err := ws.RootURL(c.path)
		if err != nil {
			t.Fatalf("RootURL(%q): %v", c.path, err)
		}
		if got != c.want {
			t.Errorf("RootURL(%q) = %q, want %q", c.path, got, c.want)
		}
	}
}

func TestWriteAndRead(t *testing.T) {
	ws := tempWorkspace(t)
	content := "---\nserial: a1b2c3d4\n---\n\nbody\n"
	if err := ws.Write("sub/note.md", content); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := ws.Read("sub/note.md")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != content {
		t.Errorf("content = %q", got)
	}
	// No temp files left behind.
	entries, _ := os.ReadDir(filepath.Join(ws.Root(), "sub"))
	if len(entries) != 1 {
		t.Errorf("expected exactly one file after atomic write, got %d", len(entries))
	}
}

func TestRead_NotFound(t *testing.T) {
	ws := tempWorkspace(t)
	if _, err := ws.Read("missing.md"); !errors.Is(err, apperr.ErrDocumentNotFound) {
		t.Errorf("err = %v, want ErrDocumentNotFound", err)
	}
}

func TestList_FiltersByExtension(t *testing.T) {
	ws := tempWorkspace(t)
	_ = ws.Write("a.md", "a")
	_ = ws.Write("sub/b.md", "b")
	_ = ws.Write("sub/ignore.txt", "x")
	paths, err := ws.List(".md")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(paths) != 2 {
		t.Errorf("len = %d, want 2: %v", len(paths), paths)
	}
}

func TestRemoveDir(t *testing.T) {
	ws := tempWorkspace(t)
	_ = ws.Write(".assets/a/a1b2c3d4/img.png", "data")
	if err := ws.RemoveDir(".assets/a/a1b2c3d4"); err != nil {
		t.Fatalf("RemoveDir: %v", err)
	}
	if ws.Exists(".assets/a/a1b2c3d4/img.png") {
		t.Error("asset file should be gone")
	}
	if err := ws.RemoveDir("../elsewhere"); !errors.Is(err, apperr.ErrOutsideWorkspace) {
		t.Errorf("escape err = %v, want ErrOutsideWorkspace", err)
	}
}
