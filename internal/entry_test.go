package internal

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestBuildComponents_MissingWorkspaceIsFatal(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Workspace.Path = filepath.Join(t.TempDir(), "missing", "workspace")

	_, err := buildComponents(cfg, NewLogger(cfg.App), nil)
	if err == nil {
		t.Fatal("missing workspace path should fail startup")
	}
	// The path must not be conjured into existence as a side effect.
	if _, statErr := os.Stat(cfg.Workspace.Path); !errors.Is(statErr, fs.ErrNotExist) {
		t.Errorf("workspace path was created during failed startup: %v", statErr)
	}
}

func TestBuildComponents_FileAsWorkspaceIsFatal(t *testing.T) {
	cfg := NewDefaultConfig()
	file := filepath.Join(t.TempDir(), "not-a-dir")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg.Workspace.Path = file

	if _, err := buildComponents(cfg, NewLogger(cfg.App), nil); err == nil {
		t.Fatal("regular file as workspace path should fail startup")
	}
}

func TestRunIndex_MissingWorkspaceIsFatal(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.App.LogFormat = LogFormatJSON
	cfg.Workspace.Path = filepath.Join(t.TempDir(), "gone")

	if err := RunIndex(context.Background(), cfg, nil); err == nil {
		t.Fatal("RunIndex over a missing workspace should fail")
	}
}
