// Package workspace defines the workspace file-system layer. Every path that
// enters the system is resolved against the workspace root and rejected when
// it escapes it.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/laomst/lmrc/internal/apperr"
)

// FS provides root-contained file operations for a workspace directory.
type FS struct {
	root string // absolute path to the workspace root
}

// NewFS creates an FS rooted at the given directory, which must exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("workspace: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute workspace root.
func (f *FS) Root() string {
	return f.root
}

// Abs resolves path (absolute, or relative to the root) to an absolute path
// and verifies it stays inside the workspace. Containment is checked
// lexically after cleaning; symlinks are not chased.
func (f *FS) Abs(path string) (string, error) {
	cleaned := filepath.Clean(path)
	if !filepath.IsAbs(cleaned) {
		cleaned = filepath.Join(f.root, cleaned)
	}
	if cleaned != f.root && !strings.HasPrefix(cleaned, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("workspace: %w: %s", apperr.ErrOutsideWorkspace, path)
	}
	return cleaned, nil
}

// Rel returns the slash-rooted path of a document relative to the workspace,
// always beginning with "/" and using forward slashes.
func (f *FS) Rel(path string) (string, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return "", err
	}
	rel, err := filepath.Rel(f.root, abs)
	if err != nil {
		return "", fmt.Errorf("workspace: rel: %w", err)
	}
	return "/" + filepath.ToSlash(rel), nil
}

// FromRooted converts a slash-rooted relative path (as stored in the index)
// back to an absolute path. The path is containment-checked like any other.
func (f *FS) FromRooted(rooted string) (string, error) {
	return f.Abs(filepath.FromSlash(strings.TrimPrefix(rooted, "/")))
}

// RootURL returns the "../" climb string encoding the directory depth of the
// document below the workspace root: "" for a document directly in the root,
// "../" for one level down, and so on.
func (f *FS) RootURL(path string) (string, error) {
	rel, err := f.Rel(path)
	if err != nil {
		return "", err
	}
	dir := strings.TrimPrefix(rel[:strings.LastIndex(rel, "/")], "/")
	if dir == "" {
		return "", nil
	}
	return strings.Repeat("../", strings.Count(dir, "/")+1), nil
}

// Read returns the document content as UTF-8 text.
func (f *FS) Read(path string) (string, error) {
	abs, err := f.Abs(path)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("workspace: %w: %s", apperr.ErrDocumentNotFound, path)
		}
		return "", fmt.Errorf("workspace: read %s: %w", path, err)
	}
	return string(data), nil
}

// Exists reports whether path exists as a regular file inside the workspace.
func (f *FS) Exists(path string) bool {
	abs, err := f.Abs(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(abs)
	return err == nil && info.Mode().IsRegular()
}

// Write atomically replaces the file at path: tmp file → fsync → rename.
// Parent directories are created as needed.
func (f *FS) Write(path string, content string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("workspace: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".lmrc-tmp-*")
	if err != nil {
		return fmt.Errorf("workspace: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.WriteString(content); err != nil {
		return fmt.Errorf("workspace: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("workspace: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("workspace: close temp: %w", err)
	}
	if err := os.Rename(tmpName, abs); err != nil {
		return fmt.Errorf("workspace: rename: %w", err)
	}
	success = true
	return nil
}

// List walks the workspace and returns the absolute path of every regular
// file whose name ends with ext.
func (f *FS) List(ext string) ([]string, error) {
	var out []string
	err := filepath.WalkDir(f.root, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ext) {
			return nil
		}
		out = append(out, p)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("workspace: list: %w", err)
	}
	return out, nil
}

// RemoveDir deletes a directory subtree inside the workspace. Used for the
// opt-in asset cleanup policy; refuses to remove the root itself.
func (f *FS) RemoveDir(path string) error {
	abs, err := f.Abs(path)
	if err != nil {
		return err
	}
	if abs == f.root {
		return fmt.Errorf("workspace: refusing to remove root")
	}
	if err := os.RemoveAll(abs); err != nil {
		return fmt.Errorf("workspace: remove dir %s: %w", path, err)
	}
	return nil
}
