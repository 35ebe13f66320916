// Package pathindex persists the serial → document-path mapping for a
// workspace as a single JSON object file.
package pathindex

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/laomst/lmrc/internal/apperr"
	"github.com/laomst/lmrc/internal/workspace"
)

// DefaultFile is the workspace-relative location of the index file.
const DefaultFile = ".index/path_index.json"

// Index maps serials to slash-rooted relative document paths.
type Index map[string]string

// Has reports whether a serial is already allocated.
func (idx Index) Has(serial string) bool {
	_, ok := idx[serial]
	return ok
}

// SerialsForPath returns every serial whose stored path equals rel. After
// drift more than one entry can point at the same path.
func (idx Index) SerialsForPath(rel string) []string {
	var out []string
	for s, p := range idx {
		if p == rel {
			out = append(out, s)
		}
	}
	return out
}

// Store reads and writes the index file. All mutating operations are
// load → mutate → save under a single mutex, which is what makes the
// read-modify-write safe when the verifier runs next to the reconciler.
type Store struct {
	mu     sync.Mutex
	ws     *workspace.FS
	file   string // workspace-relative index file path
	logger *slog.Logger
}

// NewStore creates a Store for the given workspace. file is the
// workspace-relative index location; empty means DefaultFile.
func NewStore(ws *workspace.FS, file string, logger *slog.Logger) *Store {
	if file == "" {
		file = DefaultFile
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{ws: ws, file: file, logger: logger}
}

// File returns the workspace-relative index file path.
func (s *Store) File() string {
	return s.file
}

// Load returns the current index. A missing file yields an empty index with
// no error; a malformed file yields an empty index plus ErrMalformedIndex so
// callers can log the recovery. Neither is fatal.
func (s *Store) Load() (Index, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (Index, error) {
	content, err := s.ws.Read(s.file)
	if err != nil {
		if errors.Is(err, apperr.ErrDocumentNotFound) {
			return Index{}, nil
		}
		return Index{}, fmt.Errorf("pathindex: read: %w", err)
	}
	var idx Index
	if err := json.Unmarshal([]byte(content), &idx); err != nil {
		return Index{}, fmt.Errorf("pathindex: %w: %v", apperr.ErrMalformedIndex, err)
	}
	if idx == nil {
		idx = Index{}
	}
	return idx, nil
}

// Save writes the whole index atomically (temp file → rename via the
// workspace layer).
func (s *Store) Save(idx Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(idx)
}

func (s *Store) save(idx Index) error {
	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("pathindex: marshal: %w", err)
	}
	if err := s.ws.Write(s.file, string(data)+"\n"); err != nil {
		return fmt.Errorf("pathindex: save: %w", err)
	}
	return nil
}

// Update runs fn against the freshest index under the store lock and
// persists the result when fn reports a change. A malformed index file is
// recovered as empty and logged.
func (s *Store) Update(fn func(idx Index) (changed bool)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, err := s.load()
	if err != nil {
		if !errors.Is(err, apperr.ErrMalformedIndex) {
			return err
		}
		s.logger.Warn("pathindex: recovering from malformed index", slog.String("error", err.Error()))
	}
	if !fn(idx) {
		return nil
	}
	return s.save(idx)
}

// Upsert stores or overwrites the entry for serial, pointing at the
// document's slash-rooted relative path, and persists.
func (s *Store) Upsert(serial, docPath string) error {
	rel, err := s.ws.Rel(docPath)
	if err != nil {
		return err
	}
	return s.Update(func(idx Index) bool {
		if idx[serial] == rel {
			return false
		}
		idx[serial] = rel
		return true
	})
}

// RemoveByPath deletes every entry whose stored path equals the document's
// relative path and persists if any were removed. It returns the serials
// that were dropped.
func (s *Store) RemoveByPath(docPath string) ([]string, error) {
	rel, err := s.ws.Rel(docPath)
	if err != nil {
		return nil, err
	}
	var removed []string
	err = s.Update(func(idx Index) bool {
		removed = idx.SerialsForPath(rel)
		for _, serial := range removed {
			delete(idx, serial)
		}
		return len(removed) > 0
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}
