package api

import (
	"sort"

	"github.com/laomst/lmrc/internal/apperr"
	"github.com/laomst/lmrc/internal/journal"
	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/verifier"
	"github.com/laomst/lmrc/internal/workspace"
)

// Entry is one index row as served over the API.
type Entry struct {
	Serial string `json:"serial"`
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Service backs the admin API with read access to the index and the
// verification and journal facilities.
type Service struct {
	ws       *workspace.FS
	store    *pathindex.Store
	verifier *verifier.Verifier
	journal  *journal.DB // optional, nil when journaling is off
}

// NewService creates a Service. jrnl may be nil.
func NewService(ws *workspace.FS, store *pathindex.Store, v *verifier.Verifier, jrnl *journal.DB) *Service {
	return &Service{ws: ws, store: store, verifier: v, journal: jrnl}
}

// List returns every index entry, sorted by path for stable output.
func (s *Service) List() ([]Entry, error) {
	idx, err := s.store.Load()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(idx))
	for serial, rel := range idx {
		out = append(out, Entry{Serial: serial, Path: rel, Exists: s.entryExists(rel)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

// Lookup resolves one serial to its index entry.
func (s *Service) Lookup(serial string) (Entry, error) {
	idx, err := s.store.Load()
	if err != nil {
		return Entry{}, err
	}
	rel, ok := idx[serial]
	if !ok {
		return Entry{}, apperr.ErrDocumentNotFound
	}
	return Entry{Serial: serial, Path: rel, Exists: s.entryExists(rel)}, nil
}

// Verify runs one verification pass and returns its report.
func (s *Service) Verify() (verifier.Report, error) {
	return s.verifier.Run()
}

// Journal returns the most recent journal entries. Without a journal it
// reports apperr.ErrJournalDisabled.
func (s *Service) Journal(limit int) ([]journal.Entry, error) {
	if s.journal == nil {
		return nil, apperr.ErrJournalDisabled
	}
	return s.journal.Recent(limit)
}

func (s *Service) entryExists(rel string) bool {
	abs, err := s.ws.FromRooted(rel)
	if err != nil {
		return false
	}
	return s.ws.Exists(abs)
}
