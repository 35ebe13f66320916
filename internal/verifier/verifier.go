// Package verifier implements the out-of-band reconciliation pass that
// repairs drift between the index and the document tree. It never goes
// through the event path: one pass brings the index to exactly the
// serial → path relation observable by scanning headers.
package verifier

import (
	"log/slog"

	"github.com/laomst/lmrc/internal/header"
	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/workspace"
)

// Report summarizes one verification pass.
type Report struct {
	Verified  int `json:"verified"`  // entry matches the document's serial
	Corrected int `json:"corrected"` // entry re-keyed under the actual serial
	Relocated int `json:"relocated"` // entry path updated after a tree scan
	Removed   int `json:"removed"`   // entry dropped, no document carries it
}

// Verifier scans the index against the workspace.
type Verifier struct {
	ws     *workspace.FS
	store  *pathindex.Store
	ext    string
	logger *slog.Logger
}

// New creates a Verifier for documents with the given extension.
func New(ws *workspace.FS, store *pathindex.Store, ext string, logger *slog.Logger) *Verifier {
	if ext == "" {
		ext = ".md"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{ws: ws, store: store, ext: ext, logger: logger}
}

// Run executes one full pass. The whole pass runs under the store lock so
// the reconciler cannot interleave its own read-modify-write.
func (v *Verifier) Run() (Report, error) {
	var report Report

	// Lazily built serial → rooted-path map from scanning every document
	// header. Only paid for when at least one entry needs relocation.
	var scanned map[string]string

	err := v.store.Update(func(idx pathindex.Index) bool {
		changed := false
		// Snapshot the keys: re-keying mutates the map mid-pass.
		keys := make([]string, 0, len(idx))
		for key := range idx {
			keys = append(keys, key)
		}
		for _, key := range keys {
			rel, ok := idx[key]
			if !ok {
				continue
			}
			abs, err := v.ws.FromRooted(rel)
			if err != nil {
				v.logger.Warn("verify: bad entry path", slog.String("serial", key), slog.String("path", rel))
				delete(idx, key)
				report.Removed++
				changed = true
				continue
			}

			actual := v.documentSerial(abs)
			switch {
			case actual == key:
				report.Verified++
				continue

			case actual != "":
				// The document is where the entry says, but carries a
				// different serial: re-key under what the document claims.
				delete(idx, key)
				idx[actual] = rel
				report.Corrected++
				changed = true
				v.logger.Info("verify: re-keyed entry",
					slog.String("old", key), slog.String("new", actual), slog.String("path", rel))

			default:
				// Path gone (or headerless): hunt the serial down in the
				// tree before giving the entry up.
				if scanned == nil {
					scanned = v.scanTree()
				}
				if found, ok := scanned[key]; ok {
					idx[key] = found
					report.Relocated++
					changed = true
					v.logger.Info("verify: relocated entry",
						slog.String("serial", key), slog.String("path", found))
				} else {
					delete(idx, key)
					report.Removed++
					changed = true
					v.logger.Info("verify: removed dangling entry",
						slog.String("serial", key), slog.String("path", rel))
				}
			}
		}
		return changed
	})
	if err != nil {
		return report, err
	}

	v.logger.Info("verify: pass complete",
		slog.Int("verified", report.Verified),
		slog.Int("corrected", report.Corrected),
		slog.Int("relocated", report.Relocated),
		slog.Int("removed", report.Removed))
	return report, nil
}

// documentSerial reads the header serial of the document at abs, or ""
// when the document is missing, unreadable, or headerless.
func (v *Verifier) documentSerial(abs string) string {
	content, err := v.ws.Read(abs)
	if err != nil {
		return ""
	}
	hdr, _, ok := header.Split(content)
	if !ok {
		return ""
	}
	return header.Serial(header.ParseFields(hdr))
}

// scanTree reads every document header in the workspace and returns the
// serial → rooted-path relation. Headerless documents are skipped; they stay
// un-indexed until a create event picks them up.
func (v *Verifier) scanTree() map[string]string {
	out := make(map[string]string)
	paths, err := v.ws.List(v.ext)
	if err != nil {
		v.logger.Warn("verify: tree scan failed", slog.String("error", err.Error()))
		return out
	}
	for _, abs := range paths {
		s := v.documentSerial(abs)
		if s == "" {
			continue
		}
		rel, err := v.ws.Rel(abs)
		if err != nil {
			continue
		}
		out[s] = rel
	}
	return out
}
