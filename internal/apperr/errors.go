// Package apperr defines the sentinel errors shared across lmrc components.
package apperr

import "errors"

var (
	// ErrOutsideWorkspace is returned when a path does not resolve under the
	// workspace root. Operations fail rather than reinterpret the path.
	ErrOutsideWorkspace = errors.New("path outside workspace")

	// ErrDocumentNotFound is returned when a single-file operation targets a
	// document that does not exist.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrMalformedIndex signals that the index file could not be parsed.
	// Callers recover by treating the index as empty; the broken file is
	// overwritten on the next save.
	ErrMalformedIndex = errors.New("malformed index file")

	// ErrJournalDisabled is returned by journal queries when the process was
	// started without a journal database.
	ErrJournalDisabled = errors.New("journal disabled")
)
