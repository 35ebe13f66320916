// Package debounce suppresses duplicate processing of the same
// (event-kind, path) pair within a time window. Editors and sync tools tend
// to fire bursts of identical notifications for a single logical change.
package debounce

import "time"

// DefaultWindow is the policy default between two accepted occurrences of
// the same (kind, path) pair.
const DefaultWindow = 10 * time.Second

type key struct {
	kind string
	path string
}

// Gate records the last accepted timestamp per (kind, path). It is a pure
// data structure: no background expiry runs, stale entries are harmless, and
// the caller is expected to be a single goroutine.
type Gate struct {
	window time.Duration
	last   map[key]time.Time
}

// NewGate creates a Gate with the given window; zero or negative means
// DefaultWindow.
func NewGate(window time.Duration) *Gate {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Gate{
		window: window,
		last:   make(map[key]time.Time),
	}
}

// Window returns the configured debounce window.
func (g *Gate) Window() time.Duration {
	return g.window
}

// Admit reports whether an event of the given kind for path should be
// processed at time now. It records now only when admitting; a suppressed
// event does not extend the window.
func (g *Gate) Admit(kind, path string, now time.Time) bool {
	k := key{kind: kind, path: path}
	if last, ok := g.last[k]; ok && now.Sub(last) < g.window {
		return false
	}
	g.last[k] = now
	return true
}

// Clear drops every kind recorded for path. Called when a path is known to
// no longer exist (the source side of a rename) so a later reuse of the same
// path is not spuriously suppressed.
func (g *Gate) Clear(path string) {
	for k := range g.last {
		if k.path == path {
			delete(g.last, k)
		}
	}
}

// Len returns the number of tracked (kind, path) pairs.
func (g *Gate) Len() int {
	return len(g.last)
}
