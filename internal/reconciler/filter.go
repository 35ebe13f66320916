package reconciler

import (
	"path/filepath"
	"strings"
)

// Naming patterns recognized by the exclusion policy.
const (
	unnamedPrefix = "Untitled"
	backupMark    = "~"
)

// Editors and sync tools label duplicated files with a conflict marker;
// both the English and the CJK variant show up in real workspaces.
var conflictMarkers = []string{"conflicted copy", "冲突文件"}

// Filter decides which paths the reconciler is willing to touch. Each skip
// rule is independently toggleable configuration.
type Filter struct {
	Extension          string // document extension including the dot, e.g. ".md"
	SkipUnnamedPrefix  bool   // skip files named "Untitled..."
	SkipConflictMarker bool   // skip files carrying a conflict marker
	SkipBackupSuffix   bool   // skip backup files like "note~.md"
}

// DefaultFilter returns the policy used when nothing is configured: Markdown
// documents with all three skip rules on.
func DefaultFilter() Filter {
	return Filter{
		Extension:          ".md",
		SkipUnnamedPrefix:  true,
		SkipConflictMarker: true,
		SkipBackupSuffix:   true,
	}
}

// Allow reports whether path should be processed. When it returns false,
// reason names the rule that matched, for the log line.
func (f Filter) Allow(path string) (bool, string) {
	name := filepath.Base(path)
	if !strings.HasSuffix(name, f.Extension) {
		return false, "extension"
	}
	if f.SkipBackupSuffix && strings.HasSuffix(name, backupMark+f.Extension) {
		return false, "backup suffix"
	}
	if f.SkipUnnamedPrefix && strings.HasPrefix(name, unnamedPrefix) {
		return false, "unnamed prefix"
	}
	if f.SkipConflictMarker {
		for _, marker := range conflictMarkers {
			if strings.Contains(name, marker) {
				return false, "conflict marker"
			}
		}
	}
	return true, ""
}
