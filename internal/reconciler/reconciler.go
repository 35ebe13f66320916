// Package reconciler implements the state machine that turns raw filesystem
// events into document header mutations and index updates. One event is
// handled to completion before the next; the index store's read-modify-write
// depends on that discipline.
package reconciler

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/laomst/lmrc/internal/debounce"
	"github.com/laomst/lmrc/internal/header"
	"github.com/laomst/lmrc/internal/pathindex"
	"github.com/laomst/lmrc/internal/serial"
	"github.com/laomst/lmrc/internal/workspace"
)

// Event kinds, also used as debounce keys and journal ops.
const (
	KindCreated  = "created"
	KindMoved    = "moved"
	KindDeleted  = "deleted"
	KindModified = "modified"
)

// Recorder receives an audit record for every applied mutation.
// Implementations must tolerate being called from the reconciling goroutine
// only; a nil Recorder disables journaling.
type Recorder interface {
	Record(op, serial, path, detail string) error
}

// EventCallback is invoked after each applied mutation, for observability
// surfaces such as the SSE broker.
type EventCallback func(kind, serial, relPath string)

// Config carries the policy knobs for a Reconciler.
type Config struct {
	Filter               Filter
	ShardPrefixLen       int  // 1 or 2 characters of the serial
	RemoveAssetsOnDelete bool // opt-in cleanup of .assets/<shard>/<serial>
	Journal              Recorder
	Callback             EventCallback
}

// Reconciler coordinates the header codec, serial allocator, index store and
// debounce gate for a single workspace.
type Reconciler struct {
	ws     *workspace.FS
	store  *pathindex.Store
	gate   *debounce.Gate
	cfg    Config
	logger *slog.Logger

	// recentlyMoved suppresses the created event watchers emit for the
	// destination of a move. Keyed by absolute path.
	recentlyMoved map[string]time.Time

	now func() time.Time
}

// New creates a Reconciler. gate may be shared with nobody else: the
// reconciler assumes it is the only writer.
func New(ws *workspace.FS, store *pathindex.Store, gate *debounce.Gate, cfg Config, logger *slog.Logger) *Reconciler {
	if cfg.Filter.Extension == "" {
		cfg.Filter = DefaultFilter()
	}
	if cfg.ShardPrefixLen < 1 || cfg.ShardPrefixLen > 2 {
		cfg.ShardPrefixLen = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Reconciler{
		ws:            ws,
		store:         store,
		gate:          gate,
		cfg:           cfg,
		logger:        logger,
		recentlyMoved: make(map[string]time.Time),
		now:           time.Now,
	}
}

// HandleCreated processes a create notification for path.
func (r *Reconciler) HandleCreated(path string) error {
	if ok, reason := r.cfg.Filter.Allow(path); !ok {
		r.logger.Debug("created: skipped", slog.String("path", path), slog.String("reason", reason))
		return nil
	}

	now := r.now()

	// A move usually fires a created event for its destination as well;
	// drop it instead of reprocessing the document.
	if movedAt, ok := r.recentlyMoved[path]; ok && now.Sub(movedAt) < r.gate.Window() {
		delete(r.recentlyMoved, path)
		r.logger.Debug("created: suppressed after move", slog.String("path", path))
		return nil
	}
	r.expireMovedMarkers(now)

	if !r.gate.Admit(KindCreated, path, now) {
		r.logger.Debug("created: debounced", slog.String("path", path))
		return nil
	}

	changed, s, err := r.EnsureDocument(path)
	if err != nil {
		r.logger.Warn("created: failed", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	r.logger.Info("created: reconciled",
		slog.String("path", path),
		slog.String("serial", s),
		slog.Bool("rewritten", changed))
	r.emit(KindCreated, s, path, fmt.Sprintf("rewritten=%t", changed))
	return nil
}

// HandleMoved processes a move notification. The source side loses its index
// entries and debounce records; the destination runs the same
// ensure-header-and-index logic as a create, which recomputes the
// path-derived fields while keeping the serial.
func (r *Reconciler) HandleMoved(src, dst string) error {
	if ok, reason := r.cfg.Filter.Allow(dst); !ok {
		r.logger.Debug("moved: skipped", slog.String("dst", dst), slog.String("reason", reason))
		return nil
	}

	if _, err := r.store.RemoveByPath(src); err != nil {
		r.logger.Warn("moved: remove old entries failed", slog.String("src", src), slog.String("error", err.Error()))
	}
	r.gate.Clear(src)
	r.recentlyMoved[dst] = r.now()

	changed, s, err := r.EnsureDocument(dst)
	if err != nil {
		r.logger.Warn("moved: failed", slog.String("dst", dst), slog.String("error", err.Error()))
		return err
	}
	r.logger.Info("moved: reconciled",
		slog.String("src", src),
		slog.String("dst", dst),
		slog.String("serial", s),
		slog.Bool("rewritten", changed))
	r.emit(KindMoved, s, dst, "from "+src)
	return nil
}

// HandleDeleted removes every index entry pointing at path. The on-disk
// header is gone with the document; asset directories are only removed under
// the explicit opt-in policy.
func (r *Reconciler) HandleDeleted(path string) error {
	if ok, reason := r.cfg.Filter.Allow(path); !ok {
		r.logger.Debug("deleted: skipped", slog.String("path", path), slog.String("reason", reason))
		return nil
	}
	if !r.gate.Admit(KindDeleted, path, r.now()) {
		r.logger.Debug("deleted: debounced", slog.String("path", path))
		return nil
	}

	removed, err := r.store.RemoveByPath(path)
	if err != nil {
		r.logger.Warn("deleted: failed", slog.String("path", path), slog.String("error", err.Error()))
		return err
	}
	if len(removed) == 0 {
		r.logger.Debug("deleted: not in index", slog.String("path", path))
		return nil
	}

	for _, s := range removed {
		if r.cfg.RemoveAssetsOnDelete {
			dir := ".assets/" + s[:r.cfg.ShardPrefixLen] + "/" + s
			if rmErr := r.ws.RemoveDir(dir); rmErr != nil {
				r.logger.Warn("deleted: asset cleanup failed", slog.String("dir", dir), slog.String("error", rmErr.Error()))
			} else {
				r.logger.Info("deleted: assets removed", slog.String("dir", dir))
			}
		}
		r.emit(KindDeleted, s, path, "")
	}
	r.logger.Info("deleted: unindexed", slog.String("path", path), slog.Int("entries", len(removed)))
	return nil
}

// HandleModified records the modification but never mutates anything:
// location-derived fields only change on create/move, and the serial is
// immutable.
func (r *Reconciler) HandleModified(path string) {
	if ok, reason := r.cfg.Filter.Allow(path); !ok {
		r.logger.Debug("modified: skipped", slog.String("path", path), slog.String("reason", reason))
		return
	}
	if !r.gate.Admit(KindModified, path, r.now()) {
		r.logger.Debug("modified: debounced", slog.String("path", path))
		return
	}
	r.logger.Info("modified: observed", slog.String("path", path))
}

// EnsureDocument makes sure path carries a complete header and an index
// entry. It returns whether the document was rewritten and the serial it now
// carries.
//
// Three cases:
//   - no header (or a malformed one): synthesize a full header;
//   - header without serial: allocate one, keep the other fields;
//   - header with serial: recompute root-url/assets-url only, and skip the
//     write when they are already current (the index entry is still ensured).
func (r *Reconciler) EnsureDocument(path string) (bool, string, error) {
	content, err := r.ws.Read(path)
	if err != nil {
		return false, "", err
	}
	rootURL, err := r.ws.RootURL(path)
	if err != nil {
		return false, "", err
	}

	hdr, body, ok := header.Split(content)
	if header.Has(content) && !ok {
		r.logger.Warn("ensure: malformed header, synthesizing a new one", slog.String("path", path))
	}
	if !ok {
		s, allocErr := r.allocateSerial()
		if allocErr != nil {
			return false, "", allocErr
		}
		fields := header.NewFields()
		fields.Set(header.KeySerial, s)
		fields.Set(header.KeyRootURL, rootURL)
		fields.Set(header.KeyAssetsURL, header.AssetsURL(rootURL, s, r.cfg.ShardPrefixLen))
		if err := r.writeDocument(path, fields, body); err != nil {
			return false, "", err
		}
		return true, s, r.store.Upsert(s, path)
	}

	fields := header.ParseFields(hdr)
	s := header.Serial(fields)
	if s == "" {
		var allocErr error
		if s, allocErr = r.allocateSerial(); allocErr != nil {
			return false, "", allocErr
		}
		fields.Set(header.KeySerial, s)
	}

	assetsURL := header.AssetsURL(rootURL, s, r.cfg.ShardPrefixLen)
	curRoot, _ := fields.Get(header.KeyRootURL)
	curAssets, _ := fields.Get(header.KeyAssetsURL)
	if curRoot == rootURL && curAssets == assetsURL {
		// Idempotent no-op for the document, but index presence is still
		// guaranteed.
		return false, s, r.store.Upsert(s, path)
	}

	fields.Set(header.KeyRootURL, rootURL)
	fields.Set(header.KeyAssetsURL, assetsURL)
	if err := r.writeDocument(path, fields, body); err != nil {
		return false, "", err
	}
	return true, s, r.store.Upsert(s, path)
}

func (r *Reconciler) writeDocument(path string, fields *header.Fields, body string) error {
	return r.ws.Write(path, header.Build(fields)+"\n\n"+body)
}

func (r *Reconciler) allocateSerial() (string, error) {
	idx, err := r.store.Load()
	if err != nil {
		// A malformed index is recovered as empty; uniqueness is then only
		// best-effort until the next save rebuilds the file.
		r.logger.Warn("ensure: index unreadable during allocation", slog.String("error", err.Error()))
	}
	return serial.GenerateUnique(idx.Has), nil
}

func (r *Reconciler) expireMovedMarkers(now time.Time) {
	for p, at := range r.recentlyMoved {
		if now.Sub(at) >= r.gate.Window() {
			delete(r.recentlyMoved, p)
		}
	}
}

func (r *Reconciler) emit(kind, s, path, detail string) {
	rel, err := r.ws.Rel(path)
	if err != nil {
		rel = path
	}
	if r.cfg.Journal != nil {
		if jErr := r.cfg.Journal.Record(kind, s, rel, detail); jErr != nil {
			r.logger.Warn("journal: record failed", slog.String("error", jErr.Error()))
		}
	}
	if r.cfg.Callback != nil {
		r.cfg.Callback(kind, s, rel)
	}
}
