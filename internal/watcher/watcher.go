package watcher

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"sdportal/internal/api"
	"sdportal/internal/config"
	"sdportal/internal/fileutil"
	"sdportal/internal/imageenc"
	"sdportal/internal/ledger"
	"sdportal/internal/logging"
	"sdportal/internal/textutil"
	"sdportal/internal/transport"
)

// ErrAlreadyRunning is returned when another watcher holds the lock.
var ErrAlreadyRunning = errors.New("watcher already running")

// TaskSource is the subset of api.Inference the watcher uses.
type TaskSource interface {
	TaskStatus(ctx context.Context, clientID, taskID string) (*api.TaskState, error)
	Image(ctx context.Context, clientID, taskID string, n int) (string, error)
}

// Ledger is the subset of ledger.Store the watcher uses.
type Ledger interface {
	Pending(ctx context.Context) ([]*ledger.Entry, error)
	UpdateStatus(ctx context.Context, clientID, taskID string, status api.TaskStatus, abortReason string) error
	MarkImagesSaved(ctx context.Context, clientID, taskID, dir string) error
}

// Notifier receives task lifecycle events. Delivery failures are logged and
// never fail a pass.
type Notifier interface {
	NotifyTaskCompleted(ctx context.Context, taskID, prompt string, images int, dir string) error
	NotifyTaskAborted(ctx context.Context, taskID, reason string) error
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithNotifier publishes completed and aborted tasks.
func WithNotifier(n Notifier) Option {
	return func(w *Watcher) {
		w.notifier = n
	}
}

// Summary counts what one pass did.
type Summary struct {
	Polled      int
	Changed     int
	Completed   int
	Aborted     int
	ImagesSaved int
	Failed      int
}

// Watcher polls pending ledger entries.
type Watcher struct {
	tasks     TaskSource
	ledger    Ledger
	logger    *slog.Logger
	interval  time.Duration
	outputDir string
	lockPath  string
	lock      *flock.Flock
	notifier  Notifier

	running atomic.Bool
}

// New constructs a watcher from configuration.
func New(cfg *config.Config, store Ledger, tasks TaskSource, logger *slog.Logger, opts ...Option) (*Watcher, error) {
	if cfg == nil || store == nil || tasks == nil {
		return nil, errors.New("watcher requires config, ledger, and task source")
	}
	lockPath := cfg.WatchLockPath()
	interval := cfg.PollInterval()
	if interval <= 0 {
		interval = time.Second
	}
	w := &Watcher{
		tasks:     tasks,
		ledger:    store,
		logger:    logging.NewComponentLogger(logger, "watcher"),
		interval:  interval,
		outputDir: cfg.Paths.OutputDir,
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// LockPath returns the lock file location.
func (w *Watcher) LockPath() string {
	return w.lockPath
}

// Run polls until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	release, err := w.acquire()
	if err != nil {
		return err
	}
	defer release()

	w.logger.Info("watcher started",
		logging.String("lock", w.lockPath),
		logging.Duration("interval", w.interval),
	)
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.pass(ctx); err != nil && ctx.Err() == nil {
			w.logger.Warn("watch pass failed", logging.Error(err))
		}
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single pass under the lock.
func (w *Watcher) RunOnce(ctx context.Context) (Summary, error) {
	release, err := w.acquire()
	if err != nil {
		return Summary{}, err
	}
	defer release()
	return w.pass(ctx)
}

func (w *Watcher) acquire() (func(), error) {
	if !w.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRunning
	}
	if err := os.MkdirAll(filepath.Dir(w.lockPath), 0o755); err != nil {
		w.running.Store(false)
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	ok, err := w.lock.TryLock()
	if err != nil {
		w.running.Store(false)
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		w.running.Store(false)
		return nil, fmt.Errorf("%w (lock %s)", ErrAlreadyRunning, w.lockPath)
	}
	return func() {
		if err := w.lock.Unlock(); err != nil {
			w.logger.Warn("failed to release watcher lock", logging.Error(err))
		}
		w.running.Store(false)
	}, nil
}

func (w *Watcher) pass(ctx context.Context) (Summary, error) {
	var summary Summary
	entries, err := w.ledger.Pending(ctx)
	if err != nil {
		return summary, fmt.Errorf("load pending tasks: %w", err)
	}
	for _, entry := range entries {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		w.process(logging.WithTaskID(ctx, entry.TaskID), entry, &summary)
	}
	if summary.Polled > 0 || summary.Failed > 0 {
		w.logger.Info("watch pass complete",
			logging.Int("polled", summary.Polled),
			logging.Int("changed", summary.Changed),
			logging.Int("completed", summary.Completed),
			logging.Int("aborted", summary.Aborted),
			logging.Int("images_saved", summary.ImagesSaved),
			logging.Int("failed", summary.Failed),
		)
	}
	return summary, nil
}

func (w *Watcher) process(ctx context.Context, entry *ledger.Entry, summary *Summary) {
	logger := logging.WithContext(ctx, w.logger)
	status := entry.Status

	if !status.Terminal() {
		summary.Polled++
		state, err := w.tasks.TaskStatus(ctx, entry.ClientID, entry.TaskID)
		if err != nil {
			summary.Failed++
			logger.Warn("status poll failed",
				logging.String(logging.FieldErrorKind, transport.KindOf(err).String()),
				logging.Error(err),
			)
			return
		}
		if state.Status != status {
			if err := w.ledger.UpdateStatus(ctx, entry.ClientID, entry.TaskID, state.Status, state.AbortReason); err != nil {
				summary.Failed++
				logger.Warn("status update failed", logging.Error(err))
				return
			}
			summary.Changed++
			logger.Info("task status changed",
				logging.String("from", status.String()),
				logging.String("to", state.Status.String()),
			)
			status = state.Status
		}
		switch status {
		case api.TaskStatusAborted:
			summary.Aborted++
			w.notify(logger, func(n Notifier) error {
				return n.NotifyTaskAborted(ctx, entry.TaskID, state.AbortReason)
			})
			return
		case api.TaskStatusSuccess:
			summary.Completed++
		default:
			return
		}
	}

	if status != api.TaskStatusSuccess || entry.ImagesSaved || entry.NumImages <= 0 {
		return
	}
	dir, err := w.saveImages(ctx, entry)
	if err != nil {
		summary.Failed++
		logger.Warn("image download failed",
			logging.String(logging.FieldErrorKind, transport.KindOf(err).String()),
			logging.Error(err),
		)
		return
	}
	if err := w.ledger.MarkImagesSaved(ctx, entry.ClientID, entry.TaskID, dir); err != nil {
		summary.Failed++
		logger.Warn("mark images saved failed", logging.Error(err))
		return
	}
	summary.ImagesSaved += entry.NumImages
	logger.Info("images saved", logging.String("dir", dir), logging.Int("count", entry.NumImages))
	w.notify(logger, func(n Notifier) error {
		return n.NotifyTaskCompleted(ctx, entry.TaskID, entry.Prompt, entry.NumImages, dir)
	})
}

func (w *Watcher) notify(logger *slog.Logger, send func(Notifier) error) {
	if w.notifier == nil {
		return
	}
	if err := send(w.notifier); err != nil {
		logger.Warn("notification failed", logging.Error(err))
	}
}

func (w *Watcher) saveImages(ctx context.Context, entry *ledger.Entry) (string, error) {
	dir := filepath.Join(w.outputDir, textutil.PathSegment(entry.TaskID))
	for n := 0; n < entry.NumImages; n++ {
		dataURL, err := w.tasks.Image(ctx, entry.ClientID, entry.TaskID, n)
		if err != nil {
			return "", fmt.Errorf("fetch image %d: %w", n, err)
		}
		if _, err := SaveDataURL(dataURL, dir, strconv.Itoa(n)); err != nil {
			return "", fmt.Errorf("save image %d: %w", n, err)
		}
	}
	return dir, nil
}

// SaveDataURL decodes dataURL and writes it to dir/<name>.<ext>, returning the
// written path.
func SaveDataURL(dataURL, dir, name string) (string, error) {
	mediaType, data, err := imageenc.DecodeDataURL(dataURL)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, name+"."+imageenc.Extension(mediaType))
	if err := fileutil.WriteFileVerified(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
