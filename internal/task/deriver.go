package task

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"sdportal/internal/logging"
)

// Deriver numbers derivations and decides which result is published.
type Deriver struct {
	env          Env
	discardStale bool
	onStale      func(seq, newest uint64)
	logger       *slog.Logger

	issued atomic.Uint64
	stale  atomic.Uint64

	mu     sync.Mutex
	latest *Derived
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithDiscardStale toggles dropping results superseded by a newer derivation.
// Enabled by default.
func WithDiscardStale(enabled bool) DeriverOption {
	return func(d *Deriver) {
		d.discardStale = enabled
	}
}

// WithOnStale installs a hook called for every discarded result with its
// sequence number and the newest issued sequence number.
func WithOnStale(fn func(seq, newest uint64)) DeriverOption {
	return func(d *Deriver) {
		d.onStale = fn
	}
}

// WithDeriverLogger attaches a logger.
func WithDeriverLogger(logger *slog.Logger) DeriverOption {
	return func(d *Deriver) {
		d.logger = logger
	}
}

// NewDeriver returns a Deriver bound to env.
func NewDeriver(env Env, opts ...DeriverOption) *Deriver {
	d := &Deriver{env: env, discardStale: true}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = logging.NewComponentLogger(d.logger, "derive")
	return d
}

// Derive runs a derivation for snapshot. With stale discarding enabled, a
// result or failure whose sequence number is older than the newest issued
// derivation is dropped and ErrStaleDerivation returned. Otherwise every
// successful result is published, so the last one to finish wins.
func (d *Deriver) Derive(ctx context.Context, snapshot InferenceTask) (*Derived, error) {
	seq := d.issued.Add(1)
	result, err := Derive(ctx, snapshot, d.env)

	d.mu.Lock()
	newest := d.issued.Load()
	if d.discardStale && seq < newest {
		d.mu.Unlock()
		d.stale.Add(1)
		d.logger.Debug("derivation discarded",
			logging.Uint64("seq", seq),
			logging.Uint64("newest", newest),
			logging.Bool("failed", err != nil),
		)
		if d.onStale != nil {
			d.onStale(seq, newest)
		}
		return nil, ErrStaleDerivation
	}
	if err != nil {
		d.mu.Unlock()
		d.logger.Debug("derivation failed", logging.Uint64("seq", seq), logging.Error(err))
		return nil, err
	}
	result.Sequence = seq
	d.latest = result
	d.mu.Unlock()
	return result, nil
}

// Latest returns the most recently published result.
func (d *Deriver) Latest() (*Derived, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.latest, d.latest != nil
}

// StaleCount reports how many results were discarded.
func (d *Deriver) StaleCount() uint64 {
	return d.stale.Load()
}

// Issued reports how many derivations have been started.
func (d *Deriver) Issued() uint64 {
	return d.issued.Load()
}
