// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package audit

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
	"github.com/essence-shop/essence/internal/models"
)

// writeTimeout bounds a single Save.
const writeTimeout = 5 * time.Second

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether events are recorded at all.
	Enabled bool

	// BufferSize is the capacity of the async write buffer.
	BufferSize int

	// Retention is how long events are kept. Zero keeps them forever.
	Retention time.Duration

	// CleanupInterval is how often expired events are pruned.
	CleanupInterval time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Enabled:         true,
		BufferSize:      1000,
		Retention:       90 * 24 * time.Hour,
		CleanupInterval: 24 * time.Hour,
	}
}

// ConfigFrom maps the application configuration.
func ConfigFrom(c config.AuditConfig) Config {
	return Config{
		Enabled:         c.Enabled,
		BufferSize:      c.BufferSize,
		Retention:       c.Retention,
		CleanupInterval: c.CleanupInterval,
	}
}

// Logger buffers events and writes them from Serve. It implements
// suture.Service.
type Logger struct {
	config Config
	store  *Store
	clock  clockwork.Clock
	events chan *Event
}

// NewLogger creates a logger writing to store. A nil clock uses the wall
// clock.
func NewLogger(store *Store, cfg Config, clock clockwork.Clock) *Logger {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = DefaultConfig().BufferSize
	}
	if cfg.CleanupInterval <= 0 {
		cfg.CleanupInterval = DefaultConfig().CleanupInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Logger{
		config: cfg,
		store:  store,
		clock:  clock,
		events: make(chan *Event, cfg.BufferSize),
	}
}

// Enabled reports whether Log records anything.
func (l *Logger) Enabled() bool {
	return l != nil && l.config.Enabled
}

// Log queues an event. It never blocks; when the buffer is full the event
// is dropped. A nil Logger discards everything.
func (l *Logger) Log(ctx context.Context, e *Event) {
	if !l.Enabled() {
		return
	}
	if e.Outcome == "" {
		e.Outcome = OutcomeSuccess
	}
	if e.RequestID == "" {
		e.RequestID = logging.RequestIDFromContext(ctx)
	}

	select {
	case l.events <- e:
	default:
		metrics.AuditEventsDropped.Inc()
		logging.Ctx(ctx).Warn().
			Str("action", string(e.Action)).
			Str("target_id", e.Target.ID).
			Msg("Audit event buffer full, dropping event")
	}
}

// Query lists stored events.
func (l *Logger) Query(ctx context.Context, f Filter) (models.Page[*Event], error) {
	return l.store.Query(ctx, f)
}

// Serve writes queued events and prunes expired ones until ctx is
// cancelled, then drains the buffer.
func (l *Logger) Serve(ctx context.Context) error {
	ticker := l.clock.NewTicker(l.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			l.drain()
			return ctx.Err()
		case e := <-l.events:
			l.write(e)
		case <-ticker.Chan():
			l.cleanup(ctx)
		}
	}
}

// String implements fmt.Stringer for suture logging.
func (l *Logger) String() string {
	return "audit-writer"
}

func (l *Logger) drain() {
	for {
		select {
		case e := <-l.events:
			l.write(e)
		default:
			return
		}
	}
}

func (l *Logger) write(e *Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := l.store.Save(ctx, e); err != nil {
		logging.Error().Err(err).Str("action", string(e.Action)).Msg("Failed to save audit event")
		return
	}
	metrics.AuditEvents.WithLabelValues(string(e.Action), string(e.Outcome)).Inc()
}

func (l *Logger) cleanup(ctx context.Context) {
	if l.config.Retention <= 0 {
		return
	}
	cutoff := l.clock.Now().Add(-l.config.Retention)
	n, err := l.store.Prune(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
		return
	}
	if n > 0 {
		logging.Info().Int("count", n).Time("cutoff", cutoff).Msg("Cleaned up old audit events")
	}
}
