// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
)

const breakerName = "smtp"

// ResilientMailer throttles and circuit-breaks another Mailer.
//
// The breaker uses real time for its interval and timeout; tests exercise it
// through consecutive failures rather than by waiting for recovery.
type ResilientMailer struct {
	next    Mailer
	cb      *gobreaker.CircuitBreaker[struct{}]
	limiter *rate.Limiter
}

// BreakerSettings returns the breaker configuration used for the relay:
// at most one probe while half-open, counts reset every minute, and one
// minute open after five consecutive failures.
func BreakerSettings(name string) gobreaker.Settings {
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= 5
			if trip {
				logging.Warn().Str("breaker", name).Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return trip
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Info().Str("breaker", name).Str("from", stateToString(from)).Str("to", stateToString(to)).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateToString(from), stateToString(to)).Inc()
		},
	}
}

// NewResilientMailer wraps next. perMinute <= 0 disables throttling.
func NewResilientMailer(next Mailer, perMinute int) *ResilientMailer {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	limit := rate.Inf
	burst := 0
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
		burst = perMinute
	}
	return &ResilientMailer{
		next:    next,
		cb:      gobreaker.NewCircuitBreaker[struct{}](BreakerSettings(breakerName)),
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Send waits for a token, then delivers through the breaker. Every failure
// is returned as an upstream error for the "mail" service.
func (m *ResilientMailer) Send(ctx context.Context, msg Message) error {
	if err := m.limiter.Wait(ctx); err != nil {
		metrics.MailSent.WithLabelValues(string(msg.Kind), "throttled").Inc()
		return apperr.Upstream("mail", fmt.Errorf("rate limit wait: %w", err))
	}

	_, err := m.cb.Execute(func() (struct{}, error) {
		return struct{}{}, m.next.Send(ctx, msg)
	})
	switch {
	case err == nil:
		metrics.MailSent.WithLabelValues(string(msg.Kind), "sent").Inc()
		logging.Ctx(ctx).Debug().Str("kind", string(msg.Kind)).Strs("to", msg.To).Msg("Mail sent")
		return nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.MailSent.WithLabelValues(string(msg.Kind), "rejected").Inc()
		return apperr.Upstream("mail", fmt.Errorf("circuit breaker open: %w", err))
	default:
		metrics.MailSent.WithLabelValues(string(msg.Kind), "failed").Inc()
		return apperr.Upstream("mail", err)
	}
}

// State returns the breaker state.
func (m *ResilientMailer) State() gobreaker.State {
	return m.cb.State()
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
