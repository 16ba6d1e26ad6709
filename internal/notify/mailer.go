// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package notify sends transactional mail: order confirmations, order status
// changes and contact form notifications.
//
// New picks the implementation from config.MailConfig. With mail disabled a
// LogMailer records every message in the log. Otherwise an SMTPMailer is
// wrapped in a ResilientMailer that throttles sends with a token bucket and
// stops calling a failing relay through a circuit breaker. Send failures are
// returned as apperr upstream errors; callers that must not fail on mail
// (checkout, contact) log them and carry on.
package notify

import (
	"context"
	"sync"

	"github.com/essence-shop/essence/internal/config"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/metrics"
)

// Kind labels a message for logs and metrics.
type Kind string

const (
	KindOrderConfirmation Kind = "order_confirmation"
	KindOrderStatus       Kind = "order_status"
	KindContact           Kind = "contact"
)

// Message is a plain-text mail.
type Message struct {
	Kind    Kind
	To      []string
	ReplyTo string
	Subject string
	Body    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New returns the mailer selected by cfg.
func New(cfg config.MailConfig) Mailer {
	if !cfg.Enabled {
		logging.Info().Msg("SMTP disabled, mail will be logged")
		return LogMailer{}
	}
	return NewResilientMailer(NewSMTPMailer(cfg), cfg.RatePerMinute)
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct{}

// Send implements Mailer.
func (LogMailer) Send(ctx context.Context, msg Message) error {
	logging.Ctx(ctx).Info().
		Str("kind", string(msg.Kind)).
		Strs("to", msg.To).
		Str("subject", msg.Subject).
		Msg("Mail (not sent, SMTP disabled)")
	metrics.MailSent.WithLabelValues(string(msg.Kind), "logged").Inc()
	return nil
}

// MemoryMailer keeps messages in memory. Err, when set, is returned by Send
// and nothing is recorded.
type MemoryMailer struct {
	mu   sync.Mutex
	sent []Message
	Err  error
}

// Send implements Mailer.
func (m *MemoryMailer) Send(_ context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (m *MemoryMailer) Sent() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.sent...)
}

// SentOfKind returns the recorded messages of kind k.
func (m *MemoryMailer) SentOfKind(k Kind) []Message {
	var out []Message
	for _, msg := range m.Sent() {
		if msg.Kind == k {
			out = append(out, msg)
		}
	}
	return out
}
