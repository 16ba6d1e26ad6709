// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"strings"
	"time"

	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/notify"
	"github.com/essence-shop/essence/internal/validation"
)

// ContactInput is a contact form submission.
type ContactInput struct {
	Name    string `json:"name" validate:"required,notblank,max=120"`
	Email   string `json:"email" validate:"required,email,max=254"`
	Subject string `json:"subject" validate:"required,notblank,max=200"`
	Body    string `json:"body" validate:"required,notblank,max=5000"`
}

// ContactUpdate marks a message. Nil fields are left alone.
type ContactUpdate struct {
	Read    *bool `json:"read"`
	Replied *bool `json:"replied"`
}

// ContactFilter lists contact messages.
type ContactFilter struct {
	Unread   bool
	Page     int
	PageSize int
}

// SubmitContact stores a message and forwards it to the shop inbox. A mail
// failure is logged and does not fail the submission.
func (s *Service) SubmitContact(ctx context.Context, in ContactInput) (*models.ContactMessage, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	m := &models.ContactMessage{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Subject: strings.TrimSpace(in.Subject),
		Body:    strings.TrimSpace(in.Body),
	}
	if err := s.contacts.Create(ctx, m); err != nil {
		return nil, storeErr(err, "contact message", "")
	}
	s.invalidate(ctx, PrefixDashboard)

	if s.shopInbox != "" {
		msg, err := notify.ContactReceived(s.shopInbox, m)
		s.sendMail(ctx, msg, err)
	}
	return m, nil
}

// ListContacts returns contact messages, newest first.
func (s *Service) ListContacts(ctx context.Context, f ContactFilter) (models.Page[*models.ContactMessage], error) {
	q := database.Where().OrderBy(models.FieldCreatedAt, true)
	if f.Unread {
		q = q.And(database.Eq(models.FieldRead, false))
	}
	page, size := s.pageBounds(f.Page, f.PageSize)
	return s.contacts.Page(ctx, q, page, size)
}

// GetContact loads a contact message.
func (s *Service) GetContact(ctx context.Context, id string) (*models.ContactMessage, error) {
	m, err := s.contacts.Get(ctx, id)
	return m, storeErr(err, "contact message", id)
}

// UpdateContact marks a message read or replied. Marking replied also marks
// it read.
func (s *Service) UpdateContact(ctx context.Context, id string, in ContactUpdate) (*models.ContactMessage, error) {
	now := s.Now().Truncate(time.Millisecond)
	m, err := s.contacts.Mutate(ctx, id, func(m *models.ContactMessage) error {
		changed := false
		if in.Read != nil && m.Read != *in.Read {
			m.Read = *in.Read
			changed = true
		}
		if in.Replied != nil {
			switch {
			case *in.Replied && m.RepliedAt == nil:
				m.RepliedAt = &now
				m.Read = true
				changed = true
			case !*in.Replied && m.RepliedAt != nil:
				m.RepliedAt = nil
				changed = true
			}
		}
		if !changed {
			return database.ErrNoChange
		}
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "contact message", id)
	}
	s.invalidate(ctx, PrefixDashboard)
	return m, nil
}

// DeleteContact removes a contact message.
func (s *Service) DeleteContact(ctx context.Context, id string) error {
	if err := s.contacts.Delete(ctx, id); err != nil {
		return storeErr(err, "contact message", id)
	}
	s.invalidate(ctx, PrefixDashboard)
	return nil
}
