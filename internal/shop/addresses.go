// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// MaxAddressesPerUser bounds the address book.
const MaxAddressesPerUser = 20

// PostalInput is a delivery address as entered at checkout or in the
// address book.
type PostalInput struct {
	FullName   string `json:"full_name" validate:"required,notblank,max=120"`
	Phone      string `json:"phone" validate:"required,max=40"`
	Line1      string `json:"line1" validate:"required,notblank,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,notblank,max=100"`
	Region     string `json:"region" validate:"max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,len=2,alpha"`
}

// Postal converts the input to a stored address.
func (in PostalInput) Postal() models.PostalAddress {
	return models.PostalAddress{
		FullName:   strings.TrimSpace(in.FullName),
		Phone:      strings.TrimSpace(in.Phone),
		Line1:      strings.TrimSpace(in.Line1),
		Line2:      strings.TrimSpace(in.Line2),
		City:       strings.TrimSpace(in.City),
		Region:     strings.TrimSpace(in.Region),
		PostalCode: strings.TrimSpace(in.PostalCode),
		Country:    strings.ToUpper(in.Country),
	}
}

// AddressInput creates or updates an address book entry.
type AddressInput struct {
	PostalInput
	Label     string `json:"label" validate:"max=60"`
	IsDefault bool   `json:"is_default"`
	Version   int64  `json:"version" validate:"gte=0"`
}

func (s *Service) userAddresses(ctx context.Context, userID string) ([]*models.Address, error) {
	addrs, err := s.addresses.List(ctx, database.Where(database.Eq(models.FieldUserID, userID)).OrderBy(models.FieldCreatedAt, false))
	if addrs == nil && err == nil {
		addrs = []*models.Address{}
	}
	return addrs, err
}

// ownAddress loads an address of userID. Addresses of other users are
// reported as not found.
func (s *Service) ownAddress(ctx context.Context, userID, id string) (*models.Address, error) {
	a, err := s.addresses.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "address", id)
	}
	if a.UserID != userID {
		return nil, apperr.NotFound("address", id)
	}
	return a, nil
}

// setDefault clears the default flag on every other address of userID.
func (s *Service) setDefault(ctx context.Context, userID, keepID string) error {
	others, err := s.addresses.List(ctx, database.Where(
		database.Eq(models.FieldUserID, userID),
		database.Eq(models.FieldIsDefault, true),
		database.Ne(models.FieldID, keepID),
	))
	if err != nil {
		return err
	}
	for _, o := range others {
		_, err := s.addresses.Mutate(ctx, o.ID, func(a *models.Address) error {
			if !a.IsDefault {
				return database.ErrNoChange
			}
			a.IsDefault = false
			return nil
		})
		if err != nil && !database.IsNotFound(err) {
			return storeErr(err, "address", o.ID)
		}
	}
	return nil
}

// ListAddresses returns the caller's address book, oldest first.
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]*models.Address, error) {
	return s.userAddresses(ctx, userID)
}

// CreateAddress adds an address. The first address becomes the default.
func (s *Service) CreateAddress(ctx context.Context, userID string, in AddressInput) (*models.Address, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	n, err := s.addresses.Count(ctx, database.Where(database.Eq(models.FieldUserID, userID)))
	if err != nil {
		return nil, err
	}
	if n >= MaxAddressesPerUser {
		return nil, apperr.Conflict("Address book is full")
	}
	a := &models.Address{
		PostalAddress: in.Postal(),
		UserID:        userID,
		Label:         strings.TrimSpace(in.Label),
		IsDefault:     in.IsDefault || n == 0,
	}
	if err := s.addresses.Create(ctx, a); err != nil {
		return nil, storeErr(err, "address", "")
	}
	if a.IsDefault {
		if err := s.setDefault(ctx, userID, a.ID); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// UpdateAddress replaces an address. Clearing the default flag of the
// default address is ignored; make another address the default instead.
func (s *Service) UpdateAddress(ctx context.Context, userID, id string, in AddressInput) (*models.Address, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	a, err := s.ownAddress(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if err := checkVersion("address", a.Version, in.Version); err != nil {
		return nil, err
	}
	a.PostalAddress = in.Postal()
	a.Label = strings.TrimSpace(in.Label)
	a.IsDefault = a.IsDefault || in.IsDefault
	if err := s.addresses.Update(ctx, a); err != nil {
		return nil, storeErr(err, "address", id)
	}
	if in.IsDefault {
		if err := s.setDefault(ctx, userID, a.ID); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// DeleteAddress removes an address. When it was the default, the oldest
// remaining address takes over.
func (s *Service) DeleteAddress(ctx context.Context, userID, id string) error {
	a, err := s.ownAddress(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.addresses.Delete(ctx, id); err != nil {
		return storeErr(err, "address", id)
	}
	if !a.IsDefault {
		return nil
	}
	rest, err := s.userAddresses(ctx, userID)
	if err != nil || len(rest) == 0 {
		return err
	}
	_, err = s.addresses.Mutate(ctx, rest[0].ID, func(a *models.Address) error {
		a.IsDefault = true
		return nil
	})
	return storeErr(err, "address", rest[0].ID)
}
