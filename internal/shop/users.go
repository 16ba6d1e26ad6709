// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// RegisterInput creates a customer account.
type RegisterInput struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Name     string `json:"name" validate:"required,notblank,max=120"`
	Phone    string `json:"phone" validate:"omitempty,max=40"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginInput authenticates a user.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ProfileInput updates the caller's profile.
type ProfileInput struct {
	Name    string `json:"name" validate:"required,notblank,max=120"`
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Version int64  `json:"version" validate:"gte=0"`
}

// PasswordInput changes the caller's password.
type PasswordInput struct {
	Current string `json:"current_password" validate:"required"`
	New     string `json:"new_password" validate:"required,min=8,max=72,nefield=Current"`
}

// UserUpdate is an admin change to an account. Nil fields are left alone.
type UserUpdate struct {
	Role    *models.Role `json:"role" validate:"omitempty,oneof=admin customer"`
	Active  *bool        `json:"active"`
	Version int64        `json:"version" validate:"gte=0"`
}

// UserFilter lists accounts.
type UserFilter struct {
	Role     models.Role
	Active   *bool
	Email    string
	Page     int
	PageSize int
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

var errBadCredentials = apperr.Unauthorized("Invalid email or password")

// Register creates an active customer account.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	return s.createUser(ctx, in, models.RoleCustomer)
}

func (s *Service) createUser(ctx context.Context, in RegisterInput, role models.Role) (*models.User, error) {
	email := normalizeEmail(in.Email)
	taken, err := s.users.Exists(ctx, database.Where(database.Eq(models.FieldEmail, email)))
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, apperr.Conflict("Email is already registered")
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, apperr.Field("password", err.Error())
	}
	u := &models.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
	}
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, apperr.Conflict("Email is already registered")
		}
		return nil, err
	}
	s.invalidate(ctx, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("user_id", u.ID).Str("role", string(role)).Msg("Account created")
	return u, nil
}

// Authenticate checks credentials and records the login time. Unknown emails
// and wrong passwords give the same error.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*models.User, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	u, err := s.users.FindOne(ctx, database.Where(database.Eq(models.FieldEmail, normalizeEmail(in.Email))))
	if database.IsNotFound(err) {
		return nil, errBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !s.hasher.Check(u.PasswordHash, in.Password) {
		return nil, errBadCredentials
	}
	if !u.Active {
		return nil, apperr.Forbidden("Account is disabled")
	}

	now := s.Now().Truncate(time.Millisecond)
	updated, err := s.users.Mutate(ctx, u.ID, func(u *models.User) error {
		u.LastLoginAt = &now
		return nil
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("Failed to record login time")
		return u, nil
	}
	return updated, nil
}

// activeUser loads the account behind an authenticated request.
func (s *Service) activeUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.Get(ctx, id)
	if database.IsNotFound(err) {
		return nil, apperr.Unauthorized("Account no longer exists")
	}
	if err != nil {
		return nil, err
	}
	if !u.Active {
		return nil, apperr.Forbidden("Account is disabled")
	}
	return u, nil
}

// Me returns the caller's account.
func (s *Service) Me(ctx context.Context, userID string) (*models.User, error) {
	return s.activeUser(ctx, userID)
}

// UpdateProfile changes the caller's name and phone.
func (s *Service) UpdateProfile(ctx context.Context, userID string, in ProfileInput) (*models.User, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := checkVersion("account", u.Version, in.Version); err != nil {
		return nil, err
	}
	u.Name = strings.TrimSpace(in.Name)
	u.Phone = strings.TrimSpace(in.Phone)
	if err := s.users.Update(ctx, u); err != nil {
		return nil, storeErr(err, "account", userID)
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current
// one.
func (s *Service) ChangePassword(ctx context.Context, userID string, in PasswordInput) error {
	if err := validation.Check(&in); err != nil {
		return err
	}
	u, err := s.activeUser(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Check(u.PasswordHash, in.Current) {
		return apperr.Field("current_password", "current password is incorrect")
	}
	hash, err := s.hasher.Hash(in.New)
	if err != nil {
		return apperr.Field("new_password", err.Error())
	}
	_, err = s.users.Mutate(ctx, userID, func(u *models.User) error {
		u.PasswordHash = hash
		return nil
	})
	if err != nil {
		return storeErr(err, "account", userID)
	}
	logging.Ctx(ctx).Info().Str("user_id", userID).Msg("Password changed")
	return nil
}

// ListUsers returns accounts ordered by email.
func (s *Service) ListUsers(ctx context.Context, f UserFilter) (models.Page[*models.User], error) {
	q := database.Where().OrderBy(models.FieldEmail, false)
	if f.Role != "" {
		q = q.And(database.Eq(models.FieldRole, string(f.Role)))
	}
	if f.Active != nil {
		q = q.And(database.Eq(models.FieldActive, *f.Active))
	}
	if e := strings.TrimSpace(f.Email); e != "" {
		q = q.And(database.Contains(models.FieldEmail, e))
	}
	page, size := s.pageBounds(f.Page, f.PageSize)
	return s.users.Page(ctx, q, page, size)
}

// GetUser loads an account.
func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.users.Get(ctx, id)
	return u, storeErr(err, "user", id)
}

// UpdateUser changes the role or active state of an account. Admins cannot
// demote or disable themselves.
func (s *Service) UpdateUser(ctx context.Context, actorID, id string, in UserUpdate) (*models.User, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	if actorID == id {
		if in.Role != nil && *in.Role != models.RoleAdmin {
			return nil, apperr.Field("role", "you cannot change your own role")
		}
		if in.Active != nil && !*in.Active {
			return nil, apperr.Field("active", "you cannot disable your own account")
		}
	}
	u, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, storeErr(err, "user", id)
	}
	if err := checkVersion("user", u.Version, in.Version); err != nil {
		return nil, err
	}
	if in.Role != nil {
		u.Role = *in.Role
	}
	if in.Active != nil {
		u.Active = *in.Active
	}
	if err := s.users.Update(ctx, u); err != nil {
		return nil, storeErr(err, "user", id)
	}
	logging.Ctx(ctx).Info().Str("actor_id", actorID).Str("user_id", id).Str("role", string(u.Role)).Bool("active", u.Active).Msg("Account updated")
	return u, nil
}

// DeleteUser removes an account and its addresses. Orders and reviews keep
// their user reference.
func (s *Service) DeleteUser(ctx context.Context, actorID, id string) error {
	if actorID == id {
		return apperr.Conflict("You cannot delete your own account")
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return storeErr(err, "user", id)
	}
	addrs, err := s.addresses.List(ctx, database.Where(database.Eq(models.FieldUserID, id)))
	if err != nil {
		return err
	}
	for _, a := range addrs {
		if err := s.addresses.Delete(ctx, a.ID); err != nil && !database.IsNotFound(err) {
			return err
		}
	}
	s.invalidate(ctx, PrefixDashboard)
	logging.Ctx(ctx).Info().Str("actor_id", actorID).Str("user_id", id).Msg("Account deleted")
	return nil
}

// EnsureAdmin creates an admin account for email unless one exists. It
// reports whether an account was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}
	existing, err := s.users.FindOne(ctx, database.Where(database.Eq(models.FieldEmail, email)))
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			logging.Ctx(ctx).Warn().Str("email", email).Msg("Bootstrap admin email belongs to a non-admin account")
		}
		return false, nil
	case !database.IsNotFound(err):
		return false, err
	}
	in := RegisterInput{Email: email, Name: "Administrator", Password: password}
	if err := validation.Check(&in); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	if _, err := s.createUser(ctx, in, models.RoleAdmin); err != nil {
		return false, fmt.Errorf("bootstrap admin: %w", err)
	}
	return true, nil
}
