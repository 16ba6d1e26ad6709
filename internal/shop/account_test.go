// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"testing"
	"time"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/models"
)

// =====================================================
// Users
// =====================================================

func TestRegisterAndAuthenticate(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "Camille@Example.com")
	if u.Email != "camille@example.com" || u.Role != models.RoleCustomer || !u.Active {
		t.Errorf("Register = %+v", u)
	}
	if u.PasswordHash == "" || u.PasswordHash == "sillage-2026" {
		t.Error("password must be stored hashed")
	}

	_, err := f.svc.Register(f.ctx, RegisterInput{Email: "CAMILLE@example.com", Name: "Again", Password: "another-pass"})
	wantKind(t, err, apperr.KindConflict)
	_, err = f.svc.Register(f.ctx, RegisterInput{Email: "short@example.com", Name: "Short", Password: "abc"})
	wantKind(t, err, apperr.KindValidation)

	f.clock.Advance(time.Hour)
	got, err := f.svc.Authenticate(f.ctx, LoginInput{Email: "camille@EXAMPLE.com", Password: "sillage-2026"})
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if got.LastLoginAt == nil || !got.LastLoginAt.Equal(testEpoch.Add(time.Hour)) {
		t.Errorf("LastLoginAt = %v", got.LastLoginAt)
	}

	_, err = f.svc.Authenticate(f.ctx, LoginInput{Email: "camille@example.com", Password: "wrong-password"})
	wantKind(t, err, apperr.KindUnauthorized)
	_, err = f.svc.Authenticate(f.ctx, LoginInput{Email: "nobody@example.com", Password: "sillage-2026"})
	wantKind(t, err, apperr.KindUnauthorized)
}

func TestDisabledAccount(t *testing.T) {
	f := newFixture(t)
	admin := f.customer(t, "admin@example.com")
	u := f.customer(t, "camille@example.com")

	if _, err := f.svc.UpdateUser(f.ctx, admin.ID, u.ID, UserUpdate{Active: boolPtr(false)}); err != nil {
		t.Fatalf("UpdateUser: %v", err)
	}
	_, err := f.svc.Authenticate(f.ctx, LoginInput{Email: "camille@example.com", Password: "sillage-2026"})
	wantKind(t, err, apperr.KindForbidden)
	_, err = f.svc.Me(f.ctx, u.ID)
	wantKind(t, err, apperr.KindForbidden)
}

func TestProfileAndPassword(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "camille@example.com")

	updated, err := f.svc.UpdateProfile(f.ctx, u.ID, ProfileInput{Name: "Camille L.", Phone: "+33 6 00 00 00 00", Version: u.Version})
	if err != nil || updated.Name != "Camille L." {
		t.Fatalf("UpdateProfile = %+v, %v", updated, err)
	}
	_, err = f.svc.UpdateProfile(f.ctx, u.ID, ProfileInput{Name: "Stale", Version: u.Version})
	wantKind(t, err, apperr.KindConflict)

	err = f.svc.ChangePassword(f.ctx, u.ID, PasswordInput{Current: "wrong-one", New: "new-sillage-9"})
	wantKind(t, err, apperr.KindValidation)
	err = f.svc.ChangePassword(f.ctx, u.ID, PasswordInput{Current: "sillage-2026", New: "sillage-2026"})
	wantKind(t, err, apperr.KindValidation)
	if err := f.svc.ChangePassword(f.ctx, u.ID, PasswordInput{Current: "sillage-2026", New: "new-sillage-9"}); err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if _, err := f.svc.Authenticate(f.ctx, LoginInput{Email: u.Email, Password: "new-sillage-9"}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestAdminUserManagement(t *testing.T) {
	f := newFixture(t)
	created, err := f.svc.EnsureAdmin(f.ctx, "Admin@Essence.test", "bootstrap-secret")
	if err != nil || !created {
		t.Fatalf("EnsureAdmin = %v, %v", created, err)
	}
	again, err := f.svc.EnsureAdmin(f.ctx, "admin@essence.test", "bootstrap-secret")
	if err != nil || again {
		t.Errorf("second EnsureAdmin = %v, %v; want false, nil", again, err)
	}
	admin, err := f.svc.Authenticate(f.ctx, LoginInput{Email: "admin@essence.test", Password: "bootstrap-secret"})
	if err != nil || admin.Role != models.RoleAdmin {
		t.Fatalf("admin login = %+v, %v", admin, err)
	}

	u := f.customer(t, "camille@example.com")
	if _, err := f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: *testShipping()}); err != nil {
		t.Fatal(err)
	}

	customer := models.RoleCustomer
	_, err = f.svc.UpdateUser(f.ctx, admin.ID, admin.ID, UserUpdate{Role: &customer})
	wantKind(t, err, apperr.KindValidation)
	_, err = f.svc.UpdateUser(f.ctx, admin.ID, admin.ID, UserUpdate{Active: boolPtr(false)})
	wantKind(t, err, apperr.KindValidation)
	wantKind(t, f.svc.DeleteUser(f.ctx, admin.ID, admin.ID), apperr.KindConflict)

	promoted := models.RoleAdmin
	got, err := f.svc.UpdateUser(f.ctx, admin.ID, u.ID, UserUpdate{Role: &promoted})
	if err != nil || got.Role != models.RoleAdmin {
		t.Fatalf("promote = %+v, %v", got, err)
	}

	admins, err := f.svc.ListUsers(f.ctx, UserFilter{Role: models.RoleAdmin})
	if err != nil || admins.Total != 2 {
		t.Errorf("ListUsers(admin) = %+v, %v", admins, err)
	}
	byEmail, _ := f.svc.ListUsers(f.ctx, UserFilter{Email: "camille"})
	if byEmail.Total != 1 {
		t.Errorf("ListUsers(email) total = %d", byEmail.Total)
	}

	if err := f.svc.DeleteUser(f.ctx, admin.ID, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	addrs, _ := f.svc.ListAddresses(f.ctx, u.ID)
	if len(addrs) != 0 {
		t.Errorf("addresses after delete = %d", len(addrs))
	}
	_, err = f.svc.Me(f.ctx, u.ID)
	wantKind(t, err, apperr.KindUnauthorized)
}

// =====================================================
// Addresses
// =====================================================

func TestAddressDefaults(t *testing.T) {
	f := newFixture(t)
	u := f.customer(t, "camille@example.com")

	home, err := f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: *testShipping(), Label: "Home"})
	if err != nil || !home.IsDefault {
		t.Fatalf("first address = %+v, %v; want default", home, err)
	}
	f.tick()
	work, err := f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: *testShipping(), Label: "Work", IsDefault: true})
	if err != nil || !work.IsDefault {
		t.Fatalf("second address = %+v, %v", work, err)
	}
	f.tick()
	if _, err := f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: *testShipping(), Label: "Parents"}); err != nil {
		t.Fatal(err)
	}

	defaults := func() []string {
		addrs, err := f.svc.ListAddresses(f.ctx, u.ID)
		if err != nil {
			t.Fatal(err)
		}
		var out []string
		for _, a := range addrs {
			if a.IsDefault {
				out = append(out, a.Label)
			}
		}
		return out
	}
	if got := defaults(); len(got) != 1 || got[0] != "Work" {
		t.Fatalf("defaults = %v, want [Work]", got)
	}

	if err := f.svc.DeleteAddress(f.ctx, u.ID, work.ID); err != nil {
		t.Fatalf("DeleteAddress: %v", err)
	}
	if got := defaults(); len(got) != 1 || got[0] != "Home" {
		t.Errorf("defaults after delete = %v, want [Home]", got)
	}

	other := f.customer(t, "other@example.com")
	wantKind(t, f.svc.DeleteAddress(f.ctx, other.ID, home.ID), apperr.KindNotFound)
	_, err = f.svc.UpdateAddress(f.ctx, other.ID, home.ID, AddressInput{PostalInput: *testShipping()})
	wantKind(t, err, apperr.KindNotFound)

	bad := *testShipping()
	bad.Country = "France"
	_, err = f.svc.CreateAddress(f.ctx, u.ID, AddressInput{PostalInput: bad})
	wantKind(t, err, apperr.KindValidation)
}

// =====================================================
// Reviews
// =====================================================

func TestReviewLifecycle(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Orris", "OR-50", 99, 5)
	alice := f.customer(t, "alice@example.com")
	bob := f.customer(t, "bob@example.com")

	ra, err := f.svc.PostReview(f.ctx, alice.ID, p.Slug, ReviewInput{Rating: 5, Body: "Powdery perfection"})
	if err != nil {
		t.Fatalf("PostReview: %v", err)
	}
	if ra.Approved || ra.AuthorName != "Camille Laurent" {
		t.Errorf("review = %+v", ra)
	}
	_, err = f.svc.PostReview(f.ctx, alice.ID, p.Slug, ReviewInput{Rating: 4, Body: "Second thoughts"})
	wantKind(t, err, apperr.KindConflict)
	_, err = f.svc.PostReview(f.ctx, alice.ID, p.Slug, ReviewInput{Rating: 6, Body: "Too good"})
	wantKind(t, err, apperr.KindValidation)
	_, err = f.svc.PostReview(f.ctx, alice.ID, "missing", ReviewInput{Rating: 4, Body: "?"})
	wantKind(t, err, apperr.KindNotFound)

	rb, err := f.svc.PostReview(f.ctx, bob.ID, p.Slug, ReviewInput{Rating: 2, Body: "Not for me"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.SetReviewApproval(f.ctx, ra.ID, true); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.SetReviewApproval(f.ctx, rb.ID, true); err != nil {
		t.Fatal(err)
	}
	got, _ := f.svc.GetProduct(f.ctx, p.ID)
	if got.RatingAvg != 3.5 || got.RatingCount != 2 {
		t.Errorf("rating = %v over %d, want 3.5 over 2", got.RatingAvg, got.RatingCount)
	}

	reviews, err := f.svc.StoreReviews(f.ctx, p.Slug)
	if err != nil || len(reviews) != 2 {
		t.Errorf("StoreReviews = %d, %v", len(reviews), err)
	}

	if err := f.svc.DeleteReview(f.ctx, rb.ID); err != nil {
		t.Fatal(err)
	}
	got, _ = f.svc.GetProduct(f.ctx, p.ID)
	if got.RatingAvg != 5 || got.RatingCount != 1 {
		t.Errorf("rating after delete = %v over %d", got.RatingAvg, got.RatingCount)
	}

	pending, _ := f.svc.ListReviews(f.ctx, ReviewFilter{Approved: boolPtr(false)})
	if pending.Total != 0 {
		t.Errorf("pending = %d", pending.Total)
	}
}

// =====================================================
// Contact
// =====================================================

func TestContactMessages(t *testing.T) {
	f := newFixture(t)
	m, err := f.svc.SubmitContact(f.ctx, ContactInput{
		Name: "Camille", Email: "Camille@Example.com", Subject: "Sample request", Body: "Do you send samples?",
	})
	if err != nil {
		t.Fatalf("SubmitContact: %v", err)
	}
	if m.Email != "camille@example.com" || m.Read {
		t.Errorf("message = %+v", m)
	}
	sent := f.mail.Sent()
	if len(sent) != 1 || sent[0].To[0] != "shop@essence.test" || sent[0].ReplyTo != "camille@example.com" {
		t.Errorf("inbox mail = %+v", sent)
	}

	_, err = f.svc.SubmitContact(f.ctx, ContactInput{Name: "X", Email: "not-an-email", Subject: "S", Body: "B"})
	wantKind(t, err, apperr.KindValidation)

	unread, _ := f.svc.ListContacts(f.ctx, ContactFilter{Unread: true})
	if unread.Total != 1 {
		t.Errorf("unread = %d", unread.Total)
	}

	replied, err := f.svc.UpdateContact(f.ctx, m.ID, ContactUpdate{Replied: boolPtr(true)})
	if err != nil {
		t.Fatal(err)
	}
	if !replied.Read || replied.RepliedAt == nil {
		t.Errorf("after reply = %+v", replied)
	}
	unread, _ = f.svc.ListContacts(f.ctx, ContactFilter{Unread: true})
	if unread.Total != 0 {
		t.Errorf("unread after reply = %d", unread.Total)
	}

	if err := f.svc.DeleteContact(f.ctx, m.ID); err != nil {
		t.Fatal(err)
	}
	_, err = f.svc.GetContact(f.ctx, m.ID)
	wantKind(t, err, apperr.KindNotFound)
}

// =====================================================
// Dashboard
// =====================================================

func TestDashboard(t *testing.T) {
	f := newFixture(t)
	p := f.simpleProduct(t, "Patchouli", "PA-50", 100, 8)
	placeTestOrder(t, f, "", p, "PA-50", 1)
	cancelled := placeTestOrder(t, f, "", p, "PA-50", 2)
	if _, err := f.svc.TransitionOrder(f.ctx, cancelled.ID, TransitionInput{Status: models.OrderCancelled}); err != nil {
		t.Fatal(err)
	}
	placeTestOrder(t, f, "", p, "PA-50", 4)

	d, err := f.svc.Dashboard(f.ctx)
	if err != nil {
		t.Fatalf("Dashboard: %v", err)
	}
	if d.Counts["orders"] != 3 || d.Counts["products"] != 1 {
		t.Errorf("Counts = %v", d.Counts)
	}
	if d.Revenue != 500 {
		t.Errorf("Revenue = %v, want 500", d.Revenue)
	}
	if d.OrdersByStatus[models.OrderPending] != 2 || d.OrdersByStatus[models.OrderCancelled] != 1 {
		t.Errorf("OrdersByStatus = %v", d.OrdersByStatus)
	}
	if len(d.LowStock) != 1 || d.LowStock[0].Stock != 3 {
		t.Errorf("LowStock = %+v", d.LowStock)
	}
	if len(d.RecentOrders) != 3 {
		t.Errorf("RecentOrders = %d", len(d.RecentOrders))
	}

	// Cached until a mutation invalidates it.
	if _, err := f.svc.SubmitContact(f.ctx, ContactInput{Name: "A", Email: "a@example.com", Subject: "Hi", Body: "Hello"}); err != nil {
		t.Fatal(err)
	}
	d, _ = f.svc.Dashboard(f.ctx)
	if d.UnreadContacts != 1 {
		t.Errorf("UnreadContacts = %d, want 1", d.UnreadContacts)
	}
}
