// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package shop

import (
	"context"
	"math"
	"strings"

	"github.com/essence-shop/essence/internal/apperr"
	"github.com/essence-shop/essence/internal/database"
	"github.com/essence-shop/essence/internal/logging"
	"github.com/essence-shop/essence/internal/models"
	"github.com/essence-shop/essence/internal/validation"
)

// ReviewInput is a customer review.
type ReviewInput struct {
	Rating int    `json:"rating" validate:"required,min=1,max=5"`
	Title  string `json:"title" validate:"max=160"`
	Body   string `json:"body" validate:"required,notblank,max=4000"`
}

// ReviewFilter selects reviews for moderation.
type ReviewFilter struct {
	ProductID string
	Approved  *bool
	Page      int
	PageSize  int
}

// PostReview records a review by userID for the active product with the
// given slug. Reviews wait for approval; a user reviews a product once.
func (s *Service) PostReview(ctx context.Context, userID, slug string, in ReviewInput) (*models.Review, error) {
	if err := validation.Check(&in); err != nil {
		return nil, err
	}
	user, err := s.activeUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	p, err := s.products.FindOne(ctx, database.Where(
		database.Eq(models.FieldSlug, slug),
		database.Eq(models.FieldActive, true),
	))
	if err != nil {
		return nil, storeErr(err, "product", slug)
	}
	dup, err := s.reviews.Exists(ctx, database.Where(
		database.Eq(models.FieldProductID, p.ID),
		database.Eq(models.FieldUserID, user.ID),
	))
	if err != nil {
		return nil, err
	}
	if dup {
		return nil, apperr.Conflict("You have already reviewed this product")
	}

	r := &models.Review{
		ProductID:  p.ID,
		UserID:     user.ID,
		AuthorName: user.Name,
		Rating:     in.Rating,
		Title:      strings.TrimSpace(in.Title),
		Body:       strings.TrimSpace(in.Body),
	}
	if err := s.reviews.Create(ctx, r); err != nil {
		return nil, storeErr(err, "review", "")
	}
	s.invalidate(ctx, PrefixDashboard)
	return r, nil
}

// ListReviews returns reviews for moderation, newest first.
func (s *Service) ListReviews(ctx context.Context, f ReviewFilter) (models.Page[*models.Review], error) {
	q := database.Where().OrderBy(models.FieldCreatedAt, true)
	if f.ProductID != "" {
		q = q.And(database.Eq(models.FieldProductID, f.ProductID))
	}
	if f.Approved != nil {
		q = q.And(database.Eq(models.FieldApproved, *f.Approved))
	}
	page, size := s.pageBounds(f.Page, f.PageSize)
	return s.reviews.Page(ctx, q, page, size)
}

// SetReviewApproval approves or hides a review and refreshes the product
// rating.
func (s *Service) SetReviewApproval(ctx context.Context, id string, approved bool) (*models.Review, error) {
	r, err := s.reviews.Mutate(ctx, id, func(r *models.Review) error {
		if r.Approved == approved {
			return database.ErrNoChange
		}
		r.Approved = approved
		return nil
	})
	if err != nil {
		return nil, storeErr(err, "review", id)
	}
	if err := s.recomputeRating(ctx, r.ProductID); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReview removes a review and refreshes the product rating.
func (s *Service) DeleteReview(ctx context.Context, id string) error {
	r, err := s.reviews.Get(ctx, id)
	if err != nil {
		return storeErr(err, "review", id)
	}
	if err := s.reviews.Delete(ctx, id); err != nil {
		return storeErr(err, "review", id)
	}
	return s.recomputeRating(ctx, r.ProductID)
}

// recomputeRating sets the rating aggregate of a product from its approved
// reviews.
func (s *Service) recomputeRating(ctx context.Context, productID string) error {
	reviews, err := s.reviews.List(ctx, database.Where(
		database.Eq(models.FieldProductID, productID),
		database.Eq(models.FieldApproved, true),
	))
	if err != nil {
		return err
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := 0.0
	if len(reviews) > 0 {
		avg = math.Round(float64(sum)/float64(len(reviews))*100) / 100
	}

	_, err = s.products.Mutate(ctx, productID, func(p *models.Product) error {
		if p.RatingAvg == avg && p.RatingCount == len(reviews) {
			return database.ErrNoChange
		}
		p.RatingAvg = avg
		p.RatingCount = len(reviews)
		return nil
	})
	if database.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return storeErr(err, "product", productID)
	}
	logging.Ctx(ctx).Debug().Str("product_id", productID).Float64("rating_avg", avg).Int("rating_count", len(reviews)).Msg("Rating recomputed")
	s.invalidate(ctx, PrefixStore, PrefixDashboard)
	return nil
}
