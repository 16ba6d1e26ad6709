// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	_ "github.com/essence-shop/essence/docs" // registers the OpenAPI document served under /swagger
	"github.com/essence-shop/essence/internal/auth"
	"github.com/essence-shop/essence/internal/authz"
	"github.com/essence-shop/essence/internal/middleware"
)

// Router sets up HTTP routes using Chi router.
type Router struct {
	handler       *Handler
	tokens        *auth.TokenManager
	enforcer      *authz.Enforcer
	chiMiddleware *ChiMiddleware
	perfMon       *middleware.PerformanceMonitor
}

// NewRouter creates a router. chiMiddleware and perfMon may be nil.
func NewRouter(handler *Handler, tokens *auth.TokenManager, enforcer *authz.Enforcer, chiMiddleware *ChiMiddleware, perfMon *middleware.PerformanceMonitor) *Router {
	if chiMiddleware == nil {
		chiMiddleware = NewChiMiddleware(nil)
	}
	return &Router{
		handler:       handler,
		tokens:        tokens,
		enforcer:      enforcer,
		chiMiddleware: chiMiddleware,
		perfMon:       perfMon,
	}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	// ========================
	// Global Middleware Stack
	// ========================
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(stampStart)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS()) // global so OPTIONS preflight is answered
	r.Use(APISecurityHeaders())
	r.Use(middleware.PrometheusMetrics)
	if router.perfMon != nil {
		r.Use(router.perfMon.Middleware)
	}
	r.Use(middleware.Compression)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		respondError(w, req, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, "Method not allowed", nil)
	})

	// ========================
	// Probes, metrics and API docs
	// ========================
	r.Group(func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Get("/health", router.handler.Health)
		r.Get("/health/ready", router.handler.HealthReady)
		r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
		httpSwagger.DeepLinking(true),
		httpSwagger.DocExpansion("list"),
		httpSwagger.DomID("swagger-ui"),
	))

	// ========================
	// API v1
	// ========================
	// Every route below resolves the caller and checks the role policy on
	// the request path before the handler runs.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		if timeout := router.handler.config.Server.Timeout; timeout > 0 {
			r.Use(chimiddleware.Timeout(timeout))
		}
		r.Use(auth.Authenticate(router.tokens, router.handler.shop, writeServiceError))
		r.Use(authz.AuthorizeRequest(router.enforcer, writeServiceError))

		r.Route("/auth", router.registerAuthRoutes)
		r.Route("/store", router.registerStoreRoutes)
		r.Route("/account", router.registerAccountRoutes)
		r.Route("/admin", router.registerAdminRoutes)
	})

	return r
}

func (router *Router) registerAuthRoutes(r chi.Router) {
	h := router.handler
	r.With(router.chiMiddleware.RateLimitRegister()).Post("/register", h.Register)
	r.With(router.chiMiddleware.RateLimitLogin()).Post("/login", h.Login)
	r.Post("/logout", h.Logout)
	r.Get("/me", h.Me)
}

func (router *Router) registerStoreRoutes(r chi.Router) {
	h := router.handler
	r.Get("/home", h.StoreHome)
	r.Get("/products", h.StoreProducts)
	r.Get("/products/{slug}", h.StoreProduct)
	r.Get("/products/{slug}/reviews", h.StoreReviews)
	r.Post("/products/{slug}/reviews", h.PostReview)
	r.Get("/filters", h.StoreFilters)
	r.Get("/search", h.StoreSearch)
	r.With(router.chiMiddleware.RateLimitContact()).Post("/contact", h.SubmitContact)
	r.With(router.chiMiddleware.RateLimitCheckout()).Post("/checkout", h.Checkout)
}

func (router *Router) registerAccountRoutes(r chi.Router) {
	h := router.handler
	r.Use(auth.RequireUser(writeServiceError))

	r.Get("/", h.AccountProfile)
	r.Get("/profile", h.AccountProfile)
	r.Put("/profile", h.AccountUpdateProfile)
	r.Put("/password", h.AccountChangePassword)

	r.Route("/addresses", func(r chi.Router) {
		r.Get("/", h.AccountAddresses)
		r.Post("/", h.AccountCreateAddress)
		r.Put("/{id}", h.AccountUpdateAddress)
		r.Delete("/{id}", h.AccountDeleteAddress)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.AccountOrders)
		r.Get("/{id}", h.AccountOrder)
		r.Post("/{id}/cancel", h.AccountCancelOrder)
	})
}

func (router *Router) registerAdminRoutes(r chi.Router) {
	h := router.handler
	svc := h.shop

	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.AdminProducts)
		r.Post("/", h.AdminCreateProduct)
		r.Get("/{id}", h.AdminProduct)
		r.Put("/{id}", h.AdminUpdateProduct)
		r.Delete("/{id}", h.AdminDeleteProduct)
		r.Put("/{id}/discount", h.AdminSetDiscount)
		r.Post("/{id}/stock", h.AdminAdjustStock)
	})

	r.Route("/brands", func(r chi.Router) { mountTaxonomy(r, svc.Brands()) })
	r.Route("/categories", func(r chi.Router) { mountTaxonomy(r, svc.Categories()) })
	r.Route("/collections", func(r chi.Router) { mountTaxonomy(r, svc.Collections()) })
	r.Route("/scents", func(r chi.Router) { mountTaxonomy(r, svc.Scents()) })

	r.Route("/banners", func(r chi.Router) {
		r.Get("/", h.AdminBanners)
		r.Post("/", h.AdminCreateBanner)
		r.Get("/{id}", h.AdminBanner)
		r.Put("/{id}", h.AdminUpdateBanner)
		r.Delete("/{id}", h.AdminDeleteBanner)
	})

	r.Route("/orders", func(r chi.Router) {
		r.Get("/", h.AdminOrders)
		r.Get("/{id}", h.AdminOrder)
		r.Put("/{id}/status", h.AdminTransitionOrder)
	})

	r.Route("/users", func(r chi.Router) {
		r.Get("/", h.AdminUsers)
		r.Get("/{id}", h.AdminUser)
		r.Put("/{id}", h.AdminUpdateUser)
		r.Delete("/{id}", h.AdminDeleteUser)
	})

	r.Route("/reviews", func(r chi.Router) {
		r.Get("/", h.AdminReviews)
		r.Put("/{id}/approval", h.AdminModerateReview)
		r.Delete("/{id}", h.AdminDeleteReview)
	})

	r.Route("/contacts", func(r chi.Router) {
		r.Get("/", h.AdminContacts)
		r.Get("/{id}", h.AdminContact)
		r.Put("/{id}", h.AdminUpdateContact)
		r.Delete("/{id}", h.AdminDeleteContact)
	})

	r.Get("/dashboard", h.AdminDashboard)
	r.Get("/jobs", h.AdminJobs)
	r.Post("/jobs/{name}/run", h.AdminRunJob)
	r.Post("/flags/{flag}/recompute", h.AdminRecomputeFlag)
	r.Get("/cache", h.AdminCache)
	r.Post("/cache/invalidate", h.AdminInvalidateCache)
	r.Get("/performance", h.AdminPerformance)
	r.Get("/audit", h.AdminAudit)
}

// DefaultSlowRequestThreshold is the latency above which the performance
// monitor logs a request.
const DefaultSlowRequestThreshold = 500 * time.Millisecond
