// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

// Package config loads Essence configuration.
//
// Values are layered: built-in defaults, then an optional YAML file
// (CONFIG_PATH or ./config.yaml), then environment variables. A .env file in
// the working directory is read into the environment before loading.
package config

import "time"

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	API        APIConfig        `koanf:"api"`
	Database   DatabaseConfig   `koanf:"database"`
	Cache      CacheConfig      `koanf:"cache"`
	Jobs       JobsConfig       `koanf:"jobs"`
	Shop       ShopConfig       `koanf:"shop"`
	Security   SecurityConfig   `koanf:"security"`
	Mail       MailConfig       `koanf:"mail"`
	Audit      AuditConfig      `koanf:"audit"`
	Logging    LoggingConfig    `koanf:"logging"`
	Supervisor SupervisorConfig `koanf:"supervisor"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	Timeout         time.Duration `koanf:"timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	Environment     string        `koanf:"environment"` // development, staging, production
}

// APIConfig holds pagination settings.
type APIConfig struct {
	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`
}

// DatabaseConfig selects and configures the document store.
type DatabaseConfig struct {
	// Engine is "badger" (embedded) or "mongo".
	Engine         string        `koanf:"engine"`
	BadgerPath     string        `koanf:"badger_path"`
	InMemory       bool          `koanf:"in_memory"`
	MongoURI       string        `koanf:"mongo_uri"`
	MongoDatabase  string        `koanf:"mongo_database"`
	ConnectTimeout time.Duration `koanf:"connect_timeout"`
	// GCInterval is how often Badger's value log is compacted; 0 disables it.
	GCInterval time.Duration `koanf:"gc_interval"`
}

// CacheConfig holds TTLs for memoized reads.
type CacheConfig struct {
	StorefrontTTL time.Duration `koanf:"storefront_ttl"`
	FiltersTTL    time.Duration `koanf:"filters_ttl"`
	DashboardTTL  time.Duration `koanf:"dashboard_ttl"`
	SweepInterval time.Duration `koanf:"sweep_interval"`
}

// JobsConfig configures product flag recomputation.
type JobsConfig struct {
	Enabled            bool          `koanf:"enabled"`
	TopN               int           `koanf:"top_n"`
	BestsellerInterval time.Duration `koanf:"bestseller_interval"`
	TrendingInterval   time.Duration `koanf:"trending_interval"`
	TopRatedInterval   time.Duration `koanf:"top_rated_interval"`
	NewInterval        time.Duration `koanf:"new_interval"`
	TrendingWindow     time.Duration `koanf:"trending_window"`
	NewWindow          time.Duration `koanf:"new_window"`
	MinReviews         int           `koanf:"min_reviews"`
}

// ShopConfig holds storefront business rules.
type ShopConfig struct {
	Name                  string  `koanf:"name"`
	Currency              string  `koanf:"currency"`
	ShippingFee           float64 `koanf:"shipping_fee"`
	FreeShippingThreshold float64 `koanf:"free_shipping_threshold"`
	LowStockThreshold     int     `koanf:"low_stock_threshold"`
	MaxItemsPerOrder      int     `koanf:"max_items_per_order"`
}

// SecurityConfig holds authentication and HTTP hardening settings.
type SecurityConfig struct {
	JWTSecret         string        `koanf:"jwt_secret"`
	TokenTTL          time.Duration `koanf:"token_ttl"`
	AdminEmail        string        `koanf:"admin_email"`
	AdminPassword     string        `koanf:"admin_password"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// MailConfig configures outbound mail.
type MailConfig struct {
	// Enabled false logs messages instead of sending them.
	Enabled       bool          `koanf:"enabled"`
	Host          string        `koanf:"host"`
	Port          int           `koanf:"port"`
	Username      string        `koanf:"username"`
	Password      string        `koanf:"password"`
	StartTLS      bool          `koanf:"starttls"`
	From          string        `koanf:"from"`
	ShopInbox     string        `koanf:"shop_inbox"`
	Timeout       time.Duration `koanf:"timeout"`
	RatePerMinute int           `koanf:"rate_per_minute"`
}

// AuditConfig configures the back-office audit trail.
type AuditConfig struct {
	Enabled         bool          `koanf:"enabled"`
	BufferSize      int           `koanf:"buffer_size"`
	Retention       time.Duration `koanf:"retention"`
	CleanupInterval time.Duration `koanf:"cleanup_interval"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// SupervisorConfig tunes the suture tree.
type SupervisorConfig struct {
	FailureThreshold float64       `koanf:"failure_threshold"`
	FailureDecay     float64       `koanf:"failure_decay"`
	FailureBackoff   time.Duration `koanf:"failure_backoff"`
	ShutdownTimeout  time.Duration `koanf:"shutdown_timeout"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
