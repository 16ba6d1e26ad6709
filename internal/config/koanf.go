// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/essence/config.yaml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

// DotEnvFile is read into the process environment by Load when present.
const DotEnvFile = ".env"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			Environment:     "development",
		},
		API: APIConfig{
			DefaultPageSize: 24,
			MaxPageSize:     100,
		},
		Database: DatabaseConfig{
			Engine:         "badger",
			BadgerPath:     "/data/essence",
			InMemory:       false,
			MongoURI:       "mongodb://127.0.0.1:27017",
			MongoDatabase:  "essence",
			ConnectTimeout: 10 * time.Second,
			GCInterval:     10 * time.Minute,
		},
		Cache: CacheConfig{
			StorefrontTTL: 30 * time.Second,
			FiltersTTL:    600 * time.Second,
			DashboardTTL:  60 * time.Second,
			SweepInterval: 5 * time.Minute,
		},
		Jobs: JobsConfig{
			Enabled:            true,
			TopN:               12,
			BestsellerInterval: time.Hour,
			TrendingInterval:   30 * time.Minute,
			TopRatedInterval:   time.Hour,
			NewInterval:        6 * time.Hour,
			TrendingWindow:     7 * 24 * time.Hour,
			NewWindow:          30 * 24 * time.Hour,
			MinReviews:         3,
		},
		Shop: ShopConfig{
			Name:                  "Essence",
			Currency:              "EUR",
			ShippingFee:           4.90,
			FreeShippingThreshold: 75,
			LowStockThreshold:     5,
			MaxItemsPerOrder:      20,
		},
		Security: SecurityConfig{
			JWTSecret:         "",
			TokenTTL:          24 * time.Hour,
			AdminEmail:        "",
			AdminPassword:     "",
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Mail: MailConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          587,
			StartTLS:      true,
			From:          "shop@essence.local",
			ShopInbox:     "contact@essence.local",
			Timeout:       10 * time.Second,
			RatePerMinute: 30,
		},
		Audit: AuditConfig{
			Enabled:         true,
			BufferSize:      1000,
			Retention:       90 * 24 * time.Hour,
			CleanupInterval: 24 * time.Hour,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Supervisor: SupervisorConfig{
			FailureThreshold: 5,
			FailureDecay:     30,
			FailureBackoff:   15 * time.Second,
			ShutdownTimeout:  10 * time.Second,
		},
	}
}

// Load reads .env (if any) and then loads configuration with LoadWithKoanf.
func Load() (*Config, error) {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read %s: %w", DotEnvFile, err)
	}
	return LoadWithKoanf()
}

// LoadWithKoanf loads configuration in three layers, later layers winning:
//  1. built-in defaults
//  2. optional YAML config file
//  3. environment variables listed in envMappings
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := findConfigFile(); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		raw, ok := k.Get(path).(string)
		if !ok || raw == "" {
			continue
		}
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		if err := k.Set(path, values); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Server
	"http_port":        "server.port",
	"http_host":        "server.host",
	"http_timeout":     "server.timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"environment":      "server.environment",

	// API
	"api_default_page_size": "api.default_page_size",
	"api_max_page_size":     "api.max_page_size",

	// Database
	"db_engine":          "database.engine",
	"badger_path":        "database.badger_path",
	"db_in_memory":       "database.in_memory",
	"mongo_uri":          "database.mongo_uri",
	"mongo_database":     "database.mongo_database",
	"db_connect_timeout": "database.connect_timeout",
	"badger_gc_interval": "database.gc_interval",

	// Cache
	"cache_storefront_ttl": "cache.storefront_ttl",
	"cache_filters_ttl":    "cache.filters_ttl",
	"cache_dashboard_ttl":  "cache.dashboard_ttl",
	"cache_sweep_interval": "cache.sweep_interval",

	// Flag jobs
	"jobs_enabled":             "jobs.enabled",
	"jobs_top_n":               "jobs.top_n",
	"jobs_bestseller_interval": "jobs.bestseller_interval",
	"jobs_trending_interval":   "jobs.trending_interval",
	"jobs_top_rated_interval":  "jobs.top_rated_interval",
	"jobs_new_interval":        "jobs.new_interval",
	"jobs_trending_window":     "jobs.trending_window",
	"jobs_new_window":          "jobs.new_window",
	"jobs_min_reviews":         "jobs.min_reviews",

	// Shop
	"shop_name":                    "shop.name",
	"shop_currency":                "shop.currency",
	"shop_shipping_fee":            "shop.shipping_fee",
	"shop_free_shipping_threshold": "shop.free_shipping_threshold",
	"shop_low_stock_threshold":     "shop.low_stock_threshold",
	"shop_max_items_per_order":     "shop.max_items_per_order",

	// Security
	"jwt_secret":          "security.jwt_secret",
	"token_ttl":           "security.token_ttl",
	"admin_email":         "security.admin_email",
	"admin_password":      "security.admin_password",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Mail
	"smtp_enabled":         "mail.enabled",
	"smtp_host":            "mail.host",
	"smtp_port":            "mail.port",
	"smtp_username":        "mail.username",
	"smtp_password":        "mail.password",
	"smtp_starttls":        "mail.starttls",
	"mail_from":            "mail.from",
	"mail_shop_inbox":      "mail.shop_inbox",
	"smtp_timeout":         "mail.timeout",
	"mail_rate_per_minute": "mail.rate_per_minute",

	// Audit
	"audit_enabled":          "audit.enabled",
	"audit_buffer_size":      "audit.buffer_size",
	"audit_retention":        "audit.retention",
	"audit_cleanup_interval": "audit.cleanup_interval",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Supervisor
	"supervisor_failure_threshold": "supervisor.failure_threshold",
	"supervisor_failure_decay":     "supervisor.failure_decay",
	"supervisor_failure_backoff":   "supervisor.failure_backoff",
	"supervisor_shutdown_timeout":  "supervisor.shutdown_timeout",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
