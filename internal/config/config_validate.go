// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/essence-shop/essence/internal/logging"
)

// minJWTSecretLength applies in production only.
const minJWTSecretLength = 32

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateServer,
		c.validateAPI,
		c.validateDatabase,
		c.validateJobs,
		c.validateShop,
		c.validateSecurity,
		c.validateMail,
		c.validateAudit,
		c.validateLogging,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	switch c.Server.Environment {
	case "development", "staging", "production":
	default:
		return fmt.Errorf("ENVIRONMENT must be development, staging or production, got %q", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateAPI() error {
	if c.API.DefaultPageSize < 1 {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be at least 1")
	}
	if c.API.MaxPageSize < c.API.DefaultPageSize {
		return fmt.Errorf("API_MAX_PAGE_SIZE (%d) must be >= API_DEFAULT_PAGE_SIZE (%d)",
			c.API.MaxPageSize, c.API.DefaultPageSize)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	switch c.Database.Engine {
	case "badger":
		if !c.Database.InMemory && c.Database.BadgerPath == "" {
			return fmt.Errorf("BADGER_PATH is required when DB_ENGINE=badger")
		}
	case "mongo":
		u, err := url.Parse(c.Database.MongoURI)
		if err != nil || (u.Scheme != "mongodb" && u.Scheme != "mongodb+srv") {
			return fmt.Errorf("MONGO_URI must be a mongodb:// or mongodb+srv:// URI")
		}
		if c.Database.MongoDatabase == "" {
			return fmt.Errorf("MONGO_DATABASE is required when DB_ENGINE=mongo")
		}
	default:
		return fmt.Errorf("DB_ENGINE must be badger or mongo, got %q", c.Database.Engine)
	}
	return nil
}

func (c *Config) validateJobs() error {
	if !c.Jobs.Enabled {
		return nil
	}
	if c.Jobs.TopN < 1 {
		return fmt.Errorf("JOBS_TOP_N must be at least 1")
	}
	intervals := map[string]int64{
		"JOBS_BESTSELLER_INTERVAL": int64(c.Jobs.BestsellerInterval),
		"JOBS_TRENDING_INTERVAL":   int64(c.Jobs.TrendingInterval),
		"JOBS_TOP_RATED_INTERVAL":  int64(c.Jobs.TopRatedInterval),
		"JOBS_NEW_INTERVAL":        int64(c.Jobs.NewInterval),
	}
	for name, d := range intervals {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	return nil
}

func (c *Config) validateAudit() error {
	if !c.Audit.Enabled {
		return nil
	}
	if c.Audit.BufferSize < 1 {
		return fmt.Errorf("AUDIT_BUFFER_SIZE must be at least 1")
	}
	if c.Audit.Retention < 0 {
		return fmt.Errorf("AUDIT_RETENTION must not be negative")
	}
	return nil
}

func (c *Config) validateShop() error {
	if c.Shop.ShippingFee < 0 || c.Shop.FreeShippingThreshold < 0 {
		return fmt.Errorf("SHOP_SHIPPING_FEE and SHOP_FREE_SHIPPING_THRESHOLD must not be negative")
	}
	if c.Shop.MaxItemsPerOrder < 1 {
		return fmt.Errorf("SHOP_MAX_ITEMS_PER_ORDER must be at least 1")
	}
	return nil
}

func (c *Config) validateSecurity() error {
	if c.Security.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	if c.IsProduction() && len(c.Security.JWTSecret) < minJWTSecretLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in production", minJWTSecretLength)
	}
	if (c.Security.AdminEmail == "") != (c.Security.AdminPassword == "") {
		return fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}
	if c.Security.AdminPassword != "" && len(c.Security.AdminPassword) < 8 {
		return fmt.Errorf("ADMIN_PASSWORD must be at least 8 characters")
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	if c.IsProduction() {
		for _, o := range c.Security.CORSOrigins {
			if strings.TrimSpace(o) == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain * in production")
			}
		}
	}
	return nil
}

func (c *Config) validateMail() error {
	if !c.Mail.Enabled {
		return nil
	}
	if c.Mail.Host == "" {
		return fmt.Errorf("SMTP_HOST is required when SMTP_ENABLED=true")
	}
	if c.Mail.Port < 1 || c.Mail.Port > 65535 {
		return fmt.Errorf("SMTP_PORT must be between 1 and 65535")
	}
	if !strings.Contains(c.Mail.From, "@") {
		return fmt.Errorf("MAIL_FROM must be an email address")
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
