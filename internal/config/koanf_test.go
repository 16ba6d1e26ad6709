// Essence - Perfume Storefront and Back-Office
// Copyright 2026 The Essence Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/essence-shop/essence

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Server.Port != 8080 {
		t.Errorf("Server.Port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Database.Engine != "badger" {
		t.Errorf("Database.Engine = %q, want badger", cfg.Database.Engine)
	}
	if cfg.Cache.StorefrontTTL != 30*time.Second {
		t.Errorf("Cache.StorefrontTTL = %v, want 30s", cfg.Cache.StorefrontTTL)
	}
	if cfg.Cache.FiltersTTL != 600*time.Second {
		t.Errorf("Cache.FiltersTTL = %v, want 10m", cfg.Cache.FiltersTTL)
	}
	if cfg.Cache.DashboardTTL != time.Minute {
		t.Errorf("Cache.DashboardTTL = %v, want 1m", cfg.Cache.DashboardTTL)
	}
	if cfg.Jobs.TrendingWindow != 7*24*time.Hour {
		t.Errorf("Jobs.TrendingWindow = %v, want 168h", cfg.Jobs.TrendingWindow)
	}
	if cfg.Mail.Enabled {
		t.Error("Mail.Enabled should default to false")
	}
	if len(cfg.Security.CORSOrigins) != 1 || cfg.Security.CORSOrigins[0] != "*" {
		t.Errorf("Security.CORSOrigins = %v, want [*]", cfg.Security.CORSOrigins)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		env  string
		want string
	}{
		{"HTTP_PORT", "server.port"},
		{"DB_ENGINE", "database.engine"},
		{"MONGO_URI", "database.mongo_uri"},
		{"JWT_SECRET", "security.jwt_secret"},
		{"JOBS_TOP_N", "jobs.top_n"},
		{"SMTP_HOST", "mail.host"},
		{"AUDIT_RETENTION", "audit.retention"},
		{"LOG_LEVEL", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		if got := envTransformFunc(tt.env); got != tt.want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", tt.env, got, tt.want)
		}
	}
}

func TestLoadWithKoanf_EnvOverrides(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("CACHE_STOREFRONT_TTL", "45s")
	t.Setenv("CORS_ORIGINS", "https://shop.example, https://admin.example")
	t.Setenv("DB_IN_MEMORY", "true")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Cache.StorefrontTTL != 45*time.Second {
		t.Errorf("Cache.StorefrontTTL = %v, want 45s", cfg.Cache.StorefrontTTL)
	}
	if !cfg.Database.InMemory {
		t.Error("Database.InMemory should be true")
	}
	want := []string{"https://shop.example", "https://admin.example"}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[0] != want[0] || cfg.Security.CORSOrigins[1] != want[1] {
		t.Errorf("Security.CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
}

func TestLoadWithKoanf_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  port: 7000
  environment: staging
database:
  engine: mongo
  mongo_uri: mongodb://db:27017
  mongo_database: perfumes
security:
  jwt_secret: from-file
jobs:
  top_n: 8
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("JOBS_TOP_N", "20")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.Database.Engine != "mongo" || cfg.Database.MongoDatabase != "perfumes" {
		t.Errorf("Database = %+v", cfg.Database)
	}
	if cfg.Jobs.TopN != 20 {
		t.Errorf("Jobs.TopN = %d, want 20 (env wins over file)", cfg.Jobs.TopN)
	}
	if cfg.Security.JWTSecret != "from-file" {
		t.Errorf("Security.JWTSecret = %q", cfg.Security.JWTSecret)
	}
}

func TestLoadWithKoanf_MissingSecret(t *testing.T) {
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("JWT_SECRET", "")

	_, err := LoadWithKoanf()
	if err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}
