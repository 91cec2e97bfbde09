package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source != "" {
		t.Fatalf("expected no config file, got %s", cfg.Source)
	}
	if cfg.Database.DBName != "fieldtrack" || cfg.Database.Port != 5432 {
		t.Fatalf("unexpected database defaults: %+v", cfg.Database)
	}
	if cfg.HTTP.Addr != ":8080" {
		t.Fatalf("unexpected http addr %q", cfg.HTTP.Addr)
	}
	if cfg.Tracking.CatalogCacheTTL != 5*time.Minute || cfg.Tracking.CatalogCacheSize != 512 {
		t.Fatalf("unexpected catalog cache defaults: %+v", cfg.Tracking)
	}
	if cfg.Tracking.DefaultLocale != "en-US" || cfg.Tracking.DefaultTimeZone != "UTC" {
		t.Fatalf("unexpected locale defaults: %+v", cfg.Tracking)
	}
}

func TestLoadFileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	yaml := `
database:
  host: db.internal
  dbname: audit
http:
  cors_origins:
    - https://admin.example.com
redis:
  addr: localhost:6379
tracking:
  diff_workers: 4
  catalog_cache_ttl: 30s
  default_locale: fr
  default_timezone: Europe/Paris
`
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("FIELDTRACK_DATABASE_HOST", "override.internal")
	t.Setenv("FIELDTRACK_LOG_LEVEL", "debug")

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Source == "" {
		t.Fatalf("expected config file to be recorded")
	}
	if cfg.Database.Host != "override.internal" {
		t.Fatalf("expected env to override host, got %s", cfg.Database.Host)
	}
	if cfg.Database.DBName != "audit" {
		t.Fatalf("expected dbname from file, got %s", cfg.Database.DBName)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("expected log level from env, got %s", cfg.Log.Level)
	}
	if len(cfg.HTTP.CORSOrigins) != 1 || cfg.HTTP.CORSOrigins[0] != "https://admin.example.com" {
		t.Fatalf("unexpected cors origins %v", cfg.HTTP.CORSOrigins)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Fatalf("unexpected redis addr %q", cfg.Redis.Addr)
	}
	if cfg.Tracking.DiffWorkers != 4 || cfg.Tracking.CatalogCacheTTL != 30*time.Second {
		t.Fatalf("unexpected tracking config %+v", cfg.Tracking)
	}
	if cfg.Tracking.DefaultLocale != "fr" || cfg.Tracking.DefaultTimeZone != "Europe/Paris" {
		t.Fatalf("unexpected locale config %+v", cfg.Tracking)
	}
}
