// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigValidates(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("DefaultConfig().Validate() = %v, want nil", err)
	}
}

func TestValidateRejectsBadWeights(t *testing.T) {
	tests := []struct {
		name    string
		content float64
		collab  float64
	}{
		{name: "sum below one", content: 0.5, collab: 0.4},
		{name: "sum above one", content: 0.7, collab: 0.5},
		{name: "full content plus collab", content: 1.0, collab: 0.1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Recommend.ContentWeight = tt.content
			cfg.Recommend.CollaborativeWeight = tt.collab

			err := cfg.Validate()
			if !errors.Is(err, ErrInvalidWeights) {
				t.Errorf("Validate() = %v, want ErrInvalidWeights", err)
			}
		})
	}
}

func TestValidateToleratesFloatRounding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Recommend.ContentWeight = 0.7
	cfg.Recommend.CollaborativeWeight = 0.1 + 0.1 + 0.1 // 0.30000000000000004

	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil within epsilon", err)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalog.Providers = []string{"openlibrary", "librarything"}

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for unknown provider")
	}
}

func TestValidateRejectsBackoffInversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Catalog.BackoffInitial = 10 * time.Second
	cfg.Catalog.BackoffMax = time.Second

	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for backoff_max < backoff_initial")
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8480 {
		t.Errorf("Server.Port = %d, want 8480", cfg.Server.Port)
	}
	if cfg.Recommend.ContentWeight != 0.6 || cfg.Recommend.CollaborativeWeight != 0.4 {
		t.Errorf("weights = %g/%g, want 0.6/0.4",
			cfg.Recommend.ContentWeight, cfg.Recommend.CollaborativeWeight)
	}
	if len(cfg.Catalog.Providers) != 2 || cfg.Catalog.Providers[0] != "openlibrary" {
		t.Errorf("Providers = %v, want openlibrary first", cfg.Catalog.Providers)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LIBRARIA_SERVER_PORT", "9000")
	t.Setenv("LIBRARIA_CATALOG_MAX_ATTEMPTS", "5")
	t.Setenv("LIBRARIA_CATALOG_PROVIDERS", "googlebooks,openlibrary")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Catalog.MaxAttempts != 5 {
		t.Errorf("Catalog.MaxAttempts = %d, want 5", cfg.Catalog.MaxAttempts)
	}
	if len(cfg.Catalog.Providers) != 2 || cfg.Catalog.Providers[0] != "googlebooks" {
		t.Errorf("Providers = %v, want googlebooks first", cfg.Catalog.Providers)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("server:\n  port: 8999\nrecommend:\n  default_top_n: 15\n  max_top_n: 30\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 8999 {
		t.Errorf("Server.Port = %d, want 8999 from file", cfg.Server.Port)
	}
	if cfg.Recommend.DefaultTopN != 15 || cfg.Recommend.MaxTopN != 30 {
		t.Errorf("top_n = %d/%d, want 15/30", cfg.Recommend.DefaultTopN, cfg.Recommend.MaxTopN)
	}
	// Untouched sections keep defaults.
	if cfg.Profiles.GCInterval != 10*time.Minute {
		t.Errorf("Profiles.GCInterval = %v, want default", cfg.Profiles.GCInterval)
	}
}

func TestLoadRejectsInvalidFileWeights(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := []byte("recommend:\n  content_weight: 0.9\n  collaborative_weight: 0.9\n")
	if err := os.WriteFile(path, yaml, 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(ConfigPathEnvVar, path)

	if _, err := Load(); !errors.Is(err, ErrInvalidWeights) {
		t.Errorf("Load() error = %v, want ErrInvalidWeights", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"LIBRARIA_SERVER_PORT", "server.port"},
		{"LIBRARIA_CATALOG_MAX_ATTEMPTS", "catalog.max_attempts"},
		{"LIBRARIA_RECOMMEND_CONTENT_WEIGHT", "recommend.content_weight"},
		{"LIBRARIA_LOGGING_LEVEL", "logging.level"},
	}

	for _, tt := range tests {
		if got := envTransformFunc(tt.in); got != tt.want {
			t.Errorf("envTransformFunc(%s) = %s, want %s", tt.in, got, tt.want)
		}
	}
}
