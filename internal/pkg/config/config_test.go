package config

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
)

func load(t *testing.T, env map[string]string) (*Config, error) {
	t.Helper()
	return loadWith(context.Background(), envconfig.MapLookuper(env))
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := load(t, map[string]string{"JWT_SECRET": "s3cret"})
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Port != "8080" || !cfg.IsDevelopment() {
		t.Errorf("unexpected server defaults: %+v", cfg)
	}
	if cfg.TokenTTL != 30*time.Minute {
		t.Errorf("expected 30m token ttl, got %v", cfg.TokenTTL)
	}
	if cfg.Vector.Backend != BackendMemory || cfg.Vector.NumCandidates != 10 {
		t.Errorf("unexpected vector defaults: %+v", cfg.Vector)
	}
	if cfg.Redis.Enabled || cfg.Redis.CacheTTL != 5*time.Minute {
		t.Errorf("unexpected redis defaults: %+v", cfg.Redis)
	}
	if cfg.Mongo.Database != "personar" {
		t.Errorf("unexpected mongo db %q", cfg.Mongo.Database)
	}
	if cfg.PublicLinkBase != "https://personar.world/p" {
		t.Errorf("unexpected link base %q", cfg.PublicLinkBase)
	}
}

func TestLoad_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"JWT_SECRET":            "s3cret",
		"ENV":                   "production",
		"VECTOR_BACKEND":        "pgvector",
		"POSTGRES_URL":          "postgres://localhost/personar?sslmode=disable",
		"VECTOR_NUM_CANDIDATES": "25",
		"REDIS_ENABLED":         "true",
		"ENROLL_WORKERS":        "8",
		"WEBCAM_FPS":            "15",
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.IsDevelopment() {
		t.Error("expected production")
	}
	if cfg.Vector.Backend != BackendPGVector || cfg.Vector.NumCandidates != 25 {
		t.Errorf("unexpected vector config: %+v", cfg.Vector)
	}
	if !cfg.Redis.Enabled || cfg.Enroll.Workers != 8 || cfg.Webcam.FPS != 15 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"unknown backend", map[string]string{"JWT_SECRET": "x", "VECTOR_BACKEND": "faiss"}, "VECTOR_BACKEND"},
		{"pgvector without url", map[string]string{"JWT_SECRET": "x", "VECTOR_BACKEND": "pgvector"}, "POSTGRES_URL"},
		{"one candidate", map[string]string{"JWT_SECRET": "x", "VECTOR_NUM_CANDIDATES": "1"}, "VECTOR_NUM_CANDIDATES"},
		{"short assertion key", map[string]string{"JWT_SECRET": "x", "IDENTITY_ASSERTION_KEY": "abcd"}, "IDENTITY_ASSERTION_KEY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.env)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %s", err, tc.want)
			}
		})
	}
}

func TestValidateAPI(t *testing.T) {
	cfg, err := load(t, map[string]string{})
	if err != nil {
		t.Fatalf("load without secret should succeed for the webcam command: %v", err)
	}
	if err := cfg.ValidateAPI(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}

	cfg.JWTSecret = "short"
	if err := cfg.ValidateAPI(); err != nil {
		t.Fatalf("short secret is fine in development: %v", err)
	}

	cfg.Env = "production"
	if err := cfg.ValidateAPI(); err == nil {
		t.Fatal("expected short secret to be rejected in production")
	}
}
