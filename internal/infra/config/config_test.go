package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "lumina-api" {
		t.Fatalf("unexpected app name: %s", cfg.App.Name)
	}
	if cfg.App.Port != 8080 {
		t.Fatalf("unexpected app port: %d", cfg.App.Port)
	}

	if !cfg.Redis.Enabled {
		t.Fatalf("redis should be enabled by default")
	}
	if cfg.Redis.OpTimeout != 2*time.Second {
		t.Fatalf("unexpected redis op timeout: %v", cfg.Redis.OpTimeout)
	}
	if cfg.Redis.TokenPrefix != "revocation:token" {
		t.Fatalf("unexpected token prefix: %s", cfg.Redis.TokenPrefix)
	}
	if cfg.Redis.SubjectPrefix != "revocation:subject" {
		t.Fatalf("unexpected subject prefix: %s", cfg.Redis.SubjectPrefix)
	}

	if cfg.JWT.AccessTokenTTL != 2*time.Hour {
		t.Fatalf("unexpected access token ttl: %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.JWT.RefreshTokenTTL != 720*time.Hour {
		t.Fatalf("unexpected refresh token ttl: %v", cfg.JWT.RefreshTokenTTL)
	}

	if cfg.Revocation.DegradationPolicy != "lenient" {
		t.Fatalf("unexpected degradation policy: %s", cfg.Revocation.DegradationPolicy)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LUMINA_APP_ENV", "production")
	t.Setenv("LUMINA_REDIS_ENABLED", "false")
	t.Setenv("LUMINA_JWT_ACCESS_TOKEN_TTL", "15m")
	t.Setenv("LUMINA_REVOCATION_DEGRADATION_POLICY", "strict")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Env != "production" {
		t.Fatalf("unexpected app env: %s", cfg.App.Env)
	}
	if cfg.Redis.Enabled {
		t.Fatalf("redis should be disabled via env")
	}
	if cfg.JWT.AccessTokenTTL != 15*time.Minute {
		t.Fatalf("unexpected access token ttl: %v", cfg.JWT.AccessTokenTTL)
	}
	if cfg.Revocation.DegradationPolicy != "strict" {
		t.Fatalf("unexpected degradation policy: %s", cfg.Revocation.DegradationPolicy)
	}
}
