package config

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "jobtracker")
	t.Setenv("DB_USER", "postgres")
	t.Setenv("JWT_SECRET", "secret")
}

func TestFromEnv_MissingRequired(t *testing.T) {
	t.Setenv("HTTP_PORT", "")
	t.Setenv("DB_HOST", "")
	t.Setenv("DB_NAME", "")
	t.Setenv("DB_USER", "")
	t.Setenv("JWT_SECRET", "")

	_, err := FromEnv()
	if !errors.Is(err, errMissingRequiredEnv) {
		t.Fatalf("expected errMissingRequiredEnv, got %v", err)
	}
	for _, key := range []string{"HTTP_PORT", "DB_HOST", "JWT_SECRET"} {
		if !strings.Contains(err.Error(), key) {
			t.Fatalf("expected %s in error, got %q", key, err.Error())
		}
	}
}

func TestFromEnv_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if cfg.App.SiteURL != "http://localhost:8080" {
		t.Fatalf("unexpected site url %q", cfg.App.SiteURL)
	}
	if cfg.Storage.Driver != "local" || cfg.Storage.Bucket != "resumes" {
		t.Fatalf("unexpected storage defaults: %+v", cfg.Storage)
	}
	if cfg.Storage.MaxResumeBytes != DefaultMaxResumeBytes {
		t.Fatalf("expected 5 MiB résumé ceiling, got %d", cfg.Storage.MaxResumeBytes)
	}
	if cfg.JWT.MagicLinkExpiresIn != 15*time.Minute {
		t.Fatalf("unexpected magic link ttl %s", cfg.JWT.MagicLinkExpiresIn)
	}
	if cfg.App.IsProduction() {
		t.Fatalf("expected development environment by default")
	}
}

func TestFromEnv_InvalidDuration(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SESSION_EXPIRES_IN", "forever")

	_, err := FromEnv()
	if err == nil || !strings.Contains(err.Error(), "JWT_SESSION_EXPIRES_IN") {
		t.Fatalf("expected invalid duration error, got %v", err)
	}
}

func TestFromEnv_SupabaseRequiresCredentials(t *testing.T) {
	setRequired(t)
	t.Setenv("STORAGE_DRIVER", "supabase")
	t.Setenv("SUPABASE_URL", "")
	t.Setenv("SUPABASE_SERVICE_KEY", "")

	_, err := FromEnv()
	if !errors.Is(err, errMissingRequiredEnv) || !strings.Contains(err.Error(), "SUPABASE_URL") {
		t.Fatalf("expected missing supabase settings, got %v", err)
	}
}
