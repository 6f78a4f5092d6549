package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	t.Setenv("DATABASE_URL", "postgres://localhost/raceresults")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_DatabaseURLRequired(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoad_JobTokenRequiredInProd(t *testing.T) {
	t.Setenv("APP_ENV", EnvProd)
	t.Setenv("DATABASE_URL", "postgres://localhost/raceresults")
	t.Setenv("INTERNAL_JOB_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error in prod without INTERNAL_JOB_TOKEN")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DATABASE_URL", "postgres://localhost/raceresults")
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_SourceAdapterDefaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DATABASE_URL", "postgres://localhost/raceresults")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SporthivePageDelay != 300*time.Millisecond {
		t.Fatalf("unexpected SporthivePageDelay: %s", cfg.SporthivePageDelay)
	}
	if cfg.SporthiveMaxRetries != 2 {
		t.Fatalf("unexpected SporthiveMaxRetries: %d", cfg.SporthiveMaxRetries)
	}
	if cfg.RaceResultTimeout != 20*time.Second {
		t.Fatalf("unexpected RaceResultTimeout: %s", cfg.RaceResultTimeout)
	}
	if cfg.WriteTimeout != 10*time.Minute {
		t.Fatalf("unexpected WriteTimeout: %s", cfg.WriteTimeout)
	}
}

func TestLoad_PageDelayMustBePositive(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("DATABASE_URL", "postgres://localhost/raceresults")
	t.Setenv("SPORTHIVE_PAGE_DELAY", "0s")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for non-positive SPORTHIVE_PAGE_DELAY")
	}
}
