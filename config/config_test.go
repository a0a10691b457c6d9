package config

import (
	"os"
	"testing"
	"time"
)

func setEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("setenv %s failed: %v", key, err)
	}
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

func unsetEnv(t *testing.T, key string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	_ = os.Unsetenv(key)
	t.Cleanup(func() {
		if had {
			_ = os.Setenv(key, old)
		}
	})
}

func TestLoadRequiresMySQLDSN(t *testing.T) {
	unsetEnv(t, "MYSQL_DSN")
	_, err := Load()
	if err == nil {
		t.Fatal("expected error for missing MYSQL_DSN")
	}
}

func TestLoadDefaultsAndOverrides(t *testing.T) {
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/donations?parseTime=true")
	setEnv(t, "APP_SERVICE_NAME", "donations-test")
	setEnv(t, "HTTP_PORT", "8181")
	setEnv(t, "MYSQL_MAX_OPEN_CONNS", "20")
	setEnv(t, "MYSQL_CONN_MAX_LIFETIME_MINUTES", "40")
	setEnv(t, "BRAINTREE_USE_SANDBOX", "true")
	setEnv(t, "STRIPE_SIGNATURE_TOLERANCE_SECONDS", "120")
	setEnv(t, "JOBS_WORKER_INTERVAL_SECONDS", "9")
	setEnv(t, "JOBS_BATCH_SIZE", "25")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.App.ServiceName != "donations-test" {
		t.Fatalf("unexpected service name: %s", cfg.App.ServiceName)
	}
	if cfg.HTTP.Port != "8181" {
		t.Fatalf("unexpected http port: %s", cfg.HTTP.Port)
	}
	if cfg.MySQL.MaxOpenConns != 20 {
		t.Fatalf("unexpected max open conns: %d", cfg.MySQL.MaxOpenConns)
	}
	if cfg.MySQL.ConnMaxLifetime != 40*time.Minute {
		t.Fatalf("unexpected conn max lifetime: %s", cfg.MySQL.ConnMaxLifetime)
	}
	if !cfg.Braintree.UseSandbox {
		t.Fatal("expected sandbox mode")
	}
	if cfg.Braintree.FraudSiteID != "mofo" {
		t.Fatalf("unexpected fraud site id: %s", cfg.Braintree.FraudSiteID)
	}
	if cfg.Stripe.SignatureToleranceSeconds != 120 {
		t.Fatalf("unexpected tolerance: %d", cfg.Stripe.SignatureToleranceSeconds)
	}
	if cfg.Jobs.WorkerInterval != 9*time.Second {
		t.Fatalf("unexpected worker interval: %s", cfg.Jobs.WorkerInterval)
	}
	if cfg.Jobs.BatchSize != 25 {
		t.Fatalf("unexpected batch size: %d", cfg.Jobs.BatchSize)
	}
}

func TestGetMapEnv(t *testing.T) {
	setEnv(t, "BRAINTREE_PLANS", "usd:usd-plan, eur:eur-plan,broken,gbp: gbp-plan")
	setEnv(t, "MYSQL_DSN", "root:root@tcp(localhost:3306)/donations?parseTime=true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	plans := cfg.Braintree.Plans
	if len(plans) != 3 {
		t.Fatalf("unexpected plan count: %d", len(plans))
	}
	if plans["usd"] != "usd-plan" || plans["eur"] != "eur-plan" || plans["gbp"] != "gbp-plan" {
		t.Fatalf("unexpected plans: %v", plans)
	}
}
