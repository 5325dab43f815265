package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("PORT", "")
	t.Setenv("LOOP_INTERVAL_SECONDS", "")
	t.Setenv("DISPATCH_BATCH_SIZE", "")
	t.Setenv("POLL_BATCH_SIZE", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.StorageBaseURL != "http://localhost:8080/static" {
		t.Fatalf("StorageBaseURL = %q", cfg.StorageBaseURL)
	}
	if cfg.LoopInterval != 5*time.Second {
		t.Fatalf("LoopInterval = %s, want 5s", cfg.LoopInterval)
	}
	if cfg.DispatchBatch != 5 || cfg.PollBatch != 10 {
		t.Fatalf("batch sizes = %d/%d, want 5/10", cfg.DispatchBatch, cfg.PollBatch)
	}
	if cfg.HTTPReadHeaderTimeout != 5*time.Second {
		t.Fatalf("HTTPReadHeaderTimeout = %s, want 5s", cfg.HTTPReadHeaderTimeout)
	}
}

func TestLoadConfigHonorsHTTPTimeouts(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("HTTP_READ_HEADER_TIMEOUT_SECONDS", "2")
	t.Setenv("HTTP_IDLE_TIMEOUT_SECONDS", "120")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.HTTPReadHeaderTimeout != 2*time.Second {
		t.Fatalf("HTTPReadHeaderTimeout = %s, want 2s", cfg.HTTPReadHeaderTimeout)
	}
	if cfg.HTTPIdleTimeout != 120*time.Second {
		t.Fatalf("HTTPIdleTimeout = %s, want 120s", cfg.HTTPIdleTimeout)
	}
}

func TestLoadConfigRequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error without DATABASE_URL")
	}
}

func TestLoadConfigHonorsLoopTuning(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("LOOP_INTERVAL_SECONDS", "30")
	t.Setenv("DISPATCH_BATCH_SIZE", "2")
	t.Setenv("POLL_BATCH_SIZE", "25")
	t.Setenv("PROVIDER_SEED_FILE", "/etc/broker/providers.yaml")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.LoopInterval != 30*time.Second {
		t.Fatalf("LoopInterval = %s, want 30s", cfg.LoopInterval)
	}
	if cfg.DispatchBatch != 2 || cfg.PollBatch != 25 {
		t.Fatalf("batch sizes = %d/%d, want 2/25", cfg.DispatchBatch, cfg.PollBatch)
	}
	if cfg.ProviderSeedFile != "/etc/broker/providers.yaml" {
		t.Fatalf("ProviderSeedFile = %q", cfg.ProviderSeedFile)
	}
}

func TestLoadConfigRejectsNonPositiveBatches(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://example")
	t.Setenv("DISPATCH_BATCH_SIZE", "-3")
	t.Setenv("POLL_BATCH_SIZE", "0")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig returned error: %v", err)
	}
	if cfg.DispatchBatch != 5 || cfg.PollBatch != 10 {
		t.Fatalf("batch sizes = %d/%d, want defaults restored", cfg.DispatchBatch, cfg.PollBatch)
	}
}
