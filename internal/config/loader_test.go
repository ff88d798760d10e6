package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoader_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}

	if cfg.Pipeline.ClarificationThreshold != 0.7 {
		t.Errorf("Pipeline.ClarificationThreshold = %f, want 0.7", cfg.Pipeline.ClarificationThreshold)
	}
	if cfg.Pipeline.MaxRecoveryAttempts != 2 {
		t.Errorf("Pipeline.MaxRecoveryAttempts = %d, want 2", cfg.Pipeline.MaxRecoveryAttempts)
	}

	if cfg.Stages.Vision.Timeout != "45s" {
		t.Errorf("Stages.Vision.Timeout = %q, want %q", cfg.Stages.Vision.Timeout, "45s")
	}
	if cfg.Stages.Analysis.Timeout != "60s" {
		t.Errorf("Stages.Analysis.Timeout = %q, want %q", cfg.Stages.Analysis.Timeout, "60s")
	}
	if cfg.Stages.Synthesis.WarnFraction != 0.8 {
		t.Errorf("Stages.Synthesis.WarnFraction = %f, want 0.8", cfg.Stages.Synthesis.WarnFraction)
	}

	// Providers have NO default - user must configure them explicitly.
	if len(cfg.Providers) != 0 {
		t.Errorf("Providers = %v, want empty", cfg.Providers)
	}

	if cfg.Breaker.FailureThreshold != 5 {
		t.Errorf("Breaker.FailureThreshold = %d, want 5", cfg.Breaker.FailureThreshold)
	}
	if cfg.Breaker.RecoveryTimeout != "30s" {
		t.Errorf("Breaker.RecoveryTimeout = %q, want %q", cfg.Breaker.RecoveryTimeout, "30s")
	}

	if cfg.Retry.MaxAttempts != 3 {
		t.Errorf("Retry.MaxAttempts = %d, want 3", cfg.Retry.MaxAttempts)
	}
	if cfg.Retry.Multiplier != 2.0 {
		t.Errorf("Retry.Multiplier = %f, want 2.0", cfg.Retry.Multiplier)
	}

	if cfg.Fusion.AgreementMulti != 0.85 {
		t.Errorf("Fusion.AgreementMulti = %f, want 0.85", cfg.Fusion.AgreementMulti)
	}
	if cfg.Fusion.AgreementSingle != 0.65 {
		t.Errorf("Fusion.AgreementSingle = %f, want 0.65", cfg.Fusion.AgreementSingle)
	}

	if cfg.State.Backend != "sqlite" {
		t.Errorf("State.Backend = %q, want %q", cfg.State.Backend, "sqlite")
	}
	if cfg.State.CheckpointTTL != "24h" {
		t.Errorf("State.CheckpointTTL = %q, want %q", cfg.State.CheckpointTTL, "24h")
	}

	if cfg.Images.Source != "file" {
		t.Errorf("Images.Source = %q, want %q", cfg.Images.Source, "file")
	}
	if cfg.API.Addr != "127.0.0.1:8765" {
		t.Errorf("API.Addr = %q, want %q", cfg.API.Addr, "127.0.0.1:8765")
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("UXRAY_LOG_LEVEL", "debug")
	t.Setenv("UXRAY_PIPELINE_CLARIFICATION_THRESHOLD", "0.9")
	t.Setenv("UXRAY_STATE_BACKEND", "json")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want env override %q", cfg.Log.Level, "debug")
	}
	if cfg.Pipeline.ClarificationThreshold != 0.9 {
		t.Errorf("Pipeline.ClarificationThreshold = %f, want 0.9", cfg.Pipeline.ClarificationThreshold)
	}
	if cfg.State.Backend != "json" {
		t.Errorf("State.Backend = %q, want %q", cfg.State.Backend, "json")
	}
}

func TestLoader_ExplicitConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "uxray.yaml")
	content := `
log:
  level: warn
providers:
  gpt:
    enabled: true
    endpoint: https://api.example.com/v1/chat/completions
    model: gpt-4o
    vision: true
stages:
  vision:
    providers: [gpt]
    timeout: 20s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := NewLoader().WithConfigFile(path).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "warn" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "warn")
	}
	pc, ok := cfg.Providers["gpt"]
	if !ok {
		t.Fatal("provider gpt missing")
	}
	if !pc.Enabled || pc.Model != "gpt-4o" || !pc.Vision {
		t.Errorf("provider gpt = %+v", pc)
	}
	if len(cfg.Stages.Vision.Providers) != 1 || cfg.Stages.Vision.Providers[0] != "gpt" {
		t.Errorf("Stages.Vision.Providers = %v", cfg.Stages.Vision.Providers)
	}
	if cfg.Stages.Vision.Timeout != "20s" {
		t.Errorf("Stages.Vision.Timeout = %q, want %q", cfg.Stages.Vision.Timeout, "20s")
	}
	// Unset keys still fall back to defaults.
	if cfg.Stages.Analysis.Timeout != "60s" {
		t.Errorf("Stages.Analysis.Timeout = %q, want default %q", cfg.Stages.Analysis.Timeout, "60s")
	}
}

func TestLoader_ProjectConfigDiscovery(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".uxray.yaml"), []byte("log:\n  level: error\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Chdir(dir)

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Log.Level != "error" {
		t.Errorf("Log.Level = %q, want project config %q", cfg.Log.Level, "error")
	}
}

func TestLoader_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.yaml")
	if err := os.WriteFile(path, []byte("log: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Error("Load() error = nil for malformed YAML")
	}
}
