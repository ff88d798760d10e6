package config

import (
	"strings"
	"testing"
)

// validConfig returns a valid configuration for testing.
func validConfig() *Config {
	return &Config{
		Log: LogConfig{
			Level:  "info",
			Format: "auto",
		},
		Pipeline: PipelineConfig{
			ClarificationThreshold: 0.7,
			MaxRecoveryAttempts:    2,
		},
		Providers: ProvidersConfig{
			"gpt": {
				Enabled:  true,
				Endpoint: "https://api.example.com/v1/chat/completions",
				Model:    "gpt-4o",
				Vision:   true,
			},
		},
		Stages: StagesConfig{
			Vision:    StageConfig{Providers: []string{"gpt"}, Timeout: "45s", WarnFraction: 0.8},
			Analysis:  StageConfig{Providers: []string{"gpt"}, Timeout: "60s", WarnFraction: 0.8},
			Synthesis: StageConfig{Providers: []string{"gpt"}, Timeout: "60s", WarnFraction: 0.8},
		},
		Breaker: BreakerConfig{
			FailureThreshold:   5,
			RecoveryTimeout:    "30s",
			HalfOpenRetryLimit: 2,
		},
		Retry: RetryConfig{
			MaxAttempts:  3,
			BaseDelay:    "1s",
			MaxDelay:     "30s",
			JitterFactor: 0.25,
			Multiplier:   2.0,
		},
		Fusion: FusionConfig{
			AgreementMulti:  0.85,
			AgreementSingle: 0.65,
		},
		State: StateConfig{
			Backend:       "sqlite",
			Path:          ".uxray/state/state.db",
			CheckpointTTL: "24h",
		},
		Images: ImagesConfig{Source: "file"},
	}
}

func TestValidator_ValidConfig(t *testing.T) {
	if err := NewValidator().Validate(validConfig()); err != nil {
		t.Errorf("Validate() error = %v, want nil", err)
	}
}

func TestValidator_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{
			"bad log level",
			func(c *Config) { c.Log.Level = "verbose" },
			"log.level",
		},
		{
			"bad log format",
			func(c *Config) { c.Log.Format = "xml" },
			"log.format",
		},
		{
			"threshold out of range",
			func(c *Config) { c.Pipeline.ClarificationThreshold = 1.5 },
			"pipeline.clarification_threshold",
		},
		{
			"negative recovery attempts",
			func(c *Config) { c.Pipeline.MaxRecoveryAttempts = -1 },
			"pipeline.max_recovery_attempts",
		},
		{
			"bad stage timeout",
			func(c *Config) { c.Stages.Vision.Timeout = "soon" },
			"stages.vision.timeout",
		},
		{
			"warn fraction out of range",
			func(c *Config) { c.Stages.Analysis.WarnFraction = 1.0 },
			"stages.analysis.warn_fraction",
		},
		{
			"unknown stage provider",
			func(c *Config) { c.Stages.Synthesis.Providers = []string{"ghost"} },
			"stages.synthesis.providers",
		},
		{
			"breaker threshold too low",
			func(c *Config) { c.Breaker.FailureThreshold = 0 },
			"breaker.failure_threshold",
		},
		{
			"retry multiplier below one",
			func(c *Config) { c.Retry.Multiplier = 0.5 },
			"retry.multiplier",
		},
		{
			"agreement single above multi",
			func(c *Config) { c.Fusion.AgreementSingle = 0.95 },
			"fusion.agreement_single",
		},
		{
			"unknown state backend",
			func(c *Config) { c.State.Backend = "etcd" },
			"state.backend",
		},
		{
			"redis backend without url",
			func(c *Config) { c.State.Backend = "redis"; c.State.RedisURL = "" },
			"state.redis_url",
		},
		{
			"sqlite backend without path",
			func(c *Config) { c.State.Path = "" },
			"state.path",
		},
		{
			"bad checkpoint ttl",
			func(c *Config) { c.State.CheckpointTTL = "1 day" },
			"state.checkpoint_ttl",
		},
		{
			"minio source without endpoint",
			func(c *Config) { c.Images.Source = "minio" },
			"images.minio.endpoint",
		},
		{
			"unknown image source",
			func(c *Config) { c.Images.Source = "ftp" },
			"images.source",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := NewValidator().Validate(cfg)
			if err == nil {
				t.Fatal("Validate() error = nil, want validation failure")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Validate() error = %q, want mention of %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestValidator_CollectsMultipleErrors(t *testing.T) {
	cfg := validConfig()
	cfg.Log.Level = "verbose"
	cfg.Retry.MaxAttempts = 0
	cfg.State.Backend = "etcd"

	err := NewValidator().Validate(cfg)
	if err == nil {
		t.Fatal("Validate() error = nil")
	}
	verrs, ok := err.(ValidationErrors)
	if !ok {
		t.Fatalf("error type = %T, want ValidationErrors", err)
	}
	if len(verrs) != 3 {
		t.Errorf("errors = %d, want 3: %v", len(verrs), verrs)
	}
}
