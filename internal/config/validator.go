package config

import (
	"fmt"
	"strings"
	"time"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{errors: make(ValidationErrors, 0)}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	v.validateLog(&cfg.Log)
	v.validatePipeline(&cfg.Pipeline)
	v.validateStages(cfg)
	v.validateBreaker(&cfg.Breaker)
	v.validateRetry(&cfg.Retry)
	v.validateFusion(&cfg.Fusion)
	v.validateState(&cfg.State)
	v.validateImages(&cfg.Images)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{Field: field, Value: value, Message: msg})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of auto, text, json")
	}
}

func (v *Validator) validatePipeline(cfg *PipelineConfig) {
	if cfg.ClarificationThreshold < 0 || cfg.ClarificationThreshold > 1 {
		v.addError("pipeline.clarification_threshold", cfg.ClarificationThreshold, "must be in [0,1]")
	}
	if cfg.MaxRecoveryAttempts < 0 {
		v.addError("pipeline.max_recovery_attempts", cfg.MaxRecoveryAttempts, "must be >= 0")
	}
}

func (v *Validator) validateStages(cfg *Config) {
	stages := map[string]*StageConfig{
		"stages.vision":    &cfg.Stages.Vision,
		"stages.analysis":  &cfg.Stages.Analysis,
		"stages.synthesis": &cfg.Stages.Synthesis,
	}
	for field, sc := range stages {
		v.validateDuration(field+".timeout", sc.Timeout)
		if sc.WarnFraction < 0 || sc.WarnFraction >= 1 {
			v.addError(field+".warn_fraction", sc.WarnFraction, "must be in [0,1)")
		}
		for _, name := range sc.Providers {
			if _, ok := cfg.Providers[name]; !ok {
				v.addError(field+".providers", name, "references an unknown provider")
			}
		}
	}
}

func (v *Validator) validateBreaker(cfg *BreakerConfig) {
	if cfg.FailureThreshold < 1 {
		v.addError("breaker.failure_threshold", cfg.FailureThreshold, "must be >= 1")
	}
	v.validateDuration("breaker.recovery_timeout", cfg.RecoveryTimeout)
	if cfg.HalfOpenRetryLimit < 1 {
		v.addError("breaker.half_open_retry_limit", cfg.HalfOpenRetryLimit, "must be >= 1")
	}
}

func (v *Validator) validateRetry(cfg *RetryConfig) {
	if cfg.MaxAttempts < 1 {
		v.addError("retry.max_attempts", cfg.MaxAttempts, "must be >= 1")
	}
	v.validateDuration("retry.base_delay", cfg.BaseDelay)
	v.validateDuration("retry.max_delay", cfg.MaxDelay)
	if cfg.JitterFactor < 0 || cfg.JitterFactor > 1 {
		v.addError("retry.jitter_factor", cfg.JitterFactor, "must be in [0,1]")
	}
	if cfg.Multiplier < 1 {
		v.addError("retry.multiplier", cfg.Multiplier, "must be >= 1")
	}
}

func (v *Validator) validateFusion(cfg *FusionConfig) {
	if cfg.AgreementMulti < 0 || cfg.AgreementMulti > 1 {
		v.addError("fusion.agreement_multi", cfg.AgreementMulti, "must be in [0,1]")
	}
	if cfg.AgreementSingle < 0 || cfg.AgreementSingle > 1 {
		v.addError("fusion.agreement_single", cfg.AgreementSingle, "must be in [0,1]")
	}
	if cfg.AgreementSingle > cfg.AgreementMulti {
		v.addError("fusion.agreement_single", cfg.AgreementSingle, "must not exceed fusion.agreement_multi")
	}
}

func (v *Validator) validateState(cfg *StateConfig) {
	switch cfg.Backend {
	case "json", "sqlite":
		if cfg.Path == "" {
			v.addError("state.path", cfg.Path, "required for json/sqlite backends")
		}
	case "redis":
		if cfg.RedisURL == "" {
			v.addError("state.redis_url", cfg.RedisURL, "required for redis backend")
		}
	case "postgres":
		if cfg.Postgres == "" {
			v.addError("state.postgres_url", cfg.Postgres, "required for postgres backend")
		}
	default:
		v.addError("state.backend", cfg.Backend, "must be one of json, sqlite, redis, postgres")
	}
	v.validateDuration("state.checkpoint_ttl", cfg.CheckpointTTL)
}

func (v *Validator) validateImages(cfg *ImagesConfig) {
	switch cfg.Source {
	case "file":
	case "minio":
		if cfg.Minio.Endpoint == "" {
			v.addError("images.minio.endpoint", cfg.Minio.Endpoint, "required for minio source")
		}
		if cfg.Minio.Bucket == "" {
			v.addError("images.minio.bucket", cfg.Minio.Bucket, "required for minio source")
		}
	default:
		v.addError("images.source", cfg.Source, "must be one of file, minio")
	}
}

func (v *Validator) validateDuration(field, value string) {
	if value == "" {
		v.addError(field, value, "duration is required")
		return
	}
	if _, err := time.ParseDuration(value); err != nil {
		v.addError(field, value, "must be a valid duration (e.g. 30s, 2m)")
	}
}
