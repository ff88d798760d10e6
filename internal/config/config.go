package config

// Config holds all application configuration.
type Config struct {
	Log       LogConfig       `mapstructure:"log"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Providers ProvidersConfig `mapstructure:"providers"`
	Stages    StagesConfig    `mapstructure:"stages"`
	Breaker   BreakerConfig   `mapstructure:"breaker"`
	Retry     RetryConfig     `mapstructure:"retry"`
	Fusion    FusionConfig    `mapstructure:"fusion"`
	State     StateConfig     `mapstructure:"state"`
	Images    ImagesConfig    `mapstructure:"images"`
	API       APIConfig       `mapstructure:"api"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PipelineConfig configures pipeline-level behavior.
type PipelineConfig struct {
	// ClarificationThreshold is the context confidence below which the
	// pipeline halts and asks clarification questions.
	ClarificationThreshold float64 `mapstructure:"clarification_threshold"`
	// MaxRecoveryAttempts bounds whole-pipeline retries on transient errors.
	MaxRecoveryAttempts int `mapstructure:"max_recovery_attempts"`
}

// ProvidersConfig configures the available model providers.
type ProvidersConfig map[string]ProviderConfig

// ProviderConfig configures a single model provider endpoint.
type ProviderConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
	APIKey   string `mapstructure:"api_key"`
	Model    string `mapstructure:"model"`
	Vision   bool   `mapstructure:"vision"`
}

// StagesConfig configures the provider stages.
type StagesConfig struct {
	Vision    StageConfig `mapstructure:"vision"`
	Analysis  StageConfig `mapstructure:"analysis"`
	Synthesis StageConfig `mapstructure:"synthesis"`
}

// StageConfig configures one provider stage.
type StageConfig struct {
	Providers []string `mapstructure:"providers"`
	Timeout   string   `mapstructure:"timeout"`
	// WarnFraction of the timeout after which a slow-call warning is
	// logged while the coordinator keeps waiting.
	WarnFraction float64 `mapstructure:"warn_fraction"`
}

// BreakerConfig configures circuit breakers.
type BreakerConfig struct {
	FailureThreshold   int    `mapstructure:"failure_threshold"`
	RecoveryTimeout    string `mapstructure:"recovery_timeout"`
	HalfOpenRetryLimit int    `mapstructure:"half_open_retry_limit"`
}

// RetryConfig configures the retry policy.
type RetryConfig struct {
	MaxAttempts  int     `mapstructure:"max_attempts"`
	BaseDelay    string  `mapstructure:"base_delay"`
	MaxDelay     string  `mapstructure:"max_delay"`
	JitterFactor float64 `mapstructure:"jitter_factor"`
	Multiplier   float64 `mapstructure:"multiplier"`
}

// FusionConfig exposes the fusion agreement heuristics as tunables.
type FusionConfig struct {
	AgreementMulti  float64 `mapstructure:"agreement_multi"`
	AgreementSingle float64 `mapstructure:"agreement_single"`
}

// StateConfig configures checkpoint/result persistence.
type StateConfig struct {
	Backend  string `mapstructure:"backend"` // json, sqlite, redis, postgres
	Path     string `mapstructure:"path"`    // json dir or sqlite file
	RedisURL string `mapstructure:"redis_url"`
	Postgres string `mapstructure:"postgres_url"`
	// CheckpointTTL bounds how long an abandoned checkpoint stays resumable.
	CheckpointTTL string `mapstructure:"checkpoint_ttl"`
}

// ImagesConfig configures the screenshot source.
type ImagesConfig struct {
	Source string      `mapstructure:"source"` // file, minio
	Minio  MinioConfig `mapstructure:"minio"`
}

// MinioConfig configures object-storage image fetching.
type MinioConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// APIConfig configures the HTTP API server.
type APIConfig struct {
	Addr           string   `mapstructure:"addr"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}
