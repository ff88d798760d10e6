package config

// DefaultConfigYAML contains the default configuration YAML content
// written by `uxray init`.
const DefaultConfigYAML = `# uxray configuration
#
# Values not specified here use sensible defaults.

log:
  level: info
  format: auto

pipeline:
  # Context confidence below this halts for clarification questions.
  clarification_threshold: 0.7
  max_recovery_attempts: 2

# Model providers. Each is a named endpoint invoked through the uniform
# provider contract; stages reference providers by name.
providers:
  gpt4-vision:
    enabled: true
    endpoint: https://api.openai.com/v1/chat/completions
    api_key: ${OPENAI_API_KEY}
    model: gpt-4o
    vision: true
  claude-vision:
    enabled: true
    endpoint: https://api.anthropic.com/v1/messages
    api_key: ${ANTHROPIC_API_KEY}
    model: claude-sonnet-4-20250514
    vision: true
  gemini:
    enabled: false
    endpoint: https://generativelanguage.googleapis.com/v1beta
    api_key: ${GOOGLE_API_KEY}
    model: gemini-2.5-flash
    vision: true

stages:
  vision:
    providers: [gpt4-vision, claude-vision]
    timeout: 45s
    warn_fraction: 0.8
  analysis:
    providers: [gpt4-vision, claude-vision]
    timeout: 60s
    warn_fraction: 0.8
  synthesis:
    providers: [claude-vision]
    timeout: 60s
    warn_fraction: 0.8

breaker:
  failure_threshold: 5
  recovery_timeout: 30s
  half_open_retry_limit: 2

retry:
  max_attempts: 3
  base_delay: 1s
  max_delay: 30s
  jitter_factor: 0.25
  multiplier: 2.0

state:
  backend: sqlite
  path: .uxray/state/state.db
  checkpoint_ttl: 24h

images:
  source: file

api:
  addr: 127.0.0.1:8765
`
