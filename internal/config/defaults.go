package config

// DefaultConfigYAML contains the default configuration YAML content.
// `marketlog init` writes it as the starting project config.
const DefaultConfigYAML = `# marketlog configuration
#
# Every key can be overridden with an environment variable:
# MARKETLOG_<SECTION>_<KEY>, e.g. MARKETLOG_MODEL_NAME.

log:
  level: info       # debug, info, warn, error
  format: auto      # auto, text, json

model:
  # anthropic or gemini; empty detects from the model name.
  provider: ""
  name: claude-sonnet-4-20250514
  max_tokens: 16000
  temperature: 0
  timeout: 10m
  # Leave empty to use ANTHROPIC_API_KEY or GEMINI_API_KEY / GOOGLE_API_KEY.
  api_key: ""
  web_search:
    enabled: true
    max_uses: 15

history:
  backend: json     # json or sqlite
  path: data/history.json
  backup_path: ""   # defaults to <path>.bak
  lock_ttl: 1h

run:
  tag: ""           # defaults to the UTC date of the run
  context: ""

schedule:
  cron: "0 6 * * 1"

serve:
  addr: ":8080"
  cors_origins: ["*"]

export:
  path: data/latest.md
`
