package application

import (
	"errors"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines workflow configuration.
type Config struct {
	LedgerBaseURL  string        `yaml:"ledger_base_url"`
	LedgerToken    string        `yaml:"ledger_token"`
	WebhookURL     string        `yaml:"webhook_url"`
	MaxUploadBytes int64         `yaml:"max_upload_bytes"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// LoadConfig loads config from yaml or env.
func LoadConfig() (Config, error) {
	cfg := Config{
		LedgerBaseURL:  os.Getenv("LEDGER_BASE_URL"),
		LedgerToken:    os.Getenv("LEDGER_TOKEN"),
		WebhookURL:     os.Getenv("RECON_WEBHOOK_URL"),
		MaxUploadBytes: getenvInt64Default("RECON_MAX_UPLOAD_BYTES", 8<<20),
		RequestTimeout: 30 * time.Second,
	}

	if path := os.Getenv("RECON_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.LedgerBaseURL == "" {
		return cfg, errors.New("workflow config: ledger base url required")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 8 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	return cfg, nil
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
