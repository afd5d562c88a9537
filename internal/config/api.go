package config

import (
	"time"
)

// APIConfig configures the transaction client used by the terminal front end.
type APIConfig struct {
	BaseURL     string        `yaml:"base_url"`
	Timeout     time.Duration `yaml:"timeout"`
	AccessToken string        `yaml:"access_token"`
	UserAgent   string        `yaml:"user_agent"`
}

func loadAPIConfig() *APIConfig {
	return &APIConfig{
		BaseURL:     getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
		Timeout:     getEnvAsDuration("API_TIMEOUT", 15*time.Second),
		AccessToken: getEnv("API_ACCESS_TOKEN", ""),
		UserAgent:   getEnv("API_USER_AGENT", "ambulance-finance-wallet/1.0"),
	}
}
