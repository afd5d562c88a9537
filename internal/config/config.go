package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"ambulance-finance/pkg/logger"

	"github.com/joho/godotenv"
)

type Config struct {
	App       *AppConfig       `yaml:"app"`
	Database  *DatabaseConfig  `yaml:"database"`
	Redis     *RedisConfig     `yaml:"redis"`
	Storage   *StorageConfig   `yaml:"storage"`
	API       *APIConfig       `yaml:"api"`
	WebSocket *WebSocketConfig `yaml:"websocket"`
	Security  *SecurityConfig  `yaml:"security"`
	Log       *LogConfig       `yaml:"log"`
	Wallet    *WalletConfig    `yaml:"wallet"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Environment string `yaml:"environment"`
	Port        int    `yaml:"port"`
	Host        string `yaml:"host"`
	Debug       bool   `yaml:"debug"`
	Timezone    string `yaml:"timezone"`
	Language    string `yaml:"language"`
	Currency    string `yaml:"currency"`
	// LedgerStore selects the reference server backend: "mongodb" or "memory".
	LedgerStore string `yaml:"ledger_store"`
}

type SecurityConfig struct {
	JWTSecret          string   `yaml:"jwt_secret"`
	CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
	TrustedProxies     []string `yaml:"trusted_proxies"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	Output     string `yaml:"output"`
	TimeFormat string `yaml:"time_format"`
	Caller     bool   `yaml:"caller"`
}

type WalletConfig struct {
	ItemsPerPage      int  `yaml:"items_per_page"`
	HistoryPageSize   int  `yaml:"history_page_size"`
	ReceiptMaxWidth   uint `yaml:"receipt_max_width"`
	ReceiptMaxHeight  uint `yaml:"receipt_max_height"`
	SummaryCacheTTLMs int  `yaml:"summary_cache_ttl_ms"`
}

// Load reads an optional .env file (missing files are ignored) and then
// builds the configuration from the environment.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err != nil {
			continue
		}
		if err := godotenv.Load(file); err != nil {
			return nil, err
		}
	}

	config := &Config{
		App:       loadAppConfig(),
		Database:  loadDatabaseConfig(),
		Redis:     loadRedisConfig(),
		Storage:   loadStorageConfig(),
		API:       loadAPIConfig(),
		WebSocket: loadWebSocketConfig(),
		Security:  loadSecurityConfig(),
		Log:       loadLogConfig(),
		Wallet:    loadWalletConfig(),
	}

	return config, nil
}

func loadAppConfig() *AppConfig {
	return &AppConfig{
		Name:        getEnv("APP_NAME", "AmbulanceFinance"),
		Version:     getEnv("APP_VERSION", "1.0.0"),
		Environment: getEnv("APP_ENV", "development"),
		Port:        getEnvAsInt("APP_PORT", 8080),
		Host:        getEnv("APP_HOST", "localhost"),
		Debug:       getEnvAsBool("APP_DEBUG", true),
		Timezone:    getEnv("APP_TIMEZONE", "UTC"),
		Language:    getEnv("APP_LANGUAGE", "en"),
		Currency:    getEnv("APP_CURRENCY", "USD"),
		LedgerStore: getEnv("LEDGER_STORE", "mongodb"),
	}
}

func loadSecurityConfig() *SecurityConfig {
	return &SecurityConfig{
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		TrustedProxies:     getEnvAsSlice("TRUSTED_PROXIES", []string{}),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:      getEnv("LOG_LEVEL", "info"),
		Format:     getEnv("LOG_FORMAT", "text"),
		Output:     getEnv("LOG_OUTPUT", "stdout"),
		TimeFormat: getEnv("LOG_TIME_FORMAT", ""),
		Caller:     getEnvAsBool("LOG_CALLER", false),
	}
}

func loadWalletConfig() *WalletConfig {
	return &WalletConfig{
		ItemsPerPage:      getEnvAsInt("WALLET_ITEMS_PER_PAGE", 10),
		HistoryPageSize:   getEnvAsInt("HISTORY_PAGE_SIZE", 20),
		ReceiptMaxWidth:   uint(getEnvAsInt("RECEIPT_MAX_WIDTH", 1600)),
		ReceiptMaxHeight:  uint(getEnvAsInt("RECEIPT_MAX_HEIGHT", 1600)),
		SummaryCacheTTLMs: getEnvAsInt("SUMMARY_CACHE_TTL_MS", 60000),
	}
}

// SummaryCacheTTL is the lifetime of cached collection summaries on the server.
func (w *WalletConfig) SummaryCacheTTL() time.Duration {
	return time.Duration(w.SummaryCacheTTLMs) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}

// LoggerConfig maps the log section onto the logger package settings.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:      logger.LogLevel(c.Log.Level),
		Format:     c.Log.Format,
		Output:     c.Log.Output,
		TimeFormat: c.Log.TimeFormat,
		Caller:     c.Log.Caller,
		AppName:    c.App.Name,
		Version:    c.App.Version,
	}
}

func (c *Config) IsProductionEnv() bool {
	return c.App.Environment == "production"
}
