// load.go reads configuration from a YAML file, a .env file and FAULTLINE_* variables.

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"
)

// EnvPrefix prefixes every environment variable Load reads.
const EnvPrefix = "FAULTLINE_"

// Load builds a Config from defaults, then the YAML file at path (skipped
// when path is empty), then the .env files (".env" when none are given,
// missing files ignored), then FAULTLINE_* environment variables. The
// result is not normalized.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := LoadFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %s: %w", f, err)
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

// LoadFile overlays the YAML file at path onto cfg. Environment variables
// in the file are expanded first.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Enabled = getenvBool("ENABLED", cfg.Enabled)
	cfg.Service = getenv("SERVICE", cfg.Service)
	cfg.Endpoint = getenv("ENDPOINT", cfg.Endpoint)
	cfg.SampleRate = getenvFloat("SAMPLE_RATE", cfg.SampleRate)
	cfg.Environment = getenv("ENVIRONMENT", cfg.Environment)
	cfg.Release = getenv("RELEASE", cfg.Release)
	cfg.Debug = getenvBool("DEBUG", cfg.Debug)
	cfg.MinLevel = getenv("MIN_LEVEL", cfg.MinLevel)
	cfg.MaxLogs = getenvInt("MAX_LOGS", cfg.MaxLogs)
	cfg.Persist = getenvBool("PERSIST", cfg.Persist)
	cfg.Console = getenvBool("CONSOLE", cfg.Console)
	cfg.Performance = getenvBool("PERFORMANCE", cfg.Performance)
	cfg.Timeout = getenvDuration("TIMEOUT", cfg.Timeout)
	cfg.RedisURL = getenv("REDIS_URL", cfg.RedisURL)
	cfg.RedisStream = getenv("REDIS_STREAM", cfg.RedisStream)
	cfg.CXDBAddr = getenv("CXDB_ADDR", cfg.CXDBAddr)
	cfg.CrashProvider = getenv("CRASH_PROVIDER", cfg.CrashProvider)
	cfg.CatalogFile = getenv("CATALOG_FILE", cfg.CatalogFile)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(EnvPrefix + key); v != "" {
		return v
	}
	return fallback
}

func getenvFloat(key string, fallback float64) float64 {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getenvInt(key string, fallback int) int {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func getenvBool(key string, fallback bool) bool {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return b
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(EnvPrefix + key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
