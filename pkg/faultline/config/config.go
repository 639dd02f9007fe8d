// config.go defines the static faultline configuration and its derivations.

package config

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/strongdm/faultline/pkg/faultline"
)

// Telemetry backends.
const (
	ServiceNone     = "none"
	ServiceCrash    = "crash"
	ServiceLogship  = "logship"
	ServiceEndpoint = "endpoint"
	ServiceRedis    = "redis"
	ServiceCXDB     = "cxdb"
)

// serviceAliases maps accepted names to backends.
var serviceAliases = map[string]string{
	ServiceNone:     ServiceNone,
	"":              ServiceNone,
	ServiceCrash:    ServiceCrash,
	"sinka":         ServiceCrash,
	ServiceLogship:  ServiceLogship,
	"sinkb":         ServiceLogship,
	ServiceEndpoint: ServiceEndpoint,
	"custom":        ServiceEndpoint,
	ServiceRedis:    ServiceRedis,
	ServiceCXDB:     ServiceCXDB,
}

const (
	DefaultTimeout     = 4 * time.Second
	MaxTimeout         = 10 * time.Second
	DefaultEnvironment = "development"
	DefaultRedisStream = "faultline:reports"
)

// Config is read once at startup and is static for the process lifetime.
type Config struct {
	Enabled       bool          `yaml:"enabled"`
	Service       string        `yaml:"service"`
	Endpoint      string        `yaml:"endpoint"`
	SampleRate    float64       `yaml:"sample_rate"`
	Environment   string        `yaml:"environment"`
	Release       string        `yaml:"release"`
	Debug         bool          `yaml:"debug"`
	MinLevel      string        `yaml:"min_level"`
	MaxLogs       int           `yaml:"max_logs"`
	Persist       bool          `yaml:"persist"`
	Console       bool          `yaml:"console"`
	Performance   bool          `yaml:"performance"`
	Timeout       time.Duration `yaml:"timeout"`
	RedisURL      string        `yaml:"redis_url"`
	RedisStream   string        `yaml:"redis_stream"`
	CXDBAddr      string        `yaml:"cxdb_addr"`
	CrashProvider string        `yaml:"crash_provider"`
	CatalogFile   string        `yaml:"catalog_file"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Enabled:     true,
		Service:     ServiceNone,
		SampleRate:  1,
		Environment: DefaultEnvironment,
		MaxLogs:     faultline.DefaultMaxLogs,
		Persist:     true,
		Performance: true,
		Timeout:     DefaultTimeout,
		RedisStream: DefaultRedisStream,
	}
}

// IsProduction reports whether the environment is classified as production.
func (c Config) IsProduction() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "production", "prod":
		return true
	}
	return false
}

// IsStaging reports whether the environment is classified as staging.
func (c Config) IsStaging() bool {
	switch strings.ToLower(strings.TrimSpace(c.Environment)) {
	case "staging", "stage":
		return true
	}
	return false
}

// MinimumLevel is the Logger threshold: the explicit override when valid,
// otherwise DEBUG for debug builds, INFO for staging, WARN for production
// and DEBUG for anything else.
func (c Config) MinimumLevel() faultline.Severity {
	if c.MinLevel != "" {
		if s, ok := faultline.ParseSeverity(c.MinLevel); ok {
			return s
		}
	}
	switch {
	case c.Debug:
		return faultline.SeverityDebug
	case c.IsStaging():
		return faultline.SeverityInfo
	case c.IsProduction():
		return faultline.SeverityWarn
	default:
		return faultline.SeverityDebug
	}
}

// Services returns the canonical backend names listed in Service, in order,
// without duplicates or "none". Unknown names are skipped.
func (c Config) Services() []string {
	var out []string
	seen := map[string]bool{}
	for _, name := range strings.Split(c.Service, ",") {
		svc, ok := serviceAliases[strings.ToLower(strings.TrimSpace(name))]
		if !ok || svc == ServiceNone || seen[svc] {
			continue
		}
		seen[svc] = true
		out = append(out, svc)
	}
	return out
}

// Normalize repairs invalid values in place and returns one warning per
// repair. It never fails.
func (c *Config) Normalize() []string {
	var warnings []string
	warn := func(format string, args ...any) {
		warnings = append(warnings, fmt.Sprintf(format, args...))
	}

	if math.IsNaN(c.SampleRate) || c.SampleRate < 0 || c.SampleRate > 1 {
		warn("sample_rate %v outside [0,1], using 1.0", c.SampleRate)
		c.SampleRate = 1
	}
	if c.MinLevel != "" {
		if _, ok := faultline.ParseSeverity(c.MinLevel); !ok {
			warn("unknown min_level %q, deriving from environment", c.MinLevel)
			c.MinLevel = ""
		}
	}
	if c.MaxLogs <= 0 {
		c.MaxLogs = faultline.DefaultMaxLogs
	}
	if c.Timeout <= 0 || c.Timeout > MaxTimeout {
		if c.Timeout != 0 {
			warn("timeout %s outside (0, %s], using %s", c.Timeout, MaxTimeout, DefaultTimeout)
		}
		c.Timeout = DefaultTimeout
	}
	if strings.TrimSpace(c.Environment) == "" {
		c.Environment = DefaultEnvironment
	}
	if c.RedisStream == "" {
		c.RedisStream = DefaultRedisStream
	}

	var services []string
	seen := map[string]bool{}
	for _, name := range strings.Split(c.Service, ",") {
		name = strings.TrimSpace(name)
		svc, ok := serviceAliases[strings.ToLower(name)]
		if !ok {
			warn("unknown service %q, ignoring", name)
			continue
		}
		if svc == ServiceNone || seen[svc] {
			continue
		}
		if missing := c.missingSetting(svc); missing != "" {
			warn("service %q requires %s, ignoring", svc, missing)
			continue
		}
		seen[svc] = true
		services = append(services, svc)
	}
	if len(services) == 0 {
		c.Service = ServiceNone
	} else {
		c.Service = strings.Join(services, ",")
	}
	return warnings
}

func (c Config) missingSetting(svc string) string {
	switch svc {
	case ServiceEndpoint:
		if strings.TrimSpace(c.Endpoint) == "" {
			return "endpoint"
		}
	case ServiceRedis:
		if c.RedisURL == "" {
			return "redis_url"
		}
	case ServiceCXDB:
		if c.CXDBAddr == "" {
			return "cxdb_addr"
		}
	}
	return ""
}
