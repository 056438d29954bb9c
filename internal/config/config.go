package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the cohortlens configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Model    ModelConfig    `yaml:"model"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// Database drivers.
const (
	DriverRedis = "redis"
	DriverFile  = "file"
)

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxBodyBytes    int64 `yaml:"max_body_bytes"`
}

// DatabaseConfig holds artifact store settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, file (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	Standalone       bool     `yaml:"standalone"` // skip cluster topology discovery
	Dir              string   `yaml:"dir"` // file driver only
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// ModelConfig holds clustering and model bootstrap settings.
type ModelConfig struct {
	AcademicK      int      `yaml:"academic_k"`
	PersonaK       int      `yaml:"persona_k"`
	Precision      float64  `yaml:"precision"`
	MaxIterations  int      `yaml:"max_iterations"`
	Seed           *uint64  `yaml:"seed"` // unset = time-seeded
	AcademicLabels []string `yaml:"academic_labels"`
	// BootstrapFixtures serves the shipped centroids while the store is empty.
	BootstrapFixtures *bool `yaml:"bootstrap_fixtures"`
}

// AnalysisConfig holds request limits for the analysis endpoints.
type AnalysisConfig struct {
	MaxBatchRows int `yaml:"max_batch_rows"`
}

// StorageConfig holds storage settings.
type StorageConfig struct {
	KeyPrefix string `yaml:"key_prefix"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxBodyBytes <= 0 {
		c.HTTP.MaxBodyBytes = 32 << 20
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Model.AcademicK <= 0 {
		c.Model.AcademicK = 3
	}
	if c.Model.PersonaK <= 0 {
		c.Model.PersonaK = 5
	}
	if c.Model.Precision <= 0 {
		c.Model.Precision = 1e-10
	}
	if c.Model.MaxIterations <= 0 {
		c.Model.MaxIterations = 1000
	}
	if c.Model.BootstrapFixtures == nil {
		enabled := true
		c.Model.BootstrapFixtures = &enabled
	}
	if c.Analysis.MaxBatchRows <= 0 {
		c.Analysis.MaxBatchRows = 100000
	}
	if c.Storage.KeyPrefix == "" {
		c.Storage.KeyPrefix = "cohortlens:"
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required")
		}
	case DriverFile:
		if c.Database.Dir == "" {
			return fmt.Errorf("database.dir is required for the file driver")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverRedis, DriverFile, c.Database.Driver)
	}
	if n := len(c.Model.AcademicLabels); n > 0 {
		if n != c.Model.AcademicK {
			return fmt.Errorf("model.academic_labels has %d labels, academic_k is %d", n, c.Model.AcademicK)
		}
		seen := make(map[string]bool, n)
		for _, l := range c.Model.AcademicLabels {
			if l == "" || seen[l] {
				return fmt.Errorf("model.academic_labels must be unique and non-empty, got %q", l)
			}
			seen[l] = true
		}
	}
	return nil
}

// Bootstrap reports whether fixture bootstrap is enabled.
func (m ModelConfig) Bootstrap() bool {
	return m.BootstrapFixtures == nil || *m.BootstrapFixtures
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
