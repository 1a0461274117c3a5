package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the jobdex API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Explain   ExplainConfig   `yaml:"explain"`
	Geocoder  GeocoderConfig  `yaml:"geocoder"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

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
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds Redis connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string       `yaml:"api_key"`
	BaseURL    string       `yaml:"base_url"`
	Provider   string       `yaml:"provider"`
	Model      string       `yaml:"model"`
	Dimensions int          `yaml:"dimensions"`
	BatchSize  int          `yaml:"batch_size"`
	CacheTTL   int          `yaml:"cache_ttl_sec"` // 0 keeps cached embeddings forever
	Budget     BudgetConfig `yaml:"budget"`
}

// BudgetConfig holds token budget settings.
type BudgetConfig struct {
	DailyTokenLimit   int64  `yaml:"daily_token_limit"`   // 0 = unlimited
	MonthlyTokenLimit int64  `yaml:"monthly_token_limit"` // 0 = unlimited
	Action            string `yaml:"action"`              // "reject" | "warn" (default)
}

// WeightsConfig holds the four ranking component weights.
type WeightsConfig struct {
	Semantic float64 `yaml:"semantic"`
	Title    float64 `yaml:"title"`
	Skills   float64 `yaml:"skills"`
	Location float64 `yaml:"location"`
}

// SearchConfig holds retrieval and ranking settings.
type SearchConfig struct {
	PoolSize        int           `yaml:"pool_size"`         // recall pool fetched before reranking
	DefaultResults  int           `yaml:"default_results"`   // result count when the request omits it
	MaxResults      int           `yaml:"max_results"`       // upper bound on the requested result count
	ScoreThreshold  float64       `yaml:"score_threshold"`   // candidates at or below are discarded
	MinSkillOverlap float64       `yaml:"min_skill_overlap"` // 0 disables the hard skills filter
	MaxPerTitle     int           `yaml:"max_per_title"`
	MaxPerCompany   int           `yaml:"max_per_company"`
	Weights         WeightsConfig `yaml:"weights"`
}

// ExplainConfig holds match explanation settings.
type ExplainConfig struct {
	Enabled        bool    `yaml:"enabled"`
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
	Workers        int     `yaml:"workers"`
	TimeoutSec     int     `yaml:"timeout_sec"`
}

// GeocoderConfig holds the optional external geocoder settings.
type GeocoderConfig struct {
	Enabled    bool   `yaml:"enabled"`
	BaseURL    string `yaml:"base_url"`
	UserAgent  string `yaml:"user_agent"`
	TimeoutSec int    `yaml:"timeout_sec"`
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

// DefaultWeights returns the documented ranking weight defaults.
func DefaultWeights() WeightsConfig {
	return WeightsConfig{Semantic: 0.1, Title: 0.3, Skills: 0.2, Location: 0.4}
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
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 32
	}
	if c.Embedding.Budget.Action == "" {
		c.Embedding.Budget.Action = "warn"
	}
	if c.Search.PoolSize <= 0 {
		c.Search.PoolSize = 100
	}
	if c.Search.DefaultResults <= 0 {
		c.Search.DefaultResults = 5
	}
	if c.Search.MaxResults <= 0 {
		c.Search.MaxResults = 50
	}
	if c.Search.ScoreThreshold <= 0 {
		c.Search.ScoreThreshold = 0.3
	}
	if c.Search.MaxPerTitle <= 0 {
		c.Search.MaxPerTitle = 2
	}
	if c.Search.MaxPerCompany <= 0 {
		c.Search.MaxPerCompany = 2
	}
	if c.Search.Weights == (WeightsConfig{}) {
		c.Search.Weights = DefaultWeights()
	}
	if c.Explain.RequestsPerSec <= 0 {
		c.Explain.RequestsPerSec = 2
	}
	if c.Explain.Workers <= 0 {
		c.Explain.Workers = 4
	}
	if c.Explain.TimeoutSec <= 0 {
		c.Explain.TimeoutSec = 15
	}
	if c.Geocoder.BaseURL == "" {
		c.Geocoder.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.Geocoder.UserAgent == "" {
		c.Geocoder.UserAgent = "jobdex"
	}
	if c.Geocoder.TimeoutSec <= 0 {
		c.Geocoder.TimeoutSec = 5
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if err := c.Search.Weights.Validate(); err != nil {
		return fmt.Errorf("search.weights: %w", err)
	}
	if c.Search.MinSkillOverlap < 0 || c.Search.MinSkillOverlap > 1 {
		return fmt.Errorf("search.min_skill_overlap must be in [0, 1], got %v", c.Search.MinSkillOverlap)
	}
	if c.Search.ScoreThreshold >= 1 {
		return fmt.Errorf("search.score_threshold must be below 1, got %v", c.Search.ScoreThreshold)
	}
	switch c.Embedding.Budget.Action {
	case "warn", "reject":
	default:
		return fmt.Errorf("embedding.budget.action must be \"warn\" or \"reject\", got %q", c.Embedding.Budget.Action)
	}
	return nil
}

// weightSumTolerance absorbs float noise when checking that weights sum to 1.
const weightSumTolerance = 1e-6

// Validate rejects negative weights and weight sets that do not sum to 1.
func (w WeightsConfig) Validate() error {
	for name, v := range map[string]float64{
		"semantic": w.Semantic,
		"title":    w.Title,
		"skills":   w.Skills,
		"location": w.Location,
	} {
		if v < 0 {
			return fmt.Errorf("%s must be non-negative, got %v", name, v)
		}
	}
	sum := w.Semantic + w.Title + w.Skills + w.Location
	if math.Abs(sum-1) > weightSumTolerance {
		return fmt.Errorf("weights must sum to 1, got %v", sum)
	}
	return nil
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
