package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CONCEPTGRAPH_GRAPH_URI.
const EnvPrefix = "CONCEPTGRAPH"

// Config holds all application configuration.
type Config struct {
	Graph      GraphConfig      `mapstructure:"graph"`
	Dictionary DictionaryConfig `mapstructure:"dictionary"`
	Complexity ComplexityConfig `mapstructure:"complexity"`
	Projection ProjectionConfig `mapstructure:"projection"`
	Server     ServerConfig     `mapstructure:"server"`
	Temporal   TemporalConfig   `mapstructure:"temporal"`
	Tracing    TracingConfig    `mapstructure:"tracing"`
	Audit      AuditConfig      `mapstructure:"audit"`
	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Log        LogConfig        `mapstructure:"log"`
}

// GraphConfig selects and configures the traversal strategy.
type GraphConfig struct {
	// Strategy is http, bolt or local.
	Strategy string `mapstructure:"strategy"`
	// HTTPEndpoint is the transactional commit URL used by the http strategy.
	HTTPEndpoint string        `mapstructure:"http_endpoint"`
	URI          string        `mapstructure:"uri"`
	Username     string        `mapstructure:"username"`
	Password     string        `mapstructure:"password"`
	Database     string        `mapstructure:"database"`
	MaxDepth     int           `mapstructure:"max_depth"`
	Timeout      time.Duration `mapstructure:"timeout"`
	UseTextIndex bool          `mapstructure:"use_text_index"`
	// LocalConcurrency bounds definition lookups per level for the local strategy.
	LocalConcurrency int `mapstructure:"local_concurrency"`
	LocalMaxWords    int `mapstructure:"local_max_words"`
}

type DictionaryConfig struct {
	Path string `mapstructure:"path"`
}

type ComplexityConfig struct {
	FrequencyTable     string        `mapstructure:"frequency_table"`
	StopwordsPath      string        `mapstructure:"stopwords_path"`
	Augment            bool          `mapstructure:"augment"`
	SummaryEndpoint    string        `mapstructure:"summary_endpoint"`
	SummaryTimeout     time.Duration `mapstructure:"summary_timeout"`
	SummaryConcurrency int           `mapstructure:"summary_concurrency"`
	SummaryRPS         float64       `mapstructure:"summary_rps"`
	SummaryRetries     int           `mapstructure:"summary_retries"`
	UserAgent          string        `mapstructure:"user_agent"`
}

type ProjectionConfig struct {
	BaseSize             float64 `mapstructure:"base_size"`
	SizeScale            float64 `mapstructure:"size_scale"`
	OneRootWeightDivisor float64 `mapstructure:"one_root_weight_divisor"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type AuditConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Output  string `mapstructure:"output"`
}

// SecretsConfig selects where credentials left empty in the config are
// resolved from.
type SecretsConfig struct {
	// Provider is env or file.
	Provider string `mapstructure:"provider"`
	File     string `mapstructure:"file"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var defaults = map[string]any{
	"graph.strategy":                     "http",
	"graph.http_endpoint":                "http://localhost:7474/db/neo4j/tx/commit",
	"graph.uri":                          "neo4j://localhost:7687",
	"graph.username":                     "neo4j",
	"graph.password":                     "",
	"graph.database":                     "neo4j",
	"graph.max_depth":                    6,
	"graph.timeout":                      30 * time.Second,
	"graph.use_text_index":               false,
	"graph.local_concurrency":            8,
	"graph.local_max_words":              5000,
	"dictionary.path":                    "data/dictionary.db",
	"complexity.frequency_table":         "data/word_complexity_index.csv",
	"complexity.stopwords_path":          "",
	"complexity.augment":                 false,
	"complexity.summary_endpoint":        "https://en.wikipedia.org/api/rest_v1",
	"complexity.summary_timeout":         5 * time.Second,
	"complexity.summary_concurrency":     4,
	"complexity.summary_rps":             10.0,
	"complexity.summary_retries":         2,
	"complexity.user_agent":              "",
	"projection.base_size":               25.0,
	"projection.size_scale":              10.0,
	"projection.one_root_weight_divisor": 2.0,
	"server.addr":                        ":8080",
	"server.shutdown_timeout":            30 * time.Second,
	"temporal.host":                      "localhost:7233",
	"temporal.namespace":                 "default",
	"temporal.task_queue":                "conceptgraph",
	"tracing.otlp_endpoint":              "",
	"tracing.sample_rate":                1.0,
	"tracing.environment":                "development",
	"audit.enabled":                      false,
	"audit.output":                       "stdout",
	"secrets.provider":                   "env",
	"secrets.file":                       "",
	"log.level":                          "info",
	"log.format":                         "text",
}

var strategies = map[string]bool{"http": true, "bolt": true, "local": true}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if !strategies[c.Graph.Strategy] {
		warnings = append(warnings, fmt.Sprintf("graph strategy '%s' is not one of http, bolt, local", c.Graph.Strategy))
	}
	if c.Graph.Strategy == "http" && c.Graph.HTTPEndpoint == "" {
		warnings = append(warnings, "graph strategy 'http' is configured but http_endpoint is empty")
	}
	if c.Graph.Strategy == "bolt" && c.Graph.URI == "" {
		warnings = append(warnings, "graph strategy 'bolt' is configured but uri is empty")
	}
	if (c.Graph.Strategy == "http" || c.Graph.Strategy == "bolt") && c.Graph.Password == "" && c.Secrets.Provider != "file" {
		warnings = append(warnings, fmt.Sprintf("graph strategy '%s' is configured but password is empty", c.Graph.Strategy))
	}
	if c.Graph.MaxDepth < 1 {
		warnings = append(warnings, fmt.Sprintf("graph max_depth %d is below 1", c.Graph.MaxDepth))
	}
	if c.Graph.MaxDepth > 10 {
		warnings = append(warnings, fmt.Sprintf("graph max_depth %d allows very expensive traversals", c.Graph.MaxDepth))
	}
	if c.Graph.Timeout <= 0 {
		warnings = append(warnings, "graph timeout is not set; traversals are unbounded")
	}

	if c.Complexity.SummaryRPS < 0 {
		warnings = append(warnings, fmt.Sprintf("complexity summary_rps %.2f is negative", c.Complexity.SummaryRPS))
	}
	if c.Complexity.Augment && c.Complexity.SummaryEndpoint == "" {
		warnings = append(warnings, "complexity augment is enabled but summary_endpoint is empty")
	}

	if c.Projection.OneRootWeightDivisor <= 0 {
		warnings = append(warnings, fmt.Sprintf("projection one_root_weight_divisor %.2f is not positive; weights stay raw counts", c.Projection.OneRootWeightDivisor))
	}
	if c.Projection.BaseSize < 0 || c.Projection.SizeScale < 0 {
		warnings = append(warnings, "projection base_size and size_scale should not be negative")
	}

	if c.Secrets.Provider == "file" && c.Secrets.File == "" {
		warnings = append(warnings, "secrets provider 'file' is configured but file is empty")
	}

	if c.Tracing.SampleRate < 0 || c.Tracing.SampleRate > 1 {
		warnings = append(warnings, fmt.Sprintf("tracing sample_rate %.2f is outside [0.0, 1.0]", c.Tracing.SampleRate))
	}

	return warnings
}

// Default returns the built-in configuration without file or environment
// overrides.
func Default() *Config {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("config defaults: %v", err))
	}
	return &cfg
}

// Load reads configuration from file and environment. An empty path uses
// defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	cfg.Graph.Strategy = strings.ToLower(strings.TrimSpace(cfg.Graph.Strategy))

	// Validate configuration and print warnings
	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
