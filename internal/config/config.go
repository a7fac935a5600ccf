package config

import (
	"fmt"
	"strings"
	"time"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Perception PerceptionConfig `mapstructure:"perception" yaml:"perception"`
	Locator    LocatorConfig    `mapstructure:"locator" yaml:"locator"`
	Healer     HealerConfig     `mapstructure:"healer" yaml:"healer"`
	Observer   ObserverConfig   `mapstructure:"observer" yaml:"observer"`
	Agent      AgentConfig      `mapstructure:"agent" yaml:"agent"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"` // megabytes
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"` // days
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// PerceptionConfig selects and tunes the perception backend.
type PerceptionConfig struct {
	// Backend selects the implementation: "simulated" is the only built-in.
	Backend string `mapstructure:"backend" yaml:"backend"`
	// GridSize is the block size, in pixels, the simulated backend scans at.
	GridSize int `mapstructure:"grid_size" yaml:"grid_size"`
	// MaxCallsPerSecond rate-limits backend invocations. Zero disables the
	// limiter.
	MaxCallsPerSecond float64 `mapstructure:"max_calls_per_second" yaml:"max_calls_per_second"`
}

// LocatorConfig tunes the neural locator and its neural map.
type LocatorConfig struct {
	// WriteThreshold is the confidence a resolution must exceed before it is
	// cached in the neural map.
	WriteThreshold float64 `mapstructure:"write_threshold" yaml:"write_threshold"`
	// CacheConfidence is the pinned confidence reported for cache hits.
	CacheConfidence float64 `mapstructure:"cache_confidence" yaml:"cache_confidence"`
	// MapCapacity bounds the neural map; the least recently used entry is
	// evicted when the bound is exceeded. Zero means unbounded.
	MapCapacity int `mapstructure:"map_capacity" yaml:"map_capacity"`
	// MapMaxAge expires entries at read time. Zero disables expiry.
	MapMaxAge time.Duration `mapstructure:"map_max_age" yaml:"map_max_age"`
}

// HealerConfig tunes the semantic healer.
type HealerConfig struct {
	// Threshold is the strict lower bound a combined score must exceed for a
	// heal to succeed. Fixed for the lifetime of a healer instance.
	Threshold float64 `mapstructure:"threshold" yaml:"threshold"`
	// VisualWeight and StructuralWeight blend the cosine and string
	// similarity terms when a candidate carries a structural label.
	VisualWeight     float64 `mapstructure:"visual_weight" yaml:"visual_weight"`
	StructuralWeight float64 `mapstructure:"structural_weight" yaml:"structural_weight"`
}

// ObserverConfig tunes the state-change observer.
type ObserverConfig struct {
	// StabilityThreshold is the minimum score considered stable.
	StabilityThreshold float64 `mapstructure:"stability_threshold" yaml:"stability_threshold"`
	// InteractionRecencyWindow is how recently a user interaction may have
	// occurred before it counts against stability.
	InteractionRecencyWindow time.Duration `mapstructure:"interaction_recency_window" yaml:"interaction_recency_window"`
}

// AgentConfig tunes the goal-oriented agent.
type AgentConfig struct {
	// StartState is the world-model node every goal execution begins at.
	StartState string `mapstructure:"start_state" yaml:"start_state"`
	// MaxExpansions caps BFS iterations so cyclic graphs always terminate.
	MaxExpansions int `mapstructure:"max_expansions" yaml:"max_expansions"`
	// StabilityRetries is how many times the observer gate is re-checked
	// before a step is abandoned as unstable.
	StabilityRetries int `mapstructure:"stability_retries" yaml:"stability_retries"`
	// StabilityBackoffInitial seeds the exponential backoff between checks.
	StabilityBackoffInitial time.Duration `mapstructure:"stability_backoff_initial" yaml:"stability_backoff_initial"`
	// Classifier selects the goal classification policy: "keyword" or "llm".
	Classifier string `mapstructure:"classifier" yaml:"classifier"`
	// LLM configures the optional LLM-backed classifier.
	LLM LLMConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMConfig holds credentials and model selection for the LLM classifier.
type LLMConfig struct {
	APIKey     string        `mapstructure:"api_key" yaml:"api_key"`
	Model      string        `mapstructure:"model" yaml:"model"`
	APITimeout time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
}

// BrowserConfig tunes the optional live CDP signal source.
type BrowserConfig struct {
	Headless bool `mapstructure:"headless" yaml:"headless"`
	// SampleWindow is how long the sampler aggregates mutation and layout
	// signals before emitting a StabilitySample.
	SampleWindow time.Duration `mapstructure:"sample_window" yaml:"sample_window"`
	// NavigationTimeout bounds page loads during capture.
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// Logger
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "veritas")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// Perception
	v.SetDefault("perception.backend", "simulated")
	v.SetDefault("perception.grid_size", 50)
	v.SetDefault("perception.max_calls_per_second", 0.0)

	// Locator
	v.SetDefault("locator.write_threshold", 0.90)
	v.SetDefault("locator.cache_confidence", 0.98)
	v.SetDefault("locator.map_capacity", 512)
	v.SetDefault("locator.map_max_age", 10*time.Minute)

	// Healer
	v.SetDefault("healer.threshold", 0.85)
	v.SetDefault("healer.visual_weight", 0.6)
	v.SetDefault("healer.structural_weight", 0.4)

	// Observer
	v.SetDefault("observer.stability_threshold", 0.95)
	v.SetDefault("observer.interaction_recency_window", 300*time.Millisecond)

	// Agent
	v.SetDefault("agent.start_state", "Home")
	v.SetDefault("agent.max_expansions", 1000)
	v.SetDefault("agent.stability_retries", 3)
	v.SetDefault("agent.stability_backoff_initial", 100*time.Millisecond)
	v.SetDefault("agent.classifier", "keyword")
	v.SetDefault("agent.llm.model", "gemini-2.0-flash")
	v.SetDefault("agent.llm.api_timeout", 30*time.Second)

	// Browser
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.sample_window", 500*time.Millisecond)
	v.SetDefault("browser.navigation_timeout", 90*time.Second)
}

// Load reads configuration from the given file (optional), the environment,
// and defaults, and returns the validated Config.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	if cfgFile != "" {
		expanded, err := homedir.Expand(cfgFile)
		if err != nil {
			return nil, fmt.Errorf("failed to expand config path: %w", err)
		}
		v.SetConfigFile(expanded)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("VERITAS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// No config file; defaults and env vars apply.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NewDefault returns a Config populated purely from defaults. Intended for
// tests and for embedding the core as a library.
func NewDefault() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	// Unmarshal of pure defaults cannot fail.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Validate checks cross-field consistency of the loaded configuration.
func (c *Config) Validate() error {
	if c.Locator.WriteThreshold <= 0 || c.Locator.WriteThreshold > 1 {
		return fmt.Errorf("locator.write_threshold must be in (0, 1], got %v", c.Locator.WriteThreshold)
	}
	if c.Healer.Threshold <= 0 || c.Healer.Threshold >= 1 {
		return fmt.Errorf("healer.threshold must be in (0, 1), got %v", c.Healer.Threshold)
	}
	if w := c.Healer.VisualWeight + c.Healer.StructuralWeight; w <= 0 {
		return fmt.Errorf("healer weights must sum to a positive value, got %v", w)
	}
	if c.Observer.StabilityThreshold <= 0 || c.Observer.StabilityThreshold > 1 {
		return fmt.Errorf("observer.stability_threshold must be in (0, 1], got %v", c.Observer.StabilityThreshold)
	}
	if c.Agent.MaxExpansions <= 0 {
		return fmt.Errorf("agent.max_expansions must be positive, got %d", c.Agent.MaxExpansions)
	}
	if c.Agent.Classifier != "keyword" && c.Agent.Classifier != "llm" {
		return fmt.Errorf("agent.classifier must be \"keyword\" or \"llm\", got %q", c.Agent.Classifier)
	}
	if c.Agent.Classifier == "llm" && c.Agent.LLM.APIKey == "" {
		return fmt.Errorf("agent.llm.api_key is required when agent.classifier is \"llm\"")
	}
	return nil
}
