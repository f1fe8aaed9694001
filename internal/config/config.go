// Package config loads application configuration from an optional YAML file
// and PATENTS_-prefixed environment variables, and owns global logger setup.
package config

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Input     InputConfig     `yaml:"input" mapstructure:"input"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Collect   CollectConfig   `yaml:"collect" mapstructure:"collect"`
	Describe  DescribeConfig  `yaml:"describe" mapstructure:"describe"`
	Screen    LLMStageConfig  `yaml:"screen" mapstructure:"screen"`
	Classify  LLMStageConfig  `yaml:"classify" mapstructure:"classify"`
	Covid     LLMStageConfig  `yaml:"covid" mapstructure:"covid"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// InputConfig locates the search exports that seed the pipeline.
type InputConfig struct {
	Dir string `yaml:"dir" mapstructure:"dir"`
}

// StoreConfig configures the output directory and the chunked corpus files.
type StoreConfig struct {
	Dir         string `yaml:"dir" mapstructure:"dir"`
	ChunkPrefix string `yaml:"chunk_prefix" mapstructure:"chunk_prefix"`
	ChunkSize   int    `yaml:"chunk_size" mapstructure:"chunk_size"`

	ScreenedFile   string `yaml:"screened_file" mapstructure:"screened_file"`
	DetailedFile   string `yaml:"detailed_file" mapstructure:"detailed_file"`
	FailedFile     string `yaml:"failed_file" mapstructure:"failed_file"`
	ClassifiedFile string `yaml:"classified_file" mapstructure:"classified_file"`
	FinalFile      string `yaml:"final_file" mapstructure:"final_file"`
}

// Path joins a stage output file name onto the store directory.
func (s StoreConfig) Path(name string) string {
	return filepath.Join(s.Dir, name)
}

// CollectConfig configures the abstract-scrape stage.
type CollectConfig struct {
	Workers     int     `yaml:"workers" mapstructure:"workers"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DescribeConfig configures the full-detail scrape stage.
type DescribeConfig struct {
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	TimeoutSecs   int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// LLMStageConfig configures one LLM-backed annotation stage.
type LLMStageConfig struct {
	MaxConcurrent int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	RatePerSec    float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("PATENTS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("input.dir", "./input")
	v.SetDefault("store.dir", "./output")
	v.SetDefault("store.chunk_prefix", "all_patents")
	v.SetDefault("store.chunk_size", 1000)
	v.SetDefault("store.screened_file", "education_patents.json")
	v.SetDefault("store.detailed_file", "detailed_patents.json")
	v.SetDefault("store.failed_file", "failed_patents.json")
	v.SetDefault("store.classified_file", "classified_patents.json")
	v.SetDefault("store.final_file", "final_patents.json")
	v.SetDefault("collect.workers", 4)
	v.SetDefault("collect.rate_per_sec", 1.0)
	v.SetDefault("collect.timeout_secs", 15)
	v.SetDefault("describe.max_concurrent", 5)
	v.SetDefault("describe.rate_per_sec", 2.0)
	v.SetDefault("describe.timeout_secs", 20)
	v.SetDefault("screen.max_concurrent", 5)
	v.SetDefault("screen.rate_per_sec", 2.0)
	v.SetDefault("classify.max_concurrent", 5)
	v.SetDefault("classify.rate_per_sec", 1.0)
	v.SetDefault("covid.max_concurrent", 5)
	v.SetDefault("covid.rate_per_sec", 2.0)
	v.SetDefault("anthropic.key", "")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
