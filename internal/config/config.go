package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	"github.com/KaramelBytes/edaloom-cli/internal/insight"
)

// Global configuration structure.
type Global struct {
	Provider      string `mapstructure:"provider" yaml:"provider"`
	Model         string `mapstructure:"model" yaml:"model"`
	APIKey        string `mapstructure:"api_key" yaml:"api_key"`
	OllamaHost    string `mapstructure:"ollama_host" yaml:"ollama_host"`
	OpenAIBaseURL string `mapstructure:"openai_base_url" yaml:"openai_base_url"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Insight policy
	InsightTimeoutSec int    `mapstructure:"insight_timeout_sec" yaml:"insight_timeout_sec"`
	InsightRetries    int    `mapstructure:"insight_retries" yaml:"insight_retries"`
	InsightRequired   bool   `mapstructure:"insight_required" yaml:"insight_required"`
	InsightFallback   string `mapstructure:"insight_fallback" yaml:"insight_fallback"`

	// Analysis
	ArtifactsDir  string `mapstructure:"artifacts_dir" yaml:"artifacts_dir"`
	HistogramBins int    `mapstructure:"histogram_bins" yaml:"histogram_bins"`
	MaxRows       int    `mapstructure:"max_rows" yaml:"max_rows"`

	// HTTP surface
	ServerAddr  string `mapstructure:"server_addr" yaml:"server_addr"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".edaloom"), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.edaloom/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: flags (applied by the caller) > env > config file > defaults.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix("EDALOOM")
	v.AutomaticEnv()

	v.SetDefault("provider", ai.ProviderOllama)
	v.SetDefault("model", ai.DefaultModel(ai.ProviderOllama))
	v.SetDefault("api_key", "")
	v.SetDefault("ollama_host", ai.DefaultOllamaHost)
	v.SetDefault("openai_base_url", "")
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 2)
	v.SetDefault("retry_base_delay_ms", 200)
	v.SetDefault("retry_max_delay_ms", 1000)
	// Insight defaults
	v.SetDefault("insight_timeout_sec", 180)
	v.SetDefault("insight_retries", 0)
	v.SetDefault("insight_required", false)
	v.SetDefault("insight_fallback", insight.DefaultFallback)
	// Analysis defaults
	v.SetDefault("artifacts_dir", "")
	v.SetDefault("histogram_bins", 30)
	v.SetDefault("max_rows", 0)
	// Server defaults
	v.SetDefault("server_addr", "127.0.0.1:7860")
	v.SetDefault("max_upload_mb", 32)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		// A missing file means defaults; a broken one is an error.
		var nf viper.ConfigFileNotFoundError
		if !errors.As(err, &nf) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.ArtifactsDir == "" {
		dir, err := configDir()
		if err != nil {
			return nil, err
		}
		c.ArtifactsDir = filepath.Join(dir, "runs")
	}
	return &c, nil
}

// Runtime returns the runtime settings for the configured provider.
func (c *Global) Runtime() ai.RuntimeConfig {
	rc := ai.RuntimeConfig{
		HTTPTimeout: time.Duration(c.HTTPTimeoutSec) * time.Second,
		RetryMax:    c.RetryMaxAttempts,
		BaseDelay:   time.Duration(c.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(c.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      c.APIKey,
		Host:        c.OllamaHost,
	}
	if c.Provider == ai.ProviderOpenAI {
		rc.BaseURL = c.OpenAIBaseURL
	}
	return rc
}

// Policy returns the insight policy described by c.
func (c *Global) Policy() insight.Policy {
	p := insight.DefaultPolicy()
	if c.InsightTimeoutSec > 0 {
		p.Timeout = time.Duration(c.InsightTimeoutSec) * time.Second
	}
	p.Retries = max(c.InsightRetries, 0)
	p.Required = c.InsightRequired
	if c.InsightFallback != "" {
		p.Fallback = c.InsightFallback
	}
	return p
}
