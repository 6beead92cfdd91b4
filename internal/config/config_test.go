package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/KaramelBytes/edaloom-cli/internal/ai"
	"github.com/KaramelBytes/edaloom-cli/internal/insight"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "ollama" || c.Model != "mistral" || c.OllamaHost != ai.DefaultOllamaHost {
		t.Fatalf("provider defaults = %+v", c)
	}
	if c.HistogramBins != 30 || c.ServerAddr != "127.0.0.1:7860" || c.MaxUploadMB != 32 {
		t.Fatalf("analysis defaults = %+v", c)
	}
	if filepath.Base(c.ArtifactsDir) != "runs" {
		t.Fatalf("artifacts dir = %s", c.ArtifactsDir)
	}
	p := c.Policy()
	if p.Timeout != 180*time.Second || p.Retries != 0 || p.Required || p.Fallback != insight.DefaultFallback {
		t.Fatalf("policy = %+v", p)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := "provider: openai\nmodel: gpt-4o-mini\nopenai_base_url: http://127.0.0.1:8000/v1\nhistogram_bins: 12\ninsight_required: true\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("EDALOOM_MODEL", "qwen2.5")
	t.Setenv("EDALOOM_RETRY_MAX_ATTEMPTS", "5")

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Provider != "openai" || c.HistogramBins != 12 || !c.InsightRequired {
		t.Fatalf("file values not applied: %+v", c)
	}
	if c.Model != "qwen2.5" || c.RetryMaxAttempts != 5 {
		t.Fatalf("env overrides not applied: %+v", c)
	}
	rc := c.Runtime()
	if rc.BaseURL != "http://127.0.0.1:8000/v1" || rc.RetryMax != 5 || rc.HTTPTimeout != time.Minute {
		t.Fatalf("runtime config = %+v", rc)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	c.Provider = "openrouter"
	c.APIKey = "sk-or-123"
	c.InsightRetries = 2
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	back, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if back.Provider != "openrouter" || back.APIKey != "sk-or-123" || back.Policy().Retries != 2 {
		t.Fatalf("reloaded = %+v", back)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("provider: [unclosed\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected error for malformed yaml")
	}
}
