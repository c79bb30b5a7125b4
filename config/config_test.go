package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.HTTPPort)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Errorf("unexpected default ollama url %q", cfg.OllamaURL)
	}
	if cfg.ProbeTimeout != 5*time.Second {
		t.Errorf("unexpected default probe timeout %v", cfg.ProbeTimeout)
	}
	if cfg.Temperature != 0.7 || cfg.NumCtx != 4096 || cfg.RepeatPenalty != 1.1 {
		t.Errorf("unexpected default sampling options: %+v", cfg)
	}
	if cfg.DefaultContextMessages != 10 || cfg.MaxContextMessages != 50 {
		t.Errorf("unexpected default context bounds: %+v", cfg)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("HTTP_PORT", "9090")
	t.Setenv("OLLAMA_URL", "http://ollama:11434")
	t.Setenv("MODEL_TEMPERATURE", "0.2")
	t.Setenv("MAX_CONTEXT_MESSAGES", "100")

	cfg := Load()

	if cfg.HTTPPort != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.HTTPPort)
	}
	if cfg.OllamaURL != "http://ollama:11434" {
		t.Errorf("unexpected ollama url %q", cfg.OllamaURL)
	}
	if cfg.Temperature != 0.2 {
		t.Errorf("expected temperature 0.2, got %v", cfg.Temperature)
	}
	if cfg.MaxContextMessages != 100 {
		t.Errorf("expected max context 100, got %d", cfg.MaxContextMessages)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("HTTP_PORT", "not-a-number")
	t.Setenv("MODEL_TEMPERATURE", "warm")

	cfg := Load()

	if cfg.HTTPPort != 8080 {
		t.Errorf("expected default port on malformed value, got %d", cfg.HTTPPort)
	}
	if cfg.Temperature != 0.7 {
		t.Errorf("expected default temperature on malformed value, got %v", cfg.Temperature)
	}
}
