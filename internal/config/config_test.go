package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \"9090\"\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("port = %q, want 9090", cfg.Server.Port)
	}
	if cfg.LLM.Model != "gpt-4o" {
		t.Errorf("llm.model = %q, want gpt-4o", cfg.LLM.Model)
	}
	if cfg.LLM.TimeoutSeconds != 30 {
		t.Errorf("llm.timeout_seconds = %d, want 30", cfg.LLM.TimeoutSeconds)
	}
	if cfg.LLM.Generation.MaxTokens != 1000 {
		t.Errorf("llm.generation.max_tokens = %d, want 1000", cfg.LLM.Generation.MaxTokens)
	}
	if cfg.Auth.PasswordScheme != "legacy" {
		t.Errorf("auth.password_scheme = %q, want legacy", cfg.Auth.PasswordScheme)
	}
	if cfg.Chat.BusyTTLSeconds != 60 {
		t.Errorf("chat.busy_ttl_seconds = %d, want 60", cfg.Chat.BusyTTLSeconds)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: \"gpt-4o-mini\"\n")
	t.Setenv("LLM_MODEL", "gpt-4.1")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.Model != "gpt-4.1" {
		t.Errorf("llm.model = %q, want env override gpt-4.1", cfg.LLM.Model)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("Load() on missing file should fail")
	}
}

func TestInitPanicsOnMissingFile(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("Init() should panic when the file is missing")
		}
	}()
	Init(filepath.Join(t.TempDir(), "missing.yaml"))
}
