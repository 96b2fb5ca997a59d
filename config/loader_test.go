package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnsureUserConfig(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	l := NewLoader(nil)
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() error = %v", err)
	}

	path := filepath.Join(home, UserConfigDir, UserConfigFile)
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("created user config not loadable: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("created user config is invalid: %v", err)
	}

	// A second call must not overwrite an existing file.
	content := "user:\n  id: someone@example.com\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to rewrite user config: %v", err)
	}
	if err := l.EnsureUserConfig(); err != nil {
		t.Fatalf("EnsureUserConfig() second call error = %v", err)
	}
	cfg, err = LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() error = %v", err)
	}
	if cfg.User.ID != "someone@example.com" {
		t.Errorf("existing user config was overwritten, got id %s", cfg.User.ID)
	}
}

func TestLoaderLayering(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	userPath := filepath.Join(home, UserConfigDir, UserConfigFile)
	if err := os.MkdirAll(filepath.Dir(userPath), 0755); err != nil {
		t.Fatalf("failed to create user config dir: %v", err)
	}
	userContent := "user:\n  id: user-layer@example.com\nchat:\n  trimInterval: 5m\n"
	if err := os.WriteFile(userPath, []byte(userContent), 0644); err != nil {
		t.Fatalf("failed to write user config: %v", err)
	}

	project := t.TempDir()
	projectContent := "user:\n  id: project-layer@example.com\n"
	if err := os.WriteFile(filepath.Join(project, ProjectConfigFile), []byte(projectContent), 0644); err != nil {
		t.Fatalf("failed to write project config: %v", err)
	}
	t.Chdir(project)

	cfg, err := NewLoader(nil).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	// Project layer wins over the user layer.
	if cfg.User.ID != "project-layer@example.com" {
		t.Errorf("expected project-layer id, got %s", cfg.User.ID)
	}
	// User layer values the project file does not set still apply.
	if cfg.Chat.TrimInterval != 5*time.Minute {
		t.Errorf("expected trim interval 5m from user layer, got %v", cfg.Chat.TrimInterval)
	}
	// Defaults fill whatever neither layer set.
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.Backend.Timeout)
	}
}
