// Package config provides configuration loading and management for the
// console backend client.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/agentconsole/transport"
)

// Config represents the complete console configuration.
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	User    UserConfig    `yaml:"user"`
	NATS    NATSConfig    `yaml:"nats"`
	Archive ArchiveConfig `yaml:"archive"`
	Chat    ChatConfig    `yaml:"chat"`
}

// BackendConfig selects the backend environment and endpoint overrides.
type BackendConfig struct {
	// Environment is one of "shell", "browser" or "dev".
	Environment string `yaml:"environment"`
	// PrimaryURL overrides the primary backend base URL.
	PrimaryURL string `yaml:"primaryUrl"`
	// HooksURL overrides the hook service base URL.
	HooksURL string `yaml:"hooksUrl"`
	// Timeout bounds non-streaming requests.
	Timeout time.Duration `yaml:"timeout"`
}

// UserConfig carries the identity sent to the primary backend.
type UserConfig struct {
	// ID is the user identity attached to primary backend calls.
	ID string `yaml:"id"`
	// Token is the bearer token attached to backend requests (empty = none).
	Token string `yaml:"token"`
}

// NATSConfig configures alert forwarding onto the message bus.
type NATSConfig struct {
	// URL is the NATS server URL (empty = forwarding disabled).
	URL string `yaml:"url"`
	// SubjectPrefix is the root of the alert event subjects.
	SubjectPrefix string `yaml:"subjectPrefix"`
}

// ArchiveConfig configures the investigation archive.
type ArchiveConfig struct {
	// Path is the SQLite database file (empty = archiving disabled).
	Path string `yaml:"path"`
}

// ChatConfig configures chat history retention.
type ChatConfig struct {
	// TrimInterval is how often per-agent history is trimmed to its cap.
	TrimInterval time.Duration `yaml:"trimInterval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Environment: string(transport.EnvBrowser),
			Timeout:     30 * time.Second,
		},
		User: UserConfig{
			ID: "admin@agentconsole.dev",
		},
		NATS: NATSConfig{
			URL:           "", // Forwarding off
			SubjectPrefix: "alerts.event",
		},
		Archive: ArchiveConfig{
			Path: "", // Archiving off
		},
		Chat: ChatConfig{
			TrimInterval: time.Minute,
		},
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	switch transport.Environment(c.Backend.Environment) {
	case transport.EnvShell, transport.EnvBrowser, transport.EnvDev:
	default:
		return fmt.Errorf("backend.environment must be shell, browser or dev, got %q", c.Backend.Environment)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}
	if c.User.ID == "" {
		return fmt.Errorf("user.id is required")
	}
	if c.Chat.TrimInterval <= 0 {
		return fmt.Errorf("chat.trimInterval must be positive")
	}
	return nil
}

// Selector builds the endpoint selector implied by the backend section.
func (c *Config) Selector() transport.Selector {
	return transport.Selector{
		Env:             transport.Environment(c.Backend.Environment),
		PrimaryOverride: c.Backend.PrimaryURL,
		HooksOverride:   c.Backend.HooksURL,
	}
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// SaveToFile saves configuration to a YAML file.
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Merge merges another config into this one (other takes precedence for
// non-zero values).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if other.Backend.Environment != "" {
		c.Backend.Environment = other.Backend.Environment
	}
	if other.Backend.PrimaryURL != "" {
		c.Backend.PrimaryURL = other.Backend.PrimaryURL
	}
	if other.Backend.HooksURL != "" {
		c.Backend.HooksURL = other.Backend.HooksURL
	}
	if other.Backend.Timeout != 0 {
		c.Backend.Timeout = other.Backend.Timeout
	}

	if other.User.ID != "" {
		c.User.ID = other.User.ID
	}
	if other.User.Token != "" {
		c.User.Token = other.User.Token
	}

	if other.NATS.URL != "" {
		c.NATS.URL = other.NATS.URL
	}
	if other.NATS.SubjectPrefix != "" {
		c.NATS.SubjectPrefix = other.NATS.SubjectPrefix
	}

	if other.Archive.Path != "" {
		c.Archive.Path = other.Archive.Path
	}

	if other.Chat.TrimInterval != 0 {
		c.Chat.TrimInterval = other.Chat.TrimInterval
	}
}
