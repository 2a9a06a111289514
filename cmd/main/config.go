package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"
)

// ServerConfig holds the configuration for the HTTP server.
type ServerConfig struct {
	ServerAddr     string `json:"server_addr"`
	LogLevel       string `json:"log_level"`
	DataDir        string `json:"data_dir"`
	DatabaseDriver string `json:"database_driver"` // "sqlite" or "postgres"
	DatabaseDSN    string `json:"database_dsn"`
	TemplateDir    string `json:"template_dir"` // filesystem fallback for templates not in the database
}

// SiteConfig holds the site metadata exposed to templates through the
// pagemeta tag.
type SiteConfig struct {
	Name    string `json:"name"`
	BaseURL string `json:"base_url"`
	Author  string `json:"author"`
}

// Config is the top-level configuration struct that aggregates all other configs.
type Config struct {
	Server *ServerConfig `json:"server_config"`
	Site   *SiteConfig   `json:"site_config"`
}

// DefaultServerConfig creates a server configuration with default values.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		ServerAddr:     ":8475",
		LogLevel:       "info",
		DataDir:        "./data",
		DatabaseDriver: "sqlite",
		DatabaseDSN:    "./data/tagkit_site.db?_journal_mode=WAL&_busy_timeout=5000",
		TemplateDir:    "./data/templates",
	}
}

// DefaultSiteConfig creates site metadata with placeholder values.
func DefaultSiteConfig() *SiteConfig {
	return &SiteConfig{
		Name:    "tagkit demo",
		BaseURL: "http://localhost:8475",
		Author:  "anonymous",
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	// Initialize with default configurations
	config := &Config{
		Server: DefaultServerConfig(),
		Site:   DefaultSiteConfig(),
	}

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Log a warning instead of failing, as the server can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		// For other errors (e.g., permission denied), return the error.
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Unmarshal the JSON from the file into the config struct.
	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}
