// Package config loads chartkit's YAML configuration.
package config

import (
	"os"
	"path/filepath"
	"time"

	"chartkit/internal/domain"
)

// Config is the chartkit configuration file.
type Config struct {
	// DataDir holds the view database when Database is not set.
	DataDir  string `yaml:"data_dir"`
	Database string `yaml:"database"`
	// Locale labels ticks for views that do not set their own.
	Locale string `yaml:"locale"`

	HTTP    HTTPConfig    `yaml:"http"`
	Render  RenderConfig  `yaml:"render"`
	Secrets SecretsConfig `yaml:"secrets"`

	Connections []domain.DatabaseConnection `yaml:"connections"`

	// BaseDir is the directory of the loaded file; empty for defaults.
	BaseDir string `yaml:"-"`
}

type HTTPConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

type RenderConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type SecretsConfig struct {
	Backend string `yaml:"backend"` // env | keychain
}

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	dataDir := ".chartkit"
	if home, err := os.UserHomeDir(); err == nil {
		dataDir = filepath.Join(home, ".chartkit")
	}
	return &Config{
		DataDir: dataDir,
		Locale:  "en-US",
		HTTP:    HTTPConfig{Timeout: 30 * time.Second},
		Render:  RenderConfig{Width: 960, Height: 500},
		Secrets: SecretsConfig{Backend: "env"},
	}
}

// DatabasePath is the SQLite file holding views and export jobs.
func (c *Config) DatabasePath() string {
	if c.Database != "" {
		return c.Database
	}
	return filepath.Join(c.DataDir, "chartkit.db")
}

// Connection returns the named database connection.
func (c *Config) Connection(name string) (*domain.DatabaseConnection, bool) {
	for i := range c.Connections {
		if c.Connections[i].Name == name {
			return &c.Connections[i], true
		}
	}
	return nil, false
}
