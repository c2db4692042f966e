package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"chartkit/internal/dbclient"
	"chartkit/internal/domain"
)

// Load reads the configuration with ${VAR} interpolation. If path is
// empty the default locations are searched; finding none yields
// Defaults().
func Load(path string, getenv func(string) string) (*Config, error) {
	path, err := resolvePath(path, getenv)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return Defaults(), nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	data = interpolateEnv(data, getenv)

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.BaseDir = filepath.Dir(absPath)
	cfg.resolvePaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolvePath finds the config file to use.
// Search order: explicit path > CHARTKIT_CONFIG > ./chartkit.yaml > ~/.config/chartkit/chartkit.yaml
func resolvePath(explicit string, getenv func(string) string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}
	if env := getenv("CHARTKIT_CONFIG"); env != "" {
		if _, err := os.Stat(env); err != nil {
			return "", fmt.Errorf("CHARTKIT_CONFIG file not found: %s", env)
		}
		return env, nil
	}
	if _, err := os.Stat("chartkit.yaml"); err == nil {
		return "chartkit.yaml", nil
	}
	if home, err := os.UserHomeDir(); err == nil {
		p := filepath.Join(home, ".config", "chartkit", "chartkit.yaml")
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", nil
}

// envPattern matches ${VAR} or ${VAR:-default}
var envPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func interpolateEnv(data []byte, getenv func(string) string) []byte {
	return envPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		parts := envPattern.FindSubmatch(match)
		value := getenv(string(parts[1]))
		if value == "" && len(parts[2]) > 0 {
			value = string(parts[2])
		}
		return []byte(value)
	})
}

func (c *Config) resolvePaths() {
	abs := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(c.BaseDir, p)
	}
	c.DataDir = abs(c.DataDir)
	c.Database = abs(c.Database)
	for i := range c.Connections {
		if c.Connections[i].Driver == domain.DatabaseDriverSQLite {
			c.Connections[i].Host = abs(c.Connections[i].Host)
		}
	}
}

// Validate reports every configuration problem at once.
func (c *Config) Validate() error {
	var errs []string

	if c.DataDir == "" && c.Database == "" {
		errs = append(errs, "data_dir or database is required")
	}
	if c.HTTP.Timeout < 0 {
		errs = append(errs, fmt.Sprintf("http.timeout must not be negative: %s", c.HTTP.Timeout))
	}
	if c.Render.Width <= 0 || c.Render.Height <= 0 {
		errs = append(errs, fmt.Sprintf("render size must be positive: %dx%d", c.Render.Width, c.Render.Height))
	}
	switch c.Secrets.Backend {
	case "", "env", "keychain":
	default:
		errs = append(errs, fmt.Sprintf("secrets.backend must be env or keychain, got %q", c.Secrets.Backend))
	}

	seen := make(map[string]bool)
	for i, conn := range c.Connections {
		if conn.Name == "" {
			errs = append(errs, fmt.Sprintf("connections[%d]: name is required", i))
		} else if seen[conn.Name] {
			errs = append(errs, fmt.Sprintf("connections[%d]: duplicate name %q", i, conn.Name))
		}
		seen[conn.Name] = true
		if !dbclient.SupportedDriver(conn.Driver) {
			errs = append(errs, fmt.Sprintf("connections[%d]: unsupported driver %q", i, conn.Driver))
		}
		if conn.Host == "" {
			errs = append(errs, fmt.Sprintf("connections[%d]: host is required", i))
		}
	}

	if len(errs) > 0 {
		return errors.New("configuration errors:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}
