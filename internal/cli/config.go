package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = "roomplan.yaml"

// Config is the server configuration loaded from roomplan.yaml. Zero
// values fall back to defaults.
type Config struct {
	Addr            string `yaml:"addr"`
	SocketPath      string `yaml:"socket_path"`
	DBPath          string `yaml:"db_path"`
	KeysFile        string `yaml:"keys_file"`
	PromoteInterval string `yaml:"promote_interval"`
	ReapInterval    string `yaml:"reap_interval"`
	GraceWindow     string `yaml:"grace_window"`
}

func ResolveConfigPath() string {
	if v := strings.TrimSpace(os.Getenv("ROOMPLAN_CONFIG")); v != "" {
		return v
	}
	return defaultConfigFile
}

// LoadConfig reads the yaml config at path. A missing file yields the
// zero config (all defaults), not an error.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Config{}, nil
		}
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

func (c Config) addr() string {
	if c.Addr != "" {
		return c.Addr
	}
	return ":7343"
}

func (c Config) dbPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return "roomplan.db"
}

func (c Config) promoteInterval() (time.Duration, error) {
	return parseDuration(c.PromoteInterval, 5*time.Second)
}

func (c Config) reapInterval() (time.Duration, error) {
	return parseDuration(c.ReapInterval, 60*time.Second)
}

func (c Config) graceWindow() (time.Duration, error) {
	return parseDuration(c.GraceWindow, time.Hour)
}

func parseDuration(v string, fallback time.Duration) (time.Duration, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("duration %q must be positive", v)
	}
	return d, nil
}
