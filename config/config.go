// Package config loads cmdgate settings from file and environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

const (
	configFileName = "config.yaml"
	configDirName  = "cmdgate"
)

// Config for cmdgate. Pointer fields; nil = unset.
type Config struct {
	// RulesFile points at a YAML policy file. Unset means the embedded
	// default policy.
	RulesFile *string `yaml:"rules_file"`

	// AuditDB enables the SQLite verdict log at the given path.
	AuditDB *string `yaml:"audit_db"`

	// ReasonMaxChars bounds the command echo in deny reasons.
	ReasonMaxChars *int `yaml:"reason_max_chars"`

	Server *ServerConfig `yaml:"server"`
}

// ServerConfig holds MCP server identification overrides.
type ServerConfig struct {
	Name    *string `yaml:"name"`
	Version *string `yaml:"version"`
}

// LoadFrom loads config from path. Missing files return zero Config, nil.
func LoadFrom(path string) (Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func Load() (Config, error) {
	return LoadFrom(defaultConfigPath())
}

func (c *Config) applyEnvOverrides() error {
	if v, ok := os.LookupEnv("CMDGATE_RULES_FILE"); ok {
		c.RulesFile = &v
	}
	if v, ok := os.LookupEnv("CMDGATE_AUDIT_DB"); ok {
		c.AuditDB = &v
	}
	if v, ok := os.LookupEnv("CMDGATE_REASON_MAX_CHARS"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse CMDGATE_REASON_MAX_CHARS: %w", err)
		}
		c.ReasonMaxChars = &n
	}
	if v, ok := os.LookupEnv("CMDGATE_SERVER_NAME"); ok {
		if c.Server == nil {
			c.Server = &ServerConfig{}
		}
		c.Server.Name = &v
	}
	return nil
}

func (c *Config) validate() error {
	if c.RulesFile != nil && *c.RulesFile == "" {
		return errors.New("rules_file must not be empty when set")
	}
	if c.ReasonMaxChars != nil && *c.ReasonMaxChars <= 0 {
		return fmt.Errorf("reason_max_chars must be positive, got %d", *c.ReasonMaxChars)
	}
	if c.ReasonMaxChars != nil && *c.ReasonMaxChars > 10000 {
		return fmt.Errorf("reason_max_chars must not exceed 10000, got %d", *c.ReasonMaxChars)
	}
	return nil
}

func defaultConfigPath() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, _ := os.UserHomeDir()
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, configDirName, configFileName)
}
