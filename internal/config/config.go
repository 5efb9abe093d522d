package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

type Config struct {
	DataDir       string `json:"data_dir"`
	LogLevel      string `json:"log_level"`
	DatabasePath  string `json:"database_path"`
	MaxConcurrent int    `json:"max_concurrent"`
	ReplySchedule string `json:"reply_schedule"`
	ReplyLimit    int    `json:"reply_limit"`
	Horizons      struct {
		Host               string `json:"host"`
		Port               int    `json:"port"`
		DialTimeoutSeconds int    `json:"dial_timeout_seconds"`
		StepTimeoutSeconds int    `json:"step_timeout_seconds"`
		StepSize           string `json:"step_size"`
		Quantities         string `json:"quantities"`
	} `json:"horizons"`
	Telegram struct {
		Token string `json:"token"`
	} `json:"telegram"`
	Webhook struct {
		Addr string `json:"addr"`
	} `json:"webhook"`
}

// DatabaseFile returns the configured database path, defaulting to
// events.db under the data directory.
func (c *Config) DatabaseFile() string {
	if c.DatabasePath != "" {
		return c.DatabasePath
	}
	return filepath.Join(c.DataDir, "events.db")
}

func Load(path string) (*Config, error) {
	cfg := &Config{
		DataDir:       filepath.Join(os.Getenv("HOME"), ".celestialecho"),
		MaxConcurrent: 2,
	}
	cfg.LogLevel = "info"
	cfg.ReplySchedule = "@every 1m"
	cfg.ReplyLimit = 280
	cfg.Horizons.Host = "horizons.jpl.nasa.gov"
	cfg.Horizons.Port = 6775
	cfg.Horizons.DialTimeoutSeconds = 20
	cfg.Horizons.StepTimeoutSeconds = 30
	cfg.Horizons.StepSize = "7d"
	cfg.Horizons.Quantities = "21"
	cfg.Webhook.Addr = "127.0.0.1:8744"

	// Load from file if exists, otherwise write defaults
	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, err
		}
	} else if os.IsNotExist(err) {
		if err := Save(path, cfg); err != nil {
			return nil, err
		}
	}

	// Override from env (highest precedence)
	if tgToken := os.Getenv("TELEGRAM_BOT_TOKEN"); tgToken != "" {
		cfg.Telegram.Token = tgToken
	}
	if host := os.Getenv("HORIZONS_HOST"); host != "" {
		cfg.Horizons.Host = host
	}
	if port := os.Getenv("HORIZONS_PORT"); port != "" {
		if n, err := strconv.Atoi(port); err == nil {
			cfg.Horizons.Port = n
		}
	}

	return cfg, nil
}

// Save writes the config as indented JSON, atomically via a temp file.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	data = append(data, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}

// ToMap converts a Config into a generic nested map via its JSON form.
func ToMap(cfg *Config) (map[string]any, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

// ListValues returns the config as a flat dot-keyed map. When mask is
// true, secret values are masked.
func ListValues(cfg *Config, mask bool) (map[string]any, error) {
	m, err := ToMap(cfg)
	if err != nil {
		return nil, err
	}
	flat := Flatten(m)
	if mask {
		flat = MaskSecrets(flat)
	}
	return flat, nil
}

// GetValue loads the config at path and returns the value for a
// dot-separated key.
func GetValue(path, key string) (any, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	flat, err := ListValues(cfg, false)
	if err != nil {
		return nil, err
	}
	v, ok := flat[key]
	if !ok {
		return nil, fmt.Errorf("unknown config key: %s", key)
	}
	return v, nil
}

// SetValue updates one dot-separated key in the config file. The value
// string is parsed as JSON when possible so numbers and booleans keep
// their type; otherwise it is stored as a string.
func SetValue(path, key, value string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	var parsed any
	if err := json.Unmarshal([]byte(value), &parsed); err != nil {
		parsed = value
	}

	flat := Flatten(m)
	flat[key] = parsed
	nested := Unflatten(flat)

	out, err := json.MarshalIndent(nested, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	out = append(out, '\n')
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, out, 0644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename config: %w", err)
	}
	return nil
}
