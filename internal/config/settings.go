package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Settings holds values loaded from a config file, keyed by environment
// variable name. Environment variables always take precedence.
type Settings map[string]string

// LoadSettings reads a flat YAML file. Keys are matched case-insensitively
// against environment variable names, so both "PORT" and "port" work.
func LoadSettings(path string) (Settings, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := make(Settings, len(raw))
	for k, v := range raw {
		settings[normaliseKey(k)] = v
	}
	return settings, nil
}

func normaliseKey(key string) string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(key))
}

func (s Settings) get(envVar, defaultValue string) string {
	if value := os.Getenv(envVar); value != "" {
		return value
	}
	if value, ok := s[envVar]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s Settings) getInt(envVar string, defaultValue int) int {
	value, err := strconv.Atoi(s.get(envVar, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

func (s Settings) getInt64(envVar string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(s.get(envVar, ""), 10, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s Settings) getDuration(envVar string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(s.get(envVar, ""))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func (s Settings) getList(envVar string, defaultValue []string) []string {
	value := s.get(envVar, "")
	if value == "" {
		return defaultValue
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// GetEnv returns the environment variable or the default when it is unset.
func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
