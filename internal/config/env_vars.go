package config

import (
	"fmt"
	"strings"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	baseURLVar      = "BASE_URL"
	logLevelVar     = "LOG_LEVEL"
	storeBackendVar = "STORE_BACKEND"
)

const (
	StoreBackendMemory = "memory"
	StoreBackendRedis  = "redis"
)

type EnvVars struct {
	settings Settings
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetPort() string {
	port := e.settings.get(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = fmt.Sprintf(":%s", port)
	}
	return port
}

func (e EnvVars) GetAppName() string {
	return e.settings.get(appNameVar, "Notes MCP")
}

func (e EnvVars) GetEnv() string {
	return e.settings.get("ENV", "DEV")
}

// GetBaseURL returns the public base URL of the server (e.g., "https://notes.example.com").
// It is used as the issuer, for the upstream callback URL and in discovery metadata.
func (e EnvVars) GetBaseURL() string {
	return strings.TrimSuffix(e.settings.get(baseURLVar, "http://localhost:8080"), "/")
}

func (e EnvVars) GetLogLevel() string {
	return e.settings.get(logLevelVar, "info")
}

// GetStoreBackend selects where codes, tokens, pending flows, clients and
// rate-limit counters live: "memory" or "redis".
func (e EnvVars) GetStoreBackend() string {
	return strings.ToLower(e.settings.get(storeBackendVar, StoreBackendMemory))
}
