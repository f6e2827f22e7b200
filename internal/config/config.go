package config

type Config interface {
	EnvConfig
	CorsConfig
	OAuthConfig
	SecurityConfig
	SessionConfig
	LimitsConfig
	UpstreamConfig
	RedisConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetBaseURL() string
	GetLogLevel() string
	GetStoreBackend() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
	GetExposedHeaders() string
}

type mainConfig struct {
	EnvVars
	Cors
	OAuth
	Security
	Session
	Limits
	Upstream
	Redis
}

// New builds a config from environment variables only.
func New() Config {
	return NewFromSettings(nil)
}

// NewFromSettings builds a config whose values fall back to settings
// before the built-in defaults.
func NewFromSettings(settings Settings) Config {
	if settings == nil {
		settings = Settings{}
	}
	return mainConfig{
		EnvVars:  EnvVars{settings},
		Cors:     Cors{settings},
		OAuth:    OAuth{settings},
		Security: Security{settings},
		Session:  Session{settings},
		Limits:   Limits{settings},
		Upstream: Upstream{settings},
		Redis:    Redis{settings},
	}
}

// Load reads the optional config file and layers it under the environment.
func Load(path string) (Config, error) {
	if path == "" {
		return New(), nil
	}
	settings, err := LoadSettings(path)
	if err != nil {
		return nil, err
	}
	return NewFromSettings(settings), nil
}
