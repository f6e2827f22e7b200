package config

import "time"

type SessionConfig interface {
	GetSessionTimeout() time.Duration
	GetMaxSessions() int
	GetKeepAliveInterval() time.Duration
}

type Session struct {
	settings Settings
}

var _ SessionConfig = Session{}

func (s Session) GetSessionTimeout() time.Duration {
	return s.settings.getDuration("SESSION_TIMEOUT", 30*time.Minute)
}

func (s Session) GetMaxSessions() int {
	return s.settings.getInt("MAX_SESSIONS", 10000)
}

// GetKeepAliveInterval is the comment interval on GET /mcp event streams.
func (s Session) GetKeepAliveInterval() time.Duration {
	return s.settings.getDuration("SSE_KEEPALIVE_INTERVAL", 25*time.Second)
}
