package config

import "time"

type LimitsConfig interface {
	GetRateLimitRequests() int
	GetRateLimitWindow() time.Duration
	GetMaxStorageBytes() int64
	GetMaxStorageFiles() int
}

type Limits struct {
	settings Settings
}

var _ LimitsConfig = Limits{}

func (l Limits) GetRateLimitRequests() int {
	return l.settings.getInt("RATE_LIMIT_REQUESTS", 100)
}

func (l Limits) GetRateLimitWindow() time.Duration {
	return l.settings.getDuration("RATE_LIMIT_WINDOW", 60*time.Second)
}

func (l Limits) GetMaxStorageBytes() int64 {
	return l.settings.getInt64("MAX_STORAGE_BYTES", 10*1024*1024)
}

func (l Limits) GetMaxStorageFiles() int {
	return l.settings.getInt("MAX_STORAGE_FILES", 1000)
}
