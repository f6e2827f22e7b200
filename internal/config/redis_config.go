package config

type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Redis struct {
	settings Settings
}

var _ RedisConfig = Redis{}

func (r Redis) GetRedisAddr() string {
	return r.settings.get("REDIS_ADDR", "localhost:6379")
}

func (r Redis) GetRedisPassword() string {
	return r.settings.get("REDIS_PASSWORD", "")
}

func (r Redis) GetRedisDB() int {
	return r.settings.getInt("REDIS_DB", 0)
}

func (r Redis) GetRedisKeyPrefix() string {
	return r.settings.get("REDIS_KEY_PREFIX", "notes-mcp:")
}
