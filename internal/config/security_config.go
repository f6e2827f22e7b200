package config

import "time"

type SecurityConfig interface {
	GetRequirePKCE() bool
	GetAllowedUsers() []string
	GetRegistrationRateLimit() (perInterval time.Duration, burst int)
}

type Security struct {
	settings Settings
}

var _ SecurityConfig = Security{}

func (Security) GetRequirePKCE() bool {
	return true
}

// GetAllowedUsers returns the upstream user ids permitted to sign in.
// An empty list denies everyone.
func (s Security) GetAllowedUsers() []string {
	return s.settings.getList("ALLOWED_USERS", nil)
}

// GetRegistrationRateLimit limits dynamic client registration per remote
// address: one registration per interval with the given burst.
func (s Security) GetRegistrationRateLimit() (time.Duration, int) {
	return s.settings.getDuration("REGISTRATION_INTERVAL", 6*time.Second), s.settings.getInt("REGISTRATION_BURST", 10)
}
