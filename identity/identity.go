// Package identity federates user verification to an upstream OAuth
// provider and checks the result against a static allowlist.
package identity

import (
	"context"
	"strings"

	"golang.org/x/oauth2"
)

// VerifiedIdentity is the user the upstream provider vouched for. UserID is
// the provider's stable identifier. Login is display only.
type VerifiedIdentity struct {
	UserID string
	Login  string
}

// ProviderToken is the upstream provider's credential. It is only used to
// fetch the identity and is dropped as soon as Verify returns. It shares no
// representation with the tokens this server issues.
type ProviderToken struct {
	token *oauth2.Token
}

func (ProviderToken) String() string {
	return "[provider token]"
}

type provider interface {
	authCodeURL(state string) string
	exchange(ctx context.Context, code string) (*ProviderToken, error)
	identify(ctx context.Context, token *ProviderToken) (VerifiedIdentity, error)
}

// Allowlist is a static set of permitted upstream user ids (GitHub numeric
// id, OIDC subject). Logins are never consulted since they can be renamed
// and reclaimed. An empty allowlist permits nobody.
type Allowlist struct {
	entries map[string]struct{}
}

func NewAllowlist(userIDs []string) *Allowlist {
	a := &Allowlist{entries: make(map[string]struct{}, len(userIDs))}
	for _, id := range userIDs {
		id = strings.TrimSpace(id)
		if id != "" {
			a.entries[id] = struct{}{}
		}
	}
	return a
}

// Allows reports whether the identity's user id is listed. Ids compare
// exactly.
func (a *Allowlist) Allows(id VerifiedIdentity) bool {
	if a == nil || id.UserID == "" {
		return false
	}
	_, ok := a.entries[id.UserID]
	return ok
}

func (a *Allowlist) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}
