package gateway

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-mclib/protocol/auth"
	"github.com/google/uuid"

	"github.com/go-mclib/gateway/pkg/whitelist"
)

var (
	ErrAuthRejected        = errors.New("auth rejected")
	ErrAuthMalformed       = fmt.Errorf("%w: malformed payload", ErrAuthRejected)
	ErrAuthInvalidIdentity = fmt.Errorf("%w: identity is not hex", ErrAuthRejected)
	ErrAuthNotWhitelisted  = fmt.Errorf("%w: identity not whitelisted", ErrAuthRejected)
)

// AuthGate validates credentials sent on AuthChannel. The payload is
// "<ignored>:<token>:<identity>".
type AuthGate struct {
	// Whitelist is consulted only when Enforce is set.
	Whitelist *whitelist.Set
	Enforce   bool
}

// Verify parses payload and returns the credentials to impersonate
// username with, along with the identity as a UUID.
func (g *AuthGate) Verify(username string, payload []byte) (auth.LoginData, uuid.UUID, error) {
	parts := strings.Split(string(payload), ":")
	if len(parts) < 3 || parts[1] == "" {
		return auth.LoginData{}, uuid.Nil, ErrAuthMalformed
	}
	token, identity := parts[1], whitelist.Normalize(parts[2])
	if !whitelist.Valid(identity) {
		return auth.LoginData{}, uuid.Nil, ErrAuthInvalidIdentity
	}
	if g.Enforce && (g.Whitelist == nil || !g.Whitelist.Contains(identity)) {
		return auth.LoginData{}, uuid.Nil, ErrAuthNotWhitelisted
	}
	id, err := uuid.Parse(identity)
	if err != nil {
		return auth.LoginData{}, uuid.Nil, fmt.Errorf("%w: %v", ErrAuthInvalidIdentity, err)
	}
	return auth.LoginData{
		Username:    username,
		UUID:        identity,
		AccessToken: token,
	}, id, nil
}
