package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-mclib/gateway/pkg/whitelist"
)

const (
	listedID   = "ab12cd34ef56ab12cd34ef56ab12cd34"
	unlistedID = "0123456789abcdef0123456789abcdef"
)

func TestAuthGateVerify(t *testing.T) {
	wl := whitelist.New(listedID)

	tests := []struct {
		name    string
		enforce bool
		payload string
		err     error
	}{
		{"listed", true, "x:tok:" + listedID, nil},
		{"listed dashed upper case", true, "x:tok:AB12CD34-EF56-AB12-CD34-EF56AB12CD34", nil},
		{"extra parts ignored", true, "x:tok:" + listedID + ":more", nil},
		{"not listed", true, "x:tok:" + unlistedID, ErrAuthNotWhitelisted},
		{"not listed, not enforced", false, "x:tok:" + unlistedID, nil},
		{"not hex", false, "x:tok:zz12cd34ef56ab12cd34ef56ab12cd34", ErrAuthInvalidIdentity},
		{"too short", false, "x:tok:ab12", ErrAuthInvalidIdentity},
		{"missing identity", false, "x:tok", ErrAuthMalformed},
		{"empty token", false, "x::" + listedID, ErrAuthMalformed},
		{"empty", false, "", ErrAuthMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := &AuthGate{Whitelist: wl, Enforce: tt.enforce}
			creds, id, err := g.Verify("Steve", []byte(tt.payload))
			if tt.err != nil {
				assert.ErrorIs(t, err, tt.err)
				assert.ErrorIs(t, err, ErrAuthRejected)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Steve", creds.Username)
			assert.Equal(t, "tok", creds.AccessToken)
			assert.Len(t, creds.UUID, 32)
			assert.Equal(t, creds.UUID, whitelist.Normalize(id.String()))
		})
	}
}

func TestAuthGateEnforcedWithoutWhitelist(t *testing.T) {
	g := &AuthGate{Enforce: true}
	_, _, err := g.Verify("Steve", []byte("x:tok:"+listedID))
	assert.ErrorIs(t, err, ErrAuthNotWhitelisted)
}
