// Package identity is the boundary with the remote identity provider. The
// session manager consumes it as an opaque capability: establish or drop the
// current identity, and watch for transitions.
package identity

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCredentials covers unknown emails and wrong passwords. The
	// two cases are deliberately indistinguishable to callers.
	ErrInvalidCredentials = errors.New("identity: invalid credentials")

	// ErrEmailTaken is returned by Register for an already-registered email.
	ErrEmailTaken = errors.New("identity: email already registered")

	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("identity: invalid token")
)

// Identity is the authenticated-user identity issued by the provider.
type Identity struct {
	UID       string
	Email     string
	Anonymous bool
}

// Change notifies a sign-in (Identity set) or sign-out (Identity nil).
type Change struct {
	Identity *Identity
}

// Provider is the identity capability consumed by the session manager.
// Sign-in operations return the identity plus a credential: an opaque token
// that can be cached on the device and redeemed later via SignInWithToken.
type Provider interface {
	SignInAnonymously(ctx context.Context) (Identity, string, error)
	SignIn(ctx context.Context, email, password string) (Identity, string, error)
	Register(ctx context.Context, email, password string) (Identity, string, error)
	SignInWithToken(ctx context.Context, token string) (Identity, string, error)
	SignOut()

	// IssueLinkToken mints a short-lived credential that a second device
	// can redeem via SignInWithToken to adopt the current identity.
	IssueLinkToken(ctx context.Context) (string, error)

	// Current returns the present identity, nil when signed out.
	Current() *Identity

	// Changes delivers identity transitions. Delivery is best-effort; the
	// consumer re-reads Current on each change.
	Changes() <-chan Change
}
