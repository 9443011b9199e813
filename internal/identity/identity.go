// Package identity resolves the user on whose behalf a ledger
// operation runs. The HTTP layer authenticates a request and stashes
// the user into the context; the ledger core only ever asks a Provider.
package identity

import (
	"context"
	"errors"
)

// ErrNotSignedIn is returned when no identity is available. Fatal to
// any mutating operation; callers surface it as a sign-in redirect.
var ErrNotSignedIn = errors.New("not signed in")

// User is the identity attached to a request.
type User struct {
	ID          string
	DisplayName string
	PhotoURL    string
}

// Provider yields the current user.
type Provider interface {
	CurrentUser(ctx context.Context) (User, error)
}

type contextKey struct{}

// WithUser returns a context carrying the given user.
func WithUser(ctx context.Context, user User) context.Context {
	return context.WithValue(ctx, contextKey{}, user)
}

// FromContext is a Provider reading the user stored by WithUser.
type FromContext struct{}

// CurrentUser returns the user carried by ctx, or ErrNotSignedIn.
func (FromContext) CurrentUser(ctx context.Context) (User, error) {
	user, ok := ctx.Value(contextKey{}).(User)
	if !ok || user.ID == "" {
		return User{}, ErrNotSignedIn
	}
	return user, nil
}

// Static is a Provider fixed to one user, used by tests and tooling.
type Static struct {
	User User
}

// CurrentUser returns the fixed user, or ErrNotSignedIn when unset.
func (s Static) CurrentUser(ctx context.Context) (User, error) {
	if s.User.ID == "" {
		return User{}, ErrNotSignedIn
	}
	return s.User, nil
}
