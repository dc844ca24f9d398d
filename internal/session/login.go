package session

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campusnote/campusnote/internal/schema"
)

// Authenticator exchanges credentials for an auth response.
type Authenticator interface {
	Login(ctx context.Context, email, password string) (schema.AuthResponse, error)
}

// Login signs in through auth and returns the resulting state. The caller
// decides whether to Set and persist it.
func Login(ctx context.Context, auth Authenticator, email, password string) (State, error) {
	resp, err := auth.Login(ctx, email, password)
	if err != nil {
		return State{}, fmt.Errorf("failed to sign in: %w", err)
	}
	return FromAuth(resp), nil
}

// FromAuth builds a State from an auth response.
func FromAuth(resp schema.AuthResponse) State {
	state := State{
		UserID: resp.User.ID.String(),
		Name:   resp.User.Name,
		Email:  resp.User.Email,
		Token:  resp.Token,
	}
	if exp, ok := TokenExpiry(resp.Token); ok {
		state.ExpiresAt = exp
	}
	return state
}

// TokenExpiry reads the exp claim of a JWT without verifying its signature.
// Opaque tokens report false.
func TokenExpiry(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
