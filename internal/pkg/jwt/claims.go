package jwt

import (
	"context"
	"errors"

	"github.com/go-chi/jwtauth/v5"
)

var ErrNoAccountClaim = errors.New("token carries no account_id claim")

// AccountIDFromContext reads the caller's account id from the verified token
// placed on the context by the jwtauth middleware.
func AccountIDFromContext(ctx context.Context) (string, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return "", err
	}
	id, ok := claims["account_id"].(string)
	if !ok || id == "" {
		return "", ErrNoAccountClaim
	}
	return id, nil
}
