package port

import (
	"context"
	"errors"
)

var ErrNoCredential = errors.New("no stored credential")

type CredentialStore interface {
	Save(ctx context.Context, token string) error

	// Load returns ErrNoCredential when nothing is stored
	Load(ctx context.Context) (string, error)

	Clear(ctx context.Context) error
}

// TokenSource yields the bearer credential for authenticated calls.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}
