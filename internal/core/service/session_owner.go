package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

// Session is a credential together with the claims it resolved to.
type Session struct {
	Token  string
	Claims domain.SessionClaims
}

// SessionOwner is the single owner of the stored credential. It creates the
// session at login and destroys it on logout, expiry or rejection.
type SessionOwner struct {
	store    port.CredentialStore
	resolver *SessionResolver
	logger   zerolog.Logger
}

func NewSessionOwner(store port.CredentialStore, resolver *SessionResolver, logger zerolog.Logger) *SessionOwner {
	return &SessionOwner{
		store:    store,
		resolver: resolver,
		logger:   logger.With().Str("component", "session").Logger(),
	}
}

// Login obtains a credential from the auth service and establishes it.
func (o *SessionOwner) Login(ctx context.Context, auth port.AuthGateway, username, password string) (Session, error) {
	token, err := auth.Login(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return o.Establish(ctx, token)
}

// Establish resolves a freshly issued credential and stores it.
func (o *SessionOwner) Establish(ctx context.Context, token string) (Session, error) {
	claims, err := o.resolver.Resolve(token)
	if err != nil {
		return Session{}, err
	}
	if err := o.store.Save(ctx, token); err != nil {
		return Session{}, fmt.Errorf("save credential: %w", err)
	}
	o.logger.Info().Str("subject", claims.Subject).Str("role", string(claims.Role)).Msg("session established")
	return Session{Token: token, Claims: claims}, nil
}

// Current loads and resolves the stored credential. A credential that is
// malformed or expired is discarded before the error is returned.
func (o *SessionOwner) Current(ctx context.Context) (Session, error) {
	token, err := o.store.Load(ctx)
	if err != nil {
		if errors.Is(err, port.ErrNoCredential) {
			return Session{}, domain.ErrUnauthorized
		}
		return Session{}, fmt.Errorf("load credential: %w", err)
	}

	claims, err := o.resolver.Resolve(token)
	if err != nil {
		o.discard(ctx, err)
		return Session{}, err
	}
	return Session{Token: token, Claims: claims}, nil
}

// Token implements port.TokenSource.
func (o *SessionOwner) Token(ctx context.Context) (string, error) {
	s, err := o.Current(ctx)
	if err != nil {
		return "", err
	}
	return s.Token, nil
}

// Observe ends the session when a remote call was rejected as unauthorized.
// Forbidden and other outcomes leave the session in place.
func (o *SessionOwner) Observe(ctx context.Context, err error) {
	if errors.Is(err, domain.ErrUnauthorized) {
		o.discard(ctx, err)
	}
}

func (o *SessionOwner) Logout(ctx context.Context) error {
	if err := o.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear credential: %w", err)
	}
	o.logger.Info().Msg("session closed")
	return nil
}

func (o *SessionOwner) discard(ctx context.Context, cause error) {
	if err := o.store.Clear(ctx); err != nil {
		o.logger.Error().Err(err).Msg("failed to discard credential")
		return
	}
	o.logger.Warn().Err(cause).Msg("credential discarded")
}
