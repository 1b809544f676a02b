package service

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/rl1809/stockdesk/internal/core/domain"
)

const (
	// DefaultFreshnessWindow is how long a credential is honoured after it was
	// issued, regardless of its own expiry claim.
	DefaultFreshnessWindow = 15 * time.Minute

	claimsCacheSize = 64
)

// SessionResolver decodes actor claims from an opaque credential. Signatures
// are not verified: the resolver only selects what to show, the remote
// services enforce access.
type SessionResolver struct {
	window time.Duration
	now    func() time.Time
	parser *jwt.Parser
	cache  *lru.Cache[string, domain.SessionClaims]
}

type ResolverOption func(*SessionResolver)

func WithClock(now func() time.Time) ResolverOption {
	return func(r *SessionResolver) {
		r.now = now
	}
}

func NewSessionResolver(window time.Duration, opts ...ResolverOption) *SessionResolver {
	if window <= 0 {
		window = DefaultFreshnessWindow
	}
	cache, _ := lru.New[string, domain.SessionClaims](claimsCacheSize)
	r := &SessionResolver{
		window: window,
		now:    time.Now,
		parser: jwt.NewParser(),
		cache:  cache,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the claims carried by credential. It fails with
// ErrMalformedCredential when no claims payload can be decoded and with
// ErrExpired when the credential is older than the freshness window or past
// its own expiry.
func (r *SessionResolver) Resolve(credential string) (domain.SessionClaims, error) {
	claims, ok := r.cache.Get(credential)
	if !ok {
		decoded, err := r.decode(credential)
		if err != nil {
			return domain.SessionClaims{}, err
		}
		r.cache.Add(credential, decoded)
		claims = decoded
	}

	now := r.now()
	if age := now.Sub(claims.IssuedAt); age > r.window {
		return domain.SessionClaims{}, fmt.Errorf("%w: issued %s ago", domain.ErrExpired, age.Truncate(time.Second))
	}
	if !claims.Expiry.IsZero() && !now.Before(claims.Expiry) {
		return domain.SessionClaims{}, fmt.Errorf("%w: expired at %s", domain.ErrExpired, claims.Expiry.Format(time.RFC3339))
	}
	return claims, nil
}

func (r *SessionResolver) decode(credential string) (domain.SessionClaims, error) {
	mc := jwt.MapClaims{}
	if _, _, err := r.parser.ParseUnverified(credential, mc); err != nil {
		return domain.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrMalformedCredential, err)
	}

	subject, err := mc.GetSubject()
	if err != nil || subject == "" {
		return domain.SessionClaims{}, fmt.Errorf("%w: missing subject", domain.ErrMalformedCredential)
	}

	rawRole, _ := mc["role"].(string)
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return domain.SessionClaims{}, fmt.Errorf("%w: %v", domain.ErrMalformedCredential, err)
	}

	issuedAt, err := mc.GetIssuedAt()
	if err != nil || issuedAt == nil {
		return domain.SessionClaims{}, fmt.Errorf("%w: missing issued-at", domain.ErrMalformedCredential)
	}

	claims := domain.SessionClaims{
		Subject:  subject,
		Role:     role,
		IssuedAt: issuedAt.Time,
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}
