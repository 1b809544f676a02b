package backend

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/rl1809/stockdesk/internal/core/domain"
	"github.com/rl1809/stockdesk/internal/port"
)

const DefaultTokenTTL = 20 * time.Minute

// AuthService registers users and issues HS256 bearer tokens carrying sub,
// id, role, iat and exp claims.
type AuthService struct {
	users    port.UserRepository
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
	validate *validator.Validate
	logger   zerolog.Logger
}

func NewAuthService(users port.UserRepository, secret string, ttl time.Duration, logger zerolog.Logger) *AuthService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &AuthService{
		users:    users,
		secret:   []byte(secret),
		ttl:      ttl,
		now:      time.Now,
		validate: validator.New(),
		logger:   logger.With().Str("component", "auth").Logger(),
	}
}

func (s *AuthService) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if err := s.validate.Struct(reg); err != nil {
		return domain.User{}, reject(domain.ErrValidation, describeValidation(err))
	}

	existing, err := s.users.FindUser(ctx, reg.Username)
	if err != nil {
		return domain.User{}, err
	}
	if existing != nil {
		return domain.User{}, reject(domain.ErrValidation, MsgUsernameTaken)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(reg.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.CreateUser(ctx, domain.User{
		Username:     reg.Username,
		Email:        reg.Email,
		Role:         reg.Role,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.User{}, err
	}
	s.logger.Info().Str("username", user.Username).Str("role", string(user.Role)).Msg("user registered")
	return user, nil
}

// EnsureUser registers reg unless the username already exists.
func (s *AuthService) EnsureUser(ctx context.Context, reg domain.Registration) error {
	existing, err := s.users.FindUser(ctx, reg.Username)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	_, err = s.Register(ctx, reg)
	return err
}

// Authenticate checks the password and returns a signed token.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.FindUser(ctx, username)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", reject(domain.ErrUnauthorized, MsgBadCredentials)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return "", reject(domain.ErrUnauthorized, MsgBadCredentials)
	}
	return s.IssueToken(*user)
}

func (s *AuthService) IssueToken(user domain.User) (string, error) {
	now := s.now()
	claims := jwt.MapClaims{
		"sub":  user.Username,
		"id":   user.ID,
		"role": string(user.Role),
		"iat":  now.Unix(),
		"exp":  now.Add(s.ttl).Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return token, nil
}

// Verify checks the signature and expiry of a bearer token.
func (s *AuthService) Verify(token string) (domain.SessionClaims, error) {
	mc := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(token, mc, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return domain.SessionClaims{}, reject(domain.ErrUnauthorized, MsgBadCredentials)
	}

	subject, _ := mc.GetSubject()
	rawRole, _ := mc["role"].(string)
	role, err := domain.ParseRole(rawRole)
	if subject == "" || err != nil {
		return domain.SessionClaims{}, reject(domain.ErrUnauthorized, MsgBadCredentials)
	}

	claims := domain.SessionClaims{Subject: subject, Role: role}
	if iat, err := mc.GetIssuedAt(); err == nil && iat != nil {
		claims.IssuedAt = iat.Time
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		claims.Expiry = exp.Time
	}
	return claims, nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		parts = append(parts, fmt.Sprintf("%s failed %s", strings.ToLower(fe.Field()), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
