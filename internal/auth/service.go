package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/nkoval/dmrelay-server/internal/store"
)

var (
	// ErrUnauthenticated is returned for any missing, malformed, expired,
	// or tampered credential. The specific failure is never distinguished
	// in the returned error kind.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrInvalidUsername is returned when a username doesn't meet constraints.
	ErrInvalidUsername = errors.New("invalid username")
)

// Service issues and verifies session credentials.
type Service struct {
	store     store.UserStore
	jwtConfig *JWTConfig
	log       *zerolog.Logger
}

// NewService creates a new identity service.
func NewService(userStore store.UserStore, jwtConfig *JWTConfig, logger *zerolog.Logger) *Service {
	return &Service{
		store:     userStore,
		jwtConfig: jwtConfig,
		log:       logger,
	}
}

// SignIn find-or-creates the user for the given username and issues a
// signed credential. Signing in twice with the same username yields the
// same user record. The only error path besides bad input is storage
// failure.
func (s *Service) SignIn(ctx context.Context, username string) (string, *store.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || len(username) > 32 {
		return "", nil, ErrInvalidUsername
	}

	user, err := s.store.FindOrCreateUser(ctx, username)
	if err != nil {
		return "", nil, fmt.Errorf("find or create user: %w", err)
	}

	token, err := GenerateToken(s.jwtConfig, user.Username)
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	return token, user, nil
}

// Verify checks the credential's signature and expiry and returns the
// bound username. Malformed, expired, and tampered credentials all
// collapse to ErrUnauthenticated; the distinction is only logged.
func (s *Service) Verify(tokenString string) (string, error) {
	claims, err := ValidateToken(s.jwtConfig, tokenString)
	if err != nil {
		if s.log != nil {
			s.log.Debug().Err(err).Msg("credential rejected")
		}
		return "", ErrUnauthenticated
	}

	return claims.Username, nil
}

// TokenTTL exposes the credential validity window for cookie max-age.
func (s *Service) TokenTTL() int {
	return int(s.jwtConfig.TTL.Seconds())
}
