package service

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

// TokenIssuer signs bearer tokens for authenticated users.
type TokenIssuer interface {
	Generate(user *domain.User) (string, error)
}

// AuthService implements login and manager bootstrap.
type AuthService struct {
	store  ports.Store
	tokens TokenIssuer
	log    zerolog.Logger
}

func NewAuthService(store ports.Store, tokens TokenIssuer, log zerolog.Logger) *AuthService {
	return &AuthService{store: store, tokens: tokens, log: log}
}

func (s *AuthService) Login(ctx context.Context, username, password string) (string, *domain.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return "", nil, domain.ErrInvalidCredentials
	}

	var user *domain.User
	err := s.store.InTx(ctx, func(q ports.Queries) error {
		var err error
		user, err = q.FindUserByUsername(ctx, username)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := s.tokens.Generate(user)
	if err != nil {
		return "", nil, err
	}

	s.log.Info().Int64("user_id", user.ID).Str("role", string(user.Role)).Msg("login succeeded")
	return token, user, nil
}

// EnsureManager creates a manager account named username unless one exists.
func (s *AuthService) EnsureManager(ctx context.Context, username, password string) (bool, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return false, domain.ErrInvalidCredentials
	}

	hash, err := hashPassword(password)
	if err != nil {
		return false, err
	}

	var created bool
	err = s.store.InTx(ctx, func(q ports.Queries) error {
		created, err = q.CreateUserIfAbsent(ctx, &domain.User{
			Username:     username,
			PasswordHash: hash,
			Role:         domain.RoleManager,
		})
		return err
	})
	if err != nil {
		return false, err
	}
	if created {
		s.log.Info().Str("username", username).Msg("bootstrap manager created")
	}
	return created, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
