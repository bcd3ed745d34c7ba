package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/opinahq/opina/internal/config"
	"github.com/opinahq/opina/internal/domain"
	"github.com/opinahq/opina/internal/repository"
	"github.com/opinahq/opina/pkg/crypto"
	jwtpkg "github.com/opinahq/opina/pkg/jwt"
)

// ErrInvalidCredentials rejects a login with an unknown username or wrong
// password. The two cases are deliberately indistinguishable to the caller.
var ErrInvalidCredentials = errors.New("auth: invalid credentials")

// Service handles authentication. Credentials are checked against persisted
// accounts first and then against the configuration-supplied allow-list; the
// first successful allow-list login provisions the account.
type Service struct {
	accounts repository.AccountRepository
	allow    []config.AllowedAccount
	logger   *slog.Logger
	secret   string
	ttl      time.Duration
}

// New constructs a Service.
func New(accounts repository.AccountRepository, cfg config.Config, logger *slog.Logger) Service {
	return Service{
		accounts: accounts,
		allow:    cfg.Accounts,
		logger:   logger,
		secret:   cfg.JWTSecret,
		ttl:      cfg.TokenTTL,
	}
}

// Login authenticates a principal and returns the account with a session token.
func (s Service) Login(ctx context.Context, username, password string) (*domain.Account, string, error) {
	account, err := s.accounts.GetAccountByUsername(ctx, username)
	switch {
	case err == nil:
		if crypto.ComparePassword(account.PasswordHash, password) != nil {
			return nil, "", ErrInvalidCredentials
		}
	case errors.Is(err, repository.ErrNotFound):
		account, err = s.provision(ctx, username, password)
		if err != nil {
			return nil, "", err
		}
	default:
		return nil, "", err
	}

	token, err := jwtpkg.GenerateToken(account.ID, account.Username, string(account.Role), s.secret, s.ttl)
	if err != nil {
		return nil, "", err
	}
	s.logger.Info("user logged in", "user_id", account.ID, "role", account.Role)
	return account, token, nil
}

// Authorize validates a bearer token and returns the associated account and claims.
func (s Service) Authorize(ctx context.Context, token string) (*domain.Account, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := jwtpkg.Parse(trimmed, s.secret)
	if err != nil {
		return nil, nil, err
	}
	account, err := s.accounts.GetAccountByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return account, claims, nil
}

// provision creates the account for a matching allow-list entry.
func (s Service) provision(ctx context.Context, username, password string) (*domain.Account, error) {
	for _, allowed := range s.allow {
		if allowed.Username != username || allowed.Password != password {
			continue
		}
		hash, err := crypto.HashPassword(password)
		if err != nil {
			return nil, err
		}
		account := &domain.Account{
			ID:           uuid.NewString(),
			Username:     allowed.Username,
			PasswordHash: hash,
			Role:         allowed.Role,
			CreatedAt:    time.Now().UTC(),
		}
		if err := s.accounts.CreateAccount(ctx, account); err != nil {
			return nil, err
		}
		s.logger.Info("account provisioned from allow-list", "user_id", account.ID, "role", account.Role)
		return account, nil
	}
	return nil, ErrInvalidCredentials
}
