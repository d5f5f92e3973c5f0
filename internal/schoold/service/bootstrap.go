package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/pkg/cryptox"
	"github.com/aussiebroadwan/neoschool/pkg/idx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
)

var (
	ErrBootstrapInvalidAccount = errors.New("username and password are required")
	ErrBootstrapFailedToCreate = errors.New("failed to create staff account")
)

// Account is a staff login created at startup.
type Account struct {
	Username string
	Password string
	Roles    []string
}

// BootstrapService seeds staff accounts.
type BootstrapService struct {
	Store  store.Store
	Hasher *cryptox.Hasher
}

// Seed creates each account that does not exist yet. Existing usernames
// are left untouched so restarts are idempotent.
func (s *BootstrapService) Seed(ctx context.Context, accounts ...Account) error {
	l := slogx.FromContext(ctx)

	for _, a := range accounts {
		username := strings.TrimSpace(a.Username)
		if username == "" || a.Password == "" {
			return ErrBootstrapInvalidAccount
		}

		if _, err := s.Store.Users().GetUserByUsername(ctx, username); err == nil {
			l.Debug("staff account already exists", slog.String("username", username))
			continue
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}

		hash, err := s.Hasher.Hash(a.Password)
		if err != nil {
			l.Error("failed to hash password", slog.Any("error", err))
			return ErrBootstrapFailedToCreate
		}

		err = s.Store.Users().CreateUser(ctx, domain.User{
			ID:           idx.New().String(),
			Username:     username,
			PasswordHash: hash,
			Roles:        a.Roles,
			CreatedAt:    time.Now(),
		})
		if err != nil && !errors.Is(err, store.ErrAlreadyExists) {
			l.Error("failed to create staff account", slog.String("username", username), slog.Any("error", err))
			return ErrBootstrapFailedToCreate
		}

		l.Info("staff account created", slog.String("username", username), slog.Any("roles", a.Roles))
	}
	return nil
}
