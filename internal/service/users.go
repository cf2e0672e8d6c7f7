package service

import (
	"context"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/Krchnk/exchange-records/internal/auth"
	"github.com/Krchnk/exchange-records/internal/storages"
)

const maxUsernameLength = 150

type NewUser struct {
	Username    string
	Password    string
	IsStaff     bool
	IsSuperuser bool
}

func (s *Service) createUser(ctx context.Context, in NewUser) (storages.User, error) {
	if in.Username == "" || in.Password == "" {
		return storages.User{}, badRequestf("username and password are required")
	}
	if utf8.RuneCountInString(in.Username) > maxUsernameLength {
		return storages.User{}, badRequestf("username: ensure this field has no more than %d characters", maxUsernameLength)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return storages.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err := s.store.CreateUser(ctx, storages.User{
		Username:     in.Username,
		PasswordHash: hash,
		IsStaff:      in.IsStaff,
		IsSuperuser:  in.IsSuperuser,
	})
	if errors.Is(err, storages.ErrDuplicate) {
		return storages.User{}, conflictf("user %q already exists", in.Username)
	}
	return u, err
}

// Signup registers a regular user.
func (s *Service) Signup(ctx context.Context, username, password string) (storages.User, error) {
	return s.createUser(ctx, NewUser{Username: username, Password: password})
}

// AddUser creates a user with explicit staff and superuser flags.
func (s *Service) AddUser(ctx context.Context, in NewUser) (storages.User, error) {
	return s.createUser(ctx, in)
}

func (s *Service) ListUsers(ctx context.Context) ([]storages.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *Service) GetUser(ctx context.Context, id int64) (storages.User, error) {
	u, err := s.store.GetUserByID(ctx, id)
	if err != nil {
		return storages.User{}, lookupErr(err, "user", id)
	}
	return u, nil
}

// ChangePassword re-hashes the password. Issued tokens stay valid.
func (s *Service) ChangePassword(ctx context.Context, id int64, newPassword string) (storages.User, error) {
	if newPassword == "" {
		return storages.User{}, badRequestf("new_password is required")
	}
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return storages.User{}, err
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return storages.User{}, fmt.Errorf("hash password: %w", err)
	}
	if err := s.store.UpdatePassword(ctx, id, hash); err != nil {
		return storages.User{}, lookupErr(err, "user", id)
	}
	return u, nil
}

// RemoveUser deletes the user together with its tokens, balances and
// operations.
func (s *Service) RemoveUser(ctx context.Context, id int64) (storages.User, error) {
	u, err := s.store.DeleteUser(ctx, id)
	if err != nil {
		return storages.User{}, lookupErr(err, "user", id)
	}
	s.flushTokens()
	return u, nil
}
