package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/Krchnk/exchange-records/internal/auth"
	"github.com/Krchnk/exchange-records/internal/storages"
)

type TokenGrant struct {
	Token string
	User  storages.User
}

// IssueToken verifies the credentials and returns the user's token, creating
// it on first login.
func (s *Service) IssueToken(ctx context.Context, username, password string) (TokenGrant, error) {
	if username == "" || password == "" {
		return TokenGrant{}, badRequestf("username and password are required")
	}

	u, err := s.store.GetUserByUsername(ctx, username)
	if errors.Is(err, storages.ErrNotFound) {
		return TokenGrant{}, NewError(ErrInvalidCredentials, "unable to log in with provided credentials")
	}
	if err != nil {
		return TokenGrant{}, err
	}
	if !auth.CheckPassword(u.PasswordHash, password) {
		return TokenGrant{}, NewError(ErrInvalidCredentials, "unable to log in with provided credentials")
	}

	candidate, err := auth.GenerateKey()
	if err != nil {
		return TokenGrant{}, fmt.Errorf("generate token: %w", err)
	}
	key, err := s.store.GetOrCreateToken(ctx, u.ID, candidate)
	if err != nil {
		return TokenGrant{}, err
	}
	return TokenGrant{Token: key, User: u}, nil
}
