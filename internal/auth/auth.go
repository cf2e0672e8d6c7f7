// Package auth resolves opaque API tokens to users and hashes passwords.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/patrickmn/go-cache"
	"golang.org/x/crypto/bcrypt"
)

// keyBytes yields 40 hex characters per token.
const keyBytes = 20

type TokenStore interface {
	UserByToken(ctx context.Context, key string) (storages.User, error)
}

type Authenticator struct {
	store TokenStore
	cache *cache.Cache

	// gen is bumped by Flush. A lookup that started before a flush must not
	// repopulate the cache.
	mu  sync.Mutex
	gen uint64
}

// NewAuthenticator caches resolved tokens for ttl. A non-positive ttl
// disables caching.
func NewAuthenticator(store TokenStore, ttl time.Duration) *Authenticator {
	a := &Authenticator{store: store}
	if ttl > 0 {
		a.cache = cache.New(ttl, 2*ttl)
	}
	return a
}

// Resolve returns the owner of key. storages.ErrNotFound means the key is
// unknown.
func (a *Authenticator) Resolve(ctx context.Context, key string) (storages.User, error) {
	if a.cache != nil {
		if cached, found := a.cache.Get(key); found {
			return cached.(storages.User), nil
		}
	}

	a.mu.Lock()
	gen := a.gen
	a.mu.Unlock()

	user, err := a.store.UserByToken(ctx, key)
	if err != nil {
		return storages.User{}, err
	}

	if a.cache != nil {
		a.mu.Lock()
		if a.gen == gen {
			a.cache.Set(key, user, cache.DefaultExpiration)
		}
		a.mu.Unlock()
	}
	return user, nil
}

// Flush drops every cached token. Called after users are removed.
func (a *Authenticator) Flush() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.gen++
	if a.cache != nil {
		a.cache.Flush()
	}
}

// ParseAuthorization extracts the key from "Bearer <key>" or "Token <key>".
func ParseAuthorization(header string) (string, bool) {
	scheme, key, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok {
		return "", false
	}
	if !strings.EqualFold(scheme, "Bearer") && !strings.EqualFold(scheme, "Token") {
		return "", false
	}
	key = strings.TrimSpace(key)
	if key == "" || strings.Contains(key, " ") {
		return "", false
	}
	return key, true
}

func GenerateKey() (string, error) {
	b := make([]byte, keyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
