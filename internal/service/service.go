// Package service holds the business rules for currencies, balances,
// operations and users on top of a storages.Storage.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
)

// TokenCache is flushed whenever users disappear so their tokens stop
// resolving.
type TokenCache interface {
	Flush()
}

type Service struct {
	store  storages.Storage
	tokens TokenCache
}

func New(store storages.Storage, tokens TokenCache) *Service {
	return &Service{store: store, tokens: tokens}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) flushTokens() {
	if s.tokens != nil {
		s.tokens.Flush()
	}
}

// lookupErr converts storages.ErrNotFound into a NotFound naming the entity.
func lookupErr(err error, entity string, id int64) error {
	if errors.Is(err, storages.ErrNotFound) {
		return notFoundf("%s with id %d not found", entity, id)
	}
	return fmt.Errorf("%s %d: %w", entity, id, err)
}

// checkDecimal enforces a NUMERIC(digits, places) column.
func checkDecimal(field string, d decimal.Decimal, digits, places int32) error {
	if !d.Equal(d.Truncate(places)) {
		return badRequestf("%s: ensure that there are no more than %d decimal places", field, places)
	}
	if d.Abs().GreaterThanOrEqual(decimal.New(1, digits-places)) {
		return badRequestf("%s: ensure that there are no more than %d digits in total", field, digits)
	}
	return nil
}

const maxCodeLength = 10

// NormalizeCode trims and upper-cases a currency code.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return "", badRequestf("code: this field may not be blank")
	}
	if utf8.RuneCountInString(code) > maxCodeLength {
		return "", badRequestf("code: ensure this field has no more than %d characters", maxCodeLength)
	}
	return code, nil
}
