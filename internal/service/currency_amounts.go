package service

import (
	"context"
	"errors"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
)

const (
	balanceDigits = 15
	balancePlaces = 2
)

// CreateCurrencyAmount opens a balance of currencyID for user. A second
// balance for the same pair is a conflict; the existing amount is left as is.
func (s *Service) CreateCurrencyAmount(ctx context.Context, user storages.User, currencyID *int64, amount *decimal.Decimal) (storages.CurrencyAmount, error) {
	if currencyID == nil || amount == nil {
		return storages.CurrencyAmount{}, badRequestf("currency_id and amount are required")
	}
	if err := checkDecimal("amount", *amount, balanceDigits, balancePlaces); err != nil {
		return storages.CurrencyAmount{}, err
	}

	currency, err := s.store.GetCurrency(ctx, *currencyID)
	if err != nil {
		return storages.CurrencyAmount{}, lookupErr(err, "currency", *currencyID)
	}

	row, err := s.store.CreateCurrencyAmount(ctx, user.ID, currency.ID, *amount)
	switch {
	case errors.Is(err, storages.ErrDuplicate):
		return storages.CurrencyAmount{}, conflictf("currency amount for %s already exists for this user", currency.Code)
	case errors.Is(err, storages.ErrInvalidReference):
		return storages.CurrencyAmount{}, notFoundf("currency with id %d not found", currency.ID)
	}
	return row, err
}

func (s *Service) ListCurrencyAmounts(ctx context.Context) ([]storages.CurrencyAmount, error) {
	return s.store.ListCurrencyAmounts(ctx)
}

func (s *Service) GetCurrencyAmount(ctx context.Context, id int64) (storages.CurrencyAmount, error) {
	row, err := s.store.GetCurrencyAmount(ctx, id)
	if err != nil {
		return storages.CurrencyAmount{}, lookupErr(err, "currency amount", id)
	}
	return row, nil
}

// UpdateCurrencyAmount sets the stored balance. A nil amount on a partial
// update leaves the row untouched.
func (s *Service) UpdateCurrencyAmount(ctx context.Context, id int64, amount *decimal.Decimal, partial bool) (storages.CurrencyAmount, error) {
	if amount == nil {
		if !partial {
			return storages.CurrencyAmount{}, badRequestf("amount: this field is required")
		}
		return s.GetCurrencyAmount(ctx, id)
	}
	if err := checkDecimal("amount", *amount, balanceDigits, balancePlaces); err != nil {
		return storages.CurrencyAmount{}, err
	}

	row, err := s.store.UpdateCurrencyAmount(ctx, id, *amount)
	if err != nil {
		return storages.CurrencyAmount{}, lookupErr(err, "currency amount", id)
	}
	return row, nil
}

func (s *Service) DeleteCurrencyAmount(ctx context.Context, id int64) error {
	if err := s.store.DeleteCurrencyAmount(ctx, id); err != nil {
		return lookupErr(err, "currency amount", id)
	}
	return nil
}
