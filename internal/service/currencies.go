package service

import (
	"context"
	"errors"

	"github.com/Krchnk/exchange-records/internal/storages"
)

func (s *Service) CreateCurrency(ctx context.Context, code string) (storages.Currency, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return storages.Currency{}, err
	}

	if _, err := s.store.GetCurrencyByCode(ctx, code); err == nil {
		return storages.Currency{}, conflictf("currency with code %q already exists", code)
	} else if !errors.Is(err, storages.ErrNotFound) {
		return storages.Currency{}, err
	}

	c, err := s.store.CreateCurrency(ctx, code)
	if errors.Is(err, storages.ErrDuplicate) {
		return storages.Currency{}, conflictf("currency with code %q already exists", code)
	}
	return c, err
}

func (s *Service) ListCurrencies(ctx context.Context) ([]storages.Currency, error) {
	return s.store.ListCurrencies(ctx)
}

func (s *Service) GetCurrency(ctx context.Context, id int64) (storages.Currency, error) {
	c, err := s.store.GetCurrency(ctx, id)
	if err != nil {
		return storages.Currency{}, lookupErr(err, "currency", id)
	}
	return c, nil
}

// UpdateCurrency normalizes the new code and rejects it when another currency
// already uses it.
func (s *Service) UpdateCurrency(ctx context.Context, id int64, code string) (storages.Currency, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return storages.Currency{}, err
	}

	existing, err := s.store.GetCurrencyByCode(ctx, code)
	switch {
	case err == nil && existing.ID != id:
		return storages.Currency{}, conflictf("currency with code %q already exists", code)
	case err != nil && !errors.Is(err, storages.ErrNotFound):
		return storages.Currency{}, err
	}

	c, err := s.store.UpdateCurrency(ctx, storages.Currency{ID: id, Code: code})
	switch {
	case errors.Is(err, storages.ErrDuplicate):
		return storages.Currency{}, conflictf("currency with code %q already exists", code)
	case err != nil:
		return storages.Currency{}, lookupErr(err, "currency", id)
	}
	return c, nil
}

func (s *Service) DeleteCurrency(ctx context.Context, id int64) error {
	if err := s.store.DeleteCurrency(ctx, id); err != nil {
		return lookupErr(err, "currency", id)
	}
	return nil
}

// BulkDeleteCurrencies removes every currency, with their balances and
// operations, and restarts identifiers at 1.
func (s *Service) BulkDeleteCurrencies(ctx context.Context) (int64, error) {
	return s.store.DeleteAllCurrencies(ctx)
}
