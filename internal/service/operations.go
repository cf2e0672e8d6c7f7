package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
)

const (
	operationAmountDigits = 10
	operationAmountPlaces = 2
	exchangeRateDigits    = 10
	exchangeRatePlaces    = 4
)

// OperationInput holds client-settable operation fields. Nil means absent.
// Date is never client-settable; the store stamps it.
type OperationInput struct {
	UserID       *int64
	CurrencyID   *int64
	Amount       *decimal.Decimal
	ExchangeRate *decimal.Decimal
	Type         *storages.OperationType
	Description  *string
}

// apply copies present fields onto op. Unless partial, currency, amount and
// exchange_rate must be present.
func (in OperationInput) apply(op *storages.Operation, partial bool) error {
	if !partial {
		var missing []string
		if in.CurrencyID == nil {
			missing = append(missing, "currency")
		}
		if in.Amount == nil {
			missing = append(missing, "amount")
		}
		if in.ExchangeRate == nil {
			missing = append(missing, "exchange_rate")
		}
		if len(missing) > 0 {
			return badRequestf("%s: this field is required", strings.Join(missing, ", "))
		}
	}

	if in.UserID != nil {
		op.UserID = *in.UserID
	}
	if in.CurrencyID != nil {
		op.CurrencyID = *in.CurrencyID
	}
	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return badRequestf("amount: must be greater than zero")
		}
		if err := checkDecimal("amount", *in.Amount, operationAmountDigits, operationAmountPlaces); err != nil {
			return err
		}
		op.Amount = *in.Amount
	}
	if in.ExchangeRate != nil {
		if !in.ExchangeRate.IsPositive() {
			return badRequestf("exchange_rate: must be greater than zero")
		}
		if err := checkDecimal("exchange_rate", *in.ExchangeRate, exchangeRateDigits, exchangeRatePlaces); err != nil {
			return err
		}
		op.ExchangeRate = *in.ExchangeRate
	}
	if in.Type != nil {
		t := storages.OperationType(strings.ToUpper(string(*in.Type)))
		if !t.Valid() {
			return badRequestf("operation_type: %q is not a valid choice", string(*in.Type))
		}
		op.Type = t
	}
	if in.Description != nil {
		op.Description = *in.Description
	}
	return nil
}

func (s *Service) checkOperationRefs(ctx context.Context, op storages.Operation) error {
	if _, err := s.store.GetUserByID(ctx, op.UserID); err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			return badRequestf("user: invalid pk %d, object does not exist", op.UserID)
		}
		return err
	}
	if _, err := s.store.GetCurrency(ctx, op.CurrencyID); err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			return badRequestf("currency: invalid pk %d, object does not exist", op.CurrencyID)
		}
		return err
	}
	return nil
}

func referenceErr(err error) error {
	if errors.Is(err, storages.ErrInvalidReference) {
		return badRequestf("user or currency no longer exists")
	}
	return err
}

// CreateOperation records a buy or sell. The owner defaults to caller.
func (s *Service) CreateOperation(ctx context.Context, caller storages.User, in OperationInput) (storages.Operation, error) {
	op := storages.Operation{UserID: caller.ID, Type: storages.OperationBuy}
	if err := in.apply(&op, false); err != nil {
		return storages.Operation{}, err
	}
	if err := s.checkOperationRefs(ctx, op); err != nil {
		return storages.Operation{}, err
	}

	created, err := s.store.CreateOperation(ctx, op)
	if err != nil {
		return storages.Operation{}, referenceErr(err)
	}
	return created, nil
}

// ListOperations returns every operation of every user.
func (s *Service) ListOperations(ctx context.Context) ([]storages.Operation, error) {
	return s.store.ListOperations(ctx, storages.OperationFilter{})
}

func (s *Service) GetOperation(ctx context.Context, id int64) (storages.Operation, error) {
	op, err := s.store.GetOperation(ctx, id)
	if err != nil {
		return storages.Operation{}, lookupErr(err, "operation", id)
	}
	return op, nil
}

// UpdateOperation overwrites client-settable fields. Omitted optional fields
// keep their stored values; the date never changes.
func (s *Service) UpdateOperation(ctx context.Context, id int64, in OperationInput, partial bool) (storages.Operation, error) {
	op, err := s.GetOperation(ctx, id)
	if err != nil {
		return storages.Operation{}, err
	}
	if err := in.apply(&op, partial); err != nil {
		return storages.Operation{}, err
	}
	if err := s.checkOperationRefs(ctx, op); err != nil {
		return storages.Operation{}, err
	}

	updated, err := s.store.UpdateOperation(ctx, op)
	if err != nil {
		if errors.Is(err, storages.ErrNotFound) {
			return storages.Operation{}, lookupErr(err, "operation", id)
		}
		return storages.Operation{}, referenceErr(err)
	}
	return updated, nil
}

func (s *Service) DeleteOperation(ctx context.Context, id int64) error {
	if err := s.store.DeleteOperation(ctx, id); err != nil {
		return lookupErr(err, "operation", id)
	}
	return nil
}

func parseUserID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0, badRequestf("user_id: %q is not a valid integer", raw)
	}
	return id, nil
}

// OperationsByUser filters on owner. An empty user_id matches nothing.
func (s *Service) OperationsByUser(ctx context.Context, rawUserID string) ([]storages.Operation, error) {
	if rawUserID == "" {
		return []storages.Operation{}, nil
	}
	id, err := parseUserID(rawUserID)
	if err != nil {
		return nil, err
	}
	return s.store.ListOperations(ctx, storages.OperationFilter{UserID: &id})
}

// UserOperations is OperationsByUser with a mandatory user_id.
func (s *Service) UserOperations(ctx context.Context, rawUserID string) ([]storages.Operation, error) {
	if rawUserID == "" {
		return nil, badRequestf("user_id parameter is required")
	}
	return s.OperationsByUser(ctx, rawUserID)
}

// OperationsByDate matches operations stamped on the given UTC calendar day
// (YYYY-MM-DD). An empty date matches nothing.
func (s *Service) OperationsByDate(ctx context.Context, rawDate string) ([]storages.Operation, error) {
	if rawDate == "" {
		return []storages.Operation{}, nil
	}
	day, err := time.Parse(time.DateOnly, strings.TrimSpace(rawDate))
	if err != nil {
		return nil, badRequestf("date: %q must be in YYYY-MM-DD format", rawDate)
	}
	return s.store.ListOperations(ctx, storages.OperationFilter{Date: &day})
}

func (s *Service) BulkDeleteOperations(ctx context.Context) (int64, error) {
	return s.store.DeleteAllOperations(ctx)
}
