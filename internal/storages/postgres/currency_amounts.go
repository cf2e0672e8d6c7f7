package postgres

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const currencyAmountSelect = `
        SELECT ca.id, ca.user_id, u.username, ca.currency_id, c.code, ca.amount
        FROM currency_amounts ca
        JOIN users u ON u.id = ca.user_id
        JOIN currencies c ON c.id = ca.currency_id`

func scanCurrencyAmount(row scanner) (storages.CurrencyAmount, error) {
	var a storages.CurrencyAmount
	err := row.Scan(&a.ID, &a.UserID, &a.Username, &a.CurrencyID, &a.CurrencyCode, &a.Amount)
	return a, err
}

func (s *Storage) CreateCurrencyAmount(ctx context.Context, userID, currencyID int64, amount decimal.Decimal) (storages.CurrencyAmount, error) {
	var id int64
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO currency_amounts (user_id, currency_id, amount)
        VALUES ($1, $2, $3)
        ON CONFLICT (user_id, currency_id) DO NOTHING
        RETURNING id`,
		userID, currencyID, amount).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return storages.CurrencyAmount{}, storages.ErrDuplicate
	}
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":     userID,
			"currency_id": currencyID,
		}).WithError(err).Error("failed to insert currency amount")
		return storages.CurrencyAmount{}, mapError(err)
	}
	return s.GetCurrencyAmount(ctx, id)
}

func (s *Storage) GetCurrencyAmount(ctx context.Context, id int64) (storages.CurrencyAmount, error) {
	a, err := scanCurrencyAmount(s.db.QueryRowContext(ctx, currencyAmountSelect+` WHERE ca.id = $1`, id))
	if err != nil {
		return storages.CurrencyAmount{}, mapError(err)
	}
	return a, nil
}

func (s *Storage) ListCurrencyAmounts(ctx context.Context) ([]storages.CurrencyAmount, error) {
	rows, err := s.db.QueryContext(ctx, currencyAmountSelect+` ORDER BY ca.id`)
	if err != nil {
		logrus.WithError(err).Error("failed to query currency amounts")
		return nil, err
	}
	defer rows.Close()

	amounts := []storages.CurrencyAmount{}
	for rows.Next() {
		a, err := scanCurrencyAmount(rows)
		if err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

func (s *Storage) UpdateCurrencyAmount(ctx context.Context, id int64, amount decimal.Decimal) (storages.CurrencyAmount, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE currency_amounts SET amount = $2 WHERE id = $1`, id, amount)
	if err != nil {
		logrus.WithField("currency_amount_id", id).WithError(err).Error("failed to update currency amount")
		return storages.CurrencyAmount{}, err
	}
	if err := expectAffected(res); err != nil {
		return storages.CurrencyAmount{}, err
	}
	return s.GetCurrencyAmount(ctx, id)
}

func (s *Storage) DeleteCurrencyAmount(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM currency_amounts WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
