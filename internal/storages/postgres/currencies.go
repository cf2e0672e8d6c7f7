package postgres

import (
	"context"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/sirupsen/logrus"
)

func (s *Storage) CreateCurrency(ctx context.Context, code string) (storages.Currency, error) {
	c := storages.Currency{Code: code}
	if err := s.db.QueryRowContext(ctx, `INSERT INTO currencies (code) VALUES ($1) RETURNING id`, code).Scan(&c.ID); err != nil {
		logrus.WithField("code", code).WithError(err).Error("failed to insert currency")
		return storages.Currency{}, mapError(err)
	}
	return c, nil
}

func (s *Storage) GetCurrency(ctx context.Context, id int64) (storages.Currency, error) {
	var c storages.Currency
	if err := s.db.QueryRowContext(ctx, `SELECT id, code FROM currencies WHERE id = $1`, id).Scan(&c.ID, &c.Code); err != nil {
		return storages.Currency{}, mapError(err)
	}
	return c, nil
}

func (s *Storage) GetCurrencyByCode(ctx context.Context, code string) (storages.Currency, error) {
	var c storages.Currency
	if err := s.db.QueryRowContext(ctx, `SELECT id, code FROM currencies WHERE code = $1`, code).Scan(&c.ID, &c.Code); err != nil {
		return storages.Currency{}, mapError(err)
	}
	return c, nil
}

func (s *Storage) ListCurrencies(ctx context.Context) ([]storages.Currency, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, code FROM currencies ORDER BY id`)
	if err != nil {
		logrus.WithError(err).Error("failed to query currencies")
		return nil, err
	}
	defer rows.Close()

	currencies := []storages.Currency{}
	for rows.Next() {
		var c storages.Currency
		if err := rows.Scan(&c.ID, &c.Code); err != nil {
			return nil, err
		}
		currencies = append(currencies, c)
	}
	return currencies, rows.Err()
}

func (s *Storage) UpdateCurrency(ctx context.Context, currency storages.Currency) (storages.Currency, error) {
	err := s.db.QueryRowContext(ctx, `UPDATE currencies SET code = $2 WHERE id = $1 RETURNING code`,
		currency.ID, currency.Code).Scan(&currency.Code)
	if err != nil {
		return storages.Currency{}, mapError(err)
	}
	return currency, nil
}

func (s *Storage) DeleteCurrency(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM currencies WHERE id = $1`, id)
	if err != nil {
		logrus.WithField("currency_id", id).WithError(err).Error("failed to delete currency")
		return err
	}
	return expectAffected(res)
}

func (s *Storage) DeleteAllCurrencies(ctx context.Context) (int64, error) {
	var deleted int64
	err := s.withTx(ctx, func(tx querier) error {
		var err error
		deleted, err = deleteAllCurrencies(ctx, tx)
		return err
	})
	if err != nil {
		return 0, err
	}

	logrus.WithField("count", deleted).Info("all currencies deleted")
	return deleted, nil
}

func deleteAllCurrencies(ctx context.Context, q querier) (int64, error) {
	deleted, err := deleteAll(ctx, q, `DELETE FROM currencies`)
	if err != nil {
		return 0, err
	}
	if _, err := q.ExecContext(ctx, `ALTER SEQUENCE currencies_id_seq RESTART WITH 1`); err != nil {
		logrus.WithError(err).Error("failed to restart currency sequence")
		return 0, err
	}
	return deleted, nil
}

func deleteAll(ctx context.Context, q querier, stmt string) (int64, error) {
	res, err := q.ExecContext(ctx, stmt)
	if err != nil {
		logrus.WithField("statement", stmt).WithError(err).Error("bulk delete failed")
		return 0, err
	}
	return res.RowsAffected()
}
