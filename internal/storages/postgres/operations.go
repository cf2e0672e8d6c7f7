package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/sirupsen/logrus"
)

const operationColumns = `id, user_id, currency_id, amount, exchange_rate, operation_type, date, description`

func scanOperation(row scanner) (storages.Operation, error) {
	var (
		op     storages.Operation
		opType string
	)
	err := row.Scan(&op.ID, &op.UserID, &op.CurrencyID, &op.Amount, &op.ExchangeRate, &opType, &op.Date, &op.Description)
	op.Type = storages.OperationType(opType)
	return op, err
}

// CreateOperation ignores op.Date; the database stamps the row.
func (s *Storage) CreateOperation(ctx context.Context, op storages.Operation) (storages.Operation, error) {
	err := s.db.QueryRowContext(ctx, `
        INSERT INTO operations (user_id, currency_id, amount, exchange_rate, operation_type, description)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, date`,
		op.UserID, op.CurrencyID, op.Amount, op.ExchangeRate, string(op.Type), op.Description).Scan(&op.ID, &op.Date)
	if err != nil {
		logrus.WithFields(logrus.Fields{
			"user_id":     op.UserID,
			"currency_id": op.CurrencyID,
		}).WithError(err).Error("failed to insert operation")
		return storages.Operation{}, mapError(err)
	}

	logrus.WithFields(logrus.Fields{
		"operation_id": op.ID,
		"type":         op.Type,
		"amount":       op.Amount.String(),
	}).Info("operation recorded")
	return op, nil
}

func (s *Storage) GetOperation(ctx context.Context, id int64) (storages.Operation, error) {
	op, err := scanOperation(s.db.QueryRowContext(ctx, `SELECT `+operationColumns+` FROM operations WHERE id = $1`, id))
	if err != nil {
		return storages.Operation{}, mapError(err)
	}
	return op, nil
}

func (s *Storage) ListOperations(ctx context.Context, filter storages.OperationFilter) ([]storages.Operation, error) {
	var (
		conds []string
		args  []any
	)
	if filter.UserID != nil {
		args = append(args, *filter.UserID)
		conds = append(conds, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.Date != nil {
		args = append(args, filter.Date.UTC().Format("2006-01-02"))
		conds = append(conds, fmt.Sprintf("(date AT TIME ZONE 'UTC')::date = $%d", len(args)))
	}

	query := `SELECT ` + operationColumns + ` FROM operations`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		logrus.WithError(err).Error("failed to query operations")
		return nil, err
	}
	defer rows.Close()

	ops := []storages.Operation{}
	for rows.Next() {
		op, err := scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// UpdateOperation never touches the date column.
func (s *Storage) UpdateOperation(ctx context.Context, op storages.Operation) (storages.Operation, error) {
	err := s.db.QueryRowContext(ctx, `
        UPDATE operations
        SET user_id = $2, currency_id = $3, amount = $4, exchange_rate = $5, operation_type = $6, description = $7
        WHERE id = $1
        RETURNING date`,
		op.ID, op.UserID, op.CurrencyID, op.Amount, op.ExchangeRate, string(op.Type), op.Description).Scan(&op.Date)
	if err != nil {
		return storages.Operation{}, mapError(err)
	}
	return op, nil
}

func (s *Storage) DeleteOperation(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM operations WHERE id = $1`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (s *Storage) DeleteAllOperations(ctx context.Context) (int64, error) {
	deleted, err := deleteAll(ctx, s.db, `DELETE FROM operations`)
	if err != nil {
		return 0, err
	}
	logrus.WithField("count", deleted).Info("all operations deleted")
	return deleted, nil
}
