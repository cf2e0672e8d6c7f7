package postgres

import (
	"context"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/sirupsen/logrus"
)

func (s *Storage) ResetDatabase(ctx context.Context) (storages.ResetSummary, error) {
	var summary storages.ResetSummary
	err := s.withTx(ctx, func(tx querier) error {
		var err error
		if summary.Operations, err = deleteAll(ctx, tx, `DELETE FROM operations`); err != nil {
			return err
		}
		if summary.Currencies, err = deleteAllCurrencies(ctx, tx); err != nil {
			return err
		}
		summary.Users, err = deleteAll(ctx, tx, `DELETE FROM users WHERE NOT is_superuser`)
		return err
	})
	if err != nil {
		logrus.WithError(err).Error("database reset rolled back")
		return storages.ResetSummary{}, err
	}

	logrus.WithFields(logrus.Fields{
		"operations": summary.Operations,
		"currencies": summary.Currencies,
		"users":      summary.Users,
	}).Info("database reset")
	return summary, nil
}
