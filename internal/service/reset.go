package service

import (
	"context"

	"github.com/Krchnk/exchange-records/internal/storages"
)

// ResetDatabase wipes operations, currencies and every non-superuser in one
// transaction and reports how many rows of each went away.
func (s *Service) ResetDatabase(ctx context.Context) (storages.ResetSummary, error) {
	summary, err := s.store.ResetDatabase(ctx)
	if err != nil {
		return storages.ResetSummary{}, err
	}
	s.flushTokens()
	return summary, nil
}
