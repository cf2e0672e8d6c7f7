package postgres

import (
	"context"
	"fmt"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		username VARCHAR(150) NOT NULL UNIQUE,
		password_hash VARCHAR(128) NOT NULL,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		is_superuser BOOLEAN NOT NULL DEFAULT FALSE,
		date_joined TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS auth_tokens (
		key VARCHAR(40) PRIMARY KEY,
		user_id BIGINT NOT NULL UNIQUE REFERENCES users(id) ON DELETE CASCADE,
		created TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS currencies (
		id BIGSERIAL PRIMARY KEY,
		code VARCHAR(10) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS currency_amounts (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		currency_id BIGINT NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
		amount NUMERIC(15, 2) NOT NULL DEFAULT 0.00,
		UNIQUE (user_id, currency_id)
	)`,
	`CREATE TABLE IF NOT EXISTS operations (
		id BIGSERIAL PRIMARY KEY,
		user_id BIGINT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		currency_id BIGINT NOT NULL REFERENCES currencies(id) ON DELETE CASCADE,
		amount NUMERIC(10, 2) NOT NULL CHECK (amount > 0),
		exchange_rate NUMERIC(10, 4) NOT NULL,
		operation_type VARCHAR(4) NOT NULL DEFAULT 'BUY' CHECK (operation_type IN ('BUY', 'SELL')),
		date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		description TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE INDEX IF NOT EXISTS operations_user_id_idx ON operations (user_id)`,
	`CREATE INDEX IF NOT EXISTS operations_date_idx ON operations (date)`,
}

// Migrate creates any missing tables. It is safe to run on every start.
func (s *Storage) Migrate(ctx context.Context) error {
	for i, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema statement %d: %w", i, err)
		}
	}
	return nil
}
