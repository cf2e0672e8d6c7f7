package postgres

import (
	"context"
	"database/sql"

	"github.com/Krchnk/exchange-records/internal/config"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

type Storage struct {
	db *sql.DB
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewStorage(cfg config.DBConfig) (*Storage, error) {
	db, err := sql.Open("postgres", cfg.ConnectionString())
	if err != nil {
		logrus.WithError(err).Error("failed to open database connection")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Error("failed to ping database")
		db.Close()
		return nil, err
	}

	s := New(db)
	if err := s.Migrate(context.Background()); err != nil {
		logrus.WithError(err).Error("failed to apply schema")
		db.Close()
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"host": cfg.Host,
		"db":   cfg.DBName,
	}).Info("database connection established")
	return s, nil
}

// New wraps an already opened connection without touching the schema.
func New(db *sql.DB) *Storage {
	return &Storage{db: db}
}

func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) withTx(ctx context.Context, fn func(tx querier) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		logrus.WithError(err).Error("failed to begin transaction")
		return err
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		logrus.WithError(err).Error("failed to commit transaction")
		return err
	}
	return nil
}
