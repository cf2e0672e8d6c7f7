package storages

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound         = errors.New("record not found")
	ErrDuplicate        = errors.New("record already exists")
	ErrInvalidReference = errors.New("referenced record does not exist")
)

type Storage interface {
	UserStorage
	TokenStorage
	CurrencyStorage
	CurrencyAmountStorage
	OperationStorage

	// ResetDatabase removes every operation and currency and every user that
	// is not a superuser, in a single transaction.
	ResetDatabase(ctx context.Context) (ResetSummary, error)
	Ping(ctx context.Context) error
	Close() error
}

type UserStorage interface {
	CreateUser(ctx context.Context, user User) (User, error)
	GetUserByID(ctx context.Context, id int64) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	DeleteUser(ctx context.Context, id int64) (User, error)
}

type TokenStorage interface {
	// GetOrCreateToken binds key to the user unless the user already owns a
	// token, and returns whichever key is stored.
	GetOrCreateToken(ctx context.Context, userID int64, key string) (string, error)
	UserByToken(ctx context.Context, key string) (User, error)
}

type CurrencyStorage interface {
	CreateCurrency(ctx context.Context, code string) (Currency, error)
	GetCurrency(ctx context.Context, id int64) (Currency, error)
	GetCurrencyByCode(ctx context.Context, code string) (Currency, error)
	ListCurrencies(ctx context.Context) ([]Currency, error)
	UpdateCurrency(ctx context.Context, currency Currency) (Currency, error)
	DeleteCurrency(ctx context.Context, id int64) error
	// DeleteAllCurrencies also restarts the currency id sequence.
	DeleteAllCurrencies(ctx context.Context) (int64, error)
}

type CurrencyAmountStorage interface {
	// CreateCurrencyAmount returns ErrDuplicate when the user already holds a
	// row for the currency.
	CreateCurrencyAmount(ctx context.Context, userID, currencyID int64, amount decimal.Decimal) (CurrencyAmount, error)
	GetCurrencyAmount(ctx context.Context, id int64) (CurrencyAmount, error)
	ListCurrencyAmounts(ctx context.Context) ([]CurrencyAmount, error)
	UpdateCurrencyAmount(ctx context.Context, id int64, amount decimal.Decimal) (CurrencyAmount, error)
	DeleteCurrencyAmount(ctx context.Context, id int64) error
}

type OperationStorage interface {
	CreateOperation(ctx context.Context, op Operation) (Operation, error)
	GetOperation(ctx context.Context, id int64) (Operation, error)
	ListOperations(ctx context.Context, filter OperationFilter) ([]Operation, error)
	UpdateOperation(ctx context.Context, op Operation) (Operation, error)
	DeleteOperation(ctx context.Context, id int64) error
	DeleteAllOperations(ctx context.Context) (int64, error)
}

type User struct {
	ID           int64
	Username     string
	PasswordHash string
	IsStaff      bool
	IsSuperuser  bool
	DateJoined   time.Time
}

// IsAdmin reports whether the user may call administrative endpoints.
func (u User) IsAdmin() bool {
	return u.IsStaff || u.IsSuperuser
}

func (u User) String() string {
	return u.Username
}

type Currency struct {
	ID   int64
	Code string
}

func (c Currency) String() string {
	return fmt.Sprintf("(%s)", c.Code)
}

type CurrencyAmount struct {
	ID           int64
	UserID       int64
	Username     string
	CurrencyID   int64
	CurrencyCode string
	Amount       decimal.Decimal
}

func (a CurrencyAmount) String() string {
	return fmt.Sprintf("%s: %s (Added by %s)", a.CurrencyCode, a.Amount.StringFixed(2), a.Username)
}

type OperationType string

const (
	OperationBuy  OperationType = "BUY"
	OperationSell OperationType = "SELL"
)

func (t OperationType) Valid() bool {
	return t == OperationBuy || t == OperationSell
}

type Operation struct {
	ID           int64
	UserID       int64
	CurrencyID   int64
	Amount       decimal.Decimal
	ExchangeRate decimal.Decimal
	Type         OperationType
	Date         time.Time
	Description  string
}

// OperationFilter narrows ListOperations. Nil fields match everything; Date
// matches on the UTC calendar day.
type OperationFilter struct {
	UserID *int64
	Date   *time.Time
}

type ResetSummary struct {
	Operations int64
	Currencies int64
	Users      int64
}
