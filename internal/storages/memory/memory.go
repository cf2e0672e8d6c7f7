// Package memory is a process-local Storage for development and tests. It
// enforces the same uniqueness and cascade rules as the Postgres schema.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
)

type Option func(*Storage)

// WithClock overrides the time source used to stamp operations.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) { s.now = now }
}

type Storage struct {
	mu  sync.RWMutex
	now func() time.Time

	users      map[int64]storages.User
	tokens     map[string]int64
	currencies map[int64]storages.Currency
	amounts    map[int64]amountRow
	operations map[int64]storages.Operation

	userSeq, currencySeq, amountSeq, operationSeq int64
}

type amountRow struct {
	id, userID, currencyID int64
	amount                 decimal.Decimal
}

func New(opts ...Option) *Storage {
	s := &Storage{
		now:        time.Now,
		users:      make(map[int64]storages.User),
		tokens:     make(map[string]int64),
		currencies: make(map[int64]storages.Currency),
		amounts:    make(map[int64]amountRow),
		operations: make(map[int64]storages.Operation),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Storage) Ping(context.Context) error { return nil }

func (s *Storage) Close() error { return nil }

func sortedKeys[V any](m map[int64]V) []int64 {
	ids := make([]int64, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (s *Storage) CreateUser(_ context.Context, user storages.User) (storages.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return storages.User{}, storages.ErrDuplicate
		}
	}
	s.userSeq++
	user.ID = s.userSeq
	user.DateJoined = s.now().UTC()
	s.users[user.ID] = user
	return user, nil
}

func (s *Storage) GetUserByID(_ context.Context, id int64) (storages.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return storages.User{}, storages.ErrNotFound
	}
	return u, nil
}

func (s *Storage) GetUserByUsername(_ context.Context, username string) (storages.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return storages.User{}, storages.ErrNotFound
}

func (s *Storage) ListUsers(context.Context) ([]storages.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := []storages.User{}
	for _, id := range sortedKeys(s.users) {
		users = append(users, s.users[id])
	}
	return users, nil
}

func (s *Storage) UpdatePassword(_ context.Context, id int64, passwordHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storages.ErrNotFound
	}
	u.PasswordHash = passwordHash
	s.users[id] = u
	return nil
}

func (s *Storage) DeleteUser(_ context.Context, id int64) (storages.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return storages.User{}, storages.ErrNotFound
	}
	s.deleteUserLocked(id)
	return u, nil
}

func (s *Storage) deleteUserLocked(id int64) {
	delete(s.users, id)
	for key, userID := range s.tokens {
		if userID == id {
			delete(s.tokens, key)
		}
	}
	for rowID, row := range s.amounts {
		if row.userID == id {
			delete(s.amounts, rowID)
		}
	}
	for opID, op := range s.operations {
		if op.UserID == id {
			delete(s.operations, opID)
		}
	}
}

func (s *Storage) GetOrCreateToken(_ context.Context, userID int64, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return "", storages.ErrInvalidReference
	}
	for existing, owner := range s.tokens {
		if owner == userID {
			return existing, nil
		}
	}
	if _, taken := s.tokens[key]; taken {
		return "", storages.ErrDuplicate
	}
	s.tokens[key] = userID
	return key, nil
}

func (s *Storage) UserByToken(_ context.Context, key string) (storages.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	userID, ok := s.tokens[key]
	if !ok {
		return storages.User{}, storages.ErrNotFound
	}
	return s.users[userID], nil
}

func (s *Storage) CreateCurrency(_ context.Context, code string) (storages.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.codeTakenLocked(code, 0) {
		return storages.Currency{}, storages.ErrDuplicate
	}
	s.currencySeq++
	c := storages.Currency{ID: s.currencySeq, Code: code}
	s.currencies[c.ID] = c
	return c, nil
}

func (s *Storage) codeTakenLocked(code string, except int64) bool {
	for id, c := range s.currencies {
		if c.Code == code && id != except {
			return true
		}
	}
	return false
}

func (s *Storage) GetCurrency(_ context.Context, id int64) (storages.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.currencies[id]
	if !ok {
		return storages.Currency{}, storages.ErrNotFound
	}
	return c, nil
}

func (s *Storage) GetCurrencyByCode(_ context.Context, code string) (storages.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.currencies {
		if c.Code == code {
			return c, nil
		}
	}
	return storages.Currency{}, storages.ErrNotFound
}

func (s *Storage) ListCurrencies(context.Context) ([]storages.Currency, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	currencies := []storages.Currency{}
	for _, id := range sortedKeys(s.currencies) {
		currencies = append(currencies, s.currencies[id])
	}
	return currencies, nil
}

func (s *Storage) UpdateCurrency(_ context.Context, currency storages.Currency) (storages.Currency, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.currencies[currency.ID]; !ok {
		return storages.Currency{}, storages.ErrNotFound
	}
	if s.codeTakenLocked(currency.Code, currency.ID) {
		return storages.Currency{}, storages.ErrDuplicate
	}
	s.currencies[currency.ID] = currency
	return currency, nil
}

func (s *Storage) DeleteCurrency(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.currencies[id]; !ok {
		return storages.ErrNotFound
	}
	s.deleteCurrencyLocked(id)
	return nil
}

func (s *Storage) deleteCurrencyLocked(id int64) {
	delete(s.currencies, id)
	for rowID, row := range s.amounts {
		if row.currencyID == id {
			delete(s.amounts, rowID)
		}
	}
	for opID, op := range s.operations {
		if op.CurrencyID == id {
			delete(s.operations, opID)
		}
	}
}

func (s *Storage) DeleteAllCurrencies(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.deleteAllCurrenciesLocked(), nil
}

func (s *Storage) deleteAllCurrenciesLocked() int64 {
	n := int64(len(s.currencies))
	for id := range s.currencies {
		s.deleteCurrencyLocked(id)
	}
	s.currencySeq = 0
	return n
}

func (s *Storage) CreateCurrencyAmount(_ context.Context, userID, currencyID int64, amount decimal.Decimal) (storages.CurrencyAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return storages.CurrencyAmount{}, storages.ErrInvalidReference
	}
	if _, ok := s.currencies[currencyID]; !ok {
		return storages.CurrencyAmount{}, storages.ErrInvalidReference
	}
	for _, row := range s.amounts {
		if row.userID == userID && row.currencyID == currencyID {
			return storages.CurrencyAmount{}, storages.ErrDuplicate
		}
	}
	s.amountSeq++
	row := amountRow{id: s.amountSeq, userID: userID, currencyID: currencyID, amount: amount}
	s.amounts[row.id] = row
	return s.viewLocked(row), nil
}

func (s *Storage) viewLocked(row amountRow) storages.CurrencyAmount {
	return storages.CurrencyAmount{
		ID:           row.id,
		UserID:       row.userID,
		Username:     s.users[row.userID].Username,
		CurrencyID:   row.currencyID,
		CurrencyCode: s.currencies[row.currencyID].Code,
		Amount:       row.amount,
	}
}

func (s *Storage) GetCurrencyAmount(_ context.Context, id int64) (storages.CurrencyAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.amounts[id]
	if !ok {
		return storages.CurrencyAmount{}, storages.ErrNotFound
	}
	return s.viewLocked(row), nil
}

func (s *Storage) ListCurrencyAmounts(context.Context) ([]storages.CurrencyAmount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	amounts := []storages.CurrencyAmount{}
	for _, id := range sortedKeys(s.amounts) {
		amounts = append(amounts, s.viewLocked(s.amounts[id]))
	}
	return amounts, nil
}

func (s *Storage) UpdateCurrencyAmount(_ context.Context, id int64, amount decimal.Decimal) (storages.CurrencyAmount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, ok := s.amounts[id]
	if !ok {
		return storages.CurrencyAmount{}, storages.ErrNotFound
	}
	row.amount = amount
	s.amounts[id] = row
	return s.viewLocked(row), nil
}

func (s *Storage) DeleteCurrencyAmount(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.amounts[id]; !ok {
		return storages.ErrNotFound
	}
	delete(s.amounts, id)
	return nil
}

func (s *Storage) checkRefsLocked(op storages.Operation) error {
	if _, ok := s.users[op.UserID]; !ok {
		return storages.ErrInvalidReference
	}
	if _, ok := s.currencies[op.CurrencyID]; !ok {
		return storages.ErrInvalidReference
	}
	return nil
}

func (s *Storage) CreateOperation(_ context.Context, op storages.Operation) (storages.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefsLocked(op); err != nil {
		return storages.Operation{}, err
	}
	s.operationSeq++
	op.ID = s.operationSeq
	op.Date = s.now().UTC()
	s.operations[op.ID] = op
	return op, nil
}

func (s *Storage) GetOperation(_ context.Context, id int64) (storages.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	op, ok := s.operations[id]
	if !ok {
		return storages.Operation{}, storages.ErrNotFound
	}
	return op, nil
}

func (s *Storage) ListOperations(_ context.Context, filter storages.OperationFilter) ([]storages.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var day string
	if filter.Date != nil {
		day = filter.Date.UTC().Format(time.DateOnly)
	}

	ops := []storages.Operation{}
	for _, id := range sortedKeys(s.operations) {
		op := s.operations[id]
		if filter.UserID != nil && op.UserID != *filter.UserID {
			continue
		}
		if filter.Date != nil && op.Date.UTC().Format(time.DateOnly) != day {
			continue
		}
		ops = append(ops, op)
	}
	return ops, nil
}

func (s *Storage) UpdateOperation(_ context.Context, op storages.Operation) (storages.Operation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.operations[op.ID]
	if !ok {
		return storages.Operation{}, storages.ErrNotFound
	}
	if err := s.checkRefsLocked(op); err != nil {
		return storages.Operation{}, err
	}
	op.Date = existing.Date
	s.operations[op.ID] = op
	return op, nil
}

func (s *Storage) DeleteOperation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.operations[id]; !ok {
		return storages.ErrNotFound
	}
	delete(s.operations, id)
	return nil
}

func (s *Storage) DeleteAllOperations(context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := int64(len(s.operations))
	s.operations = make(map[int64]storages.Operation)
	return n, nil
}

func (s *Storage) ResetDatabase(context.Context) (storages.ResetSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	summary := storages.ResetSummary{Operations: int64(len(s.operations))}
	s.operations = make(map[int64]storages.Operation)
	summary.Currencies = s.deleteAllCurrenciesLocked()
	for id, u := range s.users {
		if !u.IsSuperuser {
			s.deleteUserLocked(id)
			summary.Users++
		}
	}
	return summary, nil
}
