package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Krchnk/exchange-records/internal/auth"
	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/Krchnk/exchange-records/internal/storages/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type flushCounter struct{ n int }

func (f *flushCounter) Flush() { f.n++ }

type ServiceTestSuite struct {
	suite.Suite
	ctx     context.Context
	now     time.Time
	store   *memory.Storage
	flushes *flushCounter
	svc     *Service
	alice   storages.User
}

func (s *ServiceTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.store = memory.New(memory.WithClock(func() time.Time { return s.now }))
	s.flushes = &flushCounter{}
	s.svc = New(s.store, s.flushes)

	alice, err := s.svc.Signup(s.ctx, "alice", "alice-pass")
	s.Require().NoError(err)
	s.alice = alice
}

func TestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(ServiceTestSuite))
}

func dec(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func ptr[T any](v T) *T { return &v }

func (s *ServiceTestSuite) currency(code string) storages.Currency {
	c, err := s.svc.CreateCurrency(s.ctx, code)
	s.Require().NoError(err)
	return c
}

func (s *ServiceTestSuite) operation(user storages.User, currencyID int64) storages.Operation {
	op, err := s.svc.CreateOperation(s.ctx, user, OperationInput{
		CurrencyID:   &currencyID,
		Amount:       dec("10.00"),
		ExchangeRate: dec("1.2345"),
	})
	s.Require().NoError(err)
	return op
}

func (s *ServiceTestSuite) TestCreateCurrencyUppercases() {
	for _, code := range []string{"usd", "Eur", " gbp ", "btc2"} {
		c, err := s.svc.CreateCurrency(s.ctx, code)
		s.Require().NoError(err)

		got, err := s.svc.GetCurrency(s.ctx, c.ID)
		s.Require().NoError(err)
		s.Equal(c.Code, got.Code)
	}

	names, err := s.svc.ListCurrencies(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(names, 4)
	s.Equal("USD", names[0].Code)
	s.Equal("EUR", names[1].Code)
	s.Equal("GBP", names[2].Code)
	s.Equal("BTC2", names[3].Code)
}

func (s *ServiceTestSuite) TestCreateCurrencyConflictIsCaseInsensitive() {
	for _, pair := range [][2]string{{"usd", "USD"}, {"EUR", "eur"}} {
		_, err := s.svc.CreateCurrency(s.ctx, pair[0])
		s.Require().NoError(err)

		_, err = s.svc.CreateCurrency(s.ctx, pair[1])
		s.ErrorIs(err, ErrConflict)
		s.Contains(err.Error(), "already exists")
	}
}

func (s *ServiceTestSuite) TestCreateCurrencyValidation() {
	_, err := s.svc.CreateCurrency(s.ctx, "   ")
	s.ErrorIs(err, ErrBadRequest)

	_, err = s.svc.CreateCurrency(s.ctx, "ABCDEFGHIJK")
	s.ErrorIs(err, ErrBadRequest)

	_, err = s.svc.CreateCurrency(s.ctx, "ABCDEFGHIJ")
	s.NoError(err)
}

func (s *ServiceTestSuite) TestUpdateCurrency() {
	usd := s.currency("USD")
	eur := s.currency("EUR")

	updated, err := s.svc.UpdateCurrency(s.ctx, eur.ID, "chf")
	s.Require().NoError(err)
	s.Equal("CHF", updated.Code)

	_, err = s.svc.UpdateCurrency(s.ctx, eur.ID, "usd")
	s.ErrorIs(err, ErrConflict)

	same, err := s.svc.UpdateCurrency(s.ctx, usd.ID, "usd")
	s.Require().NoError(err)
	s.Equal("USD", same.Code)

	_, err = s.svc.UpdateCurrency(s.ctx, 999, "JPY")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestDeleteCurrencyCascades() {
	usd := s.currency("USD")
	_, err := s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("5"))
	s.Require().NoError(err)
	s.operation(s.alice, usd.ID)

	s.Require().NoError(s.svc.DeleteCurrency(s.ctx, usd.ID))

	amounts, err := s.svc.ListCurrencyAmounts(s.ctx)
	s.Require().NoError(err)
	s.Empty(amounts)
	ops, err := s.svc.ListOperations(s.ctx)
	s.Require().NoError(err)
	s.Empty(ops)

	s.ErrorIs(s.svc.DeleteCurrency(s.ctx, usd.ID), ErrNotFound)
}

func (s *ServiceTestSuite) TestBulkDeleteCurrenciesRestartsIDs() {
	s.currency("USD")
	s.currency("EUR")
	s.currency("GBP")

	n, err := s.svc.BulkDeleteCurrencies(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(3), n)

	list, err := s.svc.ListCurrencies(s.ctx)
	s.Require().NoError(err)
	s.Empty(list)

	next := s.currency("JPY")
	s.Equal(int64(1), next.ID)
}

func (s *ServiceTestSuite) TestCreateCurrencyAmountConflictKeepsFirstAmount() {
	usd := s.currency("USD")

	first, err := s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("100.50"))
	s.Require().NoError(err)
	s.Equal("alice", first.Username)
	s.Equal("USD", first.CurrencyCode)

	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("999.99"))
	s.ErrorIs(err, ErrConflict)
	s.Contains(err.Error(), "already exists for this user")

	got, err := s.svc.GetCurrencyAmount(s.ctx, first.ID)
	s.Require().NoError(err)
	s.True(got.Amount.Equal(decimal.RequireFromString("100.50")))
}

func (s *ServiceTestSuite) TestCreateCurrencyAmountConcurrentSinglesWinner() {
	usd := s.currency("USD")
	const workers = 50

	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("1.00"))
		}(i)
	}
	wg.Wait()

	var created, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, ErrConflict):
			conflicts++
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, created)
	s.Equal(workers-1, conflicts)

	rows, err := s.svc.ListCurrencyAmounts(s.ctx)
	s.Require().NoError(err)
	s.Len(rows, 1)
}

func (s *ServiceTestSuite) TestCreateCurrencyAmountPerUser() {
	usd := s.currency("USD")
	bob, err := s.svc.Signup(s.ctx, "bob", "bob-pass")
	s.Require().NoError(err)

	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("1"))
	s.Require().NoError(err)
	_, err = s.svc.CreateCurrencyAmount(s.ctx, bob, &usd.ID, dec("2"))
	s.Require().NoError(err)
}

func (s *ServiceTestSuite) TestCreateCurrencyAmountValidation() {
	usd := s.currency("USD")

	_, err := s.svc.CreateCurrencyAmount(s.ctx, s.alice, nil, dec("1"))
	s.ErrorIs(err, ErrBadRequest)
	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, nil)
	s.ErrorIs(err, ErrBadRequest)
	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("1.234"))
	s.ErrorIs(err, ErrBadRequest)
	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("10000000000000"))
	s.ErrorIs(err, ErrBadRequest)
	_, err = s.svc.CreateCurrencyAmount(s.ctx, s.alice, ptr(int64(42)), dec("1"))
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestUpdateCurrencyAmount() {
	usd := s.currency("USD")
	row, err := s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("1"))
	s.Require().NoError(err)

	updated, err := s.svc.UpdateCurrencyAmount(s.ctx, row.ID, dec("7.25"), false)
	s.Require().NoError(err)
	s.Equal("7.25", updated.Amount.StringFixed(2))

	_, err = s.svc.UpdateCurrencyAmount(s.ctx, row.ID, nil, false)
	s.ErrorIs(err, ErrBadRequest)

	unchanged, err := s.svc.UpdateCurrencyAmount(s.ctx, row.ID, nil, true)
	s.Require().NoError(err)
	s.Equal("7.25", unchanged.Amount.StringFixed(2))

	_, err = s.svc.UpdateCurrencyAmount(s.ctx, 404, dec("1"), true)
	s.ErrorIs(err, ErrNotFound)

	s.Require().NoError(s.svc.DeleteCurrencyAmount(s.ctx, row.ID))
	s.ErrorIs(s.svc.DeleteCurrencyAmount(s.ctx, row.ID), ErrNotFound)
}

func (s *ServiceTestSuite) TestCreateOperationDefaults() {
	usd := s.currency("USD")

	op := s.operation(s.alice, usd.ID)
	s.Equal(s.alice.ID, op.UserID)
	s.Equal(storages.OperationBuy, op.Type)
	s.Equal(s.now, op.Date)
	s.Empty(op.Description)
}

func (s *ServiceTestSuite) TestCreateOperationExplicitFields() {
	usd := s.currency("USD")
	bob, err := s.svc.Signup(s.ctx, "bob", "bob-pass")
	s.Require().NoError(err)

	op, err := s.svc.CreateOperation(s.ctx, s.alice, OperationInput{
		UserID:       &bob.ID,
		CurrencyID:   &usd.ID,
		Amount:       dec("3.50"),
		ExchangeRate: dec("0.9123"),
		Type:         ptr(storages.OperationType("sell")),
		Description:  ptr("rebalancing"),
	})
	s.Require().NoError(err)
	s.Equal(bob.ID, op.UserID)
	s.Equal(storages.OperationSell, op.Type)
	s.Equal("rebalancing", op.Description)
}

func (s *ServiceTestSuite) TestCreateOperationValidation() {
	usd := s.currency("USD")

	tests := []struct {
		name string
		in   OperationInput
		msg  string
	}{
		{"missing fields", OperationInput{}, "currency, amount, exchange_rate"},
		{"zero amount", OperationInput{CurrencyID: &usd.ID, Amount: dec("0"), ExchangeRate: dec("1")}, "amount"},
		{"zero rate", OperationInput{CurrencyID: &usd.ID, Amount: dec("1"), ExchangeRate: dec("0")}, "exchange_rate"},
		{"negative rate", OperationInput{CurrencyID: &usd.ID, Amount: dec("1"), ExchangeRate: dec("-1")}, "exchange_rate"},
		{"rate precision", OperationInput{CurrencyID: &usd.ID, Amount: dec("1"), ExchangeRate: dec("1.23456")}, "decimal places"},
		{"amount digits", OperationInput{CurrencyID: &usd.ID, Amount: dec("100000000"), ExchangeRate: dec("1")}, "digits in total"},
		{"bad type", OperationInput{CurrencyID: &usd.ID, Amount: dec("1"), ExchangeRate: dec("1"), Type: ptr(storages.OperationType("HOLD"))}, "operation_type"},
		{"unknown currency", OperationInput{CurrencyID: ptr(int64(77)), Amount: dec("1"), ExchangeRate: dec("1")}, "currency"},
		{"unknown user", OperationInput{UserID: ptr(int64(77)), CurrencyID: &usd.ID, Amount: dec("1"), ExchangeRate: dec("1")}, "user"},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.svc.CreateOperation(s.ctx, s.alice, tt.in)
			s.ErrorIs(err, ErrBadRequest)
			s.Contains(err.Error(), tt.msg)
		})
	}
}

func (s *ServiceTestSuite) TestUpdateOperationKeepsDate() {
	usd := s.currency("USD")
	eur := s.currency("EUR")
	op := s.operation(s.alice, usd.ID)
	created := op.Date

	s.now = s.now.Add(48 * time.Hour)

	partial, err := s.svc.UpdateOperation(s.ctx, op.ID, OperationInput{Description: ptr("note")}, true)
	s.Require().NoError(err)
	s.Equal("note", partial.Description)
	s.Equal(created, partial.Date)
	s.Equal(usd.ID, partial.CurrencyID)

	_, err = s.svc.UpdateOperation(s.ctx, op.ID, OperationInput{Description: ptr("x")}, false)
	s.ErrorIs(err, ErrBadRequest)

	full, err := s.svc.UpdateOperation(s.ctx, op.ID, OperationInput{
		CurrencyID:   &eur.ID,
		Amount:       dec("20"),
		ExchangeRate: dec("2"),
	}, false)
	s.Require().NoError(err)
	s.Equal(eur.ID, full.CurrencyID)
	s.Equal("note", full.Description)
	s.Equal(created, full.Date)

	_, err = s.svc.UpdateOperation(s.ctx, 999, OperationInput{}, true)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestOperationsByDateIgnoresTimeOfDay() {
	usd := s.currency("USD")

	stamps := []time.Time{
		time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC),
		time.Date(2024, 3, 1, 23, 55, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 1, 0, 0, time.UTC),
		time.Date(2024, 2, 29, 23, 59, 59, 0, time.UTC),
	}
	var ids []int64
	for _, ts := range stamps {
		s.now = ts
		ids = append(ids, s.operation(s.alice, usd.ID).ID)
	}

	ops, err := s.svc.OperationsByDate(s.ctx, "2024-03-01")
	s.Require().NoError(err)
	s.Require().Len(ops, 2)
	s.Equal(ids[0], ops[0].ID)
	s.Equal(ids[1], ops[1].ID)

	empty, err := s.svc.OperationsByDate(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(empty)

	_, err = s.svc.OperationsByDate(s.ctx, "01/03/2024")
	s.ErrorIs(err, ErrBadRequest)
}

func (s *ServiceTestSuite) TestOperationsByUser() {
	usd := s.currency("USD")
	bob, err := s.svc.Signup(s.ctx, "bob", "bob-pass")
	s.Require().NoError(err)

	s.operation(s.alice, usd.ID)
	s.operation(bob, usd.ID)
	s.operation(bob, usd.ID)

	ops, err := s.svc.OperationsByUser(s.ctx, "2")
	s.Require().NoError(err)
	s.Len(ops, 2)

	ops, err = s.svc.UserOperations(s.ctx, "1")
	s.Require().NoError(err)
	s.Len(ops, 1)

	all, err := s.svc.ListOperations(s.ctx)
	s.Require().NoError(err)
	s.Len(all, 3)

	none, err := s.svc.OperationsByUser(s.ctx, "")
	s.Require().NoError(err)
	s.Empty(none)

	_, err = s.svc.OperationsByUser(s.ctx, "abc")
	s.ErrorIs(err, ErrBadRequest)

	_, err = s.svc.UserOperations(s.ctx, "")
	s.ErrorIs(err, ErrBadRequest)
	s.Equal("user_id parameter is required", err.Error())
}

func (s *ServiceTestSuite) TestBulkDeleteOperations() {
	usd := s.currency("USD")
	s.operation(s.alice, usd.ID)
	s.operation(s.alice, usd.ID)

	n, err := s.svc.BulkDeleteOperations(s.ctx)
	s.Require().NoError(err)
	s.Equal(int64(2), n)

	again, err := s.svc.BulkDeleteOperations(s.ctx)
	s.Require().NoError(err)
	s.Zero(again)
}

func (s *ServiceTestSuite) TestUserAdministration() {
	_, err := s.svc.AddUser(s.ctx, NewUser{Username: "carol"})
	s.ErrorIs(err, ErrBadRequest)

	carol, err := s.svc.AddUser(s.ctx, NewUser{Username: "carol", Password: "pw", IsStaff: true})
	s.Require().NoError(err)
	s.True(carol.IsStaff)
	s.False(carol.IsSuperuser)
	s.NotEqual("pw", carol.PasswordHash)

	_, err = s.svc.AddUser(s.ctx, NewUser{Username: "carol", Password: "pw"})
	s.ErrorIs(err, ErrConflict)

	got, err := s.svc.GetUser(s.ctx, carol.ID)
	s.Require().NoError(err)
	s.Equal("carol", got.Username)

	_, err = s.svc.GetUser(s.ctx, 999)
	s.ErrorIs(err, ErrNotFound)

	users, err := s.svc.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 2)
}

func (s *ServiceTestSuite) TestChangePassword() {
	first, err := s.svc.IssueToken(s.ctx, "alice", "alice-pass")
	s.Require().NoError(err)

	_, err = s.svc.ChangePassword(s.ctx, s.alice.ID, "")
	s.ErrorIs(err, ErrBadRequest)

	u, err := s.svc.ChangePassword(s.ctx, s.alice.ID, "new-pass")
	s.Require().NoError(err)
	s.Equal("alice", u.Username)

	_, err = s.svc.IssueToken(s.ctx, "alice", "alice-pass")
	s.ErrorIs(err, ErrInvalidCredentials)

	second, err := s.svc.IssueToken(s.ctx, "alice", "new-pass")
	s.Require().NoError(err)
	s.Equal(first.Token, second.Token)

	_, err = s.svc.ChangePassword(s.ctx, 999, "x")
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestRemoveUserCascadesAndFlushes() {
	usd := s.currency("USD")
	_, err := s.svc.CreateCurrencyAmount(s.ctx, s.alice, &usd.ID, dec("1"))
	s.Require().NoError(err)
	s.operation(s.alice, usd.ID)
	grant, err := s.svc.IssueToken(s.ctx, "alice", "alice-pass")
	s.Require().NoError(err)

	removed, err := s.svc.RemoveUser(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal("alice", removed.Username)
	s.Equal(1, s.flushes.n)

	amounts, _ := s.svc.ListCurrencyAmounts(s.ctx)
	s.Empty(amounts)
	ops, _ := s.svc.ListOperations(s.ctx)
	s.Empty(ops)
	_, err = s.store.UserByToken(s.ctx, grant.Token)
	s.ErrorIs(err, storages.ErrNotFound)

	_, err = s.svc.RemoveUser(s.ctx, s.alice.ID)
	s.ErrorIs(err, ErrNotFound)
}

func (s *ServiceTestSuite) TestIssueToken() {
	grant, err := s.svc.IssueToken(s.ctx, "alice", "alice-pass")
	s.Require().NoError(err)
	s.Len(grant.Token, 40)
	s.Equal(s.alice.ID, grant.User.ID)

	again, err := s.svc.IssueToken(s.ctx, "alice", "alice-pass")
	s.Require().NoError(err)
	s.Equal(grant.Token, again.Token)

	_, err = s.svc.IssueToken(s.ctx, "alice", "nope")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.svc.IssueToken(s.ctx, "mallory", "alice-pass")
	s.ErrorIs(err, ErrInvalidCredentials)
	_, err = s.svc.IssueToken(s.ctx, "", "")
	s.ErrorIs(err, ErrBadRequest)
}

func (s *ServiceTestSuite) TestIssueTokenConcurrentSharesOneKey() {
	const workers = 20

	keys := make([]string, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			grant, err := s.svc.IssueToken(s.ctx, "alice", "alice-pass")
			keys[i], errs[i] = grant.Token, err
		}(i)
	}
	wg.Wait()

	for i := range keys {
		s.Require().NoError(errs[i])
		s.Equal(keys[0], keys[i])
	}

	user, err := s.store.UserByToken(s.ctx, keys[0])
	s.Require().NoError(err)
	s.Equal(s.alice.ID, user.ID)
}

func (s *ServiceTestSuite) TestResetDatabaseKeepsSuperusers() {
	admin, err := s.svc.AddUser(s.ctx, NewUser{Username: "root", Password: "pw", IsStaff: true, IsSuperuser: true})
	s.Require().NoError(err)
	bob, err := s.svc.Signup(s.ctx, "bob", "bob-pass")
	s.Require().NoError(err)

	usd := s.currency("USD")
	eur := s.currency("EUR")
	s.operation(s.alice, usd.ID)
	s.operation(bob, eur.ID)
	s.operation(admin, usd.ID)

	summary, err := s.svc.ResetDatabase(s.ctx)
	s.Require().NoError(err)
	s.Equal(storages.ResetSummary{Operations: 3, Currencies: 2, Users: 2}, summary)
	s.Equal(1, s.flushes.n)

	users, err := s.svc.ListUsers(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal("root", users[0].Username)

	ops, _ := s.svc.ListOperations(s.ctx)
	s.Empty(ops)
	currencies, _ := s.svc.ListCurrencies(s.ctx)
	s.Empty(currencies)
	s.Equal(int64(1), s.currency("USD").ID)
}

func TestCheckDecimal(t *testing.T) {
	require.NoError(t, checkDecimal("amount", decimal.RequireFromString("99999999.99"), 10, 2))
	require.NoError(t, checkDecimal("amount", decimal.RequireFromString("-5.1"), 10, 2))
	require.Error(t, checkDecimal("amount", decimal.RequireFromString("100000000"), 10, 2))
	require.Error(t, checkDecimal("amount", decimal.RequireFromString("0.001"), 10, 2))
}

func TestPasswordIsHashed(t *testing.T) {
	svc := New(memory.New(), nil)
	u, err := svc.Signup(context.Background(), "dave", "plain")
	require.NoError(t, err)
	require.True(t, auth.CheckPassword(u.PasswordHash, "plain"))
}
