package handlers

import (
	"time"

	"github.com/Krchnk/exchange-records/internal/storages"
	"github.com/shopspring/decimal"
)

type currencyRequest struct {
	Code *string `json:"code"`
}

type currencyResponse struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

func toCurrency(c storages.Currency) currencyResponse {
	return currencyResponse{ID: c.ID, Code: c.Code}
}

func toCurrencies(list []storages.Currency) []currencyResponse {
	out := make([]currencyResponse, 0, len(list))
	for _, c := range list {
		out = append(out, toCurrency(c))
	}
	return out
}

type currencyAmountRequest struct {
	CurrencyID *int64           `json:"currency_id"`
	Amount     *decimal.Decimal `json:"amount"`
}

// currencyAmountResponse renders user and currency by their display names.
type currencyAmountResponse struct {
	ID       int64  `json:"id"`
	User     string `json:"user"`
	Currency string `json:"currency"`
	Amount   string `json:"amount"`
}

func toCurrencyAmount(a storages.CurrencyAmount) currencyAmountResponse {
	return currencyAmountResponse{
		ID:       a.ID,
		User:     storages.User{ID: a.UserID, Username: a.Username}.String(),
		Currency: storages.Currency{ID: a.CurrencyID, Code: a.CurrencyCode}.String(),
		Amount:   a.Amount.StringFixed(2),
	}
}

func toCurrencyAmounts(list []storages.CurrencyAmount) []currencyAmountResponse {
	out := make([]currencyAmountResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toCurrencyAmount(a))
	}
	return out
}

type operationRequest struct {
	User          *int64           `json:"user"`
	Currency      *int64           `json:"currency"`
	Amount        *decimal.Decimal `json:"amount"`
	ExchangeRate  *decimal.Decimal `json:"exchange_rate"`
	OperationType *string          `json:"operation_type"`
	Description   *string          `json:"description"`
}

type operationResponse struct {
	ID            int64     `json:"id"`
	User          int64     `json:"user"`
	Currency      int64     `json:"currency"`
	Amount        string    `json:"amount"`
	ExchangeRate  string    `json:"exchange_rate"`
	OperationType string    `json:"operation_type"`
	Date          time.Time `json:"date"`
	Description   string    `json:"description"`
}

func toOperation(op storages.Operation) operationResponse {
	return operationResponse{
		ID:            op.ID,
		User:          op.UserID,
		Currency:      op.CurrencyID,
		Amount:        op.Amount.StringFixed(2),
		ExchangeRate:  op.ExchangeRate.StringFixed(4),
		OperationType: string(op.Type),
		Date:          op.Date,
		Description:   op.Description,
	}
}

func toOperations(list []storages.Operation) []operationResponse {
	out := make([]operationResponse, 0, len(list))
	for _, op := range list {
		out = append(out, toOperation(op))
	}
	return out
}

type signupRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type addUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}

type changePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

func toUser(u storages.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username}
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token       string `json:"token"`
	UserID      int64  `json:"user_id"`
	Username    string `json:"username"`
	IsStaff     bool   `json:"is_staff"`
	IsSuperuser bool   `json:"is_superuser"`
}
