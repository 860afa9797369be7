package square

import (
	"strings"

	sq "github.com/square/square-go-sdk"
)

// AuthorizeParams contains the inputs for a delayed-capture payment. The
// payment is created with Autocomplete disabled so the funds stay held
// until an explicit complete or cancel.
type AuthorizeParams struct {
	AmountCents    int64
	Currency       string
	LocationID     string
	SourceID       string
	ReferenceID    string
	Note           string
	IdempotencyKey string
}

func (p AuthorizeParams) toSquareRequest(idempotencyKey string) *sq.CreatePaymentRequest {
	autocomplete := false
	req := &sq.CreatePaymentRequest{
		IdempotencyKey: idempotencyKey,
		SourceID:       p.SourceID,
		Autocomplete:   &autocomplete,
	}
	if trimmed := strings.TrimSpace(p.LocationID); trimmed != "" {
		req.LocationID = ptrString(trimmed)
	}
	if p.AmountCents > 0 {
		req.AmountMoney = moneyPtr(p.AmountCents, p.Currency)
	}
	if trimmed := strings.TrimSpace(p.Note); trimmed != "" {
		req.Note = ptrString(trimmed)
	}
	if trimmed := strings.TrimSpace(p.ReferenceID); trimmed != "" {
		req.ReferenceID = ptrString(trimmed)
	}
	return req
}

func ptrString(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}

func int64Ptr(value int64) *int64 {
	return &value
}

func currencyPtr(code string) *sq.Currency {
	trimmed := strings.ToUpper(strings.TrimSpace(code))
	if trimmed == "" {
		trimmed = "USD"
	}
	c := sq.Currency(trimmed)
	return &c
}

func moneyPtr(amount int64, currency string) *sq.Money {
	if amount == 0 {
		return nil
	}
	return &sq.Money{
		Amount:   int64Ptr(amount),
		Currency: currencyPtr(currency),
	}
}
