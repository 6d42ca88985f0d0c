package entity

import (
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MaxDescriptionLength is the longest description a transaction may carry
const MaxDescriptionLength = 50

// AmountPlaces is the number of decimal places amounts are stored with
const AmountPlaces = 2

// Transaction represents a purchase transaction in the base currency (USD).
// Description and amount can only change through their setters, which validate.
type Transaction struct {
	id          string
	description string
	date        time.Time
	amount      decimal.Decimal
	createdAt   time.Time
}

// NewTransaction creates a validated transaction with a fresh identifier
func NewTransaction(description string, date time.Time, amount decimal.Decimal) (*Transaction, error) {
	tx := &Transaction{
		id:        uuid.New().String(),
		date:      date,
		createdAt: time.Now().UTC(),
	}

	if err := tx.SetDescription(description); err != nil {
		return nil, err
	}
	if err := tx.SetAmount(amount); err != nil {
		return nil, err
	}

	return tx, nil
}

// ID returns the opaque transaction identifier
func (t *Transaction) ID() string { return t.id }

// Description returns the transaction description
func (t *Transaction) Description() string { return t.description }

// Date returns the transaction date
func (t *Transaction) Date() time.Time { return t.date }

// Amount returns the purchase amount rounded to cents
func (t *Transaction) Amount() decimal.Decimal { return t.amount }

// CreatedAt returns when the transaction was constructed
func (t *Transaction) CreatedAt() time.Time { return t.createdAt }

// SetDescription replaces the description. Empty, whitespace-only and
// descriptions longer than MaxDescriptionLength characters are rejected.
func (t *Transaction) SetDescription(description string) error {
	if strings.TrimSpace(description) == "" {
		return apperr.E(apperr.Validation, "Transaction.SetDescription", "description must not be empty", nil)
	}
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return apperr.E(apperr.Validation, "Transaction.SetDescription", "description must not exceed 50 characters", nil)
	}

	t.description = description
	return nil
}

// SetAmount replaces the amount, rounding half away from zero to cents.
// Non-positive amounts are rejected.
func (t *Transaction) SetAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return apperr.E(apperr.Validation, "Transaction.SetAmount", "amount must be a positive value", nil)
	}

	rounded := RoundAmount(amount)
	if !rounded.IsPositive() {
		return apperr.E(apperr.Validation, "Transaction.SetAmount", "amount must be at least 0.01", nil)
	}

	t.amount = rounded
	return nil
}

// RoundAmount rounds to AmountPlaces, half away from zero
func RoundAmount(d decimal.Decimal) decimal.Decimal {
	return d.Round(AmountPlaces)
}

// transactionRecord is the persisted form of a Transaction
type transactionRecord struct {
	ID          string          `json:"id"`
	Description string          `json:"description"`
	Date        time.Time       `json:"date"`
	Amount      decimal.Decimal `json:"amount"`
	CreatedAt   time.Time       `json:"created_at"`
}

// MarshalJSON implements json.Marshaler
func (t *Transaction) MarshalJSON() ([]byte, error) {
	return json.Marshal(transactionRecord{
		ID:          t.id,
		Description: t.description,
		Date:        t.date,
		Amount:      t.amount,
		CreatedAt:   t.createdAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoded records go through the
// same validation as NewTransaction.
func (t *Transaction) UnmarshalJSON(data []byte) error {
	var rec transactionRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.ID == "" {
		return apperr.E(apperr.Validation, "Transaction.UnmarshalJSON", "transaction id is missing", nil)
	}

	var decoded Transaction
	if err := decoded.SetDescription(rec.Description); err != nil {
		return err
	}
	if err := decoded.SetAmount(rec.Amount); err != nil {
		return err
	}
	decoded.id = rec.ID
	decoded.date = rec.Date
	decoded.createdAt = rec.CreatedAt

	*t = decoded
	return nil
}
