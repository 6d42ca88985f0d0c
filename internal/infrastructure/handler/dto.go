package handler

import (
	"github.com/damon-houk/purchase-conversion-service/internal/application/service"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// CreateTransactionRequest represents the request body for creating a transaction
type CreateTransactionRequest struct {
	Description string          `json:"description" validate:"required,nospaces,max=50"`
	Date        string          `json:"date" validate:"required,datetime=2006-01-02"`
	Amount      decimal.Decimal `json:"amount"`
}

// ConvertRequest holds the query parameters of the conversion endpoint
type ConvertRequest struct {
	Currency string `json:"currency" validate:"required,max=64,printascii,excludesall=0x2C:"`
}

// TransactionResponse represents the response for transaction endpoints
type TransactionResponse struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Date        string `json:"date"`
	Amount      string `json:"amount"`
}

// TransactionListResponse represents one page of transactions
type TransactionListResponse struct {
	PageNumber   int                   `json:"page_number"`
	PageSize     int                   `json:"page_size"`
	Total        int                   `json:"total"`
	Transactions []TransactionResponse `json:"transactions"`
}

// ConvertedTransactionResponse represents the response for the conversion endpoint
type ConvertedTransactionResponse struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	Date            string `json:"date"`
	OriginalAmount  string `json:"original_amount"`
	Currency        string `json:"currency"`
	ExchangeRate    string `json:"exchange_rate"`
	ConvertedAmount string `json:"converted_amount"`
	RateDate        string `json:"rate_date"`
}

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Error       string `json:"error"`
	Status      int    `json:"status"`
	Description string `json:"description,omitempty"`
	RequestID   string `json:"request_id,omitempty"`
}

func toTransactionResponse(tx *entity.Transaction) TransactionResponse {
	return TransactionResponse{
		ID:          tx.ID(),
		Description: tx.Description(),
		Date:        tx.Date().Format(dateLayout),
		Amount:      tx.Amount().StringFixed(entity.AmountPlaces),
	}
}

func toConvertedResponse(c *service.ConversionResult) ConvertedTransactionResponse {
	return ConvertedTransactionResponse{
		ID:              c.ID,
		Description:     c.Description,
		Date:            c.Date.Format(dateLayout),
		OriginalAmount:  c.OriginalAmount.StringFixed(entity.AmountPlaces),
		Currency:        c.Currency,
		ExchangeRate:    c.ExchangeRate.String(),
		ConvertedAmount: c.ConvertedAmount.StringFixed(entity.AmountPlaces),
		RateDate:        c.RateDate.Format(dateLayout),
	}
}
