package service

import (
	"context"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/repository"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/metrics"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/middleware"
	"github.com/shopspring/decimal"
)

// Conversion results recorded in metrics
const (
	conversionSuccess = "success"
	conversionNoRate  = "no_rate"
	conversionError   = "error"
)

// ConversionResult is a transaction expressed in another currency. It is
// built per request and never stored.
type ConversionResult struct {
	ID              string
	Description     string
	Date            time.Time
	OriginalAmount  decimal.Decimal
	Currency        string
	ExchangeRate    decimal.Decimal
	ConvertedAmount decimal.Decimal
	RateDate        time.Time
}

// ConversionService converts transaction amounts using the applicable exchange rate
type ConversionService struct {
	rates   repository.ExchangeRateRepository
	logger  logger.Logger
	metrics *metrics.Metrics
}

// NewConversionService creates a new conversion service
func NewConversionService(rates repository.ExchangeRateRepository, log logger.Logger, m *metrics.Metrics) *ConversionService {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &ConversionService{
		rates:   rates,
		logger:  log,
		metrics: m,
	}
}

// Convert resolves the rate for currency on the transaction date and applies
// it to the transaction amount. Every failure is reported as
// apperr.ConversionFailed wrapping the resolver's error.
func (s *ConversionService) Convert(ctx context.Context, tx *entity.Transaction, currency string) (*ConversionResult, error) {
	const op = "ConversionService.Convert"
	requestID := middleware.GetRequestID(ctx)

	rate, err := s.rates.FindRate(ctx, currency, tx.Date())
	if err != nil {
		fields := map[string]interface{}{
			"request_id": requestID,
			"id":         tx.ID(),
			"currency":   currency,
			"date":       tx.Date().Format("2006-01-02"),
			"error":      err.Error(),
		}

		if apperr.KindOf(err) == apperr.NotFound {
			s.metrics.ConversionsTotal.WithLabelValues(conversionNoRate).Inc()
			s.logger.Warn("No exchange rate available", fields)
			return nil, apperr.E(apperr.ConversionFailed, op,
				"no exchange rate available within 6 months of the transaction date", err)
		}

		s.metrics.ConversionsTotal.WithLabelValues(conversionError).Inc()
		s.logger.Error("Failed to get exchange rate", fields)
		return nil, apperr.E(apperr.ConversionFailed, op,
			"error retrieving exchange rate from the Treasury", err)
	}

	converted := entity.RoundAmount(tx.Amount().Mul(rate.Rate))

	s.metrics.ConversionsTotal.WithLabelValues(conversionSuccess).Inc()
	s.logger.Info("Conversion completed", map[string]interface{}{
		"request_id":       requestID,
		"id":               tx.ID(),
		"currency":         currency,
		"original_amount":  tx.Amount().StringFixed(2),
		"exchange_rate":    rate.Rate.String(),
		"converted_amount": converted.StringFixed(2),
		"rate_date":        rate.Date.Format("2006-01-02"),
	})

	return &ConversionResult{
		ID:              tx.ID(),
		Description:     tx.Description(),
		Date:            tx.Date(),
		OriginalAmount:  tx.Amount(),
		Currency:        currency,
		ExchangeRate:    rate.Rate,
		ConvertedAmount: converted,
		RateDate:        rate.Date,
	}, nil
}
