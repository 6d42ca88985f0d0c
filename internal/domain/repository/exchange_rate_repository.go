package repository

import (
	"context"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
)

// ExchangeRateRepository resolves the exchange rate that applies to a date
type ExchangeRateRepository interface {
	// FindRate returns the most recent rate for currency recorded on or
	// before date and no more than six months earlier. It fails with
	// apperr.NotFound when no such rate exists and apperr.RateLookup when
	// the provider cannot be reached.
	FindRate(ctx context.Context, currency string, date time.Time) (*entity.ExchangeRate, error)
}
