package service

import (
	"context"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
)

// RateProvider defines the interface for fetching raw rate records from a
// remote exchange rate source
type RateProvider interface {
	// FetchRates returns the records for currency whose record date falls in
	// [from, to], most recent first. An empty slice is not an error.
	FetchRates(ctx context.Context, currency string, from, to time.Time) ([]entity.RateRecord, error)
}
