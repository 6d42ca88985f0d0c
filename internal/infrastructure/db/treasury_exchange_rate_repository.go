package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/damon-houk/purchase-conversion-service/internal/domain/apperr"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/entity"
	"github.com/damon-houk/purchase-conversion-service/internal/domain/service"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/logger"
	"github.com/damon-houk/purchase-conversion-service/internal/infrastructure/metrics"
	"github.com/shopspring/decimal"
)

// LookbackMonths is how far before the reference date a rate may be recorded
const LookbackMonths = 6

const dateLayout = "2006-01-02"

// Reasons a provider record is discarded
const (
	skipInvalidDate      = "invalid_date"
	skipInvalidRate      = "invalid_rate"
	skipCurrencyMismatch = "currency_mismatch"
	skipAfterReference   = "after_reference"
	skipBeforeWindow     = "before_window"
)

// TreasuryExchangeRateRepository resolves the rate applicable on a date from
// the records a RateProvider returns for the lookback window
type TreasuryExchangeRateRepository struct {
	provider service.RateProvider
	logger   logger.Logger
	metrics  *metrics.Metrics
}

// NewTreasuryExchangeRateRepository creates a new repository for exchange rates
func NewTreasuryExchangeRateRepository(provider service.RateProvider, log logger.Logger, m *metrics.Metrics) *TreasuryExchangeRateRepository {
	if log == nil {
		log = logger.NewNop()
	}
	if m == nil {
		m = metrics.New(nil)
	}

	return &TreasuryExchangeRateRepository{
		provider: provider,
		logger:   log,
		metrics:  m,
	}
}

// CalendarDate drops the time of day, keeping the date as seen in t's location
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WindowStart returns the first day of the lookback window ending on ref.
// When the target month is shorter, the day is clamped to its last day, so
// 31 August resolves to the end of February rather than early March.
func WindowStart(ref time.Time) time.Time {
	y, m, d := CalendarDate(ref).Date()

	first := time.Date(y, m-LookbackMonths, 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if d > lastDay {
		d = lastDay
	}

	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, time.UTC)
}

// FindRate returns the most recent rate for currency recorded within
// [WindowStart(date), date]. When several records share that date the first
// one in provider order wins.
func (r *TreasuryExchangeRateRepository) FindRate(ctx context.Context, currency string, date time.Time) (*entity.ExchangeRate, error) {
	const op = "TreasuryExchangeRateRepository.FindRate"
	start := time.Now()

	ref := CalendarDate(date)
	from := WindowStart(ref)

	fields := map[string]interface{}{
		"currency": currency,
		"date":     ref.Format(dateLayout),
		"from":     from.Format(dateLayout),
	}
	r.logger.Debug("Finding exchange rate", fields)

	records, err := r.provider.FetchRates(ctx, currency, from, ref)
	if err != nil {
		r.observe(metrics.OutcomeError, start)
		r.logger.Error("Failed to retrieve exchange rates", withField(fields, "error", err.Error()))

		if apperr.KindOf(err) == apperr.Unknown {
			err = apperr.E(apperr.RateLookup, op, "exchange rate service unavailable", err)
		}
		return nil, fmt.Errorf("failed to retrieve exchange rate: %w", err)
	}

	var best *entity.ExchangeRate
	for i, rec := range records {
		quote, reason := r.parseRecord(rec, currency)
		if reason == "" {
			switch {
			case quote.Date.After(ref):
				reason = skipAfterReference
			case quote.Date.Before(from):
				reason = skipBeforeWindow
			}
		}
		if reason != "" {
			r.skip(reason, i, rec, fields)
			continue
		}

		if best == nil || quote.Date.After(best.Date) {
			best = quote
		}
	}

	if best == nil {
		r.observe(metrics.OutcomeNotFound, start)
		r.logger.Info("No exchange rate in lookback window", withField(fields, "records", len(records)))
		return nil, apperr.E(apperr.NotFound, op,
			fmt.Sprintf("no exchange rate available within %d months of %s for currency %s",
				LookbackMonths, ref.Format(dateLayout), currency), nil)
	}

	r.observe(metrics.OutcomeFound, start)
	r.logger.Info("Exchange rate found", withFields(fields, map[string]interface{}{
		"rate":      best.Rate.String(),
		"rate_date": best.Date.Format(dateLayout),
	}))

	return best, nil
}

func (r *TreasuryExchangeRateRepository) parseRecord(rec entity.RateRecord, currency string) (*entity.ExchangeRate, string) {
	if rec.Currency != "" && !strings.EqualFold(strings.TrimSpace(rec.Currency), strings.TrimSpace(currency)) {
		return nil, skipCurrencyMismatch
	}

	recordDate, err := time.Parse(dateLayout, strings.TrimSpace(rec.RecordDate))
	if err != nil {
		return nil, skipInvalidDate
	}

	rate, err := decimal.NewFromString(strings.TrimSpace(rec.ExchangeRate))
	if err != nil || !rate.IsPositive() {
		return nil, skipInvalidRate
	}

	return &entity.ExchangeRate{
		Currency: currency,
		Date:     recordDate,
		Rate:     rate,
	}, ""
}

func (r *TreasuryExchangeRateRepository) skip(reason string, index int, rec entity.RateRecord, fields map[string]interface{}) {
	r.metrics.RateRecordsSkippedTotal.WithLabelValues(reason).Inc()

	log := r.logger.Debug
	if reason == skipInvalidDate || reason == skipInvalidRate {
		log = r.logger.Warn
	}
	log("Skipping exchange rate record", withFields(fields, map[string]interface{}{
		"reason":        reason,
		"index":         index,
		"record_date":   rec.RecordDate,
		"exchange_rate": rec.ExchangeRate,
	}))
}

func (r *TreasuryExchangeRateRepository) observe(outcome string, start time.Time) {
	r.metrics.RateLookupsTotal.WithLabelValues(outcome).Inc()
	r.metrics.RateLookupDuration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func withField(fields map[string]interface{}, key string, value interface{}) map[string]interface{} {
	return withFields(fields, map[string]interface{}{key: value})
}

func withFields(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
