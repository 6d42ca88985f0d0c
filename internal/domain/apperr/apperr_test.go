package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	t.Run("Plain error is unknown", func(t *testing.T) {
		assert.Equal(t, Unknown, KindOf(errors.New("boom")))
		assert.Equal(t, Unknown, KindOf(nil))
	})

	t.Run("Wrapped kind survives fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("transaction abc: %w", E(NotFound, "FindByID", "transaction not found", nil))
		assert.Equal(t, NotFound, KindOf(err))
		assert.True(t, errors.Is(err, ErrNotFound))
		assert.False(t, errors.Is(err, ErrValidation))
	})

	t.Run("Outermost kind wins", func(t *testing.T) {
		cause := E(RateLookup, "FetchRates", "treasury unavailable", errors.New("dial tcp: timeout"))
		err := E(ConversionFailed, "Convert", "error retrieving exchange rate", cause)

		assert.Equal(t, ConversionFailed, KindOf(err))
		assert.True(t, errors.Is(err, ErrConversionFailed))
		assert.True(t, errors.Is(err, ErrRateLookup))
	})
}

func TestErrorMessage(t *testing.T) {
	err := E(Storage, "Store", "failed to store transaction", errors.New("disk full"))
	assert.Equal(t, "Store: failed to store transaction: disk full", err.Error())
	assert.Equal(t, "failed to store transaction", MessageOf(err, "fallback"))
	assert.Equal(t, "fallback", MessageOf(errors.New("x"), "fallback"))

	bare := &Error{Kind: NotFound}
	assert.Equal(t, "not_found", bare.Error())
}
