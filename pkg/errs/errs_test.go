package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"dddkit/pkg/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectNotFoundError(t *testing.T) {
	t.Run("without_cause", func(t *testing.T) {
		err := errs.NewObjectNotFoundError("orderId", "abc-123")

		assert.Equal(t, "orderId", err.ParamName)
		assert.Equal(t, "abc-123", err.ID)
		require.NoError(t, err.Cause)
		assert.Equal(t, "object not found: abc-123", err.Error())
	})

	t.Run("with_cause", func(t *testing.T) {
		cause := errors.New("row scan failed")
		err := errs.NewObjectNotFoundErrorWithCause("orderId", "abc-123", cause)

		assert.Equal(t, cause, err.Cause)
		assert.Equal(t,
			"object not found: param is: orderId, ID is: abc-123 (cause: row scan failed)",
			err.Error())
	})
}

func TestValueIsOutOfRangeError(t *testing.T) {
	t.Run("renders_bounds", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("volume", 150, 0, 120)

		assert.Equal(t, "volume", err.ParamName)
		assert.Equal(t, 150, err.Value)
		assert.Equal(t, 0, err.Min)
		assert.Equal(t, 120, err.Max)
		assert.Equal(t,
			"value is invalid: 150 is volume, min value is 0, max value is 120",
			err.Error())
	})

	t.Run("with_cause", func(t *testing.T) {
		cause := errors.New("validation failed")
		err := errs.NewValueIsOutOfRangeErrorWithCause("score", -5, 0, 100, cause)

		assert.Equal(t,
			"value is invalid: -5 is score, min value is 0, max value is 100 (cause: validation failed)",
			err.Error())
	})

	t.Run("value_rendered_on_one_line", func(t *testing.T) {
		err := errs.NewValueIsOutOfRangeError("text", "hello\nworld", 0, 10)

		assert.Contains(t, err.Error(), "hello world")
		assert.NotContains(t, err.Error(), "\n")
	})
}

func TestParamErrorMessages(t *testing.T) {
	cause := errors.New("boom")

	tests := []struct {
		name     string
		err      error
		message  string
		sentinel error
	}{
		{
			name:     "value_is_invalid",
			err:      errs.NewValueIsInvalidError("email"),
			message:  "value is invalid: email",
			sentinel: errs.ErrValueIsInvalid,
		},
		{
			name:     "value_is_invalid_with_cause",
			err:      errs.NewValueIsInvalidErrorWithCause("email", cause),
			message:  "value is invalid: email (cause: boom)",
			sentinel: errs.ErrValueIsInvalid,
		},
		{
			name:     "value_is_required",
			err:      errs.NewValueIsRequiredError("address"),
			message:  "value is required: address",
			sentinel: errs.ErrValueIsRequired,
		},
		{
			name:     "value_is_required_with_cause",
			err:      errs.NewValueIsRequiredErrorWithCause("address", cause),
			message:  "value is required: address (cause: boom)",
			sentinel: errs.ErrValueIsRequired,
		},
		{
			name:     "version_is_invalid",
			err:      errs.NewVersionIsInvalidError("version"),
			message:  "version is invalid: version",
			sentinel: errs.ErrVersionIsInvalid,
		},
		{
			name:     "version_is_invalid_with_cause",
			err:      errs.NewVersionIsInvalidErrorWithCause("version", cause),
			message:  "version is invalid: version (cause: boom)",
			sentinel: errs.ErrVersionIsInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.message, tt.err.Error())
			assert.ErrorIs(t, tt.err, tt.sentinel)
		})
	}
}

func TestSentinelClassification(t *testing.T) {
	t.Run("errors_is_matches_sentinels", func(t *testing.T) {
		require.ErrorIs(t, errs.NewObjectNotFoundError("userId", "123"), errs.ErrObjectNotFound)
		require.ErrorIs(t, errs.NewValueIsOutOfRangeError("age", 150, 0, 120), errs.ErrValueIsOutOfRange)
	})

	t.Run("classification_survives_wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("loading order: %w", errs.NewObjectNotFoundError("orderId", "42"))

		require.ErrorIs(t, wrapped, errs.ErrObjectNotFound)

		var notFound *errs.ObjectNotFoundError
		require.ErrorAs(t, wrapped, &notFound)
		assert.Equal(t, "orderId", notFound.ParamName)
	})

	t.Run("sentinels_do_not_overlap", func(t *testing.T) {
		err := errs.NewValueIsRequiredError("name")

		assert.NotErrorIs(t, err, errs.ErrValueIsInvalid)
		assert.NotErrorIs(t, err, errs.ErrObjectNotFound)
	})
}
