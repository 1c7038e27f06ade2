package errors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAPIError_Error(t *testing.T) {
	tests := []struct {
		name     string
		apiError *APIError
		want     string
	}{
		{"simple message", New(http.StatusBadRequest, "INVALID_REQUEST", "Invalid request format"), "Invalid request format"},
		{"empty message", &APIError{StatusCode: http.StatusInternalServerError}, ""},
		{"with details", NewWithDetails(http.StatusNotFound, "NOT_FOUND", "session not found", "abc"), "session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.apiError.Error())
		})
	}
}

func TestPredefinedErrors(t *testing.T) {
	tests := []struct {
		err        *APIError
		wantStatus int
		wantCode   string
	}{
		{ErrInvalidRequest, http.StatusBadRequest, "INVALID_REQUEST"},
		{ErrMissingFile, http.StatusBadRequest, "MISSING_FILE"},
		{ErrPayloadTooLarge, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE"},
		{ErrNotMultipart, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE"},
		{ErrRateLimitExceeded, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED"},
	}

	for _, tt := range tests {
		t.Run(tt.wantCode, func(t *testing.T) {
			assert.Equal(t, tt.wantStatus, tt.err.StatusCode)
			assert.Equal(t, tt.wantCode, tt.err.ErrorCode)
			assert.NotEmpty(t, tt.err.Message)
		})
	}
}

func TestHelperConstructors(t *testing.T) {
	t.Run("invalid request keeps cause", func(t *testing.T) {
		err := InvalidRequestWithError(errors.New("unexpected EOF"))
		assert.Equal(t, http.StatusBadRequest, err.StatusCode)
		assert.Equal(t, "unexpected EOF", err.Details)
	})

	t.Run("validation carries the field", func(t *testing.T) {
		err := ErrValidation("format", "must be one of csv xlsx")
		assert.Equal(t, ValidationError{Field: "format", Message: "must be one of csv xlsx"}, err.Details)
	})

	t.Run("multiple validation errors", func(t *testing.T) {
		err := NewValidationErrors([]ValidationError{
			{Field: "format", Message: "required"},
			{Field: "filters", Message: "unknown column"},
		})
		details, ok := err.Details.(ValidationErrors)
		require.True(t, ok)
		assert.Len(t, details.Errors, 2)
	})
}
