package middleware

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"

	apierrors "issuepulse/internal/errors"
	"issuepulse/pkg/contracts/domain"
)

// DefaultMaxJSONBody bounds JSON request bodies; uploads have their own limit
const DefaultMaxJSONBody = 1 << 20

// ValidationMiddleware provides request validation using struct tags
type ValidationMiddleware struct {
	validator    *validator.Validate
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
	maxBodySize  int64
}

// NewValidationMiddleware creates a new validation middleware
func NewValidationMiddleware(logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *ValidationMiddleware {
	return &ValidationMiddleware{
		validator:    NewValidator(),
		logger:       logger.With(slog.String("component", "validation_middleware")),
		errorHandler: errorHandler,
		maxBodySize:  DefaultMaxJSONBody,
	}
}

// NewValidator returns a validator with the dashboard's custom tags registered
// and JSON names used in field paths.
func NewValidator() *validator.Validate {
	v := validator.New()

	v.RegisterValidation("filtercolumn", isFilterColumn)
	v.RegisterValidation("filename", isValidFilename)

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return v
}

// ValidateRequest rejects oversized or malformed JSON bodies before they reach handlers
func (m *ValidationMiddleware) ValidateRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		if r.ContentLength > m.maxBodySize {
			m.errorHandler.HandleError(w, r, apierrors.NewWithDetails(
				http.StatusRequestEntityTooLarge,
				"PAYLOAD_TOO_LARGE",
				"Request body exceeds maximum allowed size",
				map[string]interface{}{
					"max_size": m.maxBodySize,
					"size":     r.ContentLength,
				},
			))
			return
		}

		if r.Body != nil && r.ContentLength != 0 {
			body, err := io.ReadAll(io.LimitReader(r.Body, m.maxBodySize+1))
			if err != nil {
				m.logger.ErrorContext(r.Context(), "failed to read request body",
					slog.String("error", err.Error()),
					slog.String("request_id", GetReqID(r.Context())),
				)
				m.errorHandler.HandleError(w, r, apierrors.InvalidRequestWithError(err))
				return
			}
			if int64(len(body)) > m.maxBodySize {
				m.errorHandler.HandleError(w, r, apierrors.ErrPayloadTooLarge)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))

			if len(bytes.TrimSpace(body)) > 0 && !json.Valid(body) {
				m.errorHandler.HandleError(w, r, apierrors.ErrInvalidRequest)
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

// DecodeAndValidate decodes an optional JSON body into v and validates it.
// An empty body leaves v at its zero value.
func (m *ValidationMiddleware) DecodeAndValidate(r *http.Request, v interface{}) error {
	if r.Body != nil {
		if err := render.DecodeJSON(r.Body, v); err != nil && !errors.Is(err, io.EOF) {
			return apierrors.InvalidRequestWithError(err)
		}
	}
	return m.ValidateStruct(v)
}

// ValidateStruct validates a struct and returns validation errors
func (m *ValidationMiddleware) ValidateStruct(v interface{}) error {
	err := m.validator.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return apierrors.InvalidRequestWithError(err)
	}

	validationErrors := make([]apierrors.ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		validationErrors = append(validationErrors, apierrors.ValidationError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return apierrors.NewValidationErrors(validationErrors)
}

// ValidateFilename checks an uploaded file name before it is parsed
func (m *ValidationMiddleware) ValidateFilename(name string) error {
	if err := m.validator.Var(name, "required,filename"); err != nil {
		return apierrors.ErrValidation("file", fmt.Sprintf("file name %q is not acceptable", name))
	}
	return nil
}

// formatValidationError formats validation error messages
func formatValidationError(err validator.FieldError) string {
	field := err.Field()
	param := err.Param()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(param, " ", ", "))
	case "filtercolumn":
		return fmt.Sprintf("%s is not a filterable column (want one of: %s)", field, filterColumnList())
	case "filename":
		return fmt.Sprintf("%s must be a plain file name with an extension", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, param)
	default:
		return fmt.Sprintf("%s failed %s validation", field, err.Tag())
	}
}

func filterColumnList() string {
	names := make([]string, len(domain.FilterColumns))
	for i, c := range domain.FilterColumns {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}

// isFilterColumn validates a filter map key
func isFilterColumn(fl validator.FieldLevel) bool {
	return domain.IsFilterColumn(fl.Field().String())
}

// isValidFilename accepts a bare file name with an extension
func isValidFilename(fl validator.FieldLevel) bool {
	filename := fl.Field().String()
	if filename == "" || len(filename) > 255 {
		return false
	}
	if strings.Contains(filename, "..") || strings.ContainsAny(filename, `/\`) {
		return false
	}
	return filepath.Ext(filename) != ""
}

// QueryParamValidator validates query parameters
type QueryParamValidator struct {
	errorHandler *apierrors.ErrorHandler
}

// NewQueryParamValidator creates a new query parameter validator
func NewQueryParamValidator(errorHandler *apierrors.ErrorHandler) *QueryParamValidator {
	return &QueryParamValidator{errorHandler: errorHandler}
}

// ValidateInt reads an integer query parameter within [min, max].
// On failure it writes the problem response and returns false.
func (v *QueryParamValidator) ValidateInt(w http.ResponseWriter, r *http.Request, param string, min, max int, defaultValue int) (int, bool) {
	value := r.URL.Query().Get(param)
	if value == "" {
		return defaultValue, true
	}

	var intValue int
	if _, err := fmt.Sscanf(value, "%d", &intValue); err != nil {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be a valid integer", param)))
		return 0, false
	}

	if intValue < min || intValue > max {
		v.errorHandler.HandleError(w, r, apierrors.ErrValidation(param, fmt.Sprintf("%s must be between %d and %d", param, min, max)))
		return 0, false
	}

	return intValue, true
}
