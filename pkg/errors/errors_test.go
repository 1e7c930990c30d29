package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	appErr := ErrValidation("order is not paid")
	assert.Equal(t, "VALIDATION_ERROR: order is not paid", appErr.Error())

	wrapped := appErr.Wrap(errors.New("field check failed"))
	assert.Equal(t, "VALIDATION_ERROR: order is not paid: field check failed", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	appErr := ErrInternal("").Wrap(cause)

	assert.ErrorIs(t, appErr, cause)
}

func TestAsAppError(t *testing.T) {
	appErr := ErrConflict("order already exists")
	wrapped := fmt.Errorf("committing order: %w", appErr)

	found, ok := AsAppError(wrapped)
	require.True(t, ok)
	assert.Equal(t, CodeConflict, found.Code)

	_, ok = AsAppError(errors.New("plain"))
	assert.False(t, ok)
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "insufficient stock",
			err:        errors.New("insufficient stock for product 501"),
			wantCode:   CodeUnprocessable,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "availability failure",
			err:        errors.New("not enough inventory"),
			wantCode:   CodeUnprocessable,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown product",
			err:        errors.New("product 999 not found"),
			wantCode:   CodeNotFound,
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "duplicate order",
			err:        errors.New("order already exists: order 9001"),
			wantCode:   CodeConflict,
			wantStatus: http.StatusConflict,
		},
		{
			name:       "unpaid order",
			err:        errors.New("order is not paid"),
			wantCode:   CodeValidationError,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "incomplete customer",
			err:        errors.New("customer information is incomplete"),
			wantCode:   CodeValidationError,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid order id",
			err:        errors.New("invalid order id"),
			wantCode:   CodeValidationError,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "timeout",
			err:        errors.New("context deadline exceeded"),
			wantCode:   CodeTimeout,
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "unrecognized",
			err:        errors.New("connection reset by peer"),
			wantCode:   CodeInternalError,
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := MapDomainError(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.wantCode, appErr.Code)
			assert.Equal(t, tt.wantStatus, appErr.HTTPStatus)
			assert.ErrorIs(t, appErr, tt.err)
		})
	}
}

func TestMapDomainError_PassesThroughAppError(t *testing.T) {
	appErr := ErrServiceUnavailable("storefront")

	mapped := MapDomainError(fmt.Errorf("sync: %w", appErr))

	assert.Same(t, appErr, mapped)
}

func TestMapDomainError_Nil(t *testing.T) {
	assert.Nil(t, MapDomainError(nil))
}
