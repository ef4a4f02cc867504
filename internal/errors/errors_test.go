package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	plain := New(ErrCodeAccessDenied, "access denied")
	assert.Equal(t, "access denied", plain.Error())

	wrapped := Wrap(stderrors.New("redis: connection refused"), ErrCodeServiceUnavailable, "store unreachable")
	assert.Equal(t, "store unreachable: redis: connection refused", wrapped.Error())
}

func TestAppError_Unwrap(t *testing.T) {
	cause := stderrors.New("boom")
	err := Wrap(cause, ErrCodeInternal, "wrapped")

	assert.True(t, stderrors.Is(err, cause))

	var appErr *AppError
	require.True(t, stderrors.As(fmt.Errorf("outer: %w", err), &appErr))
	assert.Equal(t, ErrCodeInternal, appErr.Code)
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "should be nil"))
	assert.Nil(t, Wrapf(nil, ErrCodeInternal, "should be %s", "nil"))
}

func TestCodePredicates(t *testing.T) {
	tests := []struct {
		name string
		err  error
		pred func(error) bool
	}{
		{"access denied", AccessDenied("no"), IsAccessDenied},
		{"token expired", New(ErrCodeTokenExpired, "expired"), IsTokenExpired},
		{"invalid token", New(ErrCodeInvalidToken, "bad"), IsInvalidToken},
		{"session not found", New(ErrCodeSessionNotFound, "gone"), IsSessionNotFound},
		{"rate limited", New(ErrCodeRateLimited, "slow down"), IsRateLimited},
		{"not found", New(ErrCodeNotFound, "missing"), IsNotFound},
		{"conflict", New(ErrCodeConflict, "dup"), IsConflict},
		{"validation", Validation("bad input"), IsValidation},
		{"configuration", Configuration("weak secret"), IsConfiguration},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.pred(tt.err))
			assert.False(t, tt.pred(stderrors.New("unrelated")))
		})
	}
}

func TestCodePredicates_WrappedChain(t *testing.T) {
	err := fmt.Errorf("handler: %w", AccessDenied("blacklisted"))
	assert.True(t, IsAccessDenied(err))
	assert.Equal(t, ErrCodeAccessDenied, GetCode(err))
}

func TestGetCode_NonAppError(t *testing.T) {
	assert.Equal(t, ErrCodeInternal, GetCode(stderrors.New("plain")))
}

func TestValidationField(t *testing.T) {
	err := ValidationField("email", "email is required")
	assert.Equal(t, ErrCodeValidation, err.Code)
	assert.Equal(t, "email", err.Field)
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		code ErrorCode
		want int
	}{
		{ErrCodeInvalidAssertion, http.StatusUnauthorized},
		{ErrCodeTokenExpired, http.StatusUnauthorized},
		{ErrCodeInvalidToken, http.StatusUnauthorized},
		{ErrCodeSessionNotFound, http.StatusUnauthorized},
		{ErrCodeSessionRevoked, http.StatusUnauthorized},
		{ErrCodeIdentityRevoked, http.StatusUnauthorized},
		{ErrCodeEmailNotVerified, http.StatusForbidden},
		{ErrCodeDomainNotAllowed, http.StatusForbidden},
		{ErrCodeAccessDenied, http.StatusForbidden},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeServiceUnavailable, http.StatusServiceUnavailable},
		{ErrCodeValidation, http.StatusBadRequest},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeConfiguration, http.StatusInternalServerError},
		{ErrCodeInternal, http.StatusInternalServerError},
		{ErrorCode("unknown"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.code))
		})
	}
}
