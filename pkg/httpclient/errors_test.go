package httpclient

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

func fakeResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func structured(code, msg string) string {
	return fmt.Sprintf(`{"error":{"code":%q,"message":%q}}`, code, msg)
}

func TestParseResponseError_Structured(t *testing.T) {
	tests := []struct {
		status   int
		sentinel error
		appCode  string
	}{
		{http.StatusNotFound, apperrors.ErrNotFound, "NOT_FOUND"},
		{http.StatusBadRequest, apperrors.ErrInvalidInput, "INVALID_INPUT"},
		{http.StatusConflict, apperrors.ErrConflict, "CONFLICT"},
		{http.StatusUnauthorized, apperrors.ErrUnauthorized, "UNAUTHORIZED"},
		{http.StatusForbidden, apperrors.ErrForbidden, "FORBIDDEN"},
		{http.StatusGone, apperrors.ErrGone, "GONE"},
		{http.StatusUnprocessableEntity, apperrors.ErrRejected, "REJECTED"},
		{http.StatusTooManyRequests, apperrors.ErrTooManyRequests, "TOO_MANY_REQUESTS"},
		{http.StatusServiceUnavailable, apperrors.ErrServiceUnavail, "SERVICE_UNAVAILABLE"},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			err := ParseResponseError(fakeResponse(tt.status, structured("DOWNSTREAM", "missing billing city")), "order-service")

			var appErr *apperrors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.appCode, appErr.Code)
			assert.Equal(t, tt.status, appErr.Status)
			assert.True(t, errors.Is(err, tt.sentinel))
		})
	}
}

func TestParseResponseError_RejectedKeepsServiceMessage(t *testing.T) {
	err := ParseResponseError(fakeResponse(http.StatusUnprocessableEntity, structured("VALIDATION", "invalid recaptcha")), "order-service")
	assert.Contains(t, err.Error(), "order-service: invalid recaptcha")
}

func TestParseResponseError_ServerError(t *testing.T) {
	err := ParseResponseError(fakeResponse(http.StatusBadGateway, structured("UPSTREAM", "bad gateway")), "pricing-service")

	var appErr *apperrors.AppError
	assert.False(t, errors.As(err, &appErr))
	assert.Contains(t, err.Error(), "502")
	assert.Contains(t, err.Error(), "UPSTREAM")
}

func TestParseResponseError_Unstructured(t *testing.T) {
	err := ParseResponseError(fakeResponse(http.StatusTeapot, "<html>nope</html>"), "pricing-service")
	assert.Contains(t, err.Error(), "pricing-service returned status 418")
	assert.Contains(t, err.Error(), "<html>nope</html>")
}

func TestParseResponseError_Unstructured503(t *testing.T) {
	err := ParseResponseError(fakeResponse(http.StatusServiceUnavailable, ""), "pricing-service")
	assert.ErrorIs(t, err, apperrors.ErrServiceUnavail)
}

func TestParseResponseError_DefaultStatusKeepsCode(t *testing.T) {
	err := ParseResponseError(fakeResponse(http.StatusPaymentRequired, structured("PAYMENT_REQUIRED", "prepay")), "order-service")

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "PAYMENT_REQUIRED", appErr.Code)
	assert.Equal(t, http.StatusPaymentRequired, appErr.Status)
}

func TestTranslateError(t *testing.T) {
	assert.ErrorIs(t, TranslateError(ErrCircuitOpen, "pricing-service"), apperrors.ErrServiceUnavail)
	assert.ErrorIs(t, TranslateError(&ServerError{StatusCode: 503}, "pricing-service"), apperrors.ErrServiceUnavail)

	other := TranslateError(&ServerError{StatusCode: 500, Body: "panic"}, "order-service")
	assert.NotErrorIs(t, other, apperrors.ErrServiceUnavail)
	assert.Contains(t, other.Error(), "call order-service")
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(400))
	assert.True(t, IsClientError(499))
	assert.False(t, IsClientError(399))
	assert.False(t, IsClientError(500))
}
