package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
)

// DownstreamErrorResponse is the structured error body returned by the
// pricing and order services.
type DownstreamErrorResponse struct {
	Error *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// ParseResponseError reads the body of a non-2xx response and translates it
// into an AppError. Structured bodies keep their code and message; anything
// else yields a generic error carrying the status and raw body.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, err)
	}

	var downstream DownstreamErrorResponse
	if json.Unmarshal(bodyBytes, &downstream) == nil && downstream.Error != nil {
		return mapDownstreamError(resp.StatusCode, downstream.Error.Code, downstream.Error.Message, serviceName)
	}

	if resp.StatusCode == http.StatusServiceUnavailable {
		return apperrors.ServiceUnavailable(serviceName + " is unavailable")
	}
	return fmt.Errorf("%s returned status %d: %s", serviceName, resp.StatusCode, string(bodyBytes))
}

// TranslateError maps transport-level failures from a CircuitBreakerClient
// to AppErrors: an open breaker or a 503 becomes SERVICE_UNAVAILABLE.
// Other errors are wrapped unchanged.
func TranslateError(err error, serviceName string) error {
	if errors.Is(err, ErrCircuitOpen) {
		return apperrors.ServiceUnavailable(serviceName + " is temporarily unavailable, retry shortly")
	}
	var serverErr *ServerError
	if errors.As(err, &serverErr) && serverErr.StatusCode == http.StatusServiceUnavailable {
		return apperrors.ServiceUnavailable(serviceName + " is unavailable")
	}
	return fmt.Errorf("call %s: %w", serviceName, err)
}

func mapDownstreamError(status int, code, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return apperrors.NotFound(serviceName, message)
	case status == http.StatusBadRequest:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusGone:
		return apperrors.Gone(qualifiedMsg)
	case status == http.StatusUnprocessableEntity:
		return apperrors.Rejected(qualifiedMsg)
	case status == http.StatusTooManyRequests:
		return apperrors.TooManyRequests(qualifiedMsg)
	case status == http.StatusServiceUnavailable:
		return apperrors.ServiceUnavailable(qualifiedMsg)
	case status >= 500:
		return fmt.Errorf("%s server error (%d/%s): %s", serviceName, status, code, message)
	default:
		return &apperrors.AppError{
			Code:    code,
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsClientError reports whether status is a 4xx.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
