// Package client talks to the pricing and order services over HTTP.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	apperrors "github.com/aleber123/nytt-sub001/pkg/errors"
	"github.com/aleber123/nytt-sub001/pkg/httpclient"
)

// CircuitOpenFallback is the fallback for the circuit breaker in front of
// the pricing and order services.
func CircuitOpenFallback(_ context.Context, _ error) (*http.Response, error) {
	return nil, apperrors.ServiceUnavailable("downstream service is temporarily unavailable, please retry after 30 seconds")
}

// HTTPDoer is the interface for executing HTTP requests.
// Both httpclient.Client and httpclient.CircuitBreakerClient satisfy this.
type HTTPDoer interface {
	Do(ctx context.Context, req *http.Request) (*http.Response, error)
}

// do sends req and decodes a 2xx JSON body into out. Transport failures and
// error statuses are translated into AppErrors named after service.
func do(ctx context.Context, doer HTTPDoer, req *http.Request, service string, out any) error {
	resp, err := doer.Do(ctx, req)
	if err != nil {
		return httpclient.TranslateError(err, service)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return httpclient.ParseResponseError(resp, service)
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", service, err)
	}
	return nil
}
