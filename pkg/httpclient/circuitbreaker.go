package httpclient

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Downstream services the storefront calls through a breaker.
const (
	DownstreamPricing = "pricing"
	DownstreamOrders  = "orders"
)

// Call outcomes recorded per downstream.
const (
	OutcomeOK             = "ok"
	OutcomeClientError    = "client_error"
	OutcomeServerError    = "server_error"
	OutcomeTransportError = "transport_error"
	OutcomeRejected       = "rejected"
)

// CircuitBreakerConfig holds configuration for the circuit breaker.
type CircuitBreakerConfig struct {
	// Name identifies this breaker in logs and gobreaker state changes.
	Name string

	// Downstream labels metrics with the service behind the breaker.
	// Defaults to Name.
	Downstream string

	// MaxRequests is the number of trial requests let through while half-open.
	// 0 means 1.
	MaxRequests uint32

	// Interval clears the closed-state counts. 0 never clears them.
	Interval time.Duration

	// Timeout is how long the breaker stays open before moving to half-open.
	Timeout time.Duration

	// FailureRatio trips the breaker once failures/requests reaches it.
	FailureRatio float64

	// MinRequests must be seen before FailureRatio is evaluated.
	MinRequests uint32
}

// DefaultCircuitBreakerConfig returns the defaults used for both downstreams.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:         name,
		Downstream:   name,
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// FallbackFunc replaces ErrCircuitOpen with a substitute response or error.
type FallbackFunc func(ctx context.Context, err error) (*http.Response, error)

var (
	circuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "storefront_circuit_breaker_state",
			Help: "Circuit breaker state per downstream (0=closed, 1=half-open, 2=open)",
		},
		[]string{"breaker", "downstream"},
	)

	circuitBreakerFallbackTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_circuit_breaker_fallback_invoked_total",
			Help: "Calls answered by the fallback because the breaker was open",
		},
		[]string{"breaker", "downstream"},
	)

	downstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_downstream_calls_total",
			Help: "Calls to pricing and order services by outcome",
		},
		[]string{"downstream", "outcome"},
	)
)

func init() {
	prometheus.MustRegister(circuitBreakerState, circuitBreakerFallbackTotal, downstreamCallsTotal)
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// CircuitBreakerClient wraps a Client with circuit breaker protection for
// one downstream service.
type CircuitBreakerClient struct {
	client     *Client
	breaker    *gobreaker.CircuitBreaker[*http.Response]
	logger     *slog.Logger
	fallback   FallbackFunc
	name       string
	downstream string
}

// NewCircuitBreakerClient wraps an existing HTTP client with a circuit breaker.
func NewCircuitBreakerClient(client *Client, cbCfg CircuitBreakerConfig, logger *slog.Logger) *CircuitBreakerClient {
	downstream := cbCfg.Downstream
	if downstream == "" {
		downstream = cbCfg.Name
	}
	state := circuitBreakerState.WithLabelValues(cbCfg.Name, downstream)

	settings := gobreaker.Settings{
		Name:        cbCfg.Name,
		MaxRequests: cbCfg.MaxRequests,
		Interval:    cbCfg.Interval,
		Timeout:     cbCfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cbCfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cbCfg.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("downstream", downstream),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			state.Set(stateToFloat(to))
		},
	}
	state.Set(0)

	return &CircuitBreakerClient{
		client:     client,
		breaker:    gobreaker.NewCircuitBreaker[*http.Response](settings),
		logger:     logger,
		name:       cbCfg.Name,
		downstream: downstream,
	}
}

// WithFallback returns a copy whose open-circuit rejections go through fn.
func (c *CircuitBreakerClient) WithFallback(fn FallbackFunc) *CircuitBreakerClient {
	cpy := *c
	cpy.fallback = fn
	return &cpy
}

// Downstream returns the service label of this client.
func (c *CircuitBreakerClient) Downstream() string {
	return c.downstream
}

// ErrCircuitOpen is returned when the circuit breaker is open and rejects the request.
var ErrCircuitOpen = gobreaker.ErrOpenState

// ServerError is returned for a 5xx response, which the breaker counts as a
// failure. The body has already been read and closed.
type ServerError struct {
	StatusCode int
	Body       string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error %d: %s", e.StatusCode, e.Body)
}

// Do executes req through the breaker. A 4xx response is returned as is and
// does not count against the downstream.
func (c *CircuitBreakerClient) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.breaker.Execute(func() (*http.Response, error) {
		return c.call(ctx, req)
	})
	if err == nil {
		return resp, nil
	}
	if !errors.Is(err, ErrCircuitOpen) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, err
	}

	c.record(OutcomeRejected)
	if c.fallback == nil {
		return nil, err
	}
	circuitBreakerFallbackTotal.WithLabelValues(c.name, c.downstream).Inc()
	c.logger.WarnContext(ctx, "circuit breaker open, invoking fallback",
		slog.String("breaker", c.name),
		slog.String("downstream", c.downstream),
	)
	return c.fallback(ctx, err)
}

func (c *CircuitBreakerClient) call(ctx context.Context, req *http.Request) (*http.Response, error) {
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		c.record(OutcomeTransportError)
		return nil, err
	}
	if resp.StatusCode >= 500 {
		body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if err != nil {
			body = []byte{}
		}
		_ = resp.Body.Close()
		c.record(OutcomeServerError)
		return nil, &ServerError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	if resp.StatusCode >= 400 {
		c.record(OutcomeClientError)
	} else {
		c.record(OutcomeOK)
	}
	return resp, nil
}

func (c *CircuitBreakerClient) record(outcome string) {
	downstreamCallsTotal.WithLabelValues(c.downstream, outcome).Inc()
}

// Get performs an HTTP GET request through the circuit breaker.
func (c *CircuitBreakerClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create GET request: %w", err)
	}
	return c.Do(ctx, req)
}

// Post performs an HTTP POST request through the circuit breaker. It is not
// retried by the underlying client.
func (c *CircuitBreakerClient) Post(ctx context.Context, url string, contentType string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("create POST request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	return c.Do(ctx, req)
}

// State returns the current state of the circuit breaker.
func (c *CircuitBreakerClient) State() gobreaker.State {
	return c.breaker.State()
}
