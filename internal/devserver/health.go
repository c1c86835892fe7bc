package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// HealthPath is the readiness endpoint every dev server exposes.
const HealthPath = "/api/v1/health"

// ErrHealthTimeout reports that the server never became healthy within
// the polling budget. It is distinct from per-probe connection errors
// so callers can tell "never came up" apart from "crashed immediately".
var ErrHealthTimeout = errors.New("dev server did not become healthy in time")

// HealthChecker polls a dev server's health endpoint until it responds
// successfully or the budget elapses.
type HealthChecker struct {
	Client   *http.Client
	Interval time.Duration
	Budget   time.Duration
}

func (h HealthChecker) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return &http.Client{Timeout: time.Second}
}

// Wait blocks until baseURL answers its health endpoint with a success
// status, the budget elapses (ErrHealthTimeout), or ctx is cancelled.
func (h HealthChecker) Wait(ctx context.Context, baseURL string) error {
	interval := h.Interval
	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	budget := h.Budget
	if budget <= 0 {
		budget = 10 * time.Second
	}

	deadline := time.Now().Add(budget)
	client := h.client()
	for {
		if Probe(ctx, client, baseURL) {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w (budget %s)", ErrHealthTimeout, budget)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
}

// Probe issues one health request. Any connection error, timeout or
// non-success status reads identically as "not yet healthy".
func Probe(ctx context.Context, client *http.Client, baseURL string) bool {
	if client == nil {
		client = &http.Client{Timeout: time.Second}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+HealthPath, nil)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
