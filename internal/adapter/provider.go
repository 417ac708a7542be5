package adapter

import (
	"fmt"
	"strings"
	"sync"
)

// Endpoints tracks a primary and optional secondary RPC URL for a chain and
// switches between them on provider failures.
type Endpoints struct {
	mu        sync.RWMutex
	primary   string
	secondary string
	current   string
}

// NewEndpoints creates an endpoint set. The primary URL is required.
func NewEndpoints(primary, secondary string) (*Endpoints, error) {
	if primary == "" {
		return nil, fmt.Errorf("primary URL cannot be empty")
	}
	return &Endpoints{
		primary:   primary,
		secondary: secondary,
		current:   primary,
	}, nil
}

// Current returns the currently active RPC endpoint URL.
func (e *Endpoints) Current() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.current
}

// Failover switches to the other endpoint. Returns an error when no
// secondary is configured.
func (e *Endpoints) Failover() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.secondary == "" {
		return ErrProviderUnavailable
	}
	if e.current == e.primary {
		e.current = e.secondary
	} else {
		e.current = e.primary
	}
	return nil
}

// shouldFailover determines if an error warrants switching endpoints.
func shouldFailover(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())

	if strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "429") {
		return true
	}

	if strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") {
		return true
	}

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") {
		return true
	}

	return false
}
