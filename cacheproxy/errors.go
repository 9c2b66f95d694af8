package cacheproxy

import (
	"errors"
	"fmt"
)

var (
	// ErrOffline is returned when a request misses the cache, the network
	// is unreachable and no navigation fallback applies.
	ErrOffline = errors.New("offline")

	// ErrNotIntercepted tells the caller to send the request to the network
	// itself: it is not a GET, or no generation is active yet.
	ErrNotIntercepted = errors.New("request not intercepted")
)

// PhaseError is returned when a lifecycle step runs out of order.
type PhaseError struct {
	Op    string
	Phase Phase
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("cannot %s cache generation in phase %s", e.Op, e.Phase)
}
