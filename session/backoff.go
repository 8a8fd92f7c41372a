/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"math"
	"time"
)

// ReconnectPolicy controls redialing after the socket drops. The zero
// value never reconnects.
type ReconnectPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
}

// DefaultReconnect retries five times starting at one second, doubling.
func DefaultReconnect() ReconnectPolicy {
	return ReconnectPolicy{
		MaxAttempts: 5,
		BaseDelay:   time.Second,
	}
}

func (p ReconnectPolicy) allows(attempt int) bool {
	return p.MaxAttempts > 0 && attempt <= p.MaxAttempts
}

// Delay returns the wait before reconnect attempt N (1-based).
func (p ReconnectPolicy) Delay(attempt int) time.Duration {
	if attempt <= 1 || p.BaseDelay <= 0 {
		return p.BaseDelay
	}

	return time.Duration(float64(p.BaseDelay) * math.Pow(2, float64(attempt-1)))
}
