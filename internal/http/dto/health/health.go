// Package health contiene los DTOs de readiness.
package health

import "time"

type HealthStatus struct {
	Status  string `json:"status"` // ok | error | disabled
	Message string `json:"message,omitempty"`
}

type HealthResponse struct {
	Status     string                  `json:"status"` // ready | degraded | unavailable
	Version    string                  `json:"version,omitempty"`
	KeyID      string                  `json:"key_id,omitempty"`
	Components map[string]HealthStatus `json:"components"`
	Inflight   int                     `json:"inflight_reconciliations"`
	Timestamp  time.Time               `json:"timestamp"`
}
