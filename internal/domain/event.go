package domain

import "time"

// RequestInfo describes the HTTP request a security event was raised in.
type RequestInfo struct {
	Method    string
	URL       string
	UserAgent string
	RemoteIP  string
	RequestID string
}

// SecurityEvent is a best-effort audit record.
type SecurityEvent struct {
	Type    string
	Fields  map[string]any
	Request RequestInfo
	At      time.Time
}

// Metric is a single sample sent to the metric sinks.
type Metric struct {
	Name   string
	Value  float64
	Labels map[string]string
	At     time.Time
}
