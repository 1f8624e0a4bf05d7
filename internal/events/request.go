// Package events defines the payloads published on the event bus.
package events

import "time"

// RequestStart is published when the GraphQL endpoint accepts an HTTP
// request.
type RequestStart struct {
	RequestID string
	Method    string
	Path      string
}

// RequestFinish is published after the response was written. Subject is the
// authenticated caller, empty for anonymous requests.
type RequestFinish struct {
	RequestID string
	Subject   string
	Status    int
	Duration  time.Duration
}

// OperationStart is published before an operation executes. A batch request
// publishes one pair per operation.
type OperationStart struct {
	RequestID string
	Name      string
	Type      string
}

// OperationFinish carries the outcome of an executed operation.
type OperationFinish struct {
	RequestID string
	Name      string
	Type      string
	Errors    int
	Duration  time.Duration
}
