package events

import "time"

// PermissionCheck is emitted after each permission check of a gated field.
// Err is set when the check itself failed; Allowed is false in that case.
type PermissionCheck struct {
	ObjectType string
	Field      string
	Permission string
	Mode       string
	Allowed    bool
	Err        error
	Duration   time.Duration
}
