// SPDX-License-Identifier: BSD-3-Clause

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldRequestID = "request_id"
	FieldComponent = "component"

	// Request fields
	FieldMethod   = "method"
	FieldURL      = "url"
	FieldPath     = "path"
	FieldBaseURL  = "base_url"
	FieldEndpoint = "endpoint"
	FieldStatus   = "status"

	// Channel fields
	FieldChannel = "channel"
	FieldEvent   = "event"
)
