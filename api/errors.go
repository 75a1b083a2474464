// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"errors"
	"fmt"
)

var (
	// Sentinel errors for errors.Is checks at the boundary.
	ErrAuthRequired = errors.New("api: authentication required")
	ErrNotFound     = errors.New("api: resource not found")
	ErrForbidden    = errors.New("api: access forbidden")
	ErrUpstream     = errors.New("api: upstream error (5xx)")
	ErrUnavailable  = errors.New("api: host unreachable or transport failure")
	ErrNoURL        = errors.New("api: url not available")
)

// TransportError reports a failed HTTP exchange: a non-2xx response or a
// network-level failure. Status is zero for pure network failures.
type TransportError struct {
	Status int
	Body   []byte
	Err    error // nested lower-level error (e.g. net.Error)
}

func (e *TransportError) Error() string {
	msg := "api: request failed"
	if e.Status > 0 {
		msg = fmt.Sprintf("%s (HTTP %d)", msg, e.Status)
	}
	if len(e.Body) > 0 {
		msg = fmt.Sprintf("%s: %s", msg, e.Body)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	switch {
	case e.Status == 401:
		return ErrAuthRequired
	case e.Status == 403:
		return ErrForbidden
	case e.Status == 404:
		return ErrNotFound
	case e.Status >= 500:
		return ErrUpstream
	case e.Status == 0:
		return ErrUnavailable
	default:
		return e.Err
	}
}

// ApplicationError reports a 2xx response whose body is shaped like an
// application-level failure: a bare string, or a JSON object carrying a
// truthy "error" field. The transport succeeded; the API did not.
//
// The shape check is a heuristic carried over from the wire protocol: a
// legitimate payload that happens to be a string, or that uses an "error"
// key for something benign, is indistinguishable from a failure envelope.
type ApplicationError struct {
	Message string
	Payload map[string]any
}

func (e *ApplicationError) Error() string {
	if e.Message != "" {
		return "api: application error: " + e.Message
	}
	return "api: application error"
}
