// SPDX-License-Identifier: BSD-3-Clause

package api

import "context"

// Capability is the pluggable strategy pair a client applies to every
// request before dispatch. A plain REST client uses NopCapability; the
// auth package provides a JWT-authenticated variant.
type Capability interface {
	// PrepareRequest adjusts transport options (headers, content type,
	// extra body fields) on the envelope.
	PrepareRequest(ctx context.Context, env *Envelope) error

	// Authenticate attaches credentials to the envelope. A non-nil
	// response short-circuits dispatch and becomes the result of the
	// call; the envelope's success callbacks fire on it as they would
	// on a response from the wire.
	Authenticate(ctx context.Context, env *Envelope) (*Response, error)
}

// NopCapability performs no request preparation and no authentication.
type NopCapability struct{}

// PrepareRequest implements Capability.
func (NopCapability) PrepareRequest(context.Context, *Envelope) error { return nil }

// Authenticate implements Capability.
func (NopCapability) Authenticate(context.Context, *Envelope) (*Response, error) {
	return nil, nil
}
