// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"github.com/google/uuid"
)

// Envelope is the per-call bundle carried through the dispatch pipeline.
// It is owned by the call that created it and is discarded once the call
// settles; the client never retains a reference.
type Envelope struct {
	// ID identifies the request in logs and the X-Request-ID header.
	ID string
	// Options is the merged request description. Hooks may mutate it
	// before dispatch.
	Options Options
	// BaseURL overrides the client's base URL once a logical name has
	// been resolved through the directory.
	BaseURL string

	onSuccess []func(*Response)
}

func newEnvelope(opts Options) *Envelope {
	return &Envelope{
		ID:      uuid.NewString(),
		Options: opts,
	}
}

// OnSuccess registers a callback invoked after the call settles
// successfully. Hooks use this for post-settlement work such as
// capturing a freshly issued token.
func (e *Envelope) OnSuccess(fn func(*Response)) {
	e.onSuccess = append(e.onSuccess, fn)
}

func (e *Envelope) settleSuccess(res *Response) {
	for _, fn := range e.onSuccess {
		fn(res)
	}
}
