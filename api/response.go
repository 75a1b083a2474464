// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"encoding/json"
	"net/http"
)

// Response is the settled result of an API call.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Decode unmarshals the JSON response body into v.
func (r *Response) Decode(v any) error {
	return json.Unmarshal(r.Body, v)
}

// classify turns a transport-successful exchange into a settled result.
// Within 2xx only the body shape can downgrade success to failure: a bare
// string body, or a JSON object with a truthy "error" field, rejects.
func classify(status int, header http.Header, body []byte) (*Response, error) {
	if status < 200 || status > 299 {
		return nil, &TransportError{Status: status, Body: body}
	}

	res := &Response{Status: status, Header: header, Body: body}
	if len(body) == 0 {
		return res, nil
	}

	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		// Not JSON at all: treat the raw body as a string message.
		return nil, &ApplicationError{Message: string(body)}
	}

	switch d := decoded.(type) {
	case string:
		return nil, &ApplicationError{Message: d}
	case map[string]any:
		if truthy(d["error"]) {
			msg, _ := d["message"].(string)
			return nil, &ApplicationError{Message: msg, Payload: d}
		}
	}
	return res, nil
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case string:
		return t != ""
	case float64:
		return t != 0
	default:
		return true
	}
}
