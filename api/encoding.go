// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
)

// Content types accepted for request bodies. JSON is the default.
const (
	ContentTypeJSON      = "application/json"
	ContentTypeForm      = "application/x-www-form-urlencoded"
	ContentTypeMultipart = "multipart/form-data"
)

// encodeBody serialises data according to the declared content type and
// returns the reader plus the final Content-Type header value (multipart
// encoding appends its boundary).
func encodeBody(contentType string, data any) (io.Reader, string, error) {
	if data == nil {
		return nil, "", nil
	}
	switch contentType {
	case "", ContentTypeJSON:
		buf, err := json.Marshal(data)
		if err != nil {
			return nil, "", fmt.Errorf("api: encode json body: %w", err)
		}
		return bytes.NewReader(buf), ContentTypeJSON, nil

	case ContentTypeForm:
		fields, err := toFormFields(data)
		if err != nil {
			return nil, "", err
		}
		values := url.Values{}
		for k, v := range fields {
			values.Set(k, v)
		}
		return strings.NewReader(values.Encode()), ContentTypeForm, nil

	case ContentTypeMultipart:
		fields, err := toFormFields(data)
		if err != nil {
			return nil, "", err
		}
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		for k, v := range fields {
			if err := w.WriteField(k, v); err != nil {
				return nil, "", fmt.Errorf("api: encode multipart body: %w", err)
			}
		}
		if err := w.Close(); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil

	default:
		return nil, "", fmt.Errorf("api: unsupported content type %q", contentType)
	}
}

func toFormFields(data any) (map[string]string, error) {
	switch d := data.(type) {
	case map[string]string:
		return d, nil
	case map[string]any:
		out := make(map[string]string, len(d))
		for k, v := range d {
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	case url.Values:
		out := make(map[string]string, len(d))
		for k := range d {
			out[k] = d.Get(k)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("api: form body must be a string map, got %T", data)
	}
}
