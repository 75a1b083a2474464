// SPDX-License-Identifier: BSD-3-Clause

package api

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// Options describes one API call. Exactly one of URL, Path or Name
// determines the final request URL: URL is used verbatim, Path is joined
// onto the client's base URL, and Name is resolved through the endpoint
// directory.
type Options struct {
	Method      string
	URL         string
	Path        string
	Name        string
	Params      map[string]string
	Data        any
	Headers     http.Header
	ContentType string
}

// encodeURLMethods are the verbs whose request data travels in the query
// string instead of the body.
var encodeURLMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// merge layers method, data and caller options over the client defaults.
// Caller keys win over defaults; defaults win over nothing.
func merge(defaults Options, method string, data any, opts Options) (Options, error) {
	out := defaults
	out.Params = cloneParams(defaults.Params)
	out.Headers = defaults.Headers.Clone()
	if out.Headers == nil {
		out.Headers = make(http.Header)
	}
	out.Method = strings.ToUpper(method)

	if data != nil {
		if encodeURLMethods[out.Method] {
			params, err := toParams(data)
			if err != nil {
				return Options{}, err
			}
			for k, v := range params {
				out.Params[k] = v
			}
		} else {
			out.Data = data
		}
	}

	if opts.Method != "" {
		out.Method = strings.ToUpper(opts.Method)
	}
	if opts.URL != "" {
		out.URL = opts.URL
	}
	if opts.Path != "" {
		out.Path = opts.Path
	}
	if opts.Name != "" {
		out.Name = opts.Name
	}
	if opts.ContentType != "" {
		out.ContentType = opts.ContentType
	}
	if opts.Data != nil {
		out.Data = opts.Data
	}
	for k, v := range opts.Params {
		out.Params[k] = v
	}
	for k, vs := range opts.Headers {
		out.Headers[k] = vs
	}
	return out, nil
}

func cloneParams(p map[string]string) map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func toParams(data any) (map[string]string, error) {
	switch d := data.(type) {
	case map[string]string:
		return d, nil
	case url.Values:
		out := make(map[string]string, len(d))
		for k := range d {
			out[k] = d.Get(k)
		}
		return out, nil
	case map[string]any:
		out := make(map[string]string, len(d))
		for k, v := range d {
			out[k] = fmt.Sprint(v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("api: query data must be a string map, got %T", data)
	}
}

// joinURL concatenates URL fragments, collapsing duplicate slashes while
// keeping a scheme's double slash intact.
func joinURL(bits ...string) string {
	var out string
	for _, bit := range bits {
		if bit == "" {
			continue
		}
		if out != "" {
			bit = strings.TrimLeft(bit, "/")
		}
		bit = strings.TrimRight(bit, "/")
		if bit == "" {
			continue
		}
		if out != "" && !strings.HasSuffix(out, "/") {
			out += "/"
		}
		out += bit
	}
	return out
}
