// SPDX-License-Identifier: BSD-3-Clause

// Package csrf sources the anti-forgery field a lux server expects on
// state-changing requests. The server publishes the field name and value
// in two meta tags on its HTML pages:
//
//	<meta name="csrf-param" content="authenticity_token">
//	<meta name="csrf-token" content="...opaque value...">
//
// The pair is read once at startup and merged into the body of every
// non-exempt request.
package csrf

import (
	"context"
	"fmt"
	"net/http"

	"github.com/PuerkitoBio/goquery"
)

// Field is a CSRF form field: the parameter name and the token value.
// The zero Field means the page exposes no CSRF metadata.
type Field struct {
	Name  string
	Value string
}

// Valid reports whether both the parameter name and token were found.
func (f Field) Valid() bool {
	return f.Name != "" && f.Value != ""
}

// Merge adds the field to a request body map. Nil maps are allocated.
// Invalid fields merge nothing.
func (f Field) Merge(data map[string]any) map[string]any {
	if !f.Valid() {
		return data
	}
	if data == nil {
		data = make(map[string]any, 1)
	}
	data[f.Name] = f.Value
	return data
}

// Fetch loads pageURL and extracts the csrf-param/csrf-token meta pair.
// A page without the tags yields a zero Field and no error; only
// transport or parse failures are errors.
func Fetch(ctx context.Context, client *http.Client, pageURL string) (Field, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return Field{}, fmt.Errorf("csrf: build request: %w", err)
	}
	res, err := client.Do(req)
	if err != nil {
		return Field{}, fmt.Errorf("csrf: fetch %s: %w", pageURL, err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return Field{}, fmt.Errorf("csrf: fetch %s: HTTP %d", pageURL, res.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(res.Body)
	if err != nil {
		return Field{}, fmt.Errorf("csrf: parse %s: %w", pageURL, err)
	}
	return FromDocument(doc), nil
}

// FromDocument extracts the CSRF field from an already-parsed page.
func FromDocument(doc *goquery.Document) Field {
	name, _ := doc.Find(`meta[name="csrf-param"]`).Attr("content")
	value, _ := doc.Find(`meta[name="csrf-token"]`).Attr("content")
	return Field{Name: name, Value: value}
}
