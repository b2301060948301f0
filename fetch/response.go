package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Response is the outcome of a call that reached the server.
type Response struct {
	// Data is the decoded body: an encoding/json value for JSON content,
	// a string for text/*, and a *Blob otherwise.
	Data any

	Status     int
	StatusText string

	// Headers is a copy of the response headers.
	Headers http.Header

	// Config is the options the call was dispatched with.
	Config RequestOptions

	// Raw holds the undecoded body bytes.
	Raw []byte
}

// OK reports whether Status is 2xx.
func (r *Response) OK() bool {
	return r.Status >= 200 && r.Status <= 299
}

// Unmarshal decodes the raw body as JSON into v.
func (r *Response) Unmarshal(v any) error {
	if err := json.Unmarshal(r.Raw, v); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
