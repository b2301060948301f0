package fetch

import (
	"net/http"
	"strings"
	"time"
)

// Method is an HTTP verb understood by the client.
type Method string

const (
	MethodGet     Method = http.MethodGet
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodHead    Method = http.MethodHead
	MethodOptions Method = http.MethodOptions
)

// Valid reports whether m is one of the supported verbs (case-insensitive).
func (m Method) Valid() bool {
	switch Method(strings.ToUpper(string(m))) {
	case MethodGet, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodHead, MethodOptions:
		return true
	}
	return false
}

// CredentialsMode controls whether cookies from the client's jar are attached
// to a request and whether Set-Cookie headers are stored back.
type CredentialsMode int

const (
	// CredentialsUnset defers to WithCredentials.
	CredentialsUnset CredentialsMode = iota
	// CredentialsOmit never touches the jar.
	CredentialsOmit
	// CredentialsSameOrigin uses the jar only for targets on the base URL's origin.
	CredentialsSameOrigin
	// CredentialsInclude always uses the jar.
	CredentialsInclude
)

func (m CredentialsMode) String() string {
	switch m {
	case CredentialsOmit:
		return "omit"
	case CredentialsSameOrigin:
		return "same-origin"
	case CredentialsInclude:
		return "include"
	}
	return "unset"
}

// ParseCredentialsMode maps "omit", "same-origin" and "include" to a mode.
// Anything else yields CredentialsUnset.
func ParseCredentialsMode(s string) CredentialsMode {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "omit":
		return CredentialsOmit
	case "same-origin":
		return CredentialsSameOrigin
	case "include":
		return CredentialsInclude
	}
	return CredentialsUnset
}

// RequestOptions describes one logical call. The same type carries a client's
// defaults, the per-call overrides, and the working copy that request
// interceptors receive.
type RequestOptions struct {
	// Method defaults to GET when empty.
	Method Method

	// BaseURL is prefixed to URL unless URL is already absolute.
	BaseURL string

	// URL is the call target. Once the pipeline has composed it, it holds
	// the full URL (base and query applied) that will be dispatched.
	URL string

	// Params are appended to the query string in order. Empty values are dropped.
	Params Params

	// Data is the outgoing payload.
	Data Body

	// Headers are merged key-wise with the defaults.
	Headers http.Header

	// WithCredentials selects CredentialsInclude when Credentials is unset.
	// A false value cannot override a default of true; use the
	// WithCredentials option or Credentials for that.
	WithCredentials bool

	// Credentials overrides WithCredentials when set.
	Credentials CredentialsMode

	// Timeout bounds the transport call. Zero means no extra deadline.
	Timeout time.Duration

	// ValidateStatus decides which statuses resolve successfully.
	// Nil means 2xx only.
	ValidateStatus func(status int) bool
}

// Option mutates per-call RequestOptions.
type Option func(*RequestOptions)

// WithMethod sets the HTTP verb.
func WithMethod(m Method) Option {
	return func(o *RequestOptions) { o.Method = m }
}

// WithBaseURL sets the base URL for this call.
func WithBaseURL(base string) Option {
	return func(o *RequestOptions) { o.BaseURL = base }
}

// WithParams appends query parameters.
func WithParams(p Params) Option {
	return func(o *RequestOptions) { o.Params = append(o.Params, p...) }
}

// WithParam appends one query parameter.
func WithParam(key string, value any) Option {
	return func(o *RequestOptions) { o.Params = append(o.Params, Param{Key: key, Value: value}) }
}

// WithHeader sets a single header, replacing earlier values for the key.
func WithHeader(key, value string) Option {
	return func(o *RequestOptions) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}
		o.Headers.Set(key, value)
	}
}

// WithHeaders sets every key in h.
func WithHeaders(h http.Header) Option {
	return func(o *RequestOptions) {
		if len(h) == 0 {
			return
		}
		if o.Headers == nil {
			o.Headers = make(http.Header, len(h))
		}
		for k, v := range h {
			o.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
		}
	}
}

// WithData sets the outgoing payload.
func WithData(b Body) Option {
	return func(o *RequestOptions) { o.Data = b }
}

// WithCredentials toggles cookie inclusion for cross-origin targets. The
// choice is recorded as an explicit Credentials mode, so false overrides a
// client default of true and falls back to same-origin.
func WithCredentials(include bool) Option {
	return func(o *RequestOptions) {
		o.WithCredentials = include
		if include {
			o.Credentials = CredentialsInclude
		} else {
			o.Credentials = CredentialsSameOrigin
		}
	}
}

// WithCredentialsMode sets the credentials mode explicitly.
func WithCredentialsMode(m CredentialsMode) Option {
	return func(o *RequestOptions) { o.Credentials = m }
}

// WithTimeout bounds the transport call.
func WithTimeout(d time.Duration) Option {
	return func(o *RequestOptions) { o.Timeout = d }
}

// WithValidateStatus replaces the success predicate.
func WithValidateStatus(fn func(status int) bool) Option {
	return func(o *RequestOptions) { o.ValidateStatus = fn }
}

// WithOptions overlays a whole RequestOptions value using Merge semantics,
// without defaulting the method.
func WithOptions(ro RequestOptions) Option {
	return func(o *RequestOptions) { *o = overlay(*o, ro) }
}

// Merge combines defaults with per-call overrides. Every field set in call
// wins; headers merge key-wise with call's keys winning. The returned value
// never shares a header map with either input.
func Merge(defaults, call RequestOptions) RequestOptions {
	out := overlay(defaults, call)
	if out.Method == "" {
		out.Method = MethodGet
	}
	out.Method = Method(strings.ToUpper(string(out.Method)))
	return out
}

func overlay(defaults, call RequestOptions) RequestOptions {
	out := defaults

	if call.Method != "" {
		out.Method = call.Method
	}

	if call.BaseURL != "" {
		out.BaseURL = call.BaseURL
	}
	if call.URL != "" {
		out.URL = call.URL
	}
	// Params are copied so interceptors appending to them never write into
	// the defaults shared by concurrent calls.
	if call.Params != nil {
		out.Params = append(Params(nil), call.Params...)
	} else if defaults.Params != nil {
		out.Params = append(Params(nil), defaults.Params...)
	}
	if call.Data != nil {
		out.Data = call.Data
	}
	switch {
	case call.Credentials != CredentialsUnset:
		out.Credentials = call.Credentials
		out.WithCredentials = call.Credentials == CredentialsInclude
	case call.WithCredentials:
		out.Credentials = CredentialsUnset
		out.WithCredentials = true
	}
	if call.Timeout != 0 {
		out.Timeout = call.Timeout
	}
	if call.ValidateStatus != nil {
		out.ValidateStatus = call.ValidateStatus
	}

	out.Headers = make(http.Header, len(defaults.Headers)+len(call.Headers))
	for k, v := range defaults.Headers {
		out.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}
	for k, v := range call.Headers {
		out.Headers[http.CanonicalHeaderKey(k)] = append([]string(nil), v...)
	}

	return out
}

// credentials resolves the effective mode.
func (o RequestOptions) credentials() CredentialsMode {
	if o.Credentials != CredentialsUnset {
		return o.Credentials
	}
	if o.WithCredentials {
		return CredentialsInclude
	}
	return CredentialsSameOrigin
}

// accepts applies ValidateStatus, defaulting to 2xx.
func (o RequestOptions) accepts(status int) bool {
	if o.ValidateStatus != nil {
		return o.ValidateStatus(status)
	}
	return status >= 200 && status <= 299
}
