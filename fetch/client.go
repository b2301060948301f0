package fetch

import (
	"context"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"
)

// Doer performs one HTTP exchange. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	// Defaults are merged under every call's options.
	Defaults RequestOptions

	// HTTPClient performs the transport call. Defaults to an *http.Client
	// over a transport cloned from http.DefaultTransport.
	HTTPClient Doer

	// Jar stores cookies for calls whose credentials mode allows it.
	// Nil disables cookie handling regardless of mode.
	Jar http.CookieJar

	// Logger receives debug output for each call (optional).
	Logger logrus.FieldLogger
}

// setDefaults fills in default values for zero-valued fields.
func (c *Config) setDefaults() {
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Transport: cloneDefaultTransport()}
	}
	if c.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.Logger = l
	}
}

func cloneDefaultTransport() http.RoundTripper {
	if t, ok := http.DefaultTransport.(*http.Transport); ok && t != nil {
		return t.Clone()
	}
	return http.DefaultTransport
}

// Interceptors holds a client's two interceptor chains.
type Interceptors struct {
	// Request handlers run in registration order before dispatch. Their
	// rejected halves see errors raised before a response exists.
	Request *Registry[RequestOptions]

	// Response handlers run in registration order after a response is
	// accepted. Their rejected halves see status and decode failures.
	Response *Registry[*Response]
}

// Client issues requests through the interceptor pipeline. Clients share no
// mutable state with each other.
type Client struct {
	Interceptors Interceptors

	defaults   RequestOptions
	httpClient Doer
	jar        http.CookieJar
	logger     logrus.FieldLogger
}

// New creates a client. Default values are applied to zero-valued config fields.
func New(cfg Config) *Client {
	cfg.setDefaults()

	return &Client{
		Interceptors: Interceptors{
			Request:  NewRegistry[RequestOptions](),
			Response: NewRegistry[*Response](),
		},
		defaults:   Merge(RequestOptions{}, cfg.Defaults),
		httpClient: cfg.HTTPClient,
		jar:        cfg.Jar,
		logger:     cfg.Logger,
	}
}

// Default returns a new client with no defaults.
func Default() *Client {
	return New(Config{})
}

// Defaults returns a copy of the client's default options.
func (c *Client) Defaults() RequestOptions {
	return Merge(RequestOptions{}, c.defaults)
}

// Request performs one call to target. opts are applied to an empty
// RequestOptions and merged over the client defaults.
//
// A status rejected by ValidateStatus yields a *StatusError, a call that
// produced no response yields a *TransportError, unless an interceptor
// replaces or suppresses the error.
func (c *Client) Request(ctx context.Context, target string, opts ...Option) (*Response, error) {
	return c.do(ctx, buildOptions(target, opts))
}

// shortcut fixes the method (and body, when given) after opts are applied.
func (c *Client) shortcut(ctx context.Context, m Method, target string, data Body, opts []Option) (*Response, error) {
	call := buildOptions(target, opts)
	call.Method = m
	if data != nil {
		call.Data = data
	}
	return c.do(ctx, call)
}

func buildOptions(target string, opts []Option) RequestOptions {
	call := RequestOptions{URL: target}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(&call)
	}
	return call
}

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, target string, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodGet, target, nil, opts)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, target string, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodDelete, target, nil, opts)
}

// Head issues a HEAD request.
func (c *Client) Head(ctx context.Context, target string, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodHead, target, nil, opts)
}

// Options issues an OPTIONS request.
func (c *Client) Options(ctx context.Context, target string, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodOptions, target, nil, opts)
}

// Post issues a POST request with data as the body.
func (c *Client) Post(ctx context.Context, target string, data Body, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodPost, target, data, opts)
}

// Put issues a PUT request with data as the body.
func (c *Client) Put(ctx context.Context, target string, data Body, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodPut, target, data, opts)
}

// Patch issues a PATCH request with data as the body.
func (c *Client) Patch(ctx context.Context, target string, data Body, opts ...Option) (*Response, error) {
	return c.shortcut(ctx, MethodPatch, target, data, opts)
}
