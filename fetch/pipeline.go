package fetch

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// do runs one call through the pipeline:
//
//  1. merge defaults and call options
//  2. compose the URL into options.URL
//  3. request interceptors (fulfilled)
//  4. encode the body and resolve Content-Type
//  5. dispatch through the Doer
//  6. classify the status
//  7. failure: rejected handlers of the matching chain
//  8. success: decode, response interceptors (fulfilled)
//
// Both handler lists are snapshotted before anything runs.
func (c *Client) do(ctx context.Context, call RequestOptions) (*Response, error) {
	reqHandlers := c.Interceptors.Request.Handlers()
	resHandlers := c.Interceptors.Response.Handlers()

	options := Merge(c.defaults, call)

	full, err := Compose(options.URL, options.BaseURL, options.Params)
	if err != nil {
		return c.failRequest(ctx, reqHandlers, &TransportError{Options: options, Err: err})
	}
	options.URL = full

	options, failedAt, err := fulfill(ctx, reqHandlers, options)
	if err != nil {
		return c.failRequest(ctx, reqHandlers[failedAt+1:], err)
	}
	options.Method = Method(strings.ToUpper(string(options.Method)))
	if options.Method == "" {
		options.Method = MethodGet
	}
	if options.Headers == nil {
		options.Headers = make(http.Header)
	}

	tctx := ctx
	if options.Timeout > 0 {
		var cancel context.CancelFunc
		tctx, cancel = context.WithTimeout(ctx, options.Timeout)
		defer cancel()
	}

	log := c.logger.WithFields(logrus.Fields{
		"method": options.Method,
		"url":    options.URL,
	})

	start := time.Now()
	hresp, options, err := c.dispatch(tctx, options)
	if err != nil {
		log.WithError(err).Debug("Request failed before a response")
		return c.failRequest(ctx, reqHandlers, &TransportError{Options: options, Err: err})
	}
	if hresp.Body != nil {
		defer hresp.Body.Close()
	}

	data, raw, decodeErr := DecodeBody(hresp.Header, hresp.Body)
	resp := &Response{
		Data:       data,
		Status:     hresp.StatusCode,
		StatusText: reasonPhrase(hresp),
		Headers:    hresp.Header.Clone(),
		Config:     options,
		Raw:        raw,
	}

	log = log.WithFields(logrus.Fields{
		"status":  resp.Status,
		"latency": time.Since(start),
	})

	if !options.accepts(resp.Status) {
		log.Debug("Response status rejected")
		return c.failResponse(ctx, resHandlers, &StatusError{Response: resp, Options: options})
	}
	if decodeErr != nil {
		log.WithError(decodeErr).Debug("Response body could not be decoded")
		return c.failResponse(ctx, resHandlers, &DecodeError{Response: resp, Err: decodeErr})
	}
	log.Debug("Request completed")

	resp, failedAt, err = fulfill(ctx, resHandlers, resp)
	if err != nil {
		return c.failResponse(ctx, resHandlers[failedAt+1:], err)
	}
	return resp, nil
}

// dispatch builds the native request and performs the transport call. The
// returned options carry the Content-Type that was actually sent.
func (c *Client) dispatch(ctx context.Context, options RequestOptions) (*http.Response, RequestOptions, error) {
	if !options.Method.Valid() {
		return nil, options, fmt.Errorf("%w: %q", ErrInvalidMethod, options.Method)
	}

	body, contentType, err := EncodeBody(options.Data, options.Headers.Get("Content-Type"))
	if err != nil {
		return nil, options, err
	}

	req, err := http.NewRequestWithContext(ctx, string(options.Method), options.URL, body)
	if err != nil {
		return nil, options, fmt.Errorf("failed to build request: %w", err)
	}

	options.Headers = options.Headers.Clone()
	if contentType != "" {
		options.Headers.Set("Content-Type", contentType)
	}
	req.Header = options.Headers.Clone()

	useJar := c.useJar(options, req.URL)
	if useJar {
		for _, ck := range c.jar.Cookies(req.URL) {
			req.AddCookie(ck)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, options, err
	}

	if useJar {
		if cookies := resp.Cookies(); len(cookies) > 0 {
			c.jar.SetCookies(req.URL, cookies)
		}
	}
	return resp, options, nil
}

// useJar applies the credentials mode to a target.
func (c *Client) useJar(options RequestOptions, target *url.URL) bool {
	if c.jar == nil {
		return false
	}
	switch options.credentials() {
	case CredentialsInclude:
		return true
	case CredentialsSameOrigin:
		return sameOrigin(options.BaseURL, target)
	}
	return false
}

// sameOrigin reports whether target shares scheme and host with base. With no
// base URL there is no other origin to compare against.
func sameOrigin(base string, target *url.URL) bool {
	if base == "" {
		return true
	}
	b, err := url.Parse(base)
	if err != nil || !b.IsAbs() {
		return true
	}
	return strings.EqualFold(b.Scheme, target.Scheme) && strings.EqualFold(b.Host, target.Host)
}

func (c *Client) failRequest(ctx context.Context, handlers []Entry[RequestOptions], err error) (*Response, error) {
	resp, err := reject(ctx, handlers, err)
	if err == nil {
		c.logger.Debug("Request failure recovered by interceptor")
	}
	return resp, err
}

func (c *Client) failResponse(ctx context.Context, handlers []Entry[*Response], err error) (*Response, error) {
	resp, err := reject(ctx, handlers, err)
	if err == nil {
		c.logger.Debug("Response failure recovered by interceptor")
	}
	return resp, err
}
