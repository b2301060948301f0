package interceptors

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// RequestIDHeader is the header RequestID writes when no name is given.
const RequestIDHeader = "X-Request-Id"

// RequestID tags each request with a UUIDv4 under header (RequestIDHeader
// when empty). An ID the caller already set is kept.
func RequestID(header string) fetch.FulfilledFunc[fetch.RequestOptions] {
	if header == "" {
		header = RequestIDHeader
	}
	return func(_ context.Context, o fetch.RequestOptions) (fetch.RequestOptions, error) {
		o.Headers = EnsureRequestID(o.Headers, header)
		return o, nil
	}
}

// EnsureRequestID sets a fresh UUID under header unless one is present and
// returns the (possibly allocated) header map.
func EnsureRequestID(h http.Header, header string) http.Header {
	if h == nil {
		h = make(http.Header)
	}
	if h.Get(header) == "" {
		h.Set(header, uuid.NewString())
	}
	return h
}
