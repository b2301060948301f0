package fetch

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

var (
	// ErrInvalidMethod is returned when RequestOptions.Method is not a supported verb.
	ErrInvalidMethod = errors.New("invalid HTTP method")

	// ErrNilBody is returned when a Reader body wraps a nil io.Reader.
	ErrNilBody = errors.New("nil request body reader")

	// ErrUnsupportedParam is returned by Compose for query values that have
	// no sensible string form (maps, plain structs, nested pointers, funcs).
	ErrUnsupportedParam = errors.New("unsupported query parameter value")
)

// TransportError reports a call that never produced a response: DNS
// failure, refused connection, cancellation, timeout, or a request that could
// not be built. It flows through the request interceptors' rejected handlers.
type TransportError struct {
	Options RequestOptions
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Options.Method, e.Options.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a response whose status was rejected by
// ValidateStatus. Its message is the status reason phrase.
type StatusError struct {
	Response *Response
	Options  RequestOptions
}

func (e *StatusError) Error() string {
	if e.Response == nil {
		return "request failed"
	}
	return e.Response.StatusText
}

// Status returns the rejected status code.
func (e *StatusError) Status() int {
	if e.Response == nil {
		return 0
	}
	return e.Response.Status
}

// DecodeError reports an accepted response whose body could not be decoded.
// Response.Raw still holds the bytes that were read.
type DecodeError struct {
	Response *Response
	Err      error
}

func (e *DecodeError) Error() string { return e.Err.Error() }

func (e *DecodeError) Unwrap() error { return e.Err }

// IsStatus reports whether err is a StatusError with the given status.
func IsStatus(err error, status int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Status() == status
}

// reasonPhrase extracts "Not Found" from "404 Not Found", falling back to the
// standard text for the code.
func reasonPhrase(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}
