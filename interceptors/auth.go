package interceptors

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// Bearer sets "Authorization: Bearer <token>" on every request that does not
// already carry an Authorization header.
func Bearer(token string) fetch.FulfilledFunc[fetch.RequestOptions] {
	return setIfAbsent("Authorization", "Bearer "+token)
}

// APIKey sets header to key on every request that does not already carry it.
// An empty header name means "X-Api-Key".
func APIKey(header, key string) fetch.FulfilledFunc[fetch.RequestOptions] {
	if header == "" {
		header = "X-Api-Key"
	}
	return setIfAbsent(header, key)
}

// BasicAuth sets HTTP basic credentials on requests without an Authorization header.
func BasicAuth(user, password string) fetch.FulfilledFunc[fetch.RequestOptions] {
	token := base64.StdEncoding.EncodeToString([]byte(user + ":" + password))
	return setIfAbsent("Authorization", "Basic "+token)
}

func setIfAbsent(key, value string) fetch.FulfilledFunc[fetch.RequestOptions] {
	return func(_ context.Context, o fetch.RequestOptions) (fetch.RequestOptions, error) {
		if o.Headers == nil {
			o.Headers = make(http.Header)
		}
		if o.Headers.Get(key) == "" {
			o.Headers.Set(key, value)
		}
		return o, nil
	}
}

// MaskKey hides most of a secret for logging.
// Format: "sk-1234567890abcdef" -> "sk-***0abcdef"
func MaskKey(key string) string {
	n := len(key)
	switch {
	case n == 0:
		return ""
	case n <= 5:
		return "***" + key[max(0, n-2):]
	case n <= 10:
		return key[:3] + "***" + key[n-3:]
	}
	return key[:3] + "***" + key[n-7:]
}

// sensitiveHeaders are masked by MaskHeaders.
var sensitiveHeaders = []string{"Authorization", "Proxy-Authorization", "X-Api-Key", "Cookie"}

// MaskHeaders returns a copy of h with credential-bearing values masked. The
// auth scheme of Authorization headers is kept readable.
func MaskHeaders(h http.Header) http.Header {
	out := h.Clone()
	if out == nil {
		return http.Header{}
	}
	for _, key := range sensitiveHeaders {
		values := out.Values(key)
		if len(values) == 0 {
			continue
		}
		masked := make([]string, len(values))
		for i, v := range values {
			if scheme, secret, ok := strings.Cut(v, " "); ok && strings.HasSuffix(key, "Authorization") {
				masked[i] = scheme + " " + MaskKey(secret)
				continue
			}
			masked[i] = MaskKey(v)
		}
		out[http.CanonicalHeaderKey(key)] = masked
	}
	return out
}
