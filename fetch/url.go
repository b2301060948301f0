package fetch

import (
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strings"

	"github.com/google/go-querystring/query"
)

// Param is one query key/value pair.
type Param struct {
	Key   string
	Value any
}

// Params is an ordered list of query parameters. Order is preserved when
// the query string is built.
type Params []Param

// P builds Params from alternating key/value arguments. A trailing key
// without a value is ignored.
func P(kv ...any) Params {
	out := make(Params, 0, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		out = append(out, Param{Key: fmt.Sprint(kv[i]), Value: kv[i+1]})
	}
	return out
}

// ParamsFromValues converts a pre-built url.Values. Keys are sorted so the
// result is deterministic.
func ParamsFromValues(v url.Values) Params {
	keys := make([]string, 0, len(v))
	for k := range v {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Params, 0, len(keys))
	for _, k := range keys {
		vals := v[k]
		if len(vals) == 1 {
			out = append(out, Param{Key: k, Value: vals[0]})
			continue
		}
		out = append(out, Param{Key: k, Value: append([]string(nil), vals...)})
	}
	return out
}

// ParamsFromStruct encodes a struct with `url:"..."` tags.
func ParamsFromStruct(v any) (Params, error) {
	vals, err := query.Values(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode query struct: %w", err)
	}
	return ParamsFromValues(vals), nil
}

// Compose resolves target against baseURL (when target is not absolute) and
// appends params to the query string.
func Compose(target, baseURL string, params Params) (string, error) {
	full := target
	if baseURL != "" && !isAbsoluteURL(target) {
		base, err := url.Parse(baseURL)
		if err != nil {
			return "", fmt.Errorf("invalid base URL %q: %w", baseURL, err)
		}
		ref, err := url.Parse(target)
		if err != nil {
			return "", fmt.Errorf("invalid URL %q: %w", target, err)
		}
		full = base.ResolveReference(ref).String()
	}

	if err := params.validate(); err != nil {
		return "", err
	}

	qs := params.Encode()
	if qs == "" {
		return full, nil
	}
	if strings.Contains(full, "?") {
		return full + "&" + qs, nil
	}
	return full + "?" + qs, nil
}

// Encode serializes the params as key=value pairs joined by '&'. Entries
// with nil, empty string, empty slice or empty map values are dropped.
// Scalars, fmt.Stringers, one level of pointer and slices of those are
// supported; anything else is formatted with fmt and rejected by Compose.
func (p Params) Encode() string {
	var b strings.Builder
	write := func(k, v string) {
		if b.Len() > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(v))
	}

	for _, param := range p {
		if isEmptyValue(param.Value) {
			continue
		}
		rv := reflect.ValueOf(param.Value)
		if rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		switch rv.Kind() {
		case reflect.Slice, reflect.Array:
			if _, isBytes := rv.Interface().([]byte); isBytes {
				write(param.Key, string(rv.Bytes()))
				continue
			}
			for i := 0; i < rv.Len(); i++ {
				item := rv.Index(i).Interface()
				if isEmptyValue(item) {
					continue
				}
				write(param.Key, formatValue(item))
			}
		default:
			write(param.Key, formatValue(rv.Interface()))
		}
	}
	return b.String()
}

// validate rejects values Encode cannot format meaningfully.
func (p Params) validate() error {
	for _, param := range p {
		if isEmptyValue(param.Value) {
			continue
		}
		rv := reflect.ValueOf(param.Value)
		if rv.Kind() == reflect.Pointer {
			rv = rv.Elem()
		}
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && !isStringer(param.Value) {
			if _, isBytes := rv.Interface().([]byte); isBytes {
				continue
			}
			for i := 0; i < rv.Len(); i++ {
				item := rv.Index(i).Interface()
				if isEmptyValue(item) {
					continue
				}
				k := reflect.ValueOf(item).Kind()
				if k == reflect.Slice || k == reflect.Array || !isScalar(item) {
					return fmt.Errorf("%w: %s[%d] is %T", ErrUnsupportedParam, param.Key, i, item)
				}
			}
			continue
		}
		if !isScalar(param.Value) {
			return fmt.Errorf("%w: %s is %T", ErrUnsupportedParam, param.Key, param.Value)
		}
	}
	return nil
}

// isScalar reports whether v (or what a single pointer points at) formats
// to a meaningful string.
func isScalar(v any) bool {
	if isStringer(v) {
		return true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Pointer {
		rv = rv.Elem()
		if isStringer(rv.Interface()) {
			return true
		}
	}
	switch rv.Kind() {
	case reflect.Map, reflect.Struct, reflect.Func, reflect.Chan,
		reflect.Pointer, reflect.UnsafePointer, reflect.Interface:
		return false
	}
	return true
}

func isStringer(v any) bool {
	_, ok := v.(fmt.Stringer)
	return ok
}

func formatValue(v any) string {
	if s, ok := v.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprint(v)
}

func isEmptyValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return true
		}
		return isEmptyValue(rv.Elem().Interface())
	case reflect.String, reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	}
	return false
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.IsAbs()
}
