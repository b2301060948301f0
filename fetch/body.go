package fetch

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeText   = "text/plain"
	ContentTypeBinary = "application/octet-stream"
	ContentTypeForm   = "application/x-www-form-urlencoded"
)

// Body is an outgoing payload. The concrete variant decides how it is encoded
// and which Content-Type it implies; see JSON, Text, Binary, Form and Reader.
type Body interface {
	encode() (io.Reader, string, error)
}

type jsonBody struct{ v any }

type textBody string

type binaryBody []byte

type formBody url.Values

type readerBody struct{ r io.Reader }

// JSON marshals v with encoding/json.
func JSON(v any) Body { return jsonBody{v: v} }

// Text sends s unchanged.
func Text(s string) Body { return textBody(s) }

// Binary sends b unchanged.
func Binary(b []byte) Body { return binaryBody(b) }

// Form sends v urlencoded.
func Form(v url.Values) Body { return formBody(v) }

// Reader streams r unchanged.
func Reader(r io.Reader) Body { return readerBody{r: r} }

func (b jsonBody) encode() (io.Reader, string, error) {
	data, err := json.Marshal(b.v)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal JSON body: %w", err)
	}
	return bytes.NewReader(data), ContentTypeJSON, nil
}

func (b textBody) encode() (io.Reader, string, error) {
	return strings.NewReader(string(b)), ContentTypeText, nil
}

func (b binaryBody) encode() (io.Reader, string, error) {
	return bytes.NewReader(b), ContentTypeBinary, nil
}

func (b formBody) encode() (io.Reader, string, error) {
	return strings.NewReader(url.Values(b).Encode()), ContentTypeForm, nil
}

func (b readerBody) encode() (io.Reader, string, error) {
	if b.r == nil {
		return nil, "", ErrNilBody
	}
	return b.r, ContentTypeText, nil
}

// EncodeBody turns data into a request body and the Content-Type to send.
// A non-empty contentType from the caller is always returned unchanged.
// When data is nil the body is nil and no content type is implied.
//
// Implied content types per variant:
//   - JSON: application/json
//   - Text, Reader: text/plain
//   - Binary: application/octet-stream, not text/plain
//   - Form: application/x-www-form-urlencoded, not text/plain
//
// Set a Content-Type header to send Binary or Form payloads as text/plain.
func EncodeBody(data Body, contentType string) (io.Reader, string, error) {
	if data == nil {
		return nil, contentType, nil
	}
	r, implied, err := data.encode()
	if err != nil {
		return nil, "", err
	}
	if contentType != "" {
		return r, contentType, nil
	}
	return r, implied, nil
}

// Blob is an undecoded response body.
type Blob struct {
	Type  string
	Bytes []byte
}

// Text returns the blob's bytes as a string.
func (b *Blob) Text() string { return string(b.Bytes) }

// Len returns the blob size in bytes.
func (b *Blob) Len() int { return len(b.Bytes) }

// DecodeBody drains body once and decodes it according to the Content-Type
// in header: JSON into an any value, text/* into a string, everything else
// (including a missing Content-Type) into a *Blob. The raw bytes are
// returned alongside the decoded value.
func DecodeBody(header http.Header, body io.Reader) (any, []byte, error) {
	var raw []byte
	if body != nil {
		var err error
		raw, err = io.ReadAll(body)
		if err != nil {
			return nil, raw, fmt.Errorf("failed to read response body: %w", err)
		}
	}

	contentType := header.Get("Content-Type")

	switch responseKind(contentType) {
	case kindText:
		return string(raw), raw, nil
	case kindJSON:
		if len(bytes.TrimSpace(raw)) == 0 {
			return nil, raw, nil
		}
		var v any
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, raw, fmt.Errorf("failed to decode JSON response: %w", err)
		}
		return v, raw, nil
	}

	mediaType := contentType
	if mt, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = mt
	}
	return &Blob{Type: mediaType, Bytes: raw}, raw, nil
}

type bodyKind int

const (
	kindBlob bodyKind = iota
	kindText
	kindJSON
)

func responseKind(contentType string) bodyKind {
	if contentType == "" {
		return kindBlob
	}
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if strings.HasPrefix(ct, "text/") {
		return kindText
	}
	if strings.Contains(ct, ContentTypeJSON) {
		return kindJSON
	}
	return kindBlob
}
