package fetch

import (
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, r io.Reader) string {
	t.Helper()
	if r == nil {
		return ""
	}
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(b)
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name        string
		data        Body
		contentType string
		wantBody    string
		wantType    string
	}{
		{"nil data", nil, "", "", ""},
		{"nil data keeps caller type", nil, "text/html", "", "text/html"},
		{"json object", JSON(map[string]string{"foo": "bar"}), "", `{"foo":"bar"}`, ContentTypeJSON},
		{"json keeps caller type", JSON(map[string]string{"foo": "bar"}), "text/plain", `{"foo":"bar"}`, "text/plain"},
		{"text", Text("foo=bar"), "", "foo=bar", ContentTypeText},
		{"binary", Binary([]byte{0x01, 0x02}), "", "\x01\x02", ContentTypeBinary},
		{"form", Form(url.Values{"a": {"1"}, "b": {"x y"}}), "", "a=1&b=x+y", ContentTypeForm},
		{"binary as text", Binary([]byte("raw")), ContentTypeText, "raw", ContentTypeText},
		{"form as text", Form(url.Values{"a": {"1"}}), ContentTypeText, "a=1", ContentTypeText},
		{"reader", Reader(strings.NewReader("stream")), "", "stream", ContentTypeText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ct, err := EncodeBody(tt.data, tt.contentType)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ct)
			assert.Equal(t, tt.wantBody, readAll(t, r))
			if tt.data == nil {
				assert.Nil(t, r)
			}
		})
	}
}

func TestEncodeBodyErrors(t *testing.T) {
	_, _, err := EncodeBody(JSON(func() {}), "")
	assert.Error(t, err)

	_, _, err = EncodeBody(Reader(nil), "")
	assert.True(t, errors.Is(err, ErrNilBody))
}

func TestDecodeBody(t *testing.T) {
	tests := []struct {
		name        string
		contentType string
		body        string
		want        any
	}{
		{"json", "application/json", `{"foo":"bar"}`, map[string]any{"foo": "bar"}},
		{"json with charset", "application/json;charset=utf-8", `{"foo":"bar"}`, map[string]any{"foo": "bar"}},
		{"json problem type", "application/problem+json", `{"a":1}`, &Blob{Type: "application/problem+json", Bytes: []byte(`{"a":1}`)}},
		{"json vendor containing type", "application/json; profile=x", `[1,2]`, []any{float64(1), float64(2)}},
		{"empty json", "application/json", "", nil},
		{"text plain", "text/plain", `{"foo":"bar"}`, `{"foo":"bar"}`},
		{"text html", "text/html", "<html><body>foo</body></html>", "<html><body>foo</body></html>"},
		{"text html charset", "text/html;charset=utf-8", "<p>x</p>", "<p>x</p>"},
		{"octet stream", "application/octet-stream", "foo", &Blob{Type: "application/octet-stream", Bytes: []byte("foo")}},
		{"missing", "", "foo", &Blob{Type: "", Bytes: []byte("foo")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.contentType != "" {
				h.Set("Content-Type", tt.contentType)
			}
			got, raw, err := DecodeBody(h, strings.NewReader(tt.body))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.body, string(raw))
		})
	}
}

func TestDecodeBodyBlobText(t *testing.T) {
	h := http.Header{"Content-Type": {"application/octet-stream"}}
	got, _, err := DecodeBody(h, strings.NewReader("foo"))
	require.NoError(t, err)

	blob, ok := got.(*Blob)
	require.True(t, ok)
	assert.Equal(t, "foo", blob.Text())
	assert.Equal(t, 3, blob.Len())
}

func TestDecodeBodyInvalidJSON(t *testing.T) {
	h := http.Header{"Content-Type": {"application/json"}}
	_, raw, err := DecodeBody(h, strings.NewReader("{nope"))
	assert.Error(t, err)
	assert.Equal(t, "{nope", string(raw))
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("boom") }

func TestDecodeBodyReadError(t *testing.T) {
	_, _, err := DecodeBody(http.Header{}, failingReader{})
	assert.ErrorContains(t, err, "boom")
}

func TestDecodeBodyNilReader(t *testing.T) {
	got, raw, err := DecodeBody(http.Header{"Content-Type": {"text/plain"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, "", got)
	assert.Empty(t, raw)
}

func TestBodyRoundTrip(t *testing.T) {
	original := map[string]any{
		"name":  "gopher",
		"tags":  []any{"a", "b"},
		"count": float64(3),
		"inner": map[string]any{"ok": true},
	}

	r, ct, err := EncodeBody(JSON(original), "")
	require.NoError(t, err)

	got, _, err := DecodeBody(http.Header{"Content-Type": {ct}}, r)
	require.NoError(t, err)
	assert.Equal(t, original, got)

	r, ct, err = EncodeBody(Text("hello"), "")
	require.NoError(t, err)
	assert.Equal(t, ContentTypeText, ct)

	got, _, err = DecodeBody(http.Header{"Content-Type": {ct}}, r)
	require.NoError(t, err)
	assert.Equal(t, "hello", got)
}
