package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// requestFlags holds the flags shared by request and the method commands.
type requestFlags struct {
	method      string
	headers     []string
	params      []string
	data        string
	dataFile    string
	jsonBody    bool
	form        []string
	timeout     time.Duration
	include     bool
	credentials string
	anyStatus   bool
}

func (f *requestFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringArrayVarP(&f.headers, "header", "H", nil, `Request header "Name: value" (repeatable)`)
	flags.StringArrayVarP(&f.params, "param", "q", nil, "Query parameter key=value (repeatable)")
	flags.StringVarP(&f.data, "data", "d", "", "Request body")
	flags.StringVar(&f.dataFile, "data-file", "", `Read the request body from a file ("-" for stdin)`)
	flags.BoolVar(&f.jsonBody, "json", false, "Send the body as JSON (validated)")
	flags.StringArrayVarP(&f.form, "form", "F", nil, "Form field key=value (repeatable)")
	flags.DurationVar(&f.timeout, "timeout", 0, "Request timeout (e.g. 10s)")
	flags.BoolVarP(&f.include, "include", "i", false, "Print status line and response headers")
	flags.StringVar(&f.credentials, "credentials", "", "Cookie mode: omit, same-origin, include")
	flags.BoolVar(&f.anyStatus, "any-status", false, "Treat every status as success")
}

func exactlyOneURL(cmd *cobra.Command, args []string) error {
	return usageErr(cobra.ExactArgs(1)(cmd, args))
}

func (cli *CLI) newRequestCommand() *cobra.Command {
	f := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "request <url>",
		Short: "Send a request with any method",
		Long: `Send a request with any method. Relative URLs are resolved against the
profile's base URL.

Examples:
  fetchkit request -X PATCH /items/1 --json -d '{"done":true}'
  fetchkit request https://example.com -i`,
		Args: exactlyOneURL,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runRequest(cmd, fetch.Method(f.method), args[0], f, false)
		},
	}
	cmd.Flags().StringVarP(&f.method, "method", "X", http.MethodGet, "HTTP method")
	f.register(cmd)
	return cmd
}

func (cli *CLI) newMethodCommand(m fetch.Method) *cobra.Command {
	f := &requestFlags{}
	name := strings.ToLower(string(m))
	cmd := &cobra.Command{
		Use:   name + " <url>",
		Short: "Send a " + string(m) + " request",
		Args:  exactlyOneURL,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.runRequest(cmd, m, args[0], f, true)
		},
	}
	f.register(cmd)
	return cmd
}

// runRequest sends one request and renders the response. Shortcut commands
// go through the client's method helpers; bodyless methods reject a body.
func (cli *CLI) runRequest(cmd *cobra.Command, m fetch.Method, target string, f *requestFlags, shortcut bool) error {
	m = fetch.Method(strings.ToUpper(string(m)))
	if !m.Valid() {
		return usageErr(fmt.Errorf("%w: %q", fetch.ErrInvalidMethod, m))
	}

	opts, err := f.options()
	if err != nil {
		return usageErr(err)
	}
	body, err := f.body(cmd.InOrStdin())
	if err != nil {
		return usageErr(err)
	}

	e, err := cli.setup()
	if err != nil {
		return err
	}
	client, cleanup, err := cli.newClient(e)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx := cmd.Context()
	var resp *fetch.Response

	if !shortcut {
		if body != nil {
			opts = append(opts, fetch.WithData(body))
		}
		resp, err = client.Request(ctx, target, append(opts, fetch.WithMethod(m))...)
	} else {
		switch m {
		case fetch.MethodPost:
			resp, err = client.Post(ctx, target, body, opts...)
		case fetch.MethodPut:
			resp, err = client.Put(ctx, target, body, opts...)
		case fetch.MethodPatch:
			resp, err = client.Patch(ctx, target, body, opts...)
		default:
			if body != nil {
				return usageErr(fmt.Errorf("%s does not take a request body; use request -X %s", strings.ToLower(string(m)), m))
			}
			switch m {
			case fetch.MethodGet:
				resp, err = client.Get(ctx, target, opts...)
			case fetch.MethodDelete:
				resp, err = client.Delete(ctx, target, opts...)
			case fetch.MethodHead:
				resp, err = client.Head(ctx, target, opts...)
			case fetch.MethodOptions:
				resp, err = client.Options(ctx, target, opts...)
			}
		}
	}

	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Response != nil {
			if rerr := cli.render(se.Response, f.include); rerr != nil {
				e.logger.WithError(rerr).Warn("Failed to render response")
			}
		}
		return err
	}
	return cli.render(resp, f.include)
}

// options converts header, param, timeout and credentials flags.
func (f *requestFlags) options() ([]fetch.Option, error) {
	var opts []fetch.Option

	if len(f.headers) > 0 {
		h := make(http.Header, len(f.headers))
		for _, raw := range f.headers {
			name, value, ok := strings.Cut(raw, ":")
			if !ok || strings.TrimSpace(name) == "" {
				return nil, fmt.Errorf("invalid header %q, want \"Name: value\"", raw)
			}
			h.Add(strings.TrimSpace(name), strings.TrimSpace(value))
		}
		opts = append(opts, fetch.WithHeaders(h))
	}

	for _, raw := range f.params {
		key, value, ok := strings.Cut(raw, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid param %q, want key=value", raw)
		}
		opts = append(opts, fetch.WithParam(key, value))
	}

	if f.timeout < 0 {
		return nil, fmt.Errorf("invalid timeout %s", f.timeout)
	}
	if f.timeout > 0 {
		opts = append(opts, fetch.WithTimeout(f.timeout))
	}

	if f.credentials != "" {
		mode := fetch.ParseCredentialsMode(f.credentials)
		if mode == fetch.CredentialsUnset {
			return nil, fmt.Errorf("invalid credentials mode %q", f.credentials)
		}
		opts = append(opts, fetch.WithCredentialsMode(mode))
	}

	if f.anyStatus {
		opts = append(opts, fetch.WithValidateStatus(func(int) bool { return true }))
	}

	return opts, nil
}

// body builds the request payload. At most one of --data, --data-file and
// --form may be given.
func (f *requestFlags) body(stdin io.Reader) (fetch.Body, error) {
	sources := 0
	for _, set := range []bool{f.data != "", f.dataFile != "", len(f.form) > 0} {
		if set {
			sources++
		}
	}
	if sources > 1 {
		return nil, errors.New("--data, --data-file and --form are mutually exclusive")
	}

	if len(f.form) > 0 {
		values := make(url.Values, len(f.form))
		for _, raw := range f.form {
			key, value, ok := strings.Cut(raw, "=")
			if !ok || key == "" {
				return nil, fmt.Errorf("invalid form field %q, want key=value", raw)
			}
			values.Add(key, value)
		}
		return fetch.Form(values), nil
	}

	var raw []byte
	switch {
	case f.dataFile == "-":
		b, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		raw = b
	case f.dataFile != "":
		b, err := os.ReadFile(f.dataFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read data file: %w", err)
		}
		raw = b
	case f.data != "":
		raw = []byte(f.data)
	default:
		if f.jsonBody {
			return nil, errors.New("--json needs --data or --data-file")
		}
		return nil, nil
	}

	if f.jsonBody {
		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("invalid JSON body: %w", err)
		}
		return fetch.JSON(v), nil
	}
	if f.dataFile != "" {
		return fetch.Binary(raw), nil
	}
	return fetch.Text(string(raw)), nil
}

// render prints the response. JSON bodies are indented from the raw bytes so
// key order is kept.
func (cli *CLI) render(resp *fetch.Response, include bool) error {
	if include {
		fmt.Fprintf(cli.out, "HTTP %d %s\n", resp.Status, resp.StatusText)
		keys := make([]string, 0, len(resp.Headers))
		for k := range resp.Headers {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			for _, v := range resp.Headers[k] {
				fmt.Fprintf(cli.out, "%s: %s\n", k, v)
			}
		}
		fmt.Fprintln(cli.out)
	}

	switch data := resp.Data.(type) {
	case nil:
		return nil
	case string:
		_, err := io.WriteString(cli.out, withNewline(data))
		return err
	case *fetch.Blob:
		_, err := cli.out.Write(data.Bytes)
		return err
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace(resp.Raw), "", "  "); err != nil {
		out, merr := json.MarshalIndent(resp.Data, "", "  ")
		if merr != nil {
			return fmt.Errorf("failed to format response: %w", merr)
		}
		buf.Reset()
		buf.Write(out)
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(cli.out)
	return err
}

func withNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
