// Package fetch provides a small HTTP client with per-instance defaults and
// request/response interceptors.
//
// Each call goes through the same pipeline: the call's options are merged over
// the client defaults, the URL is composed from the base URL, target and query
// params, request interceptors may rewrite the options, the body is encoded,
// exactly one transport call is made, the status is classified, and the body
// is decoded by Content-Type before response interceptors see it.
//
// Key features:
//   - Base URL resolution and ordered query params (empty values dropped)
//   - Typed request bodies: JSON, Text, Binary, Form, Reader
//   - Response decoding by Content-Type (JSON, text, or *Blob)
//   - Ordered, revocable interceptors with fulfilled and rejected halves
//   - Status validation (2xx by default, configurable per call)
//   - Explicit credentials mode for the client's cookie jar
//
// There are no retries and no caching: one logical call is one transport call.
//
// Example usage:
//
//	api := fetch.New(fetch.Config{
//	    Defaults: fetch.RequestOptions{
//	        BaseURL: "https://api.example.com",
//	        Timeout: 10 * time.Second,
//	    },
//	})
//
//	api.Interceptors.Request.Use(func(ctx context.Context, o fetch.RequestOptions) (fetch.RequestOptions, error) {
//	    o.Headers.Set("Authorization", "Bearer "+token)
//	    return o, nil
//	}, nil)
//
//	resp, err := api.Post(ctx, "/users", fetch.JSON(user), fetch.WithParam("notify", true))
//	if err != nil {
//	    var se *fetch.StatusError
//	    if errors.As(err, &se) {
//	        log.Printf("rejected: %d %s", se.Status(), se.Error())
//	    }
//	    return err
//	}
//	var created User
//	_ = resp.Unmarshal(&created)
package fetch
