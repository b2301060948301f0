// Package interceptors provides ready-made request and response interceptors
// for fetch clients.
//
// Key features:
//   - Bearer, API-key and basic authentication headers
//   - Request ID propagation (UUIDv4 via github.com/google/uuid)
//   - Structured request/response logging through logrus, with secrets masked
//   - Rate limit header parsing (IETF RateLimit-*, X-RateLimit-*, OpenAI, Anthropic, Retry-After)
//
// Example usage:
//
//	client := fetch.New(fetch.Config{
//	    Defaults: fetch.RequestOptions{BaseURL: "https://api.example.com"},
//	})
//	client.Interceptors.Request.Use(interceptors.Bearer(token), nil)
//	client.Interceptors.Request.Use(interceptors.RequestID(""), nil)
//	interceptors.UseLogging(client, logrus.StandardLogger())
//	client.Interceptors.Response.UseHandler(interceptors.RateLimit(func(info *interceptors.RateLimitInfo, resp *fetch.Response) {
//	    log.Printf("%s: %s", resp.Config.URL, info)
//	}))
package interceptors
