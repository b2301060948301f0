package interceptors

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/jeffersonwarrior/fetchkit/fetch"
)

// RequestLogger logs outgoing requests at Info and transport failures at Warn.
// Credential headers are masked.
type RequestLogger struct {
	Logger logrus.FieldLogger
}

func (l RequestLogger) Fulfill(_ context.Context, o fetch.RequestOptions) (fetch.RequestOptions, error) {
	l.Logger.WithFields(logrus.Fields{
		"method":  o.Method,
		"url":     o.URL,
		"headers": MaskHeaders(o.Headers),
	}).Info("Sending request")
	return o, nil
}

func (l RequestLogger) Reject(_ context.Context, err error) (*fetch.Response, error) {
	entry := l.Logger.WithError(err)
	var te *fetch.TransportError
	if errors.As(err, &te) {
		entry = entry.WithFields(logrus.Fields{"method": te.Options.Method, "url": te.Options.URL})
	}
	entry.Warn("Request failed")
	return nil, nil
}

// ResponseLogger logs accepted responses at Info and rejected ones at Warn.
type ResponseLogger struct {
	Logger logrus.FieldLogger
}

func (l ResponseLogger) Fulfill(_ context.Context, r *fetch.Response) (*fetch.Response, error) {
	l.Logger.WithFields(responseFields(r)).Info("Received response")
	return r, nil
}

func (l ResponseLogger) Reject(_ context.Context, err error) (*fetch.Response, error) {
	entry := l.Logger.WithError(err)

	var se *fetch.StatusError
	var de *fetch.DecodeError
	switch {
	case errors.As(err, &se):
		entry = entry.WithFields(responseFields(se.Response))
	case errors.As(err, &de):
		entry = entry.WithFields(responseFields(de.Response))
	}
	entry.Warn("Response rejected")
	return nil, nil
}

func responseFields(r *fetch.Response) logrus.Fields {
	if r == nil {
		return logrus.Fields{}
	}
	return logrus.Fields{
		"method": r.Config.Method,
		"url":    r.Config.URL,
		"status": r.Status,
		"bytes":  len(r.Raw),
	}
}

// UseLogging registers a RequestLogger and a ResponseLogger on c. Register it
// last so the logged request reflects every earlier interceptor.
func UseLogging(c *fetch.Client, logger logrus.FieldLogger) (request, response fetch.Handle) {
	request = c.Interceptors.Request.UseHandler(RequestLogger{Logger: logger})
	response = c.Interceptors.Response.UseHandler(ResponseLogger{Logger: logger})
	return request, response
}
