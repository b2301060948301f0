package journal

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jeffersonwarrior/fetchkit/fetch"
	"github.com/jeffersonwarrior/fetchkit/interceptors"
)

// pendingTTL bounds how long a start time waits for its outcome. Calls that
// fail in a later request interceptor never report back.
const pendingTTL = 10 * time.Minute

// Recorder turns interceptor callbacks into journal entries. Calls are
// correlated by request ID header, which the recorder adds when missing.
type Recorder struct {
	db     *DB
	header string
	logger logrus.FieldLogger
	now    func() time.Time

	mu      sync.Mutex
	pending map[string]time.Time
}

// NewRecorder creates a recorder writing to db. Write failures are logged to
// logger and never affect the call.
func NewRecorder(db *DB, logger logrus.FieldLogger) *Recorder {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Recorder{
		db:      db,
		header:  interceptors.RequestIDHeader,
		logger:  logger,
		now:     time.Now,
		pending: make(map[string]time.Time),
	}
}

// Install registers the recorder on c. Install it after the other request
// interceptors so the recorded URL and method are the ones dispatched.
func (r *Recorder) Install(c *fetch.Client) (request, response fetch.Handle) {
	request = c.Interceptors.Request.UseHandler(requestHook{r})
	response = c.Interceptors.Response.UseHandler(responseHook{r})
	return request, response
}

// Uninstall ejects the handles returned by Install.
func (r *Recorder) Uninstall(c *fetch.Client, request, response fetch.Handle) {
	c.Interceptors.Request.Eject(request)
	c.Interceptors.Response.Eject(response)
}

func (r *Recorder) start(o fetch.RequestOptions) fetch.RequestOptions {
	o.Headers = interceptors.EnsureRequestID(o.Headers, r.header)
	now := r.now()

	r.mu.Lock()
	defer r.mu.Unlock()
	for id, t := range r.pending {
		if now.Sub(t) > pendingTTL {
			delete(r.pending, id)
		}
	}
	r.pending[o.Headers.Get(r.header)] = now
	return o
}

func (r *Recorder) finish(o fetch.RequestOptions, status *int, kind string, cause error) {
	id := o.Headers.Get(r.header)
	now := r.now()

	r.mu.Lock()
	started, ok := r.pending[id]
	delete(r.pending, id)
	r.mu.Unlock()

	e := &Entry{
		RequestID:  id,
		Method:     string(o.Method),
		URL:        o.URL,
		StatusCode: status,
		CreatedAt:  now,
	}
	if ok {
		e.LatencyMs = now.Sub(started).Milliseconds()
	}
	if u, err := url.Parse(o.URL); err == nil {
		e.Host = u.Host
	}
	if cause != nil {
		msg := cause.Error()
		e.ErrorKind = &kind
		e.ErrorMessage = &msg
	}

	if err := r.db.Create(e); err != nil {
		r.logger.WithError(err).WithField("request_id", id).Warn("Failed to record journal entry")
	}
}

type requestHook struct{ r *Recorder }

func (h requestHook) Fulfill(_ context.Context, o fetch.RequestOptions) (fetch.RequestOptions, error) {
	return h.r.start(o), nil
}

func (h requestHook) Reject(_ context.Context, err error) (*fetch.Response, error) {
	var te *fetch.TransportError
	if errors.As(err, &te) {
		h.r.finish(te.Options, nil, KindTransport, err)
	}
	return nil, nil
}

type responseHook struct{ r *Recorder }

func (h responseHook) Fulfill(_ context.Context, resp *fetch.Response) (*fetch.Response, error) {
	status := resp.Status
	h.r.finish(resp.Config, &status, "", nil)
	return resp, nil
}

func (h responseHook) Reject(_ context.Context, err error) (*fetch.Response, error) {
	var se *fetch.StatusError
	var de *fetch.DecodeError
	switch {
	case errors.As(err, &se) && se.Response != nil:
		status := se.Response.Status
		h.r.finish(se.Options, &status, KindStatus, err)
	case errors.As(err, &de) && de.Response != nil:
		status := de.Response.Status
		h.r.finish(de.Response.Config, &status, KindDecode, err)
	default:
		h.r.logger.WithError(err).Debug("Journal skipped a failure without request options")
	}
	return nil, nil
}
