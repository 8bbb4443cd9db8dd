package apiclient

import (
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"
)

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// loggingTransport tags requests with an id and logs metadata only: no
// bodies, no Authorization header.
type loggingTransport struct {
	next http.RoundTripper
	log  *zap.Logger
}

func newLoggingTransport(next http.RoundTripper, log *zap.Logger) *loggingTransport {
	if next == nil {
		next = http.DefaultTransport
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &loggingTransport{next: next, log: log}
}

func (t *loggingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	rid := req.Header.Get(RequestIDHeader)
	if rid == "" {
		if id, err := uuid.NewV4(); err == nil {
			rid = id.String()
			req = req.Clone(req.Context())
			req.Header.Set(RequestIDHeader, rid)
		}
	}

	resp, err := t.next.RoundTrip(req)
	fields := []zap.Field{
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Duration("dur", time.Since(start)),
		zap.String("request_id", rid),
	}
	if err != nil {
		t.log.Warn("http", append(fields, zap.Error(err))...)
		return nil, err
	}
	t.log.Info("http", append(fields, zap.Int("status", resp.StatusCode))...)
	return resp, nil
}
