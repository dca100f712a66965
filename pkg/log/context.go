package log

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

type contextKey string

const requestContextKey contextKey = "scoutbot_request_context"

// RequestContext carries tracing data for one operator request or one outbound fetch.
type RequestContext struct {
	RequestID string    // 10-char base36 id, e.g. mgrn0zfqda
	Origin    string    // normalized origin the request targets, if any
	Source    string    // what triggered the request: http, cron, feed, cli
	StartTime time.Time
}

var (
	randSource  = rand.NewSource(time.Now().UnixNano())
	randMutex   sync.Mutex
	base36Chars = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// GenerateRequestID returns a random 10-character base36 id.
func GenerateRequestID() string {
	randMutex.Lock()
	defer randMutex.Unlock()

	b := make([]byte, 10)
	for i := range b {
		b[i] = base36Chars[randSource.Int63()%36]
	}
	return string(b)
}

// WithRequestContext stores tracing data in ctx.
func WithRequestContext(ctx context.Context, requestID, source string) context.Context {
	reqCtx := &RequestContext{
		RequestID: requestID,
		Source:    source,
		StartTime: time.Now(),
	}
	return context.WithValue(ctx, requestContextKey, reqCtx)
}

// WithOrigin returns a copy of ctx whose request context names origin.
// A fresh request id is generated when ctx carries none.
func WithOrigin(ctx context.Context, origin string) context.Context {
	prev, ok := ctx.Value(requestContextKey).(*RequestContext)
	next := &RequestContext{Origin: origin, StartTime: time.Now()}
	if ok {
		next.RequestID = prev.RequestID
		next.Source = prev.Source
		next.StartTime = prev.StartTime
	} else {
		next.RequestID = GenerateRequestID()
	}
	return context.WithValue(ctx, requestContextKey, next)
}

// GetRequestContext returns the tracing data in ctx, or an "unknown" placeholder.
func GetRequestContext(ctx context.Context) *RequestContext {
	if ctx != nil {
		if reqCtx, ok := ctx.Value(requestContextKey).(*RequestContext); ok {
			return reqCtx
		}
	}
	return &RequestContext{RequestID: "unknown"}
}

// GetRequestID returns the request id stored in ctx.
func GetRequestID(ctx context.Context) string {
	return GetRequestContext(ctx).RequestID
}

// GetElapsedTime returns the milliseconds since the request started.
func GetElapsedTime(ctx context.Context) int64 {
	reqCtx := GetRequestContext(ctx)
	if reqCtx.StartTime.IsZero() {
		return 0
	}
	return time.Since(reqCtx.StartTime).Milliseconds()
}
