// Package middleware provides HTTP middleware for request logging.
package middleware

import (
	"context"
	"strings"
	"time"

	pkglog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/errors"
	"github.com/go-kratos/kratos/v2/middleware"
	"github.com/go-kratos/kratos/v2/transport"
	"github.com/go-kratos/kratos/v2/transport/http"
)

// requestInfo is what the access log records about one operator request.
type requestInfo struct {
	source    string
	operation string
	method    string
	path      string
	ip        string
	userAgent string
	requestID string
}

func describeRequest(ctx context.Context) requestInfo {
	info := requestInfo{source: "grpc"}
	tr, ok := transport.FromServerContext(ctx)
	if !ok {
		return info
	}
	info.operation = tr.Operation()
	info.method = tr.Operation()
	info.path = tr.Operation()

	ht, ok := tr.(http.Transporter)
	if !ok {
		return info
	}
	r := ht.Request()
	info.source = "http"
	info.method = r.Method
	info.path = r.URL.Path
	if r.URL.RawQuery != "" {
		info.path += "?" + r.URL.RawQuery
	}
	info.ip = extractClientIP(r)
	info.userAgent = r.Header.Get("User-Agent")
	info.requestID = r.Header.Get("X-Request-ID")
	return info
}

// Logging returns a middleware that logs every operator request with its status
// and duration, and stores a request context for downstream logs. Failed requests
// also carry the kratos error reason.
//
// Example output:
//
//	🟠 POST /v1/origins/unknown.example/reset - 404 (1ms) | RequestID: mgrn0zfqda
func Logging(logger *pkglog.LogHelper) middleware.Middleware {
	return func(handler middleware.Handler) middleware.Handler {
		return func(ctx context.Context, req interface{}) (interface{}, error) {
			start := time.Now()
			info := describeRequest(ctx)
			if info.requestID == "" {
				info.requestID = pkglog.GenerateRequestID()
			}
			ctx = pkglog.WithRequestContext(ctx, info.requestID, info.source)

			reply, err := handler(ctx, req)

			status := 200
			kvs := []interface{}{
				"operation", info.operation,
				"ip", info.ip,
				"user_agent", info.userAgent,
			}
			if err != nil {
				var reason string
				status, reason = errorStatus(err)
				kvs = append(kvs, "reason", reason)
			}
			logger.Request(ctx, info.method, info.path, status, time.Since(start).Milliseconds(), kvs...)

			return reply, err
		}
	}
}

// extractClientIP returns the client address.
// Priority: X-Real-IP > X-Forwarded-For > RemoteAddr
func extractClientIP(req *http.Request) string {
	if ip := req.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if forwarded := req.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		return strings.TrimSpace(first)
	}
	return req.RemoteAddr
}

// errorStatus maps err to its HTTP status and kratos reason. Plain errors are 500.
func errorStatus(err error) (int, string) {
	se := errors.FromError(err)
	return int(se.Code), se.Reason
}
