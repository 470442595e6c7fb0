package observability

import (
	"context"
)

// Context keys for observability data.
type contextKey string

const (
	requestIDKey contextKey = "request_id"
	queryHashKey contextKey = "query_hash"
	clientIPKey  contextKey = "client_ip"
)

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from context.
// Returns empty string if not present.
func RequestIDFromContext(ctx context.Context) string {
	if v := ctx.Value(requestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithQueryHash adds the cache key of the query being served to the context.
func WithQueryHash(ctx context.Context, queryHash string) context.Context {
	return context.WithValue(ctx, queryHashKey, queryHash)
}

// QueryHashFromContext retrieves the query hash from context.
// Returns empty string if not present.
func QueryHashFromContext(ctx context.Context) string {
	if v := ctx.Value(queryHashKey); v != nil {
		if h, ok := v.(string); ok {
			return h
		}
	}
	return ""
}

// WithClientIP adds the originating client IP to the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIPFromContext retrieves the client IP from context.
// Returns empty string if not present.
func ClientIPFromContext(ctx context.Context) string {
	if v := ctx.Value(clientIPKey); v != nil {
		if ip, ok := v.(string); ok {
			return ip
		}
	}
	return ""
}

// RequestContext contains all the context data for a single API request.
type RequestContext struct {
	RequestID string
	QueryHash string
	ClientIP  string
}

// WithRequestContextFull adds all request context to the context.
func WithRequestContextFull(ctx context.Context, rc RequestContext) context.Context {
	if rc.RequestID != "" {
		ctx = WithRequestID(ctx, rc.RequestID)
	}
	if rc.QueryHash != "" {
		ctx = WithQueryHash(ctx, rc.QueryHash)
	}
	if rc.ClientIP != "" {
		ctx = WithClientIP(ctx, rc.ClientIP)
	}
	return ctx
}

// RequestContextFromContext extracts all request context from the context.
func RequestContextFromContext(ctx context.Context) RequestContext {
	return RequestContext{
		RequestID: RequestIDFromContext(ctx),
		QueryHash: QueryHashFromContext(ctx),
		ClientIP:  ClientIPFromContext(ctx),
	}
}
