// Package requestcontext carries request-scoped values from the HTTP
// middleware to services that do not import net/http.
//
// Tests inject values directly:
//
//	ctx = requestcontext.WithTime(ctx, fixedTime)
//	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.1", "Mozilla/5.0 ...")
package requestcontext

import (
	"context"
	"time"
)

type (
	clientKey      struct{}
	requestIDKey   struct{}
	requestTimeKey struct{}
)

// client is everything the verification record and the audit trail keep
// about the caller.
type client struct {
	ip        string
	userAgent string
	device    string
}

func clientFrom(ctx context.Context) client {
	c, _ := ctx.Value(clientKey{}).(client)
	return c
}

// ClientIP is the caller's address as resolved by the metadata middleware.
func ClientIP(ctx context.Context) string { return clientFrom(ctx).ip }

// UserAgent is the raw User-Agent header.
func UserAgent(ctx context.Context) string { return clientFrom(ctx).userAgent }

// Device is the parsed label, e.g. "Chrome on Android".
func Device(ctx context.Context) string { return clientFrom(ctx).device }

// WithClientMetadata records the caller's address and User-Agent, keeping any
// device label already present.
func WithClientMetadata(ctx context.Context, clientIP, userAgent string) context.Context {
	c := clientFrom(ctx)
	c.ip, c.userAgent = clientIP, userAgent
	return context.WithValue(ctx, clientKey{}, c)
}

func WithDevice(ctx context.Context, device string) context.Context {
	c := clientFrom(ctx)
	c.device = device
	return context.WithValue(ctx, clientKey{}, c)
}

func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// Now is the time the request arrived, so every write in one request shares a
// timestamp. Outside a request (workers, regctl) it is the current UTC time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey{}).(time.Time); ok {
		return t
	}
	return time.Now().UTC()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey{}, t)
}
