// Package net carries request scoped ids between the router and the logger
package net

import (
	"context"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/30blay/biz-stats/internal/platform/logger"
)

// WithRequest stores reqID where both chi and the logger look for it
func WithRequest(ctx context.Context, reqID string) context.Context {
	if reqID == "" {
		return ctx
	}
	ctx = context.WithValue(ctx, chimw.RequestIDKey, reqID)
	return logger.WithRequest(ctx, reqID)
}

// RequestID returns the request id on ctx, empty when unset
func RequestID(ctx context.Context) string { return chimw.GetReqID(ctx) }
