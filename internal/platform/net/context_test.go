package net_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/30blay/biz-stats/internal/platform/logger"
	pnet "github.com/30blay/biz-stats/internal/platform/net"
)

func TestWithRequest(t *testing.T) {
	base := context.Background()

	if ctx := pnet.WithRequest(base, ""); ctx != base {
		t.Fatalf("empty id should leave ctx untouched")
	}
	if got := pnet.RequestID(base); got != "" {
		t.Fatalf("RequestID(empty ctx) = %q", got)
	}

	ctx := pnet.WithRequest(base, "req-123")
	if got := pnet.RequestID(ctx); got != "req-123" {
		t.Fatalf("RequestID = %q, want req-123", got)
	}

	var buf bytes.Buffer
	l := logger.C(ctx).Output(&buf).Level(zerolog.InfoLevel)
	l.Info().Msg("hello")
	if !strings.Contains(buf.String(), `"request_id":"req-123"`) {
		t.Fatalf("logger should carry the request id, got %s", buf.String())
	}
}
