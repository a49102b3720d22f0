package directory

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

func newTestClient(t *testing.T, h http.HandlerFunc) (*Client, *[]time.Duration) {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Options{BaseURL: srv.URL + "/", Token: "tok", RatePerSec: 1000, Burst: 100, MaxRetries: 3, RetryBase: time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	var slept []time.Duration
	c.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	return c, &slept
}

func TestNewClient_RequiresBaseURL(t *testing.T) {
	_, err := NewClient(Options{BaseURL: "  "})
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestListFeeds_DecodesAndSendsHeaders(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/feeds" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("authorization = %q", got)
		}
		w.Header().Set("ETag", `"v1"`)
		_ = json.NewEncoder(w).Encode([]domain.Feed{{ID: 1, Code: "STM", Name: "STM"}, {ID: 2, Code: "RTL"}})
	})

	feeds, etag, nm, err := c.ListFeeds(context.Background(), "")
	if err != nil {
		t.Fatalf("ListFeeds: %v", err)
	}
	if nm || etag != `"v1"` || len(feeds) != 2 || feeds[0].Code != "STM" {
		t.Fatalf("got feeds=%+v etag=%q nm=%v", feeds, etag, nm)
	}
}

func TestDo_RetriesTransientThenSucceeds(t *testing.T) {
	var calls atomic.Int32
	c, slept := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch calls.Add(1) {
		case 1:
			w.WriteHeader(http.StatusServiceUnavailable)
		case 2:
			w.Header().Set("Retry-After", "2")
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			_, _ = w.Write([]byte(`[{"system_id": 7, "name": "bixi"}]`))
		}
	})

	systems, _, _, err := c.ListSharingSystems(context.Background(), "")
	if err != nil {
		t.Fatalf("ListSharingSystems: %v", err)
	}
	if len(systems) != 1 || systems[0].Name != "bixi" {
		t.Fatalf("systems = %+v", systems)
	}
	if calls.Load() != 3 {
		t.Fatalf("calls = %d, want 3", calls.Load())
	}
	if len(*slept) != 2 || (*slept)[0] != time.Millisecond || (*slept)[1] != 2*time.Second {
		t.Fatalf("sleeps = %v", *slept)
	}
}

func TestDo_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	})

	_, _, _, err := c.ListRoutes(context.Background(), "")
	if !perr.IsCode(err, perr.ErrorCodeUpstream) {
		t.Fatalf("expected upstream error, got %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("calls = %d, want 1 + 3 retries", calls.Load())
	}
}

func TestDo_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "nope", http.StatusNotFound)
	})

	_, err := c.Do(context.Background(), "/missing", "")
	if !perr.IsCode(err, perr.ErrorCodeNotFound) || calls.Load() != 1 {
		t.Fatalf("err=%v calls=%d", err, calls.Load())
	}
	if !strings.Contains(err.Error(), "nope") {
		t.Fatalf("body should be in the error: %v", err)
	}
}

func TestDo_ContextCanceledStopsBackoff(t *testing.T) {
	c, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	c.sleep = sleepCtx

	ctx, cancel := context.WithCancel(context.Background())
	c.opts.RetryBase = time.Hour
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	_, err := c.Do(ctx, "/feeds", "")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestBackoffCaps(t *testing.T) {
	c := &Client{opts: Options{RetryBase: time.Second}}
	if c.backoff(0) != time.Second || c.backoff(3) != 8*time.Second {
		t.Fatalf("backoff = %v %v", c.backoff(0), c.backoff(3))
	}
	if c.backoff(10) != maxBackoff || c.backoff(80) != maxBackoff {
		t.Fatalf("backoff should cap at %v", maxBackoff)
	}
}

func TestRetryAfter(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	h := http.Header{}
	if retryAfter(h, now) != 0 {
		t.Fatalf("empty header should be 0")
	}
	h.Set("Retry-After", "5")
	if retryAfter(h, now) != 5*time.Second {
		t.Fatalf("seconds form: %v", retryAfter(h, now))
	}
	h.Set("Retry-After", now.Add(90*time.Second).Format(http.TimeFormat))
	if retryAfter(h, now) != 90*time.Second {
		t.Fatalf("date form: %v", retryAfter(h, now))
	}
	h.Set("Retry-After", "soon")
	if retryAfter(h, now) != 0 {
		t.Fatalf("garbage should be 0")
	}
}
