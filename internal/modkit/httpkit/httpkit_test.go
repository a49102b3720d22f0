package httpkit

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/30blay/biz-stats/internal/platform/config"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
)

type echoIn struct {
	Metric string `json:"metric" validate:"required"`
}

func TestMountAPIV1_WithCommonStack(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	MountAPIV1(r, CommonStack(StackOptions{}), func(api Router) {
		Get(api, "/hello", func(*http.Request) (any, error) { return "hi", nil })
		PostJSON(api, "/echo", func(_ *http.Request, in echoIn) (any, error) {
			if in.Metric == "later" {
				return Accepted(in.Metric), nil
			}
			return in.Metric, nil
		})
		Get(api, "/missing", func(*http.Request) (any, error) { return nil, perr.NotFoundf("nope") })
		Get(api, "/panic", func(*http.Request) (any, error) { panic("boom") })
	})

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/v1/hello", "", http.StatusOK},
		{http.MethodPost, "/api/v1/echo", `{"metric":"sales"}`, http.StatusOK},
		{http.MethodPost, "/api/v1/echo", `{"metric":"later"}`, http.StatusAccepted},
		{http.MethodPost, "/api/v1/echo", `{}`, http.StatusBadRequest},
		{http.MethodGet, "/api/v1/missing", "", http.StatusNotFound},
		{http.MethodGet, "/api/v1/panic", "", http.StatusInternalServerError},
		{http.MethodGet, "/hello", "", http.StatusNotFound},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(c.method, c.path, strings.NewReader(c.body))
		r.Mux().ServeHTTP(rec, req)
		if rec.Code != c.want {
			t.Errorf("%s %s = %d, want %d (%s)", c.method, c.path, rec.Code, c.want, rec.Body.String())
			continue
		}
		if c.want == http.StatusNotFound && c.path == "/hello" {
			continue
		}
		var env Envelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Errorf("%s: body is not an envelope: %v", c.path, err)
		}
		if env.RequestID == "" {
			t.Errorf("%s: envelope missing request id", c.path)
		}
		if rec.Header().Get("Cache-Control") == "" {
			t.Errorf("%s: NoCache not applied", c.path)
		}
	}
}

func TestStackFromConfig(t *testing.T) {
	t.Setenv("CORE_API_TIMEOUT", "90s")
	t.Setenv("CORE_API_CORS_ORIGINS", "https://a.example, https://b.example")
	o := StackFromConfig(config.New().Prefix("CORE_API_"))
	if o.Timeout != 90*time.Second || o.SlowRequest != 2*time.Second || len(o.CORSOrigins) != 2 {
		t.Fatalf("StackFromConfig = %+v", o)
	}
}
