package module

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/30blay/biz-stats/internal/modkit"
	phttp "github.com/30blay/biz-stats/internal/platform/net/http"
	"github.com/30blay/biz-stats/internal/platform/store"
)

type pingTx struct{ store.TxRunner }

func (pingTx) Ping(context.Context) error { return nil }

func TestNew_Checks(t *testing.T) {
	m := New(modkit.Deps{PG: pingTx{}})
	if m.Name() != "meta" || m.Ports() != nil {
		t.Fatalf("module = %s", m.Name())
	}
	if len(m.checks) != 2 || m.checks[0].Pinger == nil || m.checks[1].Pinger != nil {
		t.Fatalf("checks = %+v", m.checks)
	}

	m = New(modkit.Deps{Billing: &sql.DB{}})
	if len(m.checks) != 3 || m.checks[2].Name != "billing" {
		t.Fatalf("billing check missing: %+v", m.checks)
	}
}

func TestMountRoutes(t *testing.T) {
	r := phttp.AdaptChi(chi.NewRouter())
	New(modkit.Deps{PG: pingTx{}}).MountRoutes(r)
	rec := httptest.NewRecorder()
	r.Mux().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/meta/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("/meta/health = %d", rec.Code)
	}
}
