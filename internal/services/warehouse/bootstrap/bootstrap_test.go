package bootstrap

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/30blay/biz-stats/internal/adapters/directory"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	kit "github.com/30blay/biz-stats/internal/platform/testkit"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	whmod "github.com/30blay/biz-stats/internal/services/warehouse/module"
)

type nopTx struct{}

func (nopTx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (nopTx) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (nopTx) QueryRow(context.Context, string, ...any) store.Row             { return nil }
func (nopTx) Tx(_ context.Context, fn func(store.RowQuerier) error) error    { return fn(nopTx{}) }

const dirYAML = `
feeds:
  - {feed_id: 1, feed_code: STM, feed_name: STM, feed_network_name: Montreal}
`

const catYAML = `
metrics:
  - name: visits
    type: agency
    source: manual
    manual:
      "2024-01-01": {STM: 10}
`

func seams(t *testing.T) {
	t.Helper()
	kit.Serial(t)
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://localhost/bizstats")
	kit.Swap(t, &openStore, func(ctx context.Context, _ store.Config, opts ...store.Option) (*store.Store, error) {
		return store.Open(ctx, store.Config{}, append(opts, store.WithPG(nopTx{}))...)
	})
	kit.Swap(t, &openDirectory, func() (domain.Directory, error) {
		st, err := directory.DecodeStatic(strings.NewReader(dirYAML))
		if err != nil {
			return nil, err
		}
		return directory.NewSnapshot(st), nil
	})
}

func TestOpen_WiresCatalogAndWarehouse(t *testing.T) {
	seams(t)
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	if err := os.WriteFile(path, []byte(catYAML), 0o600); err != nil {
		t.Fatal(err)
	}

	env, err := Open(context.Background(), "test", whmod.Options{CatalogFile: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = env.Close(context.Background()) }()

	if _, err := env.Catalog.Lookup("visits"); err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if env.Warehouse.Typed().Catalog == nil || env.Deps.PG == nil {
		t.Fatalf("warehouse not wired")
	}
	feeds, err := env.Directory.Feeds(context.Background())
	if err != nil || len(feeds) != 1 || feeds[0].Code != "STM" {
		t.Fatalf("directory = %v %v", feeds, err)
	}
	if b := Backends(env.Store); b.Events != nil || b.Billing != nil {
		t.Fatalf("no stores configured, backends = %+v", b)
	}
}

func TestOpen_BadCatalog(t *testing.T) {
	seams(t)
	_, err := Open(context.Background(), "test", whmod.Options{CatalogFile: filepath.Join(t.TempDir(), "nope.yaml")})
	if !perr.IsCode(err, perr.ErrorCodeConfiguration) {
		t.Fatalf("err = %v, want Configuration", err)
	}
}
