//go:build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startWarehouse(t *testing.T) *store.Store {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "warehouse",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}

	s, err := store.Open(ctx, store.Config{
		AppName: "bizstats-repo-it",
		PG: store.PGConfig{
			Enabled: true,
			URL:     fmt.Sprintf("postgres://postgres:postgres@%s:%s/warehouse?sslmode=disable", host, port.Port()),
		},
	}, store.WithLogger(zerolog.Nop()))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if _, err := s.Migrate(ctx, -1); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestWarehouseRepo_Integration(t *testing.T) {
	s := startWarehouse(t)
	ctx := context.Background()
	b := NewPG()

	start := time.Date(2020, 3, 1, 5, 0, 0, 0, time.UTC)
	hour := period.Floor(start, period.Hour)

	var (
		p1, p2 period.Period
		ent    domain.Entity
	)
	err := repokit.WithTx(ctx, s.PG, func(q repokit.Queryer) error {
		r := b.Bind(q)
		var err error
		if p1, err = r.EnsurePeriod(ctx, hour); err != nil {
			return err
		}
		if p2, err = r.EnsurePeriod(ctx, hour); err != nil {
			return err
		}
		ent, err = r.InsertEntity(ctx, domain.FeedEntity(42))
		return err
	})
	if err != nil {
		t.Fatalf("setup tx: %v", err)
	}
	if p1.ID == 0 || p1.ID != p2.ID {
		t.Fatalf("EnsurePeriod ids = %d, %d; want equal and non zero", p1.ID, p2.ID)
	}

	_, err = b.Bind(s.PG).InsertEntity(ctx, domain.FeedEntity(42))
	if !perr.IsDuplicateKey(err) {
		t.Fatalf("second InsertEntity = %v, want duplicate key", err)
	}
	bad := domain.Entity{Type: domain.EntityFeed}
	if _, err := b.Bind(s.PG).InsertEntity(ctx, bad); err == nil {
		t.Fatalf("entity with no reference accepted")
	}

	r := b.Bind(s.PG)
	if ok, err := r.FactsExist(ctx, domain.TableAgencies, p1.ID, "downloads"); err != nil || ok {
		t.Fatalf("FactsExist before write = %v, %v", ok, err)
	}

	t1 := start.Add(10 * time.Minute)
	fact := domain.AgencyFact{EntityID: ent.ID, PeriodID: p1.ID, Metric: "downloads", Value: 100, LastUpdate: t1}
	if n, err := r.InsertAgencyFacts(ctx, []domain.AgencyFact{fact}); err != nil || n != 1 {
		t.Fatalf("InsertAgencyFacts = %d, %v", n, err)
	}
	if _, err := r.InsertAgencyFacts(ctx, []domain.AgencyFact{fact}); !perr.IsDuplicateKey(err) {
		t.Fatalf("repeat insert = %v, want duplicate key", err)
	}

	t2 := start.Add(3 * time.Hour)
	fact.Value, fact.LastUpdate = 120, t2
	if _, err := r.MergeAgencyFacts(ctx, []domain.AgencyFact{fact}); err != nil {
		t.Fatalf("MergeAgencyFacts: %v", err)
	}

	latest, ok, err := r.LatestUpdate(ctx, domain.TableAgencies, p1.ID, "downloads")
	if err != nil || !ok || !latest.Equal(t2) {
		t.Fatalf("LatestUpdate = %v, %v, %v; want %v", latest, ok, err, t2)
	}

	rows, err := r.QueryAgencyFacts(ctx, domain.FactFilter{Metrics: []string{"downloads"}, Type: period.Hour, From: start, To: start})
	if err != nil || len(rows) != 1 {
		t.Fatalf("QueryAgencyFacts = %+v, %v", rows, err)
	}
	if rows[0].Value != 120 || rows[0].Ref != 42 || rows[0].EntityType != domain.EntityFeed {
		t.Fatalf("agency row = %+v", rows[0])
	}

	rf := []domain.RouteFact{
		{GlobalRouteID: 7, FeedID: 42, PeriodID: p1.ID, Metric: "route_hits", Value: 5, LastUpdate: t1},
		{GlobalRouteID: 8, FeedID: 42, PeriodID: p1.ID, Metric: "route_hits", Value: 9, LastUpdate: t1},
	}
	if n, err := r.InsertRouteFacts(ctx, rf); err != nil || n != 2 {
		t.Fatalf("InsertRouteFacts = %d, %v", n, err)
	}
	rf[0].Value = 6
	if _, err := r.MergeRouteFacts(ctx, rf[:1]); err != nil {
		t.Fatalf("MergeRouteFacts: %v", err)
	}
	routes, err := r.QueryRouteFacts(ctx, domain.FactFilter{PeriodID: p1.ID, FeedIDs: []int64{42}})
	if err != nil || len(routes) != 2 || routes[0].Value != 6 {
		t.Fatalf("QueryRouteFacts = %+v, %v", routes, err)
	}

	if _, err := r.FactsExist(ctx, domain.FactTable("users; drop table periods"), p1.ID, "x"); err == nil {
		t.Fatalf("unknown table accepted")
	}
}
