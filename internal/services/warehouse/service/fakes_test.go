package service

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/store"
	"github.com/30blay/biz-stats/internal/platform/testkit"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/repo"
)

type periodKey struct {
	start int64
	typ   period.Type
}

type agencyKey struct {
	entity, period int64
	metric         string
}

type routeKey struct {
	route, period int64
	metric        string
}

// memStore is an in-memory repo.Storage; fakeTx snapshots it to give tx semantics
type memStore struct {
	mu sync.Mutex

	nextID   int64
	periods  map[periodKey]period.Period
	byID     map[int64]period.Period
	entities []domain.Entity
	agency   map[agencyKey]domain.AgencyFact
	routes   map[routeKey]domain.RouteFact

	// raceInserts makes the next fact insert fail as if another writer got there first
	raceInserts int
	// raceEntity lands as a committed write when the next tx begins
	raceEntity *domain.Entity

	inserts, merges int
}

func newMem() *memStore {
	return &memStore{
		periods: map[periodKey]period.Period{},
		byID:    map[int64]period.Period{},
		agency:  map[agencyKey]domain.AgencyFact{},
		routes:  map[routeKey]domain.RouteFact{},
	}
}

type memSnap struct {
	nextID   int64
	periods  map[periodKey]period.Period
	byID     map[int64]period.Period
	entities []domain.Entity
	agency   map[agencyKey]domain.AgencyFact
	routes   map[routeKey]domain.RouteFact
}

func (m *memStore) snapshot() memSnap {
	m.mu.Lock()
	defer m.mu.Unlock()
	return memSnap{
		nextID:   m.nextID,
		periods:  maps.Clone(m.periods),
		byID:     maps.Clone(m.byID),
		entities: slices.Clone(m.entities),
		agency:   maps.Clone(m.agency),
		routes:   maps.Clone(m.routes),
	}
}

func (m *memStore) restore(s memSnap) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID, m.periods, m.byID, m.entities, m.agency, m.routes =
		s.nextID, s.periods, s.byID, s.entities, s.agency, s.routes
}

func (m *memStore) id() int64 { m.nextID++; return m.nextID }

func (m *memStore) EnsurePeriod(_ context.Context, p period.Period) (period.Period, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := periodKey{p.Start.UnixNano(), p.Type}
	if got, ok := m.periods[k]; ok {
		return got, nil
	}
	p.ID = m.id()
	m.periods[k] = p
	m.byID[p.ID] = p
	return p, nil
}

func (m *memStore) FindPeriod(_ context.Context, p period.Period) (period.Period, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, ok := m.periods[periodKey{p.Start.UnixNano(), p.Type}]
	return got, ok, nil
}

func (m *memStore) ListEntities(context.Context) ([]domain.Entity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.entities), nil
}

func (m *memStore) landRace() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceEntity == nil {
		return
	}
	e := *m.raceEntity
	m.raceEntity = nil
	e.ID = m.id()
	m.entities = append(m.entities, e)
}

func (m *memStore) InsertEntity(_ context.Context, e domain.Entity) (domain.Entity, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.entities {
		if x.Type == e.Type && x.Ref() == e.Ref() {
			return e, perr.DuplicateKeyf("entity %s %d exists", e.Type, e.Ref())
		}
	}
	e.ID = m.id()
	m.entities = append(m.entities, e)
	return e, nil
}

func (m *memStore) InsertAgencyFacts(_ context.Context, xs []domain.AgencyFact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.raceInserts > 0 {
		m.raceInserts--
		return 0, perr.DuplicateKeyf("fact_agencies_pkey")
	}
	for _, f := range xs {
		k := agencyKey{f.EntityID, f.PeriodID, f.Metric}
		if _, ok := m.agency[k]; ok {
			return 0, perr.DuplicateKeyf("fact_agencies_pkey")
		}
		m.agency[k] = f
	}
	m.inserts++
	return int64(len(xs)), nil
}

func (m *memStore) MergeAgencyFacts(_ context.Context, xs []domain.AgencyFact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range xs {
		m.agency[agencyKey{f.EntityID, f.PeriodID, f.Metric}] = f
	}
	m.merges++
	return int64(len(xs)), nil
}

func (m *memStore) InsertRouteFacts(_ context.Context, xs []domain.RouteFact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range xs {
		k := routeKey{f.GlobalRouteID, f.PeriodID, f.Metric}
		if _, ok := m.routes[k]; ok {
			return 0, perr.DuplicateKeyf("fact_routes_pkey")
		}
		m.routes[k] = f
	}
	m.inserts++
	return int64(len(xs)), nil
}

func (m *memStore) MergeRouteFacts(_ context.Context, xs []domain.RouteFact) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, f := range xs {
		m.routes[routeKey{f.GlobalRouteID, f.PeriodID, f.Metric}] = f
	}
	m.merges++
	return int64(len(xs)), nil
}

func (m *memStore) FactsExist(_ context.Context, table domain.FactTable, periodID int64, metric string) (bool, error) {
	_, ok, err := m.LatestUpdate(context.Background(), table, periodID, metric)
	return ok, err
}

func (m *memStore) LatestUpdate(_ context.Context, table domain.FactTable, periodID int64, metric string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var (
		last time.Time
		ok   bool
	)
	seen := func(pid int64, met string, at time.Time) {
		if pid == periodID && met == metric && (!ok || at.After(last)) {
			last, ok = at, true
		}
	}
	switch table {
	case domain.TableAgencies:
		for _, f := range m.agency {
			seen(f.PeriodID, f.Metric, f.LastUpdate)
		}
	case domain.TableRoutes:
		for _, f := range m.routes {
			seen(f.PeriodID, f.Metric, f.LastUpdate)
		}
	default:
		return last, false, perr.Configurationf("unknown fact table %q", table)
	}
	return last, ok, nil
}

func (m *memStore) keep(f domain.FactFilter, periodID int64, metric string) (period.Period, bool) {
	p := m.byID[periodID]
	switch {
	case len(f.Metrics) > 0 && !slices.Contains(f.Metrics, metric):
		return p, false
	case f.PeriodID != 0 && f.PeriodID != periodID:
		return p, false
	case f.Type != "" && f.Type != p.Type:
		return p, false
	case !f.From.IsZero() && p.Start.Before(f.From):
		return p, false
	case !f.To.IsZero() && p.Start.After(f.To):
		return p, false
	}
	return p, true
}

func (m *memStore) QueryAgencyFacts(_ context.Context, f domain.FactFilter) ([]domain.FactRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ents := map[int64]domain.Entity{}
	for _, e := range m.entities {
		ents[e.ID] = e
	}
	var out []domain.FactRow
	for _, x := range m.agency {
		if len(f.EntityIDs) > 0 && !slices.Contains(f.EntityIDs, x.EntityID) {
			continue
		}
		p, ok := m.keep(f, x.PeriodID, x.Metric)
		if !ok {
			continue
		}
		e := ents[x.EntityID]
		r := domain.FactRow{
			EntityType:  e.Type,
			Ref:         e.Ref(),
			Metric:      x.Metric,
			PeriodStart: p.Start,
			Value:       x.Value,
			LastUpdate:  x.LastUpdate,
		}
		if e.Type == domain.EntityFeed {
			r.FeedID = r.Ref
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) QueryRouteFacts(_ context.Context, f domain.FactFilter) ([]domain.FactRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.FactRow
	for _, x := range m.routes {
		if len(f.FeedIDs) > 0 && !slices.Contains(f.FeedIDs, x.FeedID) {
			continue
		}
		p, ok := m.keep(f, x.PeriodID, x.Metric)
		if !ok {
			continue
		}
		out = append(out, domain.FactRow{
			Ref:         x.GlobalRouteID,
			FeedID:      x.FeedID,
			Metric:      x.Metric,
			PeriodStart: p.Start,
			Value:       x.Value,
			LastUpdate:  x.LastUpdate,
		})
	}
	return out, nil
}

func (m *memStore) agencyValue(entityID int64, p period.Period, metric string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	got, ok := m.periods[periodKey{p.Start.UnixNano(), p.Type}]
	if !ok {
		return 0, false
	}
	f, ok := m.agency[agencyKey{entityID, got.ID, metric}]
	return f.Value, ok
}

func (m *memStore) count() (agency, routes int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.agency), len(m.routes)
}

var _ repo.Storage = (*memStore)(nil)

// fakeTx rolls memStore back when fn fails
type fakeTx struct{ mem *memStore }

func (f fakeTx) Exec(context.Context, string, ...any) (store.CommandTag, error) { return nil, nil }
func (f fakeTx) Query(context.Context, string, ...any) (store.Rows, error)      { return nil, nil }
func (f fakeTx) QueryRow(context.Context, string, ...any) store.Row             { return nil }

func (f fakeTx) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error {
	f.mem.landRace()
	snap := f.mem.snapshot()
	if err := fn(f); err != nil {
		f.mem.restore(snap)
		return err
	}
	return nil
}

// fakeMetric returns a copy of vals on every fetch
type fakeMetric struct {
	mu    sync.Mutex
	name  string
	typ   domain.MetricType
	vals  map[string]float64
	err   error
	calls int
}

func (m *fakeMetric) Name() string            { return m.name }
func (m *fakeMetric) Type() domain.MetricType { return m.typ }

func (m *fakeMetric) Fetch(ctx context.Context, _ period.Period, group []string) (map[string]float64, error) {
	if group != nil {
		return nil, domain.ErrGroupingUnsupported
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return maps.Clone(m.vals), nil
}

func (m *fakeMetric) set(vals map[string]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.vals = vals
}

func (m *fakeMetric) fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

type fakeRatio struct {
	name     string
	num, den domain.Metric
}

func (r fakeRatio) Name() string                             { return r.name }
func (r fakeRatio) Type() domain.MetricType                  { return r.num.Type() }
func (r fakeRatio) Operands() (domain.Metric, domain.Metric) { return r.num, r.den }
func (r fakeRatio) Fetch(ctx context.Context, p period.Period, g []string) (map[string]float64, error) {
	return nil, perr.Configurationf("ratio %s is derived", r.name)
}

// fakeDir is a fixed directory snapshot
type fakeDir struct{}

func (fakeDir) Feeds(context.Context) ([]domain.Feed, error) {
	return []domain.Feed{
		{ID: 1, Code: "feedA", Name: "Agency A"},
		{ID: 2, Code: "feedB", Name: "Agency B"},
	}, nil
}

func (fakeDir) SharingSystems(context.Context) ([]domain.SharingSystem, error) {
	return []domain.SharingSystem{{ID: 10, Name: "bixi"}}, nil
}

func (fakeDir) Routes(context.Context) ([]domain.Route, error) {
	return []domain.Route{
		{GlobalRouteID: 100, FeedID: 1, ShortName: "10"},
		{GlobalRouteID: 101, FeedID: 1, ShortName: "11"},
		{GlobalRouteID: 102, FeedID: 1, LongName: "Crosstown"},
		{GlobalRouteID: 200, FeedID: 2, ShortName: "A"},
	}, nil
}

type rig struct {
	svc   *Svc
	mem   *memStore
	clock *testkit.Clock
}

func newRig(cfg Config, now time.Time) rig {
	mem := newMem()
	clock := testkit.NewClock(now)
	b := repokit.BindFunc[repo.Storage](func(repokit.Queryer) repo.Storage { return mem })
	svc := New(modkit.Deps{PG: fakeTx{mem: mem}}, fakeDir{}, cfg, WithBinder(b), WithClock(clock.Now))
	return rig{svc: svc, mem: mem, clock: clock}
}

func modkitDepsZero() modkit.Deps { return modkit.Deps{} }

func agencyMetric(name string, vals map[string]float64) *fakeMetric {
	return &fakeMetric{name: name, typ: domain.MetricAgency, vals: vals}
}
