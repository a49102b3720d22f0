package service

import (
	"context"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/repo"
)

// LoadBetween implements domain.LoaderPort
func (s *Svc) LoadBetween(ctx context.Context, start, stop time.Time, typ period.Type, metrics []domain.Metric) (domain.LoadReport, error) {
	if !typ.Valid() {
		return domain.LoadReport{}, perr.InvalidArgf("unknown period type %q", typ)
	}
	return s.Load(ctx, period.Between(start, stop, typ), metrics)
}

// Load implements domain.LoaderPort
// every period type and metric is validated before any period is touched
func (s *Svc) Load(ctx context.Context, periods []period.Period, metrics []domain.Metric) (domain.LoadReport, error) {
	runID := logger.RunID(ctx)
	if runID == "" {
		runID = uuid.NewString()
	}
	rep := domain.LoadReport{RunID: runID, Started: s.now(), Periods: len(periods)}
	ctx = logger.WithRun(ctx, runID)
	log := logger.C(ctx)
	began := time.Now()
	defer func() { loadDuration.Observe(time.Since(began).Seconds()) }()

	for _, p := range periods {
		if !p.Type.Valid() {
			return rep, perr.InvalidArgf("unknown period type %q", p.Type)
		}
	}
	stored, err := storedMetrics(metrics)
	if err != nil {
		return rep, err
	}
	for _, m := range stored {
		rep.Metrics = append(rep.Metrics, m.Name())
	}

	keys, err := s.keyMaps(ctx, stored)
	if err != nil {
		return rep, err
	}

	t := &tally{rep: &rep}
	for _, m := range stored {
		if err := s.loadMetric(ctx, m, periods, keys, t); err != nil {
			rep.Finished = s.now()
			return rep, err
		}
		log.Info().
			Str("metric", m.Name()).
			Int("periods", len(periods)).
			Msg("metric loaded")
	}
	rep.Finished = s.now()
	log.Info().
		Int("written", rep.Written).
		Int("merged", rep.Merged).
		Int("fresh", rep.Fresh).
		Int("empty", rep.Empty).
		Int("dropped", rep.Dropped).
		Int("skipped", len(rep.Skipped)).
		Msg("load finished")
	return rep, nil
}

// storedMetrics validates types and swaps ratios for their operands, first occurrence wins
func storedMetrics(metrics []domain.Metric) ([]domain.Metric, error) {
	var out []domain.Metric
	seen := map[string]bool{}
	var add func(m domain.Metric) error
	add = func(m domain.Metric) error {
		if r, ok := m.(domain.RatioMetric); ok {
			num, den := r.Operands()
			if err := add(num); err != nil {
				return err
			}
			return add(den)
		}
		if _, err := domain.TableFor(m.Type()); err != nil {
			return perr.WithField(err, m.Name())
		}
		if !seen[m.Name()] {
			seen[m.Name()] = true
			out = append(out, m)
		}
		return nil
	}
	for _, m := range metrics {
		if m == nil {
			return nil, perr.Configurationf("nil metric")
		}
		if err := add(m); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// tally guards the report when periods load in parallel
type tally struct {
	mu  sync.Mutex
	rep *domain.LoadReport
}

func (t *tally) add(fn func(r *domain.LoadReport)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fn(t.rep)
}

func (s *Svc) loadMetric(ctx context.Context, m domain.Metric, periods []period.Period, keys keyMaps, t *tally) error {
	var (
		wg    sync.WaitGroup
		once  sync.Once
		fatal error
	)
	sem := make(chan struct{}, s.cfg.Workers)
	fail := func(err error) { once.Do(func() { fatal = err }) }

loop:
	for _, p := range periods {
		select {
		case <-ctx.Done():
			fail(ctx.Err())
			break loop
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(p period.Period) {
			defer func() { <-sem; wg.Done() }()
			if err := s.loadPair(ctx, m, p, keys, t); err != nil {
				fail(err)
			}
		}(p)
	}
	wg.Wait()
	return fatal
}

// loadPair handles one (metric, period); only fatal errors are returned
func (s *Svc) loadPair(ctx context.Context, m domain.Metric, p period.Period, keys keyMaps, t *tally) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	log := logger.C(ctx)
	name := m.Name()

	p, err := s.ensurePeriod(ctx, p)
	if err != nil {
		return err
	}

	need, err := s.NeedsRecompute(ctx, s.binder.Bind(s.db), p, m, nil)
	if err != nil {
		return err
	}
	if !need {
		t.add(func(r *domain.LoadReport) { r.Fresh++ })
		loadPairs.WithLabelValues(name, "fresh").Inc()
		return nil
	}

	vals, err := m.Fetch(ctx, p, nil)
	if err != nil {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		log.Warn().Err(err).Str("metric", name).Stringer("period", p).Msg("fetch failed, pair skipped")
		t.add(func(r *domain.LoadReport) {
			r.Skipped = append(r.Skipped, domain.SkippedPair{Metric: name, Period: p, Reason: err.Error()})
		})
		loadPairs.WithLabelValues(name, "skipped").Inc()
		return nil
	}

	vals = finite(vals)
	if len(vals) == 0 {
		t.add(func(r *domain.LoadReport) { r.Empty++ })
		loadPairs.WithLabelValues(name, "empty").Inc()
		return nil
	}

	b, dropped := keys.batch(m, p, vals, s.now().UTC())
	if dropped > 0 {
		log.Debug().Str("metric", name).Stringer("period", p).Int("dropped", dropped).Msg("unmapped keys dropped")
		keysDropped.WithLabelValues(name).Add(float64(dropped))
		t.add(func(r *domain.LoadReport) { r.Dropped += dropped })
	}
	if b.size == 0 {
		t.add(func(r *domain.LoadReport) { r.Empty++ })
		loadPairs.WithLabelValues(name, "empty").Inc()
		return nil
	}

	merged, err := s.upsert(ctx, p, name, b)
	if err != nil {
		return err
	}
	mode := "insert"
	if merged {
		mode = "merge"
	}
	factsWritten.WithLabelValues(string(b.table), mode).Add(float64(b.size))
	loadPairs.WithLabelValues(name, mode).Inc()
	t.add(func(r *domain.LoadReport) {
		if merged {
			r.Merged += b.size
		} else {
			r.Written += b.size
		}
	})
	return nil
}

// ensurePeriod get-or-creates p; a lost insert race is re-read
func (s *Svc) ensurePeriod(ctx context.Context, p period.Period) (period.Period, error) {
	if p.ID != 0 {
		return p, nil
	}
	p = period.Floor(p.Start, p.Type)
	var out period.Period
	err := s.db.Tx(ctx, func(q repokit.Queryer) error {
		var err error
		out, err = s.binder.Bind(q).EnsurePeriod(ctx, p)
		return err
	})
	if perr.IsDuplicateKey(err) {
		found, ok, ferr := s.binder.Bind(s.db).FindPeriod(ctx, p)
		if ferr != nil {
			return p, ferr
		}
		if ok {
			return found, nil
		}
	}
	return out, err
}

// upsert writes one batch atomically, insert when nothing is stored yet, merge otherwise
// a concurrent writer that wins the insert race turns it into a merge
func (s *Svc) upsert(ctx context.Context, p period.Period, metric string, b factBatch) (merged bool, err error) {
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		st := s.binder.Bind(q)
		exists, err := st.FactsExist(ctx, b.table, p.ID, metric)
		if err != nil {
			return err
		}
		if exists {
			merged = true
			_, err = b.merge(ctx, st)
			return err
		}
		_, err = b.insert(ctx, st)
		return err
	})
	if err == nil || !perr.IsDuplicateKey(err) {
		return merged, err
	}
	err = s.db.Tx(ctx, func(q repokit.Queryer) error {
		_, err := b.merge(ctx, s.binder.Bind(q))
		return err
	})
	return true, err
}

// factBatch is one (metric, period) worth of facts for either table
type factBatch struct {
	table  domain.FactTable
	size   int
	insert func(context.Context, repo.Storage) (int64, error)
	merge  func(context.Context, repo.Storage) (int64, error)
}

// keyMaps turns fetched keys into storage ids
type keyMaps struct {
	feedEntity   map[string]int64 // feed code -> entity id
	systemEntity map[string]int64 // system name -> entity id
	routeFeed    map[int64]int64  // global route id -> feed id
}

// keyMaps reads the directory once per load and syncs entities for it
func (s *Svc) keyMaps(ctx context.Context, metrics []domain.Metric) (keyMaps, error) {
	var needAgency, needRoutes bool
	for _, m := range metrics {
		switch m.Type() {
		case domain.MetricAgency, domain.MetricSharingService:
			needAgency = true
		case domain.MetricRoute:
			needRoutes = true
		}
	}
	k := keyMaps{
		feedEntity:   map[string]int64{},
		systemEntity: map[string]int64{},
		routeFeed:    map[int64]int64{},
	}

	if needAgency {
		feeds, err := s.dir.Feeds(ctx)
		if err != nil {
			return k, err
		}
		systems, err := s.dir.SharingSystems(ctx)
		if err != nil {
			return k, err
		}
		if _, err := s.Sync(ctx, feeds, systems); err != nil {
			return k, err
		}
		for _, f := range feeds {
			if id, ok := s.idx.feed(f.ID); ok {
				k.feedEntity[f.Code] = id
			}
		}
		for _, sys := range systems {
			if id, ok := s.idx.system(sys.ID); ok {
				k.systemEntity[sys.Name] = id
			}
		}
	}

	if needRoutes {
		routes, err := s.dir.Routes(ctx)
		if err != nil {
			return k, err
		}
		for _, r := range routes {
			k.routeFeed[r.GlobalRouteID] = r.FeedID
		}
	}
	return k, nil
}

// batch builds the facts for vals, returning how many keys did not map
func (k keyMaps) batch(m domain.Metric, p period.Period, vals map[string]float64, now time.Time) (factBatch, int) {
	name := m.Name()
	dropped := 0

	if m.Type() == domain.MetricRoute {
		facts := make([]domain.RouteFact, 0, len(vals))
		for key, v := range vals {
			rid, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
			if err != nil {
				dropped++
				continue
			}
			feedID, ok := k.routeFeed[rid]
			if !ok {
				dropped++
				continue
			}
			facts = append(facts, domain.RouteFact{
				GlobalRouteID: rid,
				FeedID:        feedID,
				PeriodID:      p.ID,
				Metric:        name,
				Value:         v,
				LastUpdate:    now,
			})
		}
		return factBatch{
			table:  domain.TableRoutes,
			size:   len(facts),
			insert: func(ctx context.Context, st repo.Storage) (int64, error) { return st.InsertRouteFacts(ctx, facts) },
			merge:  func(ctx context.Context, st repo.Storage) (int64, error) { return st.MergeRouteFacts(ctx, facts) },
		}, dropped
	}

	lookup := k.feedEntity
	if m.Type() == domain.MetricSharingService {
		lookup = k.systemEntity
	}
	facts := make([]domain.AgencyFact, 0, len(vals))
	for key, v := range vals {
		eid, ok := lookup[key]
		if !ok {
			dropped++
			continue
		}
		facts = append(facts, domain.AgencyFact{
			EntityID:   eid,
			PeriodID:   p.ID,
			Metric:     name,
			Value:      v,
			LastUpdate: now,
		})
	}
	return factBatch{
		table:  domain.TableAgencies,
		size:   len(facts),
		insert: func(ctx context.Context, st repo.Storage) (int64, error) { return st.InsertAgencyFacts(ctx, facts) },
		merge:  func(ctx context.Context, st repo.Storage) (int64, error) { return st.MergeAgencyFacts(ctx, facts) },
	}, dropped
}

// finite drops NaN and infinite values
func finite(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for k, v := range in {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		out[k] = v
	}
	return out
}

