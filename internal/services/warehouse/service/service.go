// Package service contains the warehouse workflows: registry, loading and slicing
package service

import (
	"sync"
	"time"

	"github.com/30blay/biz-stats/internal/core/correction"
	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
	"github.com/30blay/biz-stats/internal/services/warehouse/repo"
)

// Service defines the warehouse service contract
type Service interface {
	domain.RegistryPort
	domain.LoaderPort
	domain.SlicerPort
	domain.RoutesPort
}

// Config carries the policy and loader knobs
type Config struct {
	// Recency is the per type age under which stored facts are fresh
	// types without an entry go straight to the revision horizon rule
	Recency map[period.Type]time.Duration

	// RevisionHorizon bounds how long after a period start values keep moving
	RevisionHorizon time.Duration

	// Workers is the number of periods of one metric loaded concurrently
	Workers int

	// LoadBeforePull makes SlicePeriod load the period before reading it
	LoadBeforePull bool

	// RouteHitsMetric names the route metric ranked by the top routes reads
	RouteHitsMetric string

	// Correction scales values read back, nil is the identity
	Correction *correction.Table

	// StatementTimeout bounds each statement run inside a transaction, 0 for none
	StatementTimeout time.Duration
}

// DefaultRecency returns the stock recency limits
func DefaultRecency() map[period.Type]time.Duration {
	return map[period.Type]time.Duration{
		period.Hour:  45 * time.Minute,
		period.Day:   6 * time.Hour,
		period.Month: 3 * 24 * time.Hour,
		period.Year:  30 * 24 * time.Hour,
	}
}

func withDefaults(cfg Config) Config {
	if cfg.Recency == nil {
		cfg.Recency = DefaultRecency()
	}
	if cfg.RevisionHorizon <= 0 {
		cfg.RevisionHorizon = 60 * 24 * time.Hour
	}
	cfg.Workers = max(cfg.Workers, 1)
	if cfg.RouteHitsMetric == "" {
		cfg.RouteHitsMetric = "route_hits"
	}
	if cfg.Correction == nil {
		cfg.Correction = correction.New()
	}
	return cfg
}

// Option tweaks a Svc at construction
type Option func(*Svc)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option { return func(s *Svc) { s.now = now } }

// WithBinder replaces the Postgres binder
func WithBinder(b repokit.Binder[repo.Storage]) Option { return func(s *Svc) { s.binder = b } }

// WithCatalog lets reads that load before pulling find metrics by name
func WithCatalog(c domain.Catalog) Option { return func(s *Svc) { s.catalog = c } }

// Svc implements Service
type Svc struct {
	binder  repokit.Binder[repo.Storage]
	db      repokit.TxRunner
	dir     domain.Directory
	catalog domain.Catalog
	log     *logger.Logger
	cfg     Config
	now     func() time.Time

	idx entityIndex
}

// New constructs a warehouse service
func New(deps modkit.Deps, dir domain.Directory, cfg Config, opts ...Option) *Svc {
	if deps.PG == nil {
		panic("warehouse.Service requires a non nil TxRunner")
	}
	if dir == nil {
		panic("warehouse.Service requires a directory")
	}
	db := deps.PG
	if cfg.StatementTimeout > 0 {
		db = repokit.WithBeginHooks(db, repokit.StatementTimeout(cfg.StatementTimeout))
	}
	s := &Svc{
		binder: repo.NewPG(),
		db:     db,
		dir:    dir,
		log:    logger.Named("warehouse"),
		cfg:    withDefaults(cfg),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Config returns the effective configuration
func (s *Svc) Config() Config { return s.cfg }

// entityIndex maps external ids to entity ids
type entityIndex struct {
	mu      sync.RWMutex
	loaded  bool
	feeds   map[int64]int64
	systems map[int64]int64
}

func (x *entityIndex) put(e domain.Entity) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.putLocked(e)
}

func (x *entityIndex) putLocked(e domain.Entity) {
	if x.feeds == nil {
		x.feeds = map[int64]int64{}
		x.systems = map[int64]int64{}
	}
	switch e.Type {
	case domain.EntityFeed:
		x.feeds[e.Ref()] = e.ID
	case domain.EntitySharingSystem:
		x.systems[e.Ref()] = e.ID
	}
}

func (x *entityIndex) replace(es []domain.Entity) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.feeds = map[int64]int64{}
	x.systems = map[int64]int64{}
	for _, e := range es {
		x.putLocked(e)
	}
	x.loaded = true
}

func (x *entityIndex) feed(id int64) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.feeds[id]
	return v, ok
}

func (x *entityIndex) system(id int64) (int64, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()
	v, ok := x.systems[id]
	return v, ok
}

func (x *entityIndex) isLoaded() bool {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return x.loaded
}
