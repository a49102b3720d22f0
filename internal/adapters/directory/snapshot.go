package directory

import (
	"context"
	"slices"
	"sync"

	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Lister is the fetch surface a Snapshot caches
type Lister interface {
	ListFeeds(ctx context.Context, etag string) ([]domain.Feed, string, bool, error)
	ListSharingSystems(ctx context.Context, etag string) ([]domain.SharingSystem, string, bool, error)
	ListRoutes(ctx context.Context, etag string) ([]domain.Route, string, bool, error)
}

type cached[T any] struct {
	loaded bool
	etag   string
	items  []T
}

// Snapshot implements domain.Directory with a session cache
// each list is fetched on first use and kept until Refresh
type Snapshot struct {
	src Lister

	mu      sync.Mutex
	feeds   cached[domain.Feed]
	systems cached[domain.SharingSystem]
	routes  cached[domain.Route]
}

// NewSnapshot wraps src
func NewSnapshot(src Lister) *Snapshot { return &Snapshot{src: src} }

// Feeds implements domain.Directory
func (s *Snapshot) Feeds(ctx context.Context) ([]domain.Feed, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, &s.feeds, false, s.src.ListFeeds)
}

// SharingSystems implements domain.Directory
func (s *Snapshot) SharingSystems(ctx context.Context) ([]domain.SharingSystem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, &s.systems, false, s.src.ListSharingSystems)
}

// Routes implements domain.Directory
func (s *Snapshot) Routes(ctx context.Context) ([]domain.Route, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return load(ctx, &s.routes, false, s.src.ListRoutes)
}

// Refresh revalidates every list already loaded, unchanged lists cost a 304
func (s *Snapshot) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.feeds.loaded {
		if _, err := load(ctx, &s.feeds, true, s.src.ListFeeds); err != nil {
			return err
		}
	}
	if s.systems.loaded {
		if _, err := load(ctx, &s.systems, true, s.src.ListSharingSystems); err != nil {
			return err
		}
	}
	if s.routes.loaded {
		if _, err := load(ctx, &s.routes, true, s.src.ListRoutes); err != nil {
			return err
		}
	}
	return nil
}

func load[T any](ctx context.Context, c *cached[T], force bool, fetch func(context.Context, string) ([]T, string, bool, error)) ([]T, error) {
	if c.loaded && !force {
		return slices.Clone(c.items), nil
	}
	items, etag, notModified, err := fetch(ctx, c.etag)
	if err != nil {
		return nil, err
	}
	if !notModified || !c.loaded {
		c.items = items
	}
	c.etag, c.loaded = etag, true
	return slices.Clone(c.items), nil
}

var _ domain.Directory = (*Snapshot)(nil)
