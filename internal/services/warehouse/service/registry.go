package service

import (
	"context"

	"github.com/30blay/biz-stats/internal/modkit/repokit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Sync implements domain.RegistryPort
// each insert runs in its own tx so a lost race only aborts that insert
func (s *Svc) Sync(ctx context.Context, feeds []domain.Feed, systems []domain.SharingSystem) (domain.SyncReport, error) {
	var rep domain.SyncReport
	if err := s.reloadIndex(ctx); err != nil {
		return rep, err
	}

	want := make([]domain.Entity, 0, len(feeds)+len(systems))
	for _, f := range feeds {
		if _, ok := s.idx.feed(f.ID); ok {
			rep.Existing++
			continue
		}
		want = append(want, domain.FeedEntity(f.ID))
	}
	for _, sys := range systems {
		if _, ok := s.idx.system(sys.ID); ok {
			rep.Existing++
			continue
		}
		want = append(want, domain.SharingEntity(sys.ID))
	}

	for _, e := range want {
		var saved domain.Entity
		err := s.db.Tx(ctx, func(q repokit.Queryer) error {
			var err error
			saved, err = s.binder.Bind(q).InsertEntity(ctx, e)
			return err
		})
		switch {
		case err == nil:
			rep.Inserted++
			s.idx.put(saved)
		case perr.IsDuplicateKey(err):
			rep.Raced++
		default:
			return rep, err
		}
	}

	if rep.Raced > 0 {
		if err := s.reloadIndex(ctx); err != nil {
			return rep, err
		}
	}
	s.log.Debug().
		Int("inserted", rep.Inserted).
		Int("existing", rep.Existing).
		Int("raced", rep.Raced).
		Msg("registry synced")
	return rep, nil
}

// Resolve implements domain.RegistryPort
func (s *Svc) Resolve(ctx context.Context, feedID int64) (int64, error) {
	if id, ok := s.idx.feed(feedID); ok {
		return id, nil
	}
	if err := s.reloadIndex(ctx); err != nil {
		return 0, err
	}
	if id, ok := s.idx.feed(feedID); ok {
		return id, nil
	}
	return 0, perr.NotFoundf("feed %d has no entity", feedID)
}

// ResolveSharing implements domain.RegistryPort
func (s *Svc) ResolveSharing(ctx context.Context, systemID int64) (int64, error) {
	if id, ok := s.idx.system(systemID); ok {
		return id, nil
	}
	if err := s.reloadIndex(ctx); err != nil {
		return 0, err
	}
	if id, ok := s.idx.system(systemID); ok {
		return id, nil
	}
	return 0, perr.NotFoundf("sharing system %d has no entity", systemID)
}

func (s *Svc) reloadIndex(ctx context.Context) error {
	es, err := s.binder.Bind(s.db).ListEntities(ctx)
	if err != nil {
		return err
	}
	s.idx.replace(es)
	return nil
}
