// Package repo provides the warehouse Postgres storage
package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/modkit/repokit"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// Storage is the warehouse persistence surface, bound to one Queryer
type Storage interface {
	EnsurePeriod(ctx context.Context, p period.Period) (period.Period, error)
	FindPeriod(ctx context.Context, p period.Period) (period.Period, bool, error)

	ListEntities(ctx context.Context) ([]domain.Entity, error)
	InsertEntity(ctx context.Context, e domain.Entity) (domain.Entity, error)

	InsertAgencyFacts(ctx context.Context, xs []domain.AgencyFact) (int64, error)
	MergeAgencyFacts(ctx context.Context, xs []domain.AgencyFact) (int64, error)
	InsertRouteFacts(ctx context.Context, xs []domain.RouteFact) (int64, error)
	MergeRouteFacts(ctx context.Context, xs []domain.RouteFact) (int64, error)

	FactsExist(ctx context.Context, table domain.FactTable, periodID int64, metric string) (bool, error)
	LatestUpdate(ctx context.Context, table domain.FactTable, periodID int64, metric string) (time.Time, bool, error)

	QueryAgencyFacts(ctx context.Context, f domain.FactFilter) ([]domain.FactRow, error)
	QueryRouteFacts(ctx context.Context, f domain.FactFilter) ([]domain.FactRow, error)
}

type (
	queries struct{ q repokit.Queryer }
	binder  struct{}
)

// NewPG returns the Postgres binder
func NewPG() repokit.Binder[Storage] { return binder{} }

// Bind implements repokit.Binder
func (binder) Bind(q repokit.Queryer) Storage { return &queries{q: q} }

// EnsurePeriod returns the stored period for (start, type), inserting it when missing
func (s *queries) EnsurePeriod(ctx context.Context, p period.Period) (period.Period, error) {
	const ins = `
		INSERT INTO periods (start, type) VALUES ($1, $2)
		ON CONFLICT (start, type) DO NOTHING
		RETURNING period_id`
	var id int64
	err := s.q.QueryRow(ctx, ins, p.Start.UTC(), string(p.Type)).Scan(&id)
	switch {
	case err == nil:
		p.ID = id
		return p, nil
	case errors.Is(err, stdsql.ErrNoRows):
		found, ok, ferr := s.FindPeriod(ctx, p)
		if ferr != nil {
			return p, ferr
		}
		if !ok {
			return p, perr.Newf(perr.ErrorCodeDB, "period %s vanished after conflict", p)
		}
		return found, nil
	default:
		return p, perr.FromPostgresf(err, "ensure period %s", p)
	}
}

// FindPeriod looks a period up by (start, type)
func (s *queries) FindPeriod(ctx context.Context, p period.Period) (period.Period, bool, error) {
	const q = `SELECT period_id FROM periods WHERE start = $1 AND type = $2`
	var id int64
	err := s.q.QueryRow(ctx, q, p.Start.UTC(), string(p.Type)).Scan(&id)
	if errors.Is(err, stdsql.ErrNoRows) {
		return p, false, nil
	}
	if err != nil {
		return p, false, perr.FromPostgresf(err, "find period %s", p)
	}
	p.ID = id
	return p, true, nil
}

// ListEntities returns every entity
func (s *queries) ListEntities(ctx context.Context) ([]domain.Entity, error) {
	rows, err := s.q.Query(ctx, `
		SELECT entity_id, type, feed_id, sharing_system_id, group_id
		FROM entities ORDER BY entity_id`)
	if err != nil {
		return nil, perr.FromPostgres(err, "list entities")
	}
	defer rows.Close()

	var out []domain.Entity
	for rows.Next() {
		var (
			e   domain.Entity
			typ string
		)
		if err := rows.Scan(&e.ID, &typ, &e.FeedID, &e.SharingSystemID, &e.GroupID); err != nil {
			return nil, perr.FromPostgres(err, "scan entity")
		}
		e.Type = domain.EntityType(typ)
		out = append(out, e)
	}
	return out, perr.FromPostgres(rows.Err(), "list entities")
}

// InsertEntity is a plain insert, a duplicate reference surfaces as DuplicateKey
func (s *queries) InsertEntity(ctx context.Context, e domain.Entity) (domain.Entity, error) {
	if err := e.Validate(); err != nil {
		return e, err
	}
	const q = `
		INSERT INTO entities (type, feed_id, sharing_system_id, group_id)
		VALUES ($1, $2, $3, $4)
		RETURNING entity_id`
	if err := s.q.QueryRow(ctx, q, string(e.Type), e.FeedID, e.SharingSystemID, e.GroupID).Scan(&e.ID); err != nil {
		return e, perr.AttachFieldFromPg(perr.FromPostgresf(err, "insert %s entity %d", e.Type, e.Ref()))
	}
	return e, nil
}
