package repo

import (
	"context"
	stdsql "database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	perr "github.com/30blay/biz-stats/internal/platform/errors"
	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

const agencyUnnest = `
	SELECT * FROM UNNEST($1::bigint[], $2::bigint[], $3::text[], $4::float8[], $5::timestamptz[])`

const routeUnnest = `
	SELECT * FROM UNNEST($1::bigint[], $2::bigint[], $3::bigint[], $4::text[], $5::float8[], $6::timestamptz[])`

func agencyColumns(xs []domain.AgencyFact) []any {
	ent := make([]int64, len(xs))
	per := make([]int64, len(xs))
	met := make([]string, len(xs))
	val := make([]float64, len(xs))
	upd := make([]time.Time, len(xs))
	for i, f := range xs {
		ent[i], per[i], met[i], val[i], upd[i] = f.EntityID, f.PeriodID, f.Metric, f.Value, f.LastUpdate.UTC()
	}
	return []any{ent, per, met, val, upd}
}

func routeColumns(xs []domain.RouteFact) []any {
	rid := make([]int64, len(xs))
	fid := make([]int64, len(xs))
	per := make([]int64, len(xs))
	met := make([]string, len(xs))
	val := make([]float64, len(xs))
	upd := make([]time.Time, len(xs))
	for i, f := range xs {
		rid[i], fid[i], per[i], met[i], val[i], upd[i] = f.GlobalRouteID, f.FeedID, f.PeriodID, f.Metric, f.Value, f.LastUpdate.UTC()
	}
	return []any{rid, fid, per, met, val, upd}
}

// InsertAgencyFacts bulk inserts, any existing key fails the statement with DuplicateKey
func (s *queries) InsertAgencyFacts(ctx context.Context, xs []domain.AgencyFact) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `
		INSERT INTO fact_agencies (entity_id, period_id, metric, value, last_update)`+agencyUnnest, agencyColumns(xs)...)
	if err != nil {
		return 0, perr.FromPostgres(err, "insert agency facts")
	}
	return tag.RowsAffected(), nil
}

// MergeAgencyFacts upserts value and last_update by primary key
func (s *queries) MergeAgencyFacts(ctx context.Context, xs []domain.AgencyFact) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `
		INSERT INTO fact_agencies (entity_id, period_id, metric, value, last_update)`+agencyUnnest+`
		ON CONFLICT (entity_id, period_id, metric)
		DO UPDATE SET value = EXCLUDED.value, last_update = EXCLUDED.last_update`, agencyColumns(xs)...)
	if err != nil {
		return 0, perr.FromPostgres(err, "merge agency facts")
	}
	return tag.RowsAffected(), nil
}

// InsertRouteFacts bulk inserts route facts
func (s *queries) InsertRouteFacts(ctx context.Context, xs []domain.RouteFact) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `
		INSERT INTO fact_routes (global_route_id, feed_id, period_id, metric, value, last_update)`+routeUnnest, routeColumns(xs)...)
	if err != nil {
		return 0, perr.FromPostgres(err, "insert route facts")
	}
	return tag.RowsAffected(), nil
}

// MergeRouteFacts upserts route facts, feed_id follows the latest write
func (s *queries) MergeRouteFacts(ctx context.Context, xs []domain.RouteFact) (int64, error) {
	if len(xs) == 0 {
		return 0, nil
	}
	tag, err := s.q.Exec(ctx, `
		INSERT INTO fact_routes (global_route_id, feed_id, period_id, metric, value, last_update)`+routeUnnest+`
		ON CONFLICT (global_route_id, period_id, metric)
		DO UPDATE SET feed_id = EXCLUDED.feed_id, value = EXCLUDED.value, last_update = EXCLUDED.last_update`, routeColumns(xs)...)
	if err != nil {
		return 0, perr.FromPostgres(err, "merge route facts")
	}
	return tag.RowsAffected(), nil
}

func checkTable(t domain.FactTable) error {
	if t != domain.TableAgencies && t != domain.TableRoutes {
		return perr.Configurationf("unknown fact table %q", t)
	}
	return nil
}

// FactsExist reports whether any fact is stored for (period, metric)
func (s *queries) FactsExist(ctx context.Context, table domain.FactTable, periodID int64, metric string) (bool, error) {
	if err := checkTable(table); err != nil {
		return false, err
	}
	q := fmt.Sprintf(`SELECT EXISTS (SELECT 1 FROM %s WHERE period_id = $1 AND metric = $2)`, table)
	var ok bool
	if err := s.q.QueryRow(ctx, q, periodID, metric).Scan(&ok); err != nil {
		return false, perr.FromPostgresf(err, "facts exist %s", table)
	}
	return ok, nil
}

// LatestUpdate returns the newest last_update across all entities for (period, metric)
func (s *queries) LatestUpdate(ctx context.Context, table domain.FactTable, periodID int64, metric string) (time.Time, bool, error) {
	if err := checkTable(table); err != nil {
		return time.Time{}, false, err
	}
	q := fmt.Sprintf(`SELECT max(last_update) FROM %s WHERE period_id = $1 AND metric = $2`, table)
	var ts *time.Time
	err := s.q.QueryRow(ctx, q, periodID, metric).Scan(&ts)
	if errors.Is(err, stdsql.ErrNoRows) || (err == nil && ts == nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, perr.FromPostgresf(err, "latest update %s", table)
	}
	return ts.UTC(), true, nil
}

// filterSQL appends the common period and metric predicates, args continue from len(args)+1
func filterSQL(sb *strings.Builder, args []any, f domain.FactFilter, factAlias string) []any {
	add := func(cond string, v any) {
		args = append(args, v)
		fmt.Fprintf(sb, " AND "+cond, len(args))
	}
	if len(f.Metrics) > 0 {
		add(factAlias+".metric = ANY($%d::text[])", f.Metrics)
	}
	if f.PeriodID != 0 {
		add("p.period_id = $%d", f.PeriodID)
	}
	if f.Type != "" {
		add("p.type = $%d", string(f.Type))
	}
	if !f.From.IsZero() {
		add("p.start >= $%d", f.From.UTC())
	}
	if !f.To.IsZero() {
		add("p.start <= $%d", f.To.UTC())
	}
	return args
}

// QueryAgencyFacts reads fact_agencies joined with entities and periods
func (s *queries) QueryAgencyFacts(ctx context.Context, f domain.FactFilter) ([]domain.FactRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT e.type, coalesce(e.feed_id, e.sharing_system_id, e.group_id), f.metric, p.start, f.value, f.last_update
		FROM fact_agencies f
		JOIN periods p ON p.period_id = f.period_id
		JOIN entities e ON e.entity_id = f.entity_id
		WHERE TRUE`)
	var args []any
	if len(f.EntityIDs) > 0 {
		args = append(args, f.EntityIDs)
		fmt.Fprintf(&sb, " AND f.entity_id = ANY($%d::bigint[])", len(args))
	}
	args = filterSQL(&sb, args, f, "f")
	sb.WriteString(" ORDER BY p.start, f.metric, f.entity_id")

	rows, err := s.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "query agency facts")
	}
	defer rows.Close()

	var out []domain.FactRow
	for rows.Next() {
		var (
			r   domain.FactRow
			typ string
		)
		if err := rows.Scan(&typ, &r.Ref, &r.Metric, &r.PeriodStart, &r.Value, &r.LastUpdate); err != nil {
			return nil, perr.FromPostgres(err, "scan agency fact")
		}
		r.EntityType = domain.EntityType(typ)
		if r.EntityType == domain.EntityFeed {
			r.FeedID = r.Ref
		}
		r.PeriodStart, r.LastUpdate = r.PeriodStart.UTC(), r.LastUpdate.UTC()
		out = append(out, r)
	}
	return out, perr.FromPostgres(rows.Err(), "query agency facts")
}

// QueryRouteFacts reads fact_routes joined with periods
func (s *queries) QueryRouteFacts(ctx context.Context, f domain.FactFilter) ([]domain.FactRow, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT r.global_route_id, r.feed_id, r.metric, p.start, r.value, r.last_update
		FROM fact_routes r
		JOIN periods p ON p.period_id = r.period_id
		WHERE TRUE`)
	var args []any
	if len(f.FeedIDs) > 0 {
		args = append(args, f.FeedIDs)
		fmt.Fprintf(&sb, " AND r.feed_id = ANY($%d::bigint[])", len(args))
	}
	args = filterSQL(&sb, args, f, "r")
	sb.WriteString(" ORDER BY p.start, r.metric, r.global_route_id")

	rows, err := s.q.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, perr.FromPostgres(err, "query route facts")
	}
	defer rows.Close()

	var out []domain.FactRow
	for rows.Next() {
		var r domain.FactRow
		if err := rows.Scan(&r.Ref, &r.FeedID, &r.Metric, &r.PeriodStart, &r.Value, &r.LastUpdate); err != nil {
			return nil, perr.FromPostgres(err, "scan route fact")
		}
		r.PeriodStart, r.LastUpdate = r.PeriodStart.UTC(), r.LastUpdate.UTC()
		out = append(out, r)
	}
	return out, perr.FromPostgres(rows.Err(), "query route facts")
}
