package store

import (
	"context"
	"embed"
	"errors"

	perr "github.com/30blay/biz-stats/internal/platform/errors"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// MigrationsTable records the applied schema version
const MigrationsTable = "bizstats_schema_migrations"

// MigrateResult reports the schema version before and after a run
type MigrateResult struct {
	From    uint
	To      uint
	Dirty   bool
	Changed bool
}

// Migrate moves the warehouse schema
// target < 0 applies every pending migration, 0 rolls everything back, > 0 goes to that version
func (s *Store) Migrate(ctx context.Context, target int) (MigrateResult, error) {
	m, closeFn, err := s.migrator()
	if err != nil {
		return MigrateResult{}, err
	}
	defer closeFn()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			select {
			case m.GracefulStop <- true:
			default:
			}
		case <-done:
		}
	}()

	var res MigrateResult
	res.From, res.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return res, perr.Wrap(err, perr.ErrorCodeDB, "read schema version")
	}

	switch {
	case target < 0:
		err = m.Up()
	case target == 0:
		err = m.Down()
	default:
		err = m.Migrate(uint(target))
	}
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return res, perr.Wrapf(err, perr.ErrorCodeDB, "migrate to %d", target)
	}
	res.Changed = err == nil

	res.To, res.Dirty, err = m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return res, perr.Wrap(err, perr.ErrorCodeDB, "read schema version")
	}
	s.Log.Info().Uint("from", res.From).Uint("to", res.To).Bool("changed", res.Changed).Msg("schema migrated")
	return res, nil
}

// SchemaVersion returns the applied version, zero when nothing ran yet
func (s *Store) SchemaVersion() (uint, bool, error) {
	m, closeFn, err := s.migrator()
	if err != nil {
		return 0, false, err
	}
	defer closeFn()
	v, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return v, dirty, err
}

func (s *Store) migrator() (*migrate.Migrate, func(), error) {
	if s == nil || s.pg == nil {
		return nil, nil, perr.Configurationf("migrate: postgres is not enabled")
	}
	db := s.pg.SQLDB()
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{MigrationsTable: MigrationsTable})
	if err != nil {
		_ = db.Close()
		return nil, nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate driver")
	}
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		_ = db.Close()
		return nil, nil, perr.Wrap(err, perr.ErrorCodeConfiguration, "migration source")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		_ = db.Close()
		return nil, nil, perr.Wrap(err, perr.ErrorCodeDB, "migrate instance")
	}
	return m, func() { _, _ = m.Close() }, nil
}
