// Package modkit provides module wiring and core deps
package modkit

import (
	"database/sql"

	"github.com/30blay/biz-stats/internal/modkit/repokit"
	"github.com/30blay/biz-stats/internal/platform/config"
	"github.com/30blay/biz-stats/internal/platform/logger"
	"github.com/30blay/biz-stats/internal/platform/store"
)

// Deps holds core dependencies passed to modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log logger.Logger
	Cfg config.Conf
	PG  repokit.TxRunner
	CH  store.Clickhouse

	// Billing is the sales database, nil when disabled
	Billing *sql.DB
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
