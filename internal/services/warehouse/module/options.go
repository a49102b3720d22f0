package module

import (
	"strings"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	"github.com/30blay/biz-stats/internal/platform/config"
	"github.com/30blay/biz-stats/internal/services/warehouse/service"
)

// Options controls warehouse behavior, read from CORE_WAREHOUSE_*
type Options struct {
	Recency         map[period.Type]time.Duration
	RevisionHorizon time.Duration
	Workers         int
	LoadBeforePull  bool
	RouteHitsMetric string
	// StatementTimeout bounds Postgres statements inside load transactions
	StatementTimeout time.Duration

	// CorrectionFile is a .csv or .yaml delay correction table, empty for none
	CorrectionFile string
	// CatalogFile is the YAML metric catalog
	CatalogFile string
}

// FromConfig reads options using the CORE_WAREHOUSE_ prefix
// RECENCY_<TYPE> accepts durations with a day suffix; 0 removes the limit for that type
func FromConfig(cfg config.Conf) Options {
	wh := cfg.Prefix("CORE_WAREHOUSE_")

	recency := map[period.Type]time.Duration{}
	defaults := service.DefaultRecency()
	for _, t := range period.Types {
		d := wh.MayDuration("RECENCY_"+strings.ToUpper(string(t)), defaults[t])
		if d > 0 {
			recency[t] = d
		}
	}

	return Options{
		Recency:          recency,
		RevisionHorizon:  wh.MayDuration("REVISION_HORIZON", 60*24*time.Hour),
		Workers:          wh.MayInt("WORKERS", 1),
		LoadBeforePull:   wh.MayBool("LOAD_BEFORE_PULL", false),
		RouteHitsMetric:  wh.MayString("ROUTE_HITS_METRIC", "route_hits"),
		StatementTimeout: wh.MayDuration("STATEMENT_TIMEOUT", 0),
		CorrectionFile:   wh.MayString("CORRECTION_FILE", ""),
		CatalogFile:      wh.MayString("CATALOG_FILE", ""),
	}
}
