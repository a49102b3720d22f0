package store

import (
	"time"

	"github.com/30blay/biz-stats/internal/platform/config"
)

// Config aggregates per backend configuration
type Config struct {
	AppName string

	PG      PGConfig
	CH      CHConfig
	Billing BillingConfig
}

// PGConfig configures the warehouse postgres pool and tracing
type PGConfig struct {
	Enabled     bool
	URL         string
	MaxConns    int32
	LogSQL      bool
	SlowQueryMs int

	ConnectRetries int           // default 20
	PingTimeout    time.Duration // default 3s
}

// CHConfig configures the event analytics clickhouse connection
type CHConfig struct {
	Enabled bool
	URL     string

	// Role and Tag are reported to the server as client info
	Role string
	Tag  string
}

// BillingConfig configures the mysql sales database
type BillingConfig struct {
	Enabled         bool
	DSN             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// FromConfig reads SERVICE_PGSQL_*, SERVICE_CLICKHOUSE_* and SERVICE_BILLING_*
// Postgres is always enabled; ClickHouse and billing turn on when their URL or DSN is set
// role names the calling binary in client info
func FromConfig(cfg config.Conf, role string) Config {
	pgc := cfg.Prefix("SERVICE_PGSQL_")
	chc := cfg.Prefix("SERVICE_CLICKHOUSE_")
	bc := cfg.Prefix("SERVICE_BILLING_")

	chURL := chc.MayString("DBURL", "")
	dsn := bc.MayString("DSN", "")
	return Config{
		AppName: "bizstats-" + role,
		PG: PGConfig{
			Enabled:        true,
			URL:            pgc.MustString("DBURL"),
			MaxConns:       int32(pgc.MayInt("MAX_CONNS", 4)),
			LogSQL:         pgc.MayBool("LOG_SQL", false),
			SlowQueryMs:    pgc.MayInt("SLOW_MS", 500),
			ConnectRetries: pgc.MayInt("CONNECT_RETRIES", 20),
			PingTimeout:    pgc.MayDuration("PING_TIMEOUT", 3*time.Second),
		},
		CH: CHConfig{
			Enabled: chURL != "",
			URL:     chURL,
			Role:    role,
			Tag:     chc.MayString("TAG", "bizstats"),
		},
		Billing: BillingConfig{
			Enabled:         dsn != "",
			DSN:             dsn,
			MaxOpenConns:    bc.MayInt("MAX_OPEN_CONNS", 4),
			ConnMaxLifetime: bc.MayDuration("CONN_MAX_LIFETIME", 5*time.Minute),
		},
	}
}
