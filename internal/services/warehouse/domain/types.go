// Package domain defines the types and ports of the metric warehouse
package domain

import (
	"context"
	"time"

	"github.com/30blay/biz-stats/internal/core/period"
	perr "github.com/30blay/biz-stats/internal/platform/errors"
)

// EntityType tags what an Entity references
type EntityType string

// Entity kinds stored in entities.type
const (
	EntityFeed          EntityType = "feed"
	EntitySharingSystem EntityType = "sharing_system"
	EntityGroup         EntityType = "group"
)

// MetricType says which entity a metric's values are keyed by
type MetricType string

// Metric kinds
const (
	MetricAgency         MetricType = "agency"
	MetricSharingService MetricType = "sharing_service"
	MetricRoute          MetricType = "route"
)

// FactTable names a fact table
type FactTable string

// Fact tables
const (
	TableAgencies FactTable = "fact_agencies"
	TableRoutes   FactTable = "fact_routes"
)

// TableFor picks the fact table a metric type is stored in
func TableFor(t MetricType) (FactTable, error) {
	switch t {
	case MetricAgency, MetricSharingService:
		return TableAgencies, nil
	case MetricRoute:
		return TableRoutes, nil
	}
	return "", perr.Configurationf("unsupported metric type %q", t)
}

// ErrGroupingUnsupported is returned for any grouped fetch or recency check
var ErrGroupingUnsupported = perr.New(perr.ErrorCodeConfiguration, "grouped metrics are not supported")

// Metric is one named source of per entity values for a period
// Fetch returns values keyed by feed code, sharing system name or global route id
// depending on Type; a non nil group must fail with ErrGroupingUnsupported
type Metric interface {
	Name() string
	Type() MetricType
	Fetch(ctx context.Context, p period.Period, group []string) (map[string]float64, error)
}

// RatioMetric is derived at read time as Numerator / Denominator and never stored
type RatioMetric interface {
	Metric
	Operands() (num, den Metric)
}

// Feed is a transit agency feed from the directory
type Feed struct {
	ID          int64  `json:"feed_id"`
	Code        string `json:"feed_code"`
	Name        string `json:"feed_name"`
	NetworkName string `json:"feed_network_name"`
}

// SharingSystem is a bike or scooter share system from the directory
type SharingSystem struct {
	ID   int64  `json:"system_id"`
	Name string `json:"name"`
}

// Route is a transit route from the directory
type Route struct {
	GlobalRouteID int64  `json:"global_route_id"`
	FeedID        int64  `json:"feed_id"`
	ShortName     string `json:"route_short_name"`
	LongName      string `json:"route_long_name"`
}

// Entity is the warehouse identity of a feed, sharing system or group
// exactly one reference is set and it matches Type
type Entity struct {
	ID              int64
	Type            EntityType
	FeedID          *int64
	SharingSystemID *int64
	GroupID         *int64
}

// Ref returns the single external id the entity points at
func (e Entity) Ref() int64 {
	switch {
	case e.FeedID != nil:
		return *e.FeedID
	case e.SharingSystemID != nil:
		return *e.SharingSystemID
	case e.GroupID != nil:
		return *e.GroupID
	}
	return 0
}

// Validate enforces the one reference rule
func (e Entity) Validate() error {
	n := 0
	for _, p := range []*int64{e.FeedID, e.SharingSystemID, e.GroupID} {
		if p != nil {
			n++
		}
	}
	if n != 1 {
		return perr.InvalidArgf("entity must reference exactly one external id, got %d", n)
	}
	ok := (e.Type == EntityFeed && e.FeedID != nil) ||
		(e.Type == EntitySharingSystem && e.SharingSystemID != nil) ||
		(e.Type == EntityGroup && e.GroupID != nil)
	if !ok {
		return perr.InvalidArgf("entity type %q does not match its reference", e.Type)
	}
	return nil
}

// FeedEntity builds an unsaved feed entity
func FeedEntity(feedID int64) Entity { return Entity{Type: EntityFeed, FeedID: &feedID} }

// SharingEntity builds an unsaved sharing system entity
func SharingEntity(systemID int64) Entity {
	return Entity{Type: EntitySharingSystem, SharingSystemID: &systemID}
}

// AgencyFact is one row of fact_agencies
type AgencyFact struct {
	EntityID   int64
	PeriodID   int64
	Metric     string
	Value      float64
	LastUpdate time.Time
}

// RouteFact is one row of fact_routes
type RouteFact struct {
	GlobalRouteID int64
	FeedID        int64
	PeriodID      int64
	Metric        string
	Value         float64
	LastUpdate    time.Time
}

// FactRow is a fact read back with its period start
// Ref is the feed id, sharing system id or global route id; FeedID is set for route rows
type FactRow struct {
	EntityType  EntityType
	Ref         int64
	FeedID      int64
	Metric      string
	PeriodStart time.Time
	Value       float64
	LastUpdate  time.Time
}

// FactFilter narrows fact queries, zero fields do not filter
// From and To bound period starts inclusively
type FactFilter struct {
	EntityIDs []int64
	FeedIDs   []int64
	Metrics   []string
	PeriodID  int64
	Type      period.Type
	From      time.Time
	To        time.Time
}

// SyncReport counts what a registry sync did
type SyncReport struct {
	Inserted int `json:"inserted"`
	Existing int `json:"existing"`
	Raced    int `json:"raced"`
}

// SkippedPair is one (metric, period) the loader gave up on
type SkippedPair struct {
	Metric string        `json:"metric"`
	Period period.Period `json:"period"`
	Reason string        `json:"reason"`
}

// LoadReport summarizes one load run
type LoadReport struct {
	RunID    string        `json:"run_id"`
	Started  time.Time     `json:"started"`
	Finished time.Time     `json:"finished"`
	Metrics  []string      `json:"metrics"`
	Periods  int           `json:"periods"`
	Fresh    int           `json:"fresh"`
	Empty    int           `json:"empty"`
	Dropped  int           `json:"dropped"`
	Written  int           `json:"written"`
	Merged   int           `json:"merged"`
	Skipped  []SkippedPair `json:"skipped,omitempty"`
}

// RouteHit is the hit count of one route in one period
type RouteHit struct {
	FeedID        int64   `json:"feed_id"`
	FeedCode      string  `json:"feed_code"`
	GlobalRouteID int64   `json:"global_route_id"`
	Hits          float64 `json:"hits"`
}

// TopRoute is a ranked route within a feed
type TopRoute struct {
	PeriodStart   time.Time `json:"period_start"`
	FeedID        int64     `json:"feed_id"`
	FeedCode      string    `json:"feed_code"`
	Rank          int       `json:"rank"`
	GlobalRouteID int64     `json:"global_route_id"`
	RouteName     string    `json:"route_name"`
	Hits          float64   `json:"hits"`
}
