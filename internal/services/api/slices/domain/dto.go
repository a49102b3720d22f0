// Package domain holds the request and response shapes of the slices API
package domain

import (
	"math"

	"github.com/30blay/biz-stats/internal/core/grid"
)

// Window is a [start, stop] range of periods of one type
// dates are 2006-01-02 (UTC midnight) or RFC3339
type Window struct {
	Start string `json:"start" validate:"required,instant" example:"2024-01-01"`
	Stop  string `json:"stop" validate:"required,instant" example:"2024-03-31"`
	Type  string `json:"type" validate:"required,period_type" example:"month"`
}

// FeedSliceInput asks for metrics of one feed over a window
type FeedSliceInput struct {
	Window
	FeedCode string   `json:"feed_code" validate:"required,max=64" example:"STM"`
	Metrics  []string `json:"metrics" validate:"required,min=1,max=50,dive,required" example:"downloads"`
}

// MetricSliceInput asks for one metric of every entity over a window
type MetricSliceInput struct {
	Window
	Metric string `json:"metric" validate:"required" example:"downloads"`
}

// PeriodSliceInput asks for metrics of every entity in the period containing At
type PeriodSliceInput struct {
	At      string   `json:"at" validate:"required,instant" example:"2024-02-01"`
	Type    string   `json:"type" validate:"required,period_type" example:"month"`
	Metrics []string `json:"metrics" validate:"required,min=1,max=50,dive,required"`
}

// RouteHitsInput asks for the route hits of the period containing At
type RouteHitsInput struct {
	At   string `json:"at" validate:"required,instant"`
	Type string `json:"type" validate:"required,period_type"`
}

// TopRoutesInput ranks routes per feed in the period containing At
type TopRoutesInput struct {
	At   string `json:"at" validate:"required,instant"`
	Type string `json:"type" validate:"required,period_type"`
	N    int    `json:"n,omitempty" validate:"omitempty,min=1,max=1000" example:"10"`
}

// FeedTopRoutesInput ranks the routes of one feed per month in [start, stop]
type FeedTopRoutesInput struct {
	FeedID int64  `json:"feed_id" validate:"required,min=1" example:"1"`
	Start  string `json:"start" validate:"required,instant"`
	Stop   string `json:"stop" validate:"required,instant"`
	N      int    `json:"n,omitempty" validate:"omitempty,min=1,max=1000"`
}

// LoadInput triggers a load of metrics over a window
type LoadInput struct {
	Window
	Metrics []string `json:"metrics" validate:"required,min=1,max=50,dive,required"`
}

// DefaultTopN is used when a top routes request leaves n out
const DefaultTopN = 10

// GridView is a grid.Grid whose missing cells encode as null
type GridView struct {
	Index   string       `json:"index"`
	Rows    []string     `json:"rows"`
	Columns []string     `json:"columns"`
	Values  [][]*float64 `json:"values"`
}

// ViewOf converts g, NaN and Inf cells become nil
func ViewOf(g grid.Grid) GridView {
	vals := make([][]*float64, len(g.Values))
	for i, row := range g.Values {
		vals[i] = make([]*float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			vals[i][j] = &v
		}
	}
	rows, cols := g.Rows, g.Columns
	if rows == nil {
		rows = []string{}
	}
	if cols == nil {
		cols = []string{}
	}
	return GridView{Index: g.Index, Rows: rows, Columns: cols, Values: vals}
}

// MetricInfo describes one catalog entry
type MetricInfo struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Ratio bool   `json:"ratio,omitempty"`
}
