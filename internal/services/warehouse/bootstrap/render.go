package bootstrap

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/30blay/biz-stats/internal/services/warehouse/domain"
)

// RenderReport prints a load report as two tables: totals, then skipped pairs when any
func RenderReport(w io.Writer, rep domain.LoadReport) error {
	t := tablewriter.NewWriter(w)
	t.Header([]string{"run", "periods", "fresh", "empty", "dropped", "written", "merged", "skipped", "took"})
	t.Configure(func(cfg *tablewriter.Config) { cfg.Row.Alignment.Global = tw.AlignRight })
	row := []string{
		rep.RunID,
		strconv.Itoa(rep.Periods),
		strconv.Itoa(rep.Fresh),
		strconv.Itoa(rep.Empty),
		strconv.Itoa(rep.Dropped),
		strconv.Itoa(rep.Written),
		strconv.Itoa(rep.Merged),
		strconv.Itoa(len(rep.Skipped)),
		rep.Finished.Sub(rep.Started).Round(time.Millisecond).String(),
	}
	if err := t.Append(row); err != nil {
		return err
	}
	if err := t.Render(); err != nil {
		return err
	}
	if len(rep.Skipped) == 0 {
		return nil
	}

	s := tablewriter.NewWriter(w)
	s.Header([]string{"metric", "period", "reason"})
	for _, sk := range rep.Skipped {
		if err := s.Append([]string{sk.Metric, sk.Period.String(), sk.Reason}); err != nil {
			return err
		}
	}
	return s.Render()
}

// RenderTopRoutes prints ranked routes, one line per (period, feed, rank)
func RenderTopRoutes(w io.Writer, routes []domain.TopRoute) error {
	t := tablewriter.NewWriter(w)
	t.Header([]string{"period", "feed", "rank", "route", "name", "hits"})
	for _, r := range routes {
		err := t.Append([]string{
			r.PeriodStart.UTC().Format(time.DateOnly),
			r.FeedCode,
			strconv.Itoa(r.Rank),
			strconv.FormatInt(r.GlobalRouteID, 10),
			r.RouteName,
			fmt.Sprintf("%.0f", r.Hits),
		})
		if err != nil {
			return err
		}
	}
	return t.Render()
}

// RenderRouteHits prints route hits
func RenderRouteHits(w io.Writer, hits []domain.RouteHit) error {
	t := tablewriter.NewWriter(w)
	t.Header([]string{"feed", "route", "hits"})
	for _, h := range hits {
		if err := t.Append([]string{h.FeedCode, strconv.FormatInt(h.GlobalRouteID, 10), fmt.Sprintf("%.0f", h.Hits)}); err != nil {
			return err
		}
	}
	return t.Render()
}
