package grid

import (
	"fmt"
	"io"
	"math"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// RenderOptions controls text output
type RenderOptions struct {
	// Decimals printed per value, default 2
	Decimals int
	// Missing is printed for NaN cells
	Missing string
	// Lang picks digit grouping, default English
	Lang language.Tag
}

// Render writes g as an aligned text table
func Render(w io.Writer, g Grid, opts RenderOptions) error {
	if opts.Decimals <= 0 {
		opts.Decimals = 2
	}
	if opts.Lang == language.Und {
		opts.Lang = language.English
	}
	p := message.NewPrinter(opts.Lang)

	table := tablewriter.NewWriter(w)
	table.Header(append([]string{g.Index}, g.Columns...))
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})

	data := make([][]string, 0, len(g.Rows))
	for i, r := range g.Rows {
		row := make([]string, 0, len(g.Columns)+1)
		row = append(row, r)
		for _, v := range g.Values[i] {
			row = append(row, FormatValue(p, v, opts.Decimals, opts.Missing))
		}
		data = append(data, row)
	}
	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

// FormatValue prints v with grouping, or missing for NaN and Inf
func FormatValue(p *message.Printer, v float64, decimals int, missing string) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return missing
	}
	return p.Sprintf(fmt.Sprintf("%%.%df", decimals), v)
}
