package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sells-group/cropplan/internal/interval"
	"github.com/sells-group/cropplan/internal/model"
	"github.com/sells-group/cropplan/internal/store"
)

// numbers groups thousands in money and area columns.
var numbers = message.NewPrinter(language.English)

func money(v float64) string { return numbers.Sprintf("%.2f", v) }

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatResult writes the totals, a per-field summary and the allocation
// timeline of res.
func formatResult(out io.Writer, res *model.MultiFieldOptimizationResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Optimization:\t%s\n", res.OptimizationID)
	_, _ = fmt.Fprintf(w, "Algorithm:\t%s\n", res.AlgorithmUsed)
	_, _ = fmt.Fprintf(w, "Total cost:\t%s\n", money(res.TotalCost))
	_, _ = fmt.Fprintf(w, "Total revenue:\t%s\n", money(res.TotalRevenue))
	_, _ = fmt.Fprintf(w, "Total profit:\t%s\n", money(res.TotalProfit))
	_, _ = fmt.Fprintf(w, "Elapsed:\t%s\n", res.OptimizationTime.Round(time.Millisecond))
	_ = w.Flush()
	_, _ = fmt.Fprintln(out)

	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "FIELD\tAREA\tUSED\tUTIL%\tALLOCS\tPROFIT")
	_, _ = fmt.Fprintln(w, "-----\t----\t----\t-----\t------\t------")
	for _, s := range res.FieldSchedules {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%.1f\t%d\t%s\n",
			s.Field.ID,
			money(s.Field.Area),
			money(s.AreaUsed),
			s.UtilizationPercent,
			len(s.Allocations),
			money(s.TotalProfit),
		)
	}
	_ = w.Flush()

	allocs := res.Allocations()
	if len(allocs) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out)
	formatAllocations(out, allocs)
}

func formatAllocations(out io.Writer, allocs []model.CropAllocation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tFIELD\tCROP\tSTART\tCOMPLETE\tDAYS\tAREA\tPROFIT")
	_, _ = fmt.Fprintln(w, "--\t-----\t----\t-----\t--------\t----\t----\t------")
	for _, a := range allocs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			truncateID(a.AllocationID),
			a.Field.ID,
			a.Crop.DisplayName(),
			a.StartDate.Format(time.DateOnly),
			a.CompletionDate.Format(time.DateOnly),
			a.GrowthDays,
			money(a.AreaUsed),
			money(a.ProfitValue()),
		)
	}
	_ = w.Flush()
}

// formatSelection writes the periods picked by the interval scheduler.
func formatSelection(out io.Writer, sel interval.Selection) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "LABEL\tSTART\tCOMPLETE\tDAYS\tCOST")
	_, _ = fmt.Fprintln(w, "-----\t-----\t--------\t----\t----")
	for _, r := range sel.Results {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
			r.Label,
			r.StartDate.Format(time.DateOnly),
			r.CompletionDate.Format(time.DateOnly),
			r.GrowthDays,
			money(*r.TotalCost),
		)
	}
	_, _ = fmt.Fprintf(w, "Selected:\t%d\n", sel.Count())
	_, _ = fmt.Fprintf(w, "Total cost:\t%s\n", money(sel.TotalCost))
	_ = w.Flush()
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []model.RunSummary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tALGORITHM\tPROFIT\tCREATED")
	_, _ = fmt.Fprintln(w, "--\t------\t---------\t------\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.ID),
			r.Status,
			r.Algorithm,
			money(r.TotalProfit),
			r.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	_ = w.Flush()
}

func formatAllocationRecords(out io.Writer, recs []store.AllocationRecord) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ALLOCATION\tFIELD\tCROP\tSTART\tCOMPLETE\tAREA\tCOST\tREVENUE\tPROFIT")
	for _, r := range recs {
		revenue := "-"
		if r.Revenue != nil {
			revenue = money(*r.Revenue)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			truncateID(r.AllocationID),
			r.FieldID,
			r.CropID,
			r.StartDate.Format(time.DateOnly),
			r.CompletionDate.Format(time.DateOnly),
			money(r.AreaUsed),
			money(r.TotalCost),
			revenue,
			money(r.Profit),
		)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
