// Package export writes optimization results to spreadsheet files.
package export

import (
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/cropplan/internal/model"
)

// Sheet names written by WriteXLSX.
const (
	SheetSummary     = "Summary"
	SheetFields      = "Fields"
	SheetAllocations = "Allocations"
)

var allocationHeader = []string{
	"Allocation", "Field", "Crop", "Start", "Completion", "Growth Days",
	"Area", "Cost", "Revenue", "Profit",
}

// WriteXLSX saves res as a workbook at path.
func WriteXLSX(res *model.MultiFieldOptimizationResult, path string) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	return eris.Wrapf(f.Save(path), "export: save %s", path)
}

// WriteXLSXTo streams the workbook to w.
func WriteXLSXTo(res *model.MultiFieldOptimizationResult, w io.Writer) error {
	f, err := Workbook(res)
	if err != nil {
		return err
	}
	return eris.Wrap(f.Write(w), "export: write workbook")
}

// Workbook builds the summary, per-field and per-allocation sheets.
func Workbook(res *model.MultiFieldOptimizationResult) (*xlsx.File, error) {
	if res == nil {
		return nil, eris.New("export: result is nil")
	}
	f := xlsx.NewFile()

	summary, err := f.AddSheet(SheetSummary)
	if err != nil {
		return nil, eris.Wrap(err, "export: add summary sheet")
	}
	addStringRow(summary, "Optimization ID", res.OptimizationID)
	addStringRow(summary, "Algorithm", res.AlgorithmUsed)
	addFloatRow(summary, "Total Cost", res.TotalCost)
	addFloatRow(summary, "Total Revenue", res.TotalRevenue)
	addFloatRow(summary, "Total Profit", res.TotalProfit)
	addFloatRow(summary, "Optimization Seconds", res.OptimizationTime.Seconds())
	crops := make([]string, 0, len(res.CropAreas))
	for c := range res.CropAreas {
		crops = append(crops, c)
	}
	sort.Strings(crops)
	for _, c := range crops {
		addFloatRow(summary, "Area: "+c, res.CropAreas[c])
	}

	fields, err := f.AddSheet(SheetFields)
	if err != nil {
		return nil, eris.Wrap(err, "export: add fields sheet")
	}
	addHeader(fields, "Field", "Name", "Area", "Area Used", "Utilization %", "Cost", "Revenue", "Profit")
	for _, s := range res.FieldSchedules {
		row := fields.AddRow()
		row.AddCell().SetString(s.Field.ID)
		row.AddCell().SetString(s.Field.Name)
		row.AddCell().SetFloat(s.Field.Area)
		row.AddCell().SetFloat(s.AreaUsed)
		row.AddCell().SetFloat(s.UtilizationPercent)
		row.AddCell().SetFloat(s.TotalCost)
		row.AddCell().SetFloat(s.TotalRevenue)
		row.AddCell().SetFloat(s.TotalProfit)
	}

	allocs, err := f.AddSheet(SheetAllocations)
	if err != nil {
		return nil, eris.Wrap(err, "export: add allocations sheet")
	}
	addHeader(allocs, allocationHeader...)
	for _, a := range res.Allocations() {
		row := allocs.AddRow()
		row.AddCell().SetString(a.AllocationID)
		row.AddCell().SetString(a.Field.ID)
		row.AddCell().SetString(a.Crop.DisplayName())
		row.AddCell().SetString(a.StartDate.Format(time.DateOnly))
		row.AddCell().SetString(a.CompletionDate.Format(time.DateOnly))
		row.AddCell().SetInt(a.GrowthDays)
		row.AddCell().SetFloat(a.AreaUsed)
		row.AddCell().SetFloat(a.TotalCost)
		if a.ExpectedRevenue != nil {
			row.AddCell().SetFloat(*a.ExpectedRevenue)
		} else {
			row.AddCell().SetString("")
		}
		row.AddCell().SetFloat(a.ProfitValue())
	}
	return f, nil
}

func addHeader(sheet *xlsx.Sheet, cols ...string) {
	row := sheet.AddRow()
	for _, c := range cols {
		row.AddCell().SetString(c)
	}
}

func addStringRow(sheet *xlsx.Sheet, label, value string) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetString(value)
}

func addFloatRow(sheet *xlsx.Sheet, label string, value float64) {
	row := sheet.AddRow()
	row.AddCell().SetString(label)
	row.AddCell().SetFloat(value)
}
