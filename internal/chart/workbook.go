package chart

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/receipt-scanner/internal/aggregate"
)

// Workbook sheet names.
const (
	ItemsSheet    = "Items"
	ByItemSheet   = "By Item"
	ByAmountSheet = "By Amount"
)

// amountFormat is the built-in "0.00" number format.
const amountFormat = 2

// WriteWorkbook writes the merged items and the per-item summaries to an
// XLSX workbook with native charts:
//
//   - Items:     every row (Item, Quantity, Price, Total, Source)
//   - By Item:   totals per item by quantity, a column chart and the top-N pie
//   - By Amount: totals per item by amount and a bar chart
func WriteWorkbook(path string, table *aggregate.Table, topN int) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ItemsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}
	for _, name := range []string{ByItemSheet, ByAmountSheet} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	style, err := f.NewStyle(&excelize.Style{NumFmt: amountFormat})
	if err != nil {
		return fmt.Errorf("failed to create style: %w", err)
	}

	if err := writeItemsSheet(f, table, style); err != nil {
		return err
	}

	byItem := table.ByItem()
	if err := writeGroupSheet(f, ByItemSheet, byItem, style); err != nil {
		return err
	}
	byAmount := table.ByAmount()
	if err := writeGroupSheet(f, ByAmountSheet, byAmount, style); err != nil {
		return err
	}

	if len(byItem) > 0 {
		if err := addCharts(f, len(byItem), topN); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}
	return nil
}

func writeItemsSheet(f *excelize.File, table *aggregate.Table, style int) error {
	header := []interface{}{"Item", "Quantity", "Price", "Total", "Source"}
	if err := f.SetSheetRow(ItemsSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", ItemsSheet, err)
	}

	for i, item := range table.Items() {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			item.Name,
			item.Quantity,
			item.UnitPrice.InexactFloat64(),
			item.LineTotal.InexactFloat64(),
			filepath.Base(item.SourceFile),
		}
		if err := f.SetSheetRow(ItemsSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", ItemsSheet, i+2, err)
		}
	}

	if table.Len() > 0 {
		last := table.Len() + 1
		if err := f.SetCellStyle(ItemsSheet, "C2", fmt.Sprintf("D%d", last), style); err != nil {
			return err
		}
	}
	return nil
}

func writeGroupSheet(f *excelize.File, sheet string, groups []aggregate.Group, style int) error {
	header := []interface{}{"Item", "Quantity", "Amount"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	for i, g := range groups {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{g.Name, g.Quantity, g.Amount.InexactFloat64()}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+2, err)
		}
	}

	if len(groups) > 0 {
		if err := f.SetCellStyle(sheet, "C2", fmt.Sprintf("C%d", len(groups)+1), style); err != nil {
			return err
		}
	}
	return f.SetColWidth(sheet, "A", "A", 28)
}

// seriesRange returns an absolute reference to rows 2..last of column col.
func seriesRange(sheet, col string, last int) string {
	return fmt.Sprintf("'%s'!$%s$2:$%s$%d", sheet, col, col, last)
}

func addCharts(f *excelize.File, groups, topN int) error {
	last := groups + 1

	quantity := &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$B$1", ByItemSheet),
			Categories: seriesRange(ByItemSheet, "A", last),
			Values:     seriesRange(ByItemSheet, "B", last),
		}},
		Title:     []excelize.RichTextRun{{Text: QuantityTitle}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	}
	if err := f.AddChart(ByItemSheet, "E2", quantity); err != nil {
		return fmt.Errorf("failed to add quantity chart: %w", err)
	}

	top := min(topN, groups)
	if top > 0 {
		pie := &excelize.Chart{
			Type: excelize.Pie,
			Series: []excelize.ChartSeries{{
				Name:       fmt.Sprintf("'%s'!$B$1", ByItemSheet),
				Categories: seriesRange(ByItemSheet, "A", top+1),
				Values:     seriesRange(ByItemSheet, "B", top+1),
			}},
			Title:     []excelize.RichTextRun{{Text: TopItemsTitle(topN)}},
			Legend:    excelize.ChartLegend{Position: "right"},
			PlotArea:  excelize.ChartPlotArea{ShowPercent: true},
			Dimension: excelize.ChartDimension{Width: 640, Height: 360},
		}
		if err := f.AddChart(ByItemSheet, "E22", pie); err != nil {
			return fmt.Errorf("failed to add top items chart: %w", err)
		}
	}

	amount := &excelize.Chart{
		Type: excelize.Bar,
		Series: []excelize.ChartSeries{{
			Name:       fmt.Sprintf("'%s'!$C$1", ByAmountSheet),
			Categories: seriesRange(ByAmountSheet, "A", last),
			Values:     seriesRange(ByAmountSheet, "C", last),
		}},
		Title:     []excelize.RichTextRun{{Text: AmountTitle}},
		Legend:    excelize.ChartLegend{Position: "none"},
		Dimension: excelize.ChartDimension{Width: 640, Height: 360},
	}
	if err := f.AddChart(ByAmountSheet, "E2", amount); err != nil {
		return fmt.Errorf("failed to add amount chart: %w", err)
	}
	return nil
}
