package chart

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ginjaninja78/receipt-scanner/internal/aggregate"
)

// Chart file names written by WriteCharts.
const (
	QuantityChartFile = "quantity_per_item.png"
	AmountChartFile   = "sales_per_item.png"
	TopItemsChartFile = "top_items.png"
)

// Chart titles.
const (
	QuantityTitle = "Total Quantity Sold per Item"
	AmountTitle   = "Total Sales Amount per Item"
)

// TopItemsTitle returns the title of the top items pie.
func TopItemsTitle(n int) string {
	return fmt.Sprintf("Top %d Items by Quantity Sold", n)
}

// WriteCharts renders the three report charts of table into dir.
//
// RETURNS:
//   - The paths of the files written, in chart order.
//   - An error if a chart cannot be written.
func WriteCharts(dir string, table *aggregate.Table, topN int, opts Options) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create chart directory: %w", err)
	}

	charts := []struct {
		file   string
		render func(io.Writer) error
	}{
		{QuantityChartFile, func(w io.Writer) error {
			return RenderBar(w, QuantityTitle, QuantityBars(table.ByItem()), opts)
		}},
		{AmountChartFile, func(w io.Writer) error {
			return RenderHBar(w, AmountTitle, AmountBars(table.ByAmount()), opts)
		}},
		{TopItemsChartFile, func(w io.Writer) error {
			return RenderPie(w, TopItemsTitle(topN), QuantityBars(table.Top(topN)), opts)
		}},
	}

	paths := make([]string, 0, len(charts))
	for _, c := range charts {
		path := filepath.Join(dir, c.file)
		if err := writeFile(path, c.render); err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render %s: %w", path, err)
	}
	return f.Close()
}
