package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// tableColumn describes one column of a CLI table.
type tableColumn struct {
	Title string
	Right bool
}

// cliTable collects rows for a rounded table. A totals row, when set, is
// rendered as the footer in the same column alignment as the body.
type cliTable struct {
	columns []tableColumn
	rows    [][]string
	totals  []string
}

func newCLITable(columns ...tableColumn) *cliTable {
	return &cliTable{columns: columns}
}

func (t *cliTable) addRow(cells ...string) {
	t.rows = append(t.rows, cells)
}

func (t *cliTable) setTotals(cells ...string) {
	t.totals = cells
}

func (t *cliTable) render() string {
	if len(t.columns) == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.Style().Format.Footer = text.FormatDefault

	header := make(table.Row, len(t.columns))
	configs := make([]table.ColumnConfig, 0, len(t.columns))
	for i, col := range t.columns {
		header[i] = col.Title
		align := text.AlignLeft
		if col.Right {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignFooter: align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.AppendHeader(header)
	for _, row := range t.rows {
		tw.AppendRow(t.pad(row))
	}
	if len(t.totals) > 0 {
		tw.AppendFooter(t.pad(t.totals))
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// pad fits cells to the column count; missing cells render empty.
func (t *cliTable) pad(cells []string) table.Row {
	row := make(table.Row, len(t.columns))
	for i := range row {
		row[i] = ""
		if i < len(cells) {
			row[i] = cells[i]
		}
	}
	return row
}
