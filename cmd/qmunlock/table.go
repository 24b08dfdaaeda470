package main

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

type column struct {
	Title string
	Right bool
}

// tableView is a rounded go-pretty table with an optional footer row.
type tableView struct {
	Columns []column
	Rows    [][]string
	Footer  []string
}

func (v tableView) render() string {
	n := len(v.Columns)
	if n == 0 {
		return ""
	}

	tw := table.NewWriter()
	style := table.StyleRounded
	style.Format.Footer = text.FormatDefault
	tw.SetStyle(style)

	header := make(table.Row, n)
	configs := make([]table.ColumnConfig, 0, n)
	for i, col := range v.Columns {
		header[i] = col.Title
		align := text.AlignLeft
		if col.Right {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, AlignFooter: align})
	}
	tw.AppendHeader(header)
	tw.SetColumnConfigs(configs)

	for _, row := range v.Rows {
		tw.AppendRow(padRow(row, n))
	}
	if len(v.Footer) > 0 {
		tw.AppendFooter(padRow(v.Footer, n))
	}
	return tw.Render()
}

func padRow(cells []string, n int) table.Row {
	row := make(table.Row, n)
	for i := range n {
		if i < len(cells) {
			row[i] = cells[i]
		} else {
			row[i] = ""
		}
	}
	return row
}
