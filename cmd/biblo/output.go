package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"biblomnemon/internal/library"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

type outputMode string

const (
	outputAuto  outputMode = "auto"
	outputTable outputMode = "table"
	outputJSON  outputMode = "json"
)

func parseOutputMode(s string) (outputMode, error) {
	switch m := outputMode(strings.ToLower(strings.TrimSpace(s))); m {
	case outputAuto, outputTable, outputJSON:
		return m, nil
	case "":
		return outputAuto, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want auto, table or json)", s)
	}
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
			WidthMax:    60,
		})
	}
	tw.SetColumnConfigs(configs)

	return tw.Render()
}

var bookHeaders = []string{"ID", "Source", "Title", "Authors", "ISBN", "Year"}

func bookRows(books []library.Book) [][]string {
	rows := make([][]string, 0, len(books))
	for _, b := range books {
		year := ""
		if b.PublishYear != nil {
			year = strconv.Itoa(*b.PublishYear)
		}
		rows = append(rows, []string{
			b.ID,
			string(b.Source),
			b.Title,
			strings.Join(b.AuthorNames(), ", "),
			b.ISBN,
			year,
		})
	}
	return rows
}

// printBooks writes books as a table or JSON depending on the output mode.
func printBooks(cmd *cobra.Command, mode outputMode, books []library.Book) error {
	if mode == outputJSON {
		if books == nil {
			books = []library.Book{}
		}
		return writeJSON(cmd, books)
	}
	if len(books) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No books found")
		return nil
	}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(bookHeaders, bookRows(books), aligns))
	return nil
}

// printRecord writes key/value pairs as a two-column table, or v as JSON.
func printRecord(cmd *cobra.Command, mode outputMode, v any, pairs [][]string) error {
	if mode == outputJSON {
		return writeJSON(cmd, v)
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, pairs, nil))
	return nil
}
