package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/ekaya-inc/ekaya-askdb/pkg/adapters/datasource"
	"github.com/ekaya-inc/ekaya-askdb/pkg/models"
)

// maxDisplayRows caps rows printed per statement in text output.
const maxDisplayRows = 50

// maxCellWidth truncates long cell values in text output.
const maxCellWidth = 40

func writeAskResult(w io.Writer, res *models.AskResult) error {
	for i, st := range res.Statements {
		fmt.Fprintf(w, "-- statement %d (%s)\n%s\n\n", i+1, st.Status, strings.TrimSpace(st.SQL))
		if st.Status != models.StatementSucceeded {
			fmt.Fprintf(w, "%s: %s\n\n", st.ErrorKind, st.Error)
			continue
		}
		if err := writeRows(w, st.Columns, st.Rows); err != nil {
			return err
		}
		fmt.Fprintf(w, "(%d row(s))\n\n", st.RowCount)
	}

	if res.Summary != "" {
		fmt.Fprintf(w, "%s\n", res.Summary)
	}
	if len(res.Suggestions) > 0 {
		fmt.Fprintln(w, "\nYou could also ask:")
		for _, s := range res.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
	return nil
}

func writeRows(w io.Writer, columns []string, rows []models.Row) error {
	if len(columns) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(columns, "\t"))

	underline := make([]string, len(columns))
	for i, c := range columns {
		underline[i] = strings.Repeat("-", min(len(c), maxCellWidth))
	}
	fmt.Fprintln(tw, strings.Join(underline, "\t"))

	for i, row := range rows {
		if i == maxDisplayRows {
			fmt.Fprintf(tw, "... %d more row(s)\n", len(rows)-maxDisplayRows)
			break
		}
		cells := make([]string, len(columns))
		for j, c := range columns {
			cells[j] = formatCell(row[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func formatCell(v any) string {
	var s string
	switch val := v.(type) {
	case nil:
		s = "NULL"
	case []byte:
		s = string(val)
	default:
		s = fmt.Sprint(val)
	}
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) > maxCellWidth {
		s = s[:maxCellWidth-3] + "..."
	}
	return s
}

func writeDialects(w io.Writer, dialects []datasource.DialectInfo) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "DIALECT\tNAME\tPORT\tDESCRIPTION")
	for _, d := range dialects {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\n", d.Dialect, d.DisplayName, d.DefaultPort, d.Description)
	}
	return tw.Flush()
}
