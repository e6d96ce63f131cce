package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"mercator-hq/beaconlog/pkg/upload"
)

// OutputFormat represents the output format for command results.
type OutputFormat string

const (
	// FormatText is an aligned table (default).
	FormatText OutputFormat = "text"
	// FormatJSON is JSON output.
	FormatJSON OutputFormat = "json"
	// FormatCSV is CSV output.
	FormatCSV OutputFormat = "csv"
)

// ParseOutputFormat validates a --output flag value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(s)); f {
	case FormatText, FormatJSON, FormatCSV:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", NewConfigError("output", fmt.Sprintf("unknown format %q (want text, json or csv)", s))
	}
}

// Table is tabular command output.
type Table interface {
	Header() []string
	Rows() [][]string
}

// Formatter formats command output.
type Formatter interface {
	FormatTo(w io.Writer, data Table) error
}

// TextFormatter writes an aligned table.
type TextFormatter struct{}

// FormatTo writes data to w as a tab-aligned table.
func (f *TextFormatter) FormatTo(w io.Writer, data Table) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(data.Header(), "\t"))
	for _, row := range data.Rows() {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// JSONFormatter writes the table as an array of objects keyed by header.
type JSONFormatter struct {
	Indent bool
}

// FormatTo writes data to w in JSON format.
func (f *JSONFormatter) FormatTo(w io.Writer, data Table) error {
	header := data.Header()
	rows := data.Rows()
	out := make([]map[string]string, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(row) {
				obj[h] = row[i]
			}
		}
		out = append(out, obj)
	}

	encoder := json.NewEncoder(w)
	if f.Indent {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(out)
}

// CSVFormatter formats output as CSV.
type CSVFormatter struct{}

// FormatTo writes data to w in CSV format.
func (f *CSVFormatter) FormatTo(w io.Writer, data Table) error {
	csvWriter := csv.NewWriter(w)
	if err := csvWriter.Write(data.Header()); err != nil {
		return err
	}
	if err := csvWriter.WriteAll(data.Rows()); err != nil {
		return err
	}
	return csvWriter.Error()
}

// NewFormatter creates a new formatter for the specified format.
func NewFormatter(format OutputFormat) Formatter {
	switch format {
	case FormatJSON:
		return &JSONFormatter{Indent: true}
	case FormatCSV:
		return &CSVFormatter{}
	default:
		return &TextFormatter{}
	}
}

// UploadTable renders upload ledger entries.
type UploadTable []*upload.Entry

// Header implements Table.
func (t UploadTable) Header() []string {
	return []string{"path", "run_id", "day", "sequence", "bytes", "status", "dispatched_at", "error"}
}

// Rows implements Table.
func (t UploadTable) Rows() [][]string {
	rows := make([][]string, 0, len(t))
	for _, e := range t {
		dispatched := ""
		if !e.DispatchedAt.IsZero() {
			dispatched = e.DispatchedAt.UTC().Format(time.RFC3339)
		}
		rows = append(rows, []string{
			e.Path,
			e.RunID,
			e.Day.String(),
			strconv.Itoa(e.Sequence),
			strconv.FormatInt(e.Bytes, 10),
			e.Status,
			dispatched,
			e.Error,
		})
	}
	return rows
}
