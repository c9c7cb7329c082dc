// Package reporter turns benchmark results into sorted report rows and
// renders them as csv, an aligned table or json.
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-runewidth"

	"github.com/bebsworthy/startupbench/internal/bench"
	"github.com/bebsworthy/startupbench/internal/version"
)

// Supported formats.
const (
	FormatCSV   = "csv"
	FormatTable = "table"
	FormatJSON  = "json"
)

// Row is one printable line of the report.
type Row struct {
	Version  string
	Jar      string
	Failures int
	Mean     float64
	StdDev   float64
	Min      float64
	Max      float64
}

// Rows summarizes every result in unit, in input order.
func Rows(results []*bench.TrialResult, unit time.Duration) []Row {
	rows := make([]Row, 0, len(results))
	for _, r := range results {
		s := r.Summary(unit)
		rows = append(rows, Row{
			Version:  r.Version,
			Jar:      filepath.Base(r.TargetJar),
			Failures: s.Failures,
			Mean:     s.Mean,
			StdDev:   s.StdDev,
			Min:      s.Min,
			Max:      s.Max,
		})
	}
	return rows
}

// Sort orders rows by the numeric minor version, so 0.9.0 precedes 0.10.0.
// Rows with equal minor versions fall back to a full version comparison and
// unparseable versions sort last.
func Sort(rows []Row) {
	sort.SliceStable(rows, func(i, j int) bool {
		mi, erri := version.MinorNumber(rows[i].Version)
		mj, errj := version.MinorNumber(rows[j].Version)
		switch {
		case erri != nil || errj != nil:
			return erri == nil && errj != nil
		case mi != mj:
			return mi < mj
		}
		vi, erri := version.Parse(rows[i].Version)
		vj, errj := version.Parse(rows[j].Version)
		if erri != nil || errj != nil {
			return false
		}
		return vi.Compare(vj) < 0
	})
}

// Header returns the column names for unitName, e.g. "ms".
func Header(unitName string) []string {
	return []string{
		"version",
		"jar",
		"failures",
		"mean(" + unitName + ")",
		"stddev(" + unitName + ")",
		"min(" + unitName + ")",
		"max(" + unitName + ")",
	}
}

// Fields returns the row values in header order. Statistics use two
// decimals and NaN when undefined.
func (r Row) Fields() []string {
	return []string{
		r.Version,
		r.Jar,
		strconv.Itoa(r.Failures),
		formatStat(r.Mean),
		formatStat(r.StdDev),
		formatStat(r.Min),
		formatStat(r.Max),
	}
}

func formatStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Write renders rows in format.
func Write(w io.Writer, format, unitName string, rows []Row) error {
	switch format {
	case FormatCSV, "":
		return writeCSV(w, unitName, rows)
	case FormatTable:
		return writeTable(w, unitName, rows)
	case FormatJSON:
		return writeJSON(w, unitName, rows)
	}
	return fmt.Errorf("unknown report format %q", format)
}

func writeCSV(w io.Writer, unitName string, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header(unitName)); err != nil {
		return err
	}
	for _, r := range rows {
		if err := cw.Write(r.Fields()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func writeTable(w io.Writer, unitName string, rows []Row) error {
	cells := [][]string{Header(unitName)}
	for _, r := range rows {
		cells = append(cells, r.Fields())
	}

	widths := make([]int, len(cells[0]))
	for _, line := range cells {
		for i, c := range line {
			if cw := runewidth.StringWidth(c); cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	var b strings.Builder
	for n, line := range cells {
		for i, c := range line {
			if i > 0 {
				b.WriteString("  ")
			}
			// text columns are left aligned, numbers right aligned
			if i < 2 {
				b.WriteString(padRight(c, widths[i]))
			} else {
				b.WriteString(padLeft(c, widths[i]))
			}
		}
		b.WriteString("\n")
		if n == 0 {
			for i, width := range widths {
				if i > 0 {
					b.WriteString("  ")
				}
				b.WriteString(strings.Repeat("-", width))
			}
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func padRight(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return s + strings.Repeat(" ", width-sw)
}

func padLeft(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	return strings.Repeat(" ", width-sw) + s
}

type jsonRow struct {
	Version  string   `json:"version"`
	Jar      string   `json:"jar"`
	Failures int      `json:"failures"`
	Unit     string   `json:"unit"`
	Mean     *float64 `json:"mean"`
	StdDev   *float64 `json:"stddev"`
	Min      *float64 `json:"min"`
	Max      *float64 `json:"max"`
}

func writeJSON(w io.Writer, unitName string, rows []Row) error {
	out := make([]jsonRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, jsonRow{
			Version:  r.Version,
			Jar:      r.Jar,
			Failures: r.Failures,
			Unit:     unitName,
			Mean:     jsonStat(r.Mean),
			StdDev:   jsonStat(r.StdDev),
			Min:      jsonStat(r.Min),
			Max:      jsonStat(r.Max),
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// jsonStat maps NaN to null and rounds to two decimals like the text formats.
func jsonStat(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	rounded := math.Round(v*100) / 100
	return &rounded
}
