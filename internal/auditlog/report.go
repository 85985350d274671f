package auditlog

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReportRow summarises the audit objects of one source table.
type ReportRow struct {
	Table      string   `json:"table"`
	LogTable   string   `json:"log_table"`
	LogColumns int      `json:"log_columns"`
	Triggers   []string `json:"triggers"`
}

// Report is a reviewable summary of a generated script.
type Report struct {
	GeneratedAt time.Time   `json:"generated_at"`
	Dialect     string      `json:"dialect"`
	File        string      `json:"file"`
	Statements  int         `json:"statements"`
	Rows        []ReportRow `json:"rows"`
}

// BuildReport pairs every table with the log table and triggers the script
// creates for it.
func BuildReport(tables []TableSchema, s Script, file string, now time.Time) Report {
	triggers := make(map[string][]string)
	for _, st := range s.Statements {
		if st.Kind == KindTrigger {
			triggers[st.Table] = append(triggers[st.Table], st.Name)
		}
	}

	rows := make([]ReportRow, 0, len(tables))
	for _, t := range tables {
		rows = append(rows, ReportRow{
			Table:      t.Name,
			LogTable:   LogTableName(t.Name),
			LogColumns: len(t.Columns) + auditColumnCount,
			Triggers:   triggers[t.Name],
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Table < rows[j].Table })

	return Report{
		GeneratedAt: now,
		Dialect:     s.Dialect,
		File:        filepath.Base(file),
		Statements:  len(s.Statements),
		Rows:        rows,
	}
}

// ExportCSV writes the summary followed by one line per table.
func ExportCSV(r Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	_ = w.Write([]string{"key", "value"})
	_ = w.Write([]string{"generated_at", r.GeneratedAt.Format(time.RFC3339)})
	_ = w.Write([]string{"dialect", r.Dialect})
	_ = w.Write([]string{"file", r.File})
	_ = w.Write([]string{"statements", fmt.Sprintf("%d", r.Statements)})

	_ = w.Write([]string{}) // blank line

	_ = w.Write([]string{"table", "log_table", "log_columns", "triggers"})
	for _, row := range r.Rows {
		_ = w.Write([]string{
			row.Table,
			row.LogTable,
			fmt.Sprintf("%d", row.LogColumns),
			strings.Join(row.Triggers, "|"),
		})
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("csv write: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportPDF renders an A4 portrait sheet listing every audited table.
func ExportPDF(r Report) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Audit Log Plan", false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Audit Log Plan")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 11)
	pdf.CellFormat(40, 6, "Generated at:", "0", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, r.GeneratedAt.Format(time.RFC3339), "0", 1, "", false, 0, "")
	pdf.CellFormat(40, 6, "Dialect:", "0", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, r.Dialect, "0", 1, "", false, 0, "")
	pdf.CellFormat(40, 6, "Script:", "0", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, r.File, "0", 1, "", false, 0, "")
	pdf.CellFormat(40, 6, "Statements:", "0", 0, "", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("%d", r.Statements), "0", 1, "", false, 0, "")
	pdf.Ln(6)

	colWidths := []float64{45, 50, 20, 75}
	headers := []string{"Table", "Log table", "Columns", "Triggers"}
	printHeader := func() {
		pdf.SetFont("Arial", "B", 10)
		for i, h := range headers {
			pdf.CellFormat(colWidths[i], 6, h, "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}
	printHeader()

	lineHeight := 5.0
	pageBottom := 287.0
	for _, row := range r.Rows {
		cells := []string{
			row.Table,
			row.LogTable,
			fmt.Sprintf("%d", row.LogColumns),
			strings.Join(row.Triggers, "\n"),
		}

		maxLines := 1
		for i, txt := range cells {
			lines := 0
			for _, part := range strings.Split(txt, "\n") {
				lines += len(pdf.SplitText(part, colWidths[i]))
			}
			if lines > maxLines {
				maxLines = lines
			}
		}
		rowH := float64(maxLines) * lineHeight

		if pdf.GetY()+rowH > pageBottom {
			pdf.AddPage()
			printHeader()
		}

		startX := pdf.GetX()
		y := pdf.GetY()
		x := startX
		for i, txt := range cells {
			pdf.Rect(x, y, colWidths[i], rowH, "")
			pdf.SetXY(x, y)
			pdf.MultiCell(colWidths[i], lineHeight, txt, "", "L", false)
			x += colWidths[i]
			pdf.SetXY(x, y)
		}
		pdf.SetXY(startX, y+rowH)
	}

	out := &bytes.Buffer{}
	if err := pdf.Output(out); err != nil {
		return nil, fmt.Errorf("pdf output: %w", err)
	}
	return out.Bytes(), nil
}
