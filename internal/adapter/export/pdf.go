package export

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/phpdave11/gofpdf"
)

const pdfMaxRows = 500

// PDF renders export tables as an A4 statement.
type PDF struct {
	brand string
}

// NewPDF creates a PDF renderer. brand is printed in the footer.
func NewPDF(brand string) PDF {
	return PDF{brand: brand}
}

func (PDF) Format() string      { return "pdf" }
func (PDF) ContentType() string { return "application/pdf" }

// Render lays the table out with a repeated header row. Rows whose first
// cell is a label (aggregate rows) are printed in a summary block.
func (p PDF) Render(title string, table [][]string) ([]byte, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("empty table")
	}
	header := table[0]
	var rows, totals [][]string
	for _, r := range table[1:] {
		if len(r) > 0 && isAggregate(r[0]) {
			totals = append(totals, r)
			continue
		}
		rows = append(rows, r)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, false)
	pdf.SetMargins(14, 14, 14)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, title)
	pdf.Ln(12)

	colW := []float64{12, 42, 40, 28, 30, 30}
	writeHeader := func() {
		pdf.SetFont("Helvetica", "B", 9)
		pdf.SetFillColor(245, 245, 245)
		for i, h := range header {
			pdf.CellFormat(width(colW, i), 8, strings.ToUpper(h), "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 9)
	}
	writeHeader()

	for i, r := range rows {
		if i >= pdfMaxRows {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.CellFormat(0, 8, fmt.Sprintf("... %d more rows in the CSV export", len(rows)-pdfMaxRows), "1", 1, "C", false, 0, "")
			break
		}
		if pdf.GetY() > 270 {
			pdf.AddPage()
			writeHeader()
		}
		for j, cell := range r {
			align := "L"
			if j >= 4 {
				align = "R"
			}
			pdf.CellFormat(width(colW, j), 7, cell, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "B", 10)
	for _, r := range totals {
		pdf.CellFormat(60, 8, strings.ReplaceAll(r[0], "_", " "), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 8, valueOf(r), "1", 1, "R", false, 0, "")
	}

	pdf.SetY(-18)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 10, fmt.Sprintf("Generated by %s %s", p.brand, time.Now().UTC().Format(time.RFC3339)), "", 0, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("building pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func isAggregate(first string) bool {
	return first != "" && (first[0] < '0' || first[0] > '9')
}

func valueOf(r []string) string {
	for i := len(r) - 1; i > 0; i-- {
		if r[i] != "" {
			return r[i]
		}
	}
	return ""
}

func width(cols []float64, i int) float64 {
	if i < len(cols) {
		return cols[i]
	}
	return 25
}
