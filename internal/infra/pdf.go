package infra

// pdf.go renders tabular reports with go-pdf/fpdf. Vietnamese text needs a
// UTF-8 TrueType font (PDF_FONT_PATH); without one the core Helvetica font is
// used and characters outside cp1252 are lost.

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// PDFTable is a titled table with an optional footer line.
type PDFTable struct {
	Title    string
	Subtitle string
	Headers  []string
	Widths   []float64 // mm, one per header
	Rows     [][]string
	Footer   string
}

// PDFRenderer writes PDFTable documents.
type PDFRenderer struct {
	fontPath string
}

func NewPDFRenderer(fontPath string) *PDFRenderer {
	return &PDFRenderer{fontPath: fontPath}
}

// Render writes t as an A4 landscape document to w.
func (r *PDFRenderer) Render(w io.Writer, t PDFTable) error {
	if len(t.Widths) != len(t.Headers) {
		return fmt.Errorf("pdf: %d widths for %d headers", len(t.Widths), len(t.Headers))
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	family := "Helvetica"
	tr := func(s string) string { return s }
	if r.fontPath != "" {
		family = "body"
		pdf.AddUTF8Font(family, "", r.fontPath)
		pdf.AddUTF8Font(family, "B", r.fontPath)
	} else {
		tr = pdf.UnicodeTranslatorFromDescriptor("")
	}
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont(family, "B", 14)
	pdf.CellFormat(0, 8, tr(t.Title), "", 1, "C", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont(family, "", 10)
		pdf.CellFormat(0, 6, tr(t.Subtitle), "", 1, "C", false, 0, "")
	}
	pdf.Ln(4)

	pdf.SetFont(family, "B", 9)
	pdf.SetFillColor(217, 225, 242)
	for i, h := range t.Headers {
		pdf.CellFormat(t.Widths[i], 7, tr(h), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(family, "", 9)
	for _, row := range t.Rows {
		for i := range t.Headers {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			align := "L"
			if i > 0 && i == len(t.Headers)-1 {
				align = "R"
			}
			pdf.CellFormat(t.Widths[i], 6, tr(cell), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if t.Footer != "" {
		pdf.Ln(3)
		pdf.SetFont(family, "B", 10)
		pdf.CellFormat(0, 7, tr(t.Footer), "", 1, "R", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("pdf: %w", err)
	}
	return pdf.Output(w)
}
