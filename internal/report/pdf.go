package report

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/Tiliavir/reception/internal/model"
)

type pdfColumn struct {
	title string
	width float64
	align string
}

var pdfColumns = []pdfColumn{
	{"ID", 10, "C"},
	{"Date", 32, "C"},
	{"Name", 40, "L"},
	{"ID number", 28, "C"},
	{"Service", 30, "L"},
	{"Neighborhood", 26, "L"},
	{"Called", 10, "C"},
	{"Status", 14, "C"},
}

// WritePDF renders the report as an A4 document.
func WritePDF(w io.Writer, r Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetAutoPageBreak(true, 12)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(190, 10, tr("Reception Report - "+r.Month), "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(190, 6, fmt.Sprintf("File: %s   Generated: %s", r.File, r.Generated.Format("02-Jan-2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(190, 8, "Summary", "1", 1, "L", true, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(63, 7, fmt.Sprintf("Total: %d", r.Summary.Total), "LB", 0, "L", false, 0, "")
	pdf.CellFormat(63, 7, fmt.Sprintf("Called: %d", r.Summary.Called), "B", 0, "L", false, 0, "")
	pdf.CellFormat(64, 7, fmt.Sprintf("Not called: %d", r.Summary.NotCalled), "RB", 1, "L", false, 0, "")
	pdf.Ln(4)

	header := func() {
		pdf.SetFont("Arial", "B", 8)
		pdf.SetFillColor(200, 200, 200)
		for _, c := range pdfColumns {
			pdf.CellFormat(c.width, 7, c.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 8)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	for _, e := range r.Entries {
		if pdf.GetY()+6 > pageHeight-bottom-12 {
			pdf.AddPage()
			header()
		}
		cells := []string{
			e.ID,
			e.Date.Format("02/01/2006 15:04"),
			e.Name,
			FormatIDNumber(e.IDNumber),
			e.ServiceType,
			e.Neighborhood,
			model.CalledLabel(e.Called),
			e.Status.String(),
		}
		for i, c := range pdfColumns {
			pdf.CellFormat(c.width, 6, fit(pdf, tr, cells[i], c.width-2), "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(r.Entries) == 0 {
		pdf.CellFormat(190, 7, "No visitors recorded.", "1", 1, "C", false, 0, "")
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("writing pdf report: %w", err)
	}
	return nil
}

// fit shortens s with "..." until it fits in width at the current font and
// returns it translated for the core fonts.
func fit(pdf *gofpdf.Fpdf, tr func(string) string, s string, width float64) string {
	if pdf.GetStringWidth(tr(s)) <= width {
		return tr(s)
	}
	runes := []rune(s)
	for len(runes) > 0 && pdf.GetStringWidth(tr(string(runes)+"...")) > width {
		runes = runes[:len(runes)-1]
	}
	return tr(string(runes) + "...")
}
