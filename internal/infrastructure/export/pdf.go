package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
)

// pdfColumns are the summary table columns and their widths in mm (landscape A4)
var pdfColumns = []struct {
	title string
	width float64
}{
	{"Employee", 55},
	{"Total Score", 30},
	{"KPI", 60},
	{"Weight", 25},
	{"Tasks", 20},
	{"Average", 30},
	{"Weighted", 30},
}

// PDFWriter renders the progress report as a landscape table
type PDFWriter struct{}

// NewPDFWriter creates a PDF report writer
func NewPDFWriter() *PDFWriter { return &PDFWriter{} }

func (p *PDFWriter) Format() string      { return entity.ExportFormatPDF }
func (p *PDFWriter) ContentType() string { return "application/pdf" }

// Write renders report into w
func (p *PDFWriter) Write(w io.Writer, report *port.ProgressReport) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Employee Progress Report", true)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Employee Progress Report")
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, tr(fmt.Sprintf("Manager: %s", report.Manager.FullName())))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Period: %s", periodText(report.Period)))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Generated: %s", report.GeneratedAt.Format("2006-01-02 15:04")))
	pdf.Ln(10)

	header := func() {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetFillColor(230, 230, 230)
		for _, col := range pdfColumns {
			pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Helvetica", "", 10)
	}
	header()

	_, pageHeight := pdf.GetPageSize()
	_, _, _, bottom := pdf.GetMargins()
	line := func(cells ...string) {
		if pdf.GetY()+7 > pageHeight-bottom-12 {
			pdf.AddPage()
			header()
		}
		for i, col := range pdfColumns {
			align := "R"
			if i == 0 || i == 2 {
				align = "L"
			}
			pdf.CellFormat(col.width, 7, tr(cells[i]), "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	for _, row := range report.Rows {
		name, total := employeeName(row), totalText(row.Progress)
		lines := sortedBreakdown(row.Progress)
		if len(lines) == 0 {
			line(name, total, "", "", "", "", "")
			continue
		}
		for i, l := range lines {
			if i > 0 {
				name, total = "", ""
			}
			b := l.Breakdown
			line(name, total, l.Name,
				fmt.Sprintf("%.2f", b.Weight),
				fmt.Sprintf("%d", b.TaskCount),
				fmt.Sprintf("%.2f", b.AverageScore),
				fmt.Sprintf("%.2f", b.WeightedScore),
			)
		}
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render pdf: %w", err)
	}
	return pdf.Output(w)
}

var _ port.ReportWriter = (*PDFWriter)(nil)
