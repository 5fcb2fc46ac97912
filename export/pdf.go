package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

// WritePDF renders the report's summary sections as a printable A4 document.
// The PDF carries the headline numbers and breakdown tables; the CSV export
// remains the full-detail format.
func WritePDF(w io.Writer, r *Report) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, r.Title)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(0, 6, "Period: "+r.RangeLabel())
	pdf.Ln(5)
	pdf.Cell(0, 6, "Generated: "+r.GeneratedAt.Format("2006-01-02 15:04 MST"))
	pdf.Ln(10)

	sectionTitle(pdf, "Executive Summary")
	summaryLine(pdf, "Total Hours", r.Totals.Hours.String())
	summaryLine(pdf, "Effective Hours", r.Totals.EffectiveHours.String())
	summaryLine(pdf, "Labor Cost", money(r.Totals.LaborCost))
	summaryLine(pdf, "Billable Amount", money(r.Totals.BillableAmount))
	summaryLine(pdf, "LOA", money(r.Totals.LOAAmount))
	summaryLine(pdf, "GST Collected", money(r.Totals.GST))
	summaryLine(pdf, "Revenue", money(r.Totals.Revenue()))
	summaryLine(pdf, "Profit", money(r.Totals.Profit))
	summaryLine(pdf, "Non-Billable Cost", money(r.Totals.NonBillableCost))
	if r.RentalTotals.Count > 0 {
		summaryLine(pdf, "Rental Revenue", money(r.RentalTotals.Revenue))
		summaryLine(pdf, "Rental Profit", money(r.RentalTotals.Profit))
	}
	pdf.Ln(6)

	sectionTitle(pdf, "Tax Breakdown by Category and Province")
	tableHeader(pdf, []float64{40, 40, 35, 40, 35},
		"Category", "Province", "Eff. Hours", "Billable", "GST")
	pdf.SetFont("Helvetica", "", 9)
	for i := range r.CategoryProvince {
		g := &r.CategoryProvince[i]
		tableRow(pdf, []float64{40, 40, 35, 40, 35},
			orUnknown(g.Parts[0]),
			orUnknown(g.Parts[1]),
			g.EffectiveHours.String(),
			money(g.BillableAmount),
			money(g.GST),
		)
	}
	pdf.Ln(6)

	sectionTitle(pdf, "Monthly Breakdown")
	tableHeader(pdf, []float64{30, 30, 35, 35, 30, 30},
		"Month", "Hours", "Labor Cost", "Billable", "GST", "Profit")
	pdf.SetFont("Helvetica", "", 9)
	for i := range r.Monthly {
		g := &r.Monthly[i]
		tableRow(pdf, []float64{30, 30, 35, 35, 30, 30},
			g.Key,
			g.Hours.String(),
			money(g.LaborCost),
			money(g.BillableAmount),
			money(g.GST),
			money(g.Profit),
		)
	}
	pdf.Ln(6)

	sectionTitle(pdf, "Invoice Status")
	tableHeader(pdf, []float64{40, 30, 30, 40, 35},
		"Status", "Entries", "Hours", "Billable", "GST")
	pdf.SetFont("Helvetica", "", 9)
	for i := range r.InvoiceStatus {
		g := &r.InvoiceStatus[i]
		tableRow(pdf, []float64{40, 30, 30, 40, 35},
			g.Key,
			fmt.Sprintf("%d", g.EntryCount),
			g.Hours.String(),
			money(g.BillableAmount),
			money(g.GST),
		)
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func summaryLine(pdf *gofpdf.Fpdf, label, value string) {
	pdf.SetFont("Helvetica", "", 10)
	pdf.Cell(60, 6, label)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.Cell(0, 6, value)
	pdf.Ln(6)
}

func sectionTitle(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, title)
	pdf.Ln(8)
}

func tableHeader(pdf *gofpdf.Fpdf, widths []float64, cells ...string) {
	pdf.SetFont("Helvetica", "B", 9)
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, c, "B", 0, "L", false, 0, "")
	}
	pdf.Ln(6)
}

func tableRow(pdf *gofpdf.Fpdf, widths []float64, cells ...string) {
	for i, c := range cells {
		pdf.CellFormat(widths[i], 6, c, "", 0, "L", false, 0, "")
	}
	pdf.Ln(6)
}
