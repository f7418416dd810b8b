// Package receipts renders payment receipts as PDF documents.
package receipts

import (
	"bytes"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"clinic-booking-server/internal/models"
)

// Title is printed at the top of every receipt.
const Title = "Clinic Appointment Payment Receipt"

// Render builds a one-page A4 receipt for payment p made against a.
func Render(p *models.Payment, a *models.Appointment, payerName string) ([]byte, error) {
	pdf := build(p, a, payerName)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

// build lays out the receipt. Core fonts are cp1252 encoded, so every UTF-8
// string goes through the translator before it is drawn.
func build(p *models.Payment, a *models.Appointment, payerName string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(10, 10, 10)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 10, Title, "", 1, "C", false, 0, "")
	pdf.Ln(4)

	detail := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(50, 8, tr(label+":"), "", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, tr(value), "", 1, "", false, 0, "")
	}

	detail("Transaction ID", p.TransactionID)
	detail("Paid by", payerName)
	detail("Payment method", string(p.Method))
	if p.PhoneNumber != "" {
		detail("Phone number", p.PhoneNumber)
	}
	detail("Amount", p.Amount.StringFixed(2))
	detail("Payment status", string(p.Status))
	detail("Paid at", p.CreatedAt.UTC().Format("2006-01-02 15:04"))

	pdf.Ln(4)
	detail("Service", a.ServiceType)
	detail("Appointment", fmt.Sprintf("%s at %s", a.DateString(), a.TimeString()))
	detail("Appointment status", string(a.Status))

	pdf.Ln(6)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "This receipt confirms a payment recorded by the clinic. Keep it for your records.", "", "C", false)
	return pdf
}
