package booking

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// ReceiptData carries everything printed on a booking receipt.
type ReceiptData struct {
	BookingNumber string
	Status        string
	CustomerName  string
	CenterName    string
	CenterAddress string
	CenterCity    string
	PlateNumber   string
	VehicleLabel  string
	SlotDate      string
	SlotTime      string
	Amount        float64
	IssuedAt      time.Time
}

// BuildReceiptPDF renders an A4 receipt for a paid booking.
func BuildReceiptPDF(data ReceiptData) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.CellFormat(0, 12, "Vehicle Inspection Booking Receipt", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued on %s", data.IssuedAt.Format("02 Jan 2006 15:04")), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	row := func(label, value string) {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(55, 8, label, "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(0, 8, value, "", 1, "L", false, 0, "")
	}

	row("Booking number", data.BookingNumber)
	row("Status", data.Status)
	row("Customer", data.CustomerName)
	pdf.Ln(4)

	row("Inspection center", data.CenterName)
	row("Address", fmt.Sprintf("%s, %s", data.CenterAddress, data.CenterCity))
	pdf.Ln(4)

	row("Vehicle", data.VehicleLabel)
	row("Plate number", data.PlateNumber)
	row("Appointment", fmt.Sprintf("%s at %s", data.SlotDate, data.SlotTime))
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 13)
	pdf.CellFormat(55, 10, "Amount paid", "T", 0, "L", false, 0, "")
	pdf.CellFormat(0, 10, fmt.Sprintf("%.2f MAD", data.Amount), "T", 1, "L", false, 0, "")

	pdf.Ln(10)
	pdf.SetFont("Arial", "I", 9)
	pdf.MultiCell(0, 5, "Please arrive 10 minutes before your appointment with your vehicle registration card. This receipt is required at the inspection center.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
