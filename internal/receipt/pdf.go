package receipt

import (
	"bytes"
	"fmt"
	"time"

	"tableorder-service/internal/ordering"

	"github.com/phpdave11/gofpdf"
)

// Header identifies the venue printed at the top of a document.
type Header struct {
	RestaurantName string
	TableNumber    string
}

func formatAmount(amount float64) string {
	return fmt.Sprintf("Rs. %.2f", amount)
}

func formatTime(t time.Time) string {
	return t.Format("02 Jan 2006 15:04")
}

func newDocument(header Header, title string) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(12, 12, 12)
	pdf.AddPage()
	name := header.RestaurantName
	if name == "" {
		name = "Restaurant"
	}
	pdf.SetFont("Arial", "B", 14)
	pdf.CellFormat(0, 8, name, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	if header.TableNumber != "" {
		pdf.CellFormat(0, 5, fmt.Sprintf("Table %s", header.TableNumber), "", 1, "C", false, 0, "")
	}
	pdf.Ln(3)
	return pdf
}

func writeItems(pdf *gofpdf.Fpdf, items []ordering.OrderItem) {
	pdf.SetFont("Arial", "", 9)
	for _, item := range items {
		line := float64(item.Quantity) * item.UnitPrice
		pdf.CellFormat(140, 5, fmt.Sprintf("%dx %s", item.Quantity, item.Name), "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, formatAmount(line), "", 1, "R", false, 0, "")
		if item.SpecialInstructions != nil && *item.SpecialInstructions != "" {
			pdf.MultiCell(0, 4, fmt.Sprintf("  Notes: %s", *item.SpecialInstructions), "", "L", false)
		}
	}
}

func writeTotals(pdf *gofpdf.Fpdf, subtotal, tax, discount, total float64) {
	pdf.Ln(2)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Totals", "B", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(140, 5, "Subtotal", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, formatAmount(subtotal), "", 1, "R", false, 0, "")
	pdf.CellFormat(140, 5, "GST (18%)", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 5, formatAmount(tax), "", 1, "R", false, 0, "")
	if discount > 0 {
		pdf.CellFormat(140, 5, "Discount", "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 5, "-"+formatAmount(discount), "", 1, "R", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(140, 6, "Total", "", 0, "L", false, 0, "")
	pdf.CellFormat(0, 6, formatAmount(total), "", 1, "R", false, 0, "")
}

func output(pdf *gofpdf.Fpdf) ([]byte, error) {
	var out bytes.Buffer
	if err := pdf.Output(&out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// RenderBill prints every unpaid order of a table followed by the combined totals.
func RenderBill(bill ordering.Bill, header Header) ([]byte, error) {
	pdf := newDocument(header, "Bill")
	for _, order := range bill.Orders {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, fmt.Sprintf("Order %s  %s", order.OrderNumber, formatTime(order.CreatedAt)), "B", 1, "L", false, 0, "")
		writeItems(pdf, order.Items)
		pdf.Ln(1)
	}
	writeTotals(pdf, bill.Subtotal, bill.Tax, bill.Discount, bill.Total)
	return output(pdf)
}

// RenderReceipt prints a single paid order.
func RenderReceipt(order ordering.Order, header Header) ([]byte, error) {
	pdf := newDocument(header, fmt.Sprintf("Receipt %s", order.OrderNumber))
	pdf.CellFormat(0, 5, fmt.Sprintf("Placed: %s", formatTime(order.CreatedAt)), "", 1, "L", false, 0, "")
	if order.PaidAt != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Paid: %s", formatTime(*order.PaidAt)), "", 1, "L", false, 0, "")
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(0, 6, "Items", "B", 1, "L", false, 0, "")
	writeItems(pdf, order.Items)
	writeTotals(pdf, order.Subtotal, order.Tax, order.Discount, order.Total)

	pdf.Ln(2)
	pdf.SetFont("Arial", "", 9)
	if order.PaymentMethod != nil {
		pdf.CellFormat(0, 5, fmt.Sprintf("Payment: %s", *order.PaymentMethod), "", 1, "L", false, 0, "")
	}
	pdf.CellFormat(0, 5, fmt.Sprintf("Status: %s", order.PaymentStatus), "", 1, "L", false, 0, "")
	return output(pdf)
}
