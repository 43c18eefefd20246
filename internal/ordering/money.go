package ordering

import (
	"fmt"
	"math"
)

// TaxRate is the flat GST applied to every order subtotal.
const TaxRate = 0.18

func round2(value float64) float64 {
	return math.Round(value*100) / 100
}

// orderTotals returns tax and total for a subtotal and discount.
func orderTotals(subtotal, discount float64) (tax float64, total float64) {
	tax = round2(subtotal * TaxRate)
	total = round2(subtotal + tax - discount)
	return tax, total
}

func FormatOrderNumber(seq int64) string {
	return fmt.Sprintf("ORD%06d", seq)
}

func FormatKOTNumber(seq int64) string {
	return fmt.Sprintf("KOT%06d", seq)
}
