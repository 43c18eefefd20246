package ordering

import "strings"

var orderStatusRank = map[OrderStatus]int{
	OrderPlaced:    0,
	OrderPreparing: 1,
	OrderReady:     2,
	OrderServed:    3,
}

var kotStatusRank = map[KOTStatus]int{
	KOTPending:   0,
	KOTPrinted:   1,
	KOTPreparing: 2,
	KOTReady:     3,
	KOTServed:    4,
}

// kotOrderStatus maps the KOT states that are reflected onto the parent order.
var kotOrderStatus = map[KOTStatus]OrderStatus{
	KOTPreparing: OrderPreparing,
	KOTReady:     OrderReady,
	KOTServed:    OrderServed,
}

func ParseOrderStatus(value string) (OrderStatus, bool) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := orderStatusRank[status]
	return status, ok
}

func ParseKOTStatus(value string) (KOTStatus, bool) {
	status := KOTStatus(strings.ToUpper(strings.TrimSpace(value)))
	_, ok := kotStatusRank[status]
	return status, ok
}

func ParseTableStatus(value string) (TableStatus, bool) {
	status := TableStatus(strings.ToUpper(strings.TrimSpace(value)))
	switch status {
	case TableAvailable, TableOccupied, TableReserved, TableCleaning:
		return status, true
	}
	return "", false
}

func ParseDietary(value string) (Dietary, bool) {
	dietary := Dietary(strings.ToUpper(strings.TrimSpace(value)))
	switch dietary {
	case DietaryVeg, DietaryNonVeg, DietaryEgg, DietaryVegan:
		return dietary, true
	}
	return "", false
}

func ParsePaymentMethod(value string) (PaymentMethod, bool) {
	method := PaymentMethod(strings.ToUpper(strings.TrimSpace(value)))
	switch method {
	case PaymentCash, PaymentCard, PaymentUPI, PaymentOnline:
		return method, true
	}
	return "", false
}

// CanAdvanceOrder allows staying in place or moving forward, never back.
func CanAdvanceOrder(from, to OrderStatus) bool {
	fromRank, ok := orderStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := orderStatusRank[to]
	if !ok {
		return false
	}
	return toRank >= fromRank
}

func CanAdvanceKOT(from, to KOTStatus) bool {
	fromRank, ok := kotStatusRank[from]
	if !ok {
		return false
	}
	toRank, ok := kotStatusRank[to]
	if !ok {
		return false
	}
	return toRank >= fromRank
}
