package purchasing

import (
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// RecomputeTotals derives line totals, the net total and the grand total in place.
func RecomputeTotals(order *PurchaseOrder) {
	net := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		item.TotalCost = item.Qty.Mul(item.UnitCost)
		net = net.Add(item.TotalCost)
	}
	order.NetTotal = net
	order.GrandTotal = net.Sub(DiscountAmount(*order)).Add(order.Shipping)
}

// DiscountAmount is the net total multiplied by the discount percentage.
// Percentages outside 0..100 are applied as given.
func DiscountAmount(order PurchaseOrder) decimal.Decimal {
	return order.NetTotal.Mul(order.DiscountPercentage).Div(hundred)
}

// Validate checks the line item invariants and stops at the first failure.
func Validate(order PurchaseOrder) error {
	if len(order.Items) == 0 {
		return &EmptyOrderError{}
	}
	for i, item := range order.Items {
		pos := position(item, i)
		if strings.TrimSpace(item.Unit) == "" {
			return &MissingUnitError{Position: pos}
		}
		if !item.Qty.IsPositive() {
			return &InvalidQuantityError{Position: pos}
		}
		if item.UnitCost.IsNegative() {
			return &NegativeCostError{Position: pos}
		}
	}
	return nil
}

// PrepareForSave runs RecomputeTotals and then Validate. Every save path goes through it.
func PrepareForSave(order *PurchaseOrder) error {
	RecomputeTotals(order)
	return Validate(*order)
}

func position(item LineItem, index int) int {
	if item.Idx > 0 {
		return item.Idx
	}
	return index + 1
}

// renumber assigns consecutive 1-based positions to the items.
func renumber(items []LineItem) {
	for i := range items {
		items[i].Idx = i + 1
	}
}
