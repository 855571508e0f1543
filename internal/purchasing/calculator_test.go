package purchasing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func line(unit, qty, cost string) LineItem {
	return LineItem{Unit: unit, Qty: dec(qty), UnitCost: dec(cost)}
}

func TestRecomputeTotalsAppliesDiscountAndShipping(t *testing.T) {
	order := PurchaseOrder{
		Items:              []LineItem{line("ROD", "2", "10"), line("PLATE", "3", "5")},
		DiscountPercentage: dec("10"),
		Shipping:           dec("4"),
	}

	RecomputeTotals(&order)

	requireDecimal(t, "20", order.Items[0].TotalCost)
	requireDecimal(t, "15", order.Items[1].TotalCost)
	requireDecimal(t, "35", order.NetTotal)
	requireDecimal(t, "3.5", DiscountAmount(order))
	requireDecimal(t, "35.5", order.GrandTotal)
}

func TestRecomputeTotalsSingleItem(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{line("KG", "1", "100")}}

	require.NoError(t, PrepareForSave(&order))
	requireDecimal(t, "100", order.NetTotal)
	requireDecimal(t, "100", order.GrandTotal)
}

func TestRecomputeTotalsIsIdempotent(t *testing.T) {
	order := PurchaseOrder{
		Items:              []LineItem{line("ROD", "1.5", "12.40"), line("WIRE", "7", "0.35")},
		DiscountPercentage: dec("12.5"),
		Shipping:           dec("30"),
	}

	RecomputeTotals(&order)
	net, grand := order.NetTotal, order.GrandTotal
	RecomputeTotals(&order)

	requireDecimal(t, net.String(), order.NetTotal)
	requireDecimal(t, grand.String(), order.GrandTotal)
}

func TestRecomputeTotalsOverwritesStaleValues(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{line("ROD", "2", "10")}}
	order.Items[0].TotalCost = dec("999")
	order.NetTotal = dec("999")

	RecomputeTotals(&order)

	requireDecimal(t, "20", order.Items[0].TotalCost)
	requireDecimal(t, "20", order.NetTotal)
}

func TestRecomputeTotalsTreatsMissingNumbersAsZero(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{{Unit: "ROD"}}, Shipping: dec("5")}

	RecomputeTotals(&order)

	requireDecimal(t, "0", order.Items[0].TotalCost)
	requireDecimal(t, "0", order.NetTotal)
	requireDecimal(t, "5", order.GrandTotal)
}

func TestRecomputeTotalsKeepsDiscountAndShippingUnclamped(t *testing.T) {
	order := PurchaseOrder{
		Items:              []LineItem{line("ROD", "1", "100")},
		DiscountPercentage: dec("150"),
		Shipping:           dec("-10"),
	}

	RecomputeTotals(&order)

	requireDecimal(t, "-60", order.GrandTotal)
	require.NoError(t, Validate(order))
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name  string
		items []LineItem
		check func(t *testing.T, err error)
	}{
		{
			name:  "empty order",
			items: nil,
			check: func(t *testing.T, err error) {
				var target *EmptyOrderError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "Please add at least one item", err.Error())
			},
		},
		{
			name:  "missing unit",
			items: []LineItem{line("ROD", "1", "1"), line("", "1", "1")},
			check: func(t *testing.T, err error) {
				var target *MissingUnitError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 2, target.Position)
				assert.Equal(t, "Row 2: Item is required", err.Error())
			},
		},
		{
			name:  "blank unit",
			items: []LineItem{line("  ", "1", "1")},
			check: func(t *testing.T, err error) {
				var target *MissingUnitError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 1, target.Position)
			},
		},
		{
			name:  "zero quantity",
			items: []LineItem{line("ROD", "0", "1")},
			check: func(t *testing.T, err error) {
				var target *InvalidQuantityError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 1, target.Position)
			},
		},
		{
			name:  "negative quantity",
			items: []LineItem{line("ROD", "1", "1"), line("ROD", "1", "1"), line("ROD", "-5", "1")},
			check: func(t *testing.T, err error) {
				var target *InvalidQuantityError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, 3, target.Position)
				assert.Equal(t, "Row 3: Quantity must be greater than 0", err.Error())
			},
		},
		{
			name:  "negative cost",
			items: []LineItem{line("ROD", "1", "-1")},
			check: func(t *testing.T, err error) {
				var target *NegativeCostError
				require.ErrorAs(t, err, &target)
				assert.Equal(t, "Row 1: Unit Cost cannot be negative", err.Error())
			},
		},
		{
			name:  "zero cost passes",
			items: []LineItem{line("ROD", "1", "0")},
			check: func(t *testing.T, err error) {
				require.NoError(t, err)
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.check(t, Validate(PurchaseOrder{Items: tc.items}))
		})
	}
}

func TestValidateStopsAtFirstFailure(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{line("ROD", "0", "-1"), line("", "1", "1")}}

	err := Validate(order)

	var qtyErr *InvalidQuantityError
	require.ErrorAs(t, err, &qtyErr)
	assert.Equal(t, 1, qtyErr.Position)
}

func TestValidateUsesRowIndex(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{{Idx: 7, Qty: dec("1")}}}

	var target *MissingUnitError
	require.ErrorAs(t, Validate(order), &target)
	assert.Equal(t, 7, target.Position)
}

func TestValidationErrorsMatchSentinel(t *testing.T) {
	errs := []error{
		&EmptyOrderError{},
		&MissingUnitError{Position: 1},
		&InvalidQuantityError{Position: 1},
		&NegativeCostError{Position: 1},
	}
	for _, err := range errs {
		assert.True(t, errors.Is(err, ErrValidation), err.Error())
	}
}

func TestValidateDoesNotMutate(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{line("ROD", "2", "10")}}

	require.NoError(t, Validate(order))
	assert.True(t, order.Items[0].TotalCost.IsZero())
	assert.True(t, order.NetTotal.IsZero())
}

func TestPrepareForSaveRecomputesBeforeValidating(t *testing.T) {
	order := PurchaseOrder{Items: []LineItem{line("", "2", "10")}}

	err := PrepareForSave(&order)

	var target *MissingUnitError
	require.ErrorAs(t, err, &target)
	requireDecimal(t, "20", order.NetTotal)
}

func BenchmarkPrepareForSave(b *testing.B) {
	order := PurchaseOrder{DiscountPercentage: dec("7.5"), Shipping: dec("1500")}
	for i := 0; i < 200; i++ {
		order.Items = append(order.Items, line("TMT-12", "12.5", "54.25"))
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := PrepareForSave(&order); err != nil {
			b.Fatal(err)
		}
	}
}
