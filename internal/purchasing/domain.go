package purchasing

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Status mirrors the document status of a local purchase order.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusCancelled Status = "CANCELLED"
)

// Amount bounds match the NUMERIC(18,6) columns.
const (
	AmountScale       = 6
	maxAmountExponent = 12
	maxAmountLiteral  = 40
	minAmountExponent = -maxAmountLiteral
)

// MaxAmount is the exclusive upper bound on the magnitude of any stored amount.
var MaxAmount = decimal.New(1, maxAmountExponent)

// AmountInRange reports whether d fits the stored precision.
func AmountInRange(d decimal.Decimal) bool {
	if d.IsZero() {
		return true
	}
	if exp := d.Exponent(); exp > maxAmountExponent || exp < minAmountExponent {
		return false
	}
	return d.Abs().LessThan(MaxAmount) && d.Equal(d.Truncate(AmountScale))
}

// PurchaseOrder is a local purchase order with its line items.
type PurchaseOrder struct {
	ID                 int64
	Number             string
	Supplier           string
	Date               time.Time
	Status             Status
	DiscountPercentage decimal.Decimal
	Shipping           decimal.Decimal
	NetTotal           decimal.Decimal
	GrandTotal         decimal.Decimal
	Items              []LineItem
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// LineItem is one row of the order's items table. Idx is 1-based.
type LineItem struct {
	Idx         int
	Unit        string
	Description string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
	TotalCost   decimal.Decimal
}

// ItemDetails is what the catalog returns for a selected item.
type ItemDetails struct {
	Description string
	UnitCost    decimal.Decimal
}

// ListFilters narrows ListOrders.
type ListFilters struct {
	Status   string
	Supplier string
	Search   string
	Limit    int
	Offset   int
}

var (
	// ErrNotFound indicates the order does not exist.
	ErrNotFound = errors.New("purchasing: not found")
	// ErrInvalidState occurs when an action violates the document workflow.
	ErrInvalidState = errors.New("purchasing: invalid state transition")
	// ErrValidation is matched by every user-input validation failure.
	ErrValidation = errors.New("purchasing: invalid input")
)
