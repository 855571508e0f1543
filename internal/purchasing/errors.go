package purchasing

import "fmt"

// EmptyOrderError reports an order without line items.
type EmptyOrderError struct{}

func (*EmptyOrderError) Error() string { return "Please add at least one item" }

// Is lets callers match any validation failure with errors.Is(err, ErrValidation).
func (*EmptyOrderError) Is(target error) bool { return target == ErrValidation }

// MissingUnitError reports a line without an item reference.
type MissingUnitError struct {
	Position int
}

func (e *MissingUnitError) Error() string {
	return fmt.Sprintf("Row %d: Item is required", e.Position)
}

func (*MissingUnitError) Is(target error) bool { return target == ErrValidation }

// InvalidQuantityError reports a line whose quantity is not strictly positive.
type InvalidQuantityError struct {
	Position int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("Row %d: Quantity must be greater than 0", e.Position)
}

func (*InvalidQuantityError) Is(target error) bool { return target == ErrValidation }

// NegativeCostError reports a line with a negative unit cost.
type NegativeCostError struct {
	Position int
}

func (e *NegativeCostError) Error() string {
	return fmt.Sprintf("Row %d: Unit Cost cannot be negative", e.Position)
}

func (*NegativeCostError) Is(target error) bool { return target == ErrValidation }

// AmountOutOfRangeError reports a numeric field that cannot be stored: its
// magnitude reaches MaxAmount or it carries more than AmountScale decimal
// places. Position is zero for header fields.
type AmountOutOfRangeError struct {
	Field    string
	Position int
}

func (e *AmountOutOfRangeError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("Row %d: %s is out of range", e.Position, e.Field)
	}
	return fmt.Sprintf("%s is out of range", e.Field)
}

func (*AmountOutOfRangeError) Is(target error) bool { return target == ErrValidation }
