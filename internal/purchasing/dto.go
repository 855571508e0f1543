package purchasing

import (
	"bytes"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// flexDecimal accepts JSON numbers or numeric strings. Anything else decodes
// to zero. Values outside the stored range decode to zero and are flagged.
type flexDecimal struct {
	decimal.Decimal
	outOfRange bool
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	f.Decimal, f.outOfRange = decimal.Zero, false
	raw := strings.TrimSpace(string(bytes.Trim(data, `"`)))
	if len(raw) > maxAmountLiteral {
		f.outOfRange = true
		return nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil
	}
	if !AmountInRange(d) {
		f.outOfRange = true
		return nil
	}
	f.Decimal = d
	return nil
}

type orderRequest struct {
	Number             string        `json:"number" validate:"omitempty,max=140"`
	Supplier           string        `json:"supplier" validate:"omitempty,max=140"`
	Date               string        `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DiscountPercentage flexDecimal   `json:"discount_percentage"`
	Shipping           flexDecimal   `json:"shipping"`
	Items              []lineRequest `json:"items" validate:"omitempty,max=500,dive"`
}

type lineRequest struct {
	Unit        string      `json:"unit" validate:"omitempty,max=140"`
	Description string      `json:"description" validate:"omitempty,max=1000"`
	Qty         flexDecimal `json:"qty"`
	UnitCost    flexDecimal `json:"unit_cost"`
}

// checkRange returns the first amount that was out of range, header fields first.
func (req orderRequest) checkRange() error {
	if req.DiscountPercentage.outOfRange {
		return &AmountOutOfRangeError{Field: "Discount Percentage"}
	}
	if req.Shipping.outOfRange {
		return &AmountOutOfRangeError{Field: "Shipping"}
	}
	for i, line := range req.Items {
		if line.Qty.outOfRange {
			return &AmountOutOfRangeError{Field: "Quantity", Position: i + 1}
		}
		if line.UnitCost.outOfRange {
			return &AmountOutOfRangeError{Field: "Unit Cost", Position: i + 1}
		}
	}
	return nil
}

func (req orderRequest) toInput() OrderInput {
	input := OrderInput{
		Number:             req.Number,
		Supplier:           req.Supplier,
		DiscountPercentage: req.DiscountPercentage.Decimal,
		Shipping:           req.Shipping.Decimal,
		Items:              make([]LineItemInput, 0, len(req.Items)),
	}
	if req.Date != "" {
		input.Date, _ = time.Parse(dateLayout, req.Date)
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, LineItemInput{
			Unit:        line.Unit,
			Description: line.Description,
			Qty:         line.Qty.Decimal,
			UnitCost:    line.UnitCost.Decimal,
		})
	}
	return input
}

type lineResponse struct {
	Idx         int             `json:"idx"`
	Unit        string          `json:"unit"`
	Description string          `json:"description"`
	Qty         decimal.Decimal `json:"qty"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
	TotalCost   decimal.Decimal `json:"total_cost"`
}

type totalsResponse struct {
	NetTotal          decimal.Decimal `json:"net_total"`
	DiscountAmount    decimal.Decimal `json:"discount_amount"`
	GrandTotal        decimal.Decimal `json:"grand_total"`
	NetTotalDisplay   string          `json:"net_total_display"`
	GrandTotalDisplay string          `json:"grand_total_display"`
}

type orderResponse struct {
	ID                 int64           `json:"id"`
	Number             string          `json:"number"`
	Supplier           string          `json:"supplier"`
	Date               string          `json:"date"`
	Status             Status          `json:"status"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	Shipping           decimal.Decimal `json:"shipping"`
	totalsResponse
	Items   []lineResponse `json:"items,omitempty"`
	Message string         `json:"message,omitempty"`
}

type previewResponse struct {
	totalsResponse
	Items []lineResponse `json:"items"`
}

type listResponse struct {
	Items  []orderResponse `json:"items"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

type itemDetailsResponse struct {
	Description string          `json:"description"`
	UnitCost    decimal.Decimal `json:"unit_cost"`
}

type enqueuedResponse struct {
	TaskID  string `json:"task_id"`
	Message string `json:"message"`
}

func newTotalsResponse(t *Translator, net, discount, grand decimal.Decimal) totalsResponse {
	return totalsResponse{
		NetTotal:          net,
		DiscountAmount:    discount,
		GrandTotal:        grand,
		NetTotalDisplay:   t.Currency(net),
		GrandTotalDisplay: t.Currency(grand),
	}
}

func newLineResponses(items []LineItem) []lineResponse {
	lines := make([]lineResponse, 0, len(items))
	for _, item := range items {
		lines = append(lines, lineResponse{
			Idx:         item.Idx,
			Unit:        item.Unit,
			Description: item.Description,
			Qty:         item.Qty,
			UnitCost:    item.UnitCost,
			TotalCost:   item.TotalCost,
		})
	}
	return lines
}

func newOrderResponse(t *Translator, order PurchaseOrder) orderResponse {
	resp := orderResponse{
		ID:                 order.ID,
		Number:             order.Number,
		Supplier:           order.Supplier,
		Status:             order.Status,
		DiscountPercentage: order.DiscountPercentage,
		Shipping:           order.Shipping,
		totalsResponse:     newTotalsResponse(t, order.NetTotal, DiscountAmount(order), order.GrandTotal),
		Items:              newLineResponses(order.Items),
	}
	if !order.Date.IsZero() {
		resp.Date = order.Date.Format(dateLayout)
	}
	return resp
}
