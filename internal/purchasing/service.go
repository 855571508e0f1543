package purchasing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/manakshia-steel/manakshia/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetOrder(ctx context.Context, id int64) (PurchaseOrder, error)
	ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error)
}

// CatalogPort looks up catalog items for new lines.
type CatalogPort interface {
	ItemDetails(ctx context.Context, code string) (ItemDetails, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Hooks are extension points run inside the submit and cancel transactions.
type Hooks interface {
	OnSubmit(ctx context.Context, order PurchaseOrder) error
	OnCancel(ctx context.Context, order PurchaseOrder) error
}

// NoopHooks does nothing on submit or cancel.
type NoopHooks struct{}

func (NoopHooks) OnSubmit(context.Context, PurchaseOrder) error { return nil }
func (NoopHooks) OnCancel(context.Context, PurchaseOrder) error { return nil }

// Observer receives the outcome of every save-time validation pass.
type Observer interface {
	ObserveSave(result string)
}

// Service orchestrates purchase order flows around the calculator.
type Service struct {
	repo     RepositoryPort
	catalog  CatalogPort
	audit    AuditPort
	hooks    Hooks
	observer Observer
	now      func() time.Time
}

// NewService constructs the purchasing service. audit, hooks and observer may be nil.
func NewService(repo RepositoryPort, catalog CatalogPort, audit AuditPort, hooks Hooks, observer Observer) *Service {
	if hooks == nil {
		hooks = NoopHooks{}
	}
	return &Service{repo: repo, catalog: catalog, audit: audit, hooks: hooks, observer: observer, now: time.Now}
}

// OrderInput carries the editable fields of an order.
type OrderInput struct {
	Number             string
	Supplier           string
	Date               time.Time
	DiscountPercentage decimal.Decimal
	Shipping           decimal.Decimal
	Items              []LineItemInput
}

// LineItemInput carries the editable fields of a line.
type LineItemInput struct {
	Unit        string
	Description string
	Qty         decimal.Decimal
	UnitCost    decimal.Decimal
}

// Totals is the result of a stateless recompute.
type Totals struct {
	Items          []LineItem
	NetTotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	GrandTotal     decimal.Decimal
}

// CreateOrder recomputes, validates and persists a new draft order.
func (s *Service) CreateOrder(ctx context.Context, input OrderInput) (PurchaseOrder, error) {
	order := s.build(input)
	order.Status = StatusDraft
	if order.Number == "" {
		order.Number = generateNumber("LPO")
	}
	if err := s.prepare(&order); err != nil {
		return PurchaseOrder{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		id, err := tx.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		order.ID = id
		return tx.ReplaceItems(ctx, id, order.Items)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "LPO_CREATE", order.ID, map[string]any{"number": order.Number, "grand_total": order.GrandTotal.String()})
	return order, nil
}

// UpdateOrder replaces the header and items of a draft order.
func (s *Service) UpdateOrder(ctx context.Context, id int64, input OrderInput) (PurchaseOrder, error) {
	order := s.build(input)
	if err := s.prepare(&order); err != nil {
		return PurchaseOrder{}, err
	}
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrInvalidState
		}
		order.ID = current.ID
		order.Status = current.Status
		order.CreatedAt = current.CreatedAt
		if order.Number == "" {
			order.Number = current.Number
		}
		if err := tx.UpdateOrder(ctx, order); err != nil {
			return err
		}
		return tx.ReplaceItems(ctx, id, order.Items)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "LPO_UPDATE", order.ID, map[string]any{"number": order.Number, "grand_total": order.GrandTotal.String()})
	return order, nil
}

// GetOrder returns the order with its items.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetOrder(ctx, id)
}

// ListOrders returns a page of orders and the total matching count.
func (s *Service) ListOrders(ctx context.Context, filters ListFilters) ([]PurchaseOrder, int, error) {
	if filters.Limit <= 0 {
		filters.Limit = 20
	}
	if filters.Offset < 0 {
		filters.Offset = 0
	}
	return s.repo.ListOrders(ctx, filters)
}

// RecalculateTotals loads a stored order, recomputes it and saves it again.
// The save runs validation, so an invalid stored order is refused.
func (s *Service) RecalculateTotals(ctx context.Context, id int64) (PurchaseOrder, error) {
	var order PurchaseOrder
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusDraft {
			return ErrInvalidState
		}
		if err := s.prepare(&current); err != nil {
			return err
		}
		if err := tx.UpdateOrder(ctx, current); err != nil {
			return err
		}
		if err := tx.ReplaceItems(ctx, id, current.Items); err != nil {
			return err
		}
		order = current
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, "LPO_RECALCULATE", order.ID, map[string]any{"grand_total": order.GrandTotal.String()})
	return order, nil
}

// Preview recomputes totals for unsaved input without validating or persisting.
func (s *Service) Preview(input OrderInput) Totals {
	order := s.build(input)
	RecomputeTotals(&order)
	return Totals{
		Items:          order.Items,
		NetTotal:       order.NetTotal,
		DiscountAmount: DiscountAmount(order),
		GrandTotal:     order.GrandTotal,
	}
}

// GetItemDetails returns the description and standard rate of a catalog item.
// An empty code yields empty details.
func (s *Service) GetItemDetails(ctx context.Context, code string) (ItemDetails, error) {
	code = strings.TrimSpace(code)
	if code == "" || s.catalog == nil {
		return ItemDetails{}, nil
	}
	return s.catalog.ItemDetails(ctx, code)
}

// SubmitOrder moves a draft order to SUBMITTED.
func (s *Service) SubmitOrder(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusDraft, StatusSubmitted, "LPO_SUBMIT", s.hooks.OnSubmit)
}

// CancelOrder moves a submitted order to CANCELLED.
func (s *Service) CancelOrder(ctx context.Context, id int64) error {
	return s.transition(ctx, id, StatusSubmitted, StatusCancelled, "LPO_CANCEL", s.hooks.OnCancel)
}

func (s *Service) transition(ctx context.Context, id int64, from, to Status, action string, hook func(context.Context, PurchaseOrder) error) error {
	var number string
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.LockOrder(ctx, id)
		if err != nil {
			return err
		}
		if current.Status != from {
			return ErrInvalidState
		}
		if to == StatusSubmitted {
			if err := s.prepare(&current); err != nil {
				return err
			}
		}
		if err := tx.UpdateStatus(ctx, id, to); err != nil {
			return err
		}
		current.Status = to
		number = current.Number
		return hook(ctx, current)
	})
	if err != nil {
		return err
	}
	s.recordAudit(ctx, action, id, map[string]any{"number": number, "status": string(to)})
	return nil
}

func (s *Service) build(input OrderInput) PurchaseOrder {
	order := PurchaseOrder{
		Number:             strings.TrimSpace(input.Number),
		Supplier:           strings.TrimSpace(input.Supplier),
		Date:               input.Date,
		DiscountPercentage: input.DiscountPercentage,
		Shipping:           input.Shipping,
		Items:              make([]LineItem, 0, len(input.Items)),
	}
	if order.Date.IsZero() {
		now := s.now()
		y, m, d := now.Date()
		order.Date = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	}
	for _, in := range input.Items {
		order.Items = append(order.Items, LineItem{
			Unit:        strings.TrimSpace(in.Unit),
			Description: in.Description,
			Qty:         in.Qty,
			UnitCost:    in.UnitCost,
		})
	}
	return order
}

func (s *Service) prepare(order *PurchaseOrder) error {
	renumber(order.Items)
	err := PrepareForSave(order)
	if err == nil {
		err = fitStorage(order)
	}
	if s.observer != nil {
		s.observer.ObserveSave(ValidationResult(err))
	}
	return err
}

// fitStorage rounds computed totals to the stored scale and rejects totals
// whose magnitude the amount columns cannot hold. Rounding an already
// rounded order is a no-op, so a reload recomputes the same values.
func fitStorage(order *PurchaseOrder) error {
	net := decimal.Zero
	for i := range order.Items {
		item := &order.Items[i]
		item.TotalCost = item.TotalCost.Round(AmountScale)
		if item.TotalCost.Abs().GreaterThanOrEqual(MaxAmount) {
			return &AmountOutOfRangeError{Field: "Total Cost", Position: position(*item, i)}
		}
		net = net.Add(item.TotalCost)
	}
	order.NetTotal = net
	order.GrandTotal = net.Sub(DiscountAmount(*order)).Add(order.Shipping).Round(AmountScale)
	if order.NetTotal.Abs().GreaterThanOrEqual(MaxAmount) {
		return &AmountOutOfRangeError{Field: "Net Total"}
	}
	if order.GrandTotal.Abs().GreaterThanOrEqual(MaxAmount) {
		return &AmountOutOfRangeError{Field: "Grand Total"}
	}
	return nil
}

// ValidationResult names the outcome of a validation pass for metrics labels.
func ValidationResult(err error) string {
	var (
		empty    *EmptyOrderError
		missing  *MissingUnitError
		quantity *InvalidQuantityError
		cost     *NegativeCostError
		bounds   *AmountOutOfRangeError
	)
	switch {
	case err == nil:
		return "ok"
	case errors.As(err, &bounds):
		return "out_of_range"
	case errors.As(err, &empty):
		return "empty_order"
	case errors.As(err, &missing):
		return "missing_unit"
	case errors.As(err, &quantity):
		return "invalid_quantity"
	case errors.As(err, &cost):
		return "negative_cost"
	}
	return "error"
}

func (s *Service) recordAudit(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	meta["ref"] = OrderRef(entityID).String()
	_ = s.audit.Record(ctx, shared.AuditLog{Actor: shared.ActorFromContext(ctx), Action: action, Entity: "purchasing", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

// OrderRef is the stable identifier of an order used by audit and job deduplication.
func OrderRef(id int64) uuid.UUID {
	return uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("LPO:%d", id)))
}

func generateNumber(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
