package purchasing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/manakshia-steel/manakshia/internal/platform/httpx"
	"github.com/manakshia-steel/manakshia/internal/shared"
)

// Enqueuer schedules a background recalculation of an order.
type Enqueuer interface {
	EnqueueRecalculate(ctx context.Context, orderID int64) (string, error)
}

// IdempotencyPort guards create requests carrying an Idempotency-Key header.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

const idempotencyModule = "purchasing"

// Handler exposes purchase order endpoints as JSON.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	translator  *Translator
	validator   *validator.Validate
	enqueuer    Enqueuer
	idempotency IdempotencyPort
}

// NewHandler builds Handler instance. enqueuer may be nil, in which case recalculation always runs inline.
func NewHandler(logger *slog.Logger, service *Service, translator *Translator, enqueuer Enqueuer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, translator: translator, validator: validator.New(), enqueuer: enqueuer}
}

// WithIdempotency enables Idempotency-Key handling on create.
func (h *Handler) WithIdempotency(store IdempotencyPort) *Handler {
	h.idempotency = store
	return h
}

// MountRoutes registers purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.listOrders)
	r.Post("/", h.createOrder)
	r.Post("/preview", h.preview)
	r.Get("/items/{code}", h.itemDetails)
	r.Get("/{id}", h.getOrder)
	r.Put("/{id}", h.updateOrder)
	r.Post("/{id}/recalculate", h.recalculate)
	r.Post("/{id}/submit", h.submit)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 20
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	filters := ListFilters{
		Status:   r.URL.Query().Get("status"),
		Supplier: r.URL.Query().Get("supplier"),
		Search:   r.URL.Query().Get("search"),
		Limit:    limit,
		Offset:   offset,
	}
	orders, total, err := h.service.ListOrders(r.Context(), filters)
	if err != nil {
		h.fail(w, r, "list orders", err)
		return
	}
	t := h.translatorFor(r)
	resp := listResponse{Items: make([]orderResponse, 0, len(orders)), Total: total, Limit: limit, Offset: offset}
	for _, order := range orders {
		resp.Items = append(resp.Items, newOrderResponse(t, order))
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key != "" && h.idempotency != nil {
		if err := h.idempotency.CheckAndInsert(r.Context(), key, idempotencyModule); err != nil {
			h.fail(w, r, "create order", err)
			return
		}
	}
	order, err := h.service.CreateOrder(r.Context(), req.toInput())
	if err != nil {
		if key != "" && h.idempotency != nil {
			if delErr := h.idempotency.Delete(r.Context(), key); delErr != nil {
				h.logger.Warn("release idempotency key", slog.Any("error", delErr))
			}
		}
		h.fail(w, r, "create order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newOrderResponse(h.translatorFor(r), order))
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderResponse(h.translatorFor(r), order))
}

func (h *Handler) updateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	order, err := h.service.UpdateOrder(r.Context(), id, req.toInput())
	if err != nil {
		h.fail(w, r, "update order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderResponse(h.translatorFor(r), order))
}

func (h *Handler) recalculate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	t := h.translatorFor(r)
	if r.URL.Query().Get("async") == "1" && h.enqueuer != nil {
		if _, err := h.service.GetOrder(r.Context(), id); err != nil {
			h.fail(w, r, "recalculate order", err)
			return
		}
		taskID, err := h.enqueuer.EnqueueRecalculate(r.Context(), id)
		if err != nil {
			h.fail(w, r, "enqueue recalculation", err)
			return
		}
		httpx.JSON(w, http.StatusAccepted, enqueuedResponse{TaskID: taskID, Message: t.Text(msgRecomputeEnqueued)})
		return
	}
	order, err := h.service.RecalculateTotals(r.Context(), id)
	if err != nil {
		h.fail(w, r, "recalculate order", err)
		return
	}
	resp := newOrderResponse(t, order)
	resp.Message = t.Text(msgTotalsRecomputed)
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "submit order", h.service.SubmitOrder)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "cancel order", h.service.CancelOrder)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context, int64) error) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.fail(w, r, op, err)
		return
	}
	order, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.fail(w, r, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, newOrderResponse(h.translatorFor(r), order))
}

func (h *Handler) preview(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decode(w, r)
	if !ok {
		return
	}
	totals := h.service.Preview(req.toInput())
	httpx.JSON(w, http.StatusOK, previewResponse{
		totalsResponse: newTotalsResponse(h.translatorFor(r), totals.NetTotal, totals.DiscountAmount, totals.GrandTotal),
		Items:          newLineResponses(totals.Items),
	})
}

func (h *Handler) itemDetails(w http.ResponseWriter, r *http.Request) {
	details, err := h.service.GetItemDetails(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.fail(w, r, "item details", err)
		return
	}
	httpx.JSON(w, http.StatusOK, itemDetailsResponse{Description: details.Description, UnitCost: details.UnitCost})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (orderRequest, bool) {
	var req orderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return orderRequest{}, false
	}
	if err := h.validator.Struct(req); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("%s: %s", fieldErrs[0].Namespace(), fieldErrs[0].Tag()))
			return orderRequest{}, false
		}
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrValidation, err))
		return orderRequest{}, false
	}
	if err := req.checkRange(); err != nil {
		h.fail(w, r, "decode order", err)
		return orderRequest{}, false
	}
	return req, true
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusNotFound, "Not Found", h.translatorFor(r).Error(ErrNotFound))
		return 0, false
	}
	return id, true
}

func (h *Handler) translatorFor(r *http.Request) *Translator {
	return h.translator.ForRequest(r.Header.Get("Accept-Language"))
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	t := h.translatorFor(r)
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", t.Error(err))
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", t.Error(err))
	case errors.Is(err, ErrItemNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", t.Error(err))
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", t.Error(err))
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrConflict, err))
	case errors.Is(err, ErrDuplicateNumber):
		httpx.RespondError(w, fmt.Errorf("%w: %v", httpx.ErrDuplicate, err))
	default:
		h.logger.Error(op, slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
