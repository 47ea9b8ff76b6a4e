package orders

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-oms/meridian-oms/internal/auth"
	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/masterdata/products"
	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
	"github.com/meridian-oms/meridian-oms/internal/sales/customers"
	"github.com/meridian-oms/meridian-oms/internal/sales/shared"
	appshared "github.com/meridian-oms/meridian-oms/internal/shared"
)

type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Show)
	r.Get("/{id}/quote", h.Quote)
	r.Put("/{id}/status", h.UpdateStatus)
	r.Post("/{id}/cancel", h.Cancel)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListOrdersRequest{
		Search:   r.URL.Query().Get("search"),
		SortBy:   r.URL.Query().Get("sort_by"),
		SortDesc: r.URL.Query().Get("sort_desc") == "true",
		Limit:    50,
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &n
		}
	}
	if v := r.URL.Query().Get("status"); v != "" {
		status, err := shared.ParseOrderStatus(v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		req.Status = &status
	}
	if v := r.URL.Query().Get("date_from"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date_from must be YYYY-MM-DD")
			return
		}
		req.DateFrom = &t
	}
	if v := r.URL.Query().Get("date_to"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "date_to must be YYYY-MM-DD")
			return
		}
		req.DateTo = &t
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			req.Limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	items, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.logger.Error("list orders failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"orders":     items,
		"pagination": appshared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	order, err := h.service.Create(r.Context(), principal.UserID, req)
	if err != nil {
		h.respondServiceError(w, err, 0)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "order": order})
}

func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	quote, err := h.service.Quote(r.Context(), id, r.URL.Query().Get("method"))
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "quote": quote})
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	order, err := h.service.UpdateStatus(r.Context(), id, req.Status)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.orderID(w, r)
	if !ok {
		return
	}
	order, err := h.service.Cancel(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "order": order})
}

func (h *Handler) orderID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, id int64) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "order not found")
	case errors.Is(err, shared.ErrUnknownStatus):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, shared.ErrInvalidTransition):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, money.ErrUnknownMethod),
		errors.Is(err, ErrInactiveProduct),
		errors.Is(err, customers.ErrNotFound),
		errors.Is(err, products.ErrNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("order request failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
	}
}
