package payments

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
	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
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
	r.Post("/", h.Submit)
	r.Get("/", h.List)
	r.Get("/{id}", h.Show)
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitPaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	key := r.Header.Get("Idempotency-Key")

	receipt, err := h.service.Submit(r.Context(), principal.UserID, key, req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"success": true, "receipt": receipt})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListPaymentsRequest{Limit: 50}
	if v := r.URL.Query().Get("order_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.OrderID = &n
		}
	}
	if v := r.URL.Query().Get("invoice_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.InvoiceID = &n
		}
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
		h.logger.Error("list payments failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"payments":   items,
		"pagination": appshared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid payment id")
		return
	}
	payment, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "payment": payment})
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "payment not found")
	case errors.Is(err, ErrTargetNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, appshared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrAmbiguousTarget),
		errors.Is(err, ErrTargetCancelled),
		errors.Is(err, money.ErrNonPositiveAmount),
		errors.Is(err, money.ErrExceedsRemaining):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("payment request failed", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
