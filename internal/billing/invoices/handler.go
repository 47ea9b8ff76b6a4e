package invoices

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-oms/meridian-oms/internal/billing/money"
	"github.com/meridian-oms/meridian-oms/internal/platform/httpx"
	appshared "github.com/meridian-oms/meridian-oms/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListInvoicesRequest{
		Search: r.URL.Query().Get("search"),
		Limit:  50,
	}
	if v := r.URL.Query().Get("customer_id"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			req.CustomerID = &n
		}
	}
	if v := r.URL.Query().Get("payment_status"); v != "" {
		status, ok := money.NormalizePaymentStatus(v)
		if !ok {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown payment status")
			return
		}
		req.PaymentStatus = &status
	}
	if v := r.URL.Query().Get("approval_status"); v != "" {
		status := ApprovalStatus(v)
		switch status {
		case ApprovalPending, ApprovalApproved, ApprovalCancelled:
			req.ApprovalStatus = &status
		default:
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "unknown approval status")
			return
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
		h.logger.Error("list invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"invoices":   items,
		"pagination": appshared.NewPagination(req.Offset/req.Limit+1, req.Limit, total),
	})
}

func (h *Handler) Outstanding(w http.ResponseWriter, r *http.Request) {
	cutoff := time.Now()
	if v := r.URL.Query().Get("cutoff"); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cutoff must be YYYY-MM-DD")
			return
		}
		cutoff = t
	}
	items, err := h.service.ListOutstanding(r.Context(), cutoff)
	if err != nil {
		h.logger.Error("list outstanding invoices failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoices": items})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": invoice})
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": invoice})
}

func (h *Handler) CancelApproval(w http.ResponseWriter, r *http.Request) {
	id, ok := h.invoiceID(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.CancelApproval(r.Context(), id)
	if err != nil {
		h.respondServiceError(w, err, id)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true, "invoice": invoice})
}

func (h *Handler) invoiceID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return 0, false
	}
	return id, true
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error, id int64) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", "invoice not found")
	case errors.Is(err, ErrApprovalAlreadySet):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrCancelled), errors.Is(err, ErrFullyPaid),
		errors.Is(err, money.ErrNonPositiveAmount), errors.Is(err, money.ErrExceedsRemaining):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Unprocessable", err.Error())
	default:
		h.logger.Error("invoice request failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
	}
}
