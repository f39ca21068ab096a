package audithttp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/odyssey-erp/campus/internal/audit"
	"github.com/odyssey-erp/campus/internal/platform/httpx"
	"github.com/odyssey-erp/campus/internal/rbac"
)

// TimelineService defines the business contract for login history.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.TimelineRow, error)
}

// Handler menangani permintaan riwayat login.
type Handler struct {
	logger  *slog.Logger
	service TimelineService
	rbac    rbac.Middleware
	now     func() time.Time
}

// NewHandler membuat handler audit baru.
func NewHandler(logger *slog.Logger, service TimelineService, evaluator *rbac.Evaluator) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if evaluator == nil {
		evaluator = rbac.NewEvaluator(rbac.DefaultMatrix())
	}
	return &Handler{
		logger:  logger,
		service: service,
		rbac:    rbac.Middleware{Evaluator: evaluator, Logger: logger},
		now:     time.Now,
	}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.serverError(w, "load login timeline", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, ok := h.filters(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.serverError(w, "export login timeline", err)
		return
	}
	body, err := audit.WriteCSV(rows)
	if err != nil {
		h.serverError(w, "encode csv", err)
		return
	}

	attrs := []any{slog.Int("rows", len(rows)), slog.Time("from", filters.From), slog.Time("to", filters.To)}
	if p := rbac.PrincipalFromContext(r.Context()); p != nil {
		attrs = append(attrs, slog.String("user_id", p.ID))
	}
	h.logger.Info("login activity exported", attrs...)

	name := fmt.Sprintf("login-activity-%s-%s.csv",
		filters.From.Format("20060102"), filters.To.AddDate(0, 0, -1).Format("20060102"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	if _, err := w.Write(body); err != nil {
		h.logger.Warn("write csv", slog.Any("error", err))
	}
}

// filters parses the request filters, writing the error response itself when
// they are unusable.
func (h *Handler) filters(w http.ResponseWriter, r *http.Request) (audit.TimelineFilters, bool) {
	if h.service == nil {
		httpx.Problem(w, http.StatusNotImplemented, http.StatusText(http.StatusNotImplemented), "audit trail not configured")
		return audit.TimelineFilters{}, false
	}
	filters, err := parseFilters(r, h.now())
	if err == nil {
		return filters, true
	}
	var fe filterError
	if errors.As(err, &fe) {
		httpx.WriteProblem(w, httpx.ProblemDetail{
			Title:      http.StatusText(http.StatusBadRequest),
			Status:     http.StatusBadRequest,
			Detail:     "invalid filter",
			Extensions: map[string]any{"field": fe.field},
		})
		return audit.TimelineFilters{}, false
	}
	h.serverError(w, "validate filters", err)
	return audit.TimelineFilters{}, false
}

func (h *Handler) serverError(w http.ResponseWriter, message string, err error) {
	h.logger.Error(message, slog.Any("error", err))
	httpx.Problem(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "")
}
