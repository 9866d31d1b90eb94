package report

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/equipment-tracker/internal/transport"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	Submit(ctx context.Context, submitter *user.User, dto SubmitReportDTO) (*Report, error)
	List(ctx context.Context, status Status) ([]*Report, error)
	ListMine(ctx context.Context, submitterID string) ([]*Report, error)
	Get(ctx context.Context, id string) (*Report, error)
	Resolve(ctx context.Context, id string, resolver *user.User) (*Report, error)
	Reopen(ctx context.Context, id string) (*Report, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(svc ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     svc,
	}
}

func (h *Handler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.Logger.Error("SubmitReport: user not found in context")
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var dto SubmitReportDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	report, err := h.Service.Submit(r.Context(), current, dto)
	if err != nil {
		h.Logger.Warn("SubmitReport: service error", "error", err, "user_id", current.ID)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, report)
}

// ListReports handles GET /reports?status=Unresolved|Resolved
func (h *Handler) ListReports(w http.ResponseWriter, r *http.Request) {
	reports, err := h.Service.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handler) ListMyReports(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	reports, err := h.Service.ListMine(r.Context(), current.ID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, reports)
}

func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	report, err := h.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) ResolveReport(w http.ResponseWriter, r *http.Request) {
	current, ok := user.FromContext(r.Context())
	if !ok {
		h.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	id := chi.URLParam(r, "id")
	report, err := h.Service.Resolve(r.Context(), id, current)
	if err != nil {
		h.Logger.Warn("ResolveReport: service error", "error", err, "report_id", id)
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}

func (h *Handler) ReopenReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := h.Service.Reopen(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}
	h.WriteJSON(w, http.StatusOK, report)
}
