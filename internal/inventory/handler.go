package inventory

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/transport"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"
	"github.com/go-chi/chi"
)

type ServiceAPI interface {
	CreateItem(ctx context.Context, dto CreateItemDTO) (*Item, error)
	GetItem(ctx context.Context, itemID string) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	ListDeletedItems(ctx context.Context) ([]*Item, error)
	UpdateItem(ctx context.Context, itemID string, dto UpdateItemDTO) (*Item, error)
	SoftDelete(ctx context.Context, itemID string) error
	Restore(ctx context.Context, itemID string) error
	HardDeleteItem(ctx context.Context, itemID string) error
	CheckoutHistory(ctx context.Context, itemID string) ([]*CheckoutRecord, error)
	Summary(ctx context.Context) (*StatsSummary, error)
	ActiveCheckouts(ctx context.Context) ([]*CheckedOutItemDetail, error)
	ItemsOutLongerThan(ctx context.Context, days int) ([]*CheckedOutItemDetail, error)
	CheckOut(ctx context.Context, itemID, userID, notes string) (*CheckoutRecord, error)
	CheckIn(ctx context.Context, itemID string) (*CheckoutRecord, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI) *Handler {
	lg := logger.LoggerWrapper()
	if lg == nil {
		lg = slog.Default()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// GetItems handles GET /items. Deleted items are only listed through
// /deleted-items.
func (h *Handler) GetItems(w http.ResponseWriter, r *http.Request) {
	filter := ItemFilter{
		Status:         Status(r.URL.Query().Get("status")),
		ExcludeDeleted: true,
	}

	items, err := h.Service.ListItems(r.Context(), filter)
	if err != nil {
		h.Logger.Error("GetItems: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	item, err := h.Service.GetItem(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, item)
}

func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var dto CreateItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CreateItem: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.CreateItem(r.Context(), dto)
	if err != nil {
		h.Logger.Warn("CreateItem: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, item)
}

func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var dto UpdateItemDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("UpdateItem: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.Service.UpdateItem(r.Context(), id, dto)
	if err != nil {
		h.Logger.Warn("UpdateItem: service error", "item_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /items/{id}; the item and its history are gone
// for good.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.HardDeleteItem(r.Context(), id); err != nil {
		h.Logger.Warn("DeleteItem: service error", "item_id", id, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Item permanently deleted"})
}

func (h *Handler) SoftDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.SoftDelete(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Item moved to deleted items"})
}

func (h *Handler) RestoreItem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.Service.Restore(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Item restored"})
}

func (h *Handler) GetDeletedItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.Service.ListDeletedItems(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, items)
}

func (h *Handler) GetItemCheckouts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	records, err := h.Service.CheckoutHistory(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler) GetStatsSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.Service.Summary(r.Context())
	if err != nil {
		h.Logger.Error("GetStatsSummary: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) GetCheckedOutItems(w http.ResponseWriter, r *http.Request) {
	details, err := h.Service.ActiveCheckouts(r.Context())
	if err != nil {
		h.Logger.Error("GetCheckedOutItems: service error", "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, details)
}

func (h *Handler) GetOverdueItems(w http.ResponseWriter, r *http.Request) {
	daysParam := chi.URLParam(r, "days")
	days, err := strconv.Atoi(daysParam)
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, "days must be a whole number")
		return
	}

	details, err := h.Service.ItemsOutLongerThan(r.Context(), days)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, details)
}

// CheckOut handles POST /checkouts/checkout. Without a userId the caller
// borrows the item; lending to someone else takes Manager or above.
func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var dto CheckoutDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		h.Logger.Error("CheckOut: invalid request body", "error", err)
		h.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if current, ok := user.FromContext(r.Context()); ok {
		switch {
		case dto.UserID == "":
			dto.UserID = current.ID
		case dto.UserID != current.ID && !current.Role.AtLeast(user.RoleManager):
			h.Logger.Warn("CheckOut: lending on behalf of another user refused",
				"caller_id", current.ID, "role", current.Role, "user_id", dto.UserID)
			h.HandleServiceError(w, internal.ErrInsufficientRole)
			return
		}
	}

	record, err := h.Service.CheckOut(r.Context(), dto.ItemID, dto.UserID, dto.Notes)
	if err != nil {
		h.Logger.Warn("CheckOut: checkout rejected", "item_id", dto.ItemID, "user_id", dto.UserID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CheckOut: item checked out",
		"item_id", record.ItemID,
		"user_id", record.UserID,
		"checkout_id", record.ID)

	h.WriteJSON(w, http.StatusCreated, record)
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	itemID := chi.URLParam(r, "itemId")

	if _, err := h.Service.CheckIn(r.Context(), itemID); err != nil {
		h.Logger.Warn("CheckIn: check-in rejected", "item_id", itemID, "error", err)
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Item checked in successfully"})
}
