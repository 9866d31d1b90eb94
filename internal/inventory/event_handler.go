package inventory

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/equipment-tracker/internal/core/events"
)

// EventHandler writes the ledger's domain events to the audit log.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{logger: logger}
}

func (h *EventHandler) HandleAudit(ctx context.Context, event events.Event) error {
	h.logger.Info("inventory audit",
		"event_type", event.EventType(),
		"event_id", event.EventID(),
		"occurred_at", event.OccurredAt(),
		"payload", event.Payload())
	return nil
}

func (h *EventHandler) HandleCheckoutOverdue(ctx context.Context, event events.Event) error {
	overdue, ok := event.(*events.CheckoutOverdueEvent)
	if !ok {
		h.logger.Error("invalid event type for overdue handler", "event_type", event.EventType())
		return fmt.Errorf("expected CheckoutOverdueEvent, got %T", event)
	}

	h.logger.Warn("checkout overdue",
		"item_id", overdue.ItemID,
		"item_name", overdue.ItemName,
		"user_id", overdue.UserID,
		"checkout_id", overdue.CheckoutID,
		"days_out", overdue.DaysOut,
		"event_id", overdue.EventID())
	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	for _, eventType := range events.InventoryEventTypes {
		eventBus.Subscribe(eventType, h.HandleAudit)
	}
	eventBus.Subscribe(events.EventTypeCheckoutOverdue, h.HandleCheckoutOverdue)

	h.logger.Info("inventory event handlers registered",
		"handlers", append([]string{}, events.InventoryEventTypes...))
}
