package cmd

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Inspect the inventory event handlers by publishing events through a local bus`,
}

var publishEventCmd = &cobra.Command{
	Use:       "publish [event-type]",
	Short:     "Publish a test inventory event",
	Long:      `Publish an inventory event to a local event bus with the audit handlers attached`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: events.InventoryEventTypes,
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var (
	eventItemID string
	eventUserID string
	eventDays   int
)

func publishTestEvent(eventType string) error {
	if !slices.Contains(events.InventoryEventTypes, eventType) {
		return fmt.Errorf("unknown event type %q, expected one of %v", eventType, events.InventoryEventTypes)
	}

	lg := logger.LoggerWrapper()
	eventBus := events.NewEventBus(lg)
	inventory.NewEventHandler(lg).RegisterEventHandlers(eventBus)

	now := time.Now().UTC()
	var event events.Event
	switch eventType {
	case events.EventTypeItemCheckedOut:
		event = events.NewItemCheckedOutEvent(eventItemID, eventUserID, uuid.NewString(), now)
	case events.EventTypeItemCheckedIn:
		event = events.NewItemCheckedInEvent(eventItemID, eventUserID, uuid.NewString(), eventDays, now)
	case events.EventTypeCheckoutOverdue:
		event = events.NewCheckoutOverdueEvent(eventItemID, "test item", eventUserID, uuid.NewString(), eventDays, now)
	case events.EventTypeItemDeleted:
		event = events.NewItemDeletedEvent(eventItemID, "test item", now)
	case events.EventTypeItemStatusChanged:
		event = events.NewItemStatusChangedEvent(eventItemID, string(inventory.StatusAvailable), string(inventory.StatusUnderMaintenance), "", now)
	default:
		event = events.NewConsistencyMismatchEvent(eventItemID, string(inventory.StatusAvailable), 1, now)
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())
	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("publish event: %w", err)
	}
	lg.Info("test event handled", "handlers", eventBus.HandlerCount(eventType))
	return nil
}

func init() {
	publishEventCmd.Flags().StringVar(&eventItemID, "item", "test-item", "item id carried by the event")
	publishEventCmd.Flags().StringVar(&eventUserID, "user", "test-user", "user id carried by the event")
	publishEventCmd.Flags().IntVar(&eventDays, "days", 31, "days out for check-in and overdue events")

	eventCmd.AddCommand(publishEventCmd)
	rootCmd.AddCommand(eventCmd)
}
