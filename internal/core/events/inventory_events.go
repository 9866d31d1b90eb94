package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeItemCheckedOut      = "inventory.item_checked_out"
	EventTypeItemCheckedIn       = "inventory.item_checked_in"
	EventTypeItemStatusChanged   = "inventory.item_status_changed"
	EventTypeItemDeleted         = "inventory.item_deleted"
	EventTypeCheckoutOverdue     = "inventory.checkout_overdue"
	EventTypeConsistencyMismatch = "inventory.consistency_mismatch"
)

// InventoryEventTypes lists every event the ledger and its jobs emit.
var InventoryEventTypes = []string{
	EventTypeItemCheckedOut,
	EventTypeItemCheckedIn,
	EventTypeItemStatusChanged,
	EventTypeItemDeleted,
	EventTypeCheckoutOverdue,
	EventTypeConsistencyMismatch,
}

type ItemCheckedOutEvent struct {
	BaseEvent
	ItemID     string `json:"item_id"`
	UserID     string `json:"user_id"`
	CheckoutID string `json:"checkout_id"`
}

func NewItemCheckedOutEvent(itemID, userID, checkoutID string, at time.Time) *ItemCheckedOutEvent {
	return &ItemCheckedOutEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeItemCheckedOut,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id":     itemID,
				"user_id":     userID,
				"checkout_id": checkoutID,
			},
		},
		ItemID:     itemID,
		UserID:     userID,
		CheckoutID: checkoutID,
	}
}

type ItemCheckedInEvent struct {
	BaseEvent
	ItemID     string `json:"item_id"`
	UserID     string `json:"user_id"`
	CheckoutID string `json:"checkout_id"`
	DaysOut    int    `json:"days_out"`
}

func NewItemCheckedInEvent(itemID, userID, checkoutID string, daysOut int, at time.Time) *ItemCheckedInEvent {
	return &ItemCheckedInEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeItemCheckedIn,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id":     itemID,
				"user_id":     userID,
				"checkout_id": checkoutID,
				"days_out":    daysOut,
			},
		},
		ItemID:     itemID,
		UserID:     userID,
		CheckoutID: checkoutID,
		DaysOut:    daysOut,
	}
}

type ItemStatusChangedEvent struct {
	BaseEvent
	ItemID string `json:"item_id"`
	From   string `json:"from"`
	To     string `json:"to"`
	// ClosedCheckoutID is set when the change closed an active checkout.
	ClosedCheckoutID string `json:"closed_checkout_id,omitempty"`
}

func NewItemStatusChangedEvent(itemID, from, to, closedCheckoutID string, at time.Time) *ItemStatusChangedEvent {
	return &ItemStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeItemStatusChanged,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id":            itemID,
				"from":               from,
				"to":                 to,
				"closed_checkout_id": closedCheckoutID,
			},
		},
		ItemID:           itemID,
		From:             from,
		To:               to,
		ClosedCheckoutID: closedCheckoutID,
	}
}

type ItemDeletedEvent struct {
	BaseEvent
	ItemID string `json:"item_id"`
	Name   string `json:"name"`
}

func NewItemDeletedEvent(itemID, name string, at time.Time) *ItemDeletedEvent {
	return &ItemDeletedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeItemDeleted,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id": itemID,
				"name":    name,
			},
		},
		ItemID: itemID,
		Name:   name,
	}
}

type CheckoutOverdueEvent struct {
	BaseEvent
	ItemID     string `json:"item_id"`
	ItemName   string `json:"item_name"`
	UserID     string `json:"user_id"`
	CheckoutID string `json:"checkout_id"`
	DaysOut    int    `json:"days_out"`
}

func NewCheckoutOverdueEvent(itemID, itemName, userID, checkoutID string, daysOut int, at time.Time) *CheckoutOverdueEvent {
	return &CheckoutOverdueEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCheckoutOverdue,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id":     itemID,
				"item_name":   itemName,
				"user_id":     userID,
				"checkout_id": checkoutID,
				"days_out":    daysOut,
			},
		},
		ItemID:     itemID,
		ItemName:   itemName,
		UserID:     userID,
		CheckoutID: checkoutID,
		DaysOut:    daysOut,
	}
}

type ConsistencyMismatchEvent struct {
	BaseEvent
	ItemID          string `json:"item_id"`
	Status          string `json:"status"`
	ActiveCheckouts int    `json:"active_checkouts"`
}

func NewConsistencyMismatchEvent(itemID, status string, activeCheckouts int, at time.Time) *ConsistencyMismatchEvent {
	return &ConsistencyMismatchEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeConsistencyMismatch,
			Timestamp: at,
			Data: map[string]interface{}{
				"item_id":          itemID,
				"status":           status,
				"active_checkouts": activeCheckouts,
			},
		},
		ItemID:          itemID,
		Status:          status,
		ActiveCheckouts: activeCheckouts,
	}
}
