package inventory

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/google/uuid"
)

// Ledger owns inventory items and their checkout records. It is the only
// component allowed to change an item's status or open and close checkout
// records.
type Ledger struct {
	store     Store
	users     UserDirectory
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

func WithPublisher(p Publisher) Option {
	return func(l *Ledger) {
		l.publisher = p
	}
}

func NewLedger(store Store, users UserDirectory, logger *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		store:  store,
		users:  users,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// CheckOut lends an Available item to a user.
func (l *Ledger) CheckOut(ctx context.Context, itemID, userID, notes string) (*CheckoutRecord, error) {
	if err := (CheckoutDTO{ItemID: itemID, UserID: userID, Notes: notes}).Validate(); err != nil {
		return nil, err
	}

	if _, err := l.users.GetByID(ctx, userID); err != nil {
		l.logFailure("checkout rejected: unknown user", err, "item_id", itemID, "user_id", userID)
		return nil, err
	}

	now := l.clock()
	var record *CheckoutRecord

	err := l.store.WithinTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		if !item.IsAvailable() {
			return internal.ErrItemNotAvailable
		}

		swapped, err := tx.SwapItemStatus(ctx, itemID, StatusAvailable, StatusCheckedOut, now)
		if err != nil {
			return err
		}
		if !swapped {
			// lost the race against a concurrent checkout
			return internal.ErrItemNotAvailable
		}

		record = &CheckoutRecord{
			ID:           uuid.NewString(),
			ItemID:       itemID,
			UserID:       userID,
			CheckedOutAt: now,
			Notes:        strings.TrimSpace(notes),
		}
		return tx.CreateCheckout(ctx, record)
	})
	if err != nil {
		l.logFailure("checkout failed", err, "item_id", itemID, "user_id", userID)
		return nil, err
	}

	l.logger.Info("item checked out", "item_id", itemID, "user_id", userID, "checkout_id", record.ID)
	l.publish(ctx, events.NewItemCheckedOutEvent(itemID, userID, record.ID, now))
	return record, nil
}

// CheckIn closes the item's active checkout and makes it Available again.
// Extra open records left by corrupted data are closed too; the newest one is
// returned.
func (l *Ledger) CheckIn(ctx context.Context, itemID string) (*CheckoutRecord, error) {
	now := l.clock()
	var closed *CheckoutRecord
	var strays []*CheckoutRecord

	err := l.store.WithinTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		open, err := tx.FindActiveCheckouts(ctx, itemID)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			return internal.ErrNoActiveCheckout
		}

		if err := closeAll(ctx, tx, open, now); err != nil {
			return err
		}
		active := open[len(open)-1]
		strays = open[:len(open)-1]
		item.Status = StatusAvailable
		item.UpdatedAt = now
		if err := tx.SaveItem(ctx, item); err != nil {
			return err
		}

		active.CheckedInAt = &now
		closed = active
		return nil
	})
	if err != nil {
		l.logFailure("checkin failed", err, "item_id", itemID)
		return nil, err
	}

	l.warnStrays(itemID, strays)
	daysOut := closed.DaysOut(now)
	l.logger.Info("item checked in", "item_id", itemID, "checkout_id", closed.ID, "days_out", daysOut)
	l.publish(ctx, events.NewItemCheckedInEvent(itemID, closed.UserID, closed.ID, daysOut, now))
	return closed, nil
}

// SoftDelete marks the item Deleted. An active checkout is closed with it.
func (l *Ledger) SoftDelete(ctx context.Context, itemID string) error {
	_, err := l.editItem(ctx, itemID, func(item *Item) error {
		item.Status = StatusDeleted
		return nil
	})
	return err
}

// Restore makes the item Available whatever its previous status was.
func (l *Ledger) Restore(ctx context.Context, itemID string) error {
	_, err := l.editItem(ctx, itemID, func(item *Item) error {
		item.Status = StatusAvailable
		return nil
	})
	return err
}

// HardDeleteItem permanently removes the item and its checkout history.
func (l *Ledger) HardDeleteItem(ctx context.Context, itemID string) error {
	var name string
	err := l.store.WithinTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		name = item.Name
		return tx.DeleteItem(ctx, itemID)
	})
	if err != nil {
		l.logFailure("hard delete failed", err, "item_id", itemID)
		return err
	}

	l.logger.Info("item permanently deleted", "item_id", itemID, "actor_id", internal.ActorIDFromContext(ctx))
	l.publish(ctx, events.NewItemDeletedEvent(itemID, name, l.clock()))
	return nil
}

func (l *Ledger) CreateItem(ctx context.Context, dto CreateItemDTO) (*Item, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	status := StatusAvailable
	if dto.Status != "" {
		status = Status(dto.Status)
	}
	if status == StatusCheckedOut {
		return nil, internal.ErrStatusRequiresCheckout
	}

	now := l.clock()
	item := &Item{
		ID:                   uuid.NewString(),
		Name:                 strings.TrimSpace(dto.Name),
		SerialNumber:         strings.TrimSpace(dto.SerialNumber),
		Description:          dto.Description,
		Condition:            Condition(dto.Condition),
		Status:               status,
		Value:                dto.Value,
		PermanentCheckout:    dto.PermanentCheckout,
		PermissionNeeded:     dto.PermissionNeeded,
		DriversLicenseNeeded: dto.DriversLicenseNeeded,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := l.store.CreateItem(ctx, item); err != nil {
		l.logFailure("failed to create item", err, "name", item.Name)
		return nil, err
	}

	l.logger.Info("item created", "item_id", item.ID, "status", item.Status)
	return item, nil
}

func (l *Ledger) GetItem(ctx context.Context, itemID string) (*Item, error) {
	return l.store.GetItem(ctx, itemID)
}

func (l *Ledger) ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error) {
	items, err := l.store.ListItems(ctx, filter)
	if err != nil {
		l.logFailure("failed to list items", err)
		return nil, err
	}
	return items, nil
}

func (l *Ledger) ListDeletedItems(ctx context.Context) ([]*Item, error) {
	return l.ListItems(ctx, ItemFilter{Status: StatusDeleted})
}

// UpdateItem applies an operator edit. Moving the status away from Checked Out
// closes the active checkout; moving it to Checked Out is only possible
// through CheckOut.
func (l *Ledger) UpdateItem(ctx context.Context, itemID string, dto UpdateItemDTO) (*Item, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	return l.editItem(ctx, itemID, func(item *Item) error {
		if dto.Name != nil {
			item.Name = strings.TrimSpace(*dto.Name)
		}
		if dto.SerialNumber != nil {
			item.SerialNumber = strings.TrimSpace(*dto.SerialNumber)
		}
		if dto.Description != nil {
			item.Description = *dto.Description
		}
		if dto.Condition != nil {
			item.Condition = Condition(*dto.Condition)
		}
		if dto.Status != nil {
			item.Status = Status(*dto.Status)
		}
		if dto.Value != nil {
			item.Value = *dto.Value
		}
		if dto.PermanentCheckout != nil {
			item.PermanentCheckout = *dto.PermanentCheckout
		}
		if dto.PermissionNeeded != nil {
			item.PermissionNeeded = *dto.PermissionNeeded
		}
		if dto.DriversLicenseNeeded != nil {
			item.DriversLicenseNeeded = *dto.DriversLicenseNeeded
		}
		return nil
	})
}

// CheckoutHistory lists every checkout of an item, newest first.
func (l *Ledger) CheckoutHistory(ctx context.Context, itemID string) ([]*CheckoutRecord, error) {
	if _, err := l.store.GetItem(ctx, itemID); err != nil {
		return nil, err
	}
	return l.store.ListCheckoutsByItem(ctx, itemID)
}

// ActiveCheckouts returns every open checkout joined with its item and
// borrower, longest outstanding first.
func (l *Ledger) ActiveCheckouts(ctx context.Context) ([]*CheckedOutItemDetail, error) {
	records, err := l.store.ListActiveCheckouts(ctx)
	if err != nil {
		l.logFailure("failed to list active checkouts", err)
		return nil, err
	}

	now := l.clock()
	borrowers := make(map[string]*user.User)
	details := make([]*CheckedOutItemDetail, 0, len(records))

	for _, record := range records {
		item, err := l.store.GetItem(ctx, record.ItemID)
		if errors.Is(err, internal.ErrItemNotFound) {
			l.logger.Warn("active checkout references a missing item", "checkout_id", record.ID, "item_id", record.ItemID)
			continue
		}
		if err != nil {
			return nil, err
		}

		borrower, err := l.borrower(ctx, record.UserID, borrowers)
		if err != nil {
			return nil, err
		}

		details = append(details, &CheckedOutItemDetail{
			Item:           item,
			User:           borrower,
			CheckoutRecord: record,
			DaysOut:        record.DaysOut(now),
		})
	}

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].CheckoutRecord.CheckedOutAt.Before(details[j].CheckoutRecord.CheckedOutAt)
	})
	return details, nil
}

// ItemsOutLongerThan keeps the active checkouts that have been out for at
// least days whole days.
func (l *Ledger) ItemsOutLongerThan(ctx context.Context, days int) ([]*CheckedOutItemDetail, error) {
	if days < 0 {
		return nil, internal.NewValidationError("days must not be negative", internal.ErrCodeInvalidDays)
	}

	active, err := l.ActiveCheckouts(ctx)
	if err != nil {
		return nil, err
	}

	overdue := make([]*CheckedOutItemDetail, 0, len(active))
	for _, detail := range active {
		if detail.DaysOut >= days {
			overdue = append(overdue, detail)
		}
	}
	return overdue, nil
}

func (l *Ledger) Summary(ctx context.Context) (*StatsSummary, error) {
	items, err := l.store.ListItems(ctx, ItemFilter{})
	if err != nil {
		l.logFailure("failed to load items for summary", err)
		return nil, err
	}

	summary := &StatsSummary{}
	for _, item := range items {
		if !item.IsDeleted() {
			summary.TotalValue += item.Value
		}
		if item.Status.IsLoss() {
			summary.StolenLostDamagedValue += item.Value
			summary.StolenLostDamagedCount++
		}
		if item.Status == StatusCheckedOut {
			summary.CheckedOutCount++
		}
	}
	summary.TotalValue = roundCents(summary.TotalValue)
	summary.StolenLostDamagedValue = roundCents(summary.StolenLostDamagedValue)
	return summary, nil
}

func (l *Ledger) TotalValue(ctx context.Context) (float64, error) {
	s, err := l.Summary(ctx)
	if err != nil {
		return 0, err
	}
	return s.TotalValue, nil
}

func (l *Ledger) StolenLostDamagedValue(ctx context.Context) (float64, error) {
	s, err := l.Summary(ctx)
	if err != nil {
		return 0, err
	}
	return s.StolenLostDamagedValue, nil
}

func (l *Ledger) StolenLostDamagedCount(ctx context.Context) (int, error) {
	s, err := l.Summary(ctx)
	if err != nil {
		return 0, err
	}
	return s.StolenLostDamagedCount, nil
}

func (l *Ledger) CheckedOutCount(ctx context.Context) (int, error) {
	s, err := l.Summary(ctx)
	if err != nil {
		return 0, err
	}
	return s.CheckedOutCount, nil
}

// AuditConsistency lists items where "status is Checked Out" and "exactly one
// open checkout exists" disagree, including open records whose item is gone.
func (l *Ledger) AuditConsistency(ctx context.Context) ([]Inconsistency, error) {
	items, err := l.store.ListItems(ctx, ItemFilter{})
	if err != nil {
		return nil, err
	}
	records, err := l.store.ListActiveCheckouts(ctx)
	if err != nil {
		return nil, err
	}

	open := make(map[string]int, len(records))
	for _, record := range records {
		open[record.ItemID]++
	}

	var found []Inconsistency
	for _, item := range items {
		n := open[item.ID]
		delete(open, item.ID)
		if (item.Status == StatusCheckedOut) != (n == 1) || n > 1 {
			found = append(found, Inconsistency{ItemID: item.ID, Status: item.Status, ActiveCheckouts: n})
		}
	}
	for itemID, n := range open {
		found = append(found, Inconsistency{ItemID: itemID, ActiveCheckouts: n})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].ItemID < found[j].ItemID })
	return found, nil
}

// editItem runs edit inside a unit of work and keeps the checkout records in
// line with the resulting status.
func (l *Ledger) editItem(ctx context.Context, itemID string, edit func(item *Item) error) (*Item, error) {
	now := l.clock()
	var (
		updated  *Item
		previous Status
		closedID string
		strays   []*CheckoutRecord
	)

	err := l.store.WithinTx(ctx, func(tx Tx) error {
		item, err := tx.GetItem(ctx, itemID)
		if err != nil {
			return err
		}
		open, err := tx.FindActiveCheckouts(ctx, itemID)
		if err != nil {
			return err
		}

		previous = item.Status
		if err := edit(item); err != nil {
			return err
		}
		if item.Status == StatusCheckedOut && previous != StatusCheckedOut {
			return internal.ErrStatusRequiresCheckout
		}

		if len(open) > 0 && item.Status != StatusCheckedOut {
			if err := closeAll(ctx, tx, open, now); err != nil {
				return err
			}
			closedID = open[len(open)-1].ID
			strays = open[:len(open)-1]
		}

		item.UpdatedAt = now
		if err := tx.SaveItem(ctx, item); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		l.logFailure("item edit failed", err, "item_id", itemID)
		return nil, err
	}
	l.warnStrays(itemID, strays)

	if previous != updated.Status {
		l.logger.Info("item status changed",
			"item_id", itemID,
			"from", previous,
			"to", updated.Status,
			"closed_checkout_id", closedID,
			"actor_id", internal.ActorIDFromContext(ctx))
		l.publish(ctx, events.NewItemStatusChangedEvent(itemID, string(previous), string(updated.Status), closedID, now))
	}
	return updated, nil
}

func (l *Ledger) borrower(ctx context.Context, userID string, cache map[string]*user.User) (*user.User, error) {
	if u, ok := cache[userID]; ok {
		return u, nil
	}
	u, err := l.users.GetByID(ctx, userID)
	if errors.Is(err, internal.ErrUserNotFound) {
		// the borrower was deleted after checking the item out
		u, err = nil, nil
	}
	if err != nil {
		return nil, err
	}
	cache[userID] = u
	return u, nil
}

// closeAll closes every open record of an item so none outlives the status
// change.
func closeAll(ctx context.Context, tx Tx, open []*CheckoutRecord, at time.Time) error {
	for _, record := range open {
		if err := tx.CloseCheckout(ctx, record.ID, at); err != nil {
			return err
		}
	}
	return nil
}

func (l *Ledger) warnStrays(itemID string, strays []*CheckoutRecord) {
	if len(strays) == 0 {
		return
	}
	ids := make([]string, len(strays))
	for i, record := range strays {
		ids[i] = record.ID
	}
	l.logger.Warn("closed extra open checkout records", "item_id", itemID, "checkout_ids", ids)
}

func (l *Ledger) publish(ctx context.Context, event events.Event) {
	if l.publisher == nil {
		return
	}
	if err := l.publisher.Publish(ctx, event); err != nil {
		l.logger.Warn("failed to publish inventory event", "event_type", event.EventType(), "error", err)
	}
}

func (l *Ledger) logFailure(msg string, err error, attrs ...any) {
	attrs = append(attrs, "error", err)
	if internal.IsPersistenceFailure(err) {
		l.logger.Error(msg, attrs...)
		return
	}
	l.logger.Info(msg, attrs...)
}

func (l *Ledger) clock() time.Time {
	return l.now().UTC()
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
