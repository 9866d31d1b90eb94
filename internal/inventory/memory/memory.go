// Package memory keeps the ledger in process memory. It backs local
// development (storage.backend: memory) and the ledger tests; nothing survives
// a restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
)

type Store struct {
	mu        sync.RWMutex
	items     map[string]*inventory.Item
	checkouts map[string]*inventory.CheckoutRecord
}

var _ inventory.Store = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		items:     make(map[string]*inventory.Item),
		checkouts: make(map[string]*inventory.CheckoutRecord),
	}
}

func (s *Store) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getItem(s.items, id)
}

func (s *Store) ListItems(ctx context.Context, filter inventory.ItemFilter) ([]*inventory.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]*inventory.Item, 0, len(s.items))
	for _, item := range s.items {
		if filter.Matches(item) {
			items = append(items, cloneItem(item))
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	return items, nil
}

func (s *Store) CreateItem(ctx context.Context, item *inventory.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.items[item.ID]; exists {
		return internal.NewConflictError("Item already exists", internal.ErrCodeDuplicateItem)
	}
	s.items[item.ID] = cloneItem(item)
	return nil
}

func (s *Store) ListActiveCheckouts(ctx context.Context) ([]*inventory.CheckoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*inventory.CheckoutRecord, 0)
	for _, record := range s.checkouts {
		if record.IsActive() {
			records = append(records, cloneRecord(record))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckedOutAt.Before(records[j].CheckedOutAt)
	})
	return records, nil
}

func (s *Store) ListCheckoutsByItem(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]*inventory.CheckoutRecord, 0)
	for _, record := range s.checkouts {
		if record.ItemID == itemID {
			records = append(records, cloneRecord(record))
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckedOutAt.After(records[j].CheckedOutAt)
	})
	return records, nil
}

// WithinTx serializes units of work behind the write lock. fn works on a
// private copy of both maps which replaces the live state only when fn
// succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		items:     make(map[string]*inventory.Item, len(s.items)),
		checkouts: make(map[string]*inventory.CheckoutRecord, len(s.checkouts)),
	}
	for id, item := range s.items {
		tx.items[id] = item
	}
	for id, record := range s.checkouts {
		tx.checkouts[id] = record
	}

	if err := fn(tx); err != nil {
		return err
	}

	s.items = tx.items
	s.checkouts = tx.checkouts
	return nil
}

// Entries in the tx maps are never mutated in place; writes swap in fresh
// copies so the live maps stay untouched until commit.
type memTx struct {
	items     map[string]*inventory.Item
	checkouts map[string]*inventory.CheckoutRecord
}

func (t *memTx) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	return getItem(t.items, id)
}

func (t *memTx) FindActiveCheckouts(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	var open []*inventory.CheckoutRecord
	for _, record := range t.checkouts {
		if record.ItemID == itemID && record.IsActive() {
			open = append(open, cloneRecord(record))
		}
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CheckedOutAt.Before(open[j].CheckedOutAt) })
	return open, nil
}

func (t *memTx) SwapItemStatus(ctx context.Context, id string, from, to inventory.Status, at time.Time) (bool, error) {
	current, ok := t.items[id]
	if !ok {
		return false, internal.ErrItemNotFound
	}
	if current.Status != from {
		return false, nil
	}
	next := cloneItem(current)
	next.Status = to
	next.UpdatedAt = at
	t.items[id] = next
	return true, nil
}

func (t *memTx) SaveItem(ctx context.Context, item *inventory.Item) error {
	if _, ok := t.items[item.ID]; !ok {
		return internal.ErrItemNotFound
	}
	t.items[item.ID] = cloneItem(item)
	return nil
}

func (t *memTx) CreateCheckout(ctx context.Context, record *inventory.CheckoutRecord) error {
	for _, existing := range t.checkouts {
		if existing.ItemID == record.ItemID && existing.IsActive() {
			return internal.ErrItemNotAvailable
		}
	}
	t.checkouts[record.ID] = cloneRecord(record)
	return nil
}

func (t *memTx) CloseCheckout(ctx context.Context, id string, at time.Time) error {
	current, ok := t.checkouts[id]
	if !ok {
		return internal.ErrCheckoutNotFound
	}
	if !current.IsActive() {
		return internal.ErrNoActiveCheckout
	}
	next := cloneRecord(current)
	checkedInAt := at
	next.CheckedInAt = &checkedInAt
	t.checkouts[id] = next
	return nil
}

func (t *memTx) DeleteItem(ctx context.Context, id string) error {
	if _, ok := t.items[id]; !ok {
		return internal.ErrItemNotFound
	}
	delete(t.items, id)
	for recordID, record := range t.checkouts {
		if record.ItemID == id {
			delete(t.checkouts, recordID)
		}
	}
	return nil
}

func getItem(items map[string]*inventory.Item, id string) (*inventory.Item, error) {
	item, ok := items[id]
	if !ok {
		return nil, internal.ErrItemNotFound
	}
	return cloneItem(item), nil
}

func cloneItem(item *inventory.Item) *inventory.Item {
	c := *item
	return &c
}

func cloneRecord(record *inventory.CheckoutRecord) *inventory.CheckoutRecord {
	c := *record
	if record.CheckedInAt != nil {
		t := *record.CheckedInAt
		c.CheckedInAt = &t
	}
	return &c
}
