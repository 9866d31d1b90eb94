// Package firestore stores the ledger in Cloud Firestore. Items and checkout
// records live in two top-level collections keyed by their ids.
package firestore

import (
	"context"
	"errors"
	"sort"
	"time"

	firestoresdk "cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
)

const (
	itemsCollection     = "inventory_items"
	checkoutsCollection = "checkout_records"
)

// NewClient opens a Firestore client through the Firebase app. An empty
// credentialsFile falls back to application default credentials, which is
// also what the emulator expects.
func NewClient(ctx context.Context, projectID, credentialsFile string) (*firestoresdk.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, opts...)
	if err != nil {
		return nil, err
	}
	return app.Firestore(ctx)
}

type InventoryRepository struct {
	client *firestoresdk.Client
	prefix string
}

var _ inventory.Store = (*InventoryRepository)(nil)

// NewInventoryRepository prefixes both collection names with prefix so several
// environments can share one project.
func NewInventoryRepository(client *firestoresdk.Client, prefix string) *InventoryRepository {
	return &InventoryRepository{client: client, prefix: prefix}
}

func (r *InventoryRepository) items() *firestoresdk.CollectionRef {
	return r.client.Collection(r.prefix + itemsCollection)
}

func (r *InventoryRepository) checkouts() *firestoresdk.CollectionRef {
	return r.client.Collection(r.prefix + checkoutsCollection)
}

// Ping reads at most one item document to prove the project is reachable.
func (r *InventoryRepository) Ping(ctx context.Context) error {
	_, err := r.items().Limit(1).Documents(ctx).GetAll()
	return err
}

func (r *InventoryRepository) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	snap, err := r.items().Doc(id).Get(ctx)
	if err != nil {
		return nil, translateItemError(err, "failed to load item")
	}
	return itemFromSnapshot(snap)
}

func (r *InventoryRepository) ListItems(ctx context.Context, filter inventory.ItemFilter) ([]*inventory.Item, error) {
	query := r.items().Query
	if filter.Status != "" {
		query = query.Where("status", "==", string(filter.Status))
	}

	var items []*inventory.Item
	iter := query.Documents(ctx)
	defer iter.Stop()
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, internal.NewPersistenceError("failed to list items", err)
		}
		item, err := itemFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		if filter.Matches(item) {
			items = append(items, item)
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

func (r *InventoryRepository) CreateItem(ctx context.Context, item *inventory.Item) error {
	_, err := r.items().Doc(item.ID).Create(ctx, toItemDoc(item))
	if status.Code(err) == codes.AlreadyExists {
		return internal.NewConflictError("Item already exists", internal.ErrCodeDuplicateItem)
	}
	if err != nil {
		return internal.NewPersistenceError("failed to create item", err)
	}
	return nil
}

func (r *InventoryRepository) ListActiveCheckouts(ctx context.Context) ([]*inventory.CheckoutRecord, error) {
	records, err := collectCheckouts(r.checkouts().Where("checkedInAt", "==", nil).Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckedOutAt.Before(records[j].CheckedOutAt)
	})
	return records, nil
}

func (r *InventoryRepository) ListCheckoutsByItem(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	records, err := collectCheckouts(r.checkouts().Where("itemId", "==", itemID).Documents(ctx))
	if err != nil {
		return nil, err
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheckedOutAt.After(records[j].CheckedOutAt)
	})
	return records, nil
}

// WithinTx runs fn inside a Firestore transaction. Firestore retries fn when a
// document it read changes before commit, which is what closes the
// double-checkout race; fn must therefore be free of side effects beyond tx.
func (r *InventoryRepository) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	err := r.client.RunTransaction(ctx, func(ctx context.Context, tx *firestoresdk.Transaction) error {
		return fn(newFirestoreTx(r, tx))
	})
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewPersistenceError("inventory transaction failed", err)
}

// firestoreTx remembers what it read so later writes can be made conditional
// on the observed update time. Firestore rejects reads issued after the first
// write, so every read goes through read().
type firestoreTx struct {
	repo      *InventoryRepository
	tx        *firestoresdk.Transaction
	items     map[string]*firestoresdk.DocumentSnapshot
	checkouts map[string]*firestoresdk.DocumentSnapshot
	wrote     bool
}

func newFirestoreTx(repo *InventoryRepository, tx *firestoresdk.Transaction) *firestoreTx {
	return &firestoreTx{
		repo:      repo,
		tx:        tx,
		items:     make(map[string]*firestoresdk.DocumentSnapshot),
		checkouts: make(map[string]*firestoresdk.DocumentSnapshot),
	}
}

var errReadAfterWrite = errors.New("firestore transaction read after write")

func (t *firestoreTx) read() error {
	if t.wrote {
		return internal.NewPersistenceError("invalid transaction order", errReadAfterWrite)
	}
	return nil
}

func (t *firestoreTx) itemSnapshot(id string) (*firestoresdk.DocumentSnapshot, error) {
	if snap, ok := t.items[id]; ok {
		return snap, nil
	}
	if err := t.read(); err != nil {
		return nil, err
	}
	snap, err := t.tx.Get(t.repo.items().Doc(id))
	if err != nil {
		return nil, translateItemError(err, "failed to load item")
	}
	t.items[id] = snap
	return snap, nil
}

func (t *firestoreTx) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	snap, err := t.itemSnapshot(id)
	if err != nil {
		return nil, err
	}
	return itemFromSnapshot(snap)
}

func (t *firestoreTx) FindActiveCheckouts(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	if err := t.read(); err != nil {
		return nil, err
	}

	query := t.repo.checkouts().
		Where("itemId", "==", itemID).
		Where("checkedInAt", "==", nil)
	snaps, err := t.tx.Documents(query).GetAll()
	if err != nil {
		return nil, internal.NewPersistenceError("failed to load active checkouts", err)
	}

	open := make([]*inventory.CheckoutRecord, 0, len(snaps))
	for _, snap := range snaps {
		// cached so CloseCheckout needs no read after the first write
		t.checkouts[snap.Ref.ID] = snap
		record, err := checkoutFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		open = append(open, record)
	}
	sort.Slice(open, func(i, j int) bool { return open[i].CheckedOutAt.Before(open[j].CheckedOutAt) })
	return open, nil
}

// SwapItemStatus compares against the status read in this transaction and
// writes with a LastUpdateTime precondition, so a concurrent writer makes the
// commit fail instead of overwriting.
func (t *firestoreTx) SwapItemStatus(ctx context.Context, id string, from, to inventory.Status, at time.Time) (bool, error) {
	snap, err := t.itemSnapshot(id)
	if err != nil {
		return false, err
	}
	current, err := itemFromSnapshot(snap)
	if err != nil {
		return false, err
	}
	if current.Status != from {
		return false, nil
	}

	t.wrote = true
	err = t.tx.Update(snap.Ref, []firestoresdk.Update{
		{Path: "status", Value: string(to)},
		{Path: "updatedAt", Value: at},
	}, firestoresdk.LastUpdateTime(snap.UpdateTime))
	if err != nil {
		return false, internal.NewPersistenceError("failed to update item status", err)
	}
	return true, nil
}

func (t *firestoreTx) SaveItem(ctx context.Context, item *inventory.Item) error {
	t.wrote = true
	if err := t.tx.Set(t.repo.items().Doc(item.ID), toItemDoc(item)); err != nil {
		return internal.NewPersistenceError("failed to save item", err)
	}
	return nil
}

func (t *firestoreTx) CreateCheckout(ctx context.Context, record *inventory.CheckoutRecord) error {
	t.wrote = true
	if err := t.tx.Create(t.repo.checkouts().Doc(record.ID), toCheckoutDoc(record)); err != nil {
		return internal.NewPersistenceError("failed to create checkout record", err)
	}
	return nil
}

func (t *firestoreTx) CloseCheckout(ctx context.Context, id string, at time.Time) error {
	snap, ok := t.checkouts[id]
	if !ok {
		if err := t.read(); err != nil {
			return err
		}
		var err error
		snap, err = t.tx.Get(t.repo.checkouts().Doc(id))
		if status.Code(err) == codes.NotFound {
			return internal.ErrCheckoutNotFound
		}
		if err != nil {
			return internal.NewPersistenceError("failed to load checkout record", err)
		}
		t.checkouts[id] = snap
	}

	record, err := checkoutFromSnapshot(snap)
	if err != nil {
		return err
	}
	if !record.IsActive() {
		return internal.ErrNoActiveCheckout
	}

	t.wrote = true
	err = t.tx.Update(snap.Ref, []firestoresdk.Update{{Path: "checkedInAt", Value: at}})
	if err != nil {
		return internal.NewPersistenceError("failed to close checkout record", err)
	}
	return nil
}

func (t *firestoreTx) DeleteItem(ctx context.Context, id string) error {
	if _, err := t.itemSnapshot(id); err != nil {
		return err
	}
	if err := t.read(); err != nil {
		return err
	}
	history, err := t.tx.Documents(t.repo.checkouts().Where("itemId", "==", id)).GetAll()
	if err != nil {
		return internal.NewPersistenceError("failed to load checkout records", err)
	}

	t.wrote = true
	for _, snap := range history {
		if err := t.tx.Delete(snap.Ref); err != nil {
			return internal.NewPersistenceError("failed to delete checkout record", err)
		}
	}
	if err := t.tx.Delete(t.repo.items().Doc(id)); err != nil {
		return internal.NewPersistenceError("failed to delete item", err)
	}
	return nil
}

func collectCheckouts(iter *firestoresdk.DocumentIterator) ([]*inventory.CheckoutRecord, error) {
	defer iter.Stop()

	var records []*inventory.CheckoutRecord
	for {
		snap, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, internal.NewPersistenceError("failed to list checkout records", err)
		}
		record, err := checkoutFromSnapshot(snap)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, nil
}

func translateItemError(err error, message string) error {
	if status.Code(err) == codes.NotFound {
		return internal.ErrItemNotFound
	}
	return internal.NewPersistenceError(message, err)
}
