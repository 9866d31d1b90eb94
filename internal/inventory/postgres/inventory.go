package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	inventoryDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InventoryRepository struct {
	session
}

func NewInventoryRepository(db *gorm.DB) *InventoryRepository {
	return &InventoryRepository{session: session{db: db}}
}

var _ inventory.Store = (*InventoryRepository)(nil)

func (r *InventoryRepository) ListItems(ctx context.Context, filter inventory.ItemFilter) ([]*inventory.Item, error) {
	query := r.db.WithContext(ctx).Model(&inventoryDatamodel.Item{})
	if filter.Status != "" {
		query = query.Where("status = ?", string(filter.Status))
	}
	if filter.ExcludeDeleted {
		query = query.Where("status <> ?", string(inventory.StatusDeleted))
	}

	var rows []*inventoryDatamodel.Item
	if err := query.Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, internal.NewPersistenceError("failed to list items", err)
	}
	return inventory.FromDataModelSlice(rows), nil
}

func (r *InventoryRepository) CreateItem(ctx context.Context, item *inventory.Item) error {
	err := r.db.WithContext(ctx).Create(inventory.ToDataModel(item)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return internal.NewConflictError("Item already exists", internal.ErrCodeDuplicateItem)
	}
	if err != nil {
		return internal.NewPersistenceError("failed to create item", err)
	}
	return nil
}

func (r *InventoryRepository) ListActiveCheckouts(ctx context.Context) ([]*inventory.CheckoutRecord, error) {
	var rows []*inventoryDatamodel.CheckoutRecord
	err := r.db.WithContext(ctx).
		Where("checked_in_at IS NULL").
		Order("checked_out_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("failed to list active checkouts", err)
	}
	return inventory.CheckoutsFromDataModel(rows), nil
}

func (r *InventoryRepository) ListCheckoutsByItem(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	var rows []*inventoryDatamodel.CheckoutRecord
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("checked_out_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("failed to list checkout history", err)
	}
	return inventory.CheckoutsFromDataModel(rows), nil
}

// WithinTx runs fn in a database transaction. Errors that are not already
// AppErrors (commit failures, driver errors) surface as persistence failures.
func (r *InventoryRepository) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTx{session: session{db: tx}})
	})
	if err == nil {
		return nil
	}
	if _, ok := internal.IsAppError(err); ok {
		return err
	}
	return internal.NewPersistenceError("inventory transaction failed", err)
}

// session holds the queries shared by the repository and its transactions.
type session struct {
	db *gorm.DB
}

func (s session) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	var row inventoryDatamodel.Item
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrItemNotFound
	}
	if err != nil {
		return nil, internal.NewPersistenceError("failed to load item", err)
	}
	return inventory.FromDataModel(&row), nil
}

type gormTx struct {
	session
}

// GetItem locks the row until the transaction ends; no other transaction can
// change the status between this read and SaveItem.
func (t *gormTx) GetItem(ctx context.Context, id string) (*inventory.Item, error) {
	var row inventoryDatamodel.Item
	err := t.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, internal.ErrItemNotFound
	}
	if err != nil {
		return nil, internal.NewPersistenceError("failed to load item", err)
	}
	return inventory.FromDataModel(&row), nil
}

func (t *gormTx) FindActiveCheckouts(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	var rows []*inventoryDatamodel.CheckoutRecord
	err := t.db.WithContext(ctx).
		Where("item_id = ? AND checked_in_at IS NULL", itemID).
		Order("checked_out_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, internal.NewPersistenceError("failed to load active checkouts", err)
	}
	return inventory.CheckoutsFromDataModel(rows), nil
}

// SwapItemStatus is the checkout guard: a concurrent transaction that already
// moved the row off `from` leaves nothing for this UPDATE to match.
func (t *gormTx) SwapItemStatus(ctx context.Context, id string, from, to inventory.Status, at time.Time) (bool, error) {
	result := t.db.WithContext(ctx).
		Model(&inventoryDatamodel.Item{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(map[string]interface{}{
			"status":     string(to),
			"updated_at": at,
		})
	if result.Error != nil {
		return false, internal.NewPersistenceError("failed to update item status", result.Error)
	}
	return result.RowsAffected == 1, nil
}

func (t *gormTx) SaveItem(ctx context.Context, item *inventory.Item) error {
	result := t.db.WithContext(ctx).
		Model(&inventoryDatamodel.Item{}).
		Where("id = ?", item.ID).
		Select("*").
		Omit("id", "created_at").
		Updates(inventory.ToDataModel(item))
	if result.Error != nil {
		return internal.NewPersistenceError("failed to save item", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrItemNotFound
	}
	return nil
}

func (t *gormTx) CreateCheckout(ctx context.Context, record *inventory.CheckoutRecord) error {
	err := t.db.WithContext(ctx).Create(inventory.CheckoutToDataModel(record)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// the partial unique index rejected a second open record
		return internal.ErrItemNotAvailable
	}
	if err != nil {
		return internal.NewPersistenceError("failed to create checkout record", err)
	}
	return nil
}

func (t *gormTx) CloseCheckout(ctx context.Context, id string, at time.Time) error {
	result := t.db.WithContext(ctx).
		Model(&inventoryDatamodel.CheckoutRecord{}).
		Where("id = ? AND checked_in_at IS NULL", id).
		Update("checked_in_at", at)
	if result.Error != nil {
		return internal.NewPersistenceError("failed to close checkout record", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrNoActiveCheckout
	}
	return nil
}

func (t *gormTx) DeleteItem(ctx context.Context, id string) error {
	db := t.db.WithContext(ctx)
	if err := db.Where("item_id = ?", id).Delete(&inventoryDatamodel.CheckoutRecord{}).Error; err != nil {
		return internal.NewPersistenceError("failed to delete checkout records", err)
	}

	result := db.Where("id = ?", id).Delete(&inventoryDatamodel.Item{})
	if result.Error != nil {
		return internal.NewPersistenceError("failed to delete item", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrItemNotFound
	}
	return nil
}
