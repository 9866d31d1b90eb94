package inventory

import (
	"context"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/user"
)

// Store is the persistence port of the ledger. Adapters return
// internal.ErrItemNotFound for missing items and persistence errors
// (internal.NewPersistenceError) for backend failures.
type Store interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]*Item, error)
	CreateItem(ctx context.Context, item *Item) error

	// ListActiveCheckouts returns open records ordered by CheckedOutAt ascending.
	ListActiveCheckouts(ctx context.Context) ([]*CheckoutRecord, error)
	// ListCheckoutsByItem returns every record of an item, newest first.
	ListCheckoutsByItem(ctx context.Context, itemID string) ([]*CheckoutRecord, error)

	// WithinTx runs fn as one atomic unit of work. Nothing fn wrote is visible
	// if it returns an error.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the set of operations available inside a unit of work. Backends that
// require reads before writes (Firestore) rely on the ledger calling the
// readers first.
type Tx interface {
	GetItem(ctx context.Context, id string) (*Item, error)
	// FindActiveCheckouts returns the item's open records, oldest first. More
	// than one only happens when rows were written outside the ledger.
	FindActiveCheckouts(ctx context.Context, itemID string) ([]*CheckoutRecord, error)

	// SwapItemStatus sets the status to `to` only if it currently equals
	// `from`, reporting whether the write happened.
	SwapItemStatus(ctx context.Context, id string, from, to Status, at time.Time) (bool, error)
	SaveItem(ctx context.Context, item *Item) error
	CreateCheckout(ctx context.Context, record *CheckoutRecord) error
	// CloseCheckout returns internal.ErrNoActiveCheckout when the record is
	// already closed.
	CloseCheckout(ctx context.Context, id string, at time.Time) error
	// DeleteItem removes the item and all of its checkout records.
	DeleteItem(ctx context.Context, id string) error
}

// UserDirectory resolves borrowers. user.Service satisfies it.
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*user.User, error)
}

type Publisher = events.Publisher
