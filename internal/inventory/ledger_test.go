package inventory_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/inventory/memory"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type failingStore struct {
	*memory.Store
	err error
}

func (f *failingStore) ListItems(ctx context.Context, filter inventory.ItemFilter) ([]*inventory.Item, error) {
	return nil, f.err
}

func (f *failingStore) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	return f.err
}

// strayStore reports one extra open record for an item, as a row written
// behind the ledger's back would look.
type strayStore struct {
	*memory.Store
	stray  *inventory.CheckoutRecord
	closed []string
}

func (s *strayStore) WithinTx(ctx context.Context, fn func(tx inventory.Tx) error) error {
	return s.Store.WithinTx(ctx, func(tx inventory.Tx) error {
		return fn(&strayTx{Tx: tx, store: s})
	})
}

type strayTx struct {
	inventory.Tx
	store *strayStore
}

func (t *strayTx) FindActiveCheckouts(ctx context.Context, itemID string) ([]*inventory.CheckoutRecord, error) {
	open, err := t.Tx.FindActiveCheckouts(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if t.store.stray != nil && t.store.stray.ItemID == itemID {
		open = append([]*inventory.CheckoutRecord{t.store.stray}, open...)
	}
	return open, nil
}

func (t *strayTx) CloseCheckout(ctx context.Context, id string, at time.Time) error {
	if t.store.stray != nil && id == t.store.stray.ID {
		t.store.closed = append(t.store.closed, id)
		return nil
	}
	return t.Tx.CloseCheckout(ctx, id, at)
}

var _ = Describe("Ledger", func() {
	var (
		ctx       context.Context
		store     *memory.Store
		users     *mockUserDirectory
		clock     *fakeClock
		publisher *recordingPublisher
		ledger    *inventory.Ledger
		start     time.Time
	)

	createItem := func(name string, value float64) *inventory.Item {
		item, err := ledger.CreateItem(ctx, inventory.CreateItemDTO{
			Name:      name,
			Condition: string(inventory.ConditionGood),
			Value:     value,
		})
		Expect(err).NotTo(HaveOccurred())
		return item
	}

	activeRecords := func(itemID string) int {
		history, err := store.ListCheckoutsByItem(ctx, itemID)
		Expect(err).NotTo(HaveOccurred())
		n := 0
		for _, record := range history {
			if record.IsActive() {
				n++
			}
		}
		return n
	}

	BeforeEach(func() {
		ctx = context.Background()
		start = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
		store = memory.NewStore()
		users = newMockUserDirectory("user1", "user2")
		clock = newFakeClock(start)
		publisher = &recordingPublisher{}
		ledger = inventory.NewLedger(store, users, quietLogger(),
			inventory.WithClock(clock.Now),
			inventory.WithPublisher(publisher))
	})

	Describe("CreateItem", func() {
		It("should default new items to Available", func() {
			item := createItem("Projector", 450)

			Expect(item.ID).NotTo(BeEmpty())
			Expect(item.Status).To(Equal(inventory.StatusAvailable))
			Expect(item.CreatedAt).To(Equal(start))

			stored, err := ledger.GetItem(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Name).To(Equal("Projector"))
		})

		It("should refuse to create an item that is already Checked Out", func() {
			_, err := ledger.CreateItem(ctx, inventory.CreateItemDTO{
				Name:      "Camera",
				Condition: string(inventory.ConditionGood),
				Status:    string(inventory.StatusCheckedOut),
			})
			Expect(errors.Is(err, internal.ErrStatusRequiresCheckout)).To(BeTrue())
		})

		It("should reject a negative value and an unknown condition", func() {
			_, err := ledger.CreateItem(ctx, inventory.CreateItemDTO{
				Name:      "Camera",
				Condition: "Shiny",
				Value:     -1,
			})
			Expect(err).To(HaveOccurred())

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("CheckOut", func() {
		It("should mark the item Checked Out and open a record", func() {
			item := createItem("Drill", 120)

			record, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())
			Expect(record.ItemID).To(Equal(item.ID))
			Expect(record.UserID).To(Equal("user1"))
			Expect(record.CheckedInAt).To(BeNil())
			Expect(record.CheckedOutAt).To(Equal(start))

			stored, err := ledger.GetItem(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.Status).To(Equal(inventory.StatusCheckedOut))
			Expect(activeRecords(item.ID)).To(Equal(1))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeItemCheckedOut))
		})

		It("should fail the second checkout without touching the first", func() {
			item := createItem("Drill", 120)

			first, err := ledger.CheckOut(ctx, item.ID, "user1", "site visit")
			Expect(err).NotTo(HaveOccurred())

			_, err = ledger.CheckOut(ctx, item.ID, "user2", "")
			Expect(errors.Is(err, internal.ErrItemNotAvailable)).To(BeTrue())

			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(400))

			history, err := ledger.CheckoutHistory(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].ID).To(Equal(first.ID))
			Expect(history[0].UserID).To(Equal("user1"))
		})

		It("should return ItemNotFound for an unknown item", func() {
			_, err := ledger.CheckOut(ctx, "missing", "user1", "")
			Expect(errors.Is(err, internal.ErrItemNotFound)).To(BeTrue())
		})

		It("should return UserNotFound before touching the item", func() {
			item := createItem("Drill", 120)

			_, err := ledger.CheckOut(ctx, item.ID, "ghost", "")
			Expect(errors.Is(err, internal.ErrUserNotFound)).To(BeTrue())

			stored, _ := ledger.GetItem(ctx, item.ID)
			Expect(stored.Status).To(Equal(inventory.StatusAvailable))
		})

		It("should reject empty ids", func() {
			_, err := ledger.CheckOut(ctx, "", "", "")
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("should not check out an item in any other status", func() {
			item := createItem("Ladder", 80)
			maintenance := string(inventory.StatusUnderMaintenance)
			_, err := ledger.UpdateItem(ctx, item.ID, inventory.UpdateItemDTO{Status: &maintenance})
			Expect(err).NotTo(HaveOccurred())

			_, err = ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(errors.Is(err, internal.ErrItemNotAvailable)).To(BeTrue())
		})

		It("should let exactly one of many concurrent checkouts win", func() {
			item := createItem("Generator", 890)

			const callers = 16
			var (
				wg        sync.WaitGroup
				mu        sync.Mutex
				succeeded int
				rejected  int
			)
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer GinkgoRecover()
					defer wg.Done()
					userID := "user1"
					if i%2 == 1 {
						userID = "user2"
					}
					_, err := ledger.CheckOut(ctx, item.ID, userID, "")
					mu.Lock()
					defer mu.Unlock()
					if err == nil {
						succeeded++
					} else if errors.Is(err, internal.ErrItemNotAvailable) {
						rejected++
					}
				}(i)
			}
			wg.Wait()

			Expect(succeeded).To(Equal(1))
			Expect(rejected).To(Equal(callers - 1))

			history, err := ledger.CheckoutHistory(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})
	})

	Describe("CheckIn", func() {
		It("should round trip back to Available with one closed record", func() {
			item := createItem("Drill", 120)
			_, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(3 * 24 * time.Hour)
			closed, err := ledger.CheckIn(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.CheckedInAt).NotTo(BeNil())
			Expect(*closed.CheckedInAt).To(Equal(start.Add(3 * 24 * time.Hour)))

			stored, _ := ledger.GetItem(ctx, item.ID)
			Expect(stored.Status).To(Equal(inventory.StatusAvailable))

			history, _ := ledger.CheckoutHistory(ctx, item.ID)
			Expect(history).To(HaveLen(1))
			Expect(history[0].CheckedInAt).NotTo(BeNil())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeItemCheckedIn))
		})

		It("should fail with NoActiveCheckout when the record is missing and leave the status alone", func() {
			corrupted := &inventory.Item{
				ID:        "corrupted",
				Name:      "Tripod",
				Condition: inventory.ConditionFair,
				Status:    inventory.StatusCheckedOut,
				CreatedAt: start,
				UpdatedAt: start,
			}
			Expect(store.CreateItem(ctx, corrupted)).To(Succeed())

			_, err := ledger.CheckIn(ctx, corrupted.ID)
			Expect(errors.Is(err, internal.ErrNoActiveCheckout)).To(BeTrue())

			stored, _ := ledger.GetItem(ctx, corrupted.ID)
			Expect(stored.Status).To(Equal(inventory.StatusCheckedOut))
		})

		It("should close every open record when corrupted data left more than one", func() {
			stray := &strayStore{Store: store}
			ledger = inventory.NewLedger(stray, users, quietLogger(), inventory.WithClock(clock.Now))

			item := createItem("Ladder", 80)
			record, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())
			stray.stray = &inventory.CheckoutRecord{
				ID:           "stray-1",
				ItemID:       item.ID,
				UserID:       "user2",
				CheckedOutAt: start.Add(-72 * time.Hour),
			}

			closed, err := ledger.CheckIn(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(closed.ID).To(Equal(record.ID))
			Expect(stray.closed).To(ConsistOf("stray-1"))
			Expect(activeRecords(item.ID)).To(BeZero())

			stored, _ := ledger.GetItem(ctx, item.ID)
			Expect(stored.Status).To(Equal(inventory.StatusAvailable))
		})

		It("should close stray open records when an edit moves the item off Checked Out", func() {
			stray := &strayStore{Store: store}
			ledger = inventory.NewLedger(stray, users, quietLogger(), inventory.WithClock(clock.Now))

			item := createItem("Saw", 60)
			_, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())
			stray.stray = &inventory.CheckoutRecord{ID: "stray-2", ItemID: item.ID, CheckedOutAt: start.Add(-time.Hour)}

			Expect(ledger.SoftDelete(ctx, item.ID)).To(Succeed())
			Expect(stray.closed).To(ConsistOf("stray-2"))
			Expect(activeRecords(item.ID)).To(BeZero())
		})

		It("should fail with NoActiveCheckout for an Available item", func() {
			item := createItem("Drill", 120)
			_, err := ledger.CheckIn(ctx, item.ID)
			Expect(errors.Is(err, internal.ErrNoActiveCheckout)).To(BeTrue())
		})

		It("should return ItemNotFound for an unknown item", func() {
			_, err := ledger.CheckIn(ctx, "missing")
			Expect(errors.Is(err, internal.ErrItemNotFound)).To(BeTrue())
		})
	})

	Describe("status edits", func() {
		var item *inventory.Item

		BeforeEach(func() {
			item = createItem("Laptop", 1200)
			_, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should close the active record when an edit moves the item off Checked Out", func() {
			lost := string(inventory.StatusLost)
			updated, err := ledger.UpdateItem(ctx, item.ID, inventory.UpdateItemDTO{Status: &lost})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(inventory.StatusLost))
			Expect(activeRecords(item.ID)).To(Equal(0))
			Expect(publisher.Types()).To(ContainElement(events.EventTypeItemStatusChanged))
		})

		It("should keep the record open when only descriptive fields change", func() {
			name := "Laptop 14in"
			updated, err := ledger.UpdateItem(ctx, item.ID, inventory.UpdateItemDTO{Name: &name})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Status).To(Equal(inventory.StatusCheckedOut))
			Expect(activeRecords(item.ID)).To(Equal(1))
		})

		It("should refuse to set Checked Out through an edit", func() {
			other := createItem("Monitor", 300)
			checkedOut := string(inventory.StatusCheckedOut)
			_, err := ledger.UpdateItem(ctx, other.ID, inventory.UpdateItemDTO{Status: &checkedOut})
			Expect(errors.Is(err, internal.ErrStatusRequiresCheckout)).To(BeTrue())

			stored, _ := ledger.GetItem(ctx, other.ID)
			Expect(stored.Status).To(Equal(inventory.StatusAvailable))
		})

		It("should soft delete and restore while closing the active record", func() {
			Expect(ledger.SoftDelete(ctx, item.ID)).To(Succeed())
			Expect(activeRecords(item.ID)).To(Equal(0))

			visible, err := ledger.ListItems(ctx, inventory.ItemFilter{ExcludeDeleted: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(BeEmpty())

			deleted, err := ledger.ListDeletedItems(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(deleted).To(HaveLen(1))

			Expect(ledger.Restore(ctx, item.ID)).To(Succeed())
			stored, _ := ledger.GetItem(ctx, item.ID)
			Expect(stored.Status).To(Equal(inventory.StatusAvailable))

			_, err = ledger.CheckOut(ctx, item.ID, "user2", "")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should keep the invariant after every edit", func() {
			damaged := string(inventory.StatusDamaged)
			_, err := ledger.UpdateItem(ctx, item.ID, inventory.UpdateItemDTO{Status: &damaged})
			Expect(err).NotTo(HaveOccurred())
			Expect(ledger.Restore(ctx, item.ID)).To(Succeed())

			issues, err := ledger.AuditConsistency(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(BeEmpty())
		})
	})

	Describe("HardDeleteItem", func() {
		It("should remove the item and its checkout history", func() {
			item := createItem("Saw", 60)
			_, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(ledger.HardDeleteItem(ctx, item.ID)).To(Succeed())

			_, err = ledger.GetItem(ctx, item.ID)
			Expect(errors.Is(err, internal.ErrItemNotFound)).To(BeTrue())

			history, err := store.ListCheckoutsByItem(ctx, item.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
			Expect(publisher.Types()).To(ContainElement(events.EventTypeItemDeleted))
		})

		It("should return ItemNotFound for an unknown item", func() {
			err := ledger.HardDeleteItem(ctx, "missing")
			Expect(errors.Is(err, internal.ErrItemNotFound)).To(BeTrue())
		})
	})

	Describe("ActiveCheckouts", func() {
		It("should join item and borrower, oldest first", func() {
			first := createItem("Drill", 120)
			second := createItem("Ladder", 80)

			_, err := ledger.CheckOut(ctx, second.ID, "user2", "")
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(time.Hour)
			_, err = ledger.CheckOut(ctx, first.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(2*24*time.Hour + time.Hour)
			details, err := ledger.ActiveCheckouts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(details).To(HaveLen(2))
			Expect(details[0].Item.ID).To(Equal(second.ID))
			Expect(details[0].User.ID).To(Equal("user2"))
			Expect(details[0].DaysOut).To(Equal(2))
			Expect(details[1].Item.ID).To(Equal(first.ID))
		})

		It("should leave the borrower empty when the user no longer exists", func() {
			item := createItem("Drill", 120)
			_, err := ledger.CheckOut(ctx, item.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			users.remove("user1")
			details, err := ledger.ActiveCheckouts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(details).To(HaveLen(1))
			Expect(details[0].User).To(BeNil())
		})
	})

	Describe("ItemsOutLongerThan", func() {
		It("should include exactly thirty days and exclude twenty-nine", func() {
			thirty := createItem("Drill", 120)
			twentyNine := createItem("Ladder", 80)

			_, err := ledger.CheckOut(ctx, thirty.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())
			clock.Advance(24 * time.Hour)
			_, err = ledger.CheckOut(ctx, twentyNine.ID, "user2", "")
			Expect(err).NotTo(HaveOccurred())

			clock.Advance(29 * 24 * time.Hour)
			overdue, err := ledger.ItemsOutLongerThan(ctx, 30)
			Expect(err).NotTo(HaveOccurred())
			Expect(overdue).To(HaveLen(1))
			Expect(overdue[0].Item.ID).To(Equal(thirty.ID))
			Expect(overdue[0].DaysOut).To(Equal(30))
		})

		It("should reject negative days", func() {
			_, err := ledger.ItemsOutLongerThan(ctx, -1)
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeInvalidDays))
		})
	})

	Describe("statistics", func() {
		It("should total values and count losses", func() {
			values := []float64{450, 350, 280, 890, 520}
			items := make([]*inventory.Item, len(values))
			for i, v := range values {
				items[i] = createItem("Item", v)
			}

			damaged := string(inventory.StatusDamaged)
			for _, idx := range []int{2, 4} {
				_, err := ledger.UpdateItem(ctx, items[idx].ID, inventory.UpdateItemDTO{Status: &damaged})
				Expect(err).NotTo(HaveOccurred())
			}
			_, err := ledger.CheckOut(ctx, items[0].ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			lossValue, err := ledger.StolenLostDamagedValue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(lossValue).To(Equal(800.0))

			total, err := ledger.TotalValue(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(2490.0))

			lossCount, err := ledger.StolenLostDamagedCount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(lossCount).To(Equal(2))

			checkedOut, err := ledger.CheckedOutCount(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(checkedOut).To(Equal(1))
		})

		It("should leave soft deleted items out of the total value", func() {
			keep := createItem("Keep", 100)
			drop := createItem("Drop", 50)
			Expect(ledger.SoftDelete(ctx, drop.ID)).To(Succeed())

			summary, err := ledger.Summary(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(summary.TotalValue).To(Equal(keep.Value))
		})
	})

	Describe("AuditConsistency", func() {
		It("should report items whose status disagrees with their records", func() {
			Expect(store.CreateItem(ctx, &inventory.Item{
				ID:        "orphan-status",
				Name:      "Tripod",
				Condition: inventory.ConditionFair,
				Status:    inventory.StatusCheckedOut,
				CreatedAt: start,
				UpdatedAt: start,
			})).To(Succeed())
			healthy := createItem("Drill", 120)
			_, err := ledger.CheckOut(ctx, healthy.ID, "user1", "")
			Expect(err).NotTo(HaveOccurred())

			issues, err := ledger.AuditConsistency(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(issues).To(HaveLen(1))
			Expect(issues[0].ItemID).To(Equal("orphan-status"))
			Expect(issues[0].ActiveCheckouts).To(Equal(0))
		})
	})

	Describe("persistence failures", func() {
		It("should surface backend errors without retrying", func() {
			backendErr := internal.NewPersistenceError("connection reset", errors.New("eof"))
			failing := inventory.NewLedger(&failingStore{Store: store, err: backendErr}, users, quietLogger())

			_, err := failing.CheckIn(ctx, "any")
			Expect(internal.IsPersistenceFailure(err)).To(BeTrue())

			_, err = failing.Summary(ctx)
			Expect(internal.IsPersistenceFailure(err)).To(BeTrue())

			appErr, _ := internal.IsAppError(err)
			Expect(appErr.StatusCode).To(Equal(500))
		})
	})
})
