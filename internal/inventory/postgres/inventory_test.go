package postgres_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal"
	inventoryDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	inventoryPostgres "github.com/frahmantamala/equipment-tracker/internal/inventory/postgres"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func TestInventoryPostgres(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Inventory Postgres Suite")
}

type staticUsers map[string]*user.User

func (s staticUsers) GetByID(ctx context.Context, id string) (*user.User, error) {
	if u, ok := s[id]; ok {
		return u, nil
	}
	return nil, internal.ErrUserNotFound
}

var _ = Describe("Inventory PostgreSQL Repository", func() {
	var (
		ctx  context.Context
		db   *gorm.DB
		repo *inventoryPostgres.InventoryRepository
		now  time.Time
	)

	newItem := func(id string, status inventory.Status, value float64) *inventory.Item {
		return &inventory.Item{
			ID:        id,
			Name:      "Item " + id,
			Condition: inventory.ConditionGood,
			Status:    status,
			Value:     value,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		now = time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)

		var err error
		// Use SQLite in-memory database for testing
		db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
			Logger:         logger.Default.LogMode(logger.Silent),
			TranslateError: true,
		})
		Expect(err).NotTo(HaveOccurred())

		// every connection would get its own in-memory database
		sqlDB, err := db.DB()
		Expect(err).NotTo(HaveOccurred())
		sqlDB.SetMaxOpenConns(1)

		Expect(db.AutoMigrate(&inventoryDatamodel.Item{}, &inventoryDatamodel.CheckoutRecord{})).To(Succeed())

		repo = inventoryPostgres.NewInventoryRepository(db)
	})

	Describe("items", func() {
		It("should create and read back an item", func() {
			Expect(repo.CreateItem(ctx, newItem("item-1", inventory.StatusAvailable, 450))).To(Succeed())

			item, err := repo.GetItem(ctx, "item-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(item.Name).To(Equal("Item item-1"))
			Expect(item.Value).To(Equal(450.0))
			Expect(item.CreatedAt).To(BeTemporally("~", now, time.Second))
		})

		It("should map a missing row to ItemNotFound", func() {
			_, err := repo.GetItem(ctx, "missing")
			Expect(errors.Is(err, internal.ErrItemNotFound)).To(BeTrue())
		})

		It("should report a duplicate id as a conflict", func() {
			Expect(repo.CreateItem(ctx, newItem("item-1", inventory.StatusAvailable, 1))).To(Succeed())
			err := repo.CreateItem(ctx, newItem("item-1", inventory.StatusAvailable, 1))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeDuplicateItem))
		})

		It("should filter by status and hide deleted items", func() {
			Expect(repo.CreateItem(ctx, newItem("a", inventory.StatusAvailable, 1))).To(Succeed())
			Expect(repo.CreateItem(ctx, newItem("b", inventory.StatusDeleted, 1))).To(Succeed())
			Expect(repo.CreateItem(ctx, newItem("c", inventory.StatusDamaged, 1))).To(Succeed())

			visible, err := repo.ListItems(ctx, inventory.ItemFilter{ExcludeDeleted: true})
			Expect(err).NotTo(HaveOccurred())
			Expect(visible).To(HaveLen(2))

			damaged, err := repo.ListItems(ctx, inventory.ItemFilter{Status: inventory.StatusDamaged})
			Expect(err).NotTo(HaveOccurred())
			Expect(damaged).To(HaveLen(1))
			Expect(damaged[0].ID).To(Equal("c"))
		})
	})

	Describe("WithinTx", func() {
		BeforeEach(func() {
			Expect(repo.CreateItem(ctx, newItem("item-1", inventory.StatusAvailable, 100))).To(Succeed())
		})

		It("should only swap a row that still has the expected status", func() {
			err := repo.WithinTx(ctx, func(tx inventory.Tx) error {
				swapped, err := tx.SwapItemStatus(ctx, "item-1", inventory.StatusAvailable, inventory.StatusCheckedOut, now)
				Expect(err).NotTo(HaveOccurred())
				Expect(swapped).To(BeTrue())

				swapped, err = tx.SwapItemStatus(ctx, "item-1", inventory.StatusAvailable, inventory.StatusCheckedOut, now)
				Expect(err).NotTo(HaveOccurred())
				Expect(swapped).To(BeFalse())
				return nil
			})
			Expect(err).NotTo(HaveOccurred())

			item, _ := repo.GetItem(ctx, "item-1")
			Expect(item.Status).To(Equal(inventory.StatusCheckedOut))
		})

		It("should roll back on error", func() {
			err := repo.WithinTx(ctx, func(tx inventory.Tx) error {
				if _, err := tx.SwapItemStatus(ctx, "item-1", inventory.StatusAvailable, inventory.StatusCheckedOut, now); err != nil {
					return err
				}
				if err := tx.CreateCheckout(ctx, &inventory.CheckoutRecord{ID: "co-1", ItemID: "item-1", UserID: "u", CheckedOutAt: now}); err != nil {
					return err
				}
				return internal.ErrItemNotAvailable
			})
			Expect(errors.Is(err, internal.ErrItemNotAvailable)).To(BeTrue())

			item, _ := repo.GetItem(ctx, "item-1")
			Expect(item.Status).To(Equal(inventory.StatusAvailable))

			active, err := repo.ListActiveCheckouts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(active).To(BeEmpty())
		})

		It("should enforce a single open record per item", func() {
			err := repo.WithinTx(ctx, func(tx inventory.Tx) error {
				Expect(tx.CreateCheckout(ctx, &inventory.CheckoutRecord{ID: "co-1", ItemID: "item-1", UserID: "u", CheckedOutAt: now})).To(Succeed())
				return tx.CreateCheckout(ctx, &inventory.CheckoutRecord{ID: "co-2", ItemID: "item-1", UserID: "u", CheckedOutAt: now})
			})
			Expect(errors.Is(err, internal.ErrItemNotAvailable)).To(BeTrue())
		})

		It("should close a record once", func() {
			err := repo.WithinTx(ctx, func(tx inventory.Tx) error {
				Expect(tx.CreateCheckout(ctx, &inventory.CheckoutRecord{ID: "co-1", ItemID: "item-1", UserID: "u", CheckedOutAt: now})).To(Succeed())

				open, err := tx.FindActiveCheckouts(ctx, "item-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(open).To(HaveLen(1))
				Expect(open[0].ID).To(Equal("co-1"))

				Expect(tx.CloseCheckout(ctx, "co-1", now.Add(time.Hour))).To(Succeed())
				Expect(tx.CloseCheckout(ctx, "co-1", now.Add(time.Hour))).To(MatchError(internal.ErrNoActiveCheckout))

				open, err = tx.FindActiveCheckouts(ctx, "item-1")
				Expect(err).NotTo(HaveOccurred())
				Expect(open).To(BeEmpty())
				return nil
			})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should save every column of an item", func() {
			err := repo.WithinTx(ctx, func(tx inventory.Tx) error {
				item, err := tx.GetItem(ctx, "item-1")
				if err != nil {
					return err
				}
				item.Name = "Renamed"
				item.Status = inventory.StatusRetired
				item.PermissionNeeded = true
				return tx.SaveItem(ctx, item)
			})
			Expect(err).NotTo(HaveOccurred())

			item, _ := repo.GetItem(ctx, "item-1")
			Expect(item.Name).To(Equal("Renamed"))
			Expect(item.Status).To(Equal(inventory.StatusRetired))
			Expect(item.PermissionNeeded).To(BeTrue())
		})
	})

	Describe("through the ledger", func() {
		var ledger *inventory.Ledger

		BeforeEach(func() {
			users := staticUsers{"user1": {ID: "user1", Name: "Dana"}}
			ledger = inventory.NewLedger(repo, users,
				slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})),
				inventory.WithClock(func() time.Time { return now }))
			Expect(repo.CreateItem(ctx, newItem("item-1", inventory.StatusAvailable, 100))).To(Succeed())
		})

		It("should round trip a checkout", func() {
			_, err := ledger.CheckOut(ctx, "item-1", "user1", "")
			Expect(err).NotTo(HaveOccurred())

			_, err = ledger.CheckOut(ctx, "item-1", "user1", "")
			Expect(errors.Is(err, internal.ErrItemNotAvailable)).To(BeTrue())

			details, err := ledger.ActiveCheckouts(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(details).To(HaveLen(1))
			Expect(details[0].User.Name).To(Equal("Dana"))

			_, err = ledger.CheckIn(ctx, "item-1")
			Expect(err).NotTo(HaveOccurred())

			history, err := ledger.CheckoutHistory(ctx, "item-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].CheckedInAt).NotTo(BeNil())
		})

		It("should delete an item together with its history", func() {
			_, err := ledger.CheckOut(ctx, "item-1", "user1", "")
			Expect(err).NotTo(HaveOccurred())

			Expect(ledger.HardDeleteItem(ctx, "item-1")).To(Succeed())

			var count int64
			Expect(db.Model(&inventoryDatamodel.CheckoutRecord{}).Count(&count).Error).To(Succeed())
			Expect(count).To(BeZero())
		})
	})
})
