package inventory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/inventory/memory"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	"github.com/go-chi/chi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

type errorBody struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func newRequest(method, target string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

var _ = Describe("Inventory Handler", func() {
	var (
		ledger *inventory.Ledger
		router chi.Router
		clock  *fakeClock
	)

	serve := func(req *http.Request) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	seed := func(name string, value float64) *inventory.Item {
		item, err := ledger.CreateItem(context.Background(), inventory.CreateItemDTO{
			Name:      name,
			Condition: string(inventory.ConditionExcellent),
			Value:     value,
		})
		Expect(err).NotTo(HaveOccurred())
		return item
	}

	BeforeEach(func() {
		clock = newFakeClock(time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC))
		ledger = inventory.NewLedger(memory.NewStore(), newMockUserDirectory("user1", "user2"), quietLogger(),
			inventory.WithClock(clock.Now))
		h := inventory.NewHandler(ledger)

		router = chi.NewRouter()
		router.Get("/api/items", h.GetItems)
		router.Post("/api/items", h.CreateItem)
		router.Get("/api/items/stats/summary", h.GetStatsSummary)
		router.Get("/api/items/{id}", h.GetItem)
		router.Put("/api/items/{id}", h.UpdateItem)
		router.Delete("/api/items/{id}", h.DeleteItem)
		router.Post("/api/items/{id}/soft-delete", h.SoftDeleteItem)
		router.Post("/api/items/{id}/restore", h.RestoreItem)
		router.Get("/api/items/{id}/checkouts", h.GetItemCheckouts)
		router.Get("/api/deleted-items", h.GetDeletedItems)
		router.Get("/api/checkouts/checked-out-items", h.GetCheckedOutItems)
		router.Get("/api/checkouts/overdue/{days}", h.GetOverdueItems)
		router.Post("/api/checkouts/checkout", h.CheckOut)
		router.Post("/api/checkouts/checkin/{itemId}", h.CheckIn)
	})

	Describe("items", func() {
		It("should create an item and return 201", func() {
			rec := serve(newRequest(http.MethodPost, "/api/items", map[string]interface{}{
				"name":      "Projector",
				"condition": "Good",
				"value":     450,
			}))
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var item inventory.Item
			Expect(json.Unmarshal(rec.Body.Bytes(), &item)).To(Succeed())
			Expect(item.Status).To(Equal(inventory.StatusAvailable))
		})

		It("should reject an invalid body with 400", func() {
			req := httptest.NewRequest(http.MethodPost, "/api/items", bytes.NewBufferString("{"))
			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should return 404 for a missing item", func() {
			rec := serve(newRequest(http.MethodGet, "/api/items/missing", nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))

			var body errorBody
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Code).To(Equal("ITEM_NOT_FOUND"))
		})

		It("should hide soft deleted items from the main listing", func() {
			keep := seed("Drill", 120)
			drop := seed("Ladder", 80)

			rec := serve(newRequest(http.MethodPost, "/api/items/"+drop.ID+"/soft-delete", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = serve(newRequest(http.MethodGet, "/api/items", nil))
			var items []inventory.Item
			Expect(json.Unmarshal(rec.Body.Bytes(), &items)).To(Succeed())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal(keep.ID))

			rec = serve(newRequest(http.MethodGet, "/api/deleted-items", nil))
			Expect(json.Unmarshal(rec.Body.Bytes(), &items)).To(Succeed())
			Expect(items).To(HaveLen(1))
			Expect(items[0].ID).To(Equal(drop.ID))

			rec = serve(newRequest(http.MethodPost, "/api/items/"+drop.ID+"/restore", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
		})

		It("should hard delete with a message", func() {
			item := seed("Drill", 120)
			rec := serve(newRequest(http.MethodDelete, "/api/items/"+item.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var msg inventory.MessageResponse
			Expect(json.Unmarshal(rec.Body.Bytes(), &msg)).To(Succeed())
			Expect(msg.Message).NotTo(BeEmpty())

			rec = serve(newRequest(http.MethodGet, "/api/items/"+item.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should reject setting Checked Out through PUT", func() {
			item := seed("Drill", 120)
			rec := serve(newRequest(http.MethodPut, "/api/items/"+item.ID, map[string]interface{}{
				"status": "Checked Out",
			}))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var body errorBody
			Expect(json.Unmarshal(rec.Body.Bytes(), &body)).To(Succeed())
			Expect(body.Error.Code).To(Equal("STATUS_REQUIRES_CHECKOUT"))
		})

		It("should summarise inventory value", func() {
			seed("A", 450)
			seed("B", 350)

			rec := serve(newRequest(http.MethodGet, "/api/items/stats/summary", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			var summary inventory.StatsSummary
			Expect(json.Unmarshal(rec.Body.Bytes(), &summary)).To(Succeed())
			Expect(summary.TotalValue).To(Equal(800.0))
			Expect(summary.CheckedOutCount).To(Equal(0))
		})
	})

	Describe("checkouts", func() {
		It("should check out, list and check in an item", func() {
			item := seed("Drill", 120)

			rec := serve(newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{
				"itemId": item.ID,
				"userId": "user1",
				"notes":  "site visit",
			}))
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var record inventory.CheckoutRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &record)).To(Succeed())
			Expect(record.ItemID).To(Equal(item.ID))
			Expect(record.CheckedInAt).To(BeNil())

			rec = serve(newRequest(http.MethodGet, "/api/checkouts/checked-out-items", nil))
			var details []inventory.CheckedOutItemDetail
			Expect(json.Unmarshal(rec.Body.Bytes(), &details)).To(Succeed())
			Expect(details).To(HaveLen(1))
			Expect(details[0].User.ID).To(Equal("user1"))

			rec = serve(newRequest(http.MethodPost, "/api/checkouts/checkin/"+item.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusOK))

			rec = serve(newRequest(http.MethodGet, "/api/items/"+item.ID+"/checkouts", nil))
			var history []inventory.CheckoutRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &history)).To(Succeed())
			Expect(history).To(HaveLen(1))
			Expect(history[0].CheckedInAt).NotTo(BeNil())
		})

		It("should answer 400 when the item is not available", func() {
			item := seed("Drill", 120)
			body := map[string]string{"itemId": item.ID, "userId": "user1"}
			Expect(serve(newRequest(http.MethodPost, "/api/checkouts/checkout", body)).Code).To(Equal(http.StatusCreated))

			rec := serve(newRequest(http.MethodPost, "/api/checkouts/checkout", body))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))

			var errBody errorBody
			Expect(json.Unmarshal(rec.Body.Bytes(), &errBody)).To(Succeed())
			Expect(errBody.Error.Code).To(Equal("ITEM_NOT_AVAILABLE"))
		})

		It("should answer 400 when there is nothing to check in", func() {
			item := seed("Drill", 120)
			rec := serve(newRequest(http.MethodPost, "/api/checkouts/checkin/"+item.ID, nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})

		It("should answer 404 for an unknown borrower", func() {
			item := seed("Drill", 120)
			rec := serve(newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{
				"itemId": item.ID,
				"userId": "ghost",
			}))
			Expect(rec.Code).To(Equal(http.StatusNotFound))
		})

		It("should lend to the caller when no userId is given", func() {
			item := seed("Drill", 120)
			req := newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{"itemId": item.ID})
			req = req.WithContext(user.NewContext(req.Context(), &user.User{ID: "user2", Role: user.RoleEmployee}))

			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var record inventory.CheckoutRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &record)).To(Succeed())
			Expect(record.UserID).To(Equal("user2"))
		})

		It("should refuse an employee lending to someone else", func() {
			item := seed("Drill", 120)
			req := newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{"itemId": item.ID, "userId": "user1"})
			req = req.WithContext(user.NewContext(req.Context(), &user.User{ID: "user2", Role: user.RoleEmployee}))

			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusForbidden))

			var errBody errorBody
			Expect(json.Unmarshal(rec.Body.Bytes(), &errBody)).To(Succeed())
			Expect(errBody.Error.Code).To(Equal("INSUFFICIENT_ROLE"))

			stored := serve(newRequest(http.MethodGet, "/api/items/"+item.ID, nil))
			var got inventory.Item
			Expect(json.Unmarshal(stored.Body.Bytes(), &got)).To(Succeed())
			Expect(got.Status).To(Equal(inventory.StatusAvailable))
		})

		It("should let a manager lend to another user", func() {
			item := seed("Drill", 120)
			req := newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{"itemId": item.ID, "userId": "user1"})
			req = req.WithContext(user.NewContext(req.Context(), &user.User{ID: "user2", Role: user.RoleManager}))

			rec := serve(req)
			Expect(rec.Code).To(Equal(http.StatusCreated))

			var record inventory.CheckoutRecord
			Expect(json.Unmarshal(rec.Body.Bytes(), &record)).To(Succeed())
			Expect(record.UserID).To(Equal("user1"))
		})

		It("should list overdue items by whole days", func() {
			item := seed("Drill", 120)
			Expect(serve(newRequest(http.MethodPost, "/api/checkouts/checkout", map[string]string{
				"itemId": item.ID,
				"userId": "user1",
			})).Code).To(Equal(http.StatusCreated))

			clock.Advance(7 * 24 * time.Hour)

			rec := serve(newRequest(http.MethodGet, "/api/checkouts/overdue/7", nil))
			Expect(rec.Code).To(Equal(http.StatusOK))
			var details []inventory.CheckedOutItemDetail
			Expect(json.Unmarshal(rec.Body.Bytes(), &details)).To(Succeed())
			Expect(details).To(HaveLen(1))
			Expect(details[0].DaysOut).To(Equal(7))

			rec = serve(newRequest(http.MethodGet, "/api/checkouts/overdue/8", nil))
			Expect(json.Unmarshal(rec.Body.Bytes(), &details)).To(Succeed())
			Expect(details).To(BeEmpty())

			rec = serve(newRequest(http.MethodGet, "/api/checkouts/overdue/soon", nil))
			Expect(rec.Code).To(Equal(http.StatusBadRequest))
		})
	})
})
