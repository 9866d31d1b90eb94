package firestore

import (
	"time"

	firestoresdk "cloud.google.com/go/firestore"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
)

// itemDoc is the stored shape of an item; the document id is the item id.
type itemDoc struct {
	Name                 string    `firestore:"name"`
	SerialNumber         string    `firestore:"serialNumber"`
	Description          string    `firestore:"description"`
	Condition            string    `firestore:"condition"`
	Status               string    `firestore:"status"`
	Value                float64   `firestore:"value"`
	PermanentCheckout    bool      `firestore:"permanentCheckout"`
	PermissionNeeded     bool      `firestore:"permissionNeeded"`
	DriversLicenseNeeded bool      `firestore:"driversLicenseNeeded"`
	CreatedAt            time.Time `firestore:"createdAt"`
	UpdatedAt            time.Time `firestore:"updatedAt"`
}

// checkoutDoc stores checkedInAt as null while the checkout is open so the
// active-record query can match on it.
type checkoutDoc struct {
	ItemID       string     `firestore:"itemId"`
	UserID       string     `firestore:"userId"`
	CheckedOutAt time.Time  `firestore:"checkedOutAt"`
	CheckedInAt  *time.Time `firestore:"checkedInAt"`
	Notes        string     `firestore:"notes"`
}

func toItemDoc(item *inventory.Item) itemDoc {
	return itemDoc{
		Name:                 item.Name,
		SerialNumber:         item.SerialNumber,
		Description:          item.Description,
		Condition:            string(item.Condition),
		Status:               string(item.Status),
		Value:                item.Value,
		PermanentCheckout:    item.PermanentCheckout,
		PermissionNeeded:     item.PermissionNeeded,
		DriversLicenseNeeded: item.DriversLicenseNeeded,
		CreatedAt:            item.CreatedAt.UTC(),
		UpdatedAt:            item.UpdatedAt.UTC(),
	}
}

func fromItemDoc(id string, doc itemDoc) *inventory.Item {
	return &inventory.Item{
		ID:                   id,
		Name:                 doc.Name,
		SerialNumber:         doc.SerialNumber,
		Description:          doc.Description,
		Condition:            inventory.Condition(doc.Condition),
		Status:               inventory.Status(doc.Status),
		Value:                doc.Value,
		PermanentCheckout:    doc.PermanentCheckout,
		PermissionNeeded:     doc.PermissionNeeded,
		DriversLicenseNeeded: doc.DriversLicenseNeeded,
		CreatedAt:            doc.CreatedAt.UTC(),
		UpdatedAt:            doc.UpdatedAt.UTC(),
	}
}

func toCheckoutDoc(record *inventory.CheckoutRecord) checkoutDoc {
	doc := checkoutDoc{
		ItemID:       record.ItemID,
		UserID:       record.UserID,
		CheckedOutAt: record.CheckedOutAt.UTC(),
		Notes:        record.Notes,
	}
	if record.CheckedInAt != nil {
		in := record.CheckedInAt.UTC()
		doc.CheckedInAt = &in
	}
	return doc
}

func fromCheckoutDoc(id string, doc checkoutDoc) *inventory.CheckoutRecord {
	record := &inventory.CheckoutRecord{
		ID:           id,
		ItemID:       doc.ItemID,
		UserID:       doc.UserID,
		CheckedOutAt: doc.CheckedOutAt.UTC(),
		Notes:        doc.Notes,
	}
	if doc.CheckedInAt != nil {
		in := doc.CheckedInAt.UTC()
		record.CheckedInAt = &in
	}
	return record
}

func itemFromSnapshot(snap *firestoresdk.DocumentSnapshot) (*inventory.Item, error) {
	var doc itemDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, internal.NewPersistenceError("failed to decode item document", err)
	}
	return fromItemDoc(snap.Ref.ID, doc), nil
}

func checkoutFromSnapshot(snap *firestoresdk.DocumentSnapshot) (*inventory.CheckoutRecord, error) {
	var doc checkoutDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, internal.NewPersistenceError("failed to decode checkout document", err)
	}
	return fromCheckoutDoc(snap.Ref.ID, doc), nil
}
