package inventory

import (
	"time"

	inventoryDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/inventory"
	"github.com/frahmantamala/equipment-tracker/internal/user"
)

type Status string

const (
	StatusAvailable        Status = "Available"
	StatusCheckedOut       Status = "Checked Out"
	StatusUnderMaintenance Status = "Under Maintenance"
	StatusRetired          Status = "Retired"
	StatusDamaged          Status = "Damaged"
	StatusLost             Status = "Lost"
	StatusStolen           Status = "Stolen"
	StatusDeleted          Status = "Deleted"
)

var Statuses = []string{
	string(StatusAvailable),
	string(StatusCheckedOut),
	string(StatusUnderMaintenance),
	string(StatusRetired),
	string(StatusDamaged),
	string(StatusLost),
	string(StatusStolen),
	string(StatusDeleted),
}

// IsLoss reports whether the item counts toward the stolen/lost/damaged totals.
func (s Status) IsLoss() bool {
	return s == StatusStolen || s == StatusLost || s == StatusDamaged
}

type Condition string

const (
	ConditionExcellent Condition = "Excellent"
	ConditionGood      Condition = "Good"
	ConditionFair      Condition = "Fair"
	ConditionPoor      Condition = "Poor"
)

var Conditions = []string{
	string(ConditionExcellent),
	string(ConditionGood),
	string(ConditionFair),
	string(ConditionPoor),
}

type Item struct {
	ID                   string    `json:"id"`
	Name                 string    `json:"name"`
	SerialNumber         string    `json:"serialNumber"`
	Description          string    `json:"description"`
	Condition            Condition `json:"condition"`
	Status               Status    `json:"status"`
	Value                float64   `json:"value"`
	PermanentCheckout    bool      `json:"permanentCheckout"`
	PermissionNeeded     bool      `json:"permissionNeeded"`
	DriversLicenseNeeded bool      `json:"driversLicenseNeeded"`
	CreatedAt            time.Time `json:"createdAt"`
	UpdatedAt            time.Time `json:"updatedAt"`
}

func (i *Item) IsAvailable() bool {
	return i.Status == StatusAvailable
}

func (i *Item) IsDeleted() bool {
	return i.Status == StatusDeleted
}

// CheckoutRecord is open while CheckedInAt is nil.
type CheckoutRecord struct {
	ID           string     `json:"id"`
	ItemID       string     `json:"itemId"`
	UserID       string     `json:"userId"`
	CheckedOutAt time.Time  `json:"checkedOutAt"`
	CheckedInAt  *time.Time `json:"checkedInAt"`
	Notes        string     `json:"notes"`
}

func (c *CheckoutRecord) IsActive() bool {
	return c.CheckedInAt == nil
}

// DaysOut is the number of whole days between checkout and now.
func (c *CheckoutRecord) DaysOut(now time.Time) int {
	elapsed := now.Sub(c.CheckedOutAt)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed / (24 * time.Hour))
}

type CheckedOutItemDetail struct {
	Item           *Item           `json:"item"`
	User           *user.User      `json:"user"`
	CheckoutRecord *CheckoutRecord `json:"checkoutRecord"`
	DaysOut        int             `json:"daysOut"`
}

type StatsSummary struct {
	TotalValue             float64 `json:"totalValue"`
	StolenLostDamagedValue float64 `json:"stolenLostDamagedValue"`
	StolenLostDamagedCount int     `json:"stolenLostDamagedCount"`
	CheckedOutCount        int     `json:"checkedOutCount"`
}

// Inconsistency describes an item whose status disagrees with its open
// checkout records.
type Inconsistency struct {
	ItemID          string `json:"itemId"`
	Status          Status `json:"status"`
	ActiveCheckouts int    `json:"activeCheckouts"`
}

type ItemFilter struct {
	Status         Status
	ExcludeDeleted bool
}

func (f ItemFilter) Matches(item *Item) bool {
	if f.ExcludeDeleted && item.IsDeleted() {
		return false
	}
	if f.Status != "" && item.Status != f.Status {
		return false
	}
	return true
}

func ToDataModel(i *Item) *inventoryDatamodel.Item {
	return &inventoryDatamodel.Item{
		ID:                   i.ID,
		Name:                 i.Name,
		SerialNumber:         i.SerialNumber,
		Description:          i.Description,
		Condition:            string(i.Condition),
		Status:               string(i.Status),
		Value:                i.Value,
		PermanentCheckout:    i.PermanentCheckout,
		PermissionNeeded:     i.PermissionNeeded,
		DriversLicenseNeeded: i.DriversLicenseNeeded,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

func FromDataModel(i *inventoryDatamodel.Item) *Item {
	return &Item{
		ID:                   i.ID,
		Name:                 i.Name,
		SerialNumber:         i.SerialNumber,
		Description:          i.Description,
		Condition:            Condition(i.Condition),
		Status:               Status(i.Status),
		Value:                i.Value,
		PermanentCheckout:    i.PermanentCheckout,
		PermissionNeeded:     i.PermissionNeeded,
		DriversLicenseNeeded: i.DriversLicenseNeeded,
		CreatedAt:            i.CreatedAt,
		UpdatedAt:            i.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*inventoryDatamodel.Item) []*Item {
	items := make([]*Item, len(rows))
	for i, row := range rows {
		items[i] = FromDataModel(row)
	}
	return items
}

func CheckoutToDataModel(c *CheckoutRecord) *inventoryDatamodel.CheckoutRecord {
	return &inventoryDatamodel.CheckoutRecord{
		ID:           c.ID,
		ItemID:       c.ItemID,
		UserID:       c.UserID,
		CheckedOutAt: c.CheckedOutAt,
		CheckedInAt:  c.CheckedInAt,
		Notes:        c.Notes,
	}
}

func CheckoutFromDataModel(c *inventoryDatamodel.CheckoutRecord) *CheckoutRecord {
	return &CheckoutRecord{
		ID:           c.ID,
		ItemID:       c.ItemID,
		UserID:       c.UserID,
		CheckedOutAt: c.CheckedOutAt,
		CheckedInAt:  c.CheckedInAt,
		Notes:        c.Notes,
	}
}

func CheckoutsFromDataModel(rows []*inventoryDatamodel.CheckoutRecord) []*CheckoutRecord {
	records := make([]*CheckoutRecord, len(rows))
	for i, row := range rows {
		records[i] = CheckoutFromDataModel(row)
	}
	return records
}
