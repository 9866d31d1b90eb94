package inventory

import "time"

type Item struct {
	ID                   string    `gorm:"primaryKey;type:varchar(64)"`
	Name                 string    `gorm:"column:name;not null"`
	SerialNumber         string    `gorm:"column:serial_number"`
	Description          string    `gorm:"column:description"`
	Condition            string    `gorm:"column:condition;not null"`
	Status               string    `gorm:"column:status;not null;index"`
	Value                float64   `gorm:"column:value;not null;default:0"`
	PermanentCheckout    bool      `gorm:"column:permanent_checkout;not null;default:false"`
	PermissionNeeded     bool      `gorm:"column:permission_needed;not null;default:false"`
	DriversLicenseNeeded bool      `gorm:"column:drivers_license_needed;not null;default:false"`
	CreatedAt            time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt            time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
}

func (Item) TableName() string {
	return "inventory_items"
}

// CheckoutRecord rows with a NULL checked_in_at are active; the partial unique
// index allows at most one per item.
type CheckoutRecord struct {
	ID           string     `gorm:"primaryKey;type:varchar(64)"`
	ItemID       string     `gorm:"column:item_id;not null;uniqueIndex:idx_checkout_records_active_item,where:checked_in_at IS NULL"`
	UserID       string     `gorm:"column:user_id;not null"`
	CheckedOutAt time.Time  `gorm:"column:checked_out_at;not null"`
	CheckedInAt  *time.Time `gorm:"column:checked_in_at"`
	Notes        string     `gorm:"column:notes"`
}

func (CheckoutRecord) TableName() string {
	return "checkout_records"
}
