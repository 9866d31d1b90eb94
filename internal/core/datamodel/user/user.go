package user

import "time"

// User is the users table row. The db tags serve the sqlx repository, the gorm
// tags serve migrations in tests and the seeder.
type User struct {
	ID                string    `db:"id" gorm:"primaryKey;type:varchar(64)"`
	Name              string    `db:"name" gorm:"column:name;not null"`
	Email             string    `db:"email" gorm:"column:email;uniqueIndex;not null"`
	PasswordHash      string    `db:"password_hash" gorm:"column:password_hash;not null"`
	Role              string    `db:"role" gorm:"column:role;not null;default:'Employee'"`
	Phone             *string   `db:"phone" gorm:"column:phone"`
	IDNumber          *string   `db:"id_number" gorm:"column:id_number"`
	Company           *string   `db:"company" gorm:"column:company"`
	HasDriversLicense bool      `db:"has_drivers_license" gorm:"column:has_drivers_license;not null;default:false"`
	CreatedAt         time.Time `db:"created_at" gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt         time.Time `db:"updated_at" gorm:"column:updated_at;autoUpdateTime:false"`
}

func (User) TableName() string {
	return "users"
}
