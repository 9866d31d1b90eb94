package user

import (
	"time"

	userDatamodel "github.com/frahmantamala/equipment-tracker/internal/core/datamodel/user"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleManager  Role = "Manager"
	RoleEmployee Role = "Employee"
	RoleGuest    Role = "Guest"
)

var Roles = []string{string(RoleAdmin), string(RoleManager), string(RoleEmployee), string(RoleGuest)}

var roleRank = map[Role]int{
	RoleGuest:    1,
	RoleEmployee: 2,
	RoleManager:  3,
	RoleAdmin:    4,
}

func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

type User struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	Email             string    `json:"email"`
	Role              Role      `json:"role"`
	Phone             *string   `json:"phone,omitempty"`
	IDNumber          *string   `json:"idNumber,omitempty"`
	Company           *string   `json:"company,omitempty"`
	HasDriversLicense bool      `json:"hasDriversLicense"`
	PasswordHash      string    `json:"-"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) IsManager() bool {
	return u.Role.AtLeast(RoleManager)
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Role:              string(u.Role),
		Phone:             u.Phone,
		IDNumber:          u.IDNumber,
		Company:           u.Company,
		HasDriversLicense: u.HasDriversLicense,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:                u.ID,
		Name:              u.Name,
		Email:             u.Email,
		PasswordHash:      u.PasswordHash,
		Role:              Role(u.Role),
		Phone:             u.Phone,
		IDNumber:          u.IDNumber,
		Company:           u.Company,
		HasDriversLicense: u.HasDriversLicense,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

func FromDataModelSlice(rows []*userDatamodel.User) []*User {
	users := make([]*User, len(rows))
	for i, row := range rows {
		users[i] = FromDataModel(row)
	}
	return users
}
