package user

import (
	"strings"

	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/common/validation"
)

type RegisterDTO struct {
	Name              string  `json:"name"`
	Email             string  `json:"email"`
	Password          string  `json:"password"`
	Role              string  `json:"role,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	IDNumber          *string `json:"idNumber,omitempty"`
	Company           *string `json:"company,omitempty"`
	HasDriversLicense bool    `json:"hasDriversLicense"`
}

func (d RegisterDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(120)
	v.Field("email", strings.TrimSpace(d.Email)).Required().Email()
	v.Field("password", d.Password).Required().MinLength(8).MaxLength(72)
	v.Field("role", d.Role).OneOf(Roles, internal.ErrCodeInvalidRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateUserDTO is the admin edit; nil fields are left untouched.
type UpdateUserDTO struct {
	Name              *string `json:"name,omitempty"`
	Email             *string `json:"email,omitempty"`
	Role              *string `json:"role,omitempty"`
	Phone             *string `json:"phone,omitempty"`
	IDNumber          *string `json:"idNumber,omitempty"`
	Company           *string `json:"company,omitempty"`
	HasDriversLicense *bool   `json:"hasDriversLicense,omitempty"`
}

func (d UpdateUserDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", d.Name).Required().MaxLength(120)
	}
	if d.Email != nil {
		v.Field("email", d.Email).Required().Email()
	}
	v.Field("role", d.Role).OneOf(Roles, internal.ErrCodeInvalidRole)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type UsersResponse struct {
	Users []*User `json:"users"`
}
