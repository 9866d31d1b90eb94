package inventory

import (
	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/core/common/validation"
)

type CreateItemDTO struct {
	Name                 string  `json:"name"`
	SerialNumber         string  `json:"serialNumber"`
	Description          string  `json:"description"`
	Condition            string  `json:"condition"`
	Status               string  `json:"status,omitempty"`
	Value                float64 `json:"value"`
	PermanentCheckout    bool    `json:"permanentCheckout"`
	PermissionNeeded     bool    `json:"permissionNeeded"`
	DriversLicenseNeeded bool    `json:"driversLicenseNeeded"`
}

func (d CreateItemDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("name", d.Name).Required().MaxLength(200)
	v.Field("serialNumber", d.SerialNumber).MaxLength(100)
	v.Field("description", d.Description).MaxLength(2000)
	v.Field("condition", d.Condition).Required().OneOf(Conditions, internal.ErrCodeInvalidCondition)
	v.Field("status", d.Status).OneOf(Statuses, internal.ErrCodeInvalidStatus)
	v.Field("value", d.Value).MinFloat(0, internal.ErrCodeInvalidValue)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

// UpdateItemDTO is the operator edit. Nil fields are left untouched.
type UpdateItemDTO struct {
	Name                 *string  `json:"name,omitempty"`
	SerialNumber         *string  `json:"serialNumber,omitempty"`
	Description          *string  `json:"description,omitempty"`
	Condition            *string  `json:"condition,omitempty"`
	Status               *string  `json:"status,omitempty"`
	Value                *float64 `json:"value,omitempty"`
	PermanentCheckout    *bool    `json:"permanentCheckout,omitempty"`
	PermissionNeeded     *bool    `json:"permissionNeeded,omitempty"`
	DriversLicenseNeeded *bool    `json:"driversLicenseNeeded,omitempty"`
}

func (d UpdateItemDTO) Validate() error {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", d.Name).Required().MaxLength(200)
	}
	v.Field("serialNumber", d.SerialNumber).MaxLength(100)
	v.Field("description", d.Description).MaxLength(2000)
	v.Field("condition", d.Condition).OneOf(Conditions, internal.ErrCodeInvalidCondition)
	v.Field("status", d.Status).OneOf(Statuses, internal.ErrCodeInvalidStatus)
	v.Field("value", d.Value).MinFloat(0, internal.ErrCodeInvalidValue)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type CheckoutDTO struct {
	ItemID string `json:"itemId"`
	UserID string `json:"userId"`
	Notes  string `json:"notes"`
}

func (d CheckoutDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("itemId", d.ItemID).Required()
	v.Field("userId", d.UserID).Required()
	v.Field("notes", d.Notes).MaxLength(1000)
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type MessageResponse struct {
	Message string `json:"message"`
}
