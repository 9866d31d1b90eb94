package auth

import "github.com/frahmantamala/equipment-tracker/internal/core/common/validation"

// LoginDTO is the transport shape used by the HTTP handler to accept login requests.
type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}

type RefreshTokenDTO struct {
	RefreshToken string `json:"refreshToken"`
}

func (d RefreshTokenDTO) Validate() error {
	v := validation.NewValidator()
	v.Field("refreshToken", d.RefreshToken).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	return nil
}
