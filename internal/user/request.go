package user

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// maxPasswordBytes is the longest input bcrypt accepts.
const maxPasswordBytes = 72

var errPhoneNotObject = errors.New("must be an object")

type signupRequest struct {
	Name     string  `json:"nome"`
	Email    string  `json:"email"`
	Password string  `json:"senha"`
	Phones   []Phone `json:"telefones"`
}

func (r signupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Name, validation.Required, validation.Length(0, 120)),
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(0, maxPasswordBytes)),
		validation.Field(&r.Phones),
	)
}

type signinRequest struct {
	Email    string `json:"email"`
	Password string `json:"senha"`
}

func (r signinRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required),
		validation.Field(&r.Password, validation.Required),
	)
}

// Validate only rejects null entries. Non-object entries never get this far
// because they fail to decode.
func (p Phone) Validate() error {
	if p == nil {
		return errPhoneNotObject
	}
	return nil
}
