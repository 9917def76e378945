package protocol

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Wire frames. Fields are pointers so that a missing field can be told
// apart from an empty one; presence is enforced with the validator.

type envelope struct {
	Type *string `json:"type"`
}

type joinFrame struct {
	Type     string  `json:"type"`
	Username *string `json:"username" validate:"required"`
}

type messageFrame struct {
	Type     string  `json:"type"`
	Username *string `json:"username" validate:"required"`
	Text     *string `json:"text" validate:"required"`
}

type mediaFrame struct {
	Type        string  `json:"type"`
	Username    *string `json:"username" validate:"required"`
	Data        *string `json:"data" validate:"required"`
	ContentType *string `json:"contentType" validate:"required"`
}

type usersFrame struct {
	Type  string   `json:"type"`
	Users []string `json:"users" validate:"required"`
}

type errorFrame struct {
	Type    string  `json:"type"`
	Message *string `json:"message" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}
