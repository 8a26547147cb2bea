package services

import (
	"reflect"
	"strings"

	"github.com/bizadmin/backend/internal/apperr"
	"github.com/bizadmin/backend/internal/models"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

// newValidator reports field errors under their JSON names
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func validateInput(input interface{}) error {
	if err := validate.Struct(input); err != nil {
		return apperr.FromBinding(err)
	}
	return nil
}

func requireActor(actor *models.Actor) error {
	if actor == nil || actor.ID == 0 {
		return apperr.Unauthenticated("Unauthorized. Please sign in.")
	}
	return nil
}
