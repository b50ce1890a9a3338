// Package validator checks user-supplied structs with go-playground/validator.
package validator

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	customerrors "github.com/marcorisi/discount-codes/internal/errors"
)

var validate *validator.Validate

func init() {
	validate = validator.New()

	// report form/json names rather than Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"form", "json"} {
			name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	registerCustomValidators()
}

func registerCustomValidators() {
	// isodate accepts an empty string or a YYYY-MM-DD calendar date
	validate.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		v := fl.Field().String()
		if v == "" {
			return true
		}
		_, err := time.Parse("2006-01-02", v)
		return err == nil
	})
}

// ValidateStruct validates s and wraps any failure in ErrInvalidInput.
func ValidateStruct(s interface{}) error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", customerrors.ErrInvalidInput, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", customerrors.ErrInvalidInput, strings.Join(msgs, ", "))
}
