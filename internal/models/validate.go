package models

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// в ошибках — имена полей как в JSON
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("isodate", func(fl validator.FieldLevel) bool {
		return ValidDate(fl.Field().String())
	})
	// конец биместра не раньше начала
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		b := sl.Current().Interface().(Bimester)
		if b.Start != "" && b.End != "" && b.End < b.Start {
			sl.ReportError(b.End, "end", "End", "after_start", "")
		}
	}, Bimester{})
	return v
}

// Validate проверяет сущность по тегам validate.
func Validate(entity any) error {
	return validate.Struct(entity)
}
