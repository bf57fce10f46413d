// Package validation wraps go-playground/validator with the project's tags
// and turns failures into apperr errors.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"ocha/internal/apperr"
	"ocha/internal/models"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

var (
	slugPattern        = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	displayNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	nonDigits          = regexp.MustCompile(`[^\d]`)
)

// Validator validates request payloads and models.
type Validator struct {
	v *validator.Validate
}

// New returns a Validator with the custom tags registered:
//
//	slug         lower-case URL-safe token
//	size         one of S, M, L
//	phone        at least 8 digits once separators are stripped
//	displayname  letters, digits and underscores
//	password     lower, upper, digit and special character
func New() *Validator {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	v.RegisterCustomTypeFunc(func(f reflect.Value) any {
		if d, ok := f.Interface().(decimal.Decimal); ok {
			val, _ := d.Float64()
			return val
		}
		return nil
	}, decimal.Decimal{})

	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("size", func(fl validator.FieldLevel) bool {
		return models.Size(fl.Field().String()).Valid()
	})
	_ = v.RegisterValidation("phone", func(fl validator.FieldLevel) bool {
		return len(nonDigits.ReplaceAllString(fl.Field().String(), "")) >= 8
	})
	_ = v.RegisterValidation("displayname", func(fl validator.FieldLevel) bool {
		return displayNamePattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return StrongPassword(fl.Field().String())
	})

	v.RegisterStructValidation(storeStructLevel, models.Store{})

	return &Validator{v: v}
}

func storeStructLevel(sl validator.StructLevel) {
	s := sl.Current().Interface().(models.Store)
	if s.Location.Type != "" && s.Location.Type != "Point" {
		sl.ReportError(s.Location.Type, "location", "Location", "geopoint", "")
	}
	if !s.Location.Geo().Valid() {
		sl.ReportError(s.Location.Coordinates, "location", "Location", "coordinates", "")
	}
	if err := s.OpeningHours.Validate(); err != nil {
		sl.ReportError(s.OpeningHours, "opening_hours", "OpeningHours", "openinghours", "")
	}
}

// StrongPassword reports whether pw mixes lower, upper, digit and special characters.
func StrongPassword(pw string) bool {
	var lower, upper, digit, special bool
	for _, r := range pw {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		default:
			special = true
		}
	}
	return lower && upper && digit && special
}

// Struct validates s and returns an InvalidInput error listing every failed field.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperr.Internal(err, "validation failed")
	}
	fields := make(map[string]string, len(verrs))
	for _, e := range verrs {
		fields[fieldPath(e)] = message(e)
	}
	return apperr.InvalidInput(fields)
}

// fieldPath drops the top-level struct name from the namespace.
func fieldPath(e validator.FieldError) string {
	ns := e.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return e.Field()
}

func message(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min", "max", "gte", "lte":
		return fmt.Sprintf("failed on the '%s=%s' rule", e.Tag(), e.Param())
	case "coordinates":
		return "must contain a valid longitude and latitude"
	case "openinghours":
		return "must have 7 entries, each [] or [\"HH:MM\", \"HH:MM\"]"
	default:
		return fmt.Sprintf("failed on the '%s' rule", e.Tag())
	}
}
