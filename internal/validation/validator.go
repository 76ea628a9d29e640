// Package validation checks listing and feedback forms before anything is
// sent to the API.
package validation

import (
	"reflect"
	"strings"
	"sync"

	"campus-market/internal/domain"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

// TagCategory checks a value against domain.Categories.
const TagCategory = "category"

// Validator wraps go-playground/validator with field names taken from json
// tags and English messages.
type Validator struct {
	validate *validator.Validate
	trans    ut.Translator
}

var (
	global *Validator
	once   sync.Once
)

// Global returns the shared validator, building it on first use.
func Global() *Validator {
	once.Do(func() {
		global = New()
	})
	return global
}

// New creates a Validator with the custom rules registered.
func New() *Validator {
	v := &Validator{validate: validator.New()}

	v.validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})

	enLocale := en.New()
	v.trans, _ = ut.New(enLocale, enLocale).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v.validate, v.trans)

	_ = v.validate.RegisterValidation(TagCategory, validateCategory)
	_ = v.validate.RegisterTranslation(TagCategory, v.trans,
		func(t ut.Translator) error {
			return t.Add(TagCategory, "{0} must be one of "+strings.Join(domain.Categories, ", "), true)
		},
		func(t ut.Translator, fe validator.FieldError) string {
			msg, _ := t.T(TagCategory, fe.Field())
			return msg
		},
	)

	return v
}

// Struct validates s. It returns nil or *Errors.
func (v *Validator) Struct(s interface{}) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return &Errors{Fields: []FieldError{{Field: "unknown", Tag: "unknown", Message: err.Error()}}}
	}

	out := &Errors{Fields: make([]FieldError, 0, len(fieldErrs))}
	for _, fe := range fieldErrs {
		out.Fields = append(out.Fields, FieldError{
			Field:   fe.Field(),
			Tag:     fe.Tag(),
			Param:   fe.Param(),
			Message: fe.Translate(v.trans),
		})
	}
	return out
}

func validateCategory(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	for _, c := range domain.Categories {
		if value == c {
			return true
		}
	}
	return false
}
