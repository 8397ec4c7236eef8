package validator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	enTranslations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate     *validator.Validate
	translator   ut.Translator
	validateOnce sync.Once
)

func newValidator() (*validator.Validate, ut.Translator) {
	trans, _ := ut.New(en.New(), en.New()).GetTranslator("en")

	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, tag := range []string{"json", "mapstructure"} {
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
	if err := enTranslations.RegisterDefaultTranslations(v, trans); err != nil {
		panic(fmt.Sprintf("register validator translations: %v", err))
	}
	return v, trans
}

// ValidateStruct checks the `validate` tags of a struct and joins every
// violation into one error.
func ValidateStruct(s interface{}) error {
	return checkError(getValidator().Struct(s))
}

// ValidateOneOf accepts an empty value or one of enums.
func ValidateOneOf(value string, enums ...string) error {
	tags := "omitempty,oneof=" + strings.Join(enums, " ")
	return checkError(getValidator().Var(value, tags))
}

func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate, translator = newValidator()
	})
	return validate
}

func checkError(err error) error {
	if err == nil {
		return nil
	}

	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return err
	}

	errStrs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch e.Tag() {
		case "oneof":
			msg := fmt.Sprintf("error value %q", fmt.Sprint(e.Value()))
			if e.Field() != "" {
				msg += fmt.Sprintf(" for key %q", e.Field())
			}
			msg += fmt.Sprintf(" not recognized, only support %q", e.Param())
			errStrs = append(errStrs, msg)
		case "gte", "min":
			errStrs = append(errStrs, fmt.Sprintf("%s cannot be less than %s", e.Field(), e.Param()))
		case "lte", "max":
			errStrs = append(errStrs, fmt.Sprintf("%s cannot be greater than %s", e.Field(), e.Param()))
		case "required":
			errStrs = append(errStrs, fmt.Sprintf("%s is required", e.Field()))
		default:
			errStrs = append(errStrs, e.Translate(translator))
		}
	}
	return errors.New(strings.Join(errStrs, " and "))
}
