package core

import (
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/shopspring/decimal"
)

var (
	// custom validation tags & texts
	currencyCodeTag   = "currencycode"
	currencyCodeText  = "{0} must be a 3-letter currency code"
	currencyCodeRegex = regexp.MustCompile(`^[A-Za-z]{3}$`)

	amountTag  = "amount"
	amountText = "{0} must be a positive number"

	requiredTag     = "required"
	requiredWithTag = "required_with"
	requiredText    = "this field is required"
)

// NewTranslator returns the english translator used for validation messages.
func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// InitValidators instantiates the validator for use.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		tag := fld.Tag.Get("json")
		if tag == "" {
			tag = fld.Tag.Get("query")
		}
		name := strings.SplitN(tag, ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// register custom validators
	_ = validate.RegisterValidation(currencyCodeTag, currencyCodeValidation)
	RegisterCustomTranslation(validate, translator, currencyCodeTag, currencyCodeText)

	_ = validate.RegisterValidation(amountTag, amountValidation)
	RegisterCustomTranslation(validate, translator, amountTag, amountText)

	RegisterCustomTranslation(validate, translator, requiredTag, requiredText, true)
	RegisterCustomTranslation(validate, translator, requiredWithTag, requiredText, true)
}

// RegisterCustomTranslation registers a custom translation for the specified validation tag.
func RegisterCustomTranslation(validate *validator.Validate, translator ut.Translator, tag, text string, override ...bool) {
	var ovrd bool
	if len(override) > 0 {
		ovrd = override[0]
	}
	_ = validate.RegisterTranslation(
		tag, translator,
		func(t ut.Translator) error { return t.Add(tag, text, ovrd) },
		func(t ut.Translator, fe validator.FieldError) string {
			s, _ := t.T(tag, fe.Field())
			return s
		},
	)
}

// TranslateErrors flattens validator errors into field errors.
func TranslateErrors(errs validator.ValidationErrors, translator ut.Translator) []FieldError {
	flds := make([]FieldError, 0, len(errs))
	for _, vErr := range errs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return flds
}

// Custom Global Validators

// currencyCodeValidation only allows ISO-like 3-letter codes.
func currencyCodeValidation(fl validator.FieldLevel) bool {
	return currencyCodeRegex.MatchString(fl.Field().String())
}

// amountValidation accepts blank values and non-negative decimal strings.
func amountValidation(fl validator.FieldLevel) bool {
	s := strings.TrimSpace(fl.Field().String())
	if s == "" {
		return true
	}
	d, err := decimal.NewFromString(s)
	return err == nil && !d.IsNegative()
}
