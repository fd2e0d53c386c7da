package validator

import (
	"regexp"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

// Custom validation tags
const (
	TagNotBlank = "notblank" // String with at least one non-whitespace character
	TagDocID    = "docid"    // 32-character lowercase hex document id
)

var docIDRegex = regexp.MustCompile(`^[0-9a-f]{32}$`)

func (v *Validator) registerCustomRules() {
	_ = v.validate.RegisterValidation(TagNotBlank, validateNotBlank)
	_ = v.validate.RegisterValidation(TagDocID, validateDocID)
}

func validateNotBlank(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

func validateDocID(fl validator.FieldLevel) bool {
	value := fl.Field().String()
	if value == "" {
		return true // Let 'required' handle empty values
	}
	return docIDRegex.MatchString(value)
}

func (v *Validator) registerCustomTranslations() {
	messages := map[string]map[string]string{
		LangEN: {
			TagNotBlank: "{0} must not be blank",
			TagDocID:    "{0} must be a 32-character hexadecimal document id",
		},
		LangZH: {
			TagNotBlank: "{0}不能为空白",
			TagDocID:    "{0}必须是32位十六进制文档ID",
		},
	}

	for lang, translations := range messages {
		trans := v.GetTranslator(lang)
		for tag, message := range translations {
			registerTranslation(v.validate, trans, tag, message)
		}
	}
}

func registerTranslation(validate *validator.Validate, trans ut.Translator, tag, message string) {
	_ = validate.RegisterTranslation(tag, trans,
		func(ut ut.Translator) error {
			return ut.Add(tag, message, true)
		},
		func(ut ut.Translator, fe validator.FieldError) string {
			t, _ := ut.T(tag, fe.Field())
			return t
		},
	)
}
