// Package validation validates typed request structs and renders Vietnamese
// field messages for the API envelope.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
)

var (
	validate   *validator.Validate
	translator ut.Translator

	studentIDRegex = regexp.MustCompile(`^\d{9}$`)
	hhmmRegex      = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

	// custom validation tags
	notBlankTag  = "notblank"
	studentIDTag = "studentid"
	hhmmTag      = "hhmm"
	examDateTag  = "examdate"
)

func init() {
	validate = validator.New()

	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ = uni.GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(validate, translator)

	// Use JSON tag names for errors instead of Go struct names.
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = validate.RegisterValidation(notBlankTag, func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	_ = validate.RegisterValidation(studentIDTag, func(fl validator.FieldLevel) bool {
		return studentIDRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation(hhmmTag, func(fl validator.FieldLevel) bool {
		return hhmmRegex.MatchString(fl.Field().String())
	})
	_ = validate.RegisterValidation(examDateTag, func(fl validator.FieldLevel) bool {
		_, err := model.ParseExamDate(fl.Field().String())
		return err == nil
	})

	// The english defaults stay registered for tags not listed here.
	registerFn := func(ut.Translator) error { return nil }
	for _, tag := range []string{
		"required", "min", "max", "gte", "lte", "len", "oneof", "email", "mongodb",
		notBlankTag, studentIDTag, hhmmTag, examDateTag,
	} {
		_ = validate.RegisterTranslation(tag, translator, registerFn, translate)
	}
}

func translate(_ ut.Translator, fe validator.FieldError) string {
	field := fe.Field()
	isText := fe.Kind() == reflect.String
	isList := fe.Kind() == reflect.Slice

	switch fe.Tag() {
	case "required", notBlankTag:
		return fmt.Sprintf("%s là bắt buộc", field)
	case "min", "gte":
		switch {
		case isText:
			return fmt.Sprintf("%s phải có ít nhất %s ký tự", field, fe.Param())
		case isList:
			return fmt.Sprintf("%s phải có ít nhất %s phần tử", field, fe.Param())
		}
		return fmt.Sprintf("%s không được nhỏ hơn %s", field, fe.Param())
	case "max", "lte":
		if isText {
			return fmt.Sprintf("%s không được dài quá %s ký tự", field, fe.Param())
		}
		return fmt.Sprintf("%s không được lớn hơn %s", field, fe.Param())
	case "len":
		return fmt.Sprintf("%s phải có độ dài %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s phải là một trong các giá trị: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "email":
		return "Email không hợp lệ"
	case "mongodb":
		return fmt.Sprintf("%s không phải là ID hợp lệ", field)
	case studentIDTag:
		return "Mã sinh viên phải là 9 chữ số"
	case hhmmTag:
		return fmt.Sprintf("%s phải có định dạng HH:mm", field)
	case examDateTag:
		return fmt.Sprintf("%s không phải là ngày hợp lệ", field)
	default:
		return fe.Error()
	}
}

// FieldError is one failed rule, keyed by the JSON field name.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error is returned by Struct. It unwraps to common.ErrValidation.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, f.Message)
	}
	return strings.Join(msgs, ", ")
}

func (e *Error) UserMessage() string {
	return e.Error()
}

func (e *Error) Unwrap() error {
	return common.ErrValidation
}

// Struct validates v against its `validate` tags.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	out := &Error{Fields: make([]FieldError, 0, len(verrs))}
	for _, fe := range verrs {
		out.Fields = append(out.Fields, FieldError{Field: fe.Field(), Message: fe.Translate(translator)})
	}
	return out
}

func IsStudentID(s string) bool {
	return studentIDRegex.MatchString(s)
}
