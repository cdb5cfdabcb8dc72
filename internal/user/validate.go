package user

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate はRecordの検証に使うバリデータ。
// "state" タグで州の一覧に含まれるかを検証する。
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("state", func(fl validator.FieldLevel) bool {
		return IsValidState(fl.Field().String())
	}); err != nil {
		panic(err)
	}
	return v
}

// fieldNames はRecordのフィールド名とJSONキーの対応。
var fieldNames = map[string]string{
	"Name":  "name",
	"Email": "email",
	"State": "state",
}

// validateRecord はrecを検証し、最初に見つかった不正をValidationErrorとして返す。
func validateRecord(rec *Record) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Reason: err.Error()}
	}

	fe := verrs[0]
	field := fieldNames[fe.Field()]
	switch fe.Tag() {
	case "required":
		return &ValidationError{Field: field, Reason: "必須項目です"}
	case "email":
		return &ValidationError{Field: field, Reason: "メールアドレスの形式が不正です"}
	case "state":
		return &ValidationError{Field: field, Reason: "州の値が不正です: " + fe.Value().(string)}
	default:
		return &ValidationError{Field: field, Reason: "値が不正です"}
	}
}

// normalize は入力値の前後の空白を取り除く。
func normalize(s string) string {
	return strings.TrimSpace(s)
}
