package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// BindJSON binds and validates a JSON body. On failure it writes the
// validation-failed response itself and returns false; malformed input
// is a recoverable, reportable condition, never a panic.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := ctx.ShouldBindJSON(out)

	if err != nil {
		RespondValidationFailed(ctx, parseBindError(err, out))

		return false
	}

	return true
}

func parseBindError(err error, out interface{}) []FieldError {
	rootType := baseStructType(out)

	// validator errors (struct binding tags)

	var validatorErrors validator.ValidationErrors

	if errors.As(err, &validatorErrors) {
		details := make([]FieldError, 0, len(validatorErrors))

		for _, fieldError := range validatorErrors {
			details = append(details, FieldError{
				Field:   jsonFieldName(rootType, fieldError.StructField()),
				Message: validationMessage(fieldError.Tag(), fieldError.Param()),
			})
		}
		return details
	}

	// empty body

	if errors.Is(err, io.EOF) {
		return []FieldError{{Field: "body", Message: "is required"}}
	}

	// bad json

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) {
		return []FieldError{{Field: "body", Message: "must be valid JSON"}}
	}

	// type mismatch on one field

	var typeError *json.UnmarshalTypeError

	if errors.As(err, &typeError) {
		field := strings.TrimSpace(typeError.Field)

		if field == "" {
			field = "body"
		}

		return []FieldError{{Field: field, Message: "must be of type " + typeError.Type.String()}}
	}

	// final fallback if the error could not be deciphered
	return []FieldError{{Field: "body", Message: err.Error()}}
}

func baseStructType(v interface{}) reflect.Type {
	t := reflect.TypeOf(v)

	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t != nil && t.Kind() == reflect.Struct {
		return t
	}

	return nil
}

// jsonFieldName maps a struct field name to its json tag. Payloads here
// are flat structs, so no nested path walking is needed.
func jsonFieldName(rootType reflect.Type, structField string) string {
	if rootType == nil {
		return structField
	}

	sf, ok := rootType.FieldByName(structField)

	if !ok {
		return structField
	}

	tag := sf.Tag.Get("json")
	if tag == "" {
		return structField
	}

	name, _, _ := strings.Cut(tag, ",")
	if name == "" || name == "-" {
		return structField
	}

	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param + " characters"
	case "max":
		return "must be at most " + param + " characters"
	case "oneof":
		return "must be one of " + strings.ReplaceAll(param, " ", ", ")
	default:
		if param != "" {
			return "failed " + rule + " validation (" + param + ")"
		}
		return "failed " + rule + " validation"
	}
}
