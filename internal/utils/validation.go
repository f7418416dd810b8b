package utils

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"clinic-booking-server/internal/apperr"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Validate performs validation on a struct.
func Validate(s interface{}) error {
	return validatorInstance().Struct(s)
}

// FormatValidationError formats validation errors into a readable string.
func FormatValidationError(err error) string {
	var errs validator.ValidationErrors
	if errors.As(err, &errs) {
		messages := make([]string, 0, len(errs))
		for _, e := range errs {
			messages = append(messages, describe(e))
		}
		return strings.Join(messages, ", ")
	}
	return err.Error()
}

func describe(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return e.Field() + " is required"
	case "email":
		return e.Field() + " must be a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of %s", e.Field(), e.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
	}
}

// DecodeStrict decodes a JSON body into obj, rejecting unknown fields and
// trailing data. An empty body decodes to the zero value.
func DecodeStrict(body io.Reader, obj interface{}) error {
	raw, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(obj); err != nil {
		return err
	}
	if dec.More() {
		return errors.New("unexpected data after JSON body")
	}
	return nil
}

// BindAndValidate binds the request body to a struct and validates it.
// If either step fails, it sends a 400 validation response and returns false.
func BindAndValidate(c *gin.Context, obj interface{}) bool {
	if err := DecodeStrict(c.Request.Body, obj); err != nil {
		RespondError(c, apperr.Validation("Invalid request payload: "+err.Error()))
		return false
	}
	if err := Validate(obj); err != nil {
		RespondError(c, apperr.Validation("Validation failed: "+FormatValidationError(err)))
		return false
	}
	return true
}
