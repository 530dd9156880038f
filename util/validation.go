package util

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fernanda-avila/MIndCare2025/model"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

// InstantLayouts are the ISO-8601 forms accepted for appointment instants.
// Layouts without an offset are read as UTC.
var InstantLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
}

// ParseInstant parses an ISO-8601 instant and normalizes it to UTC.
func ParseInstant(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range InstantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid ISO-8601 timestamp %q", s)
}

var registerOnce sync.Once

// RegisterValidators adds the API's custom tags to gin's validator:
// "iso8601" for instant strings and "role" for role names.
func RegisterValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		_ = v.RegisterValidation("iso8601", func(fl validator.FieldLevel) bool {
			value, ok := fl.Field().Interface().(string)
			if !ok {
				return false
			}
			_, err := ParseInstant(value)
			return err == nil
		})
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			value, ok := fl.Field().Interface().(string)
			if !ok {
				return false
			}
			_, err := model.ParseRole(value)
			return err == nil
		})
	})
}

// ValidationMessage flattens validator errors into one readable line.
func ValidationMessage(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return err.Error()
	}
	parts := make([]string, 0, len(ve))
	for _, fe := range ve {
		parts = append(parts, fmt.Sprintf("%s failed on %s", fe.Field(), fe.Tag()))
	}
	return strings.Join(parts, "; ")
}
