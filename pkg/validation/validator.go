package validation

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/oksasatya/go-project-tracker/internal/domain/entity"
)

var once sync.Once

// Init configures the global validator used by Gin's binding.
// - Uses JSON tag names in errors.
// - Registers alias tags and domain enum tags.
func Init() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		// 6+ characters, and no more than bcrypt's 72 byte input limit
		_ = v.RegisterValidation("pwd", func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return utf8.RuneCountInString(s) >= 6 && len(s) <= 72
		})
		v.RegisterAlias("otp", "len=6,numeric")
		_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
			return entity.Role(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("provider", func(fl validator.FieldLevel) bool {
			return entity.Provider(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("projectstatus", func(fl validator.FieldLevel) bool {
			return entity.ProjectStatus(fl.Field().String()).Valid()
		})
		_ = v.RegisterValidation("memberrole", func(fl validator.FieldLevel) bool {
			return entity.MemberRole(fl.Field().String()).Valid()
		})
	})
}

// ToDetails converts validation/binding errors into a map[field]message suitable for API error.details.
func ToDetails(err error) map[string]string {
	if err == nil {
		return nil
	}

	// Invalid JSON payloads
	var se *json.SyntaxError
	var ute *json.UnmarshalTypeError
	if errors.As(err, &se) || errors.As(err, &ute) {
		return map[string]string{"payload": "invalid json"}
	}
	var pe *time.ParseError
	if errors.As(err, &pe) {
		return map[string]string{"payload": "invalid date, expected RFC3339"}
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			out[fe.Field()] = formatFieldError(fe)
		}
		return out
	}

	return map[string]string{"payload": "invalid payload"}
}

// fixed messages for tags whose wording does not depend on the field kind
var messages = map[string]string{
	"required":    "is required",
	"email":       "must be a valid email",
	"url":         "must be a valid URL",
	"numeric":     "must be numeric",
	"hexadecimal": "must be hexadecimal",
	"dive":        "array validation failed",
	"pwd":         "must be between 6 and 72 characters long",
	"otp":         "must be a 6-digit code",
}

// enum tags registered in Init
var enums = map[string]func() string{
	"role":          func() string { return joinEnum(entity.Roles) },
	"provider":      func() string { return joinEnum(entity.Providers) },
	"projectstatus": func() string { return joinEnum(entity.ProjectStatuses) },
	"memberrole":    func() string { return joinEnum(entity.MemberRoles) },
}

func formatFieldError(fe validator.FieldError) string {
	tag, param := fe.Tag(), fe.Param()
	if msg, ok := messages[tag]; ok {
		return msg
	}
	if list, ok := enums[tag]; ok {
		return "must be one of: " + list()
	}
	switch tag {
	case "required_without":
		return "is required when " + param + " is not present"
	case "len":
		return fmt.Sprintf("must be exactly %s characters long", param)
	case "min":
		return "must be at least " + bound(fe.Kind(), param)
	case "max":
		return "must be at most " + bound(fe.Kind(), param)
	case "oneof":
		return "must be one of: " + strings.Join(strings.Fields(param), ", ")
	case "gtefield":
		return "must be on or after " + param
	}
	if param != "" {
		return fmt.Sprintf("validation failed for '%s' with parameter '%s'", tag, param)
	}
	return fmt.Sprintf("validation failed for '%s'", tag)
}

// bound words a min/max parameter for the field's kind.
func bound(k reflect.Kind, param string) string {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return param
	case reflect.Slice, reflect.Array, reflect.Map:
		return param + " items"
	default:
		return param + " characters long"
	}
}

func joinEnum[T ~string](vals []T) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = string(v)
	}
	return strings.Join(parts, ", ")
}
