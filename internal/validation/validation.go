// Package validation configures the request validator used by gin binding.
package validation

import (
	"encoding/json"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	"github.com/pkg/errors"

	"college/internal/apperr"
	"college/internal/timetable"
	"college/internal/user"
)

var (
	// custom validation tags
	clockTag      = "clock12"
	departmentTag = "department"
	roleTag       = "role"
	yearLabelTag  = "year_label"

	customTexts = map[string]string{
		clockTag:      "must be a time like 9:00 AM",
		departmentTag: "must be one of " + strings.Join(timetable.Departments, ", "),
		roleTag:       "must be one of student, faculty, admin",
		yearLabelTag:  "must be one of FE, SE, TE, BE, alumni",
	}

	translator ut.Translator
	once       sync.Once
)

// Setup registers JSON field names, English messages and the custom tags on gin's validator.
// It is safe to call more than once.
func Setup() {
	once.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			panic("validation: gin binding is not backed by validator/v10")
		}
		register(v)
	})
}

func register(v *validator.Validate) {
	english := en.New()
	translator, _ = ut.New(english, english).GetTranslator("en")
	_ = en_translations.RegisterDefaultTranslations(v, translator)

	// Use JSON tag names for errors instead of Go struct names.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	_ = v.RegisterValidation(clockTag, func(fl validator.FieldLevel) bool {
		_, err := timetable.ParseClock(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation(departmentTag, func(fl validator.FieldLevel) bool {
		return timetable.ValidDepartment(fl.Field().String())
	})
	_ = v.RegisterValidation(roleTag, func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case user.RoleStudent, user.RoleFaculty, user.RoleAdmin:
			return true
		}
		return false
	})
	_ = v.RegisterValidation(yearLabelTag, func(fl validator.FieldLevel) bool {
		return fl.Field().String() == "" || user.ValidYear(fl.Field().String())
	}, true)

	noop := func(ut.Translator) error { return nil }
	for tag := range customTexts {
		_ = v.RegisterTranslation(tag, translator, noop, func(_ ut.Translator, fe validator.FieldError) string {
			return customTexts[fe.Tag()]
		})
	}
}

// Fields turns a binding error into per-field messages keyed by JSON path, e.g. "timetable.monday[0].time".
func Fields(err error) []apperr.FieldError {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]apperr.FieldError, 0, len(verrs))
		for _, fe := range verrs {
			msg := fe.Error()
			if translator != nil {
				msg = fe.Translate(translator)
			}
			out = append(out, apperr.FieldError{Field: fieldPath(fe.Namespace()), Error: msg})
		}
		return out
	}

	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) {
		return []apperr.FieldError{{Field: typeErr.Field, Error: "must be a " + typeErr.Type.String()}}
	}
	return nil
}

// Error wraps a binding failure as an invalid-argument error.
func Error(err error) error {
	fields := Fields(err)
	if len(fields) == 0 {
		return apperr.Invalid("malformed request body")
	}
	return apperr.Invalid("invalid request", fields...)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}
