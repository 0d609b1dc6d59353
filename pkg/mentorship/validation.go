package mentorship

import (
	"errors"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// ErrValidation matches every ValidationError via errors.Is.
var ErrValidation = errors.New("validation failed")

// ValidationError carries one user-facing message per invalid field,
// keyed by the field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if len(e.Fields) == 0 {
		return ErrValidation.Error()
	}
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+e.Fields[name])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is makes errors.Is(err, ErrValidation) succeed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Retryable reports false: the same input fails the same way.
func (e *ValidationError) Retryable() bool {
	return false
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func formValidator() *validator.Validate {
	validateOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
		_ = v.RegisterValidation("notblank", validators.NotBlank)
		_ = v.RegisterValidation("linkedin", func(fl validator.FieldLevel) bool {
			return strings.Contains(strings.ToLower(fl.Field().String()), "linkedin.com")
		})
		validate = v
	})
	return validate
}

var fieldMessages = map[string]string{
	"current_company":         "Current company is required",
	"current_position":        "Current position is required",
	"years_experience":        "Please enter valid years of experience",
	"expertise_areas":         "Please add at least one expertise area",
	"bio":                     "Bio must be at least 50 characters long",
	"linkedin_url":            "Please enter a valid LinkedIn URL",
	"github_url":              "Please enter a valid GitHub URL",
	"portfolio_url":           "Please enter a valid portfolio URL",
	"mentoring_capacity":      "Mentoring capacity cannot be negative",
	"mentor_id":               "Please select a mentor",
	"goals":                   "Please describe your goals",
	"duration_months":         "Duration must be between 1 and 12 months",
	"preferred_communication": "Please choose a communication preference",
	"status":                  "Invalid status",
	"progress_percentage":     "Progress must be between 0 and 100",
	"mentee_rating":           "Rating must be between 1 and 5",
	"mentor_rating":           "Rating must be between 1 and 5",
}

// check runs the struct rules and converts failures to a ValidationError.
func check(v any) error {
	err := formValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		// Slice elements report as "expertise_areas[2]".
		name := fe.Field()
		if i := strings.IndexByte(name, '['); i >= 0 {
			name = name[:i]
		}
		if _, seen := fields[name]; seen {
			continue
		}
		msg, ok := fieldMessages[name]
		if !ok {
			msg = "Invalid value"
		}
		fields[name] = msg
	}
	return &ValidationError{Fields: fields}
}

// Validate checks the application form.
func (a MentorApplication) Validate() error {
	return check(a)
}

// Validate checks a new mentorship request.
func (in CreateRequestInput) Validate() error {
	return check(in)
}

// Validate checks a partial update. An update that changes nothing is
// rejected.
func (in UpdateRequestInput) Validate() error {
	if in.empty() {
		return &ValidationError{Fields: map[string]string{"update": "Nothing to update"}}
	}
	return check(in)
}
