package flight

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/five82/tarmac/internal/outcome"
)

var (
	authorizationPattern = regexp.MustCompile(`^SNA26-[0-9]{1,4}$`)
	registrationPattern  = regexp.MustCompile(`^[A-Za-z0-9]+-[A-Za-z0-9]+$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	must(v.RegisterValidation("authno", func(fl validator.FieldLevel) bool {
		return authorizationPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("registration", func(fl validator.FieldLevel) bool {
		return registrationPattern.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("airline", func(fl validator.FieldLevel) bool {
		return IsAirline(fl.Field().String())
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

// FieldError describes one rejected form field.
type FieldError struct {
	Field   string
	Message string
}

// FieldErrors is the list of rejected fields for one input.
type FieldErrors []FieldError

func (fe FieldErrors) Error() string {
	parts := make([]string, 0, len(fe))
	for _, e := range fe {
		parts = append(parts, e.Message)
	}
	return strings.Join(parts, "; ")
}

// For returns the message for field, or "".
func (fe FieldErrors) For(field string) string {
	for _, e := range fe {
		if e.Field == field {
			return e.Message
		}
	}
	return ""
}

// Normalize trims the input and applies the canonical casing the store
// expects: registration, flight number and authorization number uppercase.
func Normalize(in Input) Input {
	in.AuthorizationNumber = strings.ToUpper(strings.TrimSpace(in.AuthorizationNumber))
	in.Date = strings.TrimSpace(in.Date)
	in.Company = strings.TrimSpace(in.Company)
	in.Registration = strings.ToUpper(strings.TrimSpace(in.Registration))
	in.FlightNumber = strings.ToUpper(strings.TrimSpace(in.FlightNumber))
	in.Type = ParseMovement(string(in.Type))
	return in
}

// Validate checks the required-field and pattern constraints. The returned
// error is an *outcome.Error of kind ValidationFailed wrapping FieldErrors.
func Validate(in Input) error {
	err := validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return outcome.New(outcome.KindValidationFailed, "validate", err)
	}
	fields := make(FieldErrors, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return outcome.New(outcome.KindValidationFailed, "validate", fields)
}

// FieldErrorsOf extracts FieldErrors from a Validate error.
func FieldErrorsOf(err error) FieldErrors {
	var fe FieldErrors
	if errors.As(err, &fe) {
		return fe
	}
	return nil
}

// ParseCount parses a passenger count the way the form does: blank or
// unparsable input counts as zero.
func ParseCount(value string) int {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0
	}
	return n
}

func describe(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", labelFor(field))
	case "authno":
		return "authorization number must look like SNA26-1234"
	case "registration":
		return "invalid registration format (e.g. 5T-CLC)"
	case "airline":
		return fmt.Sprintf("unknown airline %q", fe.Value())
	case "datetime":
		return "date must be YYYY-MM-DD"
	case "oneof":
		return "type must be DEPARTURE or ARRIVAL"
	case "gte":
		return fmt.Sprintf("%s cannot be negative", labelFor(field))
	default:
		return fmt.Sprintf("%s is invalid", labelFor(field))
	}
}

func labelFor(field string) string {
	switch field {
	case "authorizationNumber":
		return "authorization number"
	case "flightNumber":
		return "flight number"
	default:
		return field
	}
}
