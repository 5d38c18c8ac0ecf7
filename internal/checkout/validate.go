package checkout

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/flicky/moodshop-api/internal/model"
)

var (
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	zipPattern    = regexp.MustCompile(`^\d{5}$`)
	cardPattern   = regexp.MustCompile(`^\d{16}$`)
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/\d{2}$`)
	cvcPattern    = regexp.MustCompile(`^\d{3}$`)
)

var validate = newValidator()

// Card is only required when paying by credit card. It is never stored.
type Card struct {
	Number string `json:"card_number" validate:"required,card_number"`
	Expiry string `json:"expiry" validate:"required,card_expiry"`
	CVC    string `json:"cvc" validate:"required,cvc"`
}

type Form struct {
	Shipping      model.ShippingAddress `json:"shipping"`
	PaymentMethod model.PaymentMethod   `json:"payment_method"`
	Card          *Card                 `json:"card,omitempty"`
}

// ValidationError carries one message per offending form field.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "invalid checkout form: " + strings.Join(parts, "; ")
}

// ValidEmail reports whether s has the shape something@something.tld.
func ValidEmail(s string) bool {
	return emailPattern.MatchString(s)
}

// NormalizeCardNumber drops the spaces and dashes people type into card fields.
func NormalizeCardNumber(s string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(s)
}

// Validate checks the form field by field and returns a *ValidationError
// listing every problem, or nil.
func Validate(f Form) error {
	fields := map[string]string{}

	collect(fields, validate.Struct(f.Shipping.Trimmed()))

	switch {
	case f.PaymentMethod == "":
		fields["payment_method"] = "is required"
	case !f.PaymentMethod.Valid():
		fields["payment_method"] = fmt.Sprintf("must be %q or %q", model.PaymentCreditCard, model.PaymentPayPal)
	case f.PaymentMethod == model.PaymentCreditCard:
		if f.Card == nil {
			fields["card_number"] = "is required"
			fields["expiry"] = "is required"
			fields["cvc"] = "is required"
			break
		}
		collect(fields, validate.Struct(f.Card))
	}

	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

func collect(fields map[string]string, err error) {
	if err == nil {
		return
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["form"] = err.Error()
		return
	}
	for _, fe := range verrs {
		fields[fe.Field()] = message(fe.Tag())
	}
}

func message(tag string) string {
	switch tag {
	case "required":
		return "is required"
	case "simple_email":
		return "must be a valid email address"
	case "zip5":
		return "must be 5 digits"
	case "card_number":
		return "must be 16 digits"
	case "card_expiry":
		return "must be MM/YY with a month between 01 and 12"
	case "cvc":
		return "must be 3 digits"
	}
	return "is invalid"
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	rules := map[string]func(string) bool{
		"simple_email": emailPattern.MatchString,
		"zip5":         zipPattern.MatchString,
		"card_number":  func(s string) bool { return cardPattern.MatchString(NormalizeCardNumber(s)) },
		"card_expiry":  expiryPattern.MatchString,
		"cvc":          cvcPattern.MatchString,
	}
	for tag, match := range rules {
		match := match
		if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			return match(strings.TrimSpace(fl.Field().String()))
		}); err != nil {
			panic(fmt.Sprintf("register %s validation: %v", tag, err))
		}
	}
	return v
}
