package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/amirasaad/ledger/pkg/domain/account"
	"github.com/amirasaad/ledger/pkg/money"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// FieldMessages is implemented by requests that describe their nested
// field errors in their own words. Keys are "<json path>:<tag>", for
// example "amount.currency:required".
type FieldMessages interface {
	FieldMessages() map[string]string
}

// Checker is implemented by requests with rules spanning several fields.
// Check runs only after every field rule passed.
type Checker interface {
	Check() *ValidationError
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	rules := map[string]validator.Func{
		"uid": func(fl validator.FieldLevel) bool {
			_, err := account.ParseUID(fl.Field().String())
			return err == nil
		},
		"currency": func(fl validator.FieldLevel) bool {
			return money.Code(fl.Field().String()).IsSupported()
		},
		"decimal": func(fl validator.FieldLevel) bool {
			_, err := decimal.NewFromString(fl.Field().String())
			return err == nil
		},
		"positive": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.IsPositive()
		},
		"nonnegative": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && !d.IsNegative()
		},
		"money_scale": func(fl validator.FieldLevel) bool {
			d, err := decimal.NewFromString(fl.Field().String())
			return err == nil && d.Exponent() == -money.Scale
		},
	}
	for tag, fn := range rules {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(fmt.Sprintf("register validation %q: %v", tag, err))
		}
	}
	return v
}

// NotProvided is the error for a missing top-level parameter.
func NotProvided(param string) ValidationError {
	return ValidationError{
		ParamName: param,
		Code:      param + "NotProvided",
		Message:   fmt.Sprintf("Parameter '%s' must be provided", param),
	}
}

// Invalid is the error for a malformed parameter. An empty message
// selects the generic one.
func Invalid(param, message string) ValidationError {
	if message == "" {
		message = fmt.Sprintf("Parameter '%s' is invalid", param)
	}
	return ValidationError{
		ParamName: param,
		Code:      param + "Invalid",
		Message:   message,
	}
}

// Validate checks input and returns the first failed rule, or nil.
// Field rules run in declaration order; Checker rules run last.
func Validate(input any) *ValidationError {
	err := validate.Struct(input)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		ve := toValidationError(input, fieldErrs[0])
		return &ve
	}
	if err != nil {
		ve := Invalid("body", "")
		return &ve
	}
	if ch, ok := input.(Checker); ok {
		return ch.Check()
	}
	return nil
}

func toValidationError(input any, fe validator.FieldError) ValidationError {
	// Namespace is "<Struct>.<json path>".
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	param, _, nested := strings.Cut(path, ".")
	if !nested && fe.Tag() == "required" {
		return NotProvided(param)
	}
	var message string
	if fm, ok := input.(FieldMessages); ok {
		message = fm.FieldMessages()[path+":"+fe.Tag()]
	}
	return Invalid(param, message)
}

// BindAndValidate decodes the JSON request body into T and validates it.
// It returns the populated struct, or writes a 400 problem response and
// returns nil together with the result of writing it. An empty body
// decodes as an empty object.
func BindAndValidate[T any](c *fiber.Ctx) (*T, error) {
	var input T
	if body := c.Body(); len(body) > 0 {
		if err := c.App().Config().JSONDecoder(body, &input); err != nil {
			return nil, ValidationProblemJSON(c, ValidationError{
				ParamName: "body",
				Code:      "bodyInvalid",
				Message:   "Request body is not valid JSON",
			})
		}
	}
	if ve := Validate(&input); ve != nil {
		return nil, ValidationProblemJSON(c, *ve)
	}
	return &input, nil
}

// Text is a scalar request parameter accepted either as a JSON string or
// as a bare JSON number. Numbers keep their literal form, so 100.00 and
// "100.00" both decode to "100.00".
type Text string

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	switch {
	case len(data) == 0 || string(data) == "null":
		*t = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
	case data[0] == '-' || (data[0] >= '0' && data[0] <= '9'):
		*t = Text(data)
	default:
		return fmt.Errorf("expected string or number, got %s", data)
	}
	return nil
}

func (t Text) String() string {
	return string(t)
}
