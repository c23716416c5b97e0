// Package common holds the pieces shared by every HTTP handler: RFC 9457
// problem responses, request binding with validation, mapping of ledger
// errors to status codes and the idempotency tracker.
package common

import (
	"github.com/gofiber/fiber/v2"
)

// Response defines the standard API response structure for success cases.
type Response struct {
	Status  int    `json:"status"`         // HTTP status code
	Message string `json:"message"`        // Human-readable explanation
	Data    any    `json:"data,omitempty"` // Response data
}

// ProblemDetails follows RFC 9457 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string        `json:"type,omitempty"`     // A URI reference that identifies the problem type
	Title    string        `json:"title"`              // Short, human-readable summary
	Status   int           `json:"status"`             // HTTP status code
	Detail   string        `json:"detail,omitempty"`   // Human-readable explanation
	Instance string        `json:"instance,omitempty"` // URI reference that identifies the specific occurrence
	Errors   *ErrorDetails `json:"errors,omitempty"`   // Field or application errors
}

// ErrorDetails carries either the failed request parameters or the
// application error code of a rejected command.
type ErrorDetails struct {
	Validation  []ValidationError `json:"validation,omitempty"`
	Application *ApplicationError `json:"application,omitempty"`
}

// ValidationError describes one rejected request parameter.
type ValidationError struct {
	ParamName string `json:"paramName"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// ApplicationError describes why a well-formed command was refused.
type ApplicationError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SuccessResponseJSON writes body with the given status.
func SuccessResponseJSON(c *fiber.Ctx, status int, body any) error {
	return c.Status(status).JSON(body)
}

// ProblemDetailsJSON writes err as an application/problem+json response.
//
// The status defaults to ErrorToStatusCode(err). Optional args override
// parts of the response: an int sets the status, a string sets the detail
// and an *ErrorDetails replaces the derived errors member.
func ProblemDetailsJSON(c *fiber.Ctx, title string, err error, args ...any) error {
	status := ErrorToStatusCode(err)
	pd := ProblemDetails{
		Type:     "about:blank",
		Title:    title,
		Instance: c.OriginalURL(),
	}
	for _, arg := range args {
		switch v := arg.(type) {
		case int:
			status = v
		case string:
			pd.Detail = v
		case *ErrorDetails:
			pd.Errors = v
		}
	}
	if pd.Errors == nil && err != nil {
		app := ApplicationErrorOf(err)
		pd.Errors = &ErrorDetails{Application: &app}
	}
	if pd.Detail == "" && err != nil && status < fiber.StatusInternalServerError {
		pd.Detail = err.Error()
	}
	pd.Status = status
	return c.Status(status).JSON(pd, "application/problem+json")
}

// ValidationProblemJSON writes a 400 response listing the rejected parameters.
func ValidationProblemJSON(c *fiber.Ctx, errs ...ValidationError) error {
	return ProblemDetailsJSON(c, "Validation failed", nil,
		fiber.StatusBadRequest, &ErrorDetails{Validation: errs})
}
