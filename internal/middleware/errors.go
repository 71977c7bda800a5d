package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/logger"
)

type errorBody struct {
	Error   string         `json:"error"`
	Code    apperrors.Code `json:"code"`
	Details any            `json:"details,omitempty"`
}

var codeByStatus = map[int]apperrors.Code{
	fiber.StatusBadRequest:            apperrors.CodeValidation,
	fiber.StatusRequestEntityTooLarge: apperrors.CodeValidation,
	fiber.StatusUnauthorized:          apperrors.CodeUnauthorized,
	fiber.StatusForbidden:             apperrors.CodeForbidden,
	fiber.StatusNotFound:              apperrors.CodeNotFound,
	fiber.StatusMethodNotAllowed:      apperrors.CodeNotFound,
	fiber.StatusTooManyRequests:       apperrors.CodeRateLimit,
	fiber.StatusServiceUnavailable:    apperrors.CodeDependency,
}

// ErrorHandler renders every error as {"error", "code", "details"}. Causes of
// server-side failures are logged and never sent to the client.
func ErrorHandler(log *logger.Logger) fiber.ErrorHandler {
	if log == nil {
		log = logger.Nop()
	}
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code, ok := codeByStatus[fe.Code]
			if !ok {
				code = apperrors.CodeInternal
			}
			return c.Status(fe.Code).JSON(errorBody{Error: apperrors.MetadataFor(code).PublicMessage, Code: code})
		}

		code := apperrors.CodeOf(err)
		meta := apperrors.MetadataFor(code)
		body := errorBody{Error: apperrors.PublicMessage(err), Code: code}
		if typed := apperrors.As(err); typed != nil && meta.DetailsAllowed {
			body.Details = typed.Details()
		}

		if meta.HTTPStatus >= fiber.StatusInternalServerError {
			log.Error(c.UserContext(), "request failed", err)
		}
		return c.Status(meta.HTTPStatus).JSON(body)
	}
}
