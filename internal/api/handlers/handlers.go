// Package handlers adapts fiber requests to the core services. Handlers only
// decode, delegate and render; errors are rendered by the app error handler.
package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/audit"
	apperrors "github.com/tajious/ejare/internal/errors"
	"github.com/tajious/ejare/internal/middleware"
	"github.com/tajious/ejare/internal/validation"
)

// PageQuery holds the shared pagination parameters.
type PageQuery struct {
	Page     int `query:"page" validate:"gte=0"`
	PageSize int `query:"pageSize" validate:"gte=0,lte=100"`
}

func actor(c *fiber.Ctx) audit.Actor {
	return audit.ActorFromClaims(middleware.Claims(c), c.IP())
}

// parseQuery binds and validates query parameters into dst.
func parseQuery(c *fiber.Ctx, dst any) error {
	if err := c.QueryParser(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "پارامترهای درخواست نامعتبر است")
	}
	if err := validation.ValidateStruct(dst); err != nil {
		return apperrors.Wrap(apperrors.CodeValidation, err, "پارامترهای درخواست نامعتبر است").
			WithDetails(validation.Fields(err))
	}
	return nil
}
