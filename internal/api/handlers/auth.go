package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/api/dto"
	"github.com/tajious/ejare/internal/auth"
	"github.com/tajious/ejare/internal/middleware"
)

type AuthHandler struct {
	auth *auth.Service
}

func NewAuthHandler(svc *auth.Service) *AuthHandler {
	return &AuthHandler{auth: svc}
}

// Login accepts either username/password or contractNumber/accessCode.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	req, err := dto.DecodeLogin(c.Body())
	if err != nil {
		return err
	}

	resp, err := h.auth.Login(c.UserContext(), req, c.IP())
	if err != nil {
		return err
	}
	return c.JSON(resp)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.auth.Logout(c.UserContext(), middleware.Claims(c), c.IP()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Me echoes the verified claims of the caller.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return c.JSON(middleware.Claims(c))
}
