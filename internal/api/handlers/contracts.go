package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/tajious/ejare/internal/api/dto"
	"github.com/tajious/ejare/internal/contract"
	"github.com/tajious/ejare/internal/middleware"
	"github.com/tajious/ejare/internal/models"
	"github.com/tajious/ejare/internal/storage"
)

type ContractHandler struct {
	contracts *contract.Service
}

func NewContractHandler(contracts *contract.Service) *ContractHandler {
	return &ContractHandler{contracts: contracts}
}

type ListContractsQuery struct {
	PageQuery
	Status string `query:"status"`
	Search string `query:"search"`
}

func (h *ContractHandler) List(c *fiber.Ctx) error {
	var q ListContractsQuery
	if err := parseQuery(c, &q); err != nil {
		return err
	}

	result, err := h.contracts.List(c.UserContext(), storage.ContractFilter{
		Status:   models.ContractStatus(q.Status),
		Search:   q.Search,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, middleware.Claims(c))
	if err != nil {
		return err
	}
	return c.JSON(result)
}

func (h *ContractHandler) Create(c *fiber.Ctx) error {
	in, err := dto.DecodeCreateContract(c.Body())
	if err != nil {
		return err
	}

	result, err := h.contracts.Create(c.UserContext(), in, actor(c))
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(result)
}

func (h *ContractHandler) Get(c *fiber.Ctx) error {
	found, err := h.contracts.Get(c.UserContext(), c.Params("id"), middleware.Claims(c))
	if err != nil {
		return err
	}
	return c.JSON(found)
}

func (h *ContractHandler) Update(c *fiber.Ctx) error {
	in, err := dto.DecodeUpdateContract(c.Body())
	if err != nil {
		return err
	}

	updated, err := h.contracts.Update(c.UserContext(), c.Params("id"), in, actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *ContractHandler) Activate(c *fiber.Ctx) error {
	updated, err := h.contracts.Activate(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *ContractHandler) Terminate(c *fiber.Ctx) error {
	updated, err := h.contracts.Terminate(c.UserContext(), c.Params("id"), actor(c))
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

func (h *ContractHandler) Delete(c *fiber.Ctx) error {
	if err := h.contracts.Delete(c.UserContext(), c.Params("id"), actor(c)); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true})
}

// Sign is tenant-only; the contract number in the path must match the token.
func (h *ContractHandler) Sign(c *fiber.Ctx) error {
	in, err := dto.DecodeSign(c.Body())
	if err != nil {
		return err
	}

	result, err := h.contracts.Sign(c.UserContext(), c.Params("contractNumber"), in, middleware.Claims(c), c.IP())
	if err != nil {
		return err
	}
	return c.JSON(result)
}
