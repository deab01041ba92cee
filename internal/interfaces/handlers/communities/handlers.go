package communities

import (
	commsvc "commenergy-backend/internal/application/communities"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the read-only community endpoints.
type Handlers struct {
	Service *commsvc.Service
}

// List GET /api/v1/communities
func (h *Handlers) List(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	list, err := h.Service.List(c.UserContext(), sess)
	if err != nil {
		return err
	}
	return response.Success(c, "Communities fetched", list, fiber.Map{"count": len(list)})
}

// Get GET /api/v1/communities/:id
func (h *Handlers) Get(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	community, err := h.Service.Get(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, "Community fetched", community, nil)
}

// Contracts GET /api/v1/communities/:id/community-contracts
func (h *Handlers) Contracts(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	rows, err := h.Service.Contracts(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, "Community contracts fetched", rows, fiber.Map{"count": len(rows)})
}

// TermsAgreement GET /api/v1/communities/:id/terms-agreements/:termsId
func (h *Handlers) TermsAgreement(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	agreement, err := h.Service.TermsAgreement(c.UserContext(), sess, c.Params("termsId"))
	if err != nil {
		return err
	}
	if agreement == nil {
		return response.Error(c, "Terms agreement not found", fiber.StatusNotFound, nil)
	}
	return response.Success(c, "Terms agreement fetched", agreement, nil)
}
