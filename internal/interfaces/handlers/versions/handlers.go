package versions

import (
	"errors"

	versionsvc "commenergy-backend/internal/application/versions"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"
	"commenergy-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves the sharing version endpoints of a community.
type Handlers struct {
	Service *versionsvc.Service
}

// List GET /api/v1/communities/:id/sharing-versions
func (h *Handlers) List(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	list, err := h.Service.List(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, "Sharing versions fetched", list, fiber.Map{"count": len(list)})
}

// Create POST /api/v1/communities/:id/sharing-versions
func (h *Handlers) Create(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req versionsvc.CreateInput
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.ValidationFailed(c, err)
	}
	v, err := h.Service.Create(c.UserContext(), sess, c.Params("id"), req)
	if err != nil {
		switch {
		case errors.Is(err, versionsvc.ErrNameRequired), errors.Is(err, versionsvc.ErrNameTooLong), errors.Is(err, versionsvc.ErrNoSharings):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.SuccessCreated(c, "Sharing version created", v, nil)
}

// SetProduction PATCH /api/v1/communities/:id/sharing-versions/:versionId/production
func (h *Handlers) SetProduction(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	versionID := c.Params("versionId")
	if err := h.Service.SetProduction(c.UserContext(), sess, c.Params("id"), versionID); err != nil {
		if errors.Is(err, versionsvc.ErrVersionIDMissing) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.Success(c, "Sharing version set as production", fiber.Map{"versionId": versionID}, nil)
}

// Delete DELETE /api/v1/communities/:id/sharing-versions/:versionId
func (h *Handlers) Delete(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	versionID := c.Params("versionId")
	if err := h.Service.Delete(c.UserContext(), sess, c.Params("id"), versionID); err != nil {
		if errors.Is(err, versionsvc.ErrVersionIDMissing) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.Success(c, "Sharing version deleted", fiber.Map{"versionId": versionID}, nil)
}
