package exports

import (
	"errors"
	"fmt"

	exportsvc "commenergy-backend/internal/application/export"
	sharingsvc "commenergy-backend/internal/application/sharing"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
)

// Handlers serves file exports of a community.
type Handlers struct {
	Service *exportsvc.Service
}

// Export GET /api/v1/communities/:id/export?format=csv|txt&source=draft|original
func (h *Handlers) Export(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	format := c.Query("format", exportsvc.FormatCSV)
	source := c.Query("source", sharingsvc.SourceDraft)
	if source != sharingsvc.SourceDraft && source != sharingsvc.SourceOriginal {
		return response.Error(c, "source must be one of [draft original]", fiber.StatusBadRequest, nil)
	}
	file, err := h.Service.Export(c.UserContext(), sess, c.Params("id"), format, source)
	if err != nil {
		switch {
		case errors.Is(err, exportsvc.ErrUnknownFormat):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, fiber.Map{"allowed": []string{exportsvc.FormatCSV, exportsvc.FormatTXT}})
		case errors.Is(err, exportsvc.ErrNoGenerationContract), errors.Is(err, exportsvc.ErrMultipleGenerationContracts):
			return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
		}
		return err
	}
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, file.Name))
	return c.Send(file.Body)
}
