package documents

import (
	"errors"

	docsvc "commenergy-backend/internal/application/documents"
	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

// Handlers serves the community document endpoints.
type Handlers struct {
	Service *docsvc.Service
}

// List GET /api/v1/communities/:id/documents
func (h *Handlers) List(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	docs, err := h.Service.List(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return err
	}
	return response.Success(c, "Documents fetched", docs, fiber.Map{"count": len(docs)})
}

// Upload POST /api/v1/communities/:id/documents (multipart: file, type)
func (h *Handlers) Upload(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("file")
	if err != nil {
		return response.Error(c, docsvc.ErrFileRequired.Error(), fiber.StatusBadRequest, nil)
	}
	f, err := fh.Open()
	if err != nil {
		log.Error().Err(err).Str("trace_id", middleware.GetTraceID(c)).Msg("documents: open upload failed")
		return response.Error(c, "Failed to read uploaded file", fiber.StatusBadRequest, nil)
	}
	defer f.Close()

	doc, err := h.Service.Upload(c.UserContext(), sess, c.Params("id"), docsvc.Upload{
		FileName: fh.Filename,
		Size:     fh.Size,
		Type:     c.FormValue("type"),
		Content:  f,
	})
	if err != nil {
		var enumErr *domain.EnumError
		switch {
		case errors.Is(err, docsvc.ErrFileRequired), errors.As(err, &enumErr):
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		case errors.Is(err, docsvc.ErrFileTooLarge):
			return response.Error(c, err.Error(), fiber.StatusRequestEntityTooLarge, nil)
		}
		return err
	}
	return response.SuccessCreated(c, "Document uploaded", doc, nil)
}

// Delete DELETE /api/v1/communities/:id/documents/:documentId
func (h *Handlers) Delete(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	documentID := c.Params("documentId")
	if err := h.Service.Delete(c.UserContext(), sess, c.Params("id"), documentID); err != nil {
		if errors.Is(err, docsvc.ErrDocumentIDEmpty) {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		return err
	}
	return response.Success(c, "Document deleted", fiber.Map{"documentId": documentID}, nil)
}
