package sharing

import (
	"errors"

	sharingsvc "commenergy-backend/internal/application/sharing"
	"commenergy-backend/internal/domain"
	"commenergy-backend/internal/middleware"
	"commenergy-backend/internal/pkg/response"
	"commenergy-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Handlers serves the draft and commit endpoints of a community.
type Handlers struct {
	Service *sharingsvc.Service
}

// EditSharingRequest body of PUT .../draft/contracts/:ccId/sharing.
type EditSharingRequest struct {
	Share *float64 `json:"share" validate:"required,gte=0,lte=1"`
}

// EditFeeRequest body of PUT .../draft/contracts/:ccId/fee. A null fee clears it.
type EditFeeRequest struct {
	CommunityFee           *float64 `json:"communityFee" validate:"omitempty,gte=0"`
	CommunityFeePeriodType string   `json:"communityFeePeriodType"`
}

// Draft GET /api/v1/communities/:id/draft
func (h *Handlers) Draft(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	view, err := h.Service.Draft(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Draft fetched", view, nil)
}

// EditSharing PUT /api/v1/communities/:id/draft/contracts/:ccId/sharing
func (h *Handlers) EditSharing(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req EditSharingRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.ValidationFailed(c, err)
	}
	view, err := h.Service.EditSharing(c.UserContext(), sess, c.Params("id"), c.Params("ccId"), *req.Share)
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Sharing updated in draft", view, nil)
}

// EditFee PUT /api/v1/communities/:id/draft/contracts/:ccId/fee
func (h *Handlers) EditFee(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	var req EditFeeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if err := validation.Struct(req); err != nil {
		return response.ValidationFailed(c, err)
	}
	var period *domain.FeePeriodType
	if req.CommunityFeePeriodType != "" {
		p, err := domain.ParseFeePeriodType(req.CommunityFeePeriodType)
		if err != nil {
			return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
		}
		period = &p
	}
	view, err := h.Service.EditFee(c.UserContext(), sess, c.Params("id"), c.Params("ccId"), req.CommunityFee, period)
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Fee updated in draft", view, nil)
}

// Reset POST /api/v1/communities/:id/draft/reset
func (h *Handlers) Reset(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	view, err := h.Service.Reset(c.UserContext(), sess, c.Params("id"))
	if err != nil {
		return draftError(c, err)
	}
	return response.Success(c, "Draft reset", view, nil)
}

// Commit POST /api/v1/communities/:id/draft/commit
func (h *Handlers) Commit(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	res, err := h.Service.Commit(c.UserContext(), sess, c.Params("id"))
	if errors.Is(err, sharingsvc.ErrNothingToCommit) {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	if errors.Is(err, sharingsvc.ErrDraftUnreadable) {
		return draftError(c, err)
	}
	return commitResponse(c, res, err)
}

// GetCommit GET /api/v1/communities/:id/sharing-commits/:commitId
func (h *Handlers) GetCommit(c *fiber.Ctx) error {
	commitID, err := uuid.Parse(c.Params("commitId"))
	if err != nil {
		return response.Error(c, "Invalid commit id", fiber.StatusBadRequest, nil)
	}
	commit, err := h.Service.GetCommit(c.UserContext(), c.Params("id"), commitID)
	if errors.Is(err, sharingsvc.ErrCommitNotFound) {
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	}
	if err != nil {
		return err
	}
	return response.Success(c, "Sharing commit fetched", commit, nil)
}

// Retry POST /api/v1/communities/:id/sharing-commits/:commitId/retry
func (h *Handlers) Retry(c *fiber.Ctx) error {
	sess, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}
	commitID, err := uuid.Parse(c.Params("commitId"))
	if err != nil {
		return response.Error(c, "Invalid commit id", fiber.StatusBadRequest, nil)
	}
	res, err := h.Service.Retry(c.UserContext(), sess, c.Params("id"), commitID)
	switch {
	case errors.Is(err, sharingsvc.ErrCommitNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, sharingsvc.ErrCommitNotOwned):
		return response.Error(c, err.Error(), fiber.StatusForbidden, nil)
	case errors.Is(err, sharingsvc.ErrRetryStale), errors.Is(err, sharingsvc.ErrDraftUnreadable):
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	}
	return commitResponse(c, res, err)
}

// commitResponse turns a commit outcome into a response. Any failed row makes
// the whole request an error; the per-row results travel in details.
func commitResponse(c *fiber.Ctx, res *sharingsvc.CommitResult, err error) error {
	if err != nil {
		return err
	}
	if res.Commit.Status != domain.CommitSucceeded {
		log.Warn().
			Str("trace_id", middleware.GetTraceID(c)).
			Str("commit_id", res.Commit.CommitID.String()).
			Int("failed", res.Commit.Failed).
			Int("total", res.Commit.Total).
			Msg("sharing: commit had failed rows")
		return response.Error(c, "Some sharing updates failed", fiber.StatusBadGateway, fiber.Map{
			"commit": res.Commit,
			"draft":  res.Draft,
		})
	}
	return response.Success(c, "Sharings committed", res, nil)
}

func draftError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, sharingsvc.ErrRowNotFound):
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case errors.Is(err, sharingsvc.ErrGenerationShareNotEditable):
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case errors.Is(err, sharingsvc.ErrShareOutOfRange), errors.Is(err, sharingsvc.ErrNegativeFee):
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	case errors.Is(err, sharingsvc.ErrDraftUnreadable):
		return response.Error(c, sharingsvc.ErrDraftUnreadable.Error(), fiber.StatusConflict, nil)
	}
	return err
}
