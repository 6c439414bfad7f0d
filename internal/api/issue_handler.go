package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/models"
)

// IssueHandler handles issue endpoints for citizens, staff and admins. Every
// permission decision is made by the core services.
type IssueHandler struct {
	issueService core.IssueService
	upvotes      core.UpvoteLedger
	logger       *zap.Logger
}

// NewIssueHandler creates a new IssueHandler.
func NewIssueHandler(is core.IssueService, ul core.UpvoteLedger, logger *zap.Logger) *IssueHandler {
	return &IssueHandler{issueService: is, upvotes: ul, logger: logger}
}

// CreateIssue handles POST /issues
func (h *IssueHandler) CreateIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.CreateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	issue, err := h.issueService.CreateIssue(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, issue)
}

// GetIssue handles GET /issues/:id and GET /staff/issues/:id
func (h *IssueHandler) GetIssue(c *gin.Context) {
	issue, err := h.issueService.GetIssue(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// UpdateIssue handles PATCH /issues/:id
func (h *IssueHandler) UpdateIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.UpdateIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	issue, err := h.issueService.UpdateIssue(c.Request.Context(), actor, c.Param("id"), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// DeleteIssue handles DELETE /issues/:id
func (h *IssueHandler) DeleteIssue(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	issueID := c.Param("id")
	if err := h.issueService.DeleteIssue(c.Request.Context(), actor, issueID); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Issue deleted", Data: gin.H{"id": issueID}})
}

// Upvote handles PATCH /issues/upvote/:id
func (h *IssueHandler) Upvote(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	issue, err := h.upvotes.Upvote(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// CloseIssue handles PATCH /issues/close/:id
func (h *IssueHandler) CloseIssue(c *gin.Context) {
	h.transitionTo(c, models.StatusClosed)
}

// RejectIssue handles PATCH /admin/issues/reject/:id
func (h *IssueHandler) RejectIssue(c *gin.Context) {
	h.transitionTo(c, models.StatusRejected)
}

// ChangeStatus handles PATCH /staff/issues/status/:id. The target status comes
// from the body.
func (h *IssueHandler) ChangeStatus(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Invalid status", Details: string(req.Status)})
		return
	}

	issue, err := h.issueService.Transition(c.Request.Context(), actor, c.Param("id"), req.Status, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// AssignStaff handles PATCH /admin/issues/assign/:id
func (h *IssueHandler) AssignStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.AssignStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	issue, err := h.issueService.AssignStaff(c.Request.Context(), actor, c.Param("id"), req.StaffEmail)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}

// transitionTo moves the issue to a fixed status. The body is optional and
// may only carry a message.
func (h *IssueHandler) transitionTo(c *gin.Context, to models.IssueStatus) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.StatusChangeRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}

	issue, err := h.issueService.Transition(c.Request.Context(), actor, c.Param("id"), to, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, issue)
}
