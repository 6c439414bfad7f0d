package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/models"
)

// AdminHandler handles account governance endpoints.
type AdminHandler struct {
	adminService core.AdminService
	logger       *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(as core.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{adminService: as, logger: logger}
}

// CreateStaff handles POST /admin/staff
func (h *AdminHandler) CreateStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.CreateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.adminService.CreateStaff(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, user)
}

// RemoveStaff handles DELETE /admin/staff/:email
func (h *AdminHandler) RemoveStaff(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	email := c.Param("email")
	if err := h.adminService.RemoveStaff(c.Request.Context(), actor, email); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, SuccessResponse{Message: "Staff account removed", Data: gin.H{"email": email}})
}

// SetBlocked handles PATCH /admin/users/block/:email
func (h *AdminHandler) SetBlocked(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.BlockUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.adminService.SetBlocked(c.Request.Context(), actor, c.Param("email"), *req.Blocked)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// ChangeRole handles PATCH /admin/users/role/:email
func (h *AdminHandler) ChangeRole(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.ChangeRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	user, err := h.adminService.ChangeRole(c.Request.Context(), actor, c.Param("email"), req.Role)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, user)
}
