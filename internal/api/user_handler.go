package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/middleware"
	"reportify-backend-go/internal/models"
)

// UserHandler handles account registration and profile endpoints.
type UserHandler struct {
	userService core.UserService
	authority   core.RoleAuthority
	logger      *zap.Logger
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(us core.UserService, authority core.RoleAuthority, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: us, authority: authority, logger: logger}
}

// Register handles POST /users. Runs behind token verification only, since the
// caller has no account yet.
func (h *UserHandler) Register(c *gin.Context) {
	email := c.GetString(middleware.ContextKeyEmail)
	if email == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Message: "User email not found in context"})
		return
	}

	var req models.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		badRequest(c, err)
		return
	}
	if req.Name == "" {
		req.Name = c.GetString(middleware.ContextKeyDisplayName)
	}
	if req.PhotoURL == "" {
		req.PhotoURL = c.GetString(middleware.ContextKeyPhotoURL)
	}

	user, created, err := h.userService.Register(c.Request.Context(), email, req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, RegisterUserResponse{Exists: true, Message: "User Already Exist", User: user})
		return
	}
	c.JSON(http.StatusCreated, RegisterUserResponse{Message: "User created", User: user})
}

// GetCurrentUser handles GET /users/me.
func (h *UserHandler) GetCurrentUser(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByEmail(c.Request.Context(), actor.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, UserProfileResponse{User: user, RemainingQuota: h.userService.RemainingQuota(user)})
}

// GetRole handles GET /users/role. The role is read fresh from the store.
func (h *UserHandler) GetRole(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	role, err := h.authority.Classify(c.Request.Context(), actor.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, RoleResponse{Role: role})
}

// currentActor returns the actor loaded by middleware.RequireRole, answering
// 401 when it is missing.
func currentActor(c *gin.Context) (core.Actor, bool) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "User not found in context"})
	}
	return actor, ok
}
