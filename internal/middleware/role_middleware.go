package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/models"
)

// RequireRole loads the caller's account and rejects the request unless the
// account holds one of roles. With no roles any registered account passes.
// It must run after VerifyToken. On success the core.Actor and the account are
// stored under ContextKeyActor and ContextKeyUser.
func RequireRole(authority core.RoleAuthority, logger *zap.Logger, roles ...models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		email := c.GetString(ContextKeyEmail)

		var (
			user *models.User
			err  error
		)
		if len(roles) == 0 {
			user, err = authority.Resolve(c.Request.Context(), email)
		} else {
			user, err = authority.RequireRole(c.Request.Context(), email, roles...)
		}
		if err != nil {
			switch {
			case errors.Is(err, core.ErrUnauthorized):
				c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Message: "Authentication required"})
			case errors.Is(err, core.ErrForbidden):
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResponse{Message: "Forbidden", Details: err.Error()})
			default:
				logger.Error("role lookup failed", zap.String("email", email), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Message: "An unexpected internal server error occurred."})
			}
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyActor, core.ActorFromUser(user))
		c.Next()
	}
}

// ActorFromContext returns the actor stored by RequireRole.
func ActorFromContext(c *gin.Context) (core.Actor, bool) {
	v, ok := c.Get(ContextKeyActor)
	if !ok {
		return core.Actor{}, false
	}
	actor, ok := v.(core.Actor)
	return actor, ok
}
