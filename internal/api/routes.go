package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/metrics"
	"reportify-backend-go/internal/middleware"
	"reportify-backend-go/internal/models"
	"reportify-backend-go/internal/payments"
)

// Services bundles the core services the handlers depend on.
type Services struct {
	Authority  core.RoleAuthority
	Users      core.UserService
	Issues     core.IssueService
	Upvotes    core.UpvoteLedger
	Reconciler core.PaymentReconciler
	Admin      core.AdminService
	Payments   payments.Provider
}

// SetupRoutes configures all the application routes with their handlers and middleware.
// Global middleware (logging, recovery, metrics, CORS) is applied in main before
// this is called. limiter may be nil.
func SetupRoutes(
	router *gin.Engine,
	logger *zap.Logger,
	verifier middleware.TokenVerifier,
	limiter *middleware.RateLimiter,
	svc Services,
) {
	authMW := middleware.NewAuthMiddleware(verifier, logger)
	rateLimit := func(c *gin.Context) { c.Next() }
	if limiter != nil {
		rateLimit = limiter.Handler()
	}

	userHandler := NewUserHandler(svc.Users, svc.Authority, logger)
	issueHandler := NewIssueHandler(svc.Issues, svc.Upvotes, logger)
	adminHandler := NewAdminHandler(svc.Admin, logger)
	paymentHandler := NewPaymentHandler(svc.Payments, svc.Reconciler, logger)

	// --- Public Endpoints ---
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "Reportify backend is healthy."})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))
	router.GET("/issues/:id", rateLimit, issueHandler.GetIssue)

	// Stripe authenticates webhooks via signature, no token here.
	router.POST("/webhooks/stripe", paymentHandler.StripeWebhook)

	// --- Authenticated Endpoints ---
	authed := router.Group("", authMW.VerifyToken(), rateLimit)
	{
		// POST /users only needs a verified token, the account may not exist yet.
		authed.POST("/users", userHandler.Register)

		account := authed.Group("", middleware.RequireRole(svc.Authority, logger))
		{
			account.GET("/users/me", userHandler.GetCurrentUser)
			account.GET("/users/role", userHandler.GetRole)

			account.POST("/issues", issueHandler.CreateIssue)
			account.PATCH("/issues/:id", issueHandler.UpdateIssue)
			account.DELETE("/issues/:id", issueHandler.DeleteIssue)
			account.PATCH("/issues/upvote/:id", issueHandler.Upvote)
			account.PATCH("/issues/close/:id", issueHandler.CloseIssue)

			account.POST("/create-checkout-session", paymentHandler.CreatePremiumCheckout)
			account.POST("/create-boost-checkout-session", paymentHandler.CreateBoostCheckout)
			account.POST("/payment-success", paymentHandler.ConfirmPremium)
			account.POST("/boost-payment-success", paymentHandler.ConfirmBoost)
			account.GET("/payments", paymentHandler.ListPayments)
		}

		staff := authed.Group("/staff", middleware.RequireRole(svc.Authority, logger, models.RoleStaff))
		{
			staff.GET("/issues/:id", issueHandler.GetIssue)
			staff.PATCH("/issues/status/:id", issueHandler.ChangeStatus)
		}

		admin := authed.Group("/admin", middleware.RequireRole(svc.Authority, logger, models.RoleAdmin))
		{
			admin.PATCH("/issues/assign/:id", issueHandler.AssignStaff)
			admin.PATCH("/issues/reject/:id", issueHandler.RejectIssue)

			admin.POST("/staff", adminHandler.CreateStaff)
			admin.DELETE("/staff/:email", adminHandler.RemoveStaff)
			admin.PATCH("/users/block/:email", adminHandler.SetBlocked)
			admin.PATCH("/users/role/:email", adminHandler.ChangeRole)
		}
	}

	logger.Info("API routes configured successfully.")
}
