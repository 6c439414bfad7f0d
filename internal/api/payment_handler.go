package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/middleware"
	"reportify-backend-go/internal/models"
	"reportify-backend-go/internal/payments"
)

// PaymentHandler handles checkout, payment confirmation and the provider webhook.
type PaymentHandler struct {
	provider   payments.Provider
	reconciler core.PaymentReconciler
	logger     *zap.Logger
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(provider payments.Provider, reconciler core.PaymentReconciler, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{provider: provider, reconciler: reconciler, logger: logger}
}

// CreatePremiumCheckout handles POST /create-checkout-session
func (h *PaymentHandler) CreatePremiumCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	if err := core.Authorize(actor, core.CapBuyPremium, nil); err != nil {
		respondError(c, h.logger, err)
		return
	}
	if user, ok := c.Get(middleware.ContextKeyUser); ok && user.(*models.User).IsPremium {
		respondError(c, h.logger, fmt.Errorf("%w: account is already premium", core.ErrInvalid))
		return
	}

	h.startCheckout(c, payments.CheckoutRequest{Kind: models.PaymentPremium, Email: actor.Email})
}

// CreateBoostCheckout handles POST /create-boost-checkout-session
func (h *PaymentHandler) CreateBoostCheckout(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.BoostCheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	issue, err := h.reconciler.CheckBoostEligibility(c.Request.Context(), actor, req.IssueID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.startCheckout(c, payments.CheckoutRequest{
		Kind:       models.PaymentBoost,
		Email:      actor.Email,
		IssueID:    issue.ID,
		IssueTitle: issue.Title,
	})
}

func (h *PaymentHandler) startCheckout(c *gin.Context, req payments.CheckoutRequest) {
	session, err := h.provider.CreateCheckoutSession(c.Request.Context(), req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, CheckoutSessionResponse{SessionID: session.ID, URL: session.URL})
}

// ConfirmPremium handles POST /payment-success
func (h *PaymentHandler) ConfirmPremium(c *gin.Context) {
	h.confirm(c, models.PaymentPremium)
}

// ConfirmBoost handles POST /boost-payment-success
func (h *PaymentHandler) ConfirmBoost(c *gin.Context) {
	h.confirm(c, models.PaymentBoost)
}

// confirm retrieves the session from the provider and reconciles it. The
// client only supplies the session id; status, amount and intent id always
// come from the provider.
func (h *PaymentHandler) confirm(c *gin.Context, kind models.PaymentType) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req models.PaymentSuccessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.provider.RetrieveSession(c.Request.Context(), req.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if !session.Paid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Payment not completed", Details: session.PaymentStatus})
		return
	}
	if session.Kind != kind {
		c.JSON(http.StatusBadRequest, ErrorResponse{Message: "Session does not belong to this payment type", Details: string(session.Kind)})
		return
	}
	if !strings.EqualFold(session.Email, actor.Email) {
		c.JSON(http.StatusForbidden, ErrorResponse{Message: "Session belongs to another account"})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), session.PaymentEvent())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toConfirmation(result))
}

// StripeWebhook handles POST /webhooks/stripe. It is public; the provider
// authenticates through the signature header. Rejections that a redelivery
// cannot fix are acknowledged so the provider stops retrying.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	payload, err := c.GetRawData()
	if err != nil {
		badRequest(c, err)
		return
	}

	session, err := h.provider.ParseWebhook(payload, c.GetHeader("Stripe-Signature"))
	if errors.Is(err, payments.ErrPayload) {
		// Signed by the provider but unreadable; acknowledge so it is not redelivered.
		h.logger.Error("webhook payload dropped", zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
		return
	}
	if err != nil {
		h.logger.Warn("webhook rejected", zap.Error(err))
		respondError(c, h.logger, err)
		return
	}
	if session == nil || !session.Paid() {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	result, err := h.reconciler.Reconcile(c.Request.Context(), session.PaymentEvent())
	if err != nil {
		if errors.Is(err, core.ErrInvalid) || errors.Is(err, core.ErrNotFound) {
			h.logger.Warn("webhook payment not applicable",
				zap.String("session_id", session.ID),
				zap.String("payment_intent_id", session.PaymentIntentID),
				zap.Error(err))
			c.JSON(http.StatusOK, gin.H{"received": true, "applied": false})
			return
		}
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, toConfirmation(result))
}

// ListPayments handles GET /payments
func (h *PaymentHandler) ListPayments(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	list, err := h.reconciler.ListPayments(c.Request.Context(), actor.Email)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if list == nil {
		list = []*models.Payment{}
	}
	c.JSON(http.StatusOK, list)
}
