package api

import (
	"reportify-backend-go/internal/core"
	"reportify-backend-go/internal/models"
)

// ErrorResponse is a generic structure for returning errors via API.
type ErrorResponse struct {
	Message string `json:"message"`           // A high-level error message
	Details string `json:"details,omitempty"` // More specific details about the error, if available
}

// SuccessResponse is a generic structure for simple success messages.
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RegisterUserResponse answers POST /users.
type RegisterUserResponse struct {
	Exists  bool         `json:"exists"`
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// UserProfileResponse is the caller's account plus the issues they may still file.
// RemainingQuota is -1 for unlimited.
type UserProfileResponse struct {
	*models.User
	RemainingQuota int `json:"remainingQuota"`
}

// RoleResponse answers GET /users/role.
type RoleResponse struct {
	Role models.Role `json:"role"`
}

// CheckoutSessionResponse returns the provider checkout session to redirect to.
type CheckoutSessionResponse struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}

// PaymentConfirmationResponse answers the payment-success callbacks and the webhook.
type PaymentConfirmationResponse struct {
	AlreadyProcessed bool                  `json:"alreadyProcessed"`
	Outcome          core.ReconcileOutcome `json:"outcome"`
	Payment          *models.Payment       `json:"payment,omitempty"`
	User             *models.User          `json:"user,omitempty"`
	Issue            *models.Issue         `json:"issue,omitempty"`
}

func toConfirmation(result *core.ReconcileResult) PaymentConfirmationResponse {
	return PaymentConfirmationResponse{
		AlreadyProcessed: result.Outcome == core.OutcomeAlreadyProcessed,
		Outcome:          result.Outcome,
		Payment:          result.Payment,
		User:             result.User,
		Issue:            result.Issue,
	}
}
