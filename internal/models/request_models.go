package models

// RegisterUserRequest is the body of POST /users. The email always comes from
// the verified identity token, never from the body.
type RegisterUserRequest struct {
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// CreateIssueRequest represents the request body for filing a new issue.
type CreateIssueRequest struct {
	Title       string `json:"title" binding:"required"`
	Description string `json:"description" binding:"required"`
	Category    string `json:"category" binding:"required"`
	Location    string `json:"location" binding:"required"`
	Image       string `json:"image,omitempty"`
}

// UpdateIssueRequest represents the request body for editing a pending issue.
// Pointers distinguish "not provided" from empty values.
type UpdateIssueRequest struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Location    *string `json:"location,omitempty"`
	Image       *string `json:"image,omitempty"`
}

// StatusChangeRequest is used by staff advance, admin reject and close.
type StatusChangeRequest struct {
	Status  IssueStatus `json:"status"`
	Message string      `json:"message,omitempty"`
}

// AssignStaffRequest represents the request body for PATCH /admin/issues/assign/:id.
type AssignStaffRequest struct {
	StaffEmail string `json:"staffEmail" binding:"required"`
}

// CreateStaffRequest represents the request body for POST /admin/staff.
type CreateStaffRequest struct {
	Email    string `json:"email" binding:"required"`
	Name     string `json:"name,omitempty"`
	PhotoURL string `json:"photoURL,omitempty"`
}

// BlockUserRequest toggles the blocked flag of an account.
type BlockUserRequest struct {
	Blocked *bool `json:"blocked" binding:"required"`
}

// ChangeRoleRequest sets the role of an account.
type ChangeRoleRequest struct {
	Role Role `json:"role" binding:"required"`
}

// PaymentSuccessRequest carries the provider session id returned to the client
// after checkout.
type PaymentSuccessRequest struct {
	SessionID string `json:"sessionId" binding:"required"`
}

// BoostCheckoutRequest starts a boost checkout for an issue.
type BoostCheckoutRequest struct {
	IssueID string `json:"issueId" binding:"required"`
}
