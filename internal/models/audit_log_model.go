package models

import "time"

// AuditLog represents an audit trail event for account governance.
type AuditLog struct {
	ID         string                 `json:"id" firestore:"-"`
	Timestamp  time.Time              `json:"timestamp" firestore:"timestamp"`
	ActorEmail string                 `json:"actorEmail" firestore:"actorEmail"` // Who performed the action
	Action     string                 `json:"action" firestore:"action"`         // e.g., "STAFF_CREATE", "USER_BLOCK"
	TargetType string                 `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	TargetID   string                 `json:"targetId,omitempty" firestore:"targetId,omitempty"`
	Details    map[string]interface{} `json:"details,omitempty" firestore:"details,omitempty"`
}
