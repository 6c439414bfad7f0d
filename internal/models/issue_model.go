package models

import "time"

// IssueStatus is the lifecycle state of an issue.
type IssueStatus string

const (
	StatusPending    IssueStatus = "pending"
	StatusInProgress IssueStatus = "in-progress"
	StatusWorking    IssueStatus = "working"
	StatusResolved   IssueStatus = "resolved"
	StatusClosed     IssueStatus = "closed"
	StatusRejected   IssueStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s IssueStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusWorking, StatusResolved, StatusClosed, StatusRejected:
		return true
	}
	return false
}

// IsTerminal returns true for statuses with no outgoing transitions.
func (s IssueStatus) IsTerminal() bool {
	return s == StatusClosed || s == StatusRejected
}

// Priority of an issue in default listings.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// TimelineEntry is one append-only record in an issue's status history.
// UpdatedBy holds the role of the actor, not their email.
type TimelineEntry struct {
	Status    IssueStatus `json:"status" firestore:"status"`
	Message   string      `json:"message" firestore:"message"`
	UpdatedBy Role        `json:"updatedBy" firestore:"updatedBy"`
	Date      time.Time   `json:"date" firestore:"date"`
}

// Issue represents a civic issue reported by a citizen.
type Issue struct {
	ID            string          `json:"id" firestore:"-"` // Document ID, auto-generated
	Title         string          `json:"title" firestore:"title"`
	Description   string          `json:"description" firestore:"description"`
	Category      string          `json:"category" firestore:"category"`
	Location      string          `json:"location" firestore:"location"`
	Image         string          `json:"image,omitempty" firestore:"image,omitempty"`
	CitizenEmail  string          `json:"citizenEmail" firestore:"citizenEmail"`
	Status        IssueStatus     `json:"status" firestore:"status"`
	Priority      Priority        `json:"priority" firestore:"priority"`
	IsBoosted     bool            `json:"isBoosted" firestore:"isBoosted"`
	AssignedStaff string          `json:"assignedStaff,omitempty" firestore:"assignedStaff,omitempty"`
	Upvotes       []string        `json:"upvotes" firestore:"upvotes"`
	UpvoteCount   int             `json:"upvoteCount" firestore:"upvoteCount"`
	Timeline      []TimelineEntry `json:"timeline" firestore:"timeline"`
	CreatedAt     time.Time       `json:"createdAt" firestore:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt" firestore:"updatedAt"`
}

// HasUpvoted reports whether email is already in the upvote set.
func (i *Issue) HasUpvoted(email string) bool {
	for _, e := range i.Upvotes {
		if e == email {
			return true
		}
	}
	return false
}

// AppendTimeline records a new entry at the end of the timeline.
func (i *Issue) AppendTimeline(status IssueStatus, message string, by Role, at time.Time) {
	i.Timeline = append(i.Timeline, TimelineEntry{
		Status:    status,
		Message:   message,
		UpdatedBy: by,
		Date:      at,
	})
}

// Clone returns a deep copy of the issue.
func (i *Issue) Clone() *Issue {
	if i == nil {
		return nil
	}
	c := *i
	if i.Upvotes != nil {
		c.Upvotes = append([]string(nil), i.Upvotes...)
	}
	if i.Timeline != nil {
		c.Timeline = append([]TimelineEntry(nil), i.Timeline...)
	}
	return &c
}
