package core

import (
	"fmt"

	"reportify-backend-go/internal/models"
)

// transitions is the issue state machine. Every status change, whoever
// requests it, is checked against this table.
var transitions = map[models.IssueStatus][]models.IssueStatus{
	models.StatusPending:    {models.StatusInProgress, models.StatusRejected},
	models.StatusInProgress: {models.StatusWorking},
	models.StatusWorking:    {models.StatusResolved},
	models.StatusResolved:   {models.StatusClosed},
}

// targetCapability is the authority needed to move an issue into a status.
var targetCapability = map[models.IssueStatus]Capability{
	models.StatusInProgress: CapAdvanceIssue,
	models.StatusWorking:    CapAdvanceIssue,
	models.StatusResolved:   CapAdvanceIssue,
	models.StatusRejected:   CapRejectIssue,
	models.StatusClosed:     CapCloseIssue,
}

var defaultTransitionMessages = map[models.IssueStatus]string{
	models.StatusInProgress: "Issue marked as in-progress by staff",
	models.StatusWorking:    "Staff started working on the issue",
	models.StatusResolved:   "Issue marked as resolved by staff",
	models.StatusRejected:   "Issue rejected by admin",
	models.StatusClosed:     "Issue closed",
}

// NextStatuses lists the statuses reachable from from in one step.
func NextStatuses(from models.IssueStatus) []models.IssueStatus {
	return append([]models.IssueStatus(nil), transitions[from]...)
}

// CanTransition reports whether from -> to is an edge of the state machine.
func CanTransition(from, to models.IssueStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns ErrInvalidTransition unless from -> to is legal.
func ValidateTransition(from, to models.IssueStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// RequiredCapability returns the capability that authorizes entering to.
// Statuses that can never be entered by request report false.
func RequiredCapability(to models.IssueStatus) (Capability, bool) {
	c, ok := targetCapability[to]
	return c, ok
}

// IsValidWalk reports whether a timeline follows the state machine: it starts
// at pending and every status change is a legal edge. Consecutive entries with
// the same status are annotations (assignment, boost) and are allowed.
func IsValidWalk(timeline []models.TimelineEntry) bool {
	if len(timeline) == 0 || timeline[0].Status != models.StatusPending {
		return false
	}
	for i := 1; i < len(timeline); i++ {
		prev, cur := timeline[i-1].Status, timeline[i].Status
		if prev == cur {
			continue
		}
		if !CanTransition(prev, cur) {
			return false
		}
	}
	return true
}

func transitionMessage(to models.IssueStatus, message string) string {
	if message != "" {
		return message
	}
	return defaultTransitionMessages[to]
}
