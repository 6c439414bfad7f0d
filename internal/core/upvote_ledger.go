package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"reportify-backend-go/internal/db"
	"reportify-backend-go/internal/metrics"
	"reportify-backend-go/internal/models"
)

type upvoteLedger struct {
	issueRepo db.IssueRepository
	events    EventPublisher
	logger    *zap.Logger
}

// NewUpvoteLedger creates an UpvoteLedger over issueRepo.
func NewUpvoteLedger(ir db.IssueRepository, events EventPublisher, logger *zap.Logger) UpvoteLedger {
	if events == nil {
		events = NoopPublisher{}
	}
	return &upvoteLedger{issueRepo: ir, events: events, logger: logger}
}

// Upvote adds actor to the issue's upvote set. Existence, self-vote and
// duplicate checks run in that order on the snapshot that is written, so two
// concurrent votes by the same citizen cannot both succeed.
func (l *upvoteLedger) Upvote(ctx context.Context, actor Actor, issueID string) (*models.Issue, error) {
	if err := Authorize(actor, CapUpvoteIssue, nil); err != nil {
		metrics.RecordUpvote("forbidden")
		return nil, err
	}

	updated, err := l.issueRepo.Update(ctx, issueID, func(issue *models.Issue) error {
		if issue.CitizenEmail == actor.Email {
			return ErrSelfVote
		}
		if issue.HasUpvoted(actor.Email) {
			return fmt.Errorf("%w: already upvoted", ErrDuplicate)
		}
		issue.Upvotes = append(issue.Upvotes, actor.Email)
		issue.UpvoteCount = len(issue.Upvotes)
		return nil
	})
	if err != nil {
		metrics.RecordUpvote(upvoteResult(err))
		return nil, storeError(err, "issue")
	}

	metrics.RecordUpvote("ok")
	publish(ctx, l.events, l.logger, Event{Type: EventIssueUpvoted, SubjectID: issueID, ActorEmail: actor.Email,
		Data: map[string]interface{}{"upvoteCount": updated.UpvoteCount}})
	return updated, nil
}

func upvoteResult(err error) string {
	switch {
	case errors.Is(err, db.ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrSelfVote):
		return "self_vote"
	case errors.Is(err, ErrDuplicate):
		return "duplicate"
	}
	return "error"
}
