// internal/types/interfaces.go
package types

import (
	"context"
	"time"
)

// Classifier maps text to a coarse sentiment.
type Classifier interface {
	Classify(text string) Sentiment
}

// Responder delivers outbound messages through the platform's API.
type Responder interface {
	SendMessage(ctx context.Context, accessToken, recipientID, text string) error
	SendCommentReply(ctx context.Context, accessToken, commentID, text string) error
}

// TokenResolver resolves account ids to platform access tokens.
type TokenResolver interface {
	// ResolveAccessToken returns the token for the account, or an error
	// wrapping accounts.ErrNoAccessToken if the account is not configured.
	ResolveAccessToken(accountID string) (string, error)
	// Has reports whether the account is configured at all.
	Has(accountID string) bool
}

// TaskCallback is the work bound to a scheduled task. A non-nil error marks
// the task failed and subject to the backend's retry policy.
type TaskCallback func(ctx context.Context) error

// TaskHandle identifies one scheduled task and allows advisory cancellation.
type TaskHandle interface {
	ID() TaskID
	// Cancel requests the task not fire. It returns true if the task
	// transitioned to cancelled, false if it had already fired, expired,
	// or been cancelled. Cancelling a settled task is a no-op, not an error.
	Cancel() bool
	Status() TaskStatus
}

// TaskBackend executes callbacks after a delay on a worker pool. A task that
// has not been admitted to a worker by fireAt+expiry is dropped silently.
type TaskBackend interface {
	Schedule(name string, delay, expiry time.Duration, fn TaskCallback) TaskHandle
}
