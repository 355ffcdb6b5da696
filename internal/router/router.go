// internal/router/router.go
package router

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/user/metareply/internal/debounce"
	"github.com/user/metareply/internal/respond"
	"github.com/user/metareply/internal/types"
)

// CommentDelays holds the scheduling window for one-shot comment replies.
type CommentDelays struct {
	Min    time.Duration
	Max    time.Duration
	Expiry time.Duration
}

// DefaultCommentDelays returns the production windows: 60–120s delay with a
// 10 minute expiry.
func DefaultCommentDelays() CommentDelays {
	return CommentDelays{
		Min:    60 * time.Second,
		Max:    120 * time.Second,
		Expiry: 600 * time.Second,
	}
}

// Router translates normalized webhook events into debounce-scheduler calls
// (direct messages) or immediate delayed-reply schedules (comments).
type Router struct {
	debounce   *debounce.Scheduler
	backend    types.TaskBackend
	classifier types.Classifier
	responses  *respond.Service
	tokens     types.TokenResolver
	delays     CommentDelays

	// StopBatchOnSelfComment makes a self-comment abort the remainder of the
	// delivery batch instead of just skipping the one event. Off by default;
	// the skip-only behavior is the safer of the two observed in production.
	StopBatchOnSelfComment bool
}

// New creates a Router over the given collaborators.
func New(
	deb *debounce.Scheduler,
	backend types.TaskBackend,
	classifier types.Classifier,
	responses *respond.Service,
	tokens types.TokenResolver,
	delays CommentDelays,
) *Router {
	return &Router{
		debounce:   deb,
		backend:    backend,
		classifier: classifier,
		responses:  responses,
		tokens:     tokens,
		delays:     delays,
	}
}

// HandleInboundEvents routes one verified webhook delivery's worth of
// normalized events. Signature verification and payload parsing happen
// upstream.
func (r *Router) HandleInboundEvents(events []types.Event) {
	for _, event := range events {
		switch event.Type {
		case types.EventDirectMessage:
			r.handleDM(event.DM)
		case types.EventComment:
			if stop := r.handleComment(event.Comment); stop {
				return
			}
		default:
			slog.Warn("unknown event type", "type", event.Type)
		}
	}
}

func (r *Router) handleDM(dm *types.DirectMessage) {
	if dm == nil {
		return
	}
	if dm.IsEcho {
		// The account's own outgoing message reflected back; never buffered.
		slog.Debug("ignoring echo message", "sender_id", dm.SenderID)
		return
	}

	key := types.NewConversationKey(dm.SenderID, dm.RecipientID)
	r.debounce.OnNewMessage(key, *dm, dm.RecipientID)
}

// handleComment returns true when batch processing should stop (only
// possible with StopBatchOnSelfComment set).
func (r *Router) handleComment(c *types.Comment) bool {
	if c == nil {
		return false
	}

	if !r.tokens.Has(c.ToID) {
		slog.Warn("comment for unconfigured account, ignoring", "to_id", c.ToID)
		return false
	}

	if c.FromID == c.ToID {
		slog.Info("comment from own account, ignoring", "from_id", c.FromID)
		return r.StopBatchOnSelfComment
	}

	sentiment := r.classifier.Classify(c.Text)
	text := r.responses.CommentDefault(sentiment)

	delay := r.commentDelay()
	r.backend.Schedule("send_delayed_reply", delay, r.delays.Expiry,
		r.responses.CommentCallback(c.CommentID, text, c.ToID))

	slog.Info("scheduled comment reply",
		"comment_id", c.CommentID,
		"account_id", c.ToID,
		"sentiment", sentiment,
		"delay", delay,
	)
	return false
}

func (r *Router) commentDelay() time.Duration {
	min, max := r.delays.Min, r.delays.Max
	if max <= min {
		return min
	}
	return min + rand.N(max-min)
}
