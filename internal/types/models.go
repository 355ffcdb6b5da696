// internal/types/models.go
package types

import (
	"time"
)

// EventType tags the variant carried by an Event.
type EventType string

const (
	EventDirectMessage EventType = "direct_message"
	EventComment       EventType = "comment"
)

// DirectMessage is one inbound messaging event from the platform.
// IsEcho marks the account's own outgoing message reflected back; echoes are
// never buffered or responded to.
type DirectMessage struct {
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Text        string    `json:"text"`
	MessageID   string    `json:"message_id"`
	IsEcho      bool      `json:"is_echo"`
	ReceivedAt  time.Time `json:"received_at"`
}

// Comment is one inbound comment event on a media post.
type Comment struct {
	CommentID    string    `json:"comment_id"`
	Text         string    `json:"text"`
	MediaID      string    `json:"media_id"`
	MediaType    string    `json:"media_type,omitempty"`
	FromUsername string    `json:"from_username,omitempty"`
	FromID       string    `json:"from_id"`
	ToID         string    `json:"to_id"`
	ReceivedAt   time.Time `json:"received_at"`
}

// Event is the tagged union of normalized webhook occurrences. Exactly one
// of DM and Comment is non-nil, selected by Type.
type Event struct {
	Type    EventType      `json:"type"`
	DM      *DirectMessage `json:"dm,omitempty"`
	Comment *Comment       `json:"comment,omitempty"`
}

// Snapshot is an immutable copy of conversation buffers captured at schedule
// time. Scheduled tasks read their snapshot instead of live scheduler state,
// so a deferred consumer never observes a half-mutated buffer.
type Snapshot map[ConversationKey][]DirectMessage

// Sentiment is the output of the text classifier. Neutral text folds into
// Negative so it routes to the more careful default responses.
type Sentiment string

const (
	SentimentPositive Sentiment = "Positive"
	SentimentNegative Sentiment = "Negative"
)

// TaskStatus is the lifecycle state of a scheduled task.
type TaskStatus int32

const (
	TaskScheduled TaskStatus = iota
	TaskFired
	TaskCancelled
	TaskExpired
)

func (s TaskStatus) String() string {
	switch s {
	case TaskScheduled:
		return "scheduled"
	case TaskFired:
		return "fired"
	case TaskCancelled:
		return "cancelled"
	case TaskExpired:
		return "expired"
	}
	return "unknown"
}
