// internal/webhook/parse.go
package webhook

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/user/metareply/internal/types"
)

// Meta delivers batched entries: direct messages under "messaging", comment
// notifications under "changes" with field "comments".
type metaPayload struct {
	Entry []metaEntry `json:"entry"`
}

type metaEntry struct {
	ID        string          `json:"id"`
	Time      int64           `json:"time"`
	Messaging []metaMessaging `json:"messaging"`
	Changes   []metaChange    `json:"changes"`
}

type metaMessaging struct {
	Sender    metaIDRef    `json:"sender"`
	Recipient metaIDRef    `json:"recipient"`
	Message   *metaMessage `json:"message"`
}

type metaIDRef struct {
	ID string `json:"id"`
}

type metaMessage struct {
	MID    string `json:"mid"`
	Text   string `json:"text"`
	IsEcho bool   `json:"is_echo"`
}

type metaChange struct {
	Field string           `json:"field"`
	Value metaCommentValue `json:"value"`
}

type metaCommentValue struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Media struct {
		ID               string `json:"id"`
		MediaProductType string `json:"media_product_type"`
	} `json:"media"`
	From struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	} `json:"from"`
}

// ParseEvents normalizes a raw webhook payload into tagged events. Entries
// that carry neither messages nor comment changes contribute nothing; only
// malformed JSON is an error.
func ParseEvents(raw []byte, receivedAt time.Time) ([]types.Event, error) {
	var payload metaPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("parse webhook payload: %w", err)
	}

	var events []types.Event
	for _, entry := range payload.Entry {
		for _, messaging := range entry.Messaging {
			if messaging.Message == nil {
				continue
			}
			events = append(events, types.Event{
				Type: types.EventDirectMessage,
				DM: &types.DirectMessage{
					SenderID:    messaging.Sender.ID,
					RecipientID: messaging.Recipient.ID,
					Text:        messaging.Message.Text,
					MessageID:   messaging.Message.MID,
					IsEcho:      messaging.Message.IsEcho,
					ReceivedAt:  receivedAt,
				},
			})
		}

		for _, change := range entry.Changes {
			if change.Field != "comments" || change.Value.ID == "" {
				continue
			}
			events = append(events, types.Event{
				Type: types.EventComment,
				Comment: &types.Comment{
					CommentID:    change.Value.ID,
					Text:         change.Value.Text,
					MediaID:      change.Value.Media.ID,
					MediaType:    change.Value.Media.MediaProductType,
					FromUsername: change.Value.From.Username,
					FromID:       change.Value.From.ID,
					// Comments carry no recipient; the entry id is the
					// account the comment landed on.
					ToID:       entry.ID,
					ReceivedAt: receivedAt,
				},
			})
		}
	}
	return events, nil
}
