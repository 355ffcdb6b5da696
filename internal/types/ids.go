// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type ConversationKey string
type TaskID string
type DeliveryID string

func NewTaskID() TaskID {
	return TaskID(uuid.New().String())
}

func NewDeliveryID() DeliveryID {
	return DeliveryID(uuid.New().String())
}

// NewConversationKey derives the buffering-slot identifier for a
// sender/recipient pair. The concatenation is order-sensitive: A messaging B
// and B messaging A are separate conversations.
func NewConversationKey(senderID, recipientID string) ConversationKey {
	return ConversationKey(senderID + "_" + recipientID)
}
