// README: Chat message model for the order timeline.
package chat

import (
	"time"

	"ridetrack/internal/types"
)

type SenderType string

const (
	SenderPassenger SenderType = "passenger"
	SenderDriver    SenderType = "driver"
	SenderSystem    SenderType = "system"
)

type MessageType string

const (
	MessageText     MessageType = "text"
	MessageLocation MessageType = "location"
	MessageImage    MessageType = "image"
	MessageSystem   MessageType = "system"
)

type Message struct {
	ID         string
	OrderID    types.ID
	SenderID   types.ID
	SenderType SenderType
	Type       MessageType
	Content    string
	CreatedAt  time.Time
	IsRead     bool
	// ClientNonce is set on optimistic local sends and echoed by the
	// backend, so a later poll of the same message is recognised even
	// if the server assigned a different id.
	ClientNonce string
}

type Page struct {
	Messages    []Message
	HasMore     bool
	UnreadCount int
}
