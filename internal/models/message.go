package models

import "time"

// TimestampLayout is the display format used for message timestamps on the wire.
const TimestampLayout = "Jan. 02, 2006, 03:04 PM"

// Message represents a chat message about an item between two users.
type Message struct {
	ID                 int64     `db:"id" json:"id"`
	SenderID           int       `db:"sender_id" json:"sender_id"`
	RecipientID        int       `db:"recipient_id" json:"recipient_id"`
	ItemID             int       `db:"item_id" json:"item_id"`
	Content            string    `db:"content" json:"content"`
	ImagePath          *string   `db:"image_path" json:"image,omitempty"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	IsRead             bool      `db:"is_read" json:"is_read"`
	DeletedBySender    bool      `db:"deleted_by_sender" json:"-"`
	DeletedByRecipient bool      `db:"deleted_by_recipient" json:"-"`
}

// NewMessage carries the caller-supplied fields of a message before it is stored.
type NewMessage struct {
	SenderID    int
	RecipientID int
	ItemID      int
	Content     string
	ImagePath   *string
}

// VisibleTo reports whether the message is still shown to userID.
func (m Message) VisibleTo(userID int) bool {
	switch userID {
	case m.SenderID:
		return !m.DeletedBySender
	case m.RecipientID:
		return !m.DeletedByRecipient
	}
	return false
}

// Counterpart returns the other participant relative to userID.
func (m Message) Counterpart(userID int) int {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// ReadScope narrows a mark-read operation. Zero values mean "any".
type ReadScope struct {
	ItemID   int
	SenderID int
	UpTo     time.Time
}

// InboundFrame is what a websocket client sends to submit a message.
type InboundFrame struct {
	Message     string  `json:"message"`
	SenderID    int     `json:"sender_id"`
	RecipientID int     `json:"recipient_id"`
	ItemID      int     `json:"item_id"`
	Image       *string `json:"image,omitempty"`
}

// OutboundFrame is relayed to every subscriber of a conversation room.
type OutboundFrame struct {
	Message        string  `json:"message"`
	SenderID       int     `json:"sender_id"`
	SenderUsername string  `json:"sender_username"`
	Timestamp      string  `json:"timestamp"`
	MessageID      int64   `json:"message_id"`
	Image          *string `json:"image,omitempty"`
}

// ErrorFrame is sent back to the originating connection only.
type ErrorFrame struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}
