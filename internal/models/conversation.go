package models

import "time"

// ConversationSummary is one sidebar entry of a user's inbox.
type ConversationSummary struct {
	Key                  string    `json:"conversation_id"`
	ItemID               int       `json:"item_id"`
	ItemTitle            string    `json:"item_title,omitempty"`
	ItemPhoto            string    `json:"item_photo,omitempty"`
	CounterpartID        int       `json:"counterpart_id"`
	CounterpartUsername  string    `json:"counterpart_username,omitempty"`
	CounterpartName      string    `json:"counterpart_name,omitempty"`
	CounterpartAvatarURL string    `json:"counterpart_avatar_url,omitempty"`
	LastMessage          Message   `json:"last_message"`
	LastMessageAt        time.Time `json:"last_message_at"`
	UnreadCount          int       `json:"unread_count"`
}

// ConversationDetail is the active thread with display metadata.
type ConversationDetail struct {
	Key         string    `json:"conversation_id"`
	Item        Item      `json:"item"`
	Counterpart User      `json:"counterpart"`
	Messages    []Message `json:"messages"`
}

// Empty reports whether the thread has no visible messages yet.
func (d ConversationDetail) Empty() bool {
	return len(d.Messages) == 0
}

// InboxView is everything the inbox page needs in one response.
type InboxView struct {
	Conversations []ConversationSummary `json:"conversations"`
	Active        *ConversationDetail   `json:"active,omitempty"`
	UnreadCount   int                   `json:"unread_count"`
}
