package models

import "time"

// Message represents a direct message between two accounts
type Message struct {
	ID         string    `json:"_id"`
	SenderID   string    `json:"sender"`
	ReceiverID string    `json:"receiver"`
	Content    string    `json:"content"`
	Read       bool      `json:"read"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Participant is the slice of an account shown next to a message
type Participant struct {
	ID             string `json:"_id"`
	Name           string `json:"name"`
	ProfilePicture string `json:"profilePicture"`
}

// MessageView includes sender and receiver info for display
type MessageView struct {
	ID        string      `json:"_id"`
	Sender    Participant `json:"sender"`
	Receiver  Participant `json:"receiver"`
	Content   string      `json:"content"`
	Read      bool        `json:"read"`
	CreatedAt time.Time   `json:"createdAt"`
}

// ConversationRow is what the store aggregates per counterpart
type ConversationRow struct {
	CounterpartID string
	LastMessage   Message
	UnreadCount   int
}

// Conversation represents a chat thread with another account
type Conversation struct {
	User        Participant  `json:"user"`
	LastMessage *MessageView `json:"lastMessage,omitempty"`
	UnreadCount int          `json:"unreadCount"`
}

// AsParticipant converts Account to Participant
func (a *Account) AsParticipant() Participant {
	return Participant{ID: a.ID, Name: a.Name, ProfilePicture: a.ProfilePicture}
}

// View populates m with the given sender and receiver
func (m *Message) View(sender, receiver Participant) MessageView {
	return MessageView{
		ID:        m.ID,
		Sender:    sender,
		Receiver:  receiver,
		Content:   m.Content,
		Read:      m.Read,
		CreatedAt: m.CreatedAt,
	}
}
