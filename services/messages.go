package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"myfeedsave/database"
	"myfeedsave/models"
)

// Messages handles direct messages between friends
type Messages struct {
	store database.Store
	log   logrus.FieldLogger
}

func NewMessages(store database.Store, log logrus.FieldLogger) *Messages {
	return &Messages{store: store, log: log}
}

// Send stores a message from senderID to receiverID. Both must be friends.
func (s *Messages) Send(ctx context.Context, senderID, receiverID, content string) (*models.MessageView, error) {
	if receiverID == "" || strings.TrimSpace(content) == "" {
		return nil, newError(MissingFields, "Receiver ID and content are required")
	}

	sender, err := s.store.GetAccountByID(ctx, senderID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "Sender not found")
	}
	if err != nil {
		return nil, serverError("Failed to send message", err)
	}

	if !sender.IsFriend(receiverID) {
		return nil, newError(Forbidden, "You can only message your friends")
	}

	receiver, err := s.store.GetAccountByID(ctx, receiverID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, "Receiver not found")
	}
	if err != nil {
		return nil, serverError("Failed to send message", err)
	}

	msg := &models.Message{SenderID: senderID, ReceiverID: receiverID, Content: content}
	if err := s.store.CreateMessage(ctx, msg); err != nil {
		return nil, serverError("Failed to send message", err)
	}

	s.log.WithFields(logrus.Fields{"sender": senderID, "receiver": receiverID, "message_id": msg.ID}).Debug("Message sent")
	view := msg.View(sender.AsParticipant(), receiver.AsParticipant())
	return &view, nil
}

// GetConversation returns the messages between userID and otherID, oldest
// first, and marks the returned ones otherID sent to userID as read.
// Messages arriving after the fetch stay unread.
func (s *Messages) GetConversation(ctx context.Context, userID, otherID string) ([]models.MessageView, error) {
	msgs, err := s.store.GetMessagesBetween(ctx, userID, otherID)
	if err != nil {
		return nil, serverError("Failed to fetch messages", err)
	}

	var unread []string
	for _, m := range msgs {
		if m.SenderID == otherID && m.ReceiverID == userID && !m.Read {
			unread = append(unread, m.ID)
		}
	}
	marked, err := s.store.MarkMessagesAsRead(ctx, otherID, userID, unread)
	if err != nil {
		return nil, serverError("Failed to fetch messages", err)
	}
	if marked > 0 {
		s.log.WithFields(logrus.Fields{"user_id": userID, "other_id": otherID, "marked": marked}).Debug("Messages marked as read")
	}

	people, err := s.participants(ctx, []string{userID, otherID})
	if err != nil {
		return nil, err
	}

	views := make([]models.MessageView, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		if m.ReceiverID == userID {
			m.Read = true
		}
		views = append(views, m.View(people.get(m.SenderID), people.get(m.ReceiverID)))
	}
	return views, nil
}

// ListConversations returns one entry per counterpart userID has exchanged
// messages with, most recent conversation first
func (s *Messages) ListConversations(ctx context.Context, userID string) ([]models.Conversation, error) {
	rows, err := s.store.GetConversations(ctx, userID)
	if err != nil {
		return nil, serverError("Failed to fetch conversations", err)
	}

	ids := make([]string, 0, len(rows)+1)
	ids = append(ids, userID)
	for _, row := range rows {
		ids = append(ids, row.CounterpartID)
	}
	people, err := s.participants(ctx, ids)
	if err != nil {
		return nil, err
	}

	conversations := make([]models.Conversation, 0, len(rows))
	for _, row := range rows {
		counterpart, ok := people[row.CounterpartID]
		if !ok {
			// Account deleted since; nothing to show
			continue
		}
		last := row.LastMessage.View(people.get(row.LastMessage.SenderID), people.get(row.LastMessage.ReceiverID))
		conversations = append(conversations, models.Conversation{
			User:        counterpart,
			LastMessage: &last,
			UnreadCount: row.UnreadCount,
		})
	}
	return conversations, nil
}

type participants map[string]models.Participant

// get falls back to a bare id for accounts that no longer exist
func (p participants) get(id string) models.Participant {
	if v, ok := p[id]; ok {
		return v
	}
	return models.Participant{ID: id}
}

func (s *Messages) participants(ctx context.Context, ids []string) (participants, error) {
	summaries, err := s.store.GetAccountSummaries(ctx, ids)
	if err != nil {
		return nil, serverError("Failed to load users", err)
	}
	out := make(participants, len(summaries))
	for _, a := range summaries {
		out[a.ID] = models.Participant{ID: a.ID, Name: a.Name, ProfilePicture: a.ProfilePicture}
	}
	return out, nil
}
