package services

import (
	"context"
	"testing"

	"myfeedsave/database"
	"myfeedsave/models"
)

func TestSend(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "alice@x.io")
	bob := e.register(t, "Bob", "bob@x.io")

	_, err := e.messages.Send(ctx, alice.ID, bob.ID, "hi")
	wantKind(t, err, Forbidden)

	_, err = e.messages.Send(ctx, alice.ID, bob.ID, "   ")
	wantKind(t, err, MissingFields)
	_, err = e.messages.Send(ctx, alice.ID, "", "hi")
	wantKind(t, err, MissingFields)

	// A pending request is not enough
	if err := e.friends.SendRequest(ctx, alice.ID, bob.ID); err != nil {
		t.Fatal(err)
	}
	_, err = e.messages.Send(ctx, alice.ID, bob.ID, "hi")
	wantKind(t, err, Forbidden)

	if err := e.friends.AcceptRequest(ctx, bob.ID, alice.ID); err != nil {
		t.Fatal(err)
	}
	view, err := e.messages.Send(ctx, alice.ID, bob.ID, "hi")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if view.Sender.Name != "Alice" || view.Receiver.Name != "Bob" || view.Content != "hi" || view.Read {
		t.Errorf("view = %+v", view)
	}
}

func TestGetConversation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "alice@x.io")
	bob := e.register(t, "Bob", "bob@x.io")
	e.befriend(t, alice, bob)

	for _, m := range []struct{ from, to, text string }{
		{alice.ID, bob.ID, "one"},
		{bob.ID, alice.ID, "two"},
		{alice.ID, bob.ID, "three"},
	} {
		if _, err := e.messages.Send(ctx, m.from, m.to, m.text); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := e.messages.GetConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	var got []string
	for _, m := range msgs {
		got = append(got, m.Content)
	}
	if len(got) != 3 || got[0] != "one" || got[1] != "two" || got[2] != "three" {
		t.Fatalf("expected ascending order, got %v", got)
	}
	for _, m := range msgs {
		if m.Receiver.ID == bob.ID && !m.Read {
			t.Errorf("message %q to bob should be read", m.Content)
		}
	}
	// bob's own message to alice stays unread until alice looks
	if msgs[1].Read {
		t.Error("bob's message to alice marked read by bob's fetch")
	}

	convs, err := e.messages.ListConversations(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 1 {
		t.Fatalf("alice conversations = %+v", convs)
	}

	// Marking persisted: bob has nothing unread left
	convs, err = e.messages.ListConversations(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 0 {
		t.Fatalf("bob conversations = %+v", convs)
	}
}

func TestListConversations(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "alice@x.io")
	bob := e.register(t, "Bob", "bob@x.io")
	carol := e.register(t, "Carol", "carol@x.io")
	e.befriend(t, alice, bob)
	e.befriend(t, carol, alice)

	send := func(from, to, text string) {
		t.Helper()
		if _, err := e.messages.Send(ctx, from, to, text); err != nil {
			t.Fatal(err)
		}
	}
	send(bob.ID, alice.ID, "hey alice")
	send(bob.ID, alice.ID, "you there?")
	send(carol.ID, alice.ID, "lunch?")
	send(alice.ID, carol.ID, "sure")

	convs, err := e.messages.ListConversations(ctx, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 2 {
		t.Fatalf("expected 2 conversations, got %+v", convs)
	}
	if convs[0].User.ID != carol.ID || convs[0].LastMessage.Content != "sure" || convs[0].UnreadCount != 1 {
		t.Errorf("first conversation = %+v", convs[0])
	}
	if convs[1].User.ID != bob.ID || convs[1].LastMessage.Content != "you there?" || convs[1].UnreadCount != 2 {
		t.Errorf("second conversation = %+v", convs[1])
	}
	if convs[0].LastMessage.Sender.Name != "Alice" {
		t.Errorf("last message sender not populated: %+v", convs[0].LastMessage)
	}

	empty, err := e.messages.ListConversations(ctx, e.register(t, "Dan", "dan@x.io").ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no conversations, got %+v", empty)
	}
}

// lateStore delivers one more message right after the conversation is read
type lateStore struct {
	database.Store
	late *models.Message
}

func (s *lateStore) GetMessagesBetween(ctx context.Context, userID1, userID2 string) ([]models.Message, error) {
	msgs, err := s.Store.GetMessagesBetween(ctx, userID1, userID2)
	if err == nil && s.late != nil {
		err = s.Store.CreateMessage(ctx, s.late)
		s.late = nil
	}
	return msgs, err
}

func TestGetConversation_LateMessageStaysUnread(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "alice@x.io")
	bob := e.register(t, "Bob", "bob@x.io")
	e.befriend(t, alice, bob)

	if _, err := e.messages.Send(ctx, alice.ID, bob.ID, "first"); err != nil {
		t.Fatal(err)
	}
	store := &lateStore{Store: e.store, late: &models.Message{SenderID: alice.ID, ReceiverID: bob.ID, Content: "late"}}
	msgs, err := NewMessages(store, e.log).GetConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatalf("GetConversation: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Content != "first" || !msgs[0].Read {
		t.Fatalf("messages = %+v", msgs)
	}

	convs, err := e.messages.ListConversations(ctx, bob.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].LastMessage.Content != "late" || convs[0].UnreadCount != 1 {
		t.Errorf("the late message should still be unread: %+v", convs)
	}
}
