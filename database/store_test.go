package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"myfeedsave/models"
)

// openTestStores returns every backend available to the test run. SQLite
// always runs; MongoDB runs when MONGO_TEST_URI points at a server.
func openTestStores(t *testing.T) map[string]func(t *testing.T) Store {
	t.Helper()
	stores := map[string]func(t *testing.T) Store{
		"sqlite": func(t *testing.T) Store {
			s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "test.db"))
			if err != nil {
				t.Fatalf("OpenSQLite: %v", err)
			}
			t.Cleanup(func() { s.Close() })
			return s
		},
	}
	if uri := os.Getenv("MONGO_TEST_URI"); uri != "" {
		stores["mongo"] = func(t *testing.T) Store {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			dbName := "myfeedsave_test_" + models.NewID()
			s, err := OpenMongo(ctx, uri, dbName, os.Getenv("MONGO_TEST_TRANSACTIONS") == "true")
			if err != nil {
				t.Fatalf("OpenMongo: %v", err)
			}
			t.Cleanup(func() {
				s.client.Database(dbName).Drop(context.Background())
				s.Close()
			})
			return s
		}
	}
	return stores
}

func forEachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	for name, open := range openTestStores(t) {
		t.Run(name, func(t *testing.T) {
			fn(t, open(t))
		})
	}
}

func mustAccount(t *testing.T, s Store, name, email string) *models.Account {
	t.Helper()
	a := &models.Account{Name: name, Email: email, Password: "hash"}
	if err := s.CreateAccount(context.Background(), a); err != nil {
		t.Fatalf("CreateAccount(%s): %v", email, err)
	}
	return a
}

func reload(t *testing.T, s Store, id string) *models.Account {
	t.Helper()
	a, err := s.GetAccountByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetAccountByID: %v", err)
	}
	return a
}

func TestAccounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		if !models.ValidID(alice.ID) {
			t.Fatalf("expected an ObjectID-shaped id, got %q", alice.ID)
		}

		err := s.CreateAccount(ctx, &models.Account{Name: "Other", Email: "alice@x.io", Password: "h"})
		if !errors.Is(err, ErrDuplicateEmail) {
			t.Fatalf("expected ErrDuplicateEmail, got %v", err)
		}

		got, err := s.GetAccountByEmail(ctx, "alice@x.io")
		if err != nil || got.ID != alice.ID || got.Password != "hash" {
			t.Fatalf("GetAccountByEmail = %+v, %v", got, err)
		}
		if _, err := s.GetAccountByID(ctx, models.NewID()); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
		if _, err := s.GetAccountByID(ctx, "not-an-id"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for malformed id, got %v", err)
		}

		name := "Alice B"
		updated, err := s.UpdateAccount(ctx, alice.ID, models.AccountUpdate{Name: &name})
		if err != nil {
			t.Fatalf("UpdateAccount: %v", err)
		}
		if updated.Name != "Alice B" || updated.Email != "alice@x.io" {
			t.Errorf("updated = %+v", updated)
		}
		if _, err := s.UpdateAccount(ctx, models.NewID(), models.AccountUpdate{Name: &name}); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound updating a missing account, got %v", err)
		}

		bob := mustAccount(t, s, "Bob", "bob@x.io")
		summaries, err := s.GetAccountSummaries(ctx, []string{bob.ID, models.NewID(), alice.ID})
		if err != nil {
			t.Fatal(err)
		}
		if len(summaries) != 2 || summaries[0].ID != bob.ID || summaries[1].ID != alice.ID {
			t.Errorf("summaries should keep input order and skip missing ids: %+v", summaries)
		}
	})
}

func TestSearchAccounts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		mustAccount(t, s, "Bob", "bob@x.io")
		mustAccount(t, s, "a.b*c", "regex@y.io")

		users, err := s.SearchAccounts(ctx, "B", alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(users) != 2 {
			t.Errorf("expected Bob and a.b*c, got %+v", users)
		}

		// Metacharacters match literally
		users, _ = s.SearchAccounts(ctx, "b*", alice.ID)
		if len(users) != 1 || users[0].Name != "a.b*c" {
			t.Errorf("literal search = %+v", users)
		}

		users, _ = s.SearchAccounts(ctx, "", alice.ID)
		if len(users) != 2 {
			t.Errorf("empty query should list everyone else, got %+v", users)
		}
	})
}

func TestRelationships(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		bob := mustAccount(t, s, "Bob", "bob@x.io")

		if err := s.AcceptFriendRequest(ctx, alice.ID, bob.ID); !errors.Is(err, ErrNotFound) {
			t.Fatalf("accepting nothing: expected ErrNotFound, got %v", err)
		}

		if err := s.AddFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			t.Fatal(err)
		}
		a, b := reload(t, s, alice.ID), reload(t, s, bob.ID)
		if !slices.Equal(a.SentRequests, []string{bob.ID}) || !slices.Equal(b.ReceivedRequests, []string{alice.ID}) {
			t.Fatalf("pending sets: alice.sent=%v bob.received=%v", a.SentRequests, b.ReceivedRequests)
		}

		if err := s.AcceptFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			t.Fatal(err)
		}
		a, b = reload(t, s, alice.ID), reload(t, s, bob.ID)
		if !a.IsFriend(bob.ID) || !b.IsFriend(alice.ID) {
			t.Fatalf("friends: alice=%v bob=%v", a.Friends, b.Friends)
		}
		if len(a.SentRequests)+len(a.ReceivedRequests)+len(b.SentRequests)+len(b.ReceivedRequests) != 0 {
			t.Errorf("pending entries left: %+v %+v", a, b)
		}

		carol := mustAccount(t, s, "Carol", "carol@x.io")
		if err := s.AddFriendRequest(ctx, carol.ID, alice.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveFriendRequest(ctx, carol.ID, alice.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.RemoveFriendRequest(ctx, carol.ID, alice.ID); err != nil {
			t.Errorf("removing twice should succeed, got %v", err)
		}
		a, c := reload(t, s, alice.ID), reload(t, s, carol.ID)
		if len(a.ReceivedRequests) != 0 || len(c.SentRequests) != 0 {
			t.Errorf("request not removed: alice=%v carol=%v", a.ReceivedRequests, c.SentRequests)
		}
	})
}

func TestPosts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		bob := mustAccount(t, s, "Bob", "bob@x.io")

		var ids []string
		for _, d := range []string{"one", "two", "three"} {
			p := &models.Post{OwnerID: alice.ID, Description: d, MediaKind: models.MediaImage, MediaRef: d + ".png"}
			if err := s.CreatePost(ctx, p); err != nil {
				t.Fatal(err)
			}
			ids = append(ids, p.ID)
		}

		posts, err := s.GetPostsByOwner(ctx, alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(posts) != 3 || posts[0].ID != ids[2] || posts[2].ID != ids[0] {
			t.Fatalf("expected newest first, got %+v", posts)
		}

		if _, err := s.GetPost(ctx, bob.ID, ids[0]); !errors.Is(err, ErrNotFound) {
			t.Errorf("another owner's post: expected ErrNotFound, got %v", err)
		}

		public := true
		p, err := s.UpdatePost(ctx, alice.ID, ids[0], models.PostUpdate{IsPublic: &public, MediaKind: models.MediaVideo, MediaRef: "new.mp4"})
		if err != nil {
			t.Fatal(err)
		}
		if !p.IsPublic || p.MediaRef != "new.mp4" || p.MediaKind != models.MediaVideo || p.Description != "one" {
			t.Errorf("updated = %+v", p)
		}
		if _, err := s.UpdatePost(ctx, bob.ID, ids[0], models.PostUpdate{IsPublic: &public}); !errors.Is(err, ErrNotFound) {
			t.Errorf("another owner's update: expected ErrNotFound, got %v", err)
		}

		if err := s.DeletePost(ctx, bob.ID, ids[1]); !errors.Is(err, ErrNotFound) {
			t.Errorf("another owner's delete: expected ErrNotFound, got %v", err)
		}
		if err := s.DeletePost(ctx, alice.ID, ids[1]); err != nil {
			t.Fatal(err)
		}
		posts, _ = s.GetPostsByOwner(ctx, alice.ID)
		if len(posts) != 2 {
			t.Errorf("expected 2 posts left, got %d", len(posts))
		}
	})
}

func TestMessages(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		bob := mustAccount(t, s, "Bob", "bob@x.io")
		carol := mustAccount(t, s, "Carol", "carol@x.io")

		send := func(from, to *models.Account, text string) {
			t.Helper()
			if err := s.CreateMessage(ctx, &models.Message{SenderID: from.ID, ReceiverID: to.ID, Content: text}); err != nil {
				t.Fatal(err)
			}
		}
		send(alice, bob, "1")
		send(bob, alice, "2")
		send(alice, bob, "3")
		send(carol, alice, "4")

		msgs, err := s.GetMessagesBetween(ctx, bob.ID, alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		var got []string
		for _, m := range msgs {
			got = append(got, m.Content)
		}
		if !slices.Equal(got, []string{"1", "2", "3"}) {
			t.Fatalf("messages = %v", got)
		}

		ids := make([]string, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}
		// Only alice's two messages to bob match the direction
		n, err := s.MarkMessagesAsRead(ctx, alice.ID, bob.ID, ids)
		if err != nil || n != 2 {
			t.Fatalf("MarkMessagesAsRead = %d, %v", n, err)
		}
		if n, _ := s.MarkMessagesAsRead(ctx, alice.ID, bob.ID, ids); n != 0 {
			t.Errorf("second mark changed %d messages", n)
		}
		if n, _ := s.MarkMessagesAsRead(ctx, alice.ID, bob.ID, nil); n != 0 {
			t.Errorf("marking no ids changed %d messages", n)
		}

		rows, err := s.GetConversations(ctx, alice.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 2 {
			t.Fatalf("expected 2 conversations, got %+v", rows)
		}
		if rows[0].CounterpartID != carol.ID || rows[0].LastMessage.Content != "4" || rows[0].UnreadCount != 1 {
			t.Errorf("first row = %+v", rows[0])
		}
		if rows[1].CounterpartID != bob.ID || rows[1].LastMessage.Content != "3" || rows[1].UnreadCount != 1 {
			t.Errorf("second row = %+v", rows[1])
		}

		// A message outside ids stays unread
		send(alice, bob, "5")
		if n, _ := s.MarkMessagesAsRead(ctx, alice.ID, bob.ID, ids); n != 0 {
			t.Errorf("mark with stale ids changed %d messages", n)
		}
		rows, err = s.GetConversations(ctx, bob.ID)
		if err != nil {
			t.Fatal(err)
		}
		if len(rows) != 1 || rows[0].LastMessage.Content != "5" || rows[0].UnreadCount != 1 {
			t.Errorf("bob's rows = %+v", rows)
		}
	})
}

func TestDeleteAccount_Cascades(t *testing.T) {
	forEachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		alice := mustAccount(t, s, "Alice", "alice@x.io")
		bob := mustAccount(t, s, "Bob", "bob@x.io")
		carol := mustAccount(t, s, "Carol", "carol@x.io")

		if err := s.AddFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.AcceptFriendRequest(ctx, alice.ID, bob.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.AddFriendRequest(ctx, carol.ID, alice.ID); err != nil {
			t.Fatal(err)
		}
		if err := s.CreateMessage(ctx, &models.Message{SenderID: bob.ID, ReceiverID: alice.ID, Content: "hi"}); err != nil {
			t.Fatal(err)
		}
		if err := s.CreatePost(ctx, &models.Post{OwnerID: alice.ID, Description: "d", MediaKind: models.MediaImage, MediaRef: "x.png"}); err != nil {
			t.Fatal(err)
		}

		if err := s.DeleteAccount(ctx, alice.ID); err != nil {
			t.Fatalf("DeleteAccount: %v", err)
		}
		if err := s.DeleteAccount(ctx, alice.ID); !errors.Is(err, ErrNotFound) {
			t.Errorf("second delete: expected ErrNotFound, got %v", err)
		}

		if b := reload(t, s, bob.ID); len(b.Friends) != 0 {
			t.Errorf("bob still has friends %v", b.Friends)
		}
		if c := reload(t, s, carol.ID); len(c.SentRequests) != 0 {
			t.Errorf("carol still has sent requests %v", c.SentRequests)
		}
		if msgs, _ := s.GetMessagesBetween(ctx, bob.ID, alice.ID); len(msgs) != 0 {
			t.Errorf("messages survived: %+v", msgs)
		}
		if rows, _ := s.GetConversations(ctx, bob.ID); len(rows) != 0 {
			t.Errorf("conversations survived: %+v", rows)
		}
		if posts, _ := s.GetPostsByOwner(ctx, alice.ID); len(posts) != 0 {
			t.Errorf("posts survived: %+v", posts)
		}
	})
}
