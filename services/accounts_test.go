package services

import (
	"context"
	"errors"
	"slices"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestRegister(t *testing.T) {
	tests := []struct {
		name string
		in   RegisterInput
		want Kind
	}{
		{"missing name", RegisterInput{Email: "a@x.io", Password: "secret123"}, ValidationError},
		{"bad email", RegisterInput{Name: "A", Email: "not-an-email", Password: "secret123"}, ValidationError},
		{"short password", RegisterInput{Name: "A", Email: "a@x.io", Password: "123"}, ValidationError},
		{"blank name", RegisterInput{Name: "   ", Email: "a@x.io", Password: "secret123"}, ValidationError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newEnv(t)
			_, err := e.accounts.Register(context.Background(), tt.in)
			wantKind(t, err, tt.want)
		})
	}
}

func TestRegister_NormalizesAndHashes(t *testing.T) {
	e := newEnv(t)
	a, err := e.accounts.Register(context.Background(), RegisterInput{
		Name:     " Alice ",
		Email:    "  Alice@Example.COM ",
		Password: "secret123",
	})
	if err != nil {
		t.Fatal(err)
	}
	if a.Email != "alice@example.com" || a.Name != "Alice" {
		t.Errorf("got name %q email %q", a.Name, a.Email)
	}
	if a.Password == "secret123" || a.Password == "" {
		t.Error("password should be stored hashed")
	}
	if a.Friends == nil || a.SentRequests == nil || a.ReceivedRequests == nil {
		t.Error("relationship sets should be empty, not nil")
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	e := newEnv(t)
	e.register(t, "Alice", "alice@x.io")

	_, err := e.accounts.Register(context.Background(), RegisterInput{
		Name: "Other", Email: "ALICE@x.io", Password: "secret123",
	})
	wantKind(t, err, Conflict)
	if MessageOf(err) != "User already exists" {
		t.Errorf("message = %q", MessageOf(err))
	}
}

func TestLogin(t *testing.T) {
	e := newEnv(t)
	alice := e.register(t, "Alice", "alice@x.io")
	ctx := context.Background()

	res, err := e.accounts.Login(ctx, "Alice@X.io", "secret123")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	id, err := e.tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("issued token does not verify: %v", err)
	}
	if id != alice.ID || res.Account.ID != alice.ID {
		t.Errorf("token for %q, account %q, want %q", id, res.Account.ID, alice.ID)
	}

	_, err = e.accounts.Login(ctx, "alice@x.io", "wrong-password")
	wantKind(t, err, InvalidCredentials)

	_, err = e.accounts.Login(ctx, "nobody@x.io", "secret123")
	wantKind(t, err, InvalidCredentials)
}

func TestGetProfile_NotFound(t *testing.T) {
	e := newEnv(t)
	_, err := e.accounts.GetProfile(context.Background(), "65f0c0ffee0000000000abcd")
	wantKind(t, err, NotFound)
}

func TestUpdateProfile(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, err := e.accounts.Register(ctx, RegisterInput{
		Name: "Alice", Email: "alice@x.io", Mobile: "111", Password: "secret123", ProfilePicture: "old.png",
	})
	if err != nil {
		t.Fatal(err)
	}

	// Empty values leave the fields alone
	got, err := e.accounts.UpdateProfile(ctx, alice.ID, ProfileInput{Name: "  ", Mobile: "222"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.Name != "Alice" || got.Mobile != "222" || got.ProfilePicture != "old.png" {
		t.Errorf("got %+v", got)
	}
	if len(e.pictures.removed) != 0 {
		t.Errorf("no picture should be removed yet, got %v", e.pictures.removed)
	}

	got, err = e.accounts.UpdateProfile(ctx, alice.ID, ProfileInput{ProfilePicture: "new.png"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if got.ProfilePicture != "new.png" {
		t.Errorf("picture = %q", got.ProfilePicture)
	}
	if !slices.Equal(e.pictures.removed, []string{"old.png"}) {
		t.Errorf("removed = %v, want [old.png]", e.pictures.removed)
	}

	_, err = e.accounts.UpdateProfile(ctx, "65f0c0ffee0000000000abcd", ProfileInput{Name: "Ghost"})
	wantKind(t, err, NotFound)
}

func TestUpdateProfile_RemoveFailureIsLogged(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice, err := e.accounts.Register(ctx, RegisterInput{
		Name: "Alice", Email: "alice@x.io", Password: "secret123", ProfilePicture: "old.png",
	})
	if err != nil {
		t.Fatal(err)
	}
	e.pictures.err = errors.New("permission denied")

	if _, err := e.accounts.UpdateProfile(ctx, alice.ID, ProfileInput{ProfilePicture: "new.png"}); err != nil {
		t.Fatalf("a failed file removal must not fail the update: %v", err)
	}
	last := e.hook.LastEntry()
	if last == nil || last.Level != logrus.WarnLevel {
		t.Fatalf("expected a warning to be logged, got %+v", last)
	}
}

func TestDeleteProfile_Cascades(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	alice := e.register(t, "Alice", "alice@x.io")
	bob := e.register(t, "Bob", "bob@x.io")
	carol := e.register(t, "Carol", "carol@x.io")

	e.befriend(t, alice, bob)
	if err := e.friends.SendRequest(ctx, alice.ID, carol.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := e.messages.Send(ctx, alice.ID, bob.ID, "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := e.posts.Create(ctx, alice.ID, CreatePostInput{
		Description: "beach", MediaKind: "image", MediaRef: "beach.png",
	}); err != nil {
		t.Fatal(err)
	}

	if err := e.accounts.DeleteProfile(ctx, alice.ID); err != nil {
		t.Fatalf("DeleteProfile: %v", err)
	}

	_, err := e.accounts.GetProfile(ctx, alice.ID)
	wantKind(t, err, NotFound)

	b, _ := e.accounts.GetProfile(ctx, bob.ID)
	if slices.Contains(b.Friends, alice.ID) {
		t.Error("bob still lists alice as a friend")
	}
	c, _ := e.accounts.GetProfile(ctx, carol.ID)
	if slices.Contains(c.ReceivedRequests, alice.ID) {
		t.Error("carol still has alice's request")
	}
	msgs, err := e.messages.GetConversation(ctx, bob.ID, alice.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("expected alice's messages gone, got %d", len(msgs))
	}
	posts, _ := e.posts.ListByOwner(ctx, alice.ID)
	if len(posts) != 0 {
		t.Errorf("expected alice's posts gone, got %d", len(posts))
	}
	if !slices.Equal(e.media.removed, []string{"beach.png"}) {
		t.Errorf("post media removed = %v", e.media.removed)
	}

	wantKind(t, e.accounts.DeleteProfile(ctx, alice.ID), NotFound)
}
