package services

import (
	"context"
	"errors"
	"strings"

	"github.com/sirupsen/logrus"

	"myfeedsave/database"
	"myfeedsave/models"
)

// Friends manages friend requests and the friend lists built from them
type Friends struct {
	store database.Store
	log   logrus.FieldLogger
}

func NewFriends(store database.Store, log logrus.FieldLogger) *Friends {
	return &Friends{store: store, log: log}
}

// SendRequest records a pending request from senderID to receiverID
func (s *Friends) SendRequest(ctx context.Context, senderID, receiverID string) error {
	if senderID == receiverID {
		return newError(InvalidTarget, "Cannot send friend request to yourself")
	}

	receiver, err := s.account(ctx, receiverID, "Receiver user not found")
	if err != nil {
		return err
	}
	sender, err := s.account(ctx, senderID, "Sender user not found")
	if err != nil {
		return err
	}

	switch sender.StatusWith(receiverID) {
	case models.FriendStatusAccepted:
		return newError(AlreadyFriends, "Already friends with this user")
	case models.FriendStatusSent:
		return newError(AlreadyRequested, "Friend request already sent")
	case models.FriendStatusReceived:
		return newError(AlreadyRequested, "This user has already sent you a friend request")
	}
	// The receiver's side is checked too in case the pair drifted apart
	if receiver.StatusWith(senderID) == models.FriendStatusReceived {
		return newError(AlreadyRequested, "Friend request already sent")
	}

	if err := s.store.AddFriendRequest(ctx, senderID, receiverID); err != nil {
		return serverError("Failed to send friend request", err)
	}

	s.log.WithFields(logrus.Fields{"sender": senderID, "receiver": receiverID}).Info("Friend request sent")
	return nil
}

// AcceptRequest makes receiverID and senderID friends. The request from
// senderID must be pending.
func (s *Friends) AcceptRequest(ctx context.Context, receiverID, senderID string) error {
	receiver, err := s.account(ctx, receiverID, "User not found")
	if err != nil {
		return err
	}
	if receiver.StatusWith(senderID) != models.FriendStatusReceived {
		return newError(NotFound, "Friend request not found")
	}

	err = s.store.AcceptFriendRequest(ctx, senderID, receiverID)
	if errors.Is(err, database.ErrNotFound) {
		return newError(NotFound, "Friend request not found")
	}
	if err != nil {
		return serverError("Failed to accept friend request", err)
	}

	s.log.WithFields(logrus.Fields{"sender": senderID, "receiver": receiverID}).Info("Friend request accepted")
	return nil
}

// RejectRequest drops a pending request from senderID. It succeeds when
// nothing is pending. removed reports whether a request was dropped.
func (s *Friends) RejectRequest(ctx context.Context, receiverID, senderID string) (removed bool, err error) {
	receiver, err := s.account(ctx, receiverID, "User not found")
	if err != nil {
		return false, err
	}
	pending := receiver.StatusWith(senderID) == models.FriendStatusReceived

	// Both sides are cleared even when nothing is pending
	if err := s.store.RemoveFriendRequest(ctx, senderID, receiverID); err != nil {
		return false, serverError("Failed to reject friend request", err)
	}

	if pending {
		s.log.WithFields(logrus.Fields{"sender": senderID, "receiver": receiverID}).Info("Friend request rejected")
	}
	return pending, nil
}

// ListFriends returns summaries of the accounts userID is friends with
func (s *Friends) ListFriends(ctx context.Context, userID string) ([]models.AccountSummary, error) {
	account, err := s.account(ctx, userID, "User not found")
	if err != nil {
		return nil, err
	}
	friends, err := s.store.GetAccountSummaries(ctx, account.Friends)
	if err != nil {
		return nil, serverError("Failed to fetch friends", err)
	}
	return friends, nil
}

// ListReceivedRequests returns summaries of the accounts with a pending
// request to userID
func (s *Friends) ListReceivedRequests(ctx context.Context, userID string) ([]models.AccountSummary, error) {
	account, err := s.account(ctx, userID, "User not found")
	if err != nil {
		return nil, err
	}
	requests, err := s.store.GetAccountSummaries(ctx, account.ReceivedRequests)
	if err != nil {
		return nil, serverError("Failed to fetch friend requests", err)
	}
	return requests, nil
}

// Search matches query case-insensitively against name and email, leaving
// out the caller. An empty query lists every other account.
func (s *Friends) Search(ctx context.Context, callerID, query string) ([]models.AccountSummary, error) {
	users, err := s.store.SearchAccounts(ctx, strings.TrimSpace(query), callerID)
	if err != nil {
		return nil, serverError("Failed to search users", err)
	}
	return users, nil
}

func (s *Friends) account(ctx context.Context, id, notFound string) (*models.Account, error) {
	account, err := s.store.GetAccountByID(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, newError(NotFound, notFound)
	}
	if err != nil {
		return nil, serverError("Failed to load user", err)
	}
	return account, nil
}
