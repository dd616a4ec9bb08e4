package models

import "slices"

// FriendStatus represents the relationship between two accounts as seen
// from one of them
type FriendStatus string

const (
	FriendStatusNone     FriendStatus = "none"
	FriendStatusSent     FriendStatus = "sent"     // request from self to other
	FriendStatusReceived FriendStatus = "received" // request from other to self
	FriendStatusAccepted FriendStatus = "accepted"
)

// StatusWith derives the friend status between a and the account other
// from a's relationship sets.
func (a *Account) StatusWith(other string) FriendStatus {
	switch {
	case slices.Contains(a.Friends, other):
		return FriendStatusAccepted
	case slices.Contains(a.SentRequests, other):
		return FriendStatusSent
	case slices.Contains(a.ReceivedRequests, other):
		return FriendStatusReceived
	default:
		return FriendStatusNone
	}
}

// IsFriend reports whether other is in a's friends set
func (a *Account) IsFriend(other string) bool {
	return slices.Contains(a.Friends, other)
}
