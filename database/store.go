// Package database holds the persistence backends. Two implementations of
// Store exist: SQLite for single-node deployments and tests, and MongoDB
// for document-store deployments.
package database

import (
	"context"
	"errors"

	"myfeedsave/models"
)

var (
	ErrNotFound       = errors.New("database: record not found")
	ErrDuplicateEmail = errors.New("database: email already registered")
)

// Store is every read and write the services perform.
//
// Relationship methods (AddFriendRequest, AcceptFriendRequest,
// RemoveFriendRequest) touch both accounts of a pair. Backends apply the
// two sides in a single transaction where the database allows it.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *models.Account) error
	GetAccountByID(ctx context.Context, id string) (*models.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*models.Account, error)
	GetAccountSummaries(ctx context.Context, ids []string) ([]models.AccountSummary, error)
	UpdateAccount(ctx context.Context, id string, update models.AccountUpdate) (*models.Account, error)
	DeleteAccount(ctx context.Context, id string) error
	SearchAccounts(ctx context.Context, query, excludeID string) ([]models.AccountSummary, error)

	// Relationships
	AddFriendRequest(ctx context.Context, senderID, receiverID string) error
	AcceptFriendRequest(ctx context.Context, senderID, receiverID string) error
	RemoveFriendRequest(ctx context.Context, senderID, receiverID string) error

	// Posts
	CreatePost(ctx context.Context, post *models.Post) error
	GetPost(ctx context.Context, ownerID, postID string) (*models.Post, error)
	GetPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error)
	UpdatePost(ctx context.Context, ownerID, postID string, update models.PostUpdate) (*models.Post, error)
	DeletePost(ctx context.Context, ownerID, postID string) error

	// Messages
	CreateMessage(ctx context.Context, msg *models.Message) error
	GetMessagesBetween(ctx context.Context, userID1, userID2 string) ([]models.Message, error)
	MarkMessagesAsRead(ctx context.Context, senderID, receiverID string, ids []string) (int64, error)
	GetConversations(ctx context.Context, userID string) ([]models.ConversationRow, error)

	Close() error
}
