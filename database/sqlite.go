package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"myfeedsave/models"
)

// Relationship kinds stored in the relations table. A pending request
// from A to B is the pair of rows (A, B, sent) and (B, A, received).
const (
	relationFriend   = "friend"
	relationSent     = "sent"
	relationReceived = "received"
)

// SQLite is the database/sql backed Store
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database file at path and
// creates the tables
func OpenSQLite(ctx context.Context, path string) (*SQLite, error) {
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL&_txlock=immediate", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	s := &SQLite{db: db}
	if err := s.createTables(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

func (s *SQLite) createTables(ctx context.Context) error {
	tables := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT UNIQUE NOT NULL,
		mobile TEXT NOT NULL DEFAULT '',
		password TEXT NOT NULL,
		profile_picture TEXT NOT NULL DEFAULT '',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS relations (
		account_id TEXT NOT NULL,
		other_id TEXT NOT NULL,
		kind TEXT NOT NULL CHECK (kind IN ('friend', 'sent', 'received')),
		created_at INTEGER NOT NULL,
		PRIMARY KEY (account_id, other_id, kind),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE,
		FOREIGN KEY (other_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS posts (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		owner_id TEXT NOT NULL,
		description TEXT NOT NULL,
		media_kind TEXT NOT NULL,
		media_ref TEXT NOT NULL,
		is_public INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		FOREIGN KEY (owner_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS messages (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT UNIQUE NOT NULL,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL,
		content TEXT NOT NULL,
		read INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (sender_id) REFERENCES accounts(id) ON DELETE CASCADE,
		FOREIGN KEY (receiver_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_relations_other ON relations(other_id);
	CREATE INDEX IF NOT EXISTS idx_posts_owner ON posts(owner_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id, receiver_id);
	CREATE INDEX IF NOT EXISTS idx_messages_receiver ON messages(receiver_id, read);
	`

	_, err := s.db.ExecContext(ctx, tables)
	return err
}

// Close releases the connection pool
func (s *SQLite) Close() error {
	return s.db.Close()
}

// withTx runs fn inside a transaction, committing when fn returns nil
func (s *SQLite) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func unixNano(t time.Time) int64 {
	return t.UTC().UnixNano()
}

func fromUnixNano(n int64) time.Time {
	return time.Unix(0, n).UTC()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

// Account queries

// CreateAccount inserts a new account, assigning its id and timestamps
func (s *SQLite) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = models.NewID()
	}
	now := time.Now().UTC()
	account.CreatedAt, account.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (id, name, email, mobile, password, profile_picture, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.ID, account.Name, account.Email, account.Mobile, account.Password,
		account.ProfilePicture, unixNano(now), unixNano(now),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	account.Normalize()
	return nil
}

const accountColumns = `id, name, email, mobile, password, profile_picture, created_at, updated_at`

func scanAccount(row interface{ Scan(...any) error }) (*models.Account, error) {
	account := &models.Account{}
	var createdAt, updatedAt int64
	err := row.Scan(&account.ID, &account.Name, &account.Email, &account.Mobile,
		&account.Password, &account.ProfilePicture, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	account.CreatedAt = fromUnixNano(createdAt)
	account.UpdatedAt = fromUnixNano(updatedAt)
	return account, nil
}

// loadRelations fills the friends and request sets of account
func (s *SQLite) loadRelations(ctx context.Context, account *models.Account) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT other_id, kind FROM relations WHERE account_id = ? ORDER BY created_at, rowid`,
		account.ID,
	)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var otherID, kind string
		if err := rows.Scan(&otherID, &kind); err != nil {
			return err
		}
		switch kind {
		case relationFriend:
			account.Friends = append(account.Friends, otherID)
		case relationSent:
			account.SentRequests = append(account.SentRequests, otherID)
		case relationReceived:
			account.ReceivedRequests = append(account.ReceivedRequests, otherID)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}
	account.Normalize()
	return nil
}

func (s *SQLite) getAccount(ctx context.Context, where string, arg any) (*models.Account, error) {
	account, err := scanAccount(s.db.QueryRowContext(ctx,
		"SELECT "+accountColumns+" FROM accounts WHERE "+where, arg))
	if err != nil {
		return nil, err
	}
	if err := s.loadRelations(ctx, account); err != nil {
		return nil, fmt.Errorf("load relations: %w", err)
	}
	return account, nil
}

// GetAccountByID retrieves an account with its relationship sets
func (s *SQLite) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	return s.getAccount(ctx, "id = ?", id)
}

// GetAccountByEmail retrieves an account by its email
func (s *SQLite) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return s.getAccount(ctx, "email = ?", email)
}

// GetAccountSummaries returns summaries for ids in the order given.
// Ids without an account are skipped.
func (s *SQLite) GetAccountSummaries(ctx context.Context, ids []string) ([]models.AccountSummary, error) {
	if len(ids) == 0 {
		return []models.AccountSummary{}, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, profile_picture FROM accounts WHERE id IN (`+placeholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byID := make(map[string]models.AccountSummary, len(ids))
	for rows.Next() {
		var summary models.AccountSummary
		if err := rows.Scan(&summary.ID, &summary.Name, &summary.Email, &summary.ProfilePicture); err != nil {
			return nil, err
		}
		byID[summary.ID] = summary
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	summaries := make([]models.AccountSummary, 0, len(byID))
	for _, id := range ids {
		if summary, ok := byID[id]; ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries, nil
}

// UpdateAccount applies the non-nil fields of update
func (s *SQLite) UpdateAccount(ctx context.Context, id string, update models.AccountUpdate) (*models.Account, error) {
	sets := []string{"updated_at = ?"}
	args := []any{unixNano(time.Now())}
	if update.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *update.Name)
	}
	if update.Mobile != nil {
		sets = append(sets, "mobile = ?")
		args = append(args, *update.Mobile)
	}
	if update.ProfilePicture != nil {
		sets = append(sets, "profile_picture = ?")
		args = append(args, *update.ProfilePicture)
	}
	args = append(args, id)

	result, err := s.db.ExecContext(ctx,
		"UPDATE accounts SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetAccountByID(ctx, id)
}

// DeleteAccount removes the account along with its posts, its messages
// and every relationship row that mentions it
func (s *SQLite) DeleteAccount(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		cascade := []string{
			"DELETE FROM relations WHERE account_id = ?1 OR other_id = ?1",
			"DELETE FROM posts WHERE owner_id = ?1",
			"DELETE FROM messages WHERE sender_id = ?1 OR receiver_id = ?1",
		}
		for _, q := range cascade {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return err
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM accounts WHERE id = ?", id)
		if err != nil {
			return err
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// SearchAccounts finds accounts whose name or email contains query,
// ignoring case
func (s *SQLite) SearchAccounts(ctx context.Context, query, excludeID string) ([]models.AccountSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, email, profile_picture FROM accounts
		WHERE id != ? AND (instr(lower(name), lower(?)) > 0 OR instr(lower(email), lower(?)) > 0)
		ORDER BY name, id`,
		excludeID, query, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []models.AccountSummary{}
	for rows.Next() {
		var user models.AccountSummary
		if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.ProfilePicture); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// Relationship queries

func insertRelation(ctx context.Context, tx *sql.Tx, accountID, otherID, kind string, at int64) error {
	_, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO relations (account_id, other_id, kind, created_at) VALUES (?, ?, ?, ?)",
		accountID, otherID, kind, at,
	)
	return err
}

func deleteRelation(ctx context.Context, tx *sql.Tx, accountID, otherID, kind string) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM relations WHERE account_id = ? AND other_id = ? AND kind = ?",
		accountID, otherID, kind,
	)
	return err
}

// AddFriendRequest records a pending request on both accounts
func (s *SQLite) AddFriendRequest(ctx context.Context, senderID, receiverID string) error {
	now := unixNano(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := insertRelation(ctx, tx, senderID, receiverID, relationSent, now); err != nil {
			return err
		}
		return insertRelation(ctx, tx, receiverID, senderID, relationReceived, now)
	})
}

// AcceptFriendRequest turns the pending request sender→receiver into a
// friendship. Returns ErrNotFound if the receiver has no such request.
func (s *SQLite) AcceptFriendRequest(ctx context.Context, senderID, receiverID string) error {
	now := unixNano(time.Now())
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx,
			"SELECT 1 FROM relations WHERE account_id = ? AND other_id = ? AND kind = ?",
			receiverID, senderID, relationReceived,
		).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}

		if err := deleteRelation(ctx, tx, receiverID, senderID, relationReceived); err != nil {
			return err
		}
		if err := deleteRelation(ctx, tx, senderID, receiverID, relationSent); err != nil {
			return err
		}
		if err := insertRelation(ctx, tx, receiverID, senderID, relationFriend, now); err != nil {
			return err
		}
		return insertRelation(ctx, tx, senderID, receiverID, relationFriend, now)
	})
}

// RemoveFriendRequest drops the pending request sender→receiver from both
// accounts. Removing a request that does not exist is not an error.
func (s *SQLite) RemoveFriendRequest(ctx context.Context, senderID, receiverID string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := deleteRelation(ctx, tx, receiverID, senderID, relationReceived); err != nil {
			return err
		}
		return deleteRelation(ctx, tx, senderID, receiverID, relationSent)
	})
}

// Post queries

const postColumns = `id, owner_id, description, media_kind, media_ref, is_public, created_at, updated_at`

func scanPost(row interface{ Scan(...any) error }) (*models.Post, error) {
	post := &models.Post{}
	var createdAt, updatedAt int64
	err := row.Scan(&post.ID, &post.OwnerID, &post.Description, &post.MediaKind,
		&post.MediaRef, &post.IsPublic, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	post.CreatedAt = fromUnixNano(createdAt)
	post.UpdatedAt = fromUnixNano(updatedAt)
	return post, nil
}

// CreatePost inserts a new post, assigning its id and timestamps
func (s *SQLite) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	now := time.Now().UTC()
	post.CreatedAt, post.UpdatedAt = now, now

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO posts (id, owner_id, description, media_kind, media_ref, is_public, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		post.ID, post.OwnerID, post.Description, post.MediaKind, post.MediaRef,
		post.IsPublic, unixNano(now), unixNano(now),
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

// GetPost retrieves a post owned by ownerID
func (s *SQLite) GetPost(ctx context.Context, ownerID, postID string) (*models.Post, error) {
	return scanPost(s.db.QueryRowContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE id = ? AND owner_id = ?", postID, ownerID))
}

// GetPostsByOwner returns the owner's posts, newest first
func (s *SQLite) GetPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+postColumns+" FROM posts WHERE owner_id = ? ORDER BY created_at DESC, seq DESC",
		ownerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	posts := []models.Post{}
	for rows.Next() {
		post, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, *post)
	}
	return posts, rows.Err()
}

// UpdatePost applies update to a post owned by ownerID
func (s *SQLite) UpdatePost(ctx context.Context, ownerID, postID string, update models.PostUpdate) (*models.Post, error) {
	sets := []string{"updated_at = ?"}
	args := []any{unixNano(time.Now())}
	if update.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *update.Description)
	}
	if update.IsPublic != nil {
		sets = append(sets, "is_public = ?")
		args = append(args, *update.IsPublic)
	}
	if update.MediaRef != "" {
		sets = append(sets, "media_ref = ?", "media_kind = ?")
		args = append(args, update.MediaRef, update.MediaKind)
	}
	args = append(args, postID, ownerID)

	result, err := s.db.ExecContext(ctx,
		"UPDATE posts SET "+strings.Join(sets, ", ")+" WHERE id = ? AND owner_id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, ErrNotFound
	}
	return s.GetPost(ctx, ownerID, postID)
}

// DeletePost removes a post owned by ownerID
func (s *SQLite) DeletePost(ctx context.Context, ownerID, postID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM posts WHERE id = ? AND owner_id = ?", postID, ownerID)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// Message queries

const messageColumns = `id, sender_id, receiver_id, content, read, created_at`

func scanMessage(row interface{ Scan(...any) error }) (*models.Message, error) {
	msg := &models.Message{}
	var createdAt int64
	if err := row.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.Content, &msg.Read, &createdAt); err != nil {
		return nil, err
	}
	msg.CreatedAt = fromUnixNano(createdAt)
	return msg, nil
}

// CreateMessage inserts a new unread message
func (s *SQLite) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = models.NewID()
	}
	msg.CreatedAt = time.Now().UTC()
	msg.Read = false

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO messages (id, sender_id, receiver_id, content, read, created_at) VALUES (?, ?, ?, ?, 0, ?)",
		msg.ID, msg.SenderID, msg.ReceiverID, msg.Content, unixNano(msg.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessagesBetween returns the messages exchanged by two accounts,
// oldest first
func (s *SQLite) GetMessagesBetween(ctx context.Context, userID1, userID2 string) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages
		WHERE (sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)
		ORDER BY created_at ASC, seq ASC`,
		userID1, userID2, userID2, userID1,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// MarkMessagesAsRead marks the unread messages among ids that sender sent
// to receiver as read and reports how many changed
func (s *SQLite) MarkMessagesAsRead(ctx context.Context, senderID, receiverID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := []any{senderID, receiverID}
	for _, id := range ids {
		args = append(args, id)
	}
	result, err := s.db.ExecContext(ctx,
		"UPDATE messages SET read = 1 WHERE sender_id = ? AND receiver_id = ? AND read = 0 AND id IN ("+placeholders(len(ids))+")",
		args...,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// GetConversations returns one row per counterpart of userID with the
// latest message and the number of unread messages addressed to userID,
// most recent conversation first
func (s *SQLite) GetConversations(ctx context.Context, userID string) ([]models.ConversationRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`WITH mine AS (
			SELECT m.*, CASE WHEN m.sender_id = ?1 THEN m.receiver_id ELSE m.sender_id END AS counterpart
			FROM messages m
			WHERE m.sender_id = ?1 OR m.receiver_id = ?1
		), ranked AS (
			SELECT mine.*,
				ROW_NUMBER() OVER (PARTITION BY counterpart ORDER BY created_at DESC, seq DESC) AS rn,
				SUM(CASE WHEN receiver_id = ?1 AND read = 0 THEN 1 ELSE 0 END) OVER (PARTITION BY counterpart) AS unread
			FROM mine
		)
		SELECT `+messageColumns+`, counterpart, unread FROM ranked
		WHERE rn = 1
		ORDER BY created_at DESC, seq DESC`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := []models.ConversationRow{}
	for rows.Next() {
		var conv models.ConversationRow
		var createdAt int64
		if err := rows.Scan(
			&conv.LastMessage.ID, &conv.LastMessage.SenderID, &conv.LastMessage.ReceiverID,
			&conv.LastMessage.Content, &conv.LastMessage.Read, &createdAt,
			&conv.CounterpartID, &conv.UnreadCount,
		); err != nil {
			return nil, err
		}
		conv.LastMessage.CreatedAt = fromUnixNano(createdAt)
		conversations = append(conversations, conv)
	}
	return conversations, rows.Err()
}
