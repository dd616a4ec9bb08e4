package database

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"myfeedsave/models"
)

// Collection names
const (
	usersCollection    = "users"
	postsCollection    = "posts"
	messagesCollection = "messages"
)

// Mongo is the MongoDB backed Store. Accounts are documents carrying their
// friend and request sets as arrays of ObjectIDs.
type Mongo struct {
	client       *mongo.Client
	users        *mongo.Collection
	posts        *mongo.Collection
	messages     *mongo.Collection
	transactions bool
}

var _ Store = (*Mongo)(nil)

type accountDoc struct {
	ID                     primitive.ObjectID   `bson:"_id"`
	Name                   string               `bson:"name"`
	Email                  string               `bson:"email"`
	Mobile                 string               `bson:"mobile,omitempty"`
	Password               string               `bson:"password"`
	ProfilePicture         string               `bson:"profilePicture,omitempty"`
	Friends                []primitive.ObjectID `bson:"friends"`
	SentFriendRequests     []primitive.ObjectID `bson:"sentFriendRequests"`
	ReceivedFriendRequests []primitive.ObjectID `bson:"receivedFriendRequests"`
	CreatedAt              time.Time            `bson:"createdAt"`
	UpdatedAt              time.Time            `bson:"updatedAt"`
}

type postDoc struct {
	ID          primitive.ObjectID `bson:"_id"`
	UserID      primitive.ObjectID `bson:"userId"`
	Description string             `bson:"description"`
	MediaType   string             `bson:"mediaType"`
	MediaURL    string             `bson:"mediaUrl"`
	IsPublic    bool               `bson:"isPublic"`
	CreatedAt   time.Time          `bson:"createdAt"`
	UpdatedAt   time.Time          `bson:"updatedAt"`
}

type messageDoc struct {
	ID        primitive.ObjectID `bson:"_id"`
	Sender    primitive.ObjectID `bson:"sender"`
	Receiver  primitive.ObjectID `bson:"receiver"`
	Content   string             `bson:"content"`
	Read      bool               `bson:"read"`
	CreatedAt time.Time          `bson:"createdAt"`
}

// OpenMongo connects to uri and prepares the collections of database
// dbName. With transactions set, relationship updates run inside a
// session transaction, which requires a replica set or sharded cluster.
func OpenMongo(ctx context.Context, uri, dbName string, transactions bool) (*Mongo, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	db := client.Database(dbName)
	m := &Mongo{
		client:       client,
		users:        db.Collection(usersCollection),
		posts:        db.Collection(postsCollection),
		messages:     db.Collection(messagesCollection),
		transactions: transactions,
	}
	if err := m.createIndexes(ctx); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to create indexes: %w", err)
	}
	return m, nil
}

func (m *Mongo) createIndexes(ctx context.Context) error {
	if _, err := m.users.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}); err != nil {
		return err
	}
	if _, err := m.posts.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return err
	}
	_, err := m.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "sender", Value: 1}, {Key: "receiver", Value: 1}, {Key: "createdAt", Value: 1}}},
		{Keys: bson.D{{Key: "receiver", Value: 1}, {Key: "read", Value: 1}}},
	})
	return err
}

// Close disconnects the client
func (m *Mongo) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

// inTx runs fn in a session transaction when transactions are enabled,
// otherwise directly
func (m *Mongo) inTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if !m.transactions {
		return fn(ctx)
	}
	sess, err := m.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// mongoNow returns the current time at the precision mongo stores
func mongoNow() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// objectID parses id; an id that cannot exist maps to ErrNotFound
func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, ErrNotFound
	}
	return oid, nil
}

func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := primitive.ObjectIDFromHex(id); err == nil {
			oids = append(oids, oid)
		}
	}
	return oids
}

func hexes(oids []primitive.ObjectID) []string {
	ids := make([]string, len(oids))
	for i, oid := range oids {
		ids[i] = oid.Hex()
	}
	return ids
}

func (d *accountDoc) toModel() *models.Account {
	account := &models.Account{
		ID:               d.ID.Hex(),
		Name:             d.Name,
		Email:            d.Email,
		Mobile:           d.Mobile,
		Password:         d.Password,
		ProfilePicture:   d.ProfilePicture,
		Friends:          hexes(d.Friends),
		SentRequests:     hexes(d.SentFriendRequests),
		ReceivedRequests: hexes(d.ReceivedFriendRequests),
		CreatedAt:        d.CreatedAt.UTC(),
		UpdatedAt:        d.UpdatedAt.UTC(),
	}
	account.Normalize()
	return account
}

func (d *accountDoc) toSummary() models.AccountSummary {
	return models.AccountSummary{
		ID:             d.ID.Hex(),
		Name:           d.Name,
		Email:          d.Email,
		ProfilePicture: d.ProfilePicture,
	}
}

func (d *postDoc) toModel() *models.Post {
	return &models.Post{
		ID:          d.ID.Hex(),
		OwnerID:     d.UserID.Hex(),
		Description: d.Description,
		MediaKind:   models.MediaKind(d.MediaType),
		MediaRef:    d.MediaURL,
		IsPublic:    d.IsPublic,
		CreatedAt:   d.CreatedAt.UTC(),
		UpdatedAt:   d.UpdatedAt.UTC(),
	}
}

func (d *messageDoc) toModel() models.Message {
	return models.Message{
		ID:         d.ID.Hex(),
		SenderID:   d.Sender.Hex(),
		ReceiverID: d.Receiver.Hex(),
		Content:    d.Content,
		Read:       d.Read,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

// Account queries

// CreateAccount inserts a new account document
func (m *Mongo) CreateAccount(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = models.NewID()
	}
	oid, err := objectID(account.ID)
	if err != nil {
		return fmt.Errorf("invalid account id %q", account.ID)
	}
	ts := mongoNow()
	account.CreatedAt, account.UpdatedAt = ts, ts

	doc := accountDoc{
		ID:                     oid,
		Name:                   account.Name,
		Email:                  account.Email,
		Mobile:                 account.Mobile,
		Password:               account.Password,
		ProfilePicture:         account.ProfilePicture,
		Friends:                []primitive.ObjectID{},
		SentFriendRequests:     []primitive.ObjectID{},
		ReceivedFriendRequests: []primitive.ObjectID{},
		CreatedAt:              ts,
		UpdatedAt:              ts,
	}
	if _, err := m.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicateEmail
		}
		return fmt.Errorf("insert account: %w", err)
	}
	account.Normalize()
	return nil
}

func (m *Mongo) findAccount(ctx context.Context, filter bson.M) (*models.Account, error) {
	var doc accountDoc
	err := m.users.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// GetAccountByID retrieves an account by its id
func (m *Mongo) GetAccountByID(ctx context.Context, id string) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	return m.findAccount(ctx, bson.M{"_id": oid})
}

// GetAccountByEmail retrieves an account by its email
func (m *Mongo) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	return m.findAccount(ctx, bson.M{"email": email})
}

var summaryProjection = bson.M{"name": 1, "email": 1, "profilePicture": 1}

// GetAccountSummaries returns summaries for ids in the order given.
// Ids without an account are skipped.
func (m *Mongo) GetAccountSummaries(ctx context.Context, ids []string) ([]models.AccountSummary, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []models.AccountSummary{}, nil
	}
	cursor, err := m.users.Find(ctx, bson.M{"_id": bson.M{"$in": oids}},
		options.Find().SetProjection(summaryProjection))
	if err != nil {
		return nil, err
	}
	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	byID := make(map[string]models.AccountSummary, len(docs))
	for i := range docs {
		byID[docs[i].ID.Hex()] = docs[i].toSummary()
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
func (m *Mongo) UpdateAccount(ctx context.Context, id string, update models.AccountUpdate) (*models.Account, error) {
	oid, err := objectID(id)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": mongoNow()}
	if update.Name != nil {
		set["name"] = *update.Name
	}
	if update.Mobile != nil {
		set["mobile"] = *update.Mobile
	}
	if update.ProfilePicture != nil {
		set["profilePicture"] = *update.ProfilePicture
	}

	var doc accountDoc
	err = m.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update account: %w", err)
	}
	return doc.toModel(), nil
}

// DeleteAccount removes the account document, pulls its id from every
// other account, and deletes its posts and messages
func (m *Mongo) DeleteAccount(ctx context.Context, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	return m.inTx(ctx, func(ctx context.Context) error {
		result, err := m.users.DeleteOne(ctx, bson.M{"_id": oid})
		if err != nil {
			return err
		}
		if result.DeletedCount == 0 {
			return ErrNotFound
		}
		if _, err := m.users.UpdateMany(ctx,
			bson.M{"$or": bson.A{
				bson.M{"friends": oid},
				bson.M{"sentFriendRequests": oid},
				bson.M{"receivedFriendRequests": oid},
			}},
			bson.M{"$pull": bson.M{
				"friends":                oid,
				"sentFriendRequests":     oid,
				"receivedFriendRequests": oid,
			}},
		); err != nil {
			return err
		}
		if _, err := m.posts.DeleteMany(ctx, bson.M{"userId": oid}); err != nil {
			return err
		}
		_, err = m.messages.DeleteMany(ctx, bson.M{"$or": bson.A{
			bson.M{"sender": oid},
			bson.M{"receiver": oid},
		}})
		return err
	})
}

// SearchAccounts finds accounts whose name or email contains query,
// ignoring case
func (m *Mongo) SearchAccounts(ctx context.Context, query, excludeID string) ([]models.AccountSummary, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"name": pattern},
		bson.M{"email": pattern},
	}}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}

	cursor, err := m.users.Find(ctx, filter, options.Find().
		SetProjection(summaryProjection).
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []accountDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	users := make([]models.AccountSummary, len(docs))
	for i := range docs {
		users[i] = docs[i].toSummary()
	}
	return users, nil
}

// Relationship queries

func (m *Mongo) pair(senderID, receiverID string) (primitive.ObjectID, primitive.ObjectID, error) {
	sender, err := objectID(senderID)
	if err != nil {
		return sender, sender, err
	}
	receiver, err := objectID(receiverID)
	return sender, receiver, err
}

// AddFriendRequest records a pending request on both accounts
func (m *Mongo) AddFriendRequest(ctx context.Context, senderID, receiverID string) error {
	sender, receiver, err := m.pair(senderID, receiverID)
	if err != nil {
		return err
	}
	return m.inTx(ctx, func(ctx context.Context) error {
		if _, err := m.users.UpdateByID(ctx, sender,
			bson.M{"$addToSet": bson.M{"sentFriendRequests": receiver}}); err != nil {
			return err
		}
		_, err := m.users.UpdateByID(ctx, receiver,
			bson.M{"$addToSet": bson.M{"receivedFriendRequests": sender}})
		return err
	})
}

// AcceptFriendRequest turns the pending request sender→receiver into a
// friendship. Returns ErrNotFound if the receiver has no such request.
func (m *Mongo) AcceptFriendRequest(ctx context.Context, senderID, receiverID string) error {
	sender, receiver, err := m.pair(senderID, receiverID)
	if err != nil {
		return err
	}
	return m.inTx(ctx, func(ctx context.Context) error {
		result, err := m.users.UpdateOne(ctx,
			bson.M{"_id": receiver, "receivedFriendRequests": sender},
			bson.M{
				"$addToSet": bson.M{"friends": sender},
				"$pull":     bson.M{"receivedFriendRequests": sender, "sentFriendRequests": sender},
			})
		if err != nil {
			return err
		}
		if result.MatchedCount == 0 {
			return ErrNotFound
		}
		_, err = m.users.UpdateByID(ctx, sender, bson.M{
			"$addToSet": bson.M{"friends": receiver},
			"$pull":     bson.M{"sentFriendRequests": receiver, "receivedFriendRequests": receiver},
		})
		return err
	})
}

// RemoveFriendRequest drops the pending request sender→receiver from both
// accounts. Removing a request that does not exist is not an error.
func (m *Mongo) RemoveFriendRequest(ctx context.Context, senderID, receiverID string) error {
	sender, receiver, err := m.pair(senderID, receiverID)
	if err != nil {
		return nil
	}
	return m.inTx(ctx, func(ctx context.Context) error {
		if _, err := m.users.UpdateByID(ctx, receiver,
			bson.M{"$pull": bson.M{"receivedFriendRequests": sender}}); err != nil {
			return err
		}
		_, err := m.users.UpdateByID(ctx, sender,
			bson.M{"$pull": bson.M{"sentFriendRequests": receiver}})
		return err
	})
}

// Post queries

// CreatePost inserts a new post document
func (m *Mongo) CreatePost(ctx context.Context, post *models.Post) error {
	if post.ID == "" {
		post.ID = models.NewID()
	}
	oid, err := objectID(post.ID)
	if err != nil {
		return fmt.Errorf("invalid post id %q", post.ID)
	}
	owner, err := objectID(post.OwnerID)
	if err != nil {
		return err
	}
	ts := mongoNow()
	post.CreatedAt, post.UpdatedAt = ts, ts

	_, err = m.posts.InsertOne(ctx, postDoc{
		ID:          oid,
		UserID:      owner,
		Description: post.Description,
		MediaType:   string(post.MediaKind),
		MediaURL:    post.MediaRef,
		IsPublic:    post.IsPublic,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	})
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (m *Mongo) postFilter(ownerID, postID string) (bson.M, error) {
	owner, post, err := m.pair(ownerID, postID)
	if err != nil {
		return nil, err
	}
	return bson.M{"_id": post, "userId": owner}, nil
}

// GetPost retrieves a post owned by ownerID
func (m *Mongo) GetPost(ctx context.Context, ownerID, postID string) (*models.Post, error) {
	filter, err := m.postFilter(ownerID, postID)
	if err != nil {
		return nil, err
	}
	var doc postDoc
	err = m.posts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return doc.toModel(), nil
}

// GetPostsByOwner returns the owner's posts, newest first
func (m *Mongo) GetPostsByOwner(ctx context.Context, ownerID string) ([]models.Post, error) {
	owner, err := objectID(ownerID)
	if err != nil {
		return []models.Post{}, nil
	}
	cursor, err := m.posts.Find(ctx, bson.M{"userId": owner},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	var docs []postDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	posts := make([]models.Post, len(docs))
	for i := range docs {
		posts[i] = *docs[i].toModel()
	}
	return posts, nil
}

// UpdatePost applies update to a post owned by ownerID
func (m *Mongo) UpdatePost(ctx context.Context, ownerID, postID string, update models.PostUpdate) (*models.Post, error) {
	filter, err := m.postFilter(ownerID, postID)
	if err != nil {
		return nil, err
	}
	set := bson.M{"updatedAt": mongoNow()}
	if update.Description != nil {
		set["description"] = *update.Description
	}
	if update.IsPublic != nil {
		set["isPublic"] = *update.IsPublic
	}
	if update.MediaRef != "" {
		set["mediaUrl"] = update.MediaRef
		set["mediaType"] = string(update.MediaKind)
	}

	var doc postDoc
	err = m.posts.FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update post: %w", err)
	}
	return doc.toModel(), nil
}

// DeletePost removes a post owned by ownerID
func (m *Mongo) DeletePost(ctx context.Context, ownerID, postID string) error {
	filter, err := m.postFilter(ownerID, postID)
	if err != nil {
		return err
	}
	result, err := m.posts.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Message queries

// CreateMessage inserts a new unread message
func (m *Mongo) CreateMessage(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = models.NewID()
	}
	oid, err := objectID(msg.ID)
	if err != nil {
		return fmt.Errorf("invalid message id %q", msg.ID)
	}
	sender, receiver, err := m.pair(msg.SenderID, msg.ReceiverID)
	if err != nil {
		return err
	}
	msg.CreatedAt = mongoNow()
	msg.Read = false

	_, err = m.messages.InsertOne(ctx, messageDoc{
		ID:        oid,
		Sender:    sender,
		Receiver:  receiver,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}
	return nil
}

// GetMessagesBetween returns the messages exchanged by two accounts,
// oldest first
func (m *Mongo) GetMessagesBetween(ctx context.Context, userID1, userID2 string) ([]models.Message, error) {
	a, b, err := m.pair(userID1, userID2)
	if err != nil {
		return []models.Message{}, nil
	}
	cursor, err := m.messages.Find(ctx,
		bson.M{"$or": bson.A{
			bson.M{"sender": a, "receiver": b},
			bson.M{"sender": b, "receiver": a},
		}},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}
	messages := make([]models.Message, len(docs))
	for i := range docs {
		messages[i] = docs[i].toModel()
	}
	return messages, nil
}

// MarkMessagesAsRead marks the unread messages among ids that sender sent
// to receiver as read and reports how many changed
func (m *Mongo) MarkMessagesAsRead(ctx context.Context, senderID, receiverID string, ids []string) (int64, error) {
	sender, receiver, err := m.pair(senderID, receiverID)
	if err != nil {
		return 0, nil
	}
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return 0, nil
	}
	result, err := m.messages.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}, "sender": sender, "receiver": receiver, "read": false},
		bson.M{"$set": bson.M{"read": true}})
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

// GetConversations groups userID's messages by counterpart inside the
// database: latest message and unread count per counterpart, most recent
// conversation first
func (m *Mongo) GetConversations(ctx context.Context, userID string) ([]models.ConversationRow, error) {
	uid, err := objectID(userID)
	if err != nil {
		return []models.ConversationRow{}, nil
	}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"$or": bson.A{
			bson.M{"sender": uid},
			bson.M{"receiver": uid},
		}}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$sender", uid}}, "$receiver", "$sender",
			}},
			"lastMessage": bson.M{"$first": "$$ROOT"},
			"unreadCount": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$and": bson.A{
					bson.M{"$eq": bson.A{"$receiver", uid}},
					bson.M{"$eq": bson.A{"$read", false}},
				}},
				1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessage.createdAt", Value: -1}, {Key: "lastMessage._id", Value: -1}}}},
	}

	cursor, err := m.messages.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	var groups []struct {
		Counterpart primitive.ObjectID `bson:"_id"`
		LastMessage messageDoc         `bson:"lastMessage"`
		UnreadCount int                `bson:"unreadCount"`
	}
	if err := cursor.All(ctx, &groups); err != nil {
		return nil, err
	}

	conversations := make([]models.ConversationRow, len(groups))
	for i, g := range groups {
		conversations[i] = models.ConversationRow{
			CounterpartID: g.Counterpart.Hex(),
			LastMessage:   g.LastMessage.toModel(),
			UnreadCount:   g.UnreadCount,
		}
	}
	return conversations, nil
}
