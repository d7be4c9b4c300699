// Package mongostore implements the relay stores on MongoDB. Link records are
// kept as single documents with an embedded copies array, matched with
// $elemMatch when resolving a copy back to its record.
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/zulandar/polyglot/internal/store"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	collLanguages = "channel_languages"
	collLinks     = "channel_links"
	collRecords   = "message_links"
)

// Store implements store.Links and store.Channels on one MongoDB database.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// languageDoc is one translation-enabled channel.
type languageDoc struct {
	ChannelID string    `bson:"_id"`
	GuildID   string    `bson:"guildId,omitempty"`
	Language  string    `bson:"language"`
	UpdatedAt time.Time `bson:"updatedAt"`
}

// edgeDoc is one directed topology link.
type edgeDoc struct {
	ChannelID       string    `bson:"channelId"`
	LinkedChannelID string    `bson:"linkedChannelId"`
	CreatedAt       time.Time `bson:"createdAt"`
}

// recordDoc is a persisted store.LinkRecord.
type recordDoc struct {
	store.LinkRecord `bson:",inline"`
	CreatedAt        time.Time `bson:"createdAt"`
}

// Connect dials uri, pings the server, and returns a Store bound to database.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongostore: connection URI is empty")
	}
	clientOptions := options.Client().ApplyURI(uri).
		SetMaxPoolSize(50).
		SetConnectTimeout(5 * time.Second).
		SetSocketTimeout(10 * time.Second)

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect: %w", err)
	}

	pingCtx, cancelPing := context.WithTimeout(ctx, 2*time.Second)
	defer cancelPing()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongostore: ping: %w", err)
	}

	log.Printf("mongostore: connected to %s", database)
	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("mongostore: disconnect: %w", err)
	}
	return nil
}

// EnsureIndexes creates the indexes the lookups rely on.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for coll, models := range indexModels() {
		if _, err := s.db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("mongostore: create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

func indexModels() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		collRecords: {
			{Keys: bson.D{{Key: "originMessageId", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "copies.messageId", Value: 1}, {Key: "copies.channelId", Value: 1}}},
		},
		collLinks: {
			{Keys: bson.D{{Key: "channelId", Value: 1}, {Key: "linkedChannelId", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
}

// Create inserts rec as a single document.
func (s *Store) Create(ctx context.Context, rec store.LinkRecord) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.Copies == nil {
		rec.Copies = []store.Copy{}
	}
	doc := recordDoc{LinkRecord: rec, CreatedAt: time.Now()}
	if _, err := s.db.Collection(collRecords).InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("mongostore: create link %s: %w", rec.OriginMessageID, err)
	}
	return nil
}

// FindByCopyOrOrigin locates the record whose origin or one of whose copies
// is (messageID, channelID).
func (s *Store) FindByCopyOrOrigin(ctx context.Context, messageID, channelID string) (*store.LinkRecord, error) {
	rec, err := s.findRecord(ctx, copyOrOriginFilter(messageID, channelID))
	if err != nil {
		return nil, fmt.Errorf("mongostore: find link for %s/%s: %w", channelID, messageID, err)
	}
	return rec, nil
}

// FindByOriginID returns the record for an origin message.
func (s *Store) FindByOriginID(ctx context.Context, messageID string) (*store.LinkRecord, error) {
	rec, err := s.findRecord(ctx, bson.M{"originMessageId": messageID})
	if err != nil {
		return nil, fmt.Errorf("mongostore: find link by origin %s: %w", messageID, err)
	}
	return rec, nil
}

func (s *Store) findRecord(ctx context.Context, filter bson.M) (*store.LinkRecord, error) {
	var doc recordDoc
	err := s.db.Collection(collRecords).FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc.LinkRecord, nil
}

// copyOrOriginFilter matches a record by its origin pair or by a copy entry
// holding both IDs in the same array element.
func copyOrOriginFilter(messageID, channelID string) bson.M {
	return bson.M{
		"$or": bson.A{
			bson.M{"originMessageId": messageID, "originChannelId": channelID},
			bson.M{"copies": bson.M{
				"$elemMatch": bson.M{
					"messageId": messageID,
					"channelId": channelID,
				},
			}},
		},
	}
}

// Language returns the configured language of channelID.
func (s *Store) Language(ctx context.Context, channelID string) (string, bool, error) {
	var doc languageDoc
	err := s.db.Collection(collLanguages).FindOne(ctx, bson.M{"_id": channelID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("mongostore: language of %s: %w", channelID, err)
	}
	return doc.Language, true, nil
}

// LinkedChannels returns the channels channelID relays into, ordered by ID.
func (s *Store) LinkedChannels(ctx context.Context, channelID string) ([]string, bool, error) {
	edges, err := s.Edges(ctx, channelID)
	if err != nil {
		return nil, false, err
	}
	if len(edges) == 0 {
		return nil, false, nil
	}
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.LinkedChannelID)
	}
	return ids, true, nil
}

// SetLanguage creates or replaces a channel's language.
func (s *Store) SetLanguage(ctx context.Context, guildID, channelID, lang string) error {
	if channelID == "" || lang == "" {
		return fmt.Errorf("mongostore: channel ID and language are required")
	}
	doc := languageDoc{ChannelID: channelID, GuildID: guildID, Language: lang, UpdatedAt: time.Now()}
	_, err := s.db.Collection(collLanguages).ReplaceOne(ctx, bson.M{"_id": channelID}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongostore: set language of %s: %w", channelID, err)
	}
	return nil
}

// UnsetLanguage removes a channel's language.
func (s *Store) UnsetLanguage(ctx context.Context, channelID string) error {
	if _, err := s.db.Collection(collLanguages).DeleteOne(ctx, bson.M{"_id": channelID}); err != nil {
		return fmt.Errorf("mongostore: unset language of %s: %w", channelID, err)
	}
	return nil
}

// Link connects a and b in both directions.
func (s *Store) Link(ctx context.Context, a, b string) error {
	if a == "" || b == "" {
		return fmt.Errorf("mongostore: both channel IDs are required")
	}
	if a == b {
		return fmt.Errorf("mongostore: cannot link channel %s to itself", a)
	}
	now := time.Now()
	coll := s.db.Collection(collLinks)
	for _, e := range []edgeDoc{
		{ChannelID: a, LinkedChannelID: b, CreatedAt: now},
		{ChannelID: b, LinkedChannelID: a, CreatedAt: now},
	} {
		filter := edgeFilter(e.ChannelID, e.LinkedChannelID)
		update := bson.M{"$setOnInsert": e}
		if _, err := coll.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
			return fmt.Errorf("mongostore: link %s <-> %s: %w", a, b, err)
		}
	}
	return nil
}

// Unlink removes both directions of the a-b link.
func (s *Store) Unlink(ctx context.Context, a, b string) error {
	filter := bson.M{"$or": bson.A{edgeFilter(a, b), edgeFilter(b, a)}}
	res, err := s.db.Collection(collLinks).DeleteMany(ctx, filter)
	if err != nil {
		return fmt.Errorf("mongostore: unlink %s <-> %s: %w", a, b, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("mongostore: no link between %s and %s", a, b)
	}
	return nil
}

// Edges lists directed links. An empty channelID lists every edge.
func (s *Store) Edges(ctx context.Context, channelID string) ([]store.Edge, error) {
	filter := bson.M{}
	if channelID != "" {
		filter["channelId"] = channelID
	}
	opts := options.Find().SetSort(bson.D{{Key: "channelId", Value: 1}, {Key: "linkedChannelId", Value: 1}})
	cur, err := s.db.Collection(collLinks).Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongostore: list links: %w", err)
	}
	var docs []edgeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongostore: decode links: %w", err)
	}
	edges := make([]store.Edge, 0, len(docs))
	for _, d := range docs {
		edges = append(edges, store.Edge{ChannelID: d.ChannelID, LinkedChannelID: d.LinkedChannelID})
	}
	return edges, nil
}

func edgeFilter(a, b string) bson.M {
	return bson.M{"channelId": a, "linkedChannelId": b}
}
