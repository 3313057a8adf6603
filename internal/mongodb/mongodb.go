// Package mongodb is the MongoDB note store, the default backend.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/kuitang/quicknotes/internal/errs"
	"github.com/kuitang/quicknotes/internal/logutil"
	"github.com/kuitang/quicknotes/internal/notes"
	"github.com/kuitang/quicknotes/internal/obs"
)

const (
	DefaultDatabase   = "notes_app"
	DefaultCollection = "notes"
)

// Config configures the MongoDB store.
type Config struct {
	URI        string
	Database   string
	Collection string
	// ConnectTimeout bounds server selection; zero uses the driver default.
	ConnectTimeout time.Duration
}

type noteDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Title     string             `bson:"title"`
	Content   string             `bson:"content"`
	CreatedAt time.Time          `bson:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt"`
}

func (d *noteDocument) note() *notes.Note {
	return &notes.Note{
		ID:        d.ID.Hex(),
		Title:     d.Title,
		Content:   d.Content,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

// Store implements notes.Store on a MongoDB collection.
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
}

var _ notes.Store = (*Store)(nil)

var sortNewestFirst = bson.D{
	{Key: "updatedAt", Value: -1},
	{Key: "createdAt", Value: -1},
	{Key: "_id", Value: -1},
}

// Open connects, pings the primary and ensures the listing index exists.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, errs.New(errs.Unavailable, "Missing MONGODB_URI in environment")
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	log := obs.Pkg("mongodb")
	log.Info("connecting to mongodb",
		"uri", logutil.DescribeSecret(cfg.URI),
		"database", cfg.Database,
		"collection", cfg.Collection,
	)

	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetServerSelectionTimeout(cfg.ConnectTimeout)
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %s", logutil.ScrubSecret(err.Error(), cfg.URI))
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, fmt.Errorf("failed to ping mongodb: %s", logutil.ScrubSecret(err.Error(), cfg.URI))
	}

	coll := client.Database(cfg.Database).Collection(cfg.Collection)
	_, err = coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    sortNewestFirst,
		Options: options.Index().SetName("updatedAt_desc"),
	})
	if err != nil {
		// Listing still works without the index.
		log.Warn("failed to ensure notes index", "error", logutil.ScrubSecret(err.Error(), cfg.URI))
	}

	return &Store{client: client, coll: coll}, nil
}

// parseID converts a hex id; malformed ids are reported as not found.
func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, notes.ErrNotFound
	}
	return oid, nil
}

func decodeOne(res *mongo.SingleResult) (*notes.Note, error) {
	var doc noteDocument
	if err := res.Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, notes.ErrNotFound
		}
		return nil, err
	}
	return doc.note(), nil
}

// FindAllSorted returns every note, most recently updated first.
func (s *Store) FindAllSorted(ctx context.Context) ([]notes.Note, error) {
	cur, err := s.coll.Find(ctx, bson.D{}, options.Find().SetSort(sortNewestFirst))
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer cur.Close(ctx)

	var docs []noteDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode notes: %w", err)
	}

	list := make([]notes.Note, 0, len(docs))
	for i := range docs {
		list = append(list, *docs[i].note())
	}
	return list, nil
}

// Insert stores a new note; MongoDB assigns the ObjectID.
func (s *Store) Insert(ctx context.Context, note notes.Note) (*notes.Note, error) {
	doc := noteDocument{
		ID:        primitive.NewObjectID(),
		Title:     note.Title,
		Content:   note.Content,
		CreatedAt: note.CreatedAt,
		UpdatedAt: note.UpdatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to insert note: %w", err)
	}
	return doc.note(), nil
}

// FindByID retrieves a note by id.
func (s *Store) FindByID(ctx context.Context, id string) (*notes.Note, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return decodeOne(s.coll.FindOne(ctx, bson.M{"_id": oid}))
}

// FindAndReplaceByID sets title, content and updatedAt atomically and
// returns the document after the update. updatedAt is clamped so it never
// precedes createdAt.
func (s *Store) FindAndReplaceByID(ctx context.Context, id, title, content string, updatedAt time.Time) (*notes.Note, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	// Pipeline form so $max can read createdAt. $literal keeps a title
	// starting with "$" from being read as a field path.
	update := mongo.Pipeline{{{Key: "$set", Value: bson.D{
		{Key: "title", Value: bson.M{"$literal": title}},
		{Key: "content", Value: bson.M{"$literal": content}},
		{Key: "updatedAt", Value: bson.M{"$max": bson.A{"$createdAt", updatedAt}}},
	}}}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	return decodeOne(s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, update, opts))
}

// FindAndDeleteByID removes a note and returns it.
func (s *Store) FindAndDeleteByID(ctx context.Context, id string) (*notes.Note, error) {
	oid, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return decodeOne(s.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}))
}

// Ping checks the primary is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Drop removes the collection. Tests use it to isolate runs.
func (s *Store) Drop(ctx context.Context) error {
	return s.coll.Drop(ctx)
}
