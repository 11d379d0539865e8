package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"eduscore/internal/platform/config"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Collection names.
const (
	UsersCollection         = "users"
	SubjectsCollection      = "subjects"
	ExamsCollection         = "exams"
	ScoresCollection        = "scores"
	ClassesCollection       = "classes"
	NotificationsCollection = "notifications"
)

// AllCollections lists every collection owned by the API.
var AllCollections = []string{
	UsersCollection,
	SubjectsCollection,
	ExamsCollection,
	ScoresCollection,
	ClassesCollection,
	NotificationsCollection,
}

// Mongo is the process-wide connection handle. It is created once in main and
// passed to the repositories; nothing in the tree reaches for it globally.
type Mongo struct {
	Client *mongo.Client
	DB     *mongo.Database
}

func Connect(ctx context.Context, cfg *config.Config) (*Mongo, error) {
	connectCtx, cancel := context.WithTimeout(ctx, cfg.MongoTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetMaxPoolSize(25).
		SetMaxConnIdleTime(5 * time.Minute).
		SetServerSelectionTimeout(cfg.MongoTimeout)

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, fmt.Errorf("opening mongo client: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}

	log.Printf("Successfully connected to MongoDB database %q", cfg.MongoDatabase)
	return &Mongo{Client: client, DB: client.Database(cfg.MongoDatabase)}, nil
}

func (m *Mongo) Close(ctx context.Context) {
	if m == nil || m.Client == nil {
		return
	}
	if err := m.Client.Disconnect(ctx); err != nil {
		log.Printf("WARN: closing mongo connection: %v", err)
		return
	}
	log.Println("Database connection closed.")
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
// CreateMany is idempotent for identical index definitions.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := func() *options.IndexOptions { return options.Index().SetUnique(true) }

	indexes := map[string][]mongo.IndexModel{
		UsersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "studentId", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "role", Value: 1}}},
		},
		SubjectsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique()},
		},
		ExamsCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique().SetSparse(true)},
			{Keys: bson.D{{Key: "subject", Value: 1}}},
			{Keys: bson.D{{Key: "examDate", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
			{Keys: bson.D{{Key: "semester", Value: 1}, {Key: "academicYear", Value: 1}}},
		},
		ScoresCollection: {
			{Keys: bson.D{{Key: "student", Value: 1}, {Key: "exam", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "exam", Value: 1}}},
			{Keys: bson.D{{Key: "enteredBy", Value: 1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		ClassesCollection: {
			{Keys: bson.D{{Key: "code", Value: 1}}, Options: unique()},
			{Keys: bson.D{{Key: "students", Value: 1}}},
			{Keys: bson.D{{Key: "teacher", Value: 1}}},
			{Keys: bson.D{{Key: "exams", Value: 1}}},
		},
		NotificationsCollection: {
			{Keys: bson.D{{Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "type", Value: 1}}},
			{Keys: bson.D{{Key: "targetUser", Value: 1}}},
		},
	}

	for _, name := range AllCollections {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes[name]); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", name, err)
		}
	}
	return nil
}

// Clear deletes every document of every collection, keeping the indexes.
func Clear(ctx context.Context, db *mongo.Database) (map[string]int64, error) {
	deleted := make(map[string]int64, len(AllCollections))
	for _, name := range AllCollections {
		res, err := db.Collection(name).DeleteMany(ctx, bson.D{})
		if err != nil {
			return deleted, fmt.Errorf("clearing %s: %w", name, err)
		}
		deleted[name] = res.DeletedCount
	}
	return deleted, nil
}
