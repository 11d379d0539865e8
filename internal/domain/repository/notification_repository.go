package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/platform/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type NotificationRepository interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Notification, error)
	// ListBroadcast returns the newest broadcast notifications.
	ListBroadcast(ctx context.Context, limit int64) ([]model.Notification, error)
	// ListForUser returns broadcast notifications and those targeted at userID.
	ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]model.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) error
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DeleteBroadcastByPrefix removes broadcast notifications of type
	// whose message starts with prefix.
	DeleteBroadcastByPrefix(ctx context.Context, notifType, prefix string) (int64, error)
}

type mongoNotificationRepository struct {
	coll *mongo.Collection
}

func NewMongoNotificationRepository(db *mongo.Database) NotificationRepository {
	return &mongoNotificationRepository{coll: db.Collection(database.NotificationsCollection)}
}

func visibleTo(userID primitive.ObjectID) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"targetUser": nil},
		bson.M{"targetUser": userID},
	}}
}

func (r *mongoNotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	n.ReadBy = idsOrEmpty(n.ReadBy)
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		return mapMongoError("mongoNotificationRepository.Create", err)
	}
	return nil
}

func (r *mongoNotificationRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Notification, error) {
	return findOne[model.Notification](ctx, r.coll, "mongoNotificationRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoNotificationRepository) ListBroadcast(ctx context.Context, limit int64) ([]model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	return findAll[model.Notification](ctx, r.coll, "mongoNotificationRepository.ListBroadcast",
		bson.M{"targetUser": nil}, opts)
}

func (r *mongoNotificationRepository) ListForUser(ctx context.Context, userID primitive.ObjectID, limit int64) ([]model.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(limit)
	return findAll[model.Notification](ctx, r.coll, "mongoNotificationRepository.ListForUser",
		visibleTo(userID), opts)
}

func (r *mongoNotificationRepository) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := visibleTo(userID)
	filter["readBy"] = bson.M{"$ne": userID}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, mapMongoError("mongoNotificationRepository.CountUnread", err)
	}
	return n, nil
}

func (r *mongoNotificationRepository) MarkRead(ctx context.Context, id, userID primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := visibleTo(userID)
	filter["_id"] = id
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$addToSet": bson.M{"readBy": userID}})
	if err != nil {
		return mapMongoError("mongoNotificationRepository.MarkRead", err)
	}
	if res.MatchedCount == 0 {
		return mapMongoError("mongoNotificationRepository.MarkRead", mongo.ErrNoDocuments)
	}
	return nil
}

func (r *mongoNotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := visibleTo(userID)
	filter["readBy"] = bson.M{"$ne": userID}
	res, err := r.coll.UpdateMany(ctx, filter, bson.M{"$addToSet": bson.M{"readBy": userID}})
	if err != nil {
		return 0, mapMongoError("mongoNotificationRepository.MarkAllRead", err)
	}
	return res.ModifiedCount, nil
}

func (r *mongoNotificationRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoNotificationRepository.Delete", id)
}

func (r *mongoNotificationRepository) DeleteBroadcastByPrefix(ctx context.Context, notifType, prefix string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, bson.M{
		"type":       notifType,
		"targetUser": nil,
		"message":    primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)},
	})
	if err != nil {
		return 0, fmt.Errorf("mongoNotificationRepository.DeleteBroadcastByPrefix: %w", err)
	}
	return res.DeletedCount, nil
}
