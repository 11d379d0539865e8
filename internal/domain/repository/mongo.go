package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"eduscore/internal/common"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const queryTimeout = 10 * time.Second

var (
	dupKeyFieldRegex = regexp.MustCompile(`dup key: \{ ?"?([A-Za-z0-9_.]+)"?\s*:`)
	dupIndexRegex    = regexp.MustCompile(`index: ([A-Za-z0-9]+)_`)
)

// ParseID converts a hex string coming from a path or body into an ObjectID.
func ParseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, common.BadRequest("ID không hợp lệ.")
	}
	return oid, nil
}

func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// mapMongoError translates driver errors into the common error kinds.
func mapMongoError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return common.NewError(common.ErrDuplicateKey, fmt.Sprintf("%s đã tồn tại trong hệ thống.", duplicateField(err)))
	}
	return fmt.Errorf("%s: %w", op, err)
}

// duplicateField extracts the offending field from an E11000 message.
func duplicateField(err error) string {
	msg := err.Error()
	if m := dupKeyFieldRegex.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}
	if m := dupIndexRegex.FindStringSubmatch(msg); len(m) == 2 {
		return m[1]
	}
	return "Dữ liệu"
}

// searchRegex matches search anywhere in a field, case-insensitively.
func searchRegex(search string) primitive.Regex {
	return primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
}

func idsOrEmpty(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return ids
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, op string, filter interface{}, opts ...*options.FindOptions) ([]T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, mapMongoError(op, err)
	}
	defer cursor.Close(ctx)

	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, mapMongoError(op, err)
	}
	return out, nil
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, op string, filter interface{}) (*T, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	var out T
	if err := coll.FindOne(ctx, filter).Decode(&out); err != nil {
		return nil, mapMongoError(op, err)
	}
	return &out, nil
}

func deleteByID(ctx context.Context, coll *mongo.Collection, op string, id primitive.ObjectID) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapMongoError(op, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%s: %w", op, common.ErrNotFound)
	}
	return nil
}
