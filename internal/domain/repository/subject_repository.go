package repository

import (
	"context"
	"fmt"
	"time"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/platform/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type SubjectRepository interface {
	Create(ctx context.Context, subject *model.Subject) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Subject, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Subject, error)
	List(ctx context.Context, filter SubjectFilter) ([]model.Subject, error)
	Update(ctx context.Context, subject *model.Subject) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

type mongoSubjectRepository struct {
	coll *mongo.Collection
}

func NewMongoSubjectRepository(db *mongo.Database) SubjectRepository {
	return &mongoSubjectRepository{coll: db.Collection(database.SubjectsCollection)}
}

func (r *mongoSubjectRepository) Create(ctx context.Context, subject *model.Subject) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if subject.ID.IsZero() {
		subject.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	subject.CreatedAt, subject.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, subject); err != nil {
		return mapMongoError("mongoSubjectRepository.Create", err)
	}
	return nil
}

func (r *mongoSubjectRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Subject, error) {
	return findOne[model.Subject](ctx, r.coll, "mongoSubjectRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoSubjectRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Subject, error) {
	if len(ids) == 0 {
		return []model.Subject{}, nil
	}
	return findAll[model.Subject](ctx, r.coll, "mongoSubjectRepository.FindByIDs", bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoSubjectRepository) List(ctx context.Context, filter SubjectFilter) ([]model.Subject, error) {
	query := bson.M{}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		query["$or"] = bson.A{bson.M{"code": re}, bson.M{"name": re}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "code", Value: 1}})
	return findAll[model.Subject](ctx, r.coll, "mongoSubjectRepository.List", query, opts)
}

func (r *mongoSubjectRepository) Update(ctx context.Context, subject *model.Subject) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	subject.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": subject.ID}, subject)
	if err != nil {
		return mapMongoError("mongoSubjectRepository.Update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongoSubjectRepository.Update: %w", common.ErrNotFound)
	}
	return nil
}

func (r *mongoSubjectRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoSubjectRepository.Delete", id)
}
