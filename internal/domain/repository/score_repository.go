package repository

import (
	"context"
	"errors"
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

type ScoreRepository interface {
	// Upsert writes the score of (Student, Exam) atomically and reports
	// whether a new document was created.
	Upsert(ctx context.Context, w ScoreWrite) (*model.Score, bool, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Score, error)
	List(ctx context.Context, filter ScoreFilter) ([]model.Score, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, by primitive.ObjectID) (*model.Score, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByExam(ctx context.Context, examID primitive.ObjectID) (int64, error)
	// DeleteOrphans removes every score created before cutoff whose exam is
	// not in validExams.
	DeleteOrphans(ctx context.Context, validExams []primitive.ObjectID, cutoff time.Time) (int64, error)
}

type mongoScoreRepository struct {
	coll *mongo.Collection
}

func NewMongoScoreRepository(db *mongo.Database) ScoreRepository {
	return &mongoScoreRepository{coll: db.Collection(database.ScoresCollection)}
}

func (r *mongoScoreRepository) Upsert(ctx context.Context, w ScoreWrite) (*model.Score, bool, error) {
	score, created, err := r.upsert(ctx, w)
	// Two concurrent first writes of the same pair race on the unique
	// index; the loser retries as an update.
	if errors.Is(err, common.ErrDuplicateKey) {
		score, created, err = r.upsert(ctx, w)
	}
	return score, created, err
}

func (r *mongoScoreRepository) upsert(ctx context.Context, w ScoreWrite) (*model.Score, bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{
		"score":     w.Score,
		"grade":     w.Grade,
		"enteredBy": w.EnteredBy,
		"enteredAt": now,
		"updatedAt": now,
	}
	setOnInsert := bson.M{
		"status":    model.ScoreStatusEntered,
		"createdAt": now,
	}
	if w.Note != "" || !w.KeepNote {
		set["note"] = w.Note
	} else {
		setOnInsert["note"] = ""
	}

	filter := bson.M{"student": w.Student, "exam": w.Exam}
	res, err := r.coll.UpdateOne(ctx, filter,
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, mapMongoError("mongoScoreRepository.Upsert", err)
	}

	var score model.Score
	if err := r.coll.FindOne(ctx, filter).Decode(&score); err != nil {
		return nil, false, mapMongoError("mongoScoreRepository.Upsert", err)
	}
	return &score, res.UpsertedCount > 0, nil
}

func (r *mongoScoreRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Score, error) {
	return findOne[model.Score](ctx, r.coll, "mongoScoreRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoScoreRepository) List(ctx context.Context, filter ScoreFilter) ([]model.Score, error) {
	query := bson.M{}
	if filter.Exam != nil {
		query["exam"] = *filter.Exam
	} else if filter.Exams != nil {
		query["exam"] = bson.M{"$in": filter.Exams}
	}
	if filter.Student != nil {
		query["student"] = *filter.Student
	}
	if filter.EnteredBy != nil {
		query["enteredBy"] = *filter.EnteredBy
	}

	sort := bson.D{{Key: "createdAt", Value: -1}}
	if filter.ByEnteredAt {
		sort = bson.D{{Key: "enteredAt", Value: -1}, {Key: "createdAt", Value: -1}}
	}
	return findAll[model.Score](ctx, r.coll, "mongoScoreRepository.List", query, options.Find().SetSort(sort))
}

func (r *mongoScoreRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, status string, by primitive.ObjectID) (*model.Score, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	now := time.Now().UTC()
	set := bson.M{"status": status, "updatedAt": now}
	if status == model.ScoreStatusVerified {
		set["verifiedBy"] = by
		set["verifiedAt"] = now
	}
	update := bson.M{"$set": set}

	var score model.Score
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&score); err != nil {
		return nil, mapMongoError("mongoScoreRepository.UpdateStatus", err)
	}
	return &score, nil
}

func (r *mongoScoreRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoScoreRepository.Delete", id)
}

func (r *mongoScoreRepository) DeleteByExam(ctx context.Context, examID primitive.ObjectID) (int64, error) {
	return r.deleteMany(ctx, "mongoScoreRepository.DeleteByExam", bson.M{"exam": examID})
}

func (r *mongoScoreRepository) DeleteOrphans(ctx context.Context, validExams []primitive.ObjectID, cutoff time.Time) (int64, error) {
	filter := bson.M{
		"createdAt": bson.M{"$lt": cutoff},
		"$or": bson.A{
			bson.M{"exam": bson.M{"$nin": idsOrEmpty(validExams)}},
			bson.M{"exam": nil},
		},
	}
	return r.deleteMany(ctx, "mongoScoreRepository.DeleteOrphans", filter)
}

func (r *mongoScoreRepository) deleteMany(ctx context.Context, op string, filter bson.M) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.DeleteMany(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return res.DeletedCount, nil
}
