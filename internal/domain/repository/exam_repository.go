package repository

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/platform/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ExamRepository interface {
	Create(ctx context.Context, exam *model.Exam) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Exam, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Exam, error)
	List(ctx context.Context, filter ExamFilter) ([]model.Exam, error)
	Update(ctx context.Context, exam *model.Exam) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ListIDs(ctx context.Context) ([]primitive.ObjectID, error)

	CountByCodePrefix(ctx context.Context, prefix string) (int64, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	// AddParticipant appends studentID to an open public exam in one
	// conditional update. It reports false when no exam matched the
	// registration conditions.
	AddParticipant(ctx context.Context, examID, studentID primitive.ObjectID) (bool, error)
	RemoveParticipant(ctx context.Context, examID, studentID primitive.ObjectID) (bool, error)
}

type mongoExamRepository struct {
	coll *mongo.Collection
}

func NewMongoExamRepository(db *mongo.Database) ExamRepository {
	return &mongoExamRepository{coll: db.Collection(database.ExamsCollection)}
}

func (r *mongoExamRepository) Create(ctx context.Context, exam *model.Exam) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if exam.ID.IsZero() {
		exam.ID = primitive.NewObjectID()
	}
	exam.Participants = idsOrEmpty(exam.Participants)
	now := time.Now().UTC()
	exam.CreatedAt, exam.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, exam); err != nil {
		return mapMongoError("mongoExamRepository.Create", err)
	}
	return nil
}

func (r *mongoExamRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Exam, error) {
	return findOne[model.Exam](ctx, r.coll, "mongoExamRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoExamRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.Exam, error) {
	if len(ids) == 0 {
		return []model.Exam{}, nil
	}
	return findAll[model.Exam](ctx, r.coll, "mongoExamRepository.FindByIDs", bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoExamRepository) List(ctx context.Context, filter ExamFilter) ([]model.Exam, error) {
	query := bson.M{}
	switch {
	case filter.PublicOnly:
		query["subject"] = nil
	case filter.Subject != nil:
		query["subject"] = *filter.Subject
	}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Semester != "" {
		query["semester"] = filter.Semester
	}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		query["$or"] = bson.A{bson.M{"name": re}, bson.M{"code": re}}
	}

	order := -1
	if filter.ByDateAsc {
		order = 1
	}
	opts := options.Find().SetSort(bson.D{{Key: "examDate", Value: order}})
	return findAll[model.Exam](ctx, r.coll, "mongoExamRepository.List", query, opts)
}

// Update writes the editable fields only. Code and participants are
// owned by allocation and registration respectively.
func (r *mongoExamRepository) Update(ctx context.Context, exam *model.Exam) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	exam.UpdatedAt = time.Now().UTC()
	set := bson.M{
		"name":            exam.Name,
		"subject":         exam.Subject,
		"examDate":        exam.ExamDate,
		"startTime":       exam.StartTime,
		"endTime":         exam.EndTime,
		"room":            exam.Room,
		"duration":        exam.Duration,
		"semester":        exam.Semester,
		"academicYear":    exam.AcademicYear,
		"status":          exam.Status,
		"description":     exam.Description,
		"maxParticipants": exam.MaxParticipants,
		"updatedAt":       exam.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": exam.ID}, bson.M{"$set": set})
	if err != nil {
		return mapMongoError("mongoExamRepository.Update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongoExamRepository.Update: %w", common.ErrNotFound)
	}
	return nil
}

func (r *mongoExamRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoExamRepository.Delete", id)
}

func (r *mongoExamRepository) ListIDs(ctx context.Context) ([]primitive.ObjectID, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	values, err := r.coll.Distinct(ctx, "_id", bson.D{})
	if err != nil {
		return nil, mapMongoError("mongoExamRepository.ListIDs", err)
	}
	ids := make([]primitive.ObjectID, 0, len(values))
	for _, v := range values {
		if id, ok := v.(primitive.ObjectID); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *mongoExamRepository) CountByCodePrefix(ctx context.Context, prefix string) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{"code": primitive.Regex{Pattern: "^" + regexp.QuoteMeta(prefix)}}
	n, err := r.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, mapMongoError("mongoExamRepository.CountByCodePrefix", err)
	}
	return n, nil
}

func (r *mongoExamRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	n, err := r.coll.CountDocuments(ctx, bson.M{"code": code}, options.Count().SetLimit(1))
	if err != nil {
		return false, mapMongoError("mongoExamRepository.CodeExists", err)
	}
	return n > 0, nil
}

func (r *mongoExamRepository) AddParticipant(ctx context.Context, examID, studentID primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	filter := bson.M{
		"_id":          examID,
		"subject":      nil,
		"status":       model.ExamStatusUpcoming,
		"participants": bson.M{"$ne": studentID},
		"$expr": bson.M{"$or": bson.A{
			bson.M{"$lte": bson.A{"$maxParticipants", 0}},
			bson.M{"$lt": bson.A{
				bson.M{"$size": bson.M{"$ifNull": bson.A{"$participants", bson.A{}}}},
				"$maxParticipants",
			}},
		}},
	}
	update := bson.M{
		"$push": bson.M{"participants": studentID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, mapMongoError("mongoExamRepository.AddParticipant", err)
	}
	return res.ModifiedCount == 1, nil
}

func (r *mongoExamRepository) RemoveParticipant(ctx context.Context, examID, studentID primitive.ObjectID) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": examID, "participants": studentID},
		bson.M{
			"$pull": bson.M{"participants": studentID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return false, mapMongoError("mongoExamRepository.RemoveParticipant", err)
	}
	return res.ModifiedCount == 1, nil
}
