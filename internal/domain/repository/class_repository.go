package repository

import (
	"context"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/platform/database"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ClassRepository interface {
	Create(ctx context.Context, class *model.Class) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Class, error)
	FindByExam(ctx context.Context, examID primitive.ObjectID) (*model.Class, error)
	List(ctx context.Context, filter ClassFilter) ([]model.Class, error)
	// Update writes the editable fields. It reports false when the class
	// is missing or its roster no longer fits class.MaxStudents.
	Update(ctx context.Context, class *model.Class) (bool, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	// AddStudent appends one student when absent and below capacity.
	AddStudent(ctx context.Context, classID, studentID primitive.ObjectID) (bool, error)
	// AddStudents appends the whole batch or nothing: none of ids may be
	// rostered and the roster must stay within capacity.
	AddStudents(ctx context.Context, classID primitive.ObjectID, ids []primitive.ObjectID) (bool, error)
	RemoveStudent(ctx context.Context, classID, studentID primitive.ObjectID) (bool, error)
	AddExam(ctx context.Context, classID, examID primitive.ObjectID) (bool, error)
	PullExam(ctx context.Context, examID primitive.ObjectID) (int64, error)
}

type mongoClassRepository struct {
	coll *mongo.Collection
}

func NewMongoClassRepository(db *mongo.Database) ClassRepository {
	return &mongoClassRepository{coll: db.Collection(database.ClassesCollection)}
}

// rosterSize is the aggregation expression for the current roster length.
var rosterSize = bson.M{"$size": bson.M{"$ifNull": bson.A{"$students", bson.A{}}}}

func (r *mongoClassRepository) Create(ctx context.Context, class *model.Class) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	class.Students = idsOrEmpty(class.Students)
	class.Exams = idsOrEmpty(class.Exams)
	now := time.Now().UTC()
	class.CreatedAt, class.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, class); err != nil {
		return mapMongoError("mongoClassRepository.Create", err)
	}
	return nil
}

func (r *mongoClassRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Class, error) {
	return findOne[model.Class](ctx, r.coll, "mongoClassRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoClassRepository) FindByExam(ctx context.Context, examID primitive.ObjectID) (*model.Class, error) {
	return findOne[model.Class](ctx, r.coll, "mongoClassRepository.FindByExam", bson.M{"exams": examID})
}

func (r *mongoClassRepository) List(ctx context.Context, filter ClassFilter) ([]model.Class, error) {
	query := bson.M{}
	if filter.Subject != nil {
		query["subject"] = *filter.Subject
	}
	if filter.Teacher != nil {
		query["teacher"] = *filter.Teacher
	}
	if filter.Student != nil {
		query["students"] = *filter.Student
	}
	if filter.Semester != "" {
		query["semester"] = filter.Semester
	}
	if filter.AcademicYear != "" {
		query["academicYear"] = filter.AcademicYear
	}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		query["$or"] = bson.A{bson.M{"code": re}, bson.M{"name": re}}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[model.Class](ctx, r.coll, "mongoClassRepository.List", query, opts)
}

func (r *mongoClassRepository) Update(ctx context.Context, class *model.Class) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	class.UpdatedAt = time.Now().UTC()
	filter := bson.M{
		"_id":   class.ID,
		"$expr": bson.M{"$lte": bson.A{rosterSize, class.MaxStudents}},
	}
	set := bson.M{
		"code":         class.Code,
		"name":         class.Name,
		"subject":      class.Subject,
		"teacher":      class.Teacher,
		"semester":     class.Semester,
		"academicYear": class.AcademicYear,
		"schedule":     class.Schedule,
		"room":         class.Room,
		"maxStudents":  class.MaxStudents,
		"password":     class.Password,
		"isActive":     class.IsActive,
		"updatedAt":    class.UpdatedAt,
	}
	res, err := r.coll.UpdateOne(ctx, filter, bson.M{"$set": set})
	if err != nil {
		return false, mapMongoError("mongoClassRepository.Update", err)
	}
	return res.MatchedCount == 1, nil
}

func (r *mongoClassRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoClassRepository.Delete", id)
}

func (r *mongoClassRepository) AddStudent(ctx context.Context, classID, studentID primitive.ObjectID) (bool, error) {
	filter := bson.M{
		"_id":      classID,
		"students": bson.M{"$ne": studentID},
		"$expr":    bson.M{"$lt": bson.A{rosterSize, "$maxStudents"}},
	}
	return r.updateOne(ctx, "mongoClassRepository.AddStudent", filter, bson.M{
		"$push": bson.M{"students": studentID},
	})
}

func (r *mongoClassRepository) AddStudents(ctx context.Context, classID primitive.ObjectID, ids []primitive.ObjectID) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	filter := bson.M{
		"_id":      classID,
		"students": bson.M{"$nin": ids},
		"$expr": bson.M{"$lte": bson.A{
			bson.M{"$add": bson.A{rosterSize, len(ids)}},
			"$maxStudents",
		}},
	}
	return r.updateOne(ctx, "mongoClassRepository.AddStudents", filter, bson.M{
		"$addToSet": bson.M{"students": bson.M{"$each": ids}},
	})
}

func (r *mongoClassRepository) RemoveStudent(ctx context.Context, classID, studentID primitive.ObjectID) (bool, error) {
	return r.updateOne(ctx, "mongoClassRepository.RemoveStudent",
		bson.M{"_id": classID, "students": studentID},
		bson.M{"$pull": bson.M{"students": studentID}},
	)
}

func (r *mongoClassRepository) AddExam(ctx context.Context, classID, examID primitive.ObjectID) (bool, error) {
	return r.updateOne(ctx, "mongoClassRepository.AddExam",
		bson.M{"_id": classID, "exams": bson.M{"$ne": examID}},
		bson.M{"$push": bson.M{"exams": examID}},
	)
}

func (r *mongoClassRepository) PullExam(ctx context.Context, examID primitive.ObjectID) (int64, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	res, err := r.coll.UpdateMany(ctx,
		bson.M{"exams": examID},
		bson.M{"$pull": bson.M{"exams": examID}, "$set": bson.M{"updatedAt": time.Now().UTC()}},
	)
	if err != nil {
		return 0, mapMongoError("mongoClassRepository.PullExam", err)
	}
	return res.ModifiedCount, nil
}

// updateOne runs a conditional roster update and reports whether it applied.
func (r *mongoClassRepository) updateOne(ctx context.Context, op string, filter, update bson.M) (bool, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	update["$set"] = bson.M{"updatedAt": time.Now().UTC()}
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, mapMongoError(op, err)
	}
	return res.ModifiedCount == 1, nil
}
