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

type UserRepository interface {
	Create(ctx context.Context, user *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByStudentID(ctx context.Context, studentID string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error)
	List(ctx context.Context, filter UserFilter) ([]model.User, error)
	Update(ctx context.Context, user *model.User) error
	Patch(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*model.User, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// UserPatch lists the self-service fields a user may change. Nil fields are
// left untouched.
type UserPatch struct {
	Name           *string
	Phone          *string
	HashedPassword *string
}

type mongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) UserRepository {
	return &mongoUserRepository{coll: db.Collection(database.UsersCollection)}
}

func (r *mongoUserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		return mapMongoError("mongoUserRepository.Create", err)
	}
	return nil
}

func (r *mongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return findOne[model.User](ctx, r.coll, "mongoUserRepository.FindByID", bson.M{"_id": id})
}

func (r *mongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return findOne[model.User](ctx, r.coll, "mongoUserRepository.FindByEmail", bson.M{"email": email})
}

func (r *mongoUserRepository) FindByStudentID(ctx context.Context, studentID string) (*model.User, error) {
	return findOne[model.User](ctx, r.coll, "mongoUserRepository.FindByStudentID", bson.M{"studentId": studentID})
}

func (r *mongoUserRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	if len(ids) == 0 {
		return []model.User{}, nil
	}
	return findAll[model.User](ctx, r.coll, "mongoUserRepository.FindByIDs", bson.M{"_id": bson.M{"$in": ids}})
}

func (r *mongoUserRepository) List(ctx context.Context, filter UserFilter) ([]model.User, error) {
	query := bson.M{}
	if filter.Role != "" {
		query["role"] = filter.Role
	}
	if filter.IsActive != nil {
		query["isActive"] = *filter.IsActive
	}
	if filter.Search != "" {
		re := searchRegex(filter.Search)
		query["$or"] = bson.A{
			bson.M{"name": re},
			bson.M{"email": re},
			bson.M{"studentId": re},
		}
	}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	return findAll[model.User](ctx, r.coll, "mongoUserRepository.List", query, opts)
}

// Update replaces the stored document, so cleared optional fields are unset.
func (r *mongoUserRepository) Update(ctx context.Context, user *model.User) error {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	user.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	if err != nil {
		return mapMongoError("mongoUserRepository.Update", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("mongoUserRepository.Update: %w", common.ErrNotFound)
	}
	return nil
}

// Patch sets only the given fields and returns the stored user, so concurrent
// admin changes to role or isActive survive.
func (r *mongoUserRepository) Patch(ctx context.Context, id primitive.ObjectID, patch UserPatch) (*model.User, error) {
	ctx, cancel := withTimeout(ctx)
	defer cancel()

	set := bson.M{"updatedAt": time.Now().UTC()}
	if patch.Name != nil {
		set["name"] = *patch.Name
	}
	if patch.Phone != nil {
		set["phone"] = *patch.Phone
	}
	if patch.HashedPassword != nil {
		set["password"] = *patch.HashedPassword
	}

	var user model.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user); err != nil {
		return nil, mapMongoError("mongoUserRepository.Patch", err)
	}
	return &user, nil
}

func (r *mongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	return deleteByID(ctx, r.coll, "mongoUserRepository.Delete", id)
}
