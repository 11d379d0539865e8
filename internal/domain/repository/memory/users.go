package memory

import (
	"context"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.UserRepository = (*UserRepository)(nil)

type UserRepository struct {
	s *store[model.User]
}

func NewUserRepository() *UserRepository {
	return &UserRepository{s: newStore[model.User](nil)}
}

func (r *UserRepository) checkUnique(u *model.User) error {
	for id, other := range r.s.items {
		if id == u.ID {
			continue
		}
		if other.Email == u.Email {
			return duplicate("email")
		}
		if u.StudentID != "" && other.StudentID == u.StudentID {
			return duplicate("studentId")
		}
	}
	return nil
}

func (r *UserRepository) Create(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.put(user.ID, *user)
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.UserRepository.FindByID")
	}
	return &u, nil
}

func (r *UserRepository) findOne(op string, match func(*model.User) bool) (*model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	found := r.s.filter(match)
	if len(found) == 0 {
		return nil, notFound(op)
	}
	return &found[0], nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return r.findOne("memory.UserRepository.FindByEmail", func(u *model.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByStudentID(_ context.Context, studentID string) (*model.User, error) {
	return r.findOne("memory.UserRepository.FindByStudentID", func(u *model.User) bool {
		return studentID != "" && u.StudentID == studentID
	})
}

func (r *UserRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.filter(func(u *model.User) bool { return hasID(ids, u.ID) }), nil
}

func (r *UserRepository) List(_ context.Context, f repository.UserFilter) ([]model.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(func(u *model.User) bool {
		if f.Role != "" && u.Role != f.Role {
			return false
		}
		if f.IsActive != nil && u.IsActive != *f.IsActive {
			return false
		}
		if f.Search != "" && !containsFold(u.Name, f.Search) && !containsFold(u.Email, f.Search) && !containsFold(u.StudentID, f.Search) {
			return false
		}
		return true
	})
	sortBy(out, func(a, b *model.User) bool { return a.CreatedAt.After(b.CreatedAt) })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, user *model.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[user.ID]; !ok {
		return notFound("memory.UserRepository.Update")
	}
	if err := r.checkUnique(user); err != nil {
		return err
	}
	user.UpdatedAt = time.Now().UTC()
	r.s.put(user.ID, *user)
	return nil
}

func (r *UserRepository) Patch(_ context.Context, id primitive.ObjectID, patch repository.UserPatch) (*model.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.UserRepository.Patch")
	}
	if patch.Name != nil {
		u.Name = *patch.Name
	}
	if patch.Phone != nil {
		u.Phone = *patch.Phone
	}
	if patch.HashedPassword != nil {
		u.HashedPassword = *patch.HashedPassword
	}
	u.UpdatedAt = time.Now().UTC()
	r.s.put(id, u)
	return &u, nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.UserRepository.Delete")
	}
	return nil
}
