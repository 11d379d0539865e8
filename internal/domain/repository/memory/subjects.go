package memory

import (
	"context"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.SubjectRepository = (*SubjectRepository)(nil)

type SubjectRepository struct {
	s *store[model.Subject]
}

func NewSubjectRepository() *SubjectRepository {
	return &SubjectRepository{s: newStore[model.Subject](nil)}
}

func (r *SubjectRepository) checkUnique(sub *model.Subject) error {
	for id, other := range r.s.items {
		if id != sub.ID && other.Code == sub.Code {
			return duplicate("code")
		}
	}
	return nil
}

func (r *SubjectRepository) Create(_ context.Context, subject *model.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if subject.ID.IsZero() {
		subject.ID = primitive.NewObjectID()
	}
	if err := r.checkUnique(subject); err != nil {
		return err
	}
	now := time.Now().UTC()
	subject.CreatedAt, subject.UpdatedAt = now, now
	r.s.put(subject.ID, *subject)
	return nil
}

func (r *SubjectRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sub, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.SubjectRepository.FindByID")
	}
	return &sub, nil
}

func (r *SubjectRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.filter(func(s *model.Subject) bool { return hasID(ids, s.ID) }), nil
}

func (r *SubjectRepository) List(_ context.Context, f repository.SubjectFilter) ([]model.Subject, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(func(s *model.Subject) bool {
		if f.IsActive != nil && s.IsActive != *f.IsActive {
			return false
		}
		if f.Search != "" && !containsFold(s.Code, f.Search) && !containsFold(s.Name, f.Search) {
			return false
		}
		return true
	})
	sortBy(out, func(a, b *model.Subject) bool { return a.Code < b.Code })
	return out, nil
}

func (r *SubjectRepository) Update(_ context.Context, subject *model.Subject) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.items[subject.ID]; !ok {
		return notFound("memory.SubjectRepository.Update")
	}
	if err := r.checkUnique(subject); err != nil {
		return err
	}
	subject.UpdatedAt = time.Now().UTC()
	r.s.put(subject.ID, *subject)
	return nil
}

func (r *SubjectRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.SubjectRepository.Delete")
	}
	return nil
}
