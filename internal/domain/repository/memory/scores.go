package memory

import (
	"context"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.ScoreRepository = (*ScoreRepository)(nil)

type ScoreRepository struct {
	s *store[model.Score]
}

func NewScoreRepository() *ScoreRepository {
	return &ScoreRepository{s: newStore(func(sc model.Score) model.Score {
		if sc.VerifiedBy != nil {
			by := *sc.VerifiedBy
			sc.VerifiedBy = &by
		}
		if sc.VerifiedAt != nil {
			at := *sc.VerifiedAt
			sc.VerifiedAt = &at
		}
		return sc
	})}
}

func (r *ScoreRepository) Upsert(_ context.Context, w repository.ScoreWrite) (*model.Score, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	now := time.Now().UTC()
	var (
		existing *model.Score
		created  bool
	)
	for _, sc := range r.s.items {
		if sc.Student == w.Student && sc.Exam == w.Exam {
			existing = &sc
			break
		}
	}
	if existing == nil {
		created = true
		existing = &model.Score{
			ID:        primitive.NewObjectID(),
			Student:   w.Student,
			Exam:      w.Exam,
			Status:    model.ScoreStatusEntered,
			CreatedAt: now,
		}
	}
	existing.Score = w.Score
	existing.Grade = w.Grade
	existing.EnteredBy = w.EnteredBy
	existing.EnteredAt = now
	existing.UpdatedAt = now
	if w.Note != "" || !w.KeepNote {
		existing.Note = w.Note
	}
	r.s.put(existing.ID, *existing)

	out := r.s.clone(*existing)
	return &out, created, nil
}

func (r *ScoreRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Score, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	sc, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.ScoreRepository.FindByID")
	}
	return &sc, nil
}

func (r *ScoreRepository) List(_ context.Context, f repository.ScoreFilter) ([]model.Score, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(func(sc *model.Score) bool {
		if f.Exam != nil && sc.Exam != *f.Exam {
			return false
		}
		if f.Exam == nil && f.Exams != nil && !hasID(f.Exams, sc.Exam) {
			return false
		}
		if f.Student != nil && sc.Student != *f.Student {
			return false
		}
		if f.EnteredBy != nil && sc.EnteredBy != *f.EnteredBy {
			return false
		}
		return true
	})
	sortBy(out, func(a, b *model.Score) bool {
		if f.ByEnteredAt && !a.EnteredAt.Equal(b.EnteredAt) {
			return a.EnteredAt.After(b.EnteredAt)
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out, nil
}

func (r *ScoreRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, status string, by primitive.ObjectID) (*model.Score, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	sc, ok := r.s.items[id]
	if !ok {
		return nil, notFound("memory.ScoreRepository.UpdateStatus")
	}
	now := time.Now().UTC()
	sc.Status = status
	sc.UpdatedAt = now
	if status == model.ScoreStatusVerified {
		sc.VerifiedBy = &by
		sc.VerifiedAt = &now
	}
	r.s.put(id, sc)

	out := r.s.clone(sc)
	return &out, nil
}

func (r *ScoreRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.ScoreRepository.Delete")
	}
	return nil
}

func (r *ScoreRepository) deleteWhere(match func(*model.Score) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, sc := range r.s.filter(match) {
		if r.s.remove(sc.ID) {
			n++
		}
	}
	return n
}

func (r *ScoreRepository) DeleteByExam(_ context.Context, examID primitive.ObjectID) (int64, error) {
	return r.deleteWhere(func(sc *model.Score) bool { return sc.Exam == examID }), nil
}

func (r *ScoreRepository) DeleteOrphans(_ context.Context, validExams []primitive.ObjectID, cutoff time.Time) (int64, error) {
	return r.deleteWhere(func(sc *model.Score) bool {
		return sc.CreatedAt.Before(cutoff) && !hasID(validExams, sc.Exam)
	}), nil
}
