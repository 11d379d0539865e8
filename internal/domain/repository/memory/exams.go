package memory

import (
	"context"
	"strings"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.ExamRepository = (*ExamRepository)(nil)

type ExamRepository struct {
	s *store[model.Exam]
}

func NewExamRepository() *ExamRepository {
	return &ExamRepository{s: newStore(func(e model.Exam) model.Exam {
		e.Participants = cloneIDs(e.Participants)
		if e.Subject != nil {
			sub := *e.Subject
			e.Subject = &sub
		}
		return e
	})}
}

func (r *ExamRepository) Create(_ context.Context, exam *model.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if exam.ID.IsZero() {
		exam.ID = primitive.NewObjectID()
	}
	if exam.Code != "" {
		for _, other := range r.s.items {
			if other.Code == exam.Code {
				return duplicate("code")
			}
		}
	}
	if exam.Participants == nil {
		exam.Participants = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	exam.CreatedAt, exam.UpdatedAt = now, now
	r.s.put(exam.ID, *exam)
	return nil
}

func (r *ExamRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Exam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	e, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.ExamRepository.FindByID")
	}
	return &e, nil
}

func (r *ExamRepository) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]model.Exam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return r.s.filter(func(e *model.Exam) bool { return hasID(ids, e.ID) }), nil
}

func (r *ExamRepository) List(_ context.Context, f repository.ExamFilter) ([]model.Exam, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(func(e *model.Exam) bool {
		if f.PublicOnly && e.Subject != nil {
			return false
		}
		if !f.PublicOnly && f.Subject != nil && (e.Subject == nil || *e.Subject != *f.Subject) {
			return false
		}
		if f.Status != "" && e.Status != f.Status {
			return false
		}
		if f.Semester != "" && e.Semester != f.Semester {
			return false
		}
		if f.Search != "" && !containsFold(e.Name, f.Search) && !containsFold(e.Code, f.Search) {
			return false
		}
		return true
	})
	sortBy(out, func(a, b *model.Exam) bool {
		if f.ByDateAsc {
			return a.ExamDate.Before(b.ExamDate)
		}
		return a.ExamDate.After(b.ExamDate)
	})
	return out, nil
}

func (r *ExamRepository) Update(_ context.Context, exam *model.Exam) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.items[exam.ID]
	if !ok {
		return notFound("memory.ExamRepository.Update")
	}
	exam.UpdatedAt = time.Now().UTC()
	next := *exam
	next.Code = cur.Code
	next.Participants = cur.Participants
	next.CreatedBy = cur.CreatedBy
	next.CreatedAt = cur.CreatedAt
	r.s.put(exam.ID, next)
	return nil
}

func (r *ExamRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.ExamRepository.Delete")
	}
	return nil
}

func (r *ExamRepository) ListIDs(_ context.Context) ([]primitive.ObjectID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return cloneIDs(r.s.order), nil
}

func (r *ExamRepository) CountByCodePrefix(_ context.Context, prefix string) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, e := range r.s.items {
		if strings.HasPrefix(e.Code, prefix) {
			n++
		}
	}
	return n, nil
}

func (r *ExamRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, e := range r.s.items {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *ExamRepository) AddParticipant(_ context.Context, examID, studentID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.items[examID]
	if !ok || e.Subject != nil || e.Status != model.ExamStatusUpcoming || hasID(e.Participants, studentID) {
		return false, nil
	}
	if e.MaxParticipants > 0 && len(e.Participants) >= e.MaxParticipants {
		return false, nil
	}
	e.Participants = append(cloneIDs(e.Participants), studentID)
	e.UpdatedAt = time.Now().UTC()
	r.s.items[examID] = e
	return true, nil
}

func (r *ExamRepository) RemoveParticipant(_ context.Context, examID, studentID primitive.ObjectID) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.items[examID]
	if !ok || !hasID(e.Participants, studentID) {
		return false, nil
	}
	e.Participants = withoutID(e.Participants, studentID)
	e.UpdatedAt = time.Now().UTC()
	r.s.items[examID] = e
	return true, nil
}
