package memory

import (
	"context"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.ClassRepository = (*ClassRepository)(nil)

type ClassRepository struct {
	s *store[model.Class]
}

func NewClassRepository() *ClassRepository {
	return &ClassRepository{s: newStore(func(c model.Class) model.Class {
		c.Students = cloneIDs(c.Students)
		c.Exams = cloneIDs(c.Exams)
		return c
	})}
}

func (r *ClassRepository) Create(_ context.Context, class *model.Class) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if class.ID.IsZero() {
		class.ID = primitive.NewObjectID()
	}
	for _, other := range r.s.items {
		if other.Code == class.Code {
			return duplicate("code")
		}
	}
	if class.Students == nil {
		class.Students = []primitive.ObjectID{}
	}
	if class.Exams == nil {
		class.Exams = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	class.CreatedAt, class.UpdatedAt = now, now
	r.s.put(class.ID, *class)
	return nil
}

func (r *ClassRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.ClassRepository.FindByID")
	}
	return &c, nil
}

func (r *ClassRepository) FindByExam(_ context.Context, examID primitive.ObjectID) (*model.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, id := range r.s.order {
		if c := r.s.items[id]; hasID(c.Exams, examID) {
			c = r.s.clone(c)
			return &c, nil
		}
	}
	return nil, notFound("memory.ClassRepository.FindByExam")
}

func (r *ClassRepository) List(_ context.Context, f repository.ClassFilter) ([]model.Class, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(func(c *model.Class) bool {
		if f.Subject != nil && c.Subject != *f.Subject {
			return false
		}
		if f.Teacher != nil && c.Teacher != *f.Teacher {
			return false
		}
		if f.Student != nil && !hasID(c.Students, *f.Student) {
			return false
		}
		if f.Semester != "" && c.Semester != f.Semester {
			return false
		}
		if f.AcademicYear != "" && c.AcademicYear != f.AcademicYear {
			return false
		}
		if f.Search != "" && !containsFold(c.Code, f.Search) && !containsFold(c.Name, f.Search) {
			return false
		}
		return true
	})
	sortBy(out, func(a, b *model.Class) bool { return a.CreatedAt.After(b.CreatedAt) })
	return out, nil
}

func (r *ClassRepository) Update(_ context.Context, class *model.Class) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	cur, ok := r.s.items[class.ID]
	if !ok || len(cur.Students) > class.MaxStudents {
		return false, nil
	}
	for id, other := range r.s.items {
		if id != class.ID && other.Code == class.Code {
			return false, duplicate("code")
		}
	}
	class.UpdatedAt = time.Now().UTC()
	next := *class
	next.Students = cur.Students
	next.Exams = cur.Exams
	next.CreatedAt = cur.CreatedAt
	r.s.put(class.ID, next)
	return true, nil
}

func (r *ClassRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.ClassRepository.Delete")
	}
	return nil
}

// mutate applies fn to the class under the write lock and stores the
// result when fn reports a change.
func (r *ClassRepository) mutate(classID primitive.ObjectID, fn func(c *model.Class) bool) bool {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c, ok := r.s.get(classID)
	if !ok || !fn(&c) {
		return false
	}
	c.UpdatedAt = time.Now().UTC()
	r.s.put(classID, c)
	return true
}

func (r *ClassRepository) AddStudent(_ context.Context, classID, studentID primitive.ObjectID) (bool, error) {
	return r.mutate(classID, func(c *model.Class) bool {
		if hasID(c.Students, studentID) || len(c.Students) >= c.MaxStudents {
			return false
		}
		c.Students = append(c.Students, studentID)
		return true
	}), nil
}

func (r *ClassRepository) AddStudents(_ context.Context, classID primitive.ObjectID, ids []primitive.ObjectID) (bool, error) {
	if len(ids) == 0 {
		return true, nil
	}
	return r.mutate(classID, func(c *model.Class) bool {
		for _, id := range ids {
			if hasID(c.Students, id) {
				return false
			}
		}
		if len(c.Students)+len(ids) > c.MaxStudents {
			return false
		}
		for _, id := range ids {
			if !hasID(c.Students, id) {
				c.Students = append(c.Students, id)
			}
		}
		return true
	}), nil
}

func (r *ClassRepository) RemoveStudent(_ context.Context, classID, studentID primitive.ObjectID) (bool, error) {
	return r.mutate(classID, func(c *model.Class) bool {
		if !hasID(c.Students, studentID) {
			return false
		}
		c.Students = withoutID(c.Students, studentID)
		return true
	}), nil
}

func (r *ClassRepository) AddExam(_ context.Context, classID, examID primitive.ObjectID) (bool, error) {
	return r.mutate(classID, func(c *model.Class) bool {
		if hasID(c.Exams, examID) {
			return false
		}
		c.Exams = append(c.Exams, examID)
		return true
	}), nil
}

func (r *ClassRepository) PullExam(_ context.Context, examID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	r.s.each(func(_ primitive.ObjectID, c *model.Class) {
		if hasID(c.Exams, examID) {
			c.Exams = withoutID(c.Exams, examID)
			c.UpdatedAt = time.Now().UTC()
			n++
		}
	})
	return n, nil
}
