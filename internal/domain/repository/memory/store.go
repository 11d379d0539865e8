// Package memory holds in-memory repository implementations. They keep the
// conditional-update semantics of the MongoDB repositories and back the
// service and HTTP tests.
package memory

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"eduscore/internal/common"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// store is a mutex-guarded document map that remembers insertion order.
// Callers hold mu; the helpers never lock.
type store[T any] struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]T
	order []primitive.ObjectID
	clone func(T) T
}

func newStore[T any](clone func(T) T) *store[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &store[T]{items: make(map[primitive.ObjectID]T), clone: clone}
}

func (s *store[T]) get(id primitive.ObjectID) (T, bool) {
	v, ok := s.items[id]
	if !ok {
		return v, false
	}
	return s.clone(v), true
}

func (s *store[T]) put(id primitive.ObjectID, v T) {
	if _, ok := s.items[id]; !ok {
		s.order = append(s.order, id)
	}
	s.items[id] = s.clone(v)
}

func (s *store[T]) remove(id primitive.ObjectID) bool {
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	for i, v := range s.order {
		if v == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

// filter returns clones of the matching documents, newest insert first.
func (s *store[T]) filter(match func(*T) bool) []T {
	out := []T{}
	for i := len(s.order) - 1; i >= 0; i-- {
		v := s.items[s.order[i]]
		if match == nil || match(&v) {
			out = append(out, s.clone(v))
		}
	}
	return out
}

func (s *store[T]) each(fn func(id primitive.ObjectID, v *T)) {
	for _, id := range s.order {
		v := s.items[id]
		fn(id, &v)
		s.items[id] = v
	}
}

func sortBy[T any](items []T, less func(a, b *T) bool) {
	sort.SliceStable(items, func(i, j int) bool { return less(&items[i], &items[j]) })
}

func notFound(op string) error {
	return fmt.Errorf("%s: %w", op, common.ErrNotFound)
}

func duplicate(field string) error {
	return common.NewError(common.ErrDuplicateKey, fmt.Sprintf("%s đã tồn tại trong hệ thống.", field))
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, len(ids))
	copy(out, ids)
	return out
}

func hasID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func withoutID(ids []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
