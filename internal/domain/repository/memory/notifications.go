package memory

import (
	"context"
	"strings"
	"time"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

type NotificationRepository struct {
	s *store[model.Notification]
}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{s: newStore(func(n model.Notification) model.Notification {
		n.ReadBy = cloneIDs(n.ReadBy)
		if n.TargetUser != nil {
			target := *n.TargetUser
			n.TargetUser = &target
		}
		if n.RelatedID != nil {
			related := *n.RelatedID
			n.RelatedID = &related
		}
		return n
	})}
}

func (r *NotificationRepository) Create(_ context.Context, n *model.Notification) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	if n.ReadBy == nil {
		n.ReadBy = []primitive.ObjectID{}
	}
	now := time.Now().UTC()
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now
	r.s.put(n.ID, *n)
	return nil
}

func (r *NotificationRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Notification, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	n, ok := r.s.get(id)
	if !ok {
		return nil, notFound("memory.NotificationRepository.FindByID")
	}
	return &n, nil
}

func (r *NotificationRepository) list(match func(*model.Notification) bool, limit int64) []model.Notification {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := r.s.filter(match)
	sortBy(out, func(a, b *model.Notification) bool { return a.CreatedAt.After(b.CreatedAt) })
	if limit > 0 && int64(len(out)) > limit {
		out = out[:limit]
	}
	return out
}

func (r *NotificationRepository) ListBroadcast(_ context.Context, limit int64) ([]model.Notification, error) {
	return r.list(func(n *model.Notification) bool { return n.TargetUser == nil }, limit), nil
}

func (r *NotificationRepository) ListForUser(_ context.Context, userID primitive.ObjectID, limit int64) ([]model.Notification, error) {
	return r.list(func(n *model.Notification) bool { return n.VisibleTo(userID) }, limit), nil
}

func (r *NotificationRepository) CountUnread(_ context.Context, userID primitive.ObjectID) (int64, error) {
	unread := r.list(func(n *model.Notification) bool {
		return n.VisibleTo(userID) && !n.IsReadBy(userID)
	}, 0)
	return int64(len(unread)), nil
}

func (r *NotificationRepository) MarkRead(_ context.Context, id, userID primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n, ok := r.s.get(id)
	if !ok || !n.VisibleTo(userID) {
		return notFound("memory.NotificationRepository.MarkRead")
	}
	if !n.IsReadBy(userID) {
		n.ReadBy = append(n.ReadBy, userID)
		r.s.put(id, n)
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(_ context.Context, userID primitive.ObjectID) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	r.s.each(func(_ primitive.ObjectID, notif *model.Notification) {
		if notif.VisibleTo(userID) && !notif.IsReadBy(userID) {
			notif.ReadBy = append(cloneIDs(notif.ReadBy), userID)
			n++
		}
	})
	return n, nil
}

func (r *NotificationRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if !r.s.remove(id) {
		return notFound("memory.NotificationRepository.Delete")
	}
	return nil
}

func (r *NotificationRepository) DeleteBroadcastByPrefix(_ context.Context, notifType, prefix string) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for _, notif := range r.s.filter(func(x *model.Notification) bool {
		return x.Type == notifType && x.TargetUser == nil && strings.HasPrefix(x.Message, prefix)
	}) {
		if r.s.remove(notif.ID) {
			n++
		}
	}
	return n, nil
}
