package service

import (
	"context"
	"strings"

	"eduscore/internal/app/notify"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationService struct {
	repo      repository.NotificationRepository
	publisher notify.Publisher
}

func NewNotificationService(repo repository.NotificationRepository, publisher notify.Publisher) *NotificationService {
	return &NotificationService{repo: repo, publisher: publisher}
}

// NotificationView adds the caller's read state.
type NotificationView struct {
	model.Notification
	IsRead bool `json:"isRead"`
}

type CreateNotificationRequest struct {
	Title      string `json:"title" validate:"notblank,max=200"`
	Message    string `json:"message" validate:"notblank,max=1000"`
	Type       string `json:"type" validate:"omitempty,oneof=exam score class system"`
	TargetUser string `json:"targetUser" validate:"omitempty,mongodb"`
}

func (s *NotificationService) ListPublic(ctx context.Context) ([]model.Notification, error) {
	return s.repo.ListBroadcast(ctx, model.NotificationFeedLimit)
}

func (s *NotificationService) ListMine(ctx context.Context, caller *model.User) ([]NotificationView, error) {
	items, err := s.repo.ListForUser(ctx, caller.ID, model.NotificationFeedLimit)
	if err != nil {
		return nil, err
	}
	out := make([]NotificationView, 0, len(items))
	for _, n := range items {
		out = append(out, NotificationView{Notification: n, IsRead: n.IsReadBy(caller.ID)})
	}
	return out, nil
}

func (s *NotificationService) UnreadCount(ctx context.Context, caller *model.User) (int64, error) {
	return s.repo.CountUnread(ctx, caller.ID)
}

func (s *NotificationService) MarkRead(ctx context.Context, caller *model.User, id primitive.ObjectID) error {
	if err := s.repo.MarkRead(ctx, id, caller.ID); err != nil {
		return orNotFound(err, MsgNotificationNotFound)
	}
	return nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, caller *model.User) (int64, error) {
	return s.repo.MarkAllRead(ctx, caller.ID)
}

func (s *NotificationService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return orNotFound(err, MsgNotificationNotFound)
	}
	return nil
}

// Create lets an administrator post a system announcement, broadcast or
// targeted at one user.
func (s *NotificationService) Create(ctx context.Context, req CreateNotificationRequest) error {
	if err := validation.Struct(req); err != nil {
		return err
	}
	target, err := parseOptionalID(req.TargetUser)
	if err != nil {
		return err
	}
	n := &model.Notification{
		Title:      strings.TrimSpace(req.Title),
		Message:    strings.TrimSpace(req.Message),
		Type:       req.Type,
		TargetUser: target,
	}
	if n.Type == "" {
		n.Type = model.NotificationTypeSystem
	}
	s.publisher.Publish(ctx, n)
	return nil
}

// CleanupLegacyBroadcasts removes exam broadcasts whose message starts with
// "Môn"; public exam announcements always start with "Kỳ thi".
func (s *NotificationService) CleanupLegacyBroadcasts(ctx context.Context) (int64, error) {
	return s.repo.DeleteBroadcastByPrefix(ctx, model.NotificationTypeExam, "Môn")
}
