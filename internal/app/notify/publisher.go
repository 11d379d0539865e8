// Package notify delivers notifications after the write that caused them has
// committed. Delivery is best-effort: failures are logged, never returned.
package notify

import (
	"context"
	"encoding/json"
	"log"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type Publisher interface {
	Publish(ctx context.Context, n *model.Notification)
}

// Event is the queue payload consumed by the notification worker.
type Event struct {
	ID           string             `json:"id"`
	Notification model.Notification `json:"notification"`
}

// DirectPublisher stores notifications in-process.
type DirectPublisher struct {
	repo repository.NotificationRepository
}

func NewDirectPublisher(repo repository.NotificationRepository) *DirectPublisher {
	return &DirectPublisher{repo: repo}
}

func (p *DirectPublisher) Publish(ctx context.Context, n *model.Notification) {
	// The caller's response must not depend on the notification, so a
	// cancelled request still gets its notification written.
	if err := p.repo.Create(context.WithoutCancel(ctx), n); err != nil {
		log.Printf("WARN: failed to save notification %q: %v", n.Title, err)
	}
}

// QueuePublisher pushes notifications onto a redis list for the worker and
// falls back to a direct write when the push fails.
type QueuePublisher struct {
	rdb      *redis.Client
	queue    string
	fallback *DirectPublisher
}

func NewQueuePublisher(rdb *redis.Client, queue string, fallback *DirectPublisher) *QueuePublisher {
	return &QueuePublisher{rdb: rdb, queue: queue, fallback: fallback}
}

func (p *QueuePublisher) Publish(ctx context.Context, n *model.Notification) {
	data, err := json.Marshal(Event{ID: uuid.NewString(), Notification: *n})
	if err == nil {
		err = p.rdb.LPush(context.WithoutCancel(ctx), p.queue, data).Err()
	}
	if err != nil {
		log.Printf("WARN: failed to enqueue notification %q, writing directly: %v", n.Title, err)
		p.fallback.Publish(ctx, n)
	}
}

// PublishAll fans one notification template out to every user in targets.
func PublishAll(ctx context.Context, p Publisher, template model.Notification, targets []model.User) {
	for i := range targets {
		n := template
		target := targets[i].ID
		n.TargetUser = &target
		p.Publish(ctx, &n)
	}
}
