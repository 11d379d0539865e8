package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"eduscore/internal/app/notify"
	"eduscore/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

// NotificationWorker drains the notification queue filled by
// notify.QueuePublisher and persists each event.
type NotificationWorker struct {
	rdb       *redis.Client
	queue     string
	notifRepo repository.NotificationRepository
	// pollTimeout bounds each BRPOP so shutdown is noticed promptly.
	pollTimeout time.Duration
}

func NewNotificationWorker(rdb *redis.Client, queue string, notifRepo repository.NotificationRepository) *NotificationWorker {
	return &NotificationWorker{
		rdb:         rdb,
		queue:       queue,
		notifRepo:   notifRepo,
		pollTimeout: 5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *NotificationWorker) Start(ctx context.Context) {
	log.Println("Notification worker started, listening to queue:", w.queue)
	for {
		select {
		case <-ctx.Done():
			log.Println("Notification worker stopping...")
			return
		default:
		}

		res, err := w.rdb.BRPop(ctx, w.pollTimeout, w.queue).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				continue
			}
			log.Printf("ERROR: Failed to BRPop from Redis queue '%s': %v", w.queue, err)
			sleep(ctx, 5*time.Second)
			continue
		}

		// res is [queueName, value]
		if len(res) < 2 || res[1] == "" {
			log.Println("WARN: BRPop returned an empty notification event.")
			continue
		}
		w.handle(ctx, res[1])
	}
}

func (w *NotificationWorker) handle(ctx context.Context, payload string) {
	var ev notify.Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		log.Printf("ERROR: Dropping malformed notification event: %v", err)
		return
	}
	n := ev.Notification
	if err := w.notifRepo.Create(context.WithoutCancel(ctx), &n); err != nil {
		log.Printf("WARN: Failed to save queued notification %s: %v", ev.ID, err)
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
