package worker

import (
	"context"
	"testing"
	"time"

	"eduscore/internal/app/notify"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNotificationWorkerPersistsQueuedEvents(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := memory.NewNotificationRepository()
	pub := notify.NewQueuePublisher(rdb, "notifications", notify.NewDirectPublisher(repo))
	w := NewNotificationWorker(rdb, "notifications", repo)
	w.pollTimeout = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Start(ctx)
		close(done)
	}()

	target := primitive.NewObjectID()
	pub.Publish(ctx, &model.Notification{Title: "Có điểm mới", Type: model.NotificationTypeScore, TargetUser: &target})
	pub.Publish(ctx, &model.Notification{Title: "Kỳ thi mới", Type: model.NotificationTypeExam})

	// a malformed payload is dropped without stopping the loop
	require.NoError(t, rdb.LPush(ctx, "notifications", "{not json").Err())

	assert.Eventually(t, func() bool {
		list, err := repo.ListForUser(context.Background(), target, 10)
		return err == nil && len(list) == 2
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
