package notify

import (
	"context"
	"encoding/json"
	"testing"

	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository/memory"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestDirectPublisher(t *testing.T) {
	repo := memory.NewNotificationRepository()
	p := NewDirectPublisher(repo)

	p.Publish(context.Background(), &model.Notification{Title: "Kỳ thi mới", Type: model.NotificationTypeExam})

	list, err := repo.ListBroadcast(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Kỳ thi mới", list[0].Title)
}

func TestQueuePublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	repo := memory.NewNotificationRepository()
	p := NewQueuePublisher(rdb, "notifications", NewDirectPublisher(repo))

	target := primitive.NewObjectID()
	p.Publish(context.Background(), &model.Notification{Title: "Có điểm mới", Type: model.NotificationTypeScore, TargetUser: &target})

	items, err := mr.List("notifications")
	require.NoError(t, err)
	require.Len(t, items, 1)

	var ev Event
	require.NoError(t, json.Unmarshal([]byte(items[0]), &ev))
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "Có điểm mới", ev.Notification.Title)
	require.NotNil(t, ev.Notification.TargetUser)
	assert.Equal(t, target, *ev.Notification.TargetUser)

	list, _ := repo.ListForUser(context.Background(), target, 10)
	assert.Empty(t, list, "queued notifications are written by the worker")
}

func TestQueuePublisherFallsBackWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	mr.Close()

	repo := memory.NewNotificationRepository()
	p := NewQueuePublisher(rdb, "notifications", NewDirectPublisher(repo))

	p.Publish(context.Background(), &model.Notification{Title: "Kỳ thi mới", Type: model.NotificationTypeExam})

	list, err := repo.ListBroadcast(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPublishAll(t *testing.T) {
	repo := memory.NewNotificationRepository()
	students := []model.User{{ID: primitive.NewObjectID()}, {ID: primitive.NewObjectID()}}

	PublishAll(context.Background(), NewDirectPublisher(repo), model.Notification{Title: "Lớp có kỳ thi mới", Type: model.NotificationTypeClass}, students)

	for _, s := range students {
		list, _ := repo.ListForUser(context.Background(), s.ID, 10)
		require.Len(t, list, 1)
		assert.Equal(t, s.ID, *list[0].TargetUser)
	}
	broadcast, _ := repo.ListBroadcast(context.Background(), 10)
	assert.Empty(t, broadcast)
}
