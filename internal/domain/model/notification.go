package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	NotificationTypeExam   = "exam"
	NotificationTypeScore  = "score"
	NotificationTypeClass  = "class"
	NotificationTypeSystem = "system"

	RelatedExam  = "Exam"
	RelatedScore = "Score"
	RelatedClass = "Class"

	NotificationFeedLimit = 50
)

type Notification struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Title        string               `bson:"title" json:"title"`
	Message      string               `bson:"message" json:"message"`
	Type         string               `bson:"type" json:"type"`
	TargetUser   *primitive.ObjectID  `bson:"targetUser" json:"targetUser"` // nil = broadcast
	RelatedID    *primitive.ObjectID  `bson:"relatedId,omitempty" json:"relatedId,omitempty"`
	RelatedModel string               `bson:"relatedModel,omitempty" json:"relatedModel,omitempty"`
	ReadBy       []primitive.ObjectID `bson:"readBy" json:"readBy"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// VisibleTo reports whether userID may see the notification.
func (n *Notification) VisibleTo(userID primitive.ObjectID) bool {
	return n.TargetUser == nil || *n.TargetUser == userID
}

func (n *Notification) IsReadBy(userID primitive.ObjectID) bool {
	return containsID(n.ReadBy, userID)
}
