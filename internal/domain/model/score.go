package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ScoreStatusPending   = "pending"
	ScoreStatusEntered   = "entered"
	ScoreStatusVerified  = "verified"
	ScoreStatusPublished = "published"

	MinScore = 0.0
	MaxScore = 10.0
)

type Score struct {
	ID         primitive.ObjectID  `bson:"_id,omitempty" json:"_id"`
	Student    primitive.ObjectID  `bson:"student" json:"student"`
	Exam       primitive.ObjectID  `bson:"exam" json:"exam"`
	Score      float64             `bson:"score" json:"score"`
	Grade      string              `bson:"grade" json:"grade"`
	Status     string              `bson:"status" json:"status"`
	EnteredBy  primitive.ObjectID  `bson:"enteredBy" json:"enteredBy"`
	EnteredAt  time.Time           `bson:"enteredAt" json:"enteredAt"`
	VerifiedBy *primitive.ObjectID `bson:"verifiedBy,omitempty" json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time          `bson:"verifiedAt,omitempty" json:"verifiedAt,omitempty"`
	Note       string              `bson:"note" json:"note"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time           `bson:"updatedAt" json:"updatedAt"`
}

// GradeFor derives the letter grade of a 0-10 score. Band floors are inclusive.
func GradeFor(score float64) string {
	switch {
	case score >= 8.5:
		return "A"
	case score >= 7.0:
		return "B"
	case score >= 5.5:
		return "C"
	case score >= 4.0:
		return "D"
	default:
		return "F"
	}
}

func IsValidScore(score float64) bool {
	return score >= MinScore && score <= MaxScore
}

func IsValidScoreStatus(s string) bool {
	switch s {
	case ScoreStatusPending, ScoreStatusEntered, ScoreStatusVerified, ScoreStatusPublished:
		return true
	}
	return false
}
