package model

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ExamStatusUpcoming  = "upcoming"
	ExamStatusOngoing   = "ongoing"
	ExamStatusCompleted = "completed"
	ExamStatusCancelled = "cancelled"

	DefaultExamStartTime = "08:00"
	DefaultExamEndTime   = "10:00"
	DefaultExamDuration  = 90
)

type Exam struct {
	ID              primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Code            string               `bson:"code,omitempty" json:"code,omitempty"`
	Name            string               `bson:"name" json:"name"`
	Subject         *primitive.ObjectID  `bson:"subject" json:"subject"` // nil for public exams
	ExamDate        time.Time            `bson:"examDate" json:"examDate"`
	StartTime       string               `bson:"startTime" json:"startTime"`
	EndTime         string               `bson:"endTime" json:"endTime"`
	Room            string               `bson:"room,omitempty" json:"room,omitempty"`
	Duration        int                  `bson:"duration" json:"duration"`
	Semester        string               `bson:"semester" json:"semester"`
	AcademicYear    string               `bson:"academicYear" json:"academicYear"`
	Status          string               `bson:"status" json:"status"`
	Description     string               `bson:"description,omitempty" json:"description,omitempty"`
	CreatedBy       primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	MaxParticipants int                  `bson:"maxParticipants" json:"maxParticipants"` // 0 = unlimited
	Participants    []primitive.ObjectID `bson:"participants" json:"-"`
	CreatedAt       time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// IsPublic reports whether the exam is open to self-registration.
func (e *Exam) IsPublic() bool {
	return e.Subject == nil
}

func (e *Exam) HasParticipant(id primitive.ObjectID) bool {
	return containsID(e.Participants, id)
}

func IsValidExamStatus(s string) bool {
	switch s {
	case ExamStatusUpcoming, ExamStatusOngoing, ExamStatusCompleted, ExamStatusCancelled:
		return true
	}
	return false
}

// CanTransitionExamStatus enforces upcoming -> ongoing -> completed, with
// cancelled reachable from any non-completed state.
func CanTransitionExamStatus(from, to string) bool {
	if !IsValidExamStatus(to) {
		return false
	}
	if from == to {
		return true
	}
	switch from {
	case ExamStatusUpcoming:
		return to == ExamStatusOngoing || to == ExamStatusCancelled
	case ExamStatusOngoing:
		return to == ExamStatusCompleted || to == ExamStatusCancelled
	}
	return false
}

// ExamCodePrefix is "EX" followed by the two-digit year and month of date.
func ExamCodePrefix(date time.Time) string {
	date = date.UTC()
	return fmt.Sprintf("EX%02d%02d", date.Year()%100, int(date.Month()))
}

func FormatExamCode(prefix string, seq int) string {
	return fmt.Sprintf("%s%04d", prefix, seq)
}

// ParseExamDate accepts a calendar date (2006-01-02) or an RFC3339 timestamp.
func ParseExamDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid exam date %q", s)
	}
	return t.UTC(), nil
}
