package model

import (
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserRef is the populated form of a user reference.
type UserRef struct {
	ID        primitive.ObjectID `json:"_id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	StudentID string             `json:"studentId,omitempty"`
	Phone     string             `json:"phone,omitempty"`
}

type SubjectRef struct {
	ID   primitive.ObjectID `json:"_id"`
	Code string             `json:"code"`
	Name string             `json:"name"`
}

type ExamRef struct {
	ID        primitive.ObjectID `json:"_id"`
	Code      string             `json:"code,omitempty"`
	Name      string             `json:"name"`
	ExamDate  time.Time          `json:"examDate"`
	StartTime string             `json:"startTime"`
	EndTime   string             `json:"endTime"`
	Room      string             `json:"room,omitempty"`
	Duration  int                `json:"duration"`
	Status    string             `json:"status"`
	Subject   *SubjectRef        `json:"subject"`
}

func NewUserRef(u *User) *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Name: u.Name, Email: u.Email, StudentID: u.StudentID, Phone: u.Phone}
}

func NewSubjectRef(s *Subject) *SubjectRef {
	if s == nil {
		return nil
	}
	return &SubjectRef{ID: s.ID, Code: s.Code, Name: s.Name}
}

func NewExamRef(e *Exam, subject *SubjectRef) *ExamRef {
	if e == nil {
		return nil
	}
	return &ExamRef{
		ID:        e.ID,
		Code:      e.Code,
		Name:      e.Name,
		ExamDate:  e.ExamDate,
		StartTime: e.StartTime,
		EndTime:   e.EndTime,
		Room:      e.Room,
		Duration:  e.Duration,
		Status:    e.Status,
		Subject:   subject,
	}
}

// NormalizeCode turns a subject or class code into its stored form:
// ASCII, dash separated, upper case ("ta 01" -> "TA-01").
func NormalizeCode(code string) string {
	return strings.ToUpper(slug.Make(strings.TrimSpace(code)))
}
