package repository

import "go.mongodb.org/mongo-driver/bson/primitive"

type UserFilter struct {
	Role     string
	IsActive *bool
	Search   string
}

type SubjectFilter struct {
	IsActive *bool
	Search   string
}

type ExamFilter struct {
	Subject    *primitive.ObjectID
	Status     string
	Semester   string
	Search     string
	PublicOnly bool
	// ByDateAsc sorts by examDate ascending instead of descending.
	ByDateAsc bool
}

type ScoreFilter struct {
	Exam      *primitive.ObjectID
	Student   *primitive.ObjectID
	EnteredBy *primitive.ObjectID
	Exams     []primitive.ObjectID
	// ByEnteredAt sorts by enteredAt desc instead of createdAt desc.
	ByEnteredAt bool
}

type ClassFilter struct {
	Subject      *primitive.ObjectID
	Teacher      *primitive.ObjectID
	Student      *primitive.ObjectID
	Semester     string
	AcademicYear string
	Search       string
}

// ScoreWrite is one score submission keyed by (Student, Exam).
type ScoreWrite struct {
	Student   primitive.ObjectID
	Exam      primitive.ObjectID
	Score     float64
	Grade     string
	Note      string
	EnteredBy primitive.ObjectID
	// KeepNote leaves an existing note untouched when Note is empty.
	KeepNote bool
}
