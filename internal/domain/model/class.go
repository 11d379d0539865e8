package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DefaultMaxStudents   = 50
	MinClassPasswordSize = 4
)

type Class struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"_id"`
	Code         string               `bson:"code" json:"code"`
	Name         string               `bson:"name" json:"name"`
	Subject      primitive.ObjectID   `bson:"subject" json:"subject"`
	Teacher      primitive.ObjectID   `bson:"teacher" json:"teacher"`
	Students     []primitive.ObjectID `bson:"students" json:"students"`
	Exams        []primitive.ObjectID `bson:"exams" json:"exams"`
	Semester     string               `bson:"semester" json:"semester"`
	AcademicYear string               `bson:"academicYear" json:"academicYear"`
	Schedule     string               `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Room         string               `bson:"room,omitempty" json:"room,omitempty"`
	MaxStudents  int                  `bson:"maxStudents" json:"maxStudents"`
	Password     string               `bson:"password" json:"-"` // bcrypt hash
	IsActive     bool                 `bson:"isActive" json:"isActive"`
	CreatedAt    time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (c *Class) HasStudent(id primitive.ObjectID) bool {
	return containsID(c.Students, id)
}

func (c *Class) HasExam(id primitive.ObjectID) bool {
	return containsID(c.Exams, id)
}

func (c *Class) IsFull() bool {
	return len(c.Students) >= c.MaxStudents
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
