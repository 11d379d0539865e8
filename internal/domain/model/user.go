package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleAdmin   = "admin"
	RoleTeacher = "teacher"
	RoleStudent = "student"
)

// StudentEmailDomain is appended to a student id to form the login email.
const StudentEmailDomain = "@gmail.com"

type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email          string             `bson:"email" json:"email"`
	HashedPassword string             `bson:"password" json:"-"` // Not exposed
	Name           string             `bson:"name" json:"name"`
	Role           string             `bson:"role" json:"role"`
	StudentID      string             `bson:"studentId,omitempty" json:"studentId,omitempty"`
	Phone          string             `bson:"phone,omitempty" json:"phone,omitempty"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

func (u *User) IsAdmin() bool   { return u.Role == RoleAdmin }
func (u *User) IsTeacher() bool { return u.Role == RoleTeacher }
func (u *User) IsStudent() bool { return u.Role == RoleStudent }

func IsValidRole(role string) bool {
	switch role {
	case RoleAdmin, RoleTeacher, RoleStudent:
		return true
	}
	return false
}

// StudentEmail derives the login email of a self-registered student.
func StudentEmail(studentID string) string {
	return studentID + StudentEmailDomain
}
