package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"eduscore/internal/app/notify"
	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"
	"eduscore/internal/domain/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "123456"

type fixture struct {
	ctx   context.Context
	repos repository.Repositories
	svc   *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repos := memory.NewRepositories()
	tokens := security.NewTokenManager([]byte("test-secret"), time.Hour)
	return &fixture{
		ctx:   context.Background(),
		repos: repos,
		svc:   New(repos, tokens, notify.NewDirectPublisher(repos.Notifications), nil),
	}
}

func (f *fixture) user(t *testing.T, role, email, studentID string) *model.User {
	t.Helper()
	hash, err := security.HashPassword(testPassword)
	require.NoError(t, err)
	u := &model.User{
		Email:          email,
		HashedPassword: hash,
		Name:           "User " + email,
		Role:           role,
		StudentID:      studentID,
		IsActive:       true,
	}
	require.NoError(t, f.repos.Users.Create(f.ctx, u))
	return u
}

func (f *fixture) subject(t *testing.T, code, name string) *model.Subject {
	t.Helper()
	s, err := f.svc.Subjects.Create(f.ctx, CreateSubjectRequest{Code: code, Name: name})
	require.NoError(t, err)
	return s
}

func (f *fixture) exam(t *testing.T, admin *model.User, subject *model.Subject, date string) *ExamView {
	t.Helper()
	req := CreateExamRequest{
		Name:         "Kỳ thi " + date,
		ExamDate:     date,
		Semester:     "HK1",
		AcademicYear: "2024-2025",
	}
	if subject != nil {
		req.Subject = subject.ID.Hex()
	}
	e, err := f.svc.Exams.Create(f.ctx, admin, req)
	require.NoError(t, err)
	return e
}

func (f *fixture) class(t *testing.T, code string, subject *model.Subject, teacher *model.User, max int) *ClassView {
	t.Helper()
	c, err := f.svc.Classes.Create(f.ctx, CreateClassRequest{
		Code:         code,
		Name:         "Lớp " + code,
		Subject:      subject.ID.Hex(),
		Teacher:      teacher.ID.Hex(),
		Semester:     "HK1",
		AcademicYear: "2024-2025",
		MaxStudents:  &max,
		Password:     "1234",
	})
	require.NoError(t, err)
	return c
}

// assertAppError checks the error kind and the message shown to clients.
func assertAppError(t *testing.T, err error, kind error, message string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, errors.Is(err, kind), "want kind %v, got %v", kind, err)
	assert.Equal(t, message, common.MessageFromError(err, ""))
}
