package service

import (
	"context"
	"strings"
	"testing"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestExamCodesAreSequentialPerMonth(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	subject := f.subject(t, "ENG101", "Tiếng Anh")

	first := f.exam(t, admin, subject, "2025-03-10")
	second := f.exam(t, admin, subject, "2025-03-28")
	other := f.exam(t, admin, subject, "2025-04-01")

	assert.Equal(t, "EX25030001", first.Code)
	assert.Equal(t, "EX25030002", second.Code)
	assert.Equal(t, "EX25040001", other.Code)
	require.NotNil(t, first.Subject)
	assert.Equal(t, "ENG101", first.Subject.Code)
}

func TestExamCodeSkipsTakenCodes(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	f.exam(t, admin, nil, "2025-03-10")
	second := f.exam(t, admin, nil, "2025-03-11")

	// Removing the first code leaves one code with the prefix, so the count
	// points at EX25030002 which is still taken.
	_, err := f.svc.Exams.Delete(f.ctx, f.examByCode(t, "EX25030001"))
	require.NoError(t, err)

	code, err := f.svc.Exams.NextCode(f.ctx, "EX2503")
	require.NoError(t, err)
	assert.Equal(t, "EX25030003", code)
	assert.Equal(t, "EX25030002", second.Code)
}

func (f *fixture) examByCode(t *testing.T, code string) primitive.ObjectID {
	t.Helper()
	exams, err := f.svc.Exams.List(f.ctx, ExamQuery{})
	require.NoError(t, err)
	for _, e := range exams {
		if e.Code == code {
			return e.ID
		}
	}
	t.Fatalf("exam %s not found", code)
	return primitive.NilObjectID
}

type recordingLocker struct {
	keys     []string
	released int
}

func (l *recordingLocker) Lock(_ context.Context, key string) (func(), error) {
	l.keys = append(l.keys, key)
	return func() { l.released++ }, nil
}

func TestExamCreateUsesCodeLock(t *testing.T) {
	f := newFixture(t)
	locker := &recordingLocker{}
	f.svc.Exams.locker = locker
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")

	f.exam(t, admin, nil, "2025-03-10")

	assert.Equal(t, []string{"lock:exam-code:EX2503"}, locker.keys)
	assert.Equal(t, 1, locker.released)
}

func TestCreateExamUnknownSubject(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")

	_, err := f.svc.Exams.Create(f.ctx, admin, CreateExamRequest{
		Name:         "Giữa kỳ",
		Subject:      primitive.NewObjectID().Hex(),
		ExamDate:     "2025-03-10",
		Semester:     "HK1",
		AcademicYear: "2024-2025",
	})
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy môn thi.")
}

func TestPublicExamBroadcast(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	subject := f.subject(t, "ENG101", "Tiếng Anh")

	f.exam(t, admin, subject, "2025-03-10")
	public := f.exam(t, admin, nil, "2025-05-20")

	feed, err := f.svc.Notifications.ListPublic(f.ctx)
	require.NoError(t, err)
	require.Len(t, feed, 1, "only public exams are announced")
	assert.Equal(t, model.NotificationTypeExam, feed[0].Type)
	assert.True(t, strings.HasPrefix(feed[0].Message, "Kỳ thi "))
	assert.Equal(t, public.ID, *feed[0].RelatedID)

	listed, err := f.svc.Exams.ListPublic(f.ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, public.ID, listed[0].ID)
}

func TestExamStatusTransitions(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	exam := f.exam(t, admin, nil, "2025-03-10")

	completed := model.ExamStatusCompleted
	_, err := f.svc.Exams.Update(f.ctx, exam.ID, UpdateExamRequest{Status: &completed})
	assertAppError(t, err, common.ErrBadRequest, "Không thể chuyển trạng thái kỳ thi từ upcoming sang completed.")

	ongoing := model.ExamStatusOngoing
	updated, err := f.svc.Exams.Update(f.ctx, exam.ID, UpdateExamRequest{Status: &ongoing})
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusOngoing, updated.Status)
	assert.Equal(t, exam.Code, updated.Code, "code is never regenerated")

	updated, err = f.svc.Exams.Update(f.ctx, exam.ID, UpdateExamRequest{Status: &completed})
	require.NoError(t, err)
	assert.Equal(t, model.ExamStatusCompleted, updated.Status)
}

func TestExamDeleteCascades(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	teacher := f.user(t, model.RoleTeacher, "giaovien@gmail.com", "")
	student := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	subject := f.subject(t, "ENG101", "Tiếng Anh")
	exam := f.exam(t, admin, subject, "2025-03-10")
	keep := f.exam(t, admin, subject, "2025-03-11")
	class := f.class(t, "ENG101-01", subject, teacher, 10)

	for _, e := range []*ExamView{exam, keep} {
		_, err := f.svc.Classes.AttachExam(f.ctx, class.ID, AttachExamRequest{ExamID: e.ID.Hex()})
		require.NoError(t, err)
		score := 7.5
		_, _, err = f.svc.Scores.Upsert(f.ctx, teacher, UpsertScoreRequest{Student: student.ID.Hex(), Exam: e.ID.Hex(), Score: &score})
		require.NoError(t, err)
	}

	res, err := f.svc.Exams.Delete(f.ctx, exam.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), res.DeletedScores)
	assert.Equal(t, int64(1), res.UpdatedClasses)

	scores, err := f.repos.Scores.List(f.ctx, repository.ScoreFilter{Student: &student.ID})
	require.NoError(t, err)
	require.Len(t, scores, 1)
	assert.Equal(t, keep.ID, scores[0].Exam)

	got, err := f.repos.Classes.FindByID(f.ctx, class.ID)
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{keep.ID}, got.Exams)

	_, err = f.svc.Exams.Delete(f.ctx, exam.ID)
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy kỳ thi.")
}

func TestPublicExamRegistration(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	a := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	b := f.user(t, model.RoleStudent, "110120002@gmail.com", "110120002")
	subject := f.subject(t, "ENG101", "Tiếng Anh")

	limit := 1
	public, err := f.svc.Exams.Create(f.ctx, admin, CreateExamRequest{
		Name:            "TOEIC thử",
		ExamDate:        "2025-06-01",
		Semester:        "HK2",
		AcademicYear:    "2024-2025",
		MaxParticipants: &limit,
	})
	require.NoError(t, err)
	scoped := f.exam(t, admin, subject, "2025-06-02")

	require.NoError(t, f.svc.Exams.Register(f.ctx, public.ID, a))

	err = f.svc.Exams.Register(f.ctx, public.ID, a)
	assertAppError(t, err, common.ErrBadRequest, "Bạn đã đăng ký kỳ thi này rồi.")

	err = f.svc.Exams.Register(f.ctx, public.ID, b)
	assertAppError(t, err, common.ErrBadRequest, "Kỳ thi đã đủ số lượng thí sinh.")

	err = f.svc.Exams.Register(f.ctx, scoped.ID, a)
	assertAppError(t, err, common.ErrBadRequest, "Kỳ thi này không mở đăng ký tự do.")

	err = f.svc.Exams.Register(f.ctx, primitive.NewObjectID(), a)
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy kỳ thi.")

	participants, err := f.svc.Exams.Participants(f.ctx, public.ID)
	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, a.ID, participants[0].ID)

	require.NoError(t, f.svc.Exams.Unregister(f.ctx, public.ID, a))
	err = f.svc.Exams.Unregister(f.ctx, public.ID, a)
	assertAppError(t, err, common.ErrBadRequest, "Bạn chưa đăng ký kỳ thi này.")

	cancelled := model.ExamStatusCancelled
	_, err = f.svc.Exams.Update(f.ctx, public.ID, UpdateExamRequest{Status: &cancelled})
	require.NoError(t, err)
	err = f.svc.Exams.Register(f.ctx, public.ID, b)
	assertAppError(t, err, common.ErrBadRequest, "Kỳ thi không còn mở đăng ký.")
}
