package service

import (
	"testing"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestScoreUpsertKeepsOneScorePerPair(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	teacher := f.user(t, model.RoleTeacher, "giaovien@gmail.com", "")
	student := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	subject := f.subject(t, "TA01", "Tiếng Anh cơ bản")
	exam := f.exam(t, admin, subject, "2024-12-15")

	first := 8.5
	view, created, err := f.svc.Scores.Upsert(f.ctx, teacher, UpsertScoreRequest{
		Student: student.ID.Hex(), Exam: exam.ID.Hex(), Score: &first, Note: "Tốt",
	})
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "A", view.Grade)
	assert.Equal(t, model.ScoreStatusEntered, view.Status)
	require.NotNil(t, view.Student)
	assert.Equal(t, "110120001", view.Student.StudentID)

	second := 6.0
	view, created, err = f.svc.Scores.Upsert(f.ctx, teacher, UpsertScoreRequest{
		Student: student.ID.Hex(), Exam: exam.ID.Hex(), Score: &second,
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 6.0, view.Score.Score)
	assert.Equal(t, "C", view.Grade)

	scores, err := f.svc.Scores.ListByExam(f.ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, scores, 1)

	mine, err := f.svc.Notifications.ListMine(f.ctx, student)
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "Cập nhật điểm", mine[0].Title)
	assert.Equal(t, "Có điểm mới", mine[1].Title)
	assert.Equal(t, "Môn Tiếng Anh cơ bản: bạn đạt 8.5 điểm (xếp loại A) trong kỳ thi Kỳ thi 2024-12-15.", mine[1].Message)
}

func TestScoreUpsertValidation(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	student := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	exam := f.exam(t, admin, nil, "2025-01-10")

	tooHigh := 10.5
	_, _, err := f.svc.Scores.Upsert(f.ctx, admin, UpsertScoreRequest{Student: student.ID.Hex(), Exam: exam.ID.Hex(), Score: &tooHigh})
	assert.ErrorIs(t, err, common.ErrValidation)

	ok := 5.0
	_, _, err = f.svc.Scores.Upsert(f.ctx, admin, UpsertScoreRequest{Student: student.ID.Hex(), Exam: primitive.NewObjectID().Hex(), Score: &ok})
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy kỳ thi.")

	_, _, err = f.svc.Scores.Upsert(f.ctx, admin, UpsertScoreRequest{Student: primitive.NewObjectID().Hex(), Exam: exam.ID.Hex(), Score: &ok})
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy sinh viên.")
}

func TestScoreMessage(t *testing.T) {
	exam := &model.Exam{Name: "Cuối kỳ"}
	score := &model.Score{Score: 7, Grade: "B"}

	assert.Equal(t, "Kỳ thi Cuối kỳ: bạn đạt 7 điểm (xếp loại B).", ScoreMessage(exam, nil, score))
	assert.Equal(t, "Môn Toán: bạn đạt 7 điểm (xếp loại B) trong kỳ thi Cuối kỳ.",
		ScoreMessage(exam, &model.Subject{Name: "Toán"}, score))
}

func TestScoreImport(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	a := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	b := f.user(t, model.RoleStudent, "110120002@gmail.com", "110120002")
	exam := f.exam(t, admin, nil, "2025-01-10")

	prior := 4.0
	_, _, err := f.svc.Scores.Upsert(f.ctx, admin, UpsertScoreRequest{Student: b.ID.Hex(), Exam: exam.ID.Hex(), Score: &prior, Note: "Thi lại"})
	require.NoError(t, err)

	_, err = f.svc.Scores.Import(f.ctx, admin, ImportScoresRequest{ExamID: exam.ID.Hex()})
	assertAppError(t, err, common.ErrBadRequest, "Thiếu thông tin examId hoặc scores.")

	empty, err := f.svc.Scores.Import(f.ctx, admin, ImportScoresRequest{ExamID: exam.ID.Hex(), Scores: []ImportScoreItem{}})
	require.NoError(t, err)
	assert.Zero(t, empty.Success)
	assert.Zero(t, empty.Failed)
	assert.Empty(t, empty.Errors)

	res, err := f.svc.Scores.Import(f.ctx, admin, ImportScoresRequest{
		ExamID: exam.ID.Hex(),
		Scores: []ImportScoreItem{
			{StudentID: "110120001", Score: 9.0},
			{StudentID: b.ID.Hex(), Score: "7.25"},
			{StudentID: "", Score: 5.0},
			{StudentID: "110120003", Score: 5.0},
			{StudentID: "110120001", Score: "abc"},
			{StudentID: "110120001", Score: 11.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 4, res.Failed)
	assert.Equal(t, []string{
		"Thiếu thông tin cho sinh viên unknown",
		"Không tìm thấy sinh viên 110120003",
		"Điểm không hợp lệ cho sinh viên 110120001",
		"Điểm không hợp lệ cho sinh viên 110120001",
	}, res.Errors)

	scores, err := f.svc.Scores.ListByExam(f.ctx, exam.ID)
	require.NoError(t, err)
	require.Len(t, scores, 2)
	assert.Equal(t, a.ID, scores[0].Score.Student)
	assert.Equal(t, 9.0, scores[0].Score.Score)
	assert.Equal(t, 7.25, scores[1].Score.Score)
	assert.Equal(t, "Thi lại", scores[1].Note, "empty note keeps the previous one")
}

func TestExamStudentsAndMyExams(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	teacher := f.user(t, model.RoleTeacher, "giaovien@gmail.com", "")
	a := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	b := f.user(t, model.RoleStudent, "110120002@gmail.com", "110120002")
	subject := f.subject(t, "TA01", "Tiếng Anh cơ bản")
	early := f.exam(t, admin, subject, "2024-12-01")
	late := f.exam(t, admin, subject, "2024-12-20")
	class := f.class(t, "TA01-01", subject, teacher, 10)

	_, err := f.svc.Scores.ExamStudents(f.ctx, early.ID)
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy lớp học có kỳ thi này.")

	_, _, err = f.svc.Classes.AddStudents(f.ctx, class.ID, AddStudentsRequest{StudentIDs: []string{b.ID.Hex(), a.ID.Hex()}})
	require.NoError(t, err)
	for _, e := range []*ExamView{early, late} {
		_, err = f.svc.Classes.AttachExam(f.ctx, class.ID, AttachExamRequest{ExamID: e.ID.Hex()})
		require.NoError(t, err)
	}
	score := 8.0
	_, _, err = f.svc.Scores.Upsert(f.ctx, teacher, UpsertScoreRequest{Student: a.ID.Hex(), Exam: early.ID.Hex(), Score: &score})
	require.NoError(t, err)

	roster, err := f.svc.Scores.ExamStudents(f.ctx, early.ID)
	require.NoError(t, err)
	assert.Equal(t, class.ID, roster.Class.ID)
	require.Len(t, roster.Students, 2)
	assert.Equal(t, "110120001", roster.Students[0].StudentID)
	assert.Equal(t, model.ScoreStatusEntered, roster.Students[0].Status)
	require.NotNil(t, roster.Students[0].Score)
	assert.Equal(t, 8.0, *roster.Students[0].Score)
	assert.Equal(t, model.ScoreStatusPending, roster.Students[1].Status)
	assert.Nil(t, roster.Students[1].Score)

	items, err := f.svc.Scores.MyExams(f.ctx, a)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, late.ID, items[0].ExamID, "newest exam first")
	assert.Nil(t, items[0].Score)
	assert.Equal(t, model.ScoreStatusPending, items[0].ScoreStatus)
	require.NotNil(t, items[1].Grade)
	assert.Equal(t, "B", *items[1].Grade)
	require.NotNil(t, items[1].Teacher)
	assert.Equal(t, teacher.ID, items[1].Teacher.ID)

	history, err := f.svc.Scores.MyHistory(f.ctx, teacher)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, "110120001", history[0].StudentID)
	assert.Equal(t, "Tiếng Anh cơ bản", history[0].SubjectName)
}

func TestScoreStatusAndCleanup(t *testing.T) {
	f := newFixture(t)
	admin := f.user(t, model.RoleAdmin, "admin@gmail.com", "")
	student := f.user(t, model.RoleStudent, "110120001@gmail.com", "110120001")
	exam := f.exam(t, admin, nil, "2025-01-10")

	value := 5.5
	view, _, err := f.svc.Scores.Upsert(f.ctx, admin, UpsertScoreRequest{Student: student.ID.Hex(), Exam: exam.ID.Hex(), Score: &value})
	require.NoError(t, err)

	verified, err := f.svc.Scores.UpdateStatus(f.ctx, admin, view.ID, UpdateScoreStatusRequest{Status: model.ScoreStatusVerified})
	require.NoError(t, err)
	assert.Equal(t, model.ScoreStatusVerified, verified.Status)
	require.NotNil(t, verified.VerifiedBy)
	assert.Equal(t, admin.ID, *verified.VerifiedBy)

	_, err = f.svc.Scores.UpdateStatus(f.ctx, admin, view.ID, UpdateScoreStatusRequest{Status: "archived"})
	assertAppError(t, err, common.ErrBadRequest, "Trạng thái điểm không hợp lệ.")

	_, err = f.svc.Scores.UpdateStatus(f.ctx, admin, primitive.NewObjectID(), UpdateScoreStatusRequest{Status: model.ScoreStatusPublished})
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy điểm.")

	// Remove the exam behind the service's back to leave an orphan.
	require.NoError(t, f.repos.Exams.Delete(f.ctx, exam.ID))
	n, err := f.svc.Scores.CleanupOrphans(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	err = f.svc.Scores.Delete(f.ctx, view.ID)
	assertAppError(t, err, common.ErrNotFound, "Không tìm thấy điểm.")
}
