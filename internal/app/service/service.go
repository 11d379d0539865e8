package service

import (
	"context"
	"errors"
	"fmt"

	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MsgUserNotFound         = "Không tìm thấy người dùng."
	MsgStudentNotFound      = "Không tìm thấy sinh viên."
	MsgTeacherNotFound      = "Không tìm thấy giáo viên."
	MsgSubjectNotFound      = "Không tìm thấy môn thi."
	MsgExamNotFound         = "Không tìm thấy kỳ thi."
	MsgScoreNotFound        = "Không tìm thấy điểm."
	MsgClassNotFound        = "Không tìm thấy lớp học."
	MsgNotificationNotFound = "Không tìm thấy thông báo."
)

// orNotFound replaces a bare not-found error with a client-facing message.
func orNotFound(err error, message string) error {
	if errors.Is(err, common.ErrNotFound) {
		var appErr *common.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return common.NotFound(message)
	}
	return err
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]bool, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if id.IsZero() || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// parseOptionalID parses a query parameter that may be empty.
func parseOptionalID(s string) (*primitive.ObjectID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := repository.ParseID(s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

// refLoader resolves references for populated responses. Dangling
// references are simply absent from the returned maps.
type refLoader struct {
	users    repository.UserRepository
	subjects repository.SubjectRepository
	exams    repository.ExamRepository
}

func (l refLoader) userMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.User, error) {
	users, err := l.users.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	out := make(map[primitive.ObjectID]*model.User, len(users))
	for i := range users {
		out[users[i].ID] = &users[i]
	}
	return out, nil
}

func (l refLoader) subjectMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.SubjectRef, error) {
	subjects, err := l.subjects.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("load subjects: %w", err)
	}
	out := make(map[primitive.ObjectID]*model.SubjectRef, len(subjects))
	for i := range subjects {
		out[subjects[i].ID] = model.NewSubjectRef(&subjects[i])
	}
	return out, nil
}

func (l refLoader) examMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.Exam, error) {
	exams, err := l.exams.FindByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, fmt.Errorf("load exams: %w", err)
	}
	out := make(map[primitive.ObjectID]*model.Exam, len(exams))
	for i := range exams {
		out[exams[i].ID] = &exams[i]
	}
	return out, nil
}

// examRefMap loads exams together with their subjects.
func (l refLoader) examRefMap(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]*model.ExamRef, error) {
	exams, err := l.examMap(ctx, ids)
	if err != nil {
		return nil, err
	}
	subjectIDs := make([]primitive.ObjectID, 0, len(exams))
	for _, e := range exams {
		if e.Subject != nil {
			subjectIDs = append(subjectIDs, *e.Subject)
		}
	}
	subjects, err := l.subjectMap(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]*model.ExamRef, len(exams))
	for id, e := range exams {
		out[id] = model.NewExamRef(e, subjectRef(subjects, e.Subject))
	}
	return out, nil
}

func subjectRef(subjects map[primitive.ObjectID]*model.SubjectRef, id *primitive.ObjectID) *model.SubjectRef {
	if id == nil {
		return nil
	}
	return subjects[*id]
}

func userRef(users map[primitive.ObjectID]*model.User, id primitive.ObjectID) *model.UserRef {
	return model.NewUserRef(users[id])
}
