package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"eduscore/internal/app/notify"
	"eduscore/internal/common"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	maxCodeAttempts     = 5
	maxRegisterAttempts = 3
	examCodeLockPrefix  = "lock:exam-code:"
)

// Locker serialises work on a key across API instances.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

type ExamService struct {
	examRepo  repository.ExamRepository
	scoreRepo repository.ScoreRepository
	classRepo repository.ClassRepository
	refs      refLoader
	publisher notify.Publisher
	locker    Locker // nil without redis
}

func NewExamService(
	examRepo repository.ExamRepository,
	subjectRepo repository.SubjectRepository,
	userRepo repository.UserRepository,
	scoreRepo repository.ScoreRepository,
	classRepo repository.ClassRepository,
	publisher notify.Publisher,
	locker Locker,
) *ExamService {
	return &ExamService{
		examRepo:  examRepo,
		scoreRepo: scoreRepo,
		classRepo: classRepo,
		refs:      refLoader{users: userRepo, subjects: subjectRepo, exams: examRepo},
		publisher: publisher,
		locker:    locker,
	}
}

type CreateExamRequest struct {
	Name            string `json:"name" validate:"notblank,max=200"`
	Subject         string `json:"subject" validate:"omitempty,mongodb"`
	ExamDate        string `json:"examDate" validate:"required,examdate"`
	StartTime       string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime         string `json:"endTime" validate:"omitempty,hhmm"`
	Room            string `json:"room" validate:"omitempty,max=50"`
	Duration        *int   `json:"duration" validate:"omitempty,min=15,max=300"`
	Semester        string `json:"semester" validate:"notblank"`
	AcademicYear    string `json:"academicYear" validate:"notblank"`
	Status          string `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	Description     string `json:"description" validate:"omitempty,max=1000"`
	MaxParticipants *int   `json:"maxParticipants" validate:"omitempty,min=0"`
}

// UpdateExamRequest is a partial update. An empty subject turns the exam
// into a public one.
type UpdateExamRequest struct {
	Name            *string `json:"name" validate:"omitempty,notblank,max=200"`
	Subject         *string `json:"subject" validate:"omitempty,mongodb"`
	ExamDate        *string `json:"examDate" validate:"omitempty,examdate"`
	StartTime       *string `json:"startTime" validate:"omitempty,hhmm"`
	EndTime         *string `json:"endTime" validate:"omitempty,hhmm"`
	Room            *string `json:"room" validate:"omitempty,max=50"`
	Duration        *int    `json:"duration" validate:"omitempty,min=15,max=300"`
	Semester        *string `json:"semester" validate:"omitempty,notblank"`
	AcademicYear    *string `json:"academicYear" validate:"omitempty,notblank"`
	Status          *string `json:"status" validate:"omitempty,oneof=upcoming ongoing completed cancelled"`
	Description     *string `json:"description" validate:"omitempty,max=1000"`
	MaxParticipants *int    `json:"maxParticipants" validate:"omitempty,min=0"`
}

// ExamView is an exam with its references populated.
type ExamView struct {
	model.Exam
	Subject          *model.SubjectRef `json:"subject"`
	CreatedBy        *model.UserRef    `json:"createdBy"`
	ParticipantCount int               `json:"participantCount"`
}

func (s *ExamService) Create(ctx context.Context, caller *model.User, req CreateExamRequest) (*ExamView, error) {
	req.Subject = strings.TrimSpace(req.Subject)
	if err := validation.Struct(req); err != nil {
		return nil, err
	}

	examDate, err := model.ParseExamDate(req.ExamDate)
	if err != nil {
		return nil, common.BadRequest("Ngày thi không hợp lệ.")
	}
	exam := &model.Exam{
		Name:         strings.TrimSpace(req.Name),
		ExamDate:     examDate,
		StartTime:    model.DefaultExamStartTime,
		EndTime:      model.DefaultExamEndTime,
		Room:         strings.TrimSpace(req.Room),
		Duration:     model.DefaultExamDuration,
		Semester:     strings.TrimSpace(req.Semester),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Status:       model.ExamStatusUpcoming,
		Description:  strings.TrimSpace(req.Description),
		CreatedBy:    caller.ID,
	}
	if req.Subject != "" {
		subjectID, err := s.subjectID(ctx, req.Subject)
		if err != nil {
			return nil, err
		}
		exam.Subject = &subjectID
	}
	if req.StartTime != "" {
		exam.StartTime = req.StartTime
	}
	if req.EndTime != "" {
		exam.EndTime = req.EndTime
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.Status != "" {
		exam.Status = req.Status
	}
	if exam.IsPublic() && req.MaxParticipants != nil {
		exam.MaxParticipants = *req.MaxParticipants
	}

	if err := s.insertWithCode(ctx, exam); err != nil {
		return nil, err
	}

	if exam.IsPublic() {
		s.publisher.Publish(ctx, &model.Notification{
			Title:        "Kỳ thi mới",
			Message:      fmt.Sprintf("Kỳ thi %s đã mở đăng ký. Ngày thi: %s.", exam.Name, exam.ExamDate.Format("02/01/2006")),
			Type:         model.NotificationTypeExam,
			RelatedID:    &exam.ID,
			RelatedModel: model.RelatedExam,
		})
	}
	return s.view(ctx, exam)
}

func (s *ExamService) subjectID(ctx context.Context, hex string) (primitive.ObjectID, error) {
	id, err := repository.ParseID(hex)
	if err != nil {
		return id, err
	}
	if _, err := s.refs.subjects.FindByID(ctx, id); err != nil {
		return id, orNotFound(err, MsgSubjectNotFound)
	}
	return id, nil
}

// insertWithCode allocates the next code for the exam month and inserts the
// exam. The unique index on code is the final arbiter; a lost race simply
// allocates again.
func (s *ExamService) insertWithCode(ctx context.Context, exam *model.Exam) error {
	prefix := model.ExamCodePrefix(exam.ExamDate)

	var err error
	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		err = s.withCodeLock(ctx, prefix, func() error {
			code, err := s.NextCode(ctx, prefix)
			if err != nil {
				return err
			}
			exam.Code = code
			return s.examRepo.Create(ctx, exam)
		})
		if !errors.Is(err, common.ErrDuplicateKey) {
			return err
		}
		log.Printf("WARN: exam code collision on attempt %d for prefix %s", attempt, prefix)
	}
	return fmt.Errorf("could not allocate exam code for %s: %w", prefix, err)
}

func (s *ExamService) withCodeLock(ctx context.Context, prefix string, fn func() error) error {
	if s.locker == nil {
		return fn()
	}
	release, err := s.locker.Lock(ctx, examCodeLockPrefix+prefix)
	if err != nil {
		// The unique index still guarantees correctness without the lock.
		log.Printf("WARN: proceeding without exam code lock: %v", err)
		return fn()
	}
	defer release()
	return fn()
}

// NextCode returns the first unused code of the month prefix, starting after
// the number of codes already issued.
func (s *ExamService) NextCode(ctx context.Context, prefix string) (string, error) {
	count, err := s.examRepo.CountByCodePrefix(ctx, prefix)
	if err != nil {
		return "", err
	}
	for seq := int(count) + 1; seq <= 9999; seq++ {
		code := model.FormatExamCode(prefix, seq)
		exists, err := s.examRepo.CodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", common.BadRequest("Đã hết mã kỳ thi cho tháng này.")
}

func (s *ExamService) Get(ctx context.Context, id primitive.ObjectID) (*ExamView, error) {
	exam, err := s.examRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}
	return s.view(ctx, exam)
}

type ExamQuery struct {
	Subject  string
	Status   string
	Semester string
	Search   string
}

func (s *ExamService) List(ctx context.Context, q ExamQuery) ([]ExamView, error) {
	subject, err := parseOptionalID(q.Subject)
	if err != nil {
		return nil, err
	}
	exams, err := s.examRepo.List(ctx, repository.ExamFilter{
		Subject:  subject,
		Status:   q.Status,
		Semester: q.Semester,
		Search:   q.Search,
	})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, exams)
}

// ListPublic returns the exams open to self-registration, soonest first.
func (s *ExamService) ListPublic(ctx context.Context) ([]ExamView, error) {
	exams, err := s.examRepo.List(ctx, repository.ExamFilter{PublicOnly: true, ByDateAsc: true})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, exams)
}

func (s *ExamService) Update(ctx context.Context, id primitive.ObjectID, req UpdateExamRequest) (*ExamView, error) {
	makePublic := req.Subject != nil && strings.TrimSpace(*req.Subject) == ""
	if makePublic {
		req.Subject = nil
	}
	return s.update(ctx, id, req, makePublic)
}

func (s *ExamService) update(ctx context.Context, id primitive.ObjectID, req UpdateExamRequest, makePublic bool) (*ExamView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	exam, err := s.examRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}

	if req.Status != nil && !model.CanTransitionExamStatus(exam.Status, *req.Status) {
		return nil, common.BadRequest(fmt.Sprintf("Không thể chuyển trạng thái kỳ thi từ %s sang %s.", exam.Status, *req.Status))
	}

	switch {
	case makePublic:
		exam.Subject = nil
	case req.Subject != nil:
		subjectID, err := s.subjectID(ctx, *req.Subject)
		if err != nil {
			return nil, err
		}
		exam.Subject = &subjectID
		exam.MaxParticipants = 0
	}
	if req.Name != nil {
		exam.Name = strings.TrimSpace(*req.Name)
	}
	if req.ExamDate != nil {
		if exam.ExamDate, err = model.ParseExamDate(*req.ExamDate); err != nil {
			return nil, common.BadRequest("Ngày thi không hợp lệ.")
		}
	}
	if req.StartTime != nil {
		exam.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		exam.EndTime = *req.EndTime
	}
	if req.Room != nil {
		exam.Room = strings.TrimSpace(*req.Room)
	}
	if req.Duration != nil {
		exam.Duration = *req.Duration
	}
	if req.Semester != nil {
		exam.Semester = strings.TrimSpace(*req.Semester)
	}
	if req.AcademicYear != nil {
		exam.AcademicYear = strings.TrimSpace(*req.AcademicYear)
	}
	if req.Status != nil {
		exam.Status = *req.Status
	}
	if req.Description != nil {
		exam.Description = strings.TrimSpace(*req.Description)
	}
	if req.MaxParticipants != nil && exam.IsPublic() {
		exam.MaxParticipants = *req.MaxParticipants
	}

	if err := s.examRepo.Update(ctx, exam); err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}
	return s.view(ctx, exam)
}

// DeleteResult reports what the cascade removed.
type DeleteResult struct {
	DeletedScores  int64 `json:"deletedScores"`
	UpdatedClasses int64 `json:"updatedClasses"`
}

// Delete removes the exam, its scores and its class attachments.
func (s *ExamService) Delete(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	if err := s.examRepo.Delete(ctx, id); err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}
	var (
		res DeleteResult
		err error
	)
	if res.DeletedScores, err = s.scoreRepo.DeleteByExam(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to delete scores of exam %s: %w", id.Hex(), err)
	}
	if res.UpdatedClasses, err = s.classRepo.PullExam(ctx, id); err != nil {
		return nil, fmt.Errorf("failed to detach exam %s from classes: %w", id.Hex(), err)
	}
	return &res, nil
}

// Register adds the student to a public exam. When the conditional update
// does not apply, the exam is reloaded to explain why.
func (s *ExamService) Register(ctx context.Context, examID primitive.ObjectID, student *model.User) error {
	for attempt := 0; attempt < maxRegisterAttempts; attempt++ {
		ok, err := s.examRepo.AddParticipant(ctx, examID, student.ID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		exam, err := s.examRepo.FindByID(ctx, examID)
		if err != nil {
			return orNotFound(err, MsgExamNotFound)
		}
		switch {
		case !exam.IsPublic():
			return common.BadRequest("Kỳ thi này không mở đăng ký tự do.")
		case exam.Status != model.ExamStatusUpcoming:
			return common.BadRequest("Kỳ thi không còn mở đăng ký.")
		case exam.HasParticipant(student.ID):
			return common.BadRequest("Bạn đã đăng ký kỳ thi này rồi.")
		case exam.MaxParticipants > 0 && len(exam.Participants) >= exam.MaxParticipants:
			return common.BadRequest("Kỳ thi đã đủ số lượng thí sinh.")
		}
		// A seat opened between the update and the reload; try again.
	}
	return common.BadRequest("Kỳ thi đã đủ số lượng thí sinh.")
}

func (s *ExamService) Unregister(ctx context.Context, examID primitive.ObjectID, student *model.User) error {
	ok, err := s.examRepo.RemoveParticipant(ctx, examID, student.ID)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.examRepo.FindByID(ctx, examID); err != nil {
		return orNotFound(err, MsgExamNotFound)
	}
	return common.BadRequest("Bạn chưa đăng ký kỳ thi này.")
}

// Participants returns the registered students in registration order.
func (s *ExamService) Participants(ctx context.Context, examID primitive.ObjectID) ([]model.UserRef, error) {
	exam, err := s.examRepo.FindByID(ctx, examID)
	if err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}
	users, err := s.refs.userMap(ctx, exam.Participants)
	if err != nil {
		return nil, err
	}
	out := make([]model.UserRef, 0, len(exam.Participants))
	for _, id := range exam.Participants {
		if ref := userRef(users, id); ref != nil {
			out = append(out, *ref)
		}
	}
	return out, nil
}

func (s *ExamService) view(ctx context.Context, exam *model.Exam) (*ExamView, error) {
	views, err := s.views(ctx, []model.Exam{*exam})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ExamService) views(ctx context.Context, exams []model.Exam) ([]ExamView, error) {
	subjectIDs := make([]primitive.ObjectID, 0, len(exams))
	userIDs := make([]primitive.ObjectID, 0, len(exams))
	for _, e := range exams {
		if e.Subject != nil {
			subjectIDs = append(subjectIDs, *e.Subject)
		}
		userIDs = append(userIDs, e.CreatedBy)
	}
	subjects, err := s.refs.subjectMap(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	users, err := s.refs.userMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ExamView, 0, len(exams))
	for _, e := range exams {
		out = append(out, ExamView{
			Exam:             e,
			Subject:          subjectRef(subjects, e.Subject),
			CreatedBy:        userRef(users, e.CreatedBy),
			ParticipantCount: len(e.Participants),
		})
	}
	return out, nil
}
