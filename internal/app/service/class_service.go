package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"eduscore/internal/app/notify"
	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	MsgClassFullJoin      = "Lớp đã đầy, không thể tham gia."
	MsgClassAlreadyMember = "Bạn đã tham gia lớp này rồi."

	msgExamAlreadyAttached = "Kỳ thi đã được thêm vào lớp."
	MsgClassNotMember     = "Bạn không thuộc lớp này."

	maxJoinAttempts = 3
)

type ClassService struct {
	classRepo repository.ClassRepository
	refs      refLoader
	publisher notify.Publisher
}

func NewClassService(
	classRepo repository.ClassRepository,
	subjectRepo repository.SubjectRepository,
	userRepo repository.UserRepository,
	examRepo repository.ExamRepository,
	publisher notify.Publisher,
) *ClassService {
	return &ClassService{
		classRepo: classRepo,
		refs:      refLoader{users: userRepo, subjects: subjectRepo, exams: examRepo},
		publisher: publisher,
	}
}

type CreateClassRequest struct {
	Code         string `json:"code" validate:"notblank,max=30"`
	Name         string `json:"name" validate:"notblank,max=200"`
	Subject      string `json:"subject" validate:"required,mongodb"`
	Teacher      string `json:"teacher" validate:"required,mongodb"`
	Semester     string `json:"semester" validate:"notblank"`
	AcademicYear string `json:"academicYear" validate:"notblank"`
	Schedule     string `json:"schedule" validate:"omitempty,max=200"`
	Room         string `json:"room" validate:"omitempty,max=50"`
	MaxStudents  *int   `json:"maxStudents" validate:"omitempty,min=1,max=200"`
	Password     string `json:"password"`
}

type UpdateClassRequest struct {
	Code         *string `json:"code" validate:"omitempty,notblank,max=30"`
	Name         *string `json:"name" validate:"omitempty,notblank,max=200"`
	Subject      *string `json:"subject" validate:"omitempty,mongodb"`
	Teacher      *string `json:"teacher" validate:"omitempty,mongodb"`
	Semester     *string `json:"semester" validate:"omitempty,notblank"`
	AcademicYear *string `json:"academicYear" validate:"omitempty,notblank"`
	Schedule     *string `json:"schedule" validate:"omitempty,max=200"`
	Room         *string `json:"room" validate:"omitempty,max=50"`
	MaxStudents  *int    `json:"maxStudents" validate:"omitempty,min=1,max=200"`
	Password     *string `json:"password"`
	IsActive     *bool   `json:"isActive"`
}

type AddStudentsRequest struct {
	StudentIDs []string `json:"studentIds" validate:"required,min=1,dive,mongodb"`
}

type AttachExamRequest struct {
	ExamID string `json:"examId" validate:"required,mongodb"`
}

type JoinClassRequest struct {
	Password string `json:"password"`
}

type ClassQuery struct {
	Subject      string
	Teacher      string
	Semester     string
	AcademicYear string
	Search       string
}

// ClassView is a class with subject, teacher, roster and exams populated.
type ClassView struct {
	model.Class
	Subject      *model.SubjectRef `json:"subject"`
	Teacher      *model.UserRef    `json:"teacher"`
	Students     []model.UserRef   `json:"students"`
	Exams        []model.ExamRef   `json:"exams"`
	StudentCount int               `json:"studentCount"`
}

func (s *ClassService) Create(ctx context.Context, req CreateClassRequest) (*ClassView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if len(req.Password) < model.MinClassPasswordSize {
		return nil, common.BadRequest(fmt.Sprintf("Mật khẩu lớp phải có ít nhất %d ký tự.", model.MinClassPasswordSize))
	}
	class := &model.Class{
		Code:         model.NormalizeCode(req.Code),
		Name:         strings.TrimSpace(req.Name),
		Semester:     strings.TrimSpace(req.Semester),
		AcademicYear: strings.TrimSpace(req.AcademicYear),
		Schedule:     strings.TrimSpace(req.Schedule),
		Room:         strings.TrimSpace(req.Room),
		MaxStudents:  model.DefaultMaxStudents,
		IsActive:     true,
	}
	if req.MaxStudents != nil {
		class.MaxStudents = *req.MaxStudents
	}
	if err := s.setRefs(ctx, class, req.Subject, req.Teacher); err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	class.Password = hash

	if err := s.classRepo.Create(ctx, class); err != nil {
		return nil, duplicateClassCode(err)
	}
	return s.view(ctx, class)
}

func duplicateClassCode(err error) error {
	if errors.Is(err, common.ErrDuplicateKey) {
		return common.BadRequest("Mã lớp đã tồn tại.")
	}
	return err
}

// setRefs checks that the subject exists and the teacher is a teacher.
func (s *ClassService) setRefs(ctx context.Context, class *model.Class, subject, teacher string) error {
	if subject != "" {
		id, err := repository.ParseID(subject)
		if err != nil {
			return err
		}
		if _, err := s.refs.subjects.FindByID(ctx, id); err != nil {
			return orNotFound(err, MsgSubjectNotFound)
		}
		class.Subject = id
	}
	if teacher != "" {
		id, err := repository.ParseID(teacher)
		if err != nil {
			return err
		}
		u, err := s.refs.users.FindByID(ctx, id)
		if err != nil {
			return orNotFound(err, MsgTeacherNotFound)
		}
		if !u.IsTeacher() {
			return common.BadRequest("Người dùng được chọn không phải là giáo viên.")
		}
		class.Teacher = id
	}
	return nil
}

func (s *ClassService) Update(ctx context.Context, id primitive.ObjectID, req UpdateClassRequest) (*ClassView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	class, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Code != nil {
		class.Code = model.NormalizeCode(*req.Code)
	}
	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Semester != nil {
		class.Semester = strings.TrimSpace(*req.Semester)
	}
	if req.AcademicYear != nil {
		class.AcademicYear = strings.TrimSpace(*req.AcademicYear)
	}
	if req.Schedule != nil {
		class.Schedule = strings.TrimSpace(*req.Schedule)
	}
	if req.Room != nil {
		class.Room = strings.TrimSpace(*req.Room)
	}
	if req.IsActive != nil {
		class.IsActive = *req.IsActive
	}
	if req.MaxStudents != nil {
		class.MaxStudents = *req.MaxStudents
	}
	if req.Password != nil {
		if len(*req.Password) < model.MinClassPasswordSize {
			return nil, common.BadRequest(fmt.Sprintf("Mật khẩu lớp phải có ít nhất %d ký tự.", model.MinClassPasswordSize))
		}
		hash, err := security.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
		class.Password = hash
	}
	var subject, teacher string
	if req.Subject != nil {
		subject = *req.Subject
	}
	if req.Teacher != nil {
		teacher = *req.Teacher
	}
	if err := s.setRefs(ctx, class, subject, teacher); err != nil {
		return nil, err
	}

	ok, err := s.classRepo.Update(ctx, class)
	if err != nil {
		return nil, duplicateClassCode(err)
	}
	if !ok {
		current, err := s.find(ctx, id)
		if err != nil {
			return nil, err
		}
		if len(current.Students) > class.MaxStudents {
			return nil, common.BadRequest("Sĩ số tối đa không được nhỏ hơn số sinh viên hiện tại.")
		}
		return nil, common.NotFound(MsgClassNotFound)
	}
	return s.Get(ctx, id)
}

func (s *ClassService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.classRepo.Delete(ctx, id); err != nil {
		return orNotFound(err, MsgClassNotFound)
	}
	return nil
}

func (s *ClassService) Get(ctx context.Context, id primitive.ObjectID) (*ClassView, error) {
	class, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, class)
}

func (s *ClassService) List(ctx context.Context, q ClassQuery) ([]ClassView, error) {
	filter := repository.ClassFilter{
		Semester:     q.Semester,
		AcademicYear: q.AcademicYear,
		Search:       strings.TrimSpace(q.Search),
	}
	var err error
	if filter.Subject, err = parseOptionalID(q.Subject); err != nil {
		return nil, err
	}
	if filter.Teacher, err = parseOptionalID(q.Teacher); err != nil {
		return nil, err
	}
	return s.list(ctx, filter)
}

func (s *ClassService) ListByTeacher(ctx context.Context, teacherID primitive.ObjectID) ([]ClassView, error) {
	return s.list(ctx, repository.ClassFilter{Teacher: &teacherID})
}

func (s *ClassService) ListByStudent(ctx context.Context, studentID primitive.ObjectID) ([]ClassView, error) {
	return s.list(ctx, repository.ClassFilter{Student: &studentID})
}

func (s *ClassService) list(ctx context.Context, filter repository.ClassFilter) ([]ClassView, error) {
	classes, err := s.classRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	return s.views(ctx, classes)
}

// AddStudents rosters a batch of students. The whole batch is rejected when
// it does not fit. It returns the number of students actually added.
func (s *ClassService) AddStudents(ctx context.Context, id primitive.ObjectID, req AddStudentsRequest) (*ClassView, int, error) {
	if err := validation.Struct(req); err != nil {
		return nil, 0, err
	}
	class, err := s.find(ctx, id)
	if err != nil {
		return nil, 0, err
	}

	ids := make([]primitive.ObjectID, 0, len(req.StudentIDs))
	for _, raw := range req.StudentIDs {
		sid, err := repository.ParseID(raw)
		if err != nil {
			return nil, 0, err
		}
		ids = append(ids, sid)
	}
	ids = uniqueIDs(ids)

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		fresh := make([]primitive.ObjectID, 0, len(ids))
		for _, sid := range ids {
			if !class.HasStudent(sid) {
				fresh = append(fresh, sid)
			}
		}
		if len(class.Students)+len(fresh) > class.MaxStudents {
			return nil, 0, common.BadRequest(fmt.Sprintf("Lớp học đã đầy. Tối đa %d sinh viên.", class.MaxStudents))
		}
		ok, err := s.classRepo.AddStudents(ctx, id, fresh)
		if err != nil {
			return nil, 0, err
		}
		if ok {
			view, err := s.Get(ctx, id)
			return view, len(fresh), err
		}
		// The roster changed underneath us; re-plan against the new one.
		if class, err = s.find(ctx, id); err != nil {
			return nil, 0, err
		}
	}
	return nil, 0, common.BadRequest(fmt.Sprintf("Lớp học đã đầy. Tối đa %d sinh viên.", class.MaxStudents))
}

func (s *ClassService) RemoveStudent(ctx context.Context, classID, studentID primitive.ObjectID) (*ClassView, error) {
	if _, err := s.find(ctx, classID); err != nil {
		return nil, err
	}
	if _, err := s.classRepo.RemoveStudent(ctx, classID, studentID); err != nil {
		return nil, err
	}
	return s.Get(ctx, classID)
}

// AttachExam adds an exam to the class and notifies the roster.
func (s *ClassService) AttachExam(ctx context.Context, classID primitive.ObjectID, req AttachExamRequest) (*ClassView, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	examID, err := repository.ParseID(req.ExamID)
	if err != nil {
		return nil, err
	}
	class, err := s.find(ctx, classID)
	if err != nil {
		return nil, err
	}
	exam, err := s.refs.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}
	if class.HasExam(examID) {
		return nil, common.BadRequest(msgExamAlreadyAttached)
	}

	ok, err := s.classRepo.AddExam(ctx, classID, examID)
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.find(ctx, classID); err != nil {
			return nil, err
		}
		return nil, common.BadRequest(msgExamAlreadyAttached)
	}

	students, err := s.refs.users.FindByIDs(ctx, class.Students)
	if err != nil {
		return nil, err
	}
	relatedID := exam.ID
	notify.PublishAll(ctx, s.publisher, model.Notification{
		Title:        "Kỳ thi mới trong lớp",
		Message:      fmt.Sprintf("Lớp %s có kỳ thi mới: %s. Ngày thi: %s.", class.Name, exam.Name, exam.ExamDate.Format("02/01/2006")),
		Type:         model.NotificationTypeClass,
		RelatedID:    &relatedID,
		RelatedModel: model.RelatedExam,
	}, students)

	return s.Get(ctx, classID)
}

// Join rosters the caller after checking the class password.
func (s *ClassService) Join(ctx context.Context, caller *model.User, classID primitive.ObjectID, req JoinClassRequest) (*ClassView, error) {
	if req.Password == "" {
		return nil, common.BadRequest("Vui lòng nhập mật khẩu lớp.")
	}
	class, err := s.find(ctx, classID)
	if err != nil {
		return nil, err
	}
	if !security.CheckPasswordHash(req.Password, class.Password) {
		return nil, common.Unauthorized("Mật khẩu không đúng.")
	}

	for attempt := 0; attempt < maxJoinAttempts; attempt++ {
		if class.HasStudent(caller.ID) {
			return nil, common.BadRequest(MsgClassAlreadyMember)
		}
		if class.IsFull() {
			return nil, common.BadRequest(MsgClassFullJoin)
		}
		ok, err := s.classRepo.AddStudent(ctx, classID, caller.ID)
		if err != nil {
			return nil, err
		}
		if ok {
			return s.Get(ctx, classID)
		}
		if class, err = s.find(ctx, classID); err != nil {
			return nil, err
		}
	}
	return nil, common.BadRequest(MsgClassFullJoin)
}

func (s *ClassService) Leave(ctx context.Context, caller *model.User, classID primitive.ObjectID) error {
	if _, err := s.find(ctx, classID); err != nil {
		return err
	}
	ok, err := s.classRepo.RemoveStudent(ctx, classID, caller.ID)
	if err != nil {
		return err
	}
	if !ok {
		return common.BadRequest(MsgClassNotMember)
	}
	return nil
}

func (s *ClassService) find(ctx context.Context, id primitive.ObjectID) (*model.Class, error) {
	class, err := s.classRepo.FindByID(ctx, id)
	if err != nil {
		return nil, orNotFound(err, MsgClassNotFound)
	}
	return class, nil
}

func (s *ClassService) view(ctx context.Context, class *model.Class) (*ClassView, error) {
	views, err := s.views(ctx, []model.Class{*class})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

func (s *ClassService) views(ctx context.Context, classes []model.Class) ([]ClassView, error) {
	var userIDs, subjectIDs, examIDs []primitive.ObjectID
	for _, c := range classes {
		userIDs = append(userIDs, c.Teacher)
		userIDs = append(userIDs, c.Students...)
		subjectIDs = append(subjectIDs, c.Subject)
		examIDs = append(examIDs, c.Exams...)
	}
	users, err := s.refs.userMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	subjects, err := s.refs.subjectMap(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	exams, err := s.refs.examRefMap(ctx, examIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ClassView, 0, len(classes))
	for _, c := range classes {
		v := ClassView{
			Class:        c,
			Subject:      subjects[c.Subject],
			Teacher:      userRef(users, c.Teacher),
			Students:     make([]model.UserRef, 0, len(c.Students)),
			Exams:        make([]model.ExamRef, 0, len(c.Exams)),
			StudentCount: len(c.Students),
		}
		for _, id := range c.Students {
			if ref := userRef(users, id); ref != nil {
				v.Students = append(v.Students, *ref)
			}
		}
		for _, id := range c.Exams {
			if ref, ok := exams[id]; ok {
				v.Exams = append(v.Exams, *ref)
			}
		}
		out = append(out, v)
	}
	return out, nil
}
