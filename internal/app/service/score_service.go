package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"eduscore/internal/app/notify"
	"eduscore/internal/common"
	"eduscore/internal/common/validation"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ScoreService struct {
	scoreRepo repository.ScoreRepository
	classRepo repository.ClassRepository
	refs      refLoader
	publisher notify.Publisher
}

func NewScoreService(
	scoreRepo repository.ScoreRepository,
	examRepo repository.ExamRepository,
	userRepo repository.UserRepository,
	subjectRepo repository.SubjectRepository,
	classRepo repository.ClassRepository,
	publisher notify.Publisher,
) *ScoreService {
	return &ScoreService{
		scoreRepo: scoreRepo,
		classRepo: classRepo,
		refs:      refLoader{users: userRepo, subjects: subjectRepo, exams: examRepo},
		publisher: publisher,
	}
}

type UpsertScoreRequest struct {
	Student string   `json:"student" validate:"required,mongodb"`
	Exam    string   `json:"exam" validate:"required,mongodb"`
	Score   *float64 `json:"score" validate:"required,min=0,max=10"`
	Note    string   `json:"note" validate:"omitempty,max=500"`
}

type ImportScoreItem struct {
	StudentID string      `json:"studentId"`
	Score     interface{} `json:"score"` // number or numeric string
	Note      string      `json:"note"`
}

type ImportScoresRequest struct {
	ExamID string            `json:"examId"`
	Scores []ImportScoreItem `json:"scores"`
}

type ImportResult struct {
	Success int      `json:"success"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

type UpdateScoreStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// ScoreView is a score with student, exam and author populated.
type ScoreView struct {
	model.Score
	Student   *model.UserRef `json:"student"`
	Exam      *model.ExamRef `json:"exam"`
	EnteredBy *model.UserRef `json:"enteredBy"`
}

type ClassSummary struct {
	ID   primitive.ObjectID `json:"id"`
	Code string             `json:"code"`
	Name string             `json:"name"`
}

// ExamStudentRow is one roster entry merged with the entered score.
type ExamStudentRow struct {
	ID        primitive.ObjectID  `json:"_id"`
	StudentID string              `json:"studentId"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	ScoreID   *primitive.ObjectID `json:"scoreId"`
	Score     *float64            `json:"score"`
	Grade     *string             `json:"grade"`
	Note      string              `json:"note"`
	EnteredAt *time.Time          `json:"enteredAt"`
	Status    string              `json:"status"`
}

type ExamStudents struct {
	Exam     *model.ExamRef   `json:"exam"`
	Class    ClassSummary     `json:"class"`
	Students []ExamStudentRow `json:"students"`
}

// MyExamItem is an exam of one of the student's classes with the student's result.
type MyExamItem struct {
	ExamID      primitive.ObjectID `json:"examId"`
	ExamName    string             `json:"examName"`
	ExamCode    string             `json:"examCode,omitempty"`
	ExamDate    time.Time          `json:"examDate"`
	StartTime   string             `json:"startTime"`
	EndTime     string             `json:"endTime"`
	Room        string             `json:"room"`
	Status      string             `json:"status"`
	Subject     *model.SubjectRef  `json:"subject"`
	Class       ClassSummary       `json:"class"`
	Teacher     *model.UserRef     `json:"teacher"`
	Score       *float64           `json:"score"`
	Grade       *string            `json:"grade"`
	ScoreStatus string             `json:"scoreStatus"`
	Note        string             `json:"note"`
}

// HistoryItem is a flattened score entered by a teacher.
type HistoryItem struct {
	ID          primitive.ObjectID `json:"_id"`
	StudentID   string             `json:"studentId"`
	StudentName string             `json:"studentName"`
	ExamID      primitive.ObjectID `json:"examId"`
	ExamName    string             `json:"examName"`
	ExamCode    string             `json:"examCode,omitempty"`
	SubjectName string             `json:"subjectName,omitempty"`
	Score       float64            `json:"score"`
	Grade       string             `json:"grade"`
	Status      string             `json:"status"`
	Note        string             `json:"note"`
	EnteredAt   time.Time          `json:"enteredAt"`
}

// Upsert records the score of a student for an exam. The boolean reports
// whether the score was newly created.
func (s *ScoreService) Upsert(ctx context.Context, caller *model.User, req UpsertScoreRequest) (*ScoreView, bool, error) {
	if err := validation.Struct(req); err != nil {
		return nil, false, err
	}
	examID, err := repository.ParseID(req.Exam)
	if err != nil {
		return nil, false, err
	}
	studentID, err := repository.ParseID(req.Student)
	if err != nil {
		return nil, false, err
	}

	exam, err := s.refs.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, false, orNotFound(err, MsgExamNotFound)
	}
	student, err := s.refs.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, false, orNotFound(err, MsgStudentNotFound)
	}

	score, created, err := s.scoreRepo.Upsert(ctx, repository.ScoreWrite{
		Student:   student.ID,
		Exam:      exam.ID,
		Score:     *req.Score,
		Grade:     model.GradeFor(*req.Score),
		Note:      strings.TrimSpace(req.Note),
		EnteredBy: caller.ID,
	})
	if err != nil {
		return nil, false, err
	}
	s.notifyScore(ctx, exam, score, created)

	views, err := s.views(ctx, []model.Score{*score})
	if err != nil {
		return nil, false, err
	}
	return &views[0], created, nil
}

// ScoreMessage renders the notification text for a score. Public exams have
// no subject and are introduced by the exam name.
func ScoreMessage(exam *model.Exam, subject *model.Subject, score *model.Score) string {
	value := strconv.FormatFloat(score.Score, 'f', -1, 64)
	if subject != nil {
		return fmt.Sprintf("Môn %s: bạn đạt %s điểm (xếp loại %s) trong kỳ thi %s.", subject.Name, value, score.Grade, exam.Name)
	}
	return fmt.Sprintf("Kỳ thi %s: bạn đạt %s điểm (xếp loại %s).", exam.Name, value, score.Grade)
}

func (s *ScoreService) notifyScore(ctx context.Context, exam *model.Exam, score *model.Score, created bool) {
	var subject *model.Subject
	if exam.Subject != nil {
		found, err := s.refs.subjects.FindByID(ctx, *exam.Subject)
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			log.Printf("WARN: loading subject for score notification: %v", err)
		}
		subject = found
	}
	title := "Cập nhật điểm"
	if created {
		title = "Có điểm mới"
	}
	student := score.Student
	scoreID := score.ID
	s.publisher.Publish(ctx, &model.Notification{
		Title:        title,
		Message:      ScoreMessage(exam, subject, score),
		Type:         model.NotificationTypeScore,
		TargetUser:   &student,
		RelatedID:    &scoreID,
		RelatedModel: model.RelatedScore,
	})
}

// Import writes every item independently and collects per-item failures.
func (s *ScoreService) Import(ctx context.Context, caller *model.User, req ImportScoresRequest) (*ImportResult, error) {
	if strings.TrimSpace(req.ExamID) == "" || req.Scores == nil {
		return nil, common.BadRequest("Thiếu thông tin examId hoặc scores.")
	}
	examID, err := repository.ParseID(strings.TrimSpace(req.ExamID))
	if err != nil {
		return nil, err
	}
	exam, err := s.refs.exams.FindByID(ctx, examID)
	if err != nil {
		return nil, orNotFound(err, MsgExamNotFound)
	}

	res := &ImportResult{Errors: []string{}}
	for _, item := range req.Scores {
		if msg := s.importOne(ctx, caller, exam, item); msg != "" {
			res.Failed++
			res.Errors = append(res.Errors, msg)
			continue
		}
		res.Success++
	}
	return res, nil
}

func (s *ScoreService) importOne(ctx context.Context, caller *model.User, exam *model.Exam, item ImportScoreItem) string {
	key := strings.TrimSpace(item.StudentID)
	if key == "" || item.Score == nil {
		label := key
		if label == "" {
			label = "unknown"
		}
		return fmt.Sprintf("Thiếu thông tin cho sinh viên %s", label)
	}
	value, ok := parseScore(item.Score)
	if !ok || !model.IsValidScore(value) {
		return fmt.Sprintf("Điểm không hợp lệ cho sinh viên %s", key)
	}
	student, err := s.resolveStudent(ctx, key)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Sprintf("Không tìm thấy sinh viên %s", key)
		}
		log.Printf("ERROR: import score for %s: %v", key, err)
		return fmt.Sprintf("Lỗi khi xử lý sinh viên %s", key)
	}

	score, created, err := s.scoreRepo.Upsert(ctx, repository.ScoreWrite{
		Student:   student.ID,
		Exam:      exam.ID,
		Score:     value,
		Grade:     model.GradeFor(value),
		Note:      strings.TrimSpace(item.Note),
		EnteredBy: caller.ID,
		KeepNote:  true,
	})
	if err != nil {
		log.Printf("ERROR: import score for %s: %v", key, err)
		return fmt.Sprintf("Lỗi khi xử lý sinh viên %s", key)
	}
	s.notifyScore(ctx, exam, score, created)
	return ""
}

func parseScore(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// resolveStudent accepts a user ObjectID or a 9-digit student code.
func (s *ScoreService) resolveStudent(ctx context.Context, key string) (*model.User, error) {
	if id, err := primitive.ObjectIDFromHex(key); err == nil {
		return s.refs.users.FindByID(ctx, id)
	}
	if validation.IsStudentID(key) {
		return s.refs.users.FindByStudentID(ctx, key)
	}
	return nil, common.ErrNotFound
}

// ListByExam returns the scores of an exam ordered by student code.
func (s *ScoreService) ListByExam(ctx context.Context, examID primitive.ObjectID) ([]ScoreView, error) {
	scores, err := s.scoreRepo.List(ctx, repository.ScoreFilter{Exam: &examID})
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, scores)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(views, func(i, j int) bool {
		return studentCode(views[i].Student) < studentCode(views[j].Student)
	})
	return views, nil
}

func studentCode(ref *model.UserRef) string {
	if ref == nil {
		return "~" // dangling references sort last
	}
	return ref.StudentID
}

// ExamStudents merges the roster of the class holding the exam with the
// scores entered so far.
func (s *ScoreService) ExamStudents(ctx context.Context, examID primitive.ObjectID) (*ExamStudents, error) {
	refs, err := s.refs.examRefMap(ctx, []primitive.ObjectID{examID})
	if err != nil {
		return nil, err
	}
	examRef, ok := refs[examID]
	if !ok {
		return nil, common.NotFound(MsgExamNotFound)
	}
	class, err := s.classRepo.FindByExam(ctx, examID)
	if err != nil {
		return nil, orNotFound(err, "Không tìm thấy lớp học có kỳ thi này.")
	}
	users, err := s.refs.userMap(ctx, class.Students)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepo.List(ctx, repository.ScoreFilter{Exam: &examID})
	if err != nil {
		return nil, err
	}
	byStudent := make(map[primitive.ObjectID]*model.Score, len(scores))
	for i := range scores {
		byStudent[scores[i].Student] = &scores[i]
	}

	rows := make([]ExamStudentRow, 0, len(class.Students))
	for _, id := range class.Students {
		u, ok := users[id]
		if !ok {
			continue
		}
		row := ExamStudentRow{
			ID:        u.ID,
			StudentID: u.StudentID,
			Name:      u.Name,
			Email:     u.Email,
			Status:    model.ScoreStatusPending,
		}
		if sc, ok := byStudent[id]; ok {
			row.ScoreID = &sc.ID
			row.Score = &sc.Score
			row.Grade = &sc.Grade
			row.Note = sc.Note
			row.EnteredAt = &sc.EnteredAt
			row.Status = model.ScoreStatusEntered
		}
		rows = append(rows, row)
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].StudentID < rows[j].StudentID })

	return &ExamStudents{
		Exam:     examRef,
		Class:    ClassSummary{ID: class.ID, Code: class.Code, Name: class.Name},
		Students: rows,
	}, nil
}

// ListByStudent accepts a user id or a student code.
func (s *ScoreService) ListByStudent(ctx context.Context, student string) ([]ScoreView, error) {
	user, err := s.resolveStudent(ctx, student)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound(MsgStudentNotFound)
		}
		return nil, err
	}
	return s.studentScores(ctx, user.ID)
}

func (s *ScoreService) MyScores(ctx context.Context, caller *model.User) ([]ScoreView, error) {
	return s.studentScores(ctx, caller.ID)
}

func (s *ScoreService) studentScores(ctx context.Context, studentID primitive.ObjectID) ([]ScoreView, error) {
	scores, err := s.scoreRepo.List(ctx, repository.ScoreFilter{Student: &studentID})
	if err != nil {
		return nil, err
	}
	return s.views(ctx, scores)
}

// MyExams lists every exam attached to the student's classes, newest first.
func (s *ScoreService) MyExams(ctx context.Context, caller *model.User) ([]MyExamItem, error) {
	classes, err := s.classRepo.List(ctx, repository.ClassFilter{Student: &caller.ID})
	if err != nil {
		return nil, err
	}

	// The first class listing an exam owns it.
	owner := make(map[primitive.ObjectID]*model.Class)
	var examIDs, teacherIDs, subjectIDs []primitive.ObjectID
	for i := range classes {
		c := &classes[i]
		teacherIDs = append(teacherIDs, c.Teacher)
		subjectIDs = append(subjectIDs, c.Subject)
		for _, id := range c.Exams {
			if _, seen := owner[id]; !seen {
				owner[id] = c
				examIDs = append(examIDs, id)
			}
		}
	}

	exams, err := s.refs.examMap(ctx, examIDs)
	if err != nil {
		return nil, err
	}
	for _, e := range exams {
		if e.Subject != nil {
			subjectIDs = append(subjectIDs, *e.Subject)
		}
	}
	subjects, err := s.refs.subjectMap(ctx, subjectIDs)
	if err != nil {
		return nil, err
	}
	teachers, err := s.refs.userMap(ctx, teacherIDs)
	if err != nil {
		return nil, err
	}
	scores, err := s.scoreRepo.List(ctx, repository.ScoreFilter{Student: &caller.ID, Exams: examIDs})
	if err != nil {
		return nil, err
	}
	byExam := make(map[primitive.ObjectID]*model.Score, len(scores))
	for i := range scores {
		byExam[scores[i].Exam] = &scores[i]
	}

	items := make([]MyExamItem, 0, len(examIDs))
	for _, id := range examIDs {
		e, ok := exams[id]
		if !ok {
			continue
		}
		c := owner[id]
		subjectID := e.Subject
		if subjectID == nil {
			subjectID = &c.Subject
		}
		item := MyExamItem{
			ExamID:      e.ID,
			ExamName:    e.Name,
			ExamCode:    e.Code,
			ExamDate:    e.ExamDate,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Room:        e.Room,
			Status:      e.Status,
			Subject:     subjectRef(subjects, subjectID),
			Class:       ClassSummary{ID: c.ID, Code: c.Code, Name: c.Name},
			Teacher:     userRef(teachers, c.Teacher),
			ScoreStatus: model.ScoreStatusPending,
		}
		if sc, ok := byExam[id]; ok {
			item.Score = &sc.Score
			item.Grade = &sc.Grade
			item.ScoreStatus = sc.Status
			item.Note = sc.Note
		}
		items = append(items, item)
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].ExamDate.After(items[j].ExamDate) })
	return items, nil
}

// MyHistory lists the scores the teacher entered, most recent first.
func (s *ScoreService) MyHistory(ctx context.Context, caller *model.User) ([]HistoryItem, error) {
	scores, err := s.scoreRepo.List(ctx, repository.ScoreFilter{EnteredBy: &caller.ID, ByEnteredAt: true})
	if err != nil {
		return nil, err
	}
	studentIDs := make([]primitive.ObjectID, 0, len(scores))
	examIDs := make([]primitive.ObjectID, 0, len(scores))
	for _, sc := range scores {
		studentIDs = append(studentIDs, sc.Student)
		examIDs = append(examIDs, sc.Exam)
	}
	students, err := s.refs.userMap(ctx, studentIDs)
	if err != nil {
		return nil, err
	}
	exams, err := s.refs.examRefMap(ctx, examIDs)
	if err != nil {
		return nil, err
	}

	items := make([]HistoryItem, 0, len(scores))
	for _, sc := range scores {
		item := HistoryItem{
			ID:        sc.ID,
			ExamID:    sc.Exam,
			Score:     sc.Score,
			Grade:     sc.Grade,
			Status:    sc.Status,
			Note:      sc.Note,
			EnteredAt: sc.EnteredAt,
		}
		if u, ok := students[sc.Student]; ok {
			item.StudentID = u.StudentID
			item.StudentName = u.Name
		}
		if e, ok := exams[sc.Exam]; ok {
			item.ExamName = e.Name
			item.ExamCode = e.Code
			if e.Subject != nil {
				item.SubjectName = e.Subject.Name
			}
		}
		items = append(items, item)
	}
	return items, nil
}

func (s *ScoreService) UpdateStatus(ctx context.Context, caller *model.User, id primitive.ObjectID, req UpdateScoreStatusRequest) (*model.Score, error) {
	if err := validation.Struct(req); err != nil {
		return nil, err
	}
	if !model.IsValidScoreStatus(req.Status) {
		return nil, common.BadRequest("Trạng thái điểm không hợp lệ.")
	}
	score, err := s.scoreRepo.UpdateStatus(ctx, id, req.Status, caller.ID)
	if err != nil {
		return nil, orNotFound(err, MsgScoreNotFound)
	}
	return score, nil
}

func (s *ScoreService) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := s.scoreRepo.Delete(ctx, id); err != nil {
		return orNotFound(err, MsgScoreNotFound)
	}
	return nil
}

// CleanupOrphans deletes scores whose exam no longer exists. Scores written
// after the exam snapshot was taken are left for the next run.
func (s *ScoreService) CleanupOrphans(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC()
	ids, err := s.refs.exams.ListIDs(ctx)
	if err != nil {
		return 0, err
	}
	return s.scoreRepo.DeleteOrphans(ctx, ids, cutoff)
}

func (s *ScoreService) views(ctx context.Context, scores []model.Score) ([]ScoreView, error) {
	userIDs := make([]primitive.ObjectID, 0, 2*len(scores))
	examIDs := make([]primitive.ObjectID, 0, len(scores))
	for _, sc := range scores {
		userIDs = append(userIDs, sc.Student, sc.EnteredBy)
		examIDs = append(examIDs, sc.Exam)
	}
	users, err := s.refs.userMap(ctx, userIDs)
	if err != nil {
		return nil, err
	}
	exams, err := s.refs.examRefMap(ctx, examIDs)
	if err != nil {
		return nil, err
	}

	out := make([]ScoreView, 0, len(scores))
	for _, sc := range scores {
		out = append(out, ScoreView{
			Score:     sc,
			Student:   userRef(users, sc.Student),
			Exam:      exams[sc.Exam],
			EnteredBy: userRef(users, sc.EnteredBy),
		})
	}
	return out, nil
}
