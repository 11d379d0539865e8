package handler

import (
	"fmt"
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"
	"eduscore/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ClassHandler struct {
	classService *service.ClassService
}

func NewClassHandler(classService *service.ClassService) *ClassHandler {
	return &ClassHandler{classService: classService}
}

func (h *ClassHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	admin := middleware.Authorize(model.RoleAdmin)
	student := middleware.Authorize(model.RoleStudent)

	r.Use(auth.Protect)
	r.Get("/", h.list)
	r.Get("/teacher/{teacherId}", h.listByTeacher)
	r.Get("/student/{studentId}", h.listByStudent)
	r.Get("/{id}", h.get)
	r.With(admin).Post("/", h.create)
	r.With(admin).Put("/{id}", h.update)
	r.With(admin).Delete("/{id}", h.delete)
	r.With(admin).Post("/{id}/students", h.addStudents)
	r.With(admin).Delete("/{id}/students/{studentId}", h.removeStudent)
	r.With(admin).Post("/{id}/exams", h.attachExam)
	r.With(student).Post("/{id}/join", h.join)
	r.With(student).Post("/{id}/leave", h.leave)
}

func (h *ClassHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	classes, err := h.classService.List(r.Context(), service.ClassQuery{
		Subject:      q.Get("subject"),
		Teacher:      q.Get("teacher"),
		Semester:     q.Get("semester"),
		AcademicYear: q.Get("academicYear"),
		Search:       q.Get("search"),
	})
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách lớp học.")
		return
	}
	common.RespondList(w, classes, len(classes))
}

func (h *ClassHandler) listByTeacher(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "teacherId")
	if !ok {
		return
	}
	classes, err := h.classService.ListByTeacher(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách lớp học.")
		return
	}
	common.RespondList(w, classes, len(classes))
}

func (h *ClassHandler) listByStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "studentId")
	if !ok {
		return
	}
	classes, err := h.classService.ListByStudent(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách lớp học.")
		return
	}
	common.RespondList(w, classes, len(classes))
}

func (h *ClassHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	class, err := h.classService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông tin lớp học.")
		return
	}
	common.RespondData(w, http.StatusOK, "", class)
}

func (h *ClassHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateClassRequest
	if !decode(w, r, &req) {
		return
	}
	class, err := h.classService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi tạo lớp học.")
		return
	}
	common.RespondData(w, http.StatusCreated, "Tạo lớp học thành công.", class)
}

func (h *ClassHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateClassRequest
	if !decode(w, r, &req) {
		return
	}
	class, err := h.classService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật lớp học.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật lớp học thành công.", class)
}

func (h *ClassHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.classService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa lớp học.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Xóa lớp học thành công.")
}

func (h *ClassHandler) addStudents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.AddStudentsRequest
	if !decode(w, r, &req) {
		return
	}
	class, added, err := h.classService.AddStudents(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi thêm sinh viên.")
		return
	}
	common.RespondData(w, http.StatusOK, fmt.Sprintf("Đã thêm %d sinh viên vào lớp.", added), class)
}

func (h *ClassHandler) removeStudent(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	studentID, ok := pathID(w, r, "studentId")
	if !ok {
		return
	}
	class, err := h.classService.RemoveStudent(r.Context(), id, studentID)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa sinh viên khỏi lớp.")
		return
	}
	common.RespondData(w, http.StatusOK, "Đã xóa sinh viên khỏi lớp.", class)
}

func (h *ClassHandler) attachExam(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.AttachExamRequest
	if !decode(w, r, &req) {
		return
	}
	class, err := h.classService.AttachExam(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi thêm kỳ thi vào lớp.")
		return
	}
	common.RespondData(w, http.StatusOK, "Đã thêm kỳ thi vào lớp.", class)
}

func (h *ClassHandler) join(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.JoinClassRequest
	if !decode(w, r, &req) {
		return
	}
	class, err := h.classService.Join(r.Context(), user, id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi tham gia lớp.")
		return
	}
	common.RespondData(w, http.StatusOK, "Tham gia lớp thành công!", class)
}

func (h *ClassHandler) leave(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.classService.Leave(r.Context(), user, id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi rời lớp.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Rời khỏi lớp thành công!")
}
