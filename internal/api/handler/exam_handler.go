package handler

import (
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"
	"eduscore/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type ExamHandler struct {
	examService *service.ExamService
}

func NewExamHandler(examService *service.ExamService) *ExamHandler {
	return &ExamHandler{examService: examService}
}

func (h *ExamHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	admin := middleware.Authorize(model.RoleAdmin)
	student := middleware.Authorize(model.RoleStudent)

	r.Get("/public", h.listPublic)

	r.Group(func(r chi.Router) {
		r.Use(auth.Protect)
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.With(admin).Post("/", h.create)
		r.With(admin).Put("/{id}", h.update)
		r.With(admin).Delete("/{id}", h.delete)
		r.With(admin).Get("/{id}/participants", h.participants)
		r.With(student).Post("/{id}/register", h.register)
		r.With(student).Delete("/{id}/register", h.unregister)
	})
}

func (h *ExamHandler) listPublic(w http.ResponseWriter, r *http.Request) {
	exams, err := h.examService.ListPublic(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách kỳ thi.")
		return
	}
	common.RespondList(w, exams, len(exams))
}

func (h *ExamHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	exams, err := h.examService.List(r.Context(), service.ExamQuery{
		Subject:  q.Get("subject"),
		Status:   q.Get("status"),
		Semester: q.Get("semester"),
		Search:   q.Get("search"),
	})
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách kỳ thi.")
		return
	}
	common.RespondList(w, exams, len(exams))
}

func (h *ExamHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	exam, err := h.examService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông tin kỳ thi.")
		return
	}
	common.RespondData(w, http.StatusOK, "", exam)
}

func (h *ExamHandler) create(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.CreateExamRequest
	if !decode(w, r, &req) {
		return
	}
	exam, err := h.examService.Create(r.Context(), user, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi tạo kỳ thi.")
		return
	}
	common.RespondData(w, http.StatusCreated, "Tạo kỳ thi thành công!", exam)
}

func (h *ExamHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateExamRequest
	if !decode(w, r, &req) {
		return
	}
	exam, err := h.examService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật kỳ thi.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật kỳ thi thành công!", exam)
}

func (h *ExamHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.examService.Delete(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa kỳ thi.")
		return
	}
	common.RespondData(w, http.StatusOK, "Xóa kỳ thi và điểm liên quan thành công!", res)
}

func (h *ExamHandler) register(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.examService.Register(r.Context(), id, user); err != nil {
		common.RespondWithAppError(w, err, "Lỗi đăng ký kỳ thi.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Đăng ký kỳ thi thành công!")
}

func (h *ExamHandler) unregister(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.examService.Unregister(r.Context(), id, user); err != nil {
		common.RespondWithAppError(w, err, "Lỗi hủy đăng ký kỳ thi.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Hủy đăng ký kỳ thi thành công!")
}

func (h *ExamHandler) participants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	users, err := h.examService.Participants(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách thí sinh.")
		return
	}
	common.RespondList(w, users, len(users))
}
