package handler

import (
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"github.com/go-chi/chi/v5"
)

type SubjectHandler struct {
	subjectService *service.SubjectService
}

func NewSubjectHandler(subjectService *service.SubjectService) *SubjectHandler {
	return &SubjectHandler{subjectService: subjectService}
}

func (h *SubjectHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	admin := middleware.Authorize(model.RoleAdmin)

	r.Use(auth.Protect)
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.With(admin).Post("/", h.create)
	r.With(admin).Put("/{id}", h.update)
	r.With(admin).Delete("/{id}", h.delete)
}

func (h *SubjectHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	subjects, err := h.subjectService.List(r.Context(), repository.SubjectFilter{
		IsActive: optionalBool(q.Get("isActive")),
		Search:   q.Get("search"),
	})
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách môn thi.")
		return
	}
	common.RespondList(w, subjects, len(subjects))
}

func (h *SubjectHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	subject, err := h.subjectService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông tin môn thi.")
		return
	}
	common.RespondData(w, http.StatusOK, "", subject)
}

func (h *SubjectHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateSubjectRequest
	if !decode(w, r, &req) {
		return
	}
	subject, err := h.subjectService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi tạo môn thi.")
		return
	}
	common.RespondData(w, http.StatusCreated, "Tạo môn thi thành công!", subject)
}

func (h *SubjectHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateSubjectRequest
	if !decode(w, r, &req) {
		return
	}
	subject, err := h.subjectService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật môn thi.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật môn thi thành công!", subject)
}

func (h *SubjectHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.subjectService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa môn thi.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Xóa môn thi thành công!")
}
