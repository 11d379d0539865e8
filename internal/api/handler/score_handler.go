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

type ScoreHandler struct {
	scoreService *service.ScoreService
}

func NewScoreHandler(scoreService *service.ScoreService) *ScoreHandler {
	return &ScoreHandler{scoreService: scoreService}
}

func (h *ScoreHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	admin := middleware.Authorize(model.RoleAdmin)
	staff := middleware.Authorize(model.RoleAdmin, model.RoleTeacher)

	r.Use(auth.Protect)
	r.With(staff).Post("/", h.upsert)
	r.With(staff).Post("/import", h.importScores)
	r.With(staff).Get("/exam/{examId}", h.listByExam)
	r.With(staff).Get("/exam/{examId}/students", h.examStudents)
	r.With(staff).Get("/student/{studentId}", h.listByStudent)
	r.With(middleware.Authorize(model.RoleStudent)).Get("/my-scores", h.myScores)
	r.With(middleware.Authorize(model.RoleStudent)).Get("/my-exams", h.myExams)
	r.With(middleware.Authorize(model.RoleTeacher)).Get("/my-history", h.myHistory)
	r.With(admin).Put("/{id}/status", h.updateStatus)
	r.With(admin).Delete("/cleanup-orphans", h.cleanupOrphans)
	r.With(admin).Delete("/{id}", h.delete)
}

func (h *ScoreHandler) upsert(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.UpsertScoreRequest
	if !decode(w, r, &req) {
		return
	}
	score, created, err := h.scoreService.Upsert(r.Context(), user, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi nhập điểm.")
		return
	}
	if created {
		common.RespondData(w, http.StatusCreated, "Nhập điểm thành công!", score)
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật điểm thành công!", score)
}

func (h *ScoreHandler) importScores(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.ImportScoresRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.scoreService.Import(r.Context(), user, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi import điểm.")
		return
	}
	msg := fmt.Sprintf("Import hoàn tất: %d thành công, %d thất bại.", res.Success, res.Failed)
	common.RespondData(w, http.StatusOK, msg, res)
}

func (h *ScoreHandler) listByExam(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "examId")
	if !ok {
		return
	}
	scores, err := h.scoreService.ListByExam(r.Context(), examID)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách điểm.")
		return
	}
	common.RespondList(w, scores, len(scores))
}

func (h *ScoreHandler) examStudents(w http.ResponseWriter, r *http.Request) {
	examID, ok := pathID(w, r, "examId")
	if !ok {
		return
	}
	res, err := h.scoreService.ExamStudents(r.Context(), examID)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách sinh viên.")
		return
	}
	common.RespondData(w, http.StatusOK, "", res)
}

func (h *ScoreHandler) listByStudent(w http.ResponseWriter, r *http.Request) {
	scores, err := h.scoreService.ListByStudent(r.Context(), chi.URLParam(r, "studentId"))
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy điểm sinh viên.")
		return
	}
	common.RespondList(w, scores, len(scores))
}

func (h *ScoreHandler) myScores(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	scores, err := h.scoreService.MyScores(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy điểm.")
		return
	}
	common.RespondList(w, scores, len(scores))
}

func (h *ScoreHandler) myExams(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.scoreService.MyExams(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách kỳ thi.")
		return
	}
	common.RespondList(w, items, len(items))
}

func (h *ScoreHandler) myHistory(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.scoreService.MyHistory(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy lịch sử nhập điểm.")
		return
	}
	common.RespondList(w, items, len(items))
}

func (h *ScoreHandler) updateStatus(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateScoreStatusRequest
	if !decode(w, r, &req) {
		return
	}
	score, err := h.scoreService.UpdateStatus(r.Context(), user, id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật trạng thái điểm.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật trạng thái điểm thành công!", score)
}

func (h *ScoreHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.scoreService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa điểm.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Xóa điểm thành công!")
}

func (h *ScoreHandler) cleanupOrphans(w http.ResponseWriter, r *http.Request) {
	n, err := h.scoreService.CleanupOrphans(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi dọn dẹp điểm.")
		return
	}
	common.RespondData(w, http.StatusOK, fmt.Sprintf("Đã xóa %d điểm orphan.", n), map[string]int64{"deletedCount": n})
}
