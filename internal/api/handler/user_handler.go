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

type UserHandler struct {
	userService *service.UserService
}

func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	r.Use(auth.Protect, middleware.Authorize(model.RoleAdmin))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

func (h *UserHandler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.userService.List(r.Context(), repository.UserFilter{
		Role:     q.Get("role"),
		IsActive: optionalBool(q.Get("isActive")),
		Search:   q.Get("search"),
	})
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy danh sách người dùng.")
		return
	}
	common.RespondList(w, users, len(users))
}

func (h *UserHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	user, err := h.userService.Get(r.Context(), id)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông tin người dùng.")
		return
	}
	common.RespondData(w, http.StatusOK, "", user)
}

func (h *UserHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.userService.Create(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi tạo người dùng.")
		return
	}
	common.RespondData(w, http.StatusCreated, "Tạo người dùng thành công!", user)
}

func (h *UserHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var req service.UpdateUserRequest
	if !decode(w, r, &req) {
		return
	}
	user, err := h.userService.Update(r.Context(), id, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật người dùng.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật người dùng thành công!", user)
}

func (h *UserHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.userService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa người dùng.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Xóa người dùng thành công!")
}
