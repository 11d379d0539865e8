package handler

import (
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"
	"eduscore/internal/domain/model"

	"github.com/go-chi/chi/v5"
)

type NotificationHandler struct {
	notificationService *service.NotificationService
}

func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService}
}

func (h *NotificationHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	admin := middleware.Authorize(model.RoleAdmin)

	r.Get("/", h.listPublic)
	r.Group(func(r chi.Router) {
		r.Use(auth.Protect)
		r.Get("/my", h.listMine)
		r.Get("/unread-count", h.unreadCount)
		r.Put("/read-all", h.markAllRead)
		r.Put("/{id}/read", h.markRead)
		r.With(admin).Post("/", h.create)
		r.With(admin).Delete("/{id}", h.delete)
	})
}

func (h *NotificationHandler) listPublic(w http.ResponseWriter, r *http.Request) {
	items, err := h.notificationService.ListPublic(r.Context())
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông báo.")
		return
	}
	common.RespondList(w, items, len(items))
}

func (h *NotificationHandler) listMine(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	items, err := h.notificationService.ListMine(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi lấy thông báo.")
		return
	}
	common.RespondList(w, items, len(items))
}

func (h *NotificationHandler) unreadCount(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	n, err := h.notificationService.UnreadCount(r.Context(), user)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi đếm thông báo.")
		return
	}
	common.RespondData(w, http.StatusOK, "", map[string]int64{"count": n})
}

func (h *NotificationHandler) markRead(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notificationService.MarkRead(r.Context(), user, id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi đánh dấu thông báo.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Đã đánh dấu đã đọc.")
}

func (h *NotificationHandler) markAllRead(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	if _, err := h.notificationService.MarkAllRead(r.Context(), user); err != nil {
		common.RespondWithAppError(w, err, "Lỗi đánh dấu thông báo.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Đã đánh dấu tất cả đã đọc.")
}

func (h *NotificationHandler) create(w http.ResponseWriter, r *http.Request) {
	var req service.CreateNotificationRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.notificationService.Create(r.Context(), req); err != nil {
		common.RespondWithAppError(w, err, "Lỗi tạo thông báo.")
		return
	}
	common.RespondMessage(w, http.StatusCreated, "Đã tạo thông báo.")
}

func (h *NotificationHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.notificationService.Delete(r.Context(), id); err != nil {
		common.RespondWithAppError(w, err, "Lỗi xóa thông báo.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Đã xóa thông báo.")
}
