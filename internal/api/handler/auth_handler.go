package handler

import (
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/app/service"
	"eduscore/internal/common"

	"github.com/go-chi/chi/v5"
)

type AuthHandler struct {
	authService *service.AuthService
}

func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router, auth *middleware.Auth) {
	r.Post("/login", h.login)
	r.Post("/register", h.register)
	r.With(auth.Protect).Get("/me", h.me)
	r.With(auth.Protect).Put("/change-password", h.changePassword)
	r.With(auth.Protect).Put("/update-profile", h.updateProfile)
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi đăng nhập.")
		return
	}
	common.RespondData(w, http.StatusOK, "Đăng nhập thành công!", resp)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !decode(w, r, &req) {
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi đăng ký.")
		return
	}
	common.RespondData(w, http.StatusCreated, "Đăng ký thành công!", resp)
}

func (h *AuthHandler) me(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	common.RespondData(w, http.StatusOK, "", service.NewProfile(user))
}

func (h *AuthHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if !decode(w, r, &req) {
		return
	}
	if err := h.authService.ChangePassword(r.Context(), user, req); err != nil {
		common.RespondWithAppError(w, err, "Lỗi đổi mật khẩu.")
		return
	}
	common.RespondMessage(w, http.StatusOK, "Đổi mật khẩu thành công!")
}

func (h *AuthHandler) updateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := caller(w, r)
	if !ok {
		return
	}
	var req service.UpdateProfileRequest
	if !decode(w, r, &req) {
		return
	}
	profile, err := h.authService.UpdateProfile(r.Context(), user, req)
	if err != nil {
		common.RespondWithAppError(w, err, "Lỗi cập nhật thông tin.")
		return
	}
	common.RespondData(w, http.StatusOK, "Cập nhật thông tin thành công!", profile)
}
