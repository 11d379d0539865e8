package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"eduscore/internal/common"
	"eduscore/internal/common/security"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"github.com/go-chi/jwtauth/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const UserCtxKey contextKey = "user"

const (
	MsgNoToken      = "Không có quyền truy cập. Vui lòng đăng nhập."
	MsgTokenExpired = "Token đã hết hạn."
	MsgTokenInvalid = "Token không hợp lệ."
	MsgUserMissing  = "Người dùng không tồn tại."
	MsgUserInactive = "Tài khoản đã bị vô hiệu hóa."
)

// Auth authenticates requests with a bearer token and reloads the caller.
type Auth struct {
	tokens *jwtauth.JWTAuth
	users  repository.UserRepository
}

func NewAuth(tokens *security.TokenManager, users repository.UserRepository) *Auth {
	return &Auth{tokens: tokens.Auth(), users: users}
}

// Protect requires a valid token for an existing, active user. The user is
// stored in the request context.
func (a *Auth) Protect(next http.Handler) http.Handler {
	return jwtauth.Verifier(a.tokens)(a.authenticate(next))
}

func (a *Auth) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		switch {
		case errors.Is(err, jwtauth.ErrNoTokenFound):
			common.RespondWithError(w, http.StatusUnauthorized, MsgNoToken)
			return
		case errors.Is(err, jwtauth.ErrExpired):
			common.RespondWithError(w, http.StatusUnauthorized, MsgTokenExpired)
			return
		case err != nil || token == nil:
			common.RespondWithError(w, http.StatusUnauthorized, MsgTokenInvalid)
			return
		}

		userID, err := security.GetUserIDFromClaims(claims)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, MsgTokenInvalid)
			return
		}
		id, err := primitive.ObjectIDFromHex(userID)
		if err != nil {
			common.RespondWithError(w, http.StatusUnauthorized, MsgTokenInvalid)
			return
		}

		user, err := a.users.FindByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				common.RespondWithError(w, http.StatusUnauthorized, MsgUserMissing)
				return
			}
			common.RespondWithAppError(w, err, common.MsgServerError)
			return
		}
		if !user.IsActive {
			common.RespondWithError(w, http.StatusUnauthorized, MsgUserInactive)
			return
		}

		ctx := context.WithValue(r.Context(), UserCtxKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Authorize allows only the given roles. It must run after Protect.
func Authorize(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, ok := UserFromContext(r.Context())
			if !ok {
				common.RespondWithError(w, http.StatusUnauthorized, MsgNoToken)
				return
			}
			for _, role := range roles {
				if user.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			common.RespondWithAppError(w, common.Forbidden(fmt.Sprintf("Vai trò %s không có quyền truy cập.", user.Role)), common.MsgServerError)
		})
	}
}

// UserFromContext returns the caller loaded by Protect.
func UserFromContext(ctx context.Context) (*model.User, bool) {
	user, ok := ctx.Value(UserCtxKey).(*model.User)
	return user, ok && user != nil
}
