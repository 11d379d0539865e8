package handler

import (
	"encoding/json"
	"net/http"

	"eduscore/internal/api/middleware"
	"eduscore/internal/common"
	"eduscore/internal/domain/model"
	"eduscore/internal/domain/repository"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const msgInvalidPayload = "Dữ liệu gửi lên không hợp lệ."

// decode reads the JSON body into v and answers 400 when it is malformed.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.RespondWithError(w, http.StatusBadRequest, msgInvalidPayload)
		return false
	}
	return true
}

// pathID parses the named URL parameter as an ObjectID.
func pathID(w http.ResponseWriter, r *http.Request, name string) (primitive.ObjectID, bool) {
	id, err := repository.ParseID(chi.URLParam(r, name))
	if err != nil {
		common.RespondWithAppError(w, err, common.MsgServerError)
		return id, false
	}
	return id, true
}

// caller returns the authenticated user. Routes using it sit behind Protect.
func caller(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		common.RespondWithError(w, http.StatusUnauthorized, middleware.MsgNoToken)
	}
	return user, ok
}

func optionalBool(s string) *bool {
	switch s {
	case "true":
		v := true
		return &v
	case "false":
		v := false
		return &v
	}
	return nil
}
