package common

import (
	"encoding/json"
	"log"
	"net/http"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Stack   string      `json:"stack,omitempty"`
}

const MsgServerError = "Lỗi server."

func RespondWithError(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Success: false, Message: message})
}

// RespondWithAppError writes err using its mapped status and message. Errors
// without a client-facing message are logged and reported with fallback.
func RespondWithAppError(w http.ResponseWriter, err error, fallback string) {
	code := HTTPStatusFromError(err)
	if code == http.StatusInternalServerError {
		log.Printf("ERROR: %s: %v", fallback, err)
	}
	RespondWithError(w, code, MessageFromError(err, fallback))
}

func RespondMessage(w http.ResponseWriter, code int, message string) {
	RespondWithJSON(w, code, Envelope{Success: true, Message: message})
}

func RespondData(w http.ResponseWriter, code int, message string, data interface{}) {
	RespondWithJSON(w, code, Envelope{Success: true, Message: message, Data: data})
}

func RespondList(w http.ResponseWriter, data interface{}, count int) {
	RespondWithJSON(w, http.StatusOK, Envelope{Success: true, Data: data, Count: &count})
}

func RespondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success":false,"message":"Lỗi server."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
