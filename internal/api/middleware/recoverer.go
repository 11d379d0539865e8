package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"eduscore/internal/common"
)

// Recoverer turns a panic into a 500 envelope. The stack trace is logged and,
// unless showStack is false, returned to the client.
func Recoverer(showStack bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rvr := recover()
				if rvr == nil {
					return
				}
				if rvr == http.ErrAbortHandler {
					panic(rvr)
				}
				stack := debug.Stack()
				log.Printf("ERROR: panic serving %s %s: %v\n%s", r.Method, r.URL.Path, rvr, stack)

				body := common.Envelope{Success: false, Message: common.MsgServerError}
				if showStack {
					body.Stack = string(stack)
				}
				common.RespondWithJSON(w, http.StatusInternalServerError, body)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
