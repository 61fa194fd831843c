package middleware

import (
	"net/http"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/logging"
	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

// Recover turns a handler panic into the generic 500 body and records the
// stack in the exceptions log.
func Recover(files *logging.Files) func(http.Handler) http.Handler {
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

				files.Panic(r.Method+" "+r.URL.Path+" request_id="+GetRequestID(r.Context()), rvr)
				if r.Header.Get("Connection") != "Upgrade" {
					writeError(w, http.StatusInternalServerError, models.MsgAnalysisFailed)
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}
