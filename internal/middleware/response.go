package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/zhuocheng6/ai-interview-analyzer/internal/models"
)

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: message})
}
