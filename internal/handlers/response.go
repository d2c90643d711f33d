package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError renders an engine error using its kind. Database and
// server failures keep their detail out of the response body; the engine
// has already logged them.
func writeServiceError(w http.ResponseWriter, err error) {
	kind := services.KindOf(err)
	status := statusForKind(kind)

	message := "Internal server error"
	var fe *services.FriendshipError
	if status < http.StatusInternalServerError && errors.As(err, &fe) {
		message = fe.Message
	}
	writeJSON(w, status, ErrorResponse{Error: message, Code: string(kind)})
}

func statusForKind(kind services.ErrorKind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
