package apperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

// Write maps an error to its HTTP status and a JSON body. Unclassified
// errors become 500 with a generic message so internals don't leak.
func Write(w http.ResponseWriter, err error) {
	var (
		ve *ValidationError
		ce *ConflictError
		ne *NotFoundError
	)
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		writeJSON(w, http.StatusConflict, ce.Error())
	case errors.As(err, &ne):
		writeJSON(w, http.StatusNotFound, ne.Error())
	default:
		writeJSON(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
