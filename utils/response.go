package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"lifeassistant/errs"
)

func RespondWithError(w http.ResponseWriter, code int, msg string) {
	RespondWithJSON(w, code, map[string]string{"error": msg})
}

// Sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

// StatusFor maps an application error onto an HTTP status code.
func StatusFor(err error) int {
	switch {
	case errs.IsValidation(err), errs.IsFormat(err):
		return http.StatusBadRequest
	case errors.Is(err, errs.ErrNotAuthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, errs.ErrSlotTaken), errors.Is(err, errs.ErrConflict):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// RespondWithAppError writes "Failed to <action>: <cause>" with the status of err.
func RespondWithAppError(w http.ResponseWriter, action string, err error) {
	var ae *errs.ActionError
	if !errors.As(err, &ae) {
		err = errs.Action(action, err)
	}
	RespondWithError(w, StatusFor(err), err.Error())
}

// SendAttachment writes body as a downloadable file.
func SendAttachment(w http.ResponseWriter, contentType, filename string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// StampedFilename builds "<prefix>-<stamp>.<ext>" with stamp rendered from t.
func StampedFilename(prefix string, t time.Time, layout, ext string) string {
	return prefix + "-" + t.Format(layout) + "." + strings.TrimPrefix(ext, ".")
}
