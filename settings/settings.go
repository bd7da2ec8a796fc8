package settings

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Store store.SettingsStore
}

// Validate normalizes s in place and rejects unknown formats, languages and zones.
func Validate(s *models.ExportSettings) error {
	s.GroceryListName = strings.TrimSpace(s.GroceryListName)
	s.ScheduleListName = strings.TrimSpace(s.ScheduleListName)
	s.GroceryFormat = strings.ToLower(s.GroceryFormat)
	s.ScheduleFormat = strings.ToLower(s.ScheduleFormat)

	switch s.GroceryFormat {
	case "":
		s.GroceryFormat = models.FormatText
	case models.FormatText, models.FormatJSON, models.FormatPDF:
	default:
		return errs.Invalid("groceryFormat", "unsupported format %q", s.GroceryFormat)
	}
	switch s.ScheduleFormat {
	case "":
		s.ScheduleFormat = models.FormatText
	case models.FormatText, models.FormatJSON:
	default:
		return errs.Invalid("scheduleFormat", "unsupported format %q", s.ScheduleFormat)
	}
	switch s.Language {
	case "":
		s.Language = "zh"
	case "zh", "en":
	default:
		return errs.Invalid("language", "unsupported language %q", s.Language)
	}
	if s.TimeZone == "" {
		s.TimeZone = "UTC"
	}
	if _, err := time.LoadLocation(s.TimeZone); err != nil {
		return errs.Invalid("timeZone", "unknown time zone %q", s.TimeZone)
	}
	return nil
}

// GET /api/settings/export
func (h *Handlers) GetExportSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	s, err := h.Store.GetExportSettings(ctx)
	if err != nil {
		utils.RespondWithAppError(w, "load settings", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, s)
}

// PUT /api/settings/export
func (h *Handlers) UpdateExportSettings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var s models.ExportSettings
	if err := json.NewDecoder(r.Body).Decode(&s); err != nil {
		utils.RespondWithAppError(w, "save settings", errs.Invalid("", "Invalid request payload"))
		return
	}
	if err := Validate(&s); err != nil {
		utils.RespondWithAppError(w, "save settings", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Store.SaveExportSettings(ctx, s); err != nil {
		utils.RespondWithAppError(w, "save settings", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, s)
}
