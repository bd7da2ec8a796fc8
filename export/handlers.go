package export

import (
	"context"
	"net/http"
	"strings"
	"time"

	"lifeassistant/errs"
	"lifeassistant/grocery"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
)

const stampLayout = "20060102-150405"

type Handlers struct {
	Dishes   store.DishStore
	Slots    store.SlotStore
	Settings store.SettingsStore
	Now      func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

type request struct {
	start, end models.Date
	format     string
	listName   string
	settings   models.ExportSettings
	loc        *time.Location
	slots      []models.ScheduleSlot
	dishes     []models.Dish
}

// load resolves the query against the user's saved export defaults and reads the
// dishes and slots the export is built from.
func (h *Handlers) load(ctx context.Context, r *http.Request, forGrocery bool) (*request, error) {
	start, end, err := utils.ParseDateRange(r, true)
	if err != nil {
		return nil, err
	}
	settings, err := h.Settings.GetExportSettings(ctx)
	if err != nil {
		return nil, err
	}
	req := &request{start: start, end: end, settings: settings}

	q := r.URL.Query()
	req.format, req.listName = settings.ScheduleFormat, settings.ScheduleListName
	if forGrocery {
		req.format, req.listName = settings.GroceryFormat, settings.GroceryListName
	}
	if f := strings.ToLower(q.Get("format")); f != "" {
		req.format = f
	}
	if name := q.Get("listName"); name != "" {
		req.listName = name
	}

	req.loc, err = time.LoadLocation(settings.TimeZone)
	if err != nil {
		req.loc = time.UTC
	}
	if req.dishes, err = h.Dishes.ListDishes(ctx); err != nil {
		return nil, err
	}
	if req.slots, err = h.Slots.ListSlots(ctx); err != nil {
		return nil, err
	}
	return req, nil
}

// GET /api/grocery
func (h *Handlers) GetGroceryList(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := h.load(ctx, r, true)
	if err != nil {
		utils.RespondWithAppError(w, "build grocery list", err)
		return
	}
	items := grocery.Aggregate(req.slots, req.dishes, req.start, req.end)
	if items == nil {
		items = []models.AggregatedIngredient{}
	}
	utils.RespondWithJSON(w, http.StatusOK, items)
}

// GET /api/export/grocery
func (h *Handlers) ExportGrocery(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := h.load(ctx, r, true)
	if err != nil {
		utils.RespondWithAppError(w, "export grocery list", err)
		return
	}
	now := h.now().In(req.loc)
	items := grocery.Aggregate(req.slots, req.dishes, req.start, req.end)

	var (
		body        []byte
		contentType string
	)
	switch req.format {
	case models.FormatText:
		body, contentType = GroceryText(items, req.start, req.end, now), "text/plain; charset=utf-8"
	case models.FormatJSON:
		body, err = GroceryJSON(items, req.listName)
		contentType = "application/json; charset=utf-8"
	case models.FormatPDF:
		body, err = GroceryPDF(items, req.start, req.end, now)
		contentType = "application/pdf"
	default:
		err = errs.Invalid("format", "unsupported format %q", req.format)
	}
	if err != nil {
		utils.RespondWithAppError(w, "export grocery list", err)
		return
	}
	utils.SendAttachment(w, contentType, utils.StampedFilename("grocery-list", now, stampLayout, req.format), body)
}

// GET /api/export/schedule
func (h *Handlers) ExportSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	req, err := h.load(ctx, r, false)
	if err != nil {
		utils.RespondWithAppError(w, "export scheduled dishes", err)
		return
	}
	now := h.now().In(req.loc)
	entries := ScheduledDishes(req.slots, req.dishes, req.start, req.end, LocaleFor(req.settings.Language), req.loc)

	var (
		body        []byte
		contentType string
	)
	switch req.format {
	case models.FormatText:
		body, contentType = ScheduleText(entries, req.start, req.end, now), "text/plain; charset=utf-8"
	case models.FormatJSON:
		body, err = ScheduleJSON(entries, req.listName)
		contentType = "application/json; charset=utf-8"
	default:
		err = errs.Invalid("format", "unsupported format %q", req.format)
	}
	if err != nil {
		utils.RespondWithAppError(w, "export scheduled dishes", err)
		return
	}
	utils.SendAttachment(w, contentType, utils.StampedFilename("scheduled-dishes", now, stampLayout, req.format), body)
}
