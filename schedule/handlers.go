package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Planner *Planner
}

type placeRequest struct {
	Date     models.Date     `json:"date"`
	MealType models.MealType `json:"mealType"`
	DishID   string          `json:"dishId"`
	Servings int             `json:"servings"`
}

type moveRequest struct {
	From struct {
		Date     models.Date     `json:"date"`
		MealType models.MealType `json:"mealType"`
		Index    int             `json:"index"`
	} `json:"from"`
	To models.SlotKey `json:"to"`
}

type mealTypeRequest struct {
	Date         models.Date     `json:"date"`
	FromMealType models.MealType `json:"fromMealType"`
	ToMealType   models.MealType `json:"toMealType"`
	DishID       string          `json:"dishId"`
}

type servingsRequest struct {
	Date     models.Date     `json:"date"`
	MealType models.MealType `json:"mealType"`
	DishID   string          `json:"dishId"`
	Delta    int             `json:"delta"`
}

func decode(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.Invalid("", "Invalid request payload")
	}
	return nil
}

// GET /api/schedule
func (h *Handlers) GetSchedule(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	start, end, err := utils.ParseDateRange(r, false)
	if err != nil {
		utils.RespondWithAppError(w, "fetch schedule", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	slots, err := h.Planner.Slots(ctx, start, end)
	if err != nil {
		utils.RespondWithAppError(w, "fetch schedule", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, slots)
}

// POST /api/schedule/place
func (h *Handlers) PlaceDish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req placeRequest
	if err := decode(r, &req); err != nil {
		utils.RespondWithAppError(w, "update schedule", err)
		return
	}
	if req.Servings == 0 {
		req.Servings = 1
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	slot, err := h.Planner.PlaceDish(ctx, models.SlotKey{Date: req.Date, MealType: req.MealType}, req.DishID, req.Servings)
	if err != nil {
		utils.RespondWithAppError(w, "update schedule", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, slot)
}

// POST /api/schedule/move
func (h *Handlers) MoveDish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req moveRequest
	if err := decode(r, &req); err != nil {
		utils.RespondWithAppError(w, "update schedule", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	from := models.SlotKey{Date: req.From.Date, MealType: req.From.MealType}
	if err := h.Planner.MoveDish(ctx, from, req.From.Index, req.To); err != nil {
		utils.RespondWithAppError(w, "update schedule", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "moved"})
}

// POST /api/schedule/meal-type
func (h *Handlers) ChangeMealType(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req mealTypeRequest
	if err := decode(r, &req); err != nil {
		utils.RespondWithAppError(w, "change meal type", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Planner.ChangeMealType(ctx, req.Date, req.FromMealType, req.ToMealType, req.DishID); err != nil {
		utils.RespondWithAppError(w, "change meal type", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// POST /api/schedule/servings
func (h *Handlers) UpdateServings(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req servingsRequest
	if err := decode(r, &req); err != nil {
		utils.RespondWithAppError(w, "update servings", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	servings, err := h.Planner.UpdateServings(ctx, models.SlotKey{Date: req.Date, MealType: req.MealType}, req.DishID, req.Delta)
	if err != nil {
		utils.RespondWithAppError(w, "update servings", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]int{"servings": servings})
}

// DELETE /api/schedule/:date/:meal/:index
func (h *Handlers) RemoveAt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	index, err := strconv.Atoi(ps.ByName("index"))
	if err != nil {
		utils.RespondWithAppError(w, "remove dish", errs.Invalid("index", "must be a number"))
		return
	}
	key := models.SlotKey{Date: models.Date(ps.ByName("date")), MealType: models.MealType(ps.ByName("meal"))}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if err := h.Planner.RemoveAt(ctx, key, index); err != nil {
		utils.RespondWithAppError(w, "remove dish", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
