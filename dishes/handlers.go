package dishes

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Catalog *Catalog
}

// GET /api/dishes
func (h *Handlers) GetDishes(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dishes, err := h.Catalog.List(ctx)
	if err != nil {
		utils.RespondWithAppError(w, "fetch dishes", err)
		return
	}
	if dishes == nil {
		dishes = []models.Dish{}
	}
	utils.RespondWithJSON(w, http.StatusOK, dishes)
}

// POST /api/dishes
func (h *Handlers) CreateDish(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var dish models.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		utils.RespondWithAppError(w, "add dish", errs.Invalid("", "Invalid request payload"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	created, err := h.Catalog.Create(ctx, dish)
	if err != nil {
		utils.RespondWithAppError(w, "add dish", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, created)
}

// PUT /api/dishes/:id
func (h *Handlers) UpdateDish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var dish models.Dish
	if err := json.NewDecoder(r.Body).Decode(&dish); err != nil {
		utils.RespondWithAppError(w, "update dish", errs.Invalid("", "Invalid request payload"))
		return
	}
	dish.ID = ps.ByName("id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	updated, err := h.Catalog.Update(ctx, dish)
	if err != nil {
		utils.RespondWithAppError(w, "update dish", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, updated)
}

// DELETE /api/dishes/:id
func (h *Handlers) DeleteDish(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	if err := h.Catalog.Delete(ctx, ps.ByName("id")); err != nil {
		utils.RespondWithAppError(w, "delete dish", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
