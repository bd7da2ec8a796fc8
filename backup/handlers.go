package backup

import (
	"context"
	"io"
	"net/http"
	"time"

	"lifeassistant/errs"
	"lifeassistant/store"
	"lifeassistant/utils"

	"github.com/julienschmidt/httprouter"
)

// MaxRestoreSize caps the restore request body.
const MaxRestoreSize = 10 << 20

type Handlers struct {
	Dishes store.DishStore
	Slots  store.SlotStore
	Now    func() time.Time
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// GET /api/backup
func (h *Handlers) Download(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	dishes, err := h.Dishes.ListDishes(ctx)
	if err != nil {
		utils.RespondWithAppError(w, "export backup", err)
		return
	}
	slots, err := h.Slots.ListSlots(ctx)
	if err != nil {
		utils.RespondWithAppError(w, "export backup", err)
		return
	}

	now := h.now()
	body, err := Marshal(Export(dishes, slots, now))
	if err != nil {
		utils.RespondWithAppError(w, "export backup", err)
		return
	}
	utils.SendAttachment(w, "application/json; charset=utf-8", utils.StampedFilename("lifeAssistant-backup", now, "2006-01-02", "json"), body)
}

// POST /api/backup/restore
func (h *Handlers) Restore(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRestoreSize))
	if err != nil {
		utils.RespondWithAppError(w, "restore backup", &errs.FormatError{Reason: "unreadable body", Err: err})
		return
	}
	snap, err := Import(raw)
	if err != nil {
		utils.RespondWithAppError(w, "restore backup", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	sum, err := RestoreMerge(ctx, snap, h.Dishes, h.Slots)
	if err != nil {
		utils.RespondWithAppError(w, "restore backup", err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, sum)
}
