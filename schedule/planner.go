package schedule

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"

	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"
)

// Planner applies dish placements to the schedule. Every operation is a
// read-modify-write against the slot store, serialized per user within this
// process. Writes are conditional on the revision that was read, so a slot
// written by another instance in between is read again and the edit redone.
//
// Placement policy: a dish dropped into an occupied slot is always appended as a
// new item, even if the slot already holds the same dish. Placing, moving and
// changing the meal type all go through the same path.
type Planner struct {
	dishes store.DishStore
	slots  store.SlotStore
	newID  func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewPlanner(dishes store.DishStore, slots store.SlotStore) *Planner {
	return &Planner{
		dishes: dishes,
		slots:  slots,
		newID:  utils.GetUUID,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lock serializes the mutations of one user.
func (p *Planner) lock(ctx context.Context) (func(), error) {
	uid, err := store.RequireUser(ctx)
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	l, ok := p.locks[uid]
	if !ok {
		l = &sync.Mutex{}
		p.locks[uid] = l
	}
	p.mu.Unlock()

	l.Lock()
	return l.Unlock, nil
}

// Slots lists the slots whose date lies in [start, end], ordered by date and
// then by meal type. Empty bounds are open.
func (p *Planner) Slots(ctx context.Context, start, end models.Date) ([]models.ScheduleSlot, error) {
	all, err := p.slots.ListSlots(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]models.ScheduleSlot, 0, len(all))
	for _, s := range all {
		if start != "" && s.Date < start {
			continue
		}
		if end != "" && s.Date > end {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return mealRank[out[i].MealType] < mealRank[out[j].MealType]
	})
	return out, nil
}

var mealRank = map[models.MealType]int{
	models.Breakfast: 0,
	models.Lunch:     1,
	models.Dinner:    2,
	models.Others:    3,
}

// PlaceDish drops a dish into the slot at key, creating the slot when needed.
func (p *Planner) PlaceDish(ctx context.Context, key models.SlotKey, dishID string, servings int) (models.ScheduleSlot, error) {
	if err := key.Validate(); err != nil {
		return models.ScheduleSlot{}, errs.Invalid("slot", "%v", err)
	}
	if dishID == "" {
		return models.ScheduleSlot{}, errs.Invalid("dishId", "is required")
	}
	if servings < 1 {
		return models.ScheduleSlot{}, errs.Invalid("servings", "must be at least 1, got %d", servings)
	}

	unlock, err := p.lock(ctx)
	if err != nil {
		return models.ScheduleSlot{}, err
	}
	defer unlock()

	// checked under the lock so a concurrent DeleteDish cannot slip in between
	if _, err := p.dishes.GetDish(ctx, dishID); err != nil {
		return models.ScheduleSlot{}, fmt.Errorf("dish %s: %w", dishID, err)
	}
	return p.place(ctx, key, models.SlotItem{DishID: dishID, Servings: servings})
}

// maxAttempts bounds how often a write that lost to another writer is redone.
const maxAttempts = 5

// place appends item to the slot at key or creates that slot.
func (p *Planner) place(ctx context.Context, key models.SlotKey, item models.SlotItem) (models.ScheduleSlot, error) {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		slot, err := p.slots.FindSlot(ctx, key)
		switch {
		case errors.Is(err, errs.ErrNotFound):
			created, err := p.slots.InsertSlot(ctx, models.ScheduleSlot{
				ID:       p.newID(),
				Date:     key.Date,
				MealType: key.MealType,
				Items:    []models.SlotItem{item},
			})
			if errors.Is(err, errs.ErrSlotTaken) {
				continue
			}
			return created, err
		case err != nil:
			return models.ScheduleSlot{}, err
		}

		slot.Items = append(slot.Items, item)
		err = p.slots.UpdateSlot(ctx, slot)
		if errors.Is(err, errs.ErrConflict) {
			continue
		}
		if err != nil {
			return models.ScheduleSlot{}, err
		}
		return slot, nil
	}
	return models.ScheduleSlot{}, fmt.Errorf("slot %s: %w", key, errs.ErrConflict)
}

// modify applies edit to a fresh read of the slot at key and writes it back,
// deleting the slot once no items are left.
func (p *Planner) modify(ctx context.Context, key models.SlotKey, edit func(slot *models.ScheduleSlot) error) error {
	for attempt := 0; attempt < maxAttempts; attempt++ {
		slot, err := p.findSlot(ctx, key)
		if err != nil {
			return err
		}
		if err := edit(&slot); err != nil {
			return err
		}
		if len(slot.Items) == 0 {
			err = p.slots.DeleteSlot(ctx, slot)
		} else {
			err = p.slots.UpdateSlot(ctx, slot)
		}
		if !errors.Is(err, errs.ErrConflict) {
			return err
		}
	}
	return fmt.Errorf("slot %s: %w", key, errs.ErrConflict)
}

func (p *Planner) findSlot(ctx context.Context, key models.SlotKey) (models.ScheduleSlot, error) {
	slot, err := p.slots.FindSlot(ctx, key)
	if err != nil {
		return models.ScheduleSlot{}, fmt.Errorf("slot %s: %w", key, err)
	}
	return slot, nil
}

func checkIndex(slot models.ScheduleSlot, index int) error {
	if index < 0 || index >= len(slot.Items) {
		return errs.Invalid("index", "%d out of range for slot %s with %d items", index, slot.Key(), len(slot.Items))
	}
	return nil
}

func firstDish(slot models.ScheduleSlot, dishID string) int {
	for i, it := range slot.Items {
		if it.DishID == dishID {
			return i
		}
	}
	return -1
}

// without returns items minus items[index] in a new slice.
func without(items []models.SlotItem, index int) []models.SlotItem {
	return append(items[:index:index], items[index+1:]...)
}

// MoveDish moves the item at index of the from slot into the to slot, keeping its
// servings. Dropping an item back on its own slot does nothing.
func (p *Planner) MoveDish(ctx context.Context, from models.SlotKey, index int, to models.SlotKey) error {
	if err := from.Validate(); err != nil {
		return errs.Invalid("from", "%v", err)
	}
	if err := to.Validate(); err != nil {
		return errs.Invalid("to", "%v", err)
	}
	if from == to {
		return nil
	}

	unlock, err := p.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var item models.SlotItem
	err = p.modify(ctx, from, func(slot *models.ScheduleSlot) error {
		if err := checkIndex(*slot, index); err != nil {
			return err
		}
		item = slot.Items[index]
		slot.Items = without(slot.Items, index)
		return nil
	})
	if err != nil {
		return err
	}
	_, err = p.place(ctx, to, item)
	return err
}

// ChangeMealType moves the first item of dishID on date from one meal to another.
func (p *Planner) ChangeMealType(ctx context.Context, date models.Date, from, to models.MealType, dishID string) error {
	src := models.SlotKey{Date: date, MealType: from}
	dst := models.SlotKey{Date: date, MealType: to}
	if err := src.Validate(); err != nil {
		return errs.Invalid("from", "%v", err)
	}
	if err := dst.Validate(); err != nil {
		return errs.Invalid("to", "%v", err)
	}
	if from == to {
		return nil
	}

	unlock, err := p.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	var item models.SlotItem
	err = p.modify(ctx, src, func(slot *models.ScheduleSlot) error {
		idx := firstDish(*slot, dishID)
		if idx < 0 {
			return fmt.Errorf("dish %s in slot %s: %w", dishID, src, errs.ErrNotFound)
		}
		item = slot.Items[idx]
		slot.Items = without(slot.Items, idx)
		return nil
	})
	if err != nil {
		return err
	}
	_, err = p.place(ctx, dst, item)
	return err
}

// UpdateServings adds delta to the servings of the first item of dishID at key,
// never going below one. It returns the new servings value.
func (p *Planner) UpdateServings(ctx context.Context, key models.SlotKey, dishID string, delta int) (int, error) {
	if err := key.Validate(); err != nil {
		return 0, errs.Invalid("slot", "%v", err)
	}

	unlock, err := p.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	servings := 0
	err = p.modify(ctx, key, func(slot *models.ScheduleSlot) error {
		idx := firstDish(*slot, dishID)
		if idx < 0 {
			return fmt.Errorf("dish %s in slot %s: %w", dishID, key, errs.ErrNotFound)
		}
		servings = max(1, slot.Items[idx].Servings+delta)
		slot.Items[idx].Servings = servings
		return nil
	})
	if err != nil {
		return 0, err
	}
	return servings, nil
}

// RemoveAt removes the item at index from the slot at key.
func (p *Planner) RemoveAt(ctx context.Context, key models.SlotKey, index int) error {
	if err := key.Validate(); err != nil {
		return errs.Invalid("slot", "%v", err)
	}

	unlock, err := p.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	return p.modify(ctx, key, func(slot *models.ScheduleSlot) error {
		if err := checkIndex(*slot, index); err != nil {
			return err
		}
		slot.Items = without(slot.Items, index)
		return nil
	})
}

// DeleteDish strips every placement of dishID from the whole schedule and deletes
// the slots left empty. When remove is set it runs afterwards, still under the
// lock, so no placement of the dish can land in between. It returns the number
// of placements removed.
func (p *Planner) DeleteDish(ctx context.Context, dishID string, remove func(context.Context) error) (int, error) {
	unlock, err := p.lock(ctx)
	if err != nil {
		return 0, err
	}
	defer unlock()

	slots, err := p.slots.ListSlots(ctx)
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, slot := range slots {
		if firstDish(slot, dishID) < 0 {
			continue
		}
		n := 0
		err := p.modify(ctx, slot.Key(), func(s *models.ScheduleSlot) error {
			kept := s.Items[:0:0]
			for _, it := range s.Items {
				if it.DishID != dishID {
					kept = append(kept, it)
				}
			}
			n = len(s.Items) - len(kept)
			s.Items = kept
			return nil
		})
		if errors.Is(err, errs.ErrNotFound) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed += n
	}
	if removed > 0 {
		log.Printf("[Planner] removed %d placements of dish %s", removed, dishID)
	}
	if remove != nil {
		if err := remove(ctx); err != nil {
			return removed, err
		}
	}
	return removed, nil
}
