// Package mirror keeps a read model of one user's dishes and schedule current by
// applying change events.
package mirror

import (
	"sort"
	"sync"

	"lifeassistant/models"
)

type rowKey struct {
	entity string
	id     string
}

// Mirror is safe for concurrent use. Events may arrive duplicated or out of order:
// an event is applied only when its revision is newer than the last one seen for
// the same row, deletes included.
type Mirror struct {
	mu     sync.RWMutex
	dishes map[string]models.Dish
	slots  map[string]models.ScheduleSlot
	revs   map[rowKey]int64
}

func New() *Mirror {
	return &Mirror{
		dishes: make(map[string]models.Dish),
		slots:  make(map[string]models.ScheduleSlot),
		revs:   make(map[rowKey]int64),
	}
}

// Load seeds the mirror with rows read from the store. Rows already known at a
// newer revision are left alone.
func (m *Mirror) Load(dishes []models.Dish, slots []models.ScheduleSlot) {
	for _, d := range dishes {
		d := d
		m.Apply(models.ChangeEvent{Entity: models.EntityDish, Op: models.OpInsert, ID: d.ID, Revision: d.Revision, Dish: &d})
	}
	for _, s := range slots {
		s := s
		m.Apply(models.ChangeEvent{Entity: models.EntitySlot, Op: models.OpInsert, ID: s.ID, Revision: s.Revision, Slot: &s})
	}
}

// Apply folds ev into the mirror and reports whether it changed anything.
func (m *Mirror) Apply(ev models.ChangeEvent) bool {
	key := rowKey{ev.Entity, ev.ID}

	m.mu.Lock()
	defer m.mu.Unlock()

	if last, ok := m.revs[key]; ok && ev.Revision <= last {
		return false
	}

	switch ev.Entity {
	case models.EntityDish:
		if ev.Op == models.OpDelete {
			delete(m.dishes, ev.ID)
		} else if ev.Dish != nil {
			m.dishes[ev.ID] = ev.Dish.Clone()
		} else {
			return false
		}
	case models.EntitySlot:
		if ev.Op == models.OpDelete {
			delete(m.slots, ev.ID)
		} else if ev.Slot != nil {
			m.slots[ev.ID] = ev.Slot.Clone()
		} else {
			return false
		}
	default:
		return false
	}
	m.revs[key] = ev.Revision
	return true
}

// Dishes returns the live dishes ordered by name, then id.
func (m *Mirror) Dishes() []models.Dish {
	m.mu.RLock()
	out := make([]models.Dish, 0, len(m.dishes))
	for _, d := range m.dishes {
		out = append(out, d.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Slots returns the live slots ordered by date, then meal type.
func (m *Mirror) Slots() []models.ScheduleSlot {
	m.mu.RLock()
	out := make([]models.ScheduleSlot, 0, len(m.slots))
	for _, s := range m.slots {
		out = append(out, s.Clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].MealType < out[j].MealType
	})
	return out
}
