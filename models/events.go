package models

// Entity kinds carried by change events.
const (
	EntityDish = "dish"
	EntitySlot = "slot"
)

// Change operations.
const (
	OpInsert = "insert"
	OpUpdate = "update"
	OpDelete = "delete"
)

// ChangeEvent is emitted after every successful store write. Revision grows
// monotonically per (Entity, ID).
type ChangeEvent struct {
	UserID   string        `json:"userId"`
	Entity   string        `json:"entity"`
	Op       string        `json:"op"`
	ID       string        `json:"id"`
	Revision int64         `json:"revision"`
	Dish     *Dish         `json:"dish,omitempty"`
	Slot     *ScheduleSlot `json:"slot,omitempty"`
}
