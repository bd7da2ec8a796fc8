// Package store is the persistence collaborator of the planner: per-user CRUD for
// dishes, schedule slots, accounts and export settings, plus change notification.
//
// Every dish, slot and settings call reads the user id from the context and fails
// with errs.ErrNotAuthenticated when it is missing. Deleting an absent id is a no-op;
// updating one fails with errs.ErrNotFound.
package store

import (
	"context"
	"time"

	"lifeassistant/errs"
	"lifeassistant/globals"
	"lifeassistant/models"
)

type DishStore interface {
	ListDishes(ctx context.Context) ([]models.Dish, error)
	GetDish(ctx context.Context, id string) (models.Dish, error)
	// InsertDish fails with errs.ErrConflict when the id is already taken.
	InsertDish(ctx context.Context, d models.Dish) (models.Dish, error)
	UpdateDish(ctx context.Context, d models.Dish) error
	DeleteDish(ctx context.Context, id string) error
}

type SlotStore interface {
	ListSlots(ctx context.Context) ([]models.ScheduleSlot, error)
	// FindSlot returns errs.ErrNotFound when no slot exists at key.
	FindSlot(ctx context.Context, key models.SlotKey) (models.ScheduleSlot, error)
	// InsertSlot fails with errs.ErrSlotTaken when another slot holds the same
	// (date, mealType) and with errs.ErrConflict when the id is taken.
	InsertSlot(ctx context.Context, s models.ScheduleSlot) (models.ScheduleSlot, error)
	// UpdateSlot and DeleteSlot write back a slot read earlier. They fail with
	// errs.ErrConflict when the stored slot has been written since, which callers
	// answer with a fresh read.
	UpdateSlot(ctx context.Context, s models.ScheduleSlot) error
	DeleteSlot(ctx context.Context, s models.ScheduleSlot) error
}

type UserStore interface {
	// CreateUser fails with errs.ErrConflict when the username is taken.
	CreateUser(ctx context.Context, u models.User) error
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	TouchLogin(ctx context.Context, userID string, at time.Time) error
}

type SettingsStore interface {
	// GetExportSettings returns the defaults when nothing was saved yet.
	GetExportSettings(ctx context.Context) (models.ExportSettings, error)
	SaveExportSettings(ctx context.Context, s models.ExportSettings) error
}

type Store interface {
	DishStore
	SlotStore
	UserStore
	SettingsStore
	Close(ctx context.Context) error
}

// Publisher receives a ChangeEvent after each successful write.
type Publisher interface {
	Publish(ctx context.Context, ev models.ChangeEvent)
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, ev models.ChangeEvent)

func (f PublisherFunc) Publish(ctx context.Context, ev models.ChangeEvent) { f(ctx, ev) }

// RequireUser returns the authenticated user id of ctx.
func RequireUser(ctx context.Context) (string, error) {
	uid := globals.UserID(ctx)
	if uid == "" {
		return "", errs.ErrNotAuthenticated
	}
	return uid, nil
}

func dishEvent(op string, d models.Dish) models.ChangeEvent {
	ev := models.ChangeEvent{UserID: d.UserID, Entity: models.EntityDish, Op: op, ID: d.ID, Revision: d.Revision}
	if op != models.OpDelete {
		c := d.Clone()
		ev.Dish = &c
	}
	return ev
}

func slotEvent(op string, s models.ScheduleSlot) models.ChangeEvent {
	ev := models.ChangeEvent{UserID: s.UserID, Entity: models.EntitySlot, Op: op, ID: s.ID, Revision: s.Revision}
	if op != models.OpDelete {
		c := s.Clone()
		ev.Slot = &c
	}
	return ev
}
