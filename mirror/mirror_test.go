package mirror

import (
	"testing"

	"lifeassistant/models"

	"github.com/stretchr/testify/assert"
)

func dishEv(op, id, name string, rev int64) models.ChangeEvent {
	ev := models.ChangeEvent{UserID: "u1", Entity: models.EntityDish, Op: op, ID: id, Revision: rev}
	if op != models.OpDelete {
		ev.Dish = &models.Dish{ID: id, Name: name}
	}
	return ev
}

func TestApplyIgnoresStaleAndDuplicateEvents(t *testing.T) {
	m := New()

	assert.True(t, m.Apply(dishEv(models.OpInsert, "d1", "Soup", 1)))
	assert.True(t, m.Apply(dishEv(models.OpUpdate, "d1", "Tomato soup", 3)))
	assert.False(t, m.Apply(dishEv(models.OpUpdate, "d1", "Old soup", 2)), "older revision")
	assert.False(t, m.Apply(dishEv(models.OpUpdate, "d1", "Tomato soup", 3)), "duplicate")

	dishes := m.Dishes()
	if assert.Len(t, dishes, 1) {
		assert.Equal(t, "Tomato soup", dishes[0].Name)
	}
}

func TestDeleteLeavesTombstone(t *testing.T) {
	m := New()
	m.Apply(dishEv(models.OpInsert, "d1", "Soup", 1))
	assert.True(t, m.Apply(dishEv(models.OpDelete, "d1", "", 2)))
	assert.Empty(t, m.Dishes())

	// a late insert must not resurrect the row
	assert.False(t, m.Apply(dishEv(models.OpInsert, "d1", "Soup", 1)))
	assert.Empty(t, m.Dishes())

	// a newer insert of the same id does
	assert.True(t, m.Apply(dishEv(models.OpInsert, "d1", "Soup again", 5)))
	assert.Len(t, m.Dishes(), 1)
}

func TestLoadAndSlots(t *testing.T) {
	m := New()
	m.Load(
		[]models.Dish{{ID: "b", Name: "Bread", Revision: 4}, {ID: "a", Name: "Apple pie", Revision: 2}},
		[]models.ScheduleSlot{
			{ID: "s2", Date: "2024-01-02", MealType: models.Lunch, Revision: 3},
			{ID: "s1", Date: "2024-01-01", MealType: models.Dinner, Revision: 1},
		},
	)

	dishes := m.Dishes()
	assert.Equal(t, "Apple pie", dishes[0].Name)
	slots := m.Slots()
	assert.Equal(t, "s1", slots[0].ID)

	// an event older than the loaded row is ignored, a newer one applies
	slot := models.ScheduleSlot{ID: "s2", Date: "2024-01-02", MealType: models.Lunch, Items: []models.SlotItem{{DishID: "a", Servings: 2}}}
	assert.False(t, m.Apply(models.ChangeEvent{Entity: models.EntitySlot, Op: models.OpUpdate, ID: "s2", Revision: 3, Slot: &slot}))
	assert.True(t, m.Apply(models.ChangeEvent{Entity: models.EntitySlot, Op: models.OpUpdate, ID: "s2", Revision: 4, Slot: &slot}))
	assert.Len(t, m.Slots()[1].Items, 1)

	// entities are tracked separately
	assert.True(t, m.Apply(dishEv(models.OpUpdate, "s2", "Same id, other entity", 1)))
}

func TestApplyReturnsCopies(t *testing.T) {
	m := New()
	d := &models.Dish{ID: "d1", Name: "Soup", Seasonings: []string{"salt"}}
	m.Apply(models.ChangeEvent{Entity: models.EntityDish, Op: models.OpInsert, ID: "d1", Revision: 1, Dish: d})
	d.Seasonings[0] = "pepper"

	assert.Equal(t, []string{"salt"}, m.Dishes()[0].Seasonings)
}
