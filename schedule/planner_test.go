package schedule

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"testing"

	"lifeassistant/errs"
	"lifeassistant/globals"
	"lifeassistant/models"
	"lifeassistant/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, dishIDs ...string) (context.Context, *store.Memory, *Planner) {
	t.Helper()
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	for _, id := range dishIDs {
		_, err := m.InsertDish(ctx, models.Dish{ID: id, Name: "Dish " + id})
		require.NoError(t, err)
	}
	p := NewPlanner(m, m)
	n := 0
	p.newID = func() string { n++; return fmt.Sprintf("slot-%d", n) }
	return ctx, m, p
}

func key(date string, meal models.MealType) models.SlotKey {
	return models.SlotKey{Date: models.Date(date), MealType: meal}
}

func slotAt(t *testing.T, ctx context.Context, m *store.Memory, k models.SlotKey) (models.ScheduleSlot, bool) {
	t.Helper()
	s, err := m.FindSlot(ctx, k)
	if err != nil {
		require.ErrorIs(t, err, errs.ErrNotFound)
		return s, false
	}
	return s, true
}

func TestPlaceDishCreatesThenAppends(t *testing.T) {
	ctx, m, p := setup(t, "d1")
	k := key("2024-01-01", models.Breakfast)

	_, err := p.PlaceDish(ctx, k, "d1", 3)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, k, "d1", 1)
	require.NoError(t, err)

	s, ok := slotAt(t, ctx, m, k)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d1", Servings: 3}, {DishID: "d1", Servings: 1}}, s.Items)

	all, err := m.ListSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestPlaceDishValidates(t *testing.T) {
	ctx, _, p := setup(t, "d1")

	_, err := p.PlaceDish(ctx, key("2024-01-01", "brunch"), "d1", 1)
	assert.True(t, errs.IsValidation(err))
	_, err = p.PlaceDish(ctx, key("2024-01-01", models.Lunch), "d1", 0)
	assert.True(t, errs.IsValidation(err))
	_, err = p.PlaceDish(ctx, key("2024-01-01", models.Lunch), "nope", 1)
	assert.ErrorIs(t, err, errs.ErrNotFound)
	_, err = p.PlaceDish(context.Background(), key("2024-01-01", models.Lunch), "d1", 1)
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
}

func TestRemoveAtKeepsSecondPlacement(t *testing.T) {
	ctx, m, p := setup(t, "d1")
	k := key("2024-01-02", models.Dinner)
	_, err := p.PlaceDish(ctx, k, "d1", 1)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, k, "d1", 2)
	require.NoError(t, err)

	require.NoError(t, p.RemoveAt(ctx, k, 0))

	s, ok := slotAt(t, ctx, m, k)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d1", Servings: 2}}, s.Items)

	require.NoError(t, p.RemoveAt(ctx, k, 0))
	_, ok = slotAt(t, ctx, m, k)
	assert.False(t, ok, "empty slot must be deleted")

	assert.ErrorIs(t, p.RemoveAt(ctx, k, 0), errs.ErrNotFound)
}

func TestRemoveAtOutOfRange(t *testing.T) {
	ctx, _, p := setup(t, "d1")
	k := key("2024-01-02", models.Dinner)
	_, err := p.PlaceDish(ctx, k, "d1", 1)
	require.NoError(t, err)

	assert.True(t, errs.IsValidation(p.RemoveAt(ctx, k, 1)))
	assert.True(t, errs.IsValidation(p.RemoveAt(ctx, k, -1)))
	assert.ErrorIs(t, p.RemoveAt(ctx, key("2024-01-03", models.Dinner), 0), errs.ErrNotFound)
}

func TestMoveDish(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2")
	from := key("2024-01-01", models.Lunch)
	to := key("2024-01-02", models.Dinner)
	_, err := p.PlaceDish(ctx, from, "d1", 4)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, to, "d2", 1)
	require.NoError(t, err)

	require.NoError(t, p.MoveDish(ctx, from, 0, to))

	_, ok := slotAt(t, ctx, m, from)
	assert.False(t, ok, "source slot left empty must be deleted")
	s, ok := slotAt(t, ctx, m, to)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d2", Servings: 1}, {DishID: "d1", Servings: 4}}, s.Items)
}

func TestMoveDishOntoItselfIsNoop(t *testing.T) {
	ctx, m, p := setup(t, "d1")
	k := key("2024-01-01", models.Lunch)
	placed, err := p.PlaceDish(ctx, k, "d1", 2)
	require.NoError(t, err)

	require.NoError(t, p.MoveDish(ctx, k, 0, k))

	s, ok := slotAt(t, ctx, m, k)
	require.True(t, ok)
	assert.Equal(t, placed.ID, s.ID)
	assert.Equal(t, placed.Revision, s.Revision, "no write may happen")
}

func TestChangeMealTypeMovesFirstMatch(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2")
	from := key("2024-01-01", models.Lunch)
	_, err := p.PlaceDish(ctx, from, "d2", 1)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, from, "d1", 2)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, from, "d1", 5)
	require.NoError(t, err)

	require.NoError(t, p.ChangeMealType(ctx, "2024-01-01", models.Lunch, models.Dinner, "d1"))

	src, ok := slotAt(t, ctx, m, from)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d2", Servings: 1}, {DishID: "d1", Servings: 5}}, src.Items)
	dst, ok := slotAt(t, ctx, m, key("2024-01-01", models.Dinner))
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d1", Servings: 2}}, dst.Items)

	err = p.ChangeMealType(ctx, "2024-01-01", models.Lunch, models.Dinner, "zzz")
	assert.ErrorIs(t, err, errs.ErrNotFound)
	assert.NoError(t, p.ChangeMealType(ctx, "2024-01-01", models.Lunch, models.Lunch, "d1"))
}

func TestUpdateServingsFloor(t *testing.T) {
	ctx, _, p := setup(t, "d1")
	k := key("2024-01-01", models.Lunch)
	_, err := p.PlaceDish(ctx, k, "d1", 2)
	require.NoError(t, err)

	got, err := p.UpdateServings(ctx, k, "d1", 3)
	require.NoError(t, err)
	assert.Equal(t, 5, got)

	got, err = p.UpdateServings(ctx, k, "d1", -100)
	require.NoError(t, err)
	assert.Equal(t, 1, got)

	got, err = p.UpdateServings(ctx, k, "d1", -1)
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestDeleteDishCascades(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2")
	_, err := p.PlaceDish(ctx, key("2024-01-01", models.Lunch), "d1", 1)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, key("2024-01-01", models.Lunch), "d2", 1)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, key("2024-01-02", models.Dinner), "d1", 1)
	require.NoError(t, err)
	_, err = p.PlaceDish(ctx, key("2024-01-02", models.Dinner), "d1", 3)
	require.NoError(t, err)

	removed, err := p.DeleteDish(ctx, "d1", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	slots, err := m.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, []models.SlotItem{{DishID: "d2", Servings: 1}}, slots[0].Items)
}

// rivalSlots appends rival to the first slot the planner reads, straight after
// the read, the way a second instance writing the same slot would.
type rivalSlots struct {
	*store.Memory
	rival models.SlotItem
	once  sync.Once
	err   error
}

func (r *rivalSlots) FindSlot(ctx context.Context, key models.SlotKey) (models.ScheduleSlot, error) {
	s, err := r.Memory.FindSlot(ctx, key)
	if err == nil {
		r.once.Do(func() {
			other := s.Clone()
			other.Items = append(other.Items, r.rival)
			r.err = r.Memory.UpdateSlot(ctx, other)
		})
	}
	return s, err
}

func TestPlaceDishRereadsAfterConcurrentWrite(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2")
	k := key("2024-01-01", models.Lunch)
	_, err := p.PlaceDish(ctx, k, "d1", 1)
	require.NoError(t, err)

	rival := &rivalSlots{Memory: m, rival: models.SlotItem{DishID: "d2", Servings: 2}}
	_, err = NewPlanner(m, rival).PlaceDish(ctx, k, "d1", 3)
	require.NoError(t, err)
	require.NoError(t, rival.err)

	s, ok := slotAt(t, ctx, m, k)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d1", Servings: 1}, {DishID: "d2", Servings: 2}, {DishID: "d1", Servings: 3}}, s.Items)
}

func TestRemoveAtRereadsAfterConcurrentWrite(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2")
	k := key("2024-01-01", models.Dinner)
	_, err := p.PlaceDish(ctx, k, "d1", 1)
	require.NoError(t, err)

	rival := &rivalSlots{Memory: m, rival: models.SlotItem{DishID: "d2", Servings: 1}}
	require.NoError(t, NewPlanner(m, rival).RemoveAt(ctx, k, 0))
	require.NoError(t, rival.err)

	// the rival's item survives instead of the slot being deleted as empty
	s, ok := slotAt(t, ctx, m, k)
	require.True(t, ok)
	assert.Equal(t, []models.SlotItem{{DishID: "d2", Servings: 1}}, s.Items)
}

func TestDeleteDishRunsRemoveLast(t *testing.T) {
	ctx, m, p := setup(t, "d1")
	_, err := p.PlaceDish(ctx, key("2024-01-01", models.Lunch), "d1", 1)
	require.NoError(t, err)

	var left int
	removed, err := p.DeleteDish(ctx, "d1", func(ctx context.Context) error {
		slots, err := m.ListSlots(ctx)
		left = len(slots)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Zero(t, left)

	boom := fmt.Errorf("boom")
	_, err = p.DeleteDish(ctx, "d1", func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
}

func TestSlotsFiltersAndOrders(t *testing.T) {
	ctx, _, p := setup(t, "d1")
	for _, k := range []models.SlotKey{
		key("2024-01-02", models.Others),
		key("2024-01-02", models.Breakfast),
		key("2024-01-01", models.Dinner),
		key("2024-01-05", models.Lunch),
	} {
		_, err := p.PlaceDish(ctx, k, "d1", 1)
		require.NoError(t, err)
	}

	slots, err := p.Slots(ctx, "2024-01-01", "2024-01-02")
	require.NoError(t, err)
	var got []string
	for _, s := range slots {
		got = append(got, s.Key().String())
	}
	assert.Equal(t, []string{"2024-01-01/dinner", "2024-01-02/breakfast", "2024-01-02/others"}, got)

	all, err := p.Slots(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

// Random mutation sequences must keep one slot per (date, mealType), leave no
// empty slot behind and never drop servings below one.
func TestMutationInvariants(t *testing.T) {
	ctx, m, p := setup(t, "d1", "d2", "d3")
	rng := rand.New(rand.NewSource(7))
	dates := []string{"2024-01-01", "2024-01-02"}
	dishes := []string{"d1", "d2", "d3"}
	randKey := func() models.SlotKey {
		return key(dates[rng.Intn(len(dates))], models.MealTypes[rng.Intn(len(models.MealTypes))])
	}

	for i := 0; i < 300; i++ {
		switch rng.Intn(5) {
		case 0, 1:
			_, _ = p.PlaceDish(ctx, randKey(), dishes[rng.Intn(3)], 1+rng.Intn(3))
		case 2:
			_ = p.MoveDish(ctx, randKey(), rng.Intn(3), randKey())
		case 3:
			k := randKey()
			_ = p.ChangeMealType(ctx, k.Date, k.MealType, models.MealTypes[rng.Intn(4)], dishes[rng.Intn(3)])
		case 4:
			if rng.Intn(2) == 0 {
				_ = p.RemoveAt(ctx, randKey(), rng.Intn(3))
			} else {
				_, _ = p.UpdateServings(ctx, randKey(), dishes[rng.Intn(3)], rng.Intn(7)-4)
			}
		}

		slots, err := m.ListSlots(ctx)
		require.NoError(t, err)
		seen := map[models.SlotKey]bool{}
		for _, s := range slots {
			require.False(t, seen[s.Key()], "duplicate slot %s", s.Key())
			seen[s.Key()] = true
			require.NotEmpty(t, s.Items, "empty slot %s", s.Key())
			for _, it := range s.Items {
				require.GreaterOrEqual(t, it.Servings, 1)
			}
		}
	}
}
