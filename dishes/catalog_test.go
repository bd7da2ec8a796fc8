package dishes

import (
	"context"
	"sync"
	"testing"
	"time"

	"lifeassistant/errs"
	"lifeassistant/globals"
	"lifeassistant/models"
	"lifeassistant/schedule"
	"lifeassistant/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateNormalizes(t *testing.T) {
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	c := NewCatalog(m, schedule.NewPlanner(m, m))

	d, err := c.Create(ctx, models.Dish{
		ID:          "chosen-by-client",
		Name:        "  Pancakes ",
		Ingredients: []models.Ingredient{{Name: " Flour ", Amount: models.ParseAmount("2"), Unit: " cups "}},
		Seasonings:  []string{" sugar ", ""},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, d.ID)
	assert.NotEqual(t, "chosen-by-client", d.ID)
	assert.Equal(t, "Pancakes", d.Name)
	assert.Equal(t, 1, d.Servings)
	assert.Equal(t, "Flour", d.Ingredients[0].Name)
	assert.Equal(t, "cups", d.Ingredients[0].Unit)
	assert.NotEmpty(t, d.Ingredients[0].ID)
	assert.Equal(t, []string{"sugar"}, d.Seasonings)

	_, err = c.Create(ctx, models.Dish{Name: " "})
	assert.True(t, errs.IsValidation(err))
	_, err = c.Create(ctx, models.Dish{Name: "x", Ingredients: []models.Ingredient{{Name: ""}}})
	assert.True(t, errs.IsValidation(err))
}

func TestUpdateMissingDish(t *testing.T) {
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	c := NewCatalog(m, schedule.NewPlanner(m, m))

	_, err := c.Update(ctx, models.Dish{ID: "nope", Name: "x"})
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDeleteCascadesToSchedule(t *testing.T) {
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	planner := schedule.NewPlanner(m, m)
	c := NewCatalog(m, planner)

	soup, err := c.Create(ctx, models.Dish{Name: "Soup"})
	require.NoError(t, err)
	bread, err := c.Create(ctx, models.Dish{Name: "Bread"})
	require.NoError(t, err)
	lunch := models.SlotKey{Date: "2024-01-01", MealType: models.Lunch}
	_, err = planner.PlaceDish(ctx, lunch, soup.ID, 1)
	require.NoError(t, err)
	_, err = planner.PlaceDish(ctx, lunch, bread.ID, 1)
	require.NoError(t, err)
	_, err = planner.PlaceDish(ctx, models.SlotKey{Date: "2024-01-02", MealType: models.Dinner}, soup.ID, 2)
	require.NoError(t, err)

	require.NoError(t, c.Delete(ctx, soup.ID))

	left, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "Bread", left[0].Name)

	slots, err := m.ListSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	for _, s := range slots {
		for _, it := range s.Items {
			assert.NotEqual(t, soup.ID, it.DishID)
		}
	}

	// deleting again is a no-op
	assert.NoError(t, c.Delete(ctx, soup.ID))
}

// gatedDishes holds the first GetDish until release is closed.
type gatedDishes struct {
	*store.Memory
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (g *gatedDishes) GetDish(ctx context.Context, id string) (models.Dish, error) {
	g.once.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.Memory.GetDish(ctx, id)
}

func TestDeleteWaitsForPendingPlacement(t *testing.T) {
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	gate := &gatedDishes{Memory: m, entered: make(chan struct{}), release: make(chan struct{})}
	planner := schedule.NewPlanner(gate, m)
	c := NewCatalog(m, planner)

	soup, err := c.Create(ctx, models.Dish{Name: "Soup"})
	require.NoError(t, err)

	placed := make(chan error, 1)
	go func() {
		_, err := planner.PlaceDish(ctx, models.SlotKey{Date: "2024-01-01", MealType: models.Lunch}, soup.ID, 1)
		placed <- err
	}()
	<-gate.entered

	deleted := make(chan error, 1)
	go func() { deleted <- c.Delete(ctx, soup.ID) }()
	select {
	case err := <-deleted:
		t.Fatalf("delete finished while a placement was in flight: %v", err)
	case <-time.After(50 * time.Millisecond):
	}
	close(gate.release)

	require.NoError(t, <-placed)
	require.NoError(t, <-deleted)

	slots, err := m.ListSlots(ctx)
	require.NoError(t, err)
	assert.Empty(t, slots)
	left, err := c.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, left)
}
