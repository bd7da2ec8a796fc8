package dishes

import (
	"context"
	"fmt"
	"log"
	"strings"

	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"
)

// Cascader removes every schedule placement of a dish, then runs remove while
// no placement can be added.
type Cascader interface {
	DeleteDish(ctx context.Context, dishID string, remove func(context.Context) error) (int, error)
}

// Catalog owns the user's dish library.
type Catalog struct {
	store    store.DishStore
	schedule Cascader
	newID    func() string
}

func NewCatalog(s store.DishStore, schedule Cascader) *Catalog {
	return &Catalog{store: s, schedule: schedule, newID: utils.GetUUID}
}

func (c *Catalog) List(ctx context.Context) ([]models.Dish, error) {
	return c.store.ListDishes(ctx)
}

// Normalize validates d and fills in defaults. Ingredients without an id get one
// from newID.
func Normalize(d models.Dish, newID func() string) (models.Dish, error) {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return d, errs.Invalid("name", "dish name is required")
	}
	switch {
	case d.Servings == 0:
		d.Servings = 1
	case d.Servings < 0:
		return d, errs.Invalid("servings", "must be a positive number")
	}

	ingredients := make([]models.Ingredient, 0, len(d.Ingredients))
	for i, ing := range d.Ingredients {
		ing.Name = strings.TrimSpace(ing.Name)
		if ing.Name == "" {
			return d, errs.Invalid(fmt.Sprintf("ingredients[%d].name", i), "ingredient name is required")
		}
		ing.Unit = strings.TrimSpace(ing.Unit)
		if ing.ID == "" {
			ing.ID = newID()
		}
		ingredients = append(ingredients, ing)
	}
	d.Ingredients = ingredients

	seasonings := make([]string, 0, len(d.Seasonings))
	for _, s := range d.Seasonings {
		if s = strings.TrimSpace(s); s != "" {
			seasonings = append(seasonings, s)
		}
	}
	d.Seasonings = seasonings
	d.VideoLink = strings.TrimSpace(d.VideoLink)
	return d, nil
}

// Create always assigns a fresh id; one sent by the client is ignored.
func (c *Catalog) Create(ctx context.Context, d models.Dish) (models.Dish, error) {
	d, err := Normalize(d, c.newID)
	if err != nil {
		return models.Dish{}, err
	}
	d.ID = c.newID()
	return c.store.InsertDish(ctx, d)
}

func (c *Catalog) Update(ctx context.Context, d models.Dish) (models.Dish, error) {
	if d.ID == "" {
		return models.Dish{}, errs.Invalid("id", "is required")
	}
	d, err := Normalize(d, c.newID)
	if err != nil {
		return models.Dish{}, err
	}
	if err := c.store.UpdateDish(ctx, d); err != nil {
		return models.Dish{}, err
	}
	return d, nil
}

// Delete removes the dish's placements first and the dish row after them, both
// under the planner's lock, so the schedule never points at a missing dish.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	_, err := c.schedule.DeleteDish(ctx, id, func(ctx context.Context) error {
		return c.store.DeleteDish(ctx, id)
	})
	if err != nil {
		return fmt.Errorf("delete dish %s: %w", id, err)
	}
	log.Printf("[Catalog] deleted dish %s", id)
	return nil
}
