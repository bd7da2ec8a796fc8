// Package grocery derives the consolidated shopping list of a date range.
package grocery

import (
	"sort"
	"strings"

	"lifeassistant/models"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// MergeKey identifies ingredients that are summed together. Units are never
// converted, so "Flour/cups" and "Flour/g" stay separate lines.
func MergeKey(name, unit string) string {
	return strings.ToLower(name) + "-" + strings.ToLower(unit)
}

// mealOrder fixes the order in which slots of one day are visited.
var mealOrder = map[models.MealType]int{
	models.Breakfast: 0,
	models.Lunch:     1,
	models.Others:    2,
	models.Dinner:    3,
}

// InRange returns the slots dated within [start, end], ordered by date and then
// breakfast, lunch, others, dinner.
func InRange(slots []models.ScheduleSlot, start, end models.Date) []models.ScheduleSlot {
	out := make([]models.ScheduleSlot, 0, len(slots))
	for _, s := range slots {
		if s.Date.Within(start, end) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return mealOrder[out[i].MealType] < mealOrder[out[j].MealType]
	})
	return out
}

// Aggregate sums every ingredient of every placement dated within [start, end],
// scaled by the placement's servings. Placements of dishes that no longer exist
// are skipped. Amounts that did not parse add nothing but still credit the dish.
// The result is sorted by name, case-insensitively; equal names keep the order
// in which they were first met.
func Aggregate(slots []models.ScheduleSlot, dishes []models.Dish, start, end models.Date) []models.AggregatedIngredient {
	idx := models.DishIndex(dishes)
	byKey := make(map[string]*models.AggregatedIngredient)
	var order []*models.AggregatedIngredient

	for _, slot := range InRange(slots, start, end) {
		for _, item := range slot.Items {
			dish, ok := idx[item.DishID]
			if !ok {
				continue
			}
			for _, ing := range dish.Ingredients {
				key := MergeKey(ing.Name, ing.Unit)
				agg, ok := byKey[key]
				if !ok {
					agg = &models.AggregatedIngredient{Key: key, Name: ing.Name, Unit: ing.Unit}
					byKey[key] = agg
					order = append(order, agg)
				}
				agg.TotalAmount += ing.Amount.Quantity() * float64(item.Servings)
				agg.Dishes.Add(dish.Name, item.Servings)
			}
		}
	}

	col := collate.New(language.Und, collate.IgnoreCase)
	sort.SliceStable(order, func(i, j int) bool {
		return col.CompareString(order[i].Name, order[j].Name) < 0
	})

	out := make([]models.AggregatedIngredient, len(order))
	for i, agg := range order {
		out[i] = *agg
	}
	return out
}
