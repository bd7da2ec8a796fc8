package models

// Ingredient belongs to exactly one dish.
type Ingredient struct {
	ID     string `json:"id" bson:"id"`
	Name   string `json:"name" bson:"name"`
	Amount Amount `json:"amount" bson:"amount"`
	Unit   string `json:"unit" bson:"unit"`
}

// Dish is one entry of a user's dish catalog. IDs are unique per user only. Servings is informational only: the
// per-slot servings value is what scales ingredient amounts.
type Dish struct {
	ID          string       `json:"id" bson:"id"`
	UserID      string       `json:"-" bson:"userId"`
	Name        string       `json:"name" bson:"name"`
	Ingredients []Ingredient `json:"ingredients" bson:"ingredients"`
	Seasonings  []string     `json:"seasonings" bson:"seasonings"`
	VideoLink   string       `json:"videoLink,omitempty" bson:"videoLink,omitempty"`
	Servings    int          `json:"servings,omitempty" bson:"servings,omitempty"`
	Revision    int64        `json:"-" bson:"rev"`
}

// Clone returns a copy that shares no slices with d.
func (d Dish) Clone() Dish {
	out := d
	if d.Ingredients != nil {
		out.Ingredients = append([]Ingredient(nil), d.Ingredients...)
	}
	if d.Seasonings != nil {
		out.Seasonings = append([]string(nil), d.Seasonings...)
	}
	return out
}

// DishIndex maps dish ids to dishes for reference resolution.
func DishIndex(dishes []Dish) map[string]Dish {
	idx := make(map[string]Dish, len(dishes))
	for _, d := range dishes {
		idx[d.ID] = d
	}
	return idx
}
