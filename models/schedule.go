package models

import (
	"fmt"
	"time"
)

// MealType is one of the four calendar rows of a day.
type MealType string

const (
	Breakfast MealType = "breakfast"
	Lunch     MealType = "lunch"
	Dinner    MealType = "dinner"
	Others    MealType = "others"
)

var MealTypes = []MealType{Breakfast, Lunch, Dinner, Others}

func (m MealType) Valid() bool {
	switch m {
	case Breakfast, Lunch, Dinner, Others:
		return true
	}
	return false
}

// DateLayout is the wire format of a calendar date.
const DateLayout = "2006-01-02"

// Date is a calendar day with no time component, kept in its ISO form so that
// ordering of valid dates is plain string ordering.
type Date string

func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: want yyyy-MM-dd", s)
	}
	return Date(t.Format(DateLayout)), nil
}

func (d Date) Valid() bool {
	_, err := time.Parse(DateLayout, string(d))
	return err == nil
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, string(d), loc)
}

// Within reports whether d lies in [start, end], both ends included.
func (d Date) Within(start, end Date) bool {
	return d >= start && d <= end
}

func (d Date) String() string { return string(d) }

// SlotItem is one placement of a dish inside a slot.
type SlotItem struct {
	DishID   string `json:"dishId" bson:"dishId"`
	Servings int    `json:"servings" bson:"servings"`
}

// ScheduleSlot is the single calendar cell for a (date, mealType) pair.
type ScheduleSlot struct {
	ID       string     `json:"id" bson:"id"`
	UserID   string     `json:"-" bson:"userId"`
	Date     Date       `json:"date" bson:"date"`
	MealType MealType   `json:"mealType" bson:"mealType"`
	Items    []SlotItem `json:"items" bson:"items"`
	Revision int64      `json:"-" bson:"rev"`
}

func (s ScheduleSlot) Clone() ScheduleSlot {
	out := s
	if s.Items != nil {
		out.Items = append([]SlotItem(nil), s.Items...)
	}
	return out
}

// Validate checks what every stored slot holds to: a valid key and at least one
// item, each naming a dish with one or more servings.
func (s ScheduleSlot) Validate() error {
	if err := s.Key().Validate(); err != nil {
		return err
	}
	if len(s.Items) == 0 {
		return fmt.Errorf("slot %s has no items", s.Key())
	}
	for i, it := range s.Items {
		if it.DishID == "" {
			return fmt.Errorf("items[%d]: dishId is required", i)
		}
		if it.Servings < 1 {
			return fmt.Errorf("items[%d]: servings must be at least 1, got %d", i, it.Servings)
		}
	}
	return nil
}

// SlotKey addresses a slot by its calendar position.
type SlotKey struct {
	Date     Date     `json:"date"`
	MealType MealType `json:"mealType"`
}

func (s ScheduleSlot) Key() SlotKey {
	return SlotKey{Date: s.Date, MealType: s.MealType}
}

func (k SlotKey) Validate() error {
	if !k.Date.Valid() {
		return fmt.Errorf("invalid date %q: want yyyy-MM-dd", k.Date)
	}
	if !k.MealType.Valid() {
		return fmt.Errorf("unknown meal type %q", k.MealType)
	}
	return nil
}

func (k SlotKey) String() string {
	return string(k.Date) + "/" + string(k.MealType)
}
