package models

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// DishServings maps dish names to accumulated servings and remembers the order in
// which dishes were first seen.
type DishServings struct {
	order  []string
	counts map[string]int
}

func (d *DishServings) Add(name string, servings int) {
	if d.counts == nil {
		d.counts = make(map[string]int)
	}
	if _, ok := d.counts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.counts[name] += servings
}

func (d DishServings) Get(name string) int { return d.counts[name] }

func (d DishServings) Names() []string { return append([]string(nil), d.order...) }

// Map returns a plain copy of the tally.
func (d DishServings) Map() map[string]int {
	out := make(map[string]int, len(d.counts))
	for k, v := range d.counts {
		out[k] = v
	}
	return out
}

func (d DishServings) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range d.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.WriteString(strconv.Itoa(d.counts[name]))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// AggregatedIngredient is one grocery line: every contribution sharing the same
// lowercased name and unit, summed across the date range.
type AggregatedIngredient struct {
	Key         string       `json:"key"`
	Name        string       `json:"name"`
	Unit        string       `json:"unit"`
	TotalAmount float64      `json:"totalAmount"`
	Dishes      DishServings `json:"dishServingsMap"`
}

// ScheduledDish is one (slot, item) entry of the scheduled-dish export.
type ScheduledDish struct {
	Date     Date     `json:"-"`
	MealType MealType `json:"-"`
	Title    string   `json:"title"`
	Notes    string   `json:"notes"`
	DueDate  string   `json:"dueDate,omitempty"`
}
