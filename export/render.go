// Package export renders the grocery list and the scheduled-dish list.
package export

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"

	"lifeassistant/errs"
	"lifeassistant/grocery"
	"lifeassistant/models"
)

const (
	headerDate      = "Jan 2, 2006"
	headerTimestamp = "Jan 2, 2006 15:04"
	separator       = "----------------------------------------"
)

// FormatAmount rounds to two decimals and drops trailing zeros.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

// AmountLabel is "<amount> <unit>", or "" when there is no positive quantity.
func AmountLabel(it models.AggregatedIngredient) string {
	if it.TotalAmount <= 0 {
		return ""
	}
	return strings.TrimSpace(FormatAmount(it.TotalAmount) + " " + it.Unit)
}

// Attribution lists the contributing dishes as "Name(servings), ...".
func Attribution(d models.DishServings) string {
	names := d.Names()
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = n + "(" + strconv.Itoa(d.Get(n)) + ")"
	}
	return strings.Join(parts, ", ")
}

func formatDate(d models.Date) string {
	t, err := d.In(time.UTC)
	if err != nil {
		return string(d)
	}
	return t.Format(headerDate)
}

func header(title string, start, end models.Date, generated time.Time) string {
	var b strings.Builder
	b.WriteString(title + "\n")
	b.WriteString("Range: " + formatDate(start) + " - " + formatDate(end) + "\n")
	b.WriteString("Generated on: " + generated.Format(headerTimestamp) + "\n\n")
	b.WriteString(separator + "\n\n")
	return b.String()
}

// GroceryLine renders one checklist row.
func GroceryLine(it models.AggregatedIngredient) string {
	parts := []string{"[ ]"}
	if amount := AmountLabel(it); amount != "" {
		parts = append(parts, amount)
	}
	parts = append(parts, it.Name)
	line := strings.Join(parts, " ")
	if attr := Attribution(it.Dishes); attr != "" {
		line += " - " + attr
	}
	return line
}

// GroceryText renders the plain-text checklist.
func GroceryText(items []models.AggregatedIngredient, start, end models.Date, generated time.Time) []byte {
	var b strings.Builder
	b.WriteString(header("Grocery List", start, end, generated))
	if len(items) == 0 {
		b.WriteString("No items found for this period.\n")
		return []byte(b.String())
	}
	for _, it := range items {
		b.WriteString(GroceryLine(it) + "\n")
	}
	return []byte(b.String())
}

type listItem struct {
	Title   string `json:"title"`
	Notes   string `json:"notes"`
	DueDate string `json:"dueDate,omitempty"`
}

type list struct {
	ListName string     `json:"listName"`
	Items    []listItem `json:"items"`
}

func marshalList(l list) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func requireListName(listName string) error {
	if strings.TrimSpace(listName) == "" {
		return errs.Invalid("listName", "a list name is required for JSON export")
	}
	return nil
}

// GroceryNotes is the JSON note of one ingredient: "<amount> <unit> - <dishes>".
func GroceryNotes(it models.AggregatedIngredient) string {
	amount, attr := AmountLabel(it), Attribution(it.Dishes)
	switch {
	case amount == "":
		return attr
	case attr == "":
		return amount
	}
	return amount + " - " + attr
}

// GroceryJSON renders the structured list. listName must not be empty.
func GroceryJSON(items []models.AggregatedIngredient, listName string) ([]byte, error) {
	if err := requireListName(listName); err != nil {
		return nil, err
	}
	l := list{ListName: listName, Items: make([]listItem, 0, len(items))}
	for _, it := range items {
		l.Items = append(l.Items, listItem{Title: it.Name, Notes: GroceryNotes(it)})
	}
	return marshalList(l)
}

// ScheduledDishes lists every placement dated within [start, end] in date order,
// then breakfast, lunch, others, dinner. Lunch and dinner carry a due time of
// 11:00 and 17:00 in loc. Placements of deleted dishes are skipped.
func ScheduledDishes(slots []models.ScheduleSlot, dishes []models.Dish, start, end models.Date, locale Locale, loc *time.Location) []models.ScheduledDish {
	idx := models.DishIndex(dishes)
	var out []models.ScheduledDish
	for _, slot := range grocery.InRange(slots, start, end) {
		day, err := slot.Date.In(loc)
		if err != nil {
			continue
		}
		due := dueDate(day, slot.MealType)
		for _, item := range slot.Items {
			dish, ok := idx[item.DishID]
			if !ok {
				continue
			}
			out = append(out, models.ScheduledDish{
				Date:     slot.Date,
				MealType: slot.MealType,
				Title:    dish.Name,
				Notes:    locale.Label(day.Weekday(), slot.MealType),
				DueDate:  due,
			})
		}
	}
	return out
}

func dueDate(day time.Time, meal models.MealType) string {
	var hour int
	switch meal {
	case models.Lunch:
		hour = 11
	case models.Dinner:
		hour = 17
	default:
		return ""
	}
	t := time.Date(day.Year(), day.Month(), day.Day(), hour, 0, 0, 0, day.Location())
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}

// ScheduleText renders the scheduled dishes as a checklist.
func ScheduleText(entries []models.ScheduledDish, start, end models.Date, generated time.Time) []byte {
	var b strings.Builder
	b.WriteString(header("Scheduled Dishes", start, end, generated))
	if len(entries) == 0 {
		b.WriteString("No scheduled dishes found for this period.\n")
		return []byte(b.String())
	}
	for _, e := range entries {
		b.WriteString("[ ] " + e.Title + " (" + e.Notes + ")\n")
	}
	return []byte(b.String())
}

// ScheduleJSON renders the scheduled dishes as a structured list.
func ScheduleJSON(entries []models.ScheduledDish, listName string) ([]byte, error) {
	if err := requireListName(listName); err != nil {
		return nil, err
	}
	l := list{ListName: listName, Items: make([]listItem, 0, len(entries))}
	for _, e := range entries {
		l.Items = append(l.Items, listItem{Title: e.Title, Notes: e.Notes, DueDate: e.DueDate})
	}
	return marshalList(l)
}
