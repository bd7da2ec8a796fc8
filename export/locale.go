package export

import (
	"time"

	"lifeassistant/models"
)

// Locale names days and meals in the scheduled-dish labels.
type Locale struct {
	Days  [7]string
	Meals map[models.MealType]string
	Sep   string
}

var Chinese = Locale{
	Days: [7]string{"周日", "周一", "周二", "周三", "周四", "周五", "周六"},
	Meals: map[models.MealType]string{
		models.Breakfast: "早饭",
		models.Lunch:     "午饭",
		models.Dinner:    "晚饭",
		models.Others:    "其他",
	},
}

var English = Locale{
	Days: [7]string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"},
	Meals: map[models.MealType]string{
		models.Breakfast: "Breakfast",
		models.Lunch:     "Lunch",
		models.Dinner:    "Dinner",
		models.Others:    "Others",
	},
	Sep: " ",
}

// LocaleFor picks the label language; anything but "en" gets Chinese labels.
func LocaleFor(lang string) Locale {
	if lang == "en" {
		return English
	}
	return Chinese
}

// Label renders "<day of week><sep><meal>" for a calendar day.
func (l Locale) Label(day time.Weekday, meal models.MealType) string {
	name, ok := l.Meals[meal]
	if !ok {
		name = string(meal)
	}
	return l.Days[day] + l.Sep + name
}
