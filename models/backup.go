package models

// BackupVersion tags every snapshot written by this service.
const BackupVersion = "1.0"

// BackupSnapshot is the portable form of a user's dishes and schedule.
type BackupSnapshot struct {
	Version    string         `json:"version"`
	ExportedAt string         `json:"exportedAt"`
	Dishes     []Dish         `json:"dishes"`
	Schedule   []ScheduleSlot `json:"schedule"`
}

// RestoreSummary tallies a best-effort restore.
type RestoreSummary struct {
	DishesAdded     int `json:"dishesAdded"`
	DishesSkipped   int `json:"dishesSkipped"`
	ScheduleAdded   int `json:"scheduleAdded"`
	ScheduleSkipped int `json:"scheduleSkipped"`
}
