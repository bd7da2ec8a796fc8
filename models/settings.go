package models

// Export formats.
const (
	FormatText = "txt"
	FormatJSON = "json"
	FormatPDF  = "pdf"
)

// ExportSettings holds the per-user defaults of the export dialog.
type ExportSettings struct {
	UserID           string `json:"-" bson:"_id"`
	GroceryListName  string `json:"groceryListName" bson:"groceryListName"`
	GroceryFormat    string `json:"groceryFormat" bson:"groceryFormat"`
	ScheduleListName string `json:"scheduleListName" bson:"scheduleListName"`
	ScheduleFormat   string `json:"scheduleFormat" bson:"scheduleFormat"`
	Language         string `json:"language" bson:"language"`
	TimeZone         string `json:"timeZone" bson:"timeZone"`
}

func DefaultExportSettings(userID string) ExportSettings {
	return ExportSettings{
		UserID:         userID,
		GroceryFormat:  FormatText,
		ScheduleFormat: FormatText,
		Language:       "zh",
		TimeZone:       "UTC",
	}
}
