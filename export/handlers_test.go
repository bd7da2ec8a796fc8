package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"lifeassistant/globals"
	"lifeassistant/models"
	"lifeassistant/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seeded(t *testing.T) (*Handlers, context.Context) {
	t.Helper()
	ctx := globals.WithUser(context.Background(), "u1")
	m := store.NewMemory(nil)
	_, err := m.InsertDish(ctx, models.Dish{ID: "1", Name: "Pancakes", Ingredients: []models.Ingredient{
		{ID: "f", Name: "Flour", Amount: models.ParseAmount("2"), Unit: "cups"},
	}})
	require.NoError(t, err)
	_, err = m.InsertSlot(ctx, models.ScheduleSlot{ID: "a", Date: "2024-01-01", MealType: models.Breakfast, Items: []models.SlotItem{{DishID: "1", Servings: 3}}})
	require.NoError(t, err)
	_, err = m.InsertSlot(ctx, models.ScheduleSlot{ID: "b", Date: "2024-01-03", MealType: models.Lunch, Items: []models.SlotItem{{DishID: "1", Servings: 1}}})
	require.NoError(t, err)

	h := &Handlers{Dishes: m, Slots: m, Settings: m, Now: func() time.Time {
		return time.Date(2024, 1, 5, 9, 30, 0, 0, time.UTC)
	}}
	return h, ctx
}

func get(ctx context.Context, handle func(http.ResponseWriter, *http.Request), url string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handle(rec, httptest.NewRequest(http.MethodGet, url, nil).WithContext(ctx))
	return rec
}

func TestExportGroceryText(t *testing.T) {
	h, ctx := seeded(t)
	rec := get(ctx, func(w http.ResponseWriter, r *http.Request) { h.ExportGrocery(w, r, nil) },
		"/api/export/grocery?start=2024-01-01&end=2024-01-03")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Disposition"), `grocery-list-20240105-093000.txt`)
	assert.Contains(t, rec.Body.String(), "[ ] 8 cups Flour - Pancakes(4)\n")
}

func TestExportGroceryJSONNeedsListName(t *testing.T) {
	h, ctx := seeded(t)
	rec := get(ctx, func(w http.ResponseWriter, r *http.Request) { h.ExportGrocery(w, r, nil) },
		"/api/export/grocery?start=2024-01-01&end=2024-01-03&format=json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Failed to export grocery list")

	require.NoError(t, h.Settings.SaveExportSettings(ctx, models.ExportSettings{GroceryListName: "Saved", GroceryFormat: models.FormatJSON, ScheduleFormat: models.FormatText, Language: "en", TimeZone: "UTC"}))
	rec = get(ctx, func(w http.ResponseWriter, r *http.Request) { h.ExportGrocery(w, r, nil) },
		"/api/export/grocery?start=2024-01-01&end=2024-01-03")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"listName": "Saved"`)
	assert.Contains(t, rec.Body.String(), `"notes": "8 cups - Pancakes(4)"`)
}

func TestExportScheduleUsesSavedLanguage(t *testing.T) {
	h, ctx := seeded(t)
	require.NoError(t, h.Settings.SaveExportSettings(ctx, models.ExportSettings{GroceryFormat: models.FormatText, ScheduleFormat: models.FormatText, Language: "en", TimeZone: "UTC"}))

	rec := get(ctx, func(w http.ResponseWriter, r *http.Request) { h.ExportSchedule(w, r, nil) },
		"/api/export/schedule?start=2024-01-01&end=2024-01-03")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Index(body, "Monday Breakfast") < strings.Index(body, "Wednesday Lunch"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "scheduled-dishes-")
}

func TestExportRejectsBadQuery(t *testing.T) {
	h, ctx := seeded(t)
	for _, url := range []string{
		"/api/export/grocery?start=2024-01-01",
		"/api/export/grocery?start=2024-01-03&end=2024-01-01",
		"/api/export/grocery?start=2024-01-01&end=2024-01-03&format=docx",
	} {
		rec := get(ctx, func(w http.ResponseWriter, r *http.Request) { h.ExportGrocery(w, r, nil) }, url)
		assert.Equal(t, http.StatusBadRequest, rec.Code, url)
	}

	rec := get(context.Background(), func(w http.ResponseWriter, r *http.Request) { h.ExportGrocery(w, r, nil) },
		"/api/export/grocery?start=2024-01-01&end=2024-01-03")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
