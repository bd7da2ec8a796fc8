// Package backup snapshots a user's dishes and schedule to a portable JSON file and
// merges such a file back in.
package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"time"

	"lifeassistant/dishes"
	"lifeassistant/errs"
	"lifeassistant/models"
	"lifeassistant/store"
	"lifeassistant/utils"
)

const timestampLayout = "2006-01-02T15:04:05.000Z"

// Export tags the pair with the current version and timestamp. The data is not
// filtered or transformed.
func Export(dishes []models.Dish, schedule []models.ScheduleSlot, now time.Time) models.BackupSnapshot {
	if dishes == nil {
		dishes = []models.Dish{}
	}
	if schedule == nil {
		schedule = []models.ScheduleSlot{}
	}
	return models.BackupSnapshot{
		Version:    models.BackupVersion,
		ExportedAt: now.UTC().Format(timestampLayout),
		Dishes:     dishes,
		Schedule:   schedule,
	}
}

// Marshal renders a snapshot with two-space indentation.
func Marshal(snap models.BackupSnapshot) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Import parses a backup file. It fails with *errs.FormatError when the payload is
// not an object, lacks a version string, or its dishes or schedule are not arrays.
// Cross references between schedule items and dishes are not checked.
func Import(raw []byte) (models.BackupSnapshot, error) {
	var top map[string]json.RawMessage
	if err := json.Unmarshal(raw, &top); err != nil {
		return models.BackupSnapshot{}, &errs.FormatError{Reason: "not a JSON object", Err: err}
	}

	var snap models.BackupSnapshot
	v, ok := top["version"]
	if !ok || json.Unmarshal(v, &snap.Version) != nil || snap.Version == "" {
		return models.BackupSnapshot{}, &errs.FormatError{Reason: "missing version"}
	}
	if at, ok := top["exportedAt"]; ok {
		_ = json.Unmarshal(at, &snap.ExportedAt)
	}

	if err := decodeArray(top, "dishes", &snap.Dishes); err != nil {
		return models.BackupSnapshot{}, err
	}
	if err := decodeArray(top, "schedule", &snap.Schedule); err != nil {
		return models.BackupSnapshot{}, err
	}
	return snap, nil
}

func decodeArray(top map[string]json.RawMessage, key string, dst any) error {
	v, ok := top[key]
	v = bytes.TrimSpace(v)
	if !ok || len(v) == 0 || v[0] != '[' {
		return &errs.FormatError{Reason: key + " must be an array"}
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return &errs.FormatError{Reason: "malformed " + key, Err: err}
	}
	return nil
}

// RestoreMerge adds every snapshot dish and slot whose id is not already present.
// Rows are held to the same rules as live writes: dishes go through
// dishes.Normalize and slots must pass ScheduleSlot.Validate. A row that fails
// them or whose write is rejected is logged and counted as skipped; it never
// aborts the rest of the restore, so running it again on the same snapshot is
// safe. Dishes are written before slots.
func RestoreMerge(ctx context.Context, snap models.BackupSnapshot, dishStore store.DishStore, slotStore store.SlotStore) (models.RestoreSummary, error) {
	var sum models.RestoreSummary

	currentDishes, err := dishStore.ListDishes(ctx)
	if err != nil {
		return sum, err
	}
	currentSlots, err := slotStore.ListSlots(ctx)
	if err != nil {
		return sum, err
	}

	seen := make(map[string]bool, len(currentDishes))
	for _, d := range currentDishes {
		seen[d.ID] = true
	}
	for _, d := range snap.Dishes {
		if d.ID == "" || seen[d.ID] {
			sum.DishesSkipped++
			continue
		}
		d, err := dishes.Normalize(d, utils.GetUUID)
		if err == nil {
			_, err = dishStore.InsertDish(ctx, d)
		}
		if err != nil {
			log.Printf("[Backup] Skipping dish %s: %v", d.ID, err)
			sum.DishesSkipped++
			continue
		}
		seen[d.ID] = true
		sum.DishesAdded++
	}

	seen = make(map[string]bool, len(currentSlots))
	for _, s := range currentSlots {
		seen[s.ID] = true
	}
	for _, s := range snap.Schedule {
		if s.ID == "" || seen[s.ID] {
			sum.ScheduleSkipped++
			continue
		}
		err := s.Validate()
		if err == nil {
			_, err = slotStore.InsertSlot(ctx, s)
		}
		if err != nil {
			log.Printf("[Backup] Skipping schedule slot %s (%s): %v", s.ID, s.Key(), err)
			sum.ScheduleSkipped++
			continue
		}
		seen[s.ID] = true
		sum.ScheduleAdded++
	}
	return sum, nil
}
