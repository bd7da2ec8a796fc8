package utils

import (
	"net/http"

	"lifeassistant/errs"
	"lifeassistant/models"
)

// ParseDateRange reads the inclusive start/end query parameters. When required is
// false either bound may be omitted and comes back empty.
func ParseDateRange(r *http.Request, required bool) (models.Date, models.Date, error) {
	q := r.URL.Query()
	var bounds [2]models.Date
	for i, name := range []string{"start", "end"} {
		v := q.Get(name)
		if v == "" {
			if required {
				return "", "", errs.Invalid(name, "is required")
			}
			continue
		}
		d, err := models.ParseDate(v)
		if err != nil {
			return "", "", errs.Invalid(name, "%v", err)
		}
		bounds[i] = d
	}
	start, end := bounds[0], bounds[1]
	if start != "" && end != "" && end < start {
		return "", "", errs.Invalid("end", "must not be before start")
	}
	return start, end, nil
}
