package handler

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/pillflow/pillflow-backend/internal/pharmacy/stats"
	"github.com/pillflow/pillflow-backend/pkg/errors"
)

const dateOnly = "2006-01-02"

// maxRangeDays bounds from..to; the dashboard builds one bucket per day.
const maxRangeDays = 366

// parseRange reads the from and to query parameters. Both are optional but
// must be given together. A bare date as to covers that whole day.
func parseRange(r *http.Request, loc *time.Location) (*stats.DateRange, error) {
	q := r.URL.Query()
	fromRaw, toRaw := strings.TrimSpace(q.Get("from")), strings.TrimSpace(q.Get("to"))
	if fromRaw == "" && toRaw == "" {
		return nil, nil
	}
	if fromRaw == "" || toRaw == "" {
		return nil, errors.BadRequest("from and to must be given together")
	}

	from, err := parseBound(fromRaw, loc, false)
	if err != nil {
		return nil, errors.Validation(map[string]string{"from": err.Error()})
	}
	to, err := parseBound(toRaw, loc, true)
	if err != nil {
		return nil, errors.Validation(map[string]string{"to": err.Error()})
	}
	if to.Before(from) {
		return nil, errors.Validation(map[string]string{"to": "must not be before from"})
	}
	if !to.Before(from.AddDate(0, 0, maxRangeDays)) {
		return nil, errors.Validation(map[string]string{"to": fmt.Sprintf("range must not exceed %d days", maxRangeDays)})
	}

	return &stats.DateRange{Start: from, End: to}, nil
}

type boundError string

func (e boundError) Error() string { return string(e) }

func parseBound(raw string, loc *time.Location, endOfDay bool) (time.Time, error) {
	if t, err := time.ParseInLocation(dateOnly, raw, loc); err == nil {
		if endOfDay {
			t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
		}
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Time{}, boundError("must be YYYY-MM-DD or RFC3339")
}
