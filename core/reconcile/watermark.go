package reconcile

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// WatermarkLayout is the text form watermarks are bound with.
const WatermarkLayout = time.DateTime

var relativePattern = regexp.MustCompile(`^(\d+)\s*(second|minute|hour|day|week|month|year)s?\s+ago$`)

// ParseWatermark turns date text into an instant relative to now.
// Accepted forms: "now", "today", "yesterday", "N <unit>[s] ago" and any
// absolute date dateparse understands. A trailing "utc" evaluates relative
// forms in UTC.
func ParseWatermark(text string, now time.Time) (time.Time, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return time.Time{}, fmt.Errorf("%w: empty modified_from_date", ErrConfiguration)
	}

	if rest, ok := strings.CutSuffix(s, " utc"); ok {
		s = strings.TrimSpace(rest)
		now = now.UTC()
	} else if s == "utc" {
		s = "now"
		now = now.UTC()
	}

	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch s {
	case "now":
		return now.Truncate(time.Second), nil
	case "today":
		return midnight, nil
	case "yesterday":
		return midnight.AddDate(0, 0, -1), nil
	}

	if m := relativePattern.FindStringSubmatch(s); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return time.Time{}, fmt.Errorf("%w: invalid modified_from_date %q", ErrConfiguration, text)
		}
		base := now.Truncate(time.Second)
		switch m[2] {
		case "second":
			return base.Add(-time.Duration(n) * time.Second), nil
		case "minute":
			return base.Add(-time.Duration(n) * time.Minute), nil
		case "hour":
			return base.Add(-time.Duration(n) * time.Hour), nil
		case "day":
			return base.AddDate(0, 0, -n), nil
		case "week":
			return base.AddDate(0, 0, -7*n), nil
		case "month":
			return base.AddDate(0, -n, 0), nil
		case "year":
			return base.AddDate(-n, 0, 0), nil
		}
	}

	t, err := dateparse.ParseIn(strings.TrimSpace(text), now.Location())
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid modified_from_date %q: %v", ErrConfiguration, text, err)
	}
	return t, nil
}

// FormatWatermark renders an instant the way it is bound into queries.
func FormatWatermark(t time.Time) string {
	return t.Format(WatermarkLayout)
}
