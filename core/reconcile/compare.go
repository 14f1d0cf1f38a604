package reconcile

import (
	"time"

	"db-sync/core/utils"

	"github.com/araddon/dateparse"
	"github.com/shopspring/decimal"
)

// SameValue reports whether two driver scalars hold the same value.
// Times compare as instants, text that parses as a time compares against a
// time, numbers compare as decimals, everything else compares as text.
func SameValue(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	ta, aTime := asTime(a)
	tb, bTime := asTime(b)
	if aTime || bTime {
		if !aTime {
			ta, aTime = parseTime(a)
		}
		if !bTime {
			tb, bTime = parseTime(b)
		}
		if aTime && bTime {
			return ta.Equal(tb)
		}
		return false
	}

	da, aNum := asDecimal(a)
	db, bNum := asDecimal(b)
	if aNum && bNum {
		return da.Equal(db)
	}

	return utils.ToString(a) == utils.ToString(b)
}

func asTime(v any) (time.Time, bool) {
	t, ok := v.(time.Time)
	return t, ok
}

func parseTime(v any) (time.Time, bool) {
	s := utils.ToString(v)
	if s == "" {
		return time.Time{}, false
	}
	t, err := dateparse.ParseIn(s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func asDecimal(v any) (decimal.Decimal, bool) {
	switch n := v.(type) {
	case int64:
		return decimal.NewFromInt(n), true
	case int:
		return decimal.NewFromInt(int64(n)), true
	case int32:
		return decimal.NewFromInt(int64(n)), true
	case float64:
		return decimal.NewFromFloat(n), true
	case float32:
		return decimal.NewFromFloat32(n), true
	case string:
		d, err := decimal.NewFromString(n)
		return d, err == nil
	case []byte:
		d, err := decimal.NewFromString(string(n))
		return d, err == nil
	}
	return decimal.Decimal{}, false
}
