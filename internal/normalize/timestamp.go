package normalize

import (
	"encoding/json"
	"math"
	"time"

	"github.com/guregu/null/v6"
)

// naive layouts carry no zone and are read in the caller's location.
var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

// zoned layouts carry an explicit offset or Z.
var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

// UnixSeconds converts a provider time value into Unix seconds.
// Numbers are taken as epoch seconds already. Strings are tried as
// "2006-01-02 15:04:05" in loc first, then as ISO-8601. Anything that
// cannot be converted yields null.
func UnixSeconds(v any, loc *time.Location) null.Int {
	if loc == nil {
		loc = time.Local
	}
	switch t := v.(type) {
	case nil:
		return null.Int{}
	case float64:
		return fromFloat(t)
	case float32:
		return fromFloat(float64(t))
	case int:
		return null.IntFrom(int64(t))
	case int32:
		return null.IntFrom(int64(t))
	case int64:
		return null.IntFrom(t)
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return null.IntFrom(i)
		}
		f, err := t.Float64()
		if err != nil {
			return null.Int{}
		}
		return fromFloat(f)
	case time.Time:
		if t.IsZero() {
			return null.Int{}
		}
		return null.IntFrom(t.Unix())
	case string:
		return parseTimeString(t, loc)
	}
	return null.Int{}
}

func fromFloat(f float64) null.Int {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return null.Int{}
	}
	return null.IntFrom(int64(f))
}

func parseTimeString(s string, loc *time.Location) null.Int {
	if t, err := time.ParseInLocation(time.DateTime, s, loc); err == nil {
		return null.IntFrom(t.Unix())
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return null.IntFrom(t.Unix())
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return null.IntFrom(t.Unix())
		}
	}
	return null.Int{}
}

// UnixMillis returns the bar time in milliseconds since the epoch, or 0
// when the bar carries no time.
func UnixMillis(t null.Time) int64 {
	if !t.Valid || t.Time.IsZero() {
		return 0
	}
	return t.Time.UnixMilli()
}
