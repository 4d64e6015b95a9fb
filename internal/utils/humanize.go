package utils

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type unit struct {
	singular string
	plural   string
	value    float64
}

// PreciseDelta renders a duration down to seconds, e.g. "1 minute",
// "2 hours and 3 seconds" or "12.35 seconds". Units are singular only for
// exactly one; fractional seconds keep two decimals.
func PreciseDelta(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	whole := int64(d / time.Second)
	frac := d % time.Second

	units := []unit{
		{"day", "days", float64(whole / 86400)},
		{"hour", "hours", float64(whole % 86400 / 3600)},
		{"minute", "minutes", float64(whole % 3600 / 60)},
		{"second", "seconds", float64(whole%60) + frac.Seconds()},
	}

	var texts []string
	for i, u := range units {
		last := i == len(units)-1
		if u.value <= 0 && !(last && len(texts) == 0) {
			continue
		}
		name := u.plural
		if u.value == 1 {
			name = u.singular
		}
		if last {
			if _, fraction := math.Modf(u.value); fraction > 0 {
				texts = append(texts, fmt.Sprintf("%.2f %s", u.value, name))
				continue
			}
		}
		texts = append(texts, fmt.Sprintf("%d %s", int64(u.value), name))
	}

	if len(texts) == 1 {
		return texts[0]
	}
	return strings.Join(texts[:len(texts)-1], ", ") + " and " + texts[len(texts)-1]
}
