// Package units contains helpers to convert sizes to human-readable strings.
package units

import (
	"fmt"
	"strings"
)

//nolint:gochecknoglobals
var base10UnitPrefixes = []string{"", "K", "M", "G", "T"}

func niceNumber(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.1f", f), "0"), ".")
}

func toDecimalUnitString(f, thousand float64, prefixes []string, suffix string) string {
	for i := range prefixes {
		if f < 0.9*thousand {
			return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[i], suffix)
		}

		f /= thousand
	}

	return fmt.Sprintf("%v %v%v", niceNumber(f), prefixes[len(prefixes)-1], suffix)
}

// BytesString formats the given value as bytes with the appropriate base-10 suffix (KB, MB, GB, ...).
func BytesString(b int64) string {
	//nolint:mnd
	return toDecimalUnitString(float64(b), 1000, base10UnitPrefixes, "B")
}

// BytesPerSecondsString formats the given value as bytes per second with the
// appropriate base-10 suffix (KB/s, MB/s, GB/s, ...).
func BytesPerSecondsString(bps float64) string {
	//nolint:mnd
	return toDecimalUnitString(bps, 1000, base10UnitPrefixes, "B/s")
}
