// Package timecode formats second offsets as subtitle timestamps.
package timecode

import (
	"fmt"
	"math"
	"math/big"
	"strings"
)

// Whole-second counts below this fit an int64 with room to spare.
const maxIntSeconds = float64(1 << 62)

// Format renders seconds as HH:MM:SS,mmm. The hour field is unbounded and
// never wraps at 24. The fractional part is resolved to whole microseconds
// first and milliseconds are then truncated, never rounded. Every finite
// non-negative input is accepted.
func Format(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	if math.IsInf(seconds, 1) {
		seconds = math.MaxFloat64
	}

	whole, frac := math.Modf(seconds)
	micros := int64(math.Round(frac * 1e6))
	if micros == 1_000_000 {
		whole++
		micros = 0
	}
	millis := micros / 1000

	if whole < maxIntSeconds {
		total := int64(whole)
		return fmt.Sprintf("%02d:%02d:%02d,%03d", total/3600, (total%3600)/60, total%60, millis)
	}

	// Too large for int64: split exactly with big integers.
	n, _ := big.NewFloat(whole).Int(nil)
	hours, rem := new(big.Int).QuoRem(n, big.NewInt(3600), new(big.Int))
	r := rem.Int64()
	return fmt.Sprintf("%s:%02d:%02d,%03d", hours.String(), r/60, r%60, millis)
}

// FormatDotted is Format with a period as the decimal separator.
func FormatDotted(seconds float64) string {
	return strings.Replace(Format(seconds), ",", ".", 1)
}
