package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Axis selects the hemisphere letters used when formatting a position.
type Axis int

const (
	Latitude Axis = iota
	Longitude
)

// hemisphereSign maps a hemisphere suffix to the sign of the decimal-degree
// value. Applied before unit conversion.
var hemisphereSign = map[byte]float64{'N': 1, 'S': -1, 'E': 1, 'W': -1}

// metisPositionRe matches the Metis degree-minute form, e.g. "48°38.459'N".
var metisPositionRe = regexp.MustCompile(`^(\d+)°(\d+\.\d+)'([NSEW])$`)

// DecodePosition converts a Viking degree-minute position string such as
// "48 39.71N" or "068 34.90W" to signed decimal degrees. The minute fraction
// is rounded to 4 decimals, matching the controller's transmitted precision.
func DecodePosition(s string) (float64, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 2 {
		return 0, fmt.Errorf("position %q: want degrees and minutes separated by a space", s)
	}
	min := parts[1]
	hem := min[len(min)-1]
	sign, ok := hemisphereSign[hem]
	if !ok {
		return 0, fmt.Errorf("position %q: unknown hemisphere %q", s, hem)
	}
	deg, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("position %q: bad degrees: %w", s, err)
	}
	minutes, err := strconv.ParseFloat(min[:len(min)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("position %q: bad minutes: %w", s, err)
	}
	return sign * (float64(deg) + round4(minutes/60)), nil
}

// FormatPosition renders decimal degrees back into the transmitted
// degree-minute form: "48 39.71N" for latitudes, "068 34.90W" for longitudes.
func FormatPosition(dd float64, axis Axis) string {
	hem := byte('N')
	degWidth := 2
	if axis == Longitude {
		hem = 'E'
		degWidth = 3
	}
	if dd < 0 {
		if axis == Latitude {
			hem = 'S'
		} else {
			hem = 'W'
		}
	}
	abs := math.Abs(dd)
	deg := int(abs)
	minutes := (abs - float64(deg)) * 60
	// Carry 59.995' and up into the next degree rather than printing 60.00'.
	if minutes >= 59.995 {
		deg++
		minutes = 0
	}
	return fmt.Sprintf("%0*d %05.2f%c", degWidth, deg, minutes, hem)
}

// decodeNMEAPosition converts an NMEA-style "DDmm.mmmm" coordinate plus its
// hemisphere field ("N", "S", "E", "W") to signed decimal degrees.
func decodeNMEAPosition(coord, hemisphere string) (float64, error) {
	dot := strings.IndexByte(coord, '.')
	if dot < 3 {
		return 0, fmt.Errorf("coordinate %q: want DDmm.mmmm", coord)
	}
	deg, err := strconv.Atoi(coord[:dot-2])
	if err != nil {
		return 0, fmt.Errorf("coordinate %q: bad degrees: %w", coord, err)
	}
	minutes, err := strconv.ParseFloat(coord[dot-2:], 64)
	if err != nil {
		return 0, fmt.Errorf("coordinate %q: bad minutes: %w", coord, err)
	}
	if hemisphere == "" {
		return 0, fmt.Errorf("coordinate %q: missing hemisphere", coord)
	}
	sign, ok := hemisphereSign[hemisphere[0]]
	if !ok {
		return 0, fmt.Errorf("coordinate %q: unknown hemisphere %q", coord, hemisphere)
	}
	return sign * (float64(deg) + round4(minutes/60)), nil
}

// decodeMetisPosition converts the Metis degree-minute form "48°38.459'N" to
// signed decimal degrees rounded to 4 decimals. A value that does not match
// the pattern (NAN padding) decodes to nil.
func decodeMetisPosition(s string) any {
	m := metisPositionRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return nil
	}
	deg, _ := strconv.ParseFloat(m[1], 64)
	minutes, _ := strconv.ParseFloat(m[2], 64)
	return round4((deg + minutes/60) * hemisphereSign[m[3][0]])
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
