package domain

import (
	"encoding/hex"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
)

// modelSerialRe splits an instrument identifier like "SATSLC1363" or
// "SEAFET02138" into its model prefix and serial digits.
var modelSerialRe = regexp.MustCompile(`([A-Za-z]+)([0-9]+)$`)

// safeFloat parses a numeric field leniently: masked values ('#' padding),
// NaN sentinels, and unparseable text all decode to nil rather than failing
// the segment. Instruments routinely pad individual readings while the rest
// of the segment is good.
func safeFloat(s string) any {
	s = strings.TrimSpace(s)
	if s == "" || strings.Contains(s, "#") {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// expandYear joins a two-digit year with the century hint. The Viking
// controller's convention pairs the two-digit year with century-1: century 21
// and year "21" give "2021".
func expandYear(century int, yy string) string {
	return strconv.Itoa(century-1) + yy
}

// compactTimestamp builds an ISO-8601 timestamp from the controller's
// HHMMSS time and DDMMYY date fields. Masked fields yield nil; fields of the
// wrong width are an error.
func compactTimestamp(hhmmss, ddmmyy string, century int) (any, error) {
	if strings.Contains(hhmmss, "#") || strings.Contains(ddmmyy, "#") {
		return nil, nil
	}
	if len(hhmmss) != 6 {
		return nil, fmt.Errorf("time field %q: want HHMMSS", hhmmss)
	}
	if len(ddmmyy) != 6 {
		return nil, fmt.Errorf("date field %q: want DDMMYY", ddmmyy)
	}
	return expandYear(century, ddmmyy[4:6]) + "-" + ddmmyy[2:4] + "-" + ddmmyy[0:2] +
		"T" + hhmmss[0:2] + ":" + hhmmss[2:4] + ":" + hhmmss[4:6], nil
}

// isoTimestamp joins already-expanded date and time parts into the ISO-8601
// form. Any masked part yields nil.
func isoTimestamp(year, month, day, hour, minute, second string) any {
	joined := year + "-" + month + "-" + day + "T" + hour + ":" + minute + ":" + second
	if strings.Contains(joined, "#") {
		return nil
	}
	return joined
}

// hexInt32 decodes a big-endian 32-bit two's-complement hex field, e.g. the
// compass heading accumulators "000DA1B4" and "FFC58202".
func hexInt32(s string) (int64, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 16, 32)
	if err != nil {
		return 0, fmt.Errorf("hex field %q: %w", s, err)
	}
	return int64(int32(uint32(v))), nil
}

// hexInt16LE decodes a run of little-endian int16 values from a hex string,
// the packing used for RDI earth velocities ("E3FFBB0022001400" → -29, 187,
// 34, 20).
func hexInt16LE(s string, n int) ([]int16, error) {
	b, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("hex field %q: %w", s, err)
	}
	if len(b) != 2*n {
		return nil, fmt.Errorf("hex field %q: want %d bytes, got %d", s, 2*n, len(b))
	}
	out := make([]int16, n)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out, nil
}

// modelSerial splits an instrument identifier into model and serial number.
func modelSerial(s string) (string, string, error) {
	m := modelSerialRe.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", "", fmt.Errorf("instrument id %q: want <model><serial>", s)
	}
	return m[1], m[2], nil
}

// floatRecord zips ordered field names with leniently parsed float values.
func floatRecord(names []string, fields []string) Record {
	rec := make(Record, len(names))
	for i, name := range names {
		rec[name] = safeFloat(fields[i])
	}
	return rec
}
