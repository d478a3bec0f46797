package domain

import (
	"fmt"
	"strings"
)

// metisTagFields lists the ordered field names per Metis tag. The Metis
// logger transmits a whole frame on a single line and already uses ISO
// dates, so decoding is a straight zip with a few positional conversions.
var metisTagFields = map[Tag][]string{
	TagINIT: {"buoy_name", "date", "time", "latitude", "longitude", "heading", "pitch", "roll",
		"pitch_std", "roll_std", "cog", "sog", "magnetic_declination", "water_detection"},
	TagPOWR: {"volt_batt_1", "amp_batt_1", "volt_batt_2", "amp_batt_2", "volt_solar", "amp_solar",
		"amp_main", "amp_turbine", "amp_winch", "pm_rh", "relay_state"},
	TagECO1: {"scattering", "chlorophyll", "fdom"},
	TagCTD:  {"temperature", "conductivity", "salinity", "density"},
	TagPH:   {"ext_ph_calc", "int_ph_calc", "error_flag", "ext_ph", "int_ph"},
	TagNO3:  {"nitrate", "nitrogen", "bromide", "rmse"},
	TagWIND: {"source", "wind_dir_min", "wind_dir_ave", "wind_dir_max",
		"wind_spd_min", "wind_spd_ave", "wind_spd_max"},
	TagATMS: {"air_temperature", "air_humidity", "air_pressure", "par",
		"rain_total", "rain_duration", "rain_intensity"},
	TagWAVE: {"date", "time", "period", "hm0", "h13", "hmax"},
	TagADCP: {"date", "time", "u", "v", "w", "e"},
	TagPCO2: {"co2_ppm_air", "co2_ppm_water"},
	TagWNCH: {"message"},
}

// metisOptionalTrailing counts trailing fields a tag may omit. Older
// controller firmware sends INIT without magnetic_declination and
// water_detection; the envelope still has to decode.
var metisOptionalTrailing = map[Tag]int{
	TagINIT: 2,
}

// metisStringFields marks the fields that stay strings; everything else
// parses leniently as float.
var metisStringFields = map[string]bool{
	"buoy_name":   true,
	"date":        true,
	"time":        true,
	"latitude":    true,
	"longitude":   true,
	"source":      true,
	"relay_state": true,
	"message":     true,
}

var metisTagRe = tagPattern(metisTagNames())

func metisTagNames() []string {
	names := make([]string, 0, len(metisTagFields)+1)
	for tag := range metisTagFields {
		names = append(names, string(tag))
	}
	return append(names, string(TagEND))
}

// DecodeMetisFrame decodes one Metis logger frame. Metis dates are
// four-digit, so no century hint is involved. Failure semantics match
// DecodeFrame: a bad segment drops only its own tag.
func DecodeMetisFrame(raw string) (DecodedFrame, error) {
	frame := DecodedFrame{Records: make(map[Tag][]Record)}
	for _, m := range metisTagRe.FindAllStringSubmatch(raw, -1) {
		tag := Tag(m[1])
		if tag == TagEND {
			continue
		}
		rec, err := decodeMetisSegment(tag, m[2])
		if err != nil {
			frame.Dropped = append(frame.Dropped, DroppedTag{Tag: tag, Status: TagMalformed, Reason: err.Error()})
			continue
		}
		frame.Records[tag] = append(frame.Records[tag], rec)
	}
	return frame, nil
}

func decodeMetisSegment(tag Tag, seg string) (Record, error) {
	names := metisTagFields[tag]

	// WNCH carries a single free-text winch status message.
	if tag == TagWNCH {
		return Record{"message": strings.Trim(strings.TrimSpace(seg), ",")}, nil
	}

	fields := splitSegment(seg, tagSpec{sep: ","})
	required := len(names) - metisOptionalTrailing[tag]
	if len(fields) < required || len(fields) > len(names) {
		return nil, fmt.Errorf("want %d fields, got %d", required, len(fields))
	}

	rec := make(Record, len(fields))
	for i, name := range names[:len(fields)] {
		if metisStringFields[name] {
			rec[name] = fields[i]
			continue
		}
		rec[name] = safeFloat(fields[i])
	}

	// Date and time fields merge into a single ISO timestamp; "NA" padding
	// yields nil.
	if _, hasDate := rec["date"]; hasDate {
		date, _ := rec["date"].(string)
		tod, _ := rec["time"].(string)
		delete(rec, "date")
		rec["time"] = metisTimestamp(date, tod)
	}

	if tag == TagINIT {
		rec["latitude"] = decodeMetisPosition(fieldAt(fields, names, "latitude"))
		rec["longitude"] = decodeMetisPosition(fieldAt(fields, names, "longitude"))
	}
	return rec, nil
}

// metisTimestamp joins the logger's date and time fields, e.g. "2024-02-08"
// and "23:15:00". Logger fill values ("NA", "NAN") yield nil.
func metisTimestamp(date, tod string) any {
	joined := date + "T" + tod
	if strings.Contains(joined, "NA") {
		return nil
	}
	return joined
}

func fieldAt(fields, names []string, name string) string {
	for i, n := range names {
		if n == name && i < len(fields) {
			return fields[i]
		}
	}
	return ""
}
