package domain

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// tagDecoder decodes the split fields of one segment. A (nil, nil) return
// means the device reported "no data" for this segment ("No Valid Speed",
// masked wave clock): the tag simply contributes no record and is not
// counted as dropped.
type tagDecoder func(fields []string, century int) (Record, error)

// tagSpec is the static grammar entry for one tag: expected field count,
// separator, and the decoder hook that applies tag-specific conversions.
type tagSpec struct {
	arity      int    // mandatory field count; 0 disables the check
	optional   int    // allowed extra trailing fields
	sep        string // field separator
	multiline  bool   // segment data continues across newlines (RTI)
	rawSegment bool   // pass the unsplit segment as a single field (MO)
	decode     tagDecoder
}

// vikingTags is the Viking controller vocabulary. Tags with a nil decoder
// are recognized but not decoded (OCR was never fielded on the buoys; p0/p1
// power strings are unused).
var vikingTags = map[Tag]tagSpec{
	TagNOM:     {arity: 9, optional: 1, sep: ",", decode: decodeNOM},
	TagCOMP:    {arity: 8, sep: ",", decode: decodeCOMP},
	TagTriplet: {arity: 12, sep: "\t", decode: decodeTriplet},
	TagParDigi: {arity: 9, sep: ",", decode: decodeParDigi},
	TagSUNA:    {arity: 9, sep: ",", decode: decodeSUNA},
	TagGPS:     {arity: 11, optional: 1, sep: ",", decode: decodeGPS},
	TagCTD:     {arity: 4, sep: ",", decode: decodeCTD},
	TagCTDO:    {arity: 4, sep: ",", decode: decodeCTDO},
	TagRTI:     {arity: 35, sep: ",", multiline: true, decode: decodeRTI},
	TagRDI:     {arity: 3, sep: ",", decode: decodeRDI},
	TagWaveM:   {arity: 6, sep: ",", decode: decodeWaveM},
	TagWaveS:   {arity: 11, sep: ",", decode: decodeWaveS},
	TagWXT520:  {sep: ",", decode: decodeKeyValue},
	TagWMT700:  {sep: ",", decode: decodeKeyValue},
	TagWpH:     {arity: 11, sep: ",", decode: decodeWpH},
	TagCO2W:    {arity: 15, sep: ",", decode: decodeCO2},
	TagCO2A:    {arity: 15, sep: ",", decode: decodeCO2},
	TagDebit:   {arity: 1, sep: ",", decode: decodeDebit},
	TagVEMCO:   {sep: ",", decode: decodeVEMCO},
	TagMO:      {rawSegment: true, decode: decodeMO},
	TagOCR:     {},
	TagP0:      {},
	TagP1:      {},
}

var (
	vikingTagRe   = tagPattern(vikingTagNames())
	vikingBlockRe = regexp.MustCompile(`(?s)\[NOM].*?\[FIN]`)

	kvRe = regexp.MustCompile(`^([A-Za-z]+)=(-?\d+(?:\.\d+)?)`)
)

func vikingTagNames() []string {
	names := make([]string, 0, len(vikingTags)+1)
	for tag := range vikingTags {
		names = append(names, string(tag))
	}
	return append(names, string(TagFIN))
}

// tagPattern builds the segment matcher for a vocabulary: a bracketed tag,
// an optional separating comma, then everything up to the next '['.
func tagPattern(names []string) *regexp.Regexp {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = regexp.QuoteMeta(n)
	}
	return regexp.MustCompile(`\[(` + strings.Join(quoted, "|") + `)\],?([^[]*)`)
}

// ScanFrames extracts complete Viking frames ([NOM] through [FIN]) from a
// raw transmission log. Partial trailing blocks are discarded.
func ScanFrames(data string) []string {
	return vikingBlockRe.FindAllString(data, -1)
}

// DecodeFrame decodes one Viking telemetry frame into structured records.
// The century hint expands the frame's two-digit years; it is required and
// never guessed. Segment-level failures drop only the failing tag and are
// reported in the result's Dropped metadata.
func DecodeFrame(raw string, century int) (DecodedFrame, error) {
	if century <= 0 {
		return DecodedFrame{}, ErrMissingCentury
	}
	frame := DecodedFrame{Records: make(map[Tag][]Record)}
	for _, m := range vikingTagRe.FindAllStringSubmatch(raw, -1) {
		tag := Tag(m[1])
		if tag == TagFIN {
			continue
		}
		spec := vikingTags[tag]
		if spec.decode == nil {
			frame.Dropped = append(frame.Dropped, DroppedTag{Tag: tag, Status: TagUnsupported})
			continue
		}
		rec, err := decodeSegment(m[2], spec, century)
		if err != nil {
			frame.Dropped = append(frame.Dropped, DroppedTag{Tag: tag, Status: TagMalformed, Reason: err.Error()})
			continue
		}
		if rec != nil {
			frame.Records[tag] = append(frame.Records[tag], rec)
		}
	}
	return frame, nil
}

// decodeSegment splits one segment per its grammar entry and invokes the
// tag's decoder hook.
func decodeSegment(seg string, spec tagSpec, century int) (Record, error) {
	if spec.rawSegment {
		return spec.decode([]string{strings.TrimSpace(seg)}, century)
	}
	fields := splitSegment(seg, spec)
	if spec.arity > 0 {
		if len(fields) < spec.arity || len(fields) > spec.arity+spec.optional {
			return nil, fmt.Errorf("want %d fields, got %d", spec.arity, len(fields))
		}
	}
	return spec.decode(fields, century)
}

func splitSegment(seg string, spec tagSpec) []string {
	s := strings.TrimSpace(seg)
	if spec.multiline {
		s = strings.ReplaceAll(s, "\r\n", spec.sep)
		s = strings.ReplaceAll(s, "\n", spec.sep)
	}
	s = strings.Trim(s, spec.sep)
	fields := strings.Split(s, spec.sep)
	for i, f := range fields {
		fields[i] = strings.TrimSpace(f)
	}
	return fields
}

// decodeNOM handles the buoy envelope: identity, clock, and position.
// A tenth field, the water-presence flag, appears only on controllers with
// the leak detector fitted; its absence is not an error.
func decodeNOM(fields []string, century int) (Record, error) {
	rec := Record{
		"buoy_name":     fields[0],
		"firmware":      fields[3],
		"controller_sn": fields[4],
	}
	t, err := compactTimestamp(fields[1], fields[2], century)
	if err != nil {
		return nil, err
	}
	rec["time"] = t

	rec["latitude"], rec["longitude"] = nil, nil
	if !strings.Contains(fields[7], "#") && !strings.Contains(fields[8], "#") {
		lat, err := DecodePosition(fields[7])
		if err != nil {
			return nil, err
		}
		lon, err := DecodePosition(fields[8])
		if err != nil {
			return nil, err
		}
		rec["latitude"], rec["longitude"] = lat, lon
	}
	if len(fields) == 10 {
		rec["water_detection"] = fields[9]
	}
	return rec, nil
}

// decodeCOMP handles the compass segment. The first two fields are
// big-endian int32 accumulators: the summed sine and cosine of the sampled
// headings, from which the averaged heading is recovered with atan2.
func decodeCOMP(fields []string, _ int) (Record, error) {
	sinSum, err := hexInt32(fields[0])
	if err != nil {
		return nil, err
	}
	cosSum, err := hexInt32(fields[1])
	if err != nil {
		return nil, err
	}
	heading := math.Atan2(float64(sinSum), float64(cosSum)) / math.Pi * 180
	return Record{
		"tot_sin_head":   sinSum,
		"tot_cos_head":   cosSum,
		"heading":        math.Round(heading*100) / 100,
		"averaged_pitch": safeFloat(fields[2]),
		"std_pitch":      safeFloat(fields[3]),
		"averaged_roll":  safeFloat(fields[4]),
		"std_roll":       safeFloat(fields[5]),
		"averaged_tilt":  safeFloat(fields[6]),
		"std_tilt":       safeFloat(fields[7]),
	}, nil
}

// decodeTriplet handles the Seabird ECO-Triplet fluorescence row:
// tab-separated, with an MM/DD/YY date and three wavelength groups.
func decodeTriplet(fields []string, century int) (Record, error) {
	id := strings.SplitN(fields[0], "-", 2)
	if len(id) != 2 {
		return nil, fmt.Errorf("instrument id %q: want <model>-<serial>", fields[0])
	}
	date := strings.Split(fields[1], "/")
	tod := strings.Split(fields[2], ":")
	if len(date) != 3 || len(tod) != 3 {
		return nil, fmt.Errorf("timestamp fields %q %q: want MM/DD/YY and HH:MM:SS", fields[1], fields[2])
	}
	rec := Record{
		"time":          isoTimestamp(expandYear(century, date[2]), date[0], date[1], tod[0], tod[1], tod[2]),
		"model_number":  id[0],
		"serial_number": id[1],
	}
	for i, suffix := range []string{"1", "2", "3"} {
		rec["wavelength_"+suffix] = safeFloat(fields[3+3*i])
		rec["raw_value_"+suffix] = safeFloat(fields[4+3*i])
		rec["calculated_value_"+suffix] = safeFloat(fields[5+3*i])
	}
	return rec, nil
}

// decodePar_digi handles the Satlantic PAR sensor line.
func decodeParDigi(fields []string, century int) (Record, error) {
	model, serial, err := modelSerial(fields[2])
	if err != nil {
		return nil, err
	}
	t, err := compactTimestamp(fields[0], fields[1], century)
	if err != nil {
		return nil, err
	}
	return Record{
		"time":               t,
		"model_number":       model,
		"serial_number":      serial,
		"timer_s":            safeFloat(fields[3]),
		"par":                safeFloat(fields[4]),
		"pitch":              safeFloat(fields[5]),
		"roll":               safeFloat(fields[6]),
		"intern_temperature": safeFloat(fields[7]),
	}, nil
}

// decodeSUNA handles the nitrate sensor. Its clock is a year + day-of-year +
// fractional-hour triple; day counting follows the instrument, which adds
// the day number to January 1st.
func decodeSUNA(fields []string, _ int) (Record, error) {
	model, serial, err := modelSerial(fields[0])
	if err != nil {
		return nil, err
	}
	rec := Record{
		"time":              nil,
		"model_number":      model,
		"serial_number":     serial,
		"nitrate":           safeFloat(fields[3]),
		"nitrogen":          safeFloat(fields[4]),
		"absorbance_254_31": safeFloat(fields[5]),
		"absorbance_350_16": safeFloat(fields[6]),
		"bromide":           safeFloat(fields[7]),
		"spectrum_average":  safeFloat(fields[8]),
	}
	if !strings.Contains(fields[1]+fields[2], "#") {
		if len(fields[1]) < 5 {
			return nil, fmt.Errorf("date field %q: want YYYYDDD", fields[1])
		}
		year, errY := strconv.Atoi(fields[1][:4])
		days, errD := strconv.Atoi(fields[1][4:])
		hours, errH := strconv.ParseFloat(fields[2], 64)
		if errY != nil || errD != nil || errH != nil {
			return nil, fmt.Errorf("timestamp fields %q %q: want YYYYDDD and fractional hours", fields[1], fields[2])
		}
		t := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC).
			Add(time.Duration(days) * 24 * time.Hour).
			Add(time.Duration(hours * float64(time.Hour)))
		rec["time"] = t.Format("2006-01-02T15:04:05")
	}
	return rec, nil
}

// decodeGPS handles the GPRMC-derived fix. The final field carries the
// variation hemisphere with the mode/checksum appended, so only its first
// byte is meaningful.
func decodeGPS(fields []string, century int) (Record, error) {
	lat, err := decodeNMEAPosition(fields[2], fields[3])
	if err != nil {
		return nil, err
	}
	lon, err := decodeNMEAPosition(fields[4], fields[5])
	if err != nil {
		return nil, err
	}
	t, err := compactTimestamp(fields[0], fields[8], century)
	if err != nil {
		return nil, err
	}
	var variation any
	if fields[10] != "" {
		sign, ok := hemisphereSign[fields[10][0]]
		if !ok {
			return nil, fmt.Errorf("variation hemisphere %q: want E or W", fields[10])
		}
		if v, isFloat := safeFloat(fields[9]).(float64); isFloat {
			variation = sign * v
		}
	}
	return Record{
		"time":               t,
		"latitude":           lat,
		"longitude":          lon,
		"speed":              safeFloat(fields[6]),
		"course":             safeFloat(fields[7]),
		"magnetic_variation": variation,
		"validity":           fields[1],
	}, nil
}

var (
	ctdFields  = []string{"temperature", "conductivity", "salinity", "density"}
	ctdoFields = []string{"temperature", "conductivity", "dissolved_oxygen", "salinity"}
)

func decodeCTD(fields []string, _ int) (Record, error) {
	return floatRecord(ctdFields, fields), nil
}

func decodeCTDO(fields []string, _ int) (Record, error) {
	return floatRecord(ctdoFields, fields), nil
}

// decodeRTI handles the Rowetech near-surface profile: a bin line and a
// bottom-track line, 35 values once joined. Velocities are mm/s, amplitudes
// dB, correlations percent.
func decodeRTI(fields []string, _ int) (Record, error) {
	rec := Record{
		"bin":         safeFloat(fields[0]),
		"position_cm": safeFloat(fields[1]),
	}
	beamNames := []string{"beam1", "beam2", "beam3", "beam4", "u", "v", "w", "e",
		"corr1", "corr2", "corr3", "corr4", "amp1", "amp2", "amp3", "amp4"}
	for i, name := range beamNames {
		rec[name] = safeFloat(fields[2+i])
	}
	if fields[18] != "Bot" {
		return nil, fmt.Errorf("bottom-track line opens with %q, want Bot", fields[18])
	}
	for i, name := range beamNames {
		rec["bt_"+name] = safeFloat(fields[19+i])
	}
	return rec, nil
}

// decodeRDI handles the Teledyne velocity summary: a compact timestamp and
// four little-endian int16 earth velocities packed as hex.
func decodeRDI(fields []string, century int) (Record, error) {
	if fields[2] == "No Valid Speed" {
		return nil, nil
	}
	vel, err := hexInt16LE(fields[2], 4)
	if err != nil {
		return nil, err
	}
	t, err := compactTimestamp(fields[0], fields[1], century)
	if err != nil {
		return nil, err
	}
	return Record{
		"time": t,
		"u":    float64(vel[0]),
		"v":    float64(vel[1]),
		"w":    float64(vel[2]),
		"e":    float64(vel[3]),
	}, nil
}

func decodeWaveM(fields []string, _ int) (Record, error) {
	if strings.Contains(fields[0], "#") {
		return nil, nil
	}
	return Record{
		"time":               strings.ReplaceAll(fields[0], "/", "-") + "T" + fields[1],
		"period":             safeFloat(fields[2]),
		"average_height":     safeFloat(fields[3]),
		"significant_height": safeFloat(fields[4]),
		"maximal_height":     safeFloat(fields[5]),
	}, nil
}

func decodeWaveS(fields []string, _ int) (Record, error) {
	return Record{
		"time":            strings.Replace(fields[10], " ", "T", 1),
		"heading":         safeFloat(fields[1]),
		"average_height":  safeFloat(fields[2]),
		"dominant_period": safeFloat(fields[3]),
		"wave_direction":  safeFloat(fields[4]),
		"hmax":            safeFloat(fields[5]),
		"hmax2":           safeFloat(fields[6]),
		"pmax":            safeFloat(fields[7]),
		"roll":            safeFloat(fields[8]),
		"pitch":           safeFloat(fields[9]),
	}, nil
}

// decodeKeyValue handles the Vaisala stations (WXT520, WMT700), which send
// key=value pairs with a unit suffix letter, e.g. "Dn=163D,Sm=22.7K".
func decodeKeyValue(fields []string, _ int) (Record, error) {
	rec := Record{}
	for _, f := range fields {
		m := kvRe.FindStringSubmatch(f)
		if m == nil {
			continue
		}
		rec[m[1]] = safeFloat(m[2])
	}
	if len(rec) == 0 {
		return nil, fmt.Errorf("no key=value pairs in segment")
	}
	return rec, nil
}

func decodeWpH(fields []string, _ int) (Record, error) {
	model, serial, err := modelSerial(fields[0])
	if err != nil {
		return nil, err
	}
	return Record{
		"model":           model,
		"serial_number":   serial,
		"time":            fields[1],
		"sample_number":   safeFloat(fields[2]),
		"error_flag":      safeFloat(fields[3]),
		"ext_ph":          safeFloat(fields[4]),
		"int_ph":          safeFloat(fields[5]),
		"ext_volt":        safeFloat(fields[6]),
		"int_volt":        safeFloat(fields[7]),
		"ph_temperature":  safeFloat(fields[8]),
		"rel_humidity":    safeFloat(fields[9]),
		"int_temperature": safeFloat(fields[10]),
	}, nil
}

// decodeCO2 handles both the air-side and water-side Pro-Oceanus cells;
// they share one layout.
func decodeCO2(fields []string, _ int) (Record, error) {
	return Record{
		"time":                        isoTimestamp(fields[1], fields[2], fields[3], fields[4], fields[5], fields[6]),
		"auto_zero":                   safeFloat(fields[7]),
		"current":                     safeFloat(fields[8]),
		"co2_ppm":                     safeFloat(fields[9]),
		"irga_temperature":            safeFloat(fields[10]),
		"humidity_mbar":               safeFloat(fields[11]),
		"humidity_sensor_temperature": safeFloat(fields[12]),
		"cell_gas_pressure_mbar":      safeFloat(fields[13]),
	}, nil
}

// debitPulseToMS converts one flow-meter pulse per minute to m/s:
// 20000 pulses per nautical mile gives 0.0926 m per pulse over 60 s.
const debitPulseToMS = 0.001543

// decodeDebit handles the flow-meter pulse counter, transmitted as hex.
func decodeDebit(fields []string, _ int) (Record, error) {
	if strings.Contains(fields[0], "#") {
		return Record{"flow": nil}, nil
	}
	pulses, err := strconv.ParseUint(fields[0], 16, 64)
	if err != nil {
		return nil, fmt.Errorf("flow field %q: %w", fields[0], err)
	}
	return Record{"flow": round4(float64(pulses) * debitPulseToMS)}, nil
}

// decodeVEMCO handles the acoustic receiver. The receiver answers "No
// answer" when polled without a detection; that is an absent reading, not a
// decode failure.
func decodeVEMCO(fields []string, _ int) (Record, error) {
	if strings.Contains(fields[0], "No answer") {
		return nil, nil
	}
	if len(fields) != 3 {
		return nil, fmt.Errorf("want 3 fields, got %d", len(fields))
	}
	return Record{
		"time":          strings.Replace(fields[0], " ", "T", 1),
		"protocol":      fields[1],
		"serial_number": fields[2],
	}, nil
}

// moField parses a fixed-width numeric slice of the MO short string, '#'
// padded when unavailable.
func moField(data string, from, to int) any {
	return safeFloat(data[from:to])
}

// moScaled applies a linear correction to a fixed-width slice.
func moScaled(data string, from, to int, scale, offset float64) any {
	v, ok := moField(data, from, to).(float64)
	if !ok {
		return nil
	}
	return v*scale + offset
}

// moExp decodes the mantissa/exponent pairs used for the triplet channels:
// value × 10^(exponent−3).
func moExp(data string, mFrom, mTo, eFrom, eTo int) any {
	mant, okM := moField(data, mFrom, mTo).(float64)
	exp, okE := moField(data, eFrom, eTo).(float64)
	if !okM || !okE {
		return nil
	}
	return mant * math.Pow(10, exp-3)
}

// decodeMO handles the satellite short string: a fixed-width digest of the
// whole buoy state transmitted when only the low-bandwidth channel is up.
// The first byte selects the ADCP model and with it the velocity packing.
func decodeMO(fields []string, _ int) (Record, error) {
	data := fields[0]
	if len(data) < 97 {
		return nil, fmt.Errorf("short string has %d bytes, want at least 97", len(data))
	}
	var model string
	switch data[0] {
	case 'D':
		model = "RDI"
	case 'T':
		model = "RTI"
	default:
		return nil, fmt.Errorf("unknown ADCP model byte %q", data[0])
	}

	vel := []any{nil, nil, nil, nil}
	if model == "RDI" {
		if len(data) < 113 {
			return nil, fmt.Errorf("short string has %d bytes, want at least 113 for RDI velocities", len(data))
		}
		if hexPart := data[97:113]; !strings.Contains(hexPart, "#") {
			raw, err := hexInt16LE(hexPart, 4)
			if err != nil {
				return nil, err
			}
			for i, v := range raw {
				vel[i] = float64(v) / 1000
			}
		}
	} else {
		if len(data) < 109 {
			return nil, fmt.Errorf("short string has %d bytes, want at least 109 for RTI velocities", len(data))
		}
		if hexPart := data[97:109]; !strings.Contains(hexPart, "#") {
			raw, err := hexInt16LE(hexPart, 3)
			if err != nil {
				return nil, err
			}
			for i, v := range raw {
				vel[i] = float64(v) / 1000
			}
		}
	}

	return Record{
		"adcp_model":          model,
		"wind_speed":          moField(data, 1, 3),
		"wind_gust":           moField(data, 3, 6),
		"wind_direction":      moField(data, 6, 9),
		"air_temperature":     moScaled(data, 9, 12, 0.1, 0),
		"air_humidity":        moField(data, 12, 14),
		"atm_pressure":        moScaled(data, 14, 18, 1, 1000),
		"temperature":         moScaled(data, 18, 22, 0.01, 0),
		"salinity":            moScaled(data, 22, 26, 0.01, 0),
		"triplet_700":         moExp(data, 26, 30, 30, 32),
		"triplet_695":         moExp(data, 32, 36, 36, 38),
		"triplet_460":         moExp(data, 38, 42, 42, 44),
		"par":                 moField(data, 44, 48),
		"co2_ppm_water":       moScaled(data, 48, 53, 0.1, 0),
		"co2_ppm_air":         moScaled(data, 53, 58, 0.1, 0),
		"ph":                  moScaled(data, 58, 63, 0.0001, 0),
		"wave_period":         moScaled(data, 63, 66, 0.1, 0),
		"wave_average_height": moScaled(data, 66, 68, 0.1, 0),
		"wave_maximal_height": moScaled(data, 68, 71, 0.1, 0),
		"power_voltage":       moScaled(data, 71, 74, 0.1, 0),
		"solar_charging":      moScaled(data, 74, 76, 0.1, 0),
		"wind_charging":       moScaled(data, 76, 78, 0.1, 0),
		"power_consumption":   moScaled(data, 78, 80, 0.1, 0),
		"pitch":               moField(data, 80, 82),
		"roll":                moField(data, 82, 84),
		"water_flow":          moScaled(data, 84, 86, 0.1, 0),
		"heading":             moField(data, 86, 89),
		"speed":               moField(data, 89, 91),
		"course":              moField(data, 91, 94),
		"rain":                moField(data, 94, 97),
		"u":                   vel[0],
		"v":                   vel[1],
		"w":                   vel[2],
		"e":                   vel[3],
	}, nil
}
