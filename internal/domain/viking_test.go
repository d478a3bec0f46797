package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	nomLine  = "[NOM],PMZA-RIKI,110000,240521,8.3.1,000018C0D36B,00.3,00.0,48 39.71N,068 34.90W"
	compLine = "[COMP],000DA1B4,FFC58202,-4.634,88.61,0.654,27.98,11.14,24.94"
	ctdLine  = "[CTD],   7.3413,  2.45966,  23.2697, 18.1612"
	gpsLine  = "[GPS],110132,A,4839.7541,N,06834.8903,W,003.7,004.4,240521,017.5,W,*7B"
	rdiLine  = "[RDI],110000,240521,E3FFBB0022001400"
)

func TestDecodeFrame_NOM(t *testing.T) {
	frame, err := DecodeFrame(nomLine, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagNOM)
	require.NotNil(t, rec)
	assert.Equal(t, "PMZA-RIKI", rec["buoy_name"])
	assert.Equal(t, "2021-05-24T11:00:00", rec["time"])
	assert.Equal(t, "8.3.1", rec["firmware"])
	assert.Equal(t, "000018C0D36B", rec["controller_sn"])
	assert.InDelta(t, 48.6618, rec["latitude"].(float64), 1e-4)
	assert.InDelta(t, -68.5817, rec["longitude"].(float64), 1e-4)
	assert.NotContains(t, rec, "water_detection")
}

func TestDecodeFrame_NOM_WaterDetection(t *testing.T) {
	frame, err := DecodeFrame(nomLine+",555", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagNOM)
	require.NotNil(t, rec)
	assert.Equal(t, "555", rec["water_detection"])
}

func TestDecodeFrame_NOM_MaskedPosition(t *testing.T) {
	frame, err := DecodeFrame("[NOM],PMZA-RIKI,110000,240521,8.3.1,000018C0D36B,00.3,00.0,####,####", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagNOM)
	require.NotNil(t, rec)
	assert.Nil(t, rec["latitude"])
	assert.Nil(t, rec["longitude"])
}

func TestDecodeFrame_COMP(t *testing.T) {
	frame, err := DecodeFrame(compLine, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagCOMP)
	require.NotNil(t, rec)
	assert.Equal(t, int64(0x000DA1B4), rec["tot_sin_head"])
	assert.Equal(t, int64(-3833342), rec["tot_cos_head"]) // 0xFFC58202 as two's complement
	assert.Equal(t, -4.634, rec["averaged_pitch"])
	assert.Equal(t, 88.61, rec["std_pitch"])
	assert.Equal(t, 0.654, rec["averaged_roll"])
	assert.Equal(t, 27.98, rec["std_roll"])
	assert.Equal(t, 11.14, rec["averaged_tilt"])
	assert.Equal(t, 24.94, rec["std_tilt"])

	// atan2(893364, -3833342) lands in the second quadrant.
	heading := rec["heading"].(float64)
	assert.Greater(t, heading, 160.0)
	assert.Less(t, heading, 180.0)
}

func TestDecodeFrame_CTD(t *testing.T) {
	frame, err := DecodeFrame(ctdLine, 21)
	require.NoError(t, err)

	want := Record{
		"temperature":  7.3413,
		"conductivity": 2.45966,
		"salinity":     23.2697,
		"density":      18.1612,
	}
	if diff := cmp.Diff(want, frame.Record1(TagCTD)); diff != "" {
		t.Errorf("CTD record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrame_GPS(t *testing.T) {
	frame, err := DecodeFrame(gpsLine, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagGPS)
	require.NotNil(t, rec)
	assert.Equal(t, "2021-05-24T11:01:32", rec["time"])
	assert.InDelta(t, 48.6626, rec["latitude"].(float64), 1e-4)
	assert.InDelta(t, -68.5815, rec["longitude"].(float64), 1e-4)
	assert.Equal(t, 3.7, rec["speed"])
	assert.Equal(t, 4.4, rec["course"])
	assert.Equal(t, -17.5, rec["magnetic_variation"])
	assert.Equal(t, "A", rec["validity"])
}

func TestDecodeFrame_RDI(t *testing.T) {
	frame, err := DecodeFrame(rdiLine, 21)
	require.NoError(t, err)

	want := Record{
		"time": "2021-05-24T11:00:00",
		"u":    -29.0,
		"v":    187.0,
		"w":    34.0,
		"e":    20.0,
	}
	if diff := cmp.Diff(want, frame.Record1(TagRDI)); diff != "" {
		t.Errorf("RDI record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrame_RDI_NoValidSpeed(t *testing.T) {
	frame, err := DecodeFrame("[RDI],110000,240521,No Valid Speed", 21)
	require.NoError(t, err)

	assert.Empty(t, frame.Records[TagRDI])
	assert.Empty(t, frame.Dropped, "a device-reported absence is not a decode failure")
}

func TestDecodeFrame_Triplet(t *testing.T) {
	line := "[Triplet],BBFL2W-1688\t05/24/21\t10:59:03\t700\t1376\t2.786E-03\t695\t190\t1.066E+00\t460\t85\t3.454E+00"
	frame, err := DecodeFrame(line, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagTriplet)
	require.NotNil(t, rec)
	assert.Equal(t, "2021-05-24T10:59:03", rec["time"])
	assert.Equal(t, "BBFL2W", rec["model_number"])
	assert.Equal(t, "1688", rec["serial_number"])
	assert.Equal(t, 700.0, rec["wavelength_1"])
	assert.Equal(t, 1376.0, rec["raw_value_1"])
	assert.InDelta(t, 2.786e-03, rec["calculated_value_1"].(float64), 1e-9)
	assert.Equal(t, 460.0, rec["wavelength_3"])
}

func TestDecodeFrame_SUNA(t *testing.T) {
	line := "[SUNA],SATSLC1363,2021145,12.000192,7.63,0.1068,0.2978,0.2471,0.00,0.000160"
	frame, err := DecodeFrame(line, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagSUNA)
	require.NotNil(t, rec)
	assert.Equal(t, "SATSLC", rec["model_number"])
	assert.Equal(t, "1363", rec["serial_number"])
	// Jan 1 2021 + 145 days + 12.000192 h.
	assert.Equal(t, "2021-05-26T12:00:00", rec["time"])
	assert.Equal(t, 7.63, rec["nitrate"])
	assert.Equal(t, 0.1068, rec["nitrogen"])
	assert.Equal(t, 0.00016, rec["spectrum_average"])
}

func TestDecodeFrame_WXT520_RepeatedTag(t *testing.T) {
	raw := "[WXT520],Dn=163D,Dm=181D,Dx=192D,Sn=18.0K,Sm=22.7K,Sx=28.0K\n" +
		"[WXT520],Ta=6.8C,Ua=45.0P,Pa=1025.4H"
	frame, err := DecodeFrame(raw, 21)
	require.NoError(t, err)

	recs := frame.Records[TagWXT520]
	require.Len(t, recs, 2)
	assert.Equal(t, 163.0, recs[0]["Dn"])
	assert.Equal(t, 22.7, recs[0]["Sm"])
	assert.Equal(t, 6.8, recs[1]["Ta"])
	assert.Equal(t, 1025.4, recs[1]["Pa"])
}

func TestDecodeFrame_WMT700_NegativeValue(t *testing.T) {
	frame, err := DecodeFrame("[WMT700],Dn=162.41D,Dm=179.40D,Dx=196.13D,Sn=-0.74K,Sm=21.53K,Sx=27.46K", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagWMT700)
	require.NotNil(t, rec)
	assert.Equal(t, -0.74, rec["Sn"])
	assert.Equal(t, 21.53, rec["Sm"])
}

func TestDecodeFrame_WpH(t *testing.T) {
	line := "[WpH],SEAFET02138,2021-05-24T11:01:26,1266,0000,7.9519,7.9825,-0.892024,-0.938712,7.4124,3.4,7.6"
	frame, err := DecodeFrame(line, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagWpH)
	require.NotNil(t, rec)
	assert.Equal(t, "SEAFET", rec["model"])
	assert.Equal(t, "02138", rec["serial_number"])
	assert.Equal(t, "2021-05-24T11:01:26", rec["time"])
	assert.Equal(t, 1266.0, rec["sample_number"])
	assert.Equal(t, 7.9519, rec["ext_ph"])
	assert.Equal(t, 7.9825, rec["int_ph"])
	assert.Equal(t, 7.4124, rec["ph_temperature"])
}

func TestDecodeFrame_WaveS(t *testing.T) {
	line := "[WAVE_S],$PSVSW,201.63,1.239,8.695,266.983,1.811,1.575,9.668,3.039,11.004,2021-09-21 00:28:51"
	frame, err := DecodeFrame(line, 21)
	require.NoError(t, err)

	want := Record{
		"time":            "2021-09-21T00:28:51",
		"heading":         201.63,
		"average_height":  1.239,
		"dominant_period": 8.695,
		"wave_direction":  266.983,
		"hmax":            1.811,
		"hmax2":           1.575,
		"pmax":            9.668,
		"roll":            3.039,
		"pitch":           11.004,
	}
	if diff := cmp.Diff(want, frame.Record1(TagWaveS)); diff != "" {
		t.Errorf("WAVE_S record mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeFrame_CO2(t *testing.T) {
	for _, tag := range []Tag{TagCO2W, TagCO2A} {
		line := "[" + string(tag) + "],W M,2021,05,25,11,51,24,55544,52106,448.94,40.00,10.70,13.40,1000,12.3"
		frame, err := DecodeFrame(line, 21)
		require.NoError(t, err)

		rec := frame.Record1(tag)
		require.NotNil(t, rec)
		assert.Equal(t, "2021-05-25T11:51:24", rec["time"])
		assert.Equal(t, 55544.0, rec["auto_zero"])
		assert.Equal(t, 52106.0, rec["current"])
		assert.Equal(t, 448.94, rec["co2_ppm"])
		assert.Equal(t, 40.0, rec["irga_temperature"])
		assert.Equal(t, 10.7, rec["humidity_mbar"])
		assert.Equal(t, 13.4, rec["humidity_sensor_temperature"])
		assert.Equal(t, 1000.0, rec["cell_gas_pressure_mbar"])
	}
}

func TestDecodeFrame_RTI(t *testing.T) {
	raw := "[RTI],1,407,-258,-157,-263,-32,-160,-369,-202,-30,100,100,100,100,84,83,83,84\n" +
		"Bot,-3,-6,-50,56,129,101,-4,-4,100,100,100,100,76,78,78,77"
	frame, err := DecodeFrame(raw, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagRTI)
	require.NotNil(t, rec)
	assert.Equal(t, 1.0, rec["bin"])
	assert.Equal(t, 407.0, rec["position_cm"])
	assert.Equal(t, -258.0, rec["beam1"])
	assert.Equal(t, -160.0, rec["u"])
	assert.Equal(t, -369.0, rec["v"])
	assert.Equal(t, -202.0, rec["w"])
	assert.Equal(t, -30.0, rec["e"])
	assert.Equal(t, 84.0, rec["amp1"])
	assert.Equal(t, -3.0, rec["bt_beam1"])
	assert.Equal(t, 129.0, rec["bt_u"])
	assert.Equal(t, 77.0, rec["bt_amp4"])
}

func TestDecodeFrame_Debit(t *testing.T) {
	frame, err := DecodeFrame("[Debit],00000167", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagDebit)
	require.NotNil(t, rec)
	// 0x167 = 359 pulses over 60 s.
	assert.InDelta(t, 0.5539, rec["flow"].(float64), 1e-4)
}

func TestDecodeFrame_Debit_Masked(t *testing.T) {
	frame, err := DecodeFrame("[Debit],########", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagDebit)
	require.NotNil(t, rec)
	assert.Nil(t, rec["flow"])
}

func TestDecodeFrame_VEMCO(t *testing.T) {
	frame, err := DecodeFrame("[VEMCO],2018-05-05 04:27:35,A69-1602,46179", 21)
	require.NoError(t, err)

	rec := frame.Record1(TagVEMCO)
	require.NotNil(t, rec)
	assert.Equal(t, "2018-05-05T04:27:35", rec["time"])
	assert.Equal(t, "A69-1602", rec["protocol"])
	assert.Equal(t, "46179", rec["serial_number"])
}

func TestDecodeFrame_VEMCO_NoAnswer(t *testing.T) {
	frame, err := DecodeFrame("[VEMCO],No answer", 21)
	require.NoError(t, err)

	assert.Empty(t, frame.Records[TagVEMCO])
	assert.Empty(t, frame.Dropped)
}

func TestDecodeFrame_MO(t *testing.T) {
	// Fixed-width short string: model byte, then packed fields, then the
	// RDI velocity hex block at byte 97.
	short := "D" +
		"05" + "012" + "180" + // wind speed, gust, direction
		"052" + "78" + "0013" + // air temp (x0.1), humidity, pressure (+1000)
		"0512" + "2680" + // water temp (x0.01), salinity (x0.01)
		"1376" + "01" + "0190" + "02" + "0085" + "03" + // triplet mantissa/exponent pairs
		"0158" + // par
		"04213" + "03987" + // CO2 water, air (x0.1)
		"79325" + // pH (x0.0001)
		"044" + "08" + "018" + // wave period, avg height, max height (x0.1)
		"135" + "12" + "00" + "08" + // voltage, solar, wind charging, consumption (x0.1)
		"02" + "01" + "05" + // pitch, roll, water flow (x0.1)
		"330" + "04" + "153" + "000" + // heading, speed, course, rain
		"E3FFBB0022001400"
	require.Len(t, short, 113)

	frame, err := DecodeFrame("[MO],"+short, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagMO)
	require.NotNil(t, rec)
	assert.Equal(t, "RDI", rec["adcp_model"])
	assert.Equal(t, 5.0, rec["wind_speed"])
	assert.Equal(t, 180.0, rec["wind_direction"])
	assert.InDelta(t, 5.2, rec["air_temperature"].(float64), 1e-9)
	assert.InDelta(t, 1013.0, rec["atm_pressure"].(float64), 1e-9)
	assert.InDelta(t, 5.12, rec["temperature"].(float64), 1e-9)
	assert.InDelta(t, 26.8, rec["salinity"].(float64), 1e-9)
	assert.InDelta(t, 13.76, rec["triplet_700"].(float64), 1e-9)
	assert.InDelta(t, 19.0, rec["triplet_695"].(float64), 1e-9)
	assert.InDelta(t, 85.0, rec["triplet_460"].(float64), 1e-9)
	assert.InDelta(t, 421.3, rec["co2_ppm_water"].(float64), 1e-9)
	assert.InDelta(t, 7.9325, rec["ph"].(float64), 1e-9)
	assert.InDelta(t, 13.5, rec["power_voltage"].(float64), 1e-9)
	assert.Equal(t, 330.0, rec["heading"])
	assert.InDelta(t, -0.029, rec["u"].(float64), 1e-9)
	assert.InDelta(t, 0.187, rec["v"].(float64), 1e-9)
}

func TestDecodeFrame_MO_MaskedVelocities(t *testing.T) {
	short := "D" + strings.Repeat("#", 112)
	frame, err := DecodeFrame("[MO],"+short, 21)
	require.NoError(t, err)

	rec := frame.Record1(TagMO)
	require.NotNil(t, rec)
	assert.Equal(t, "RDI", rec["adcp_model"])
	assert.Nil(t, rec["wind_speed"])
	assert.Nil(t, rec["u"])
}

func TestDecodeFrame_PartialFailure(t *testing.T) {
	raw := nomLine + "\n[COMP],XYZ,FFC58202,-4.634,88.61,0.654,27.98,11.14,24.94\n" + ctdLine
	frame, err := DecodeFrame(raw, 21)
	require.NoError(t, err)

	assert.NotNil(t, frame.Record1(TagNOM), "well-formed NOM should survive")
	assert.NotNil(t, frame.Record1(TagCTD), "well-formed CTD should survive")
	assert.Empty(t, frame.Records[TagCOMP], "malformed COMP should be dropped")

	require.Len(t, frame.Dropped, 1)
	assert.Equal(t, TagCOMP, frame.Dropped[0].Tag)
	assert.Equal(t, TagMalformed, frame.Dropped[0].Status)
	assert.NotEmpty(t, frame.Dropped[0].Reason)
}

func TestDecodeFrame_WrongArity(t *testing.T) {
	frame, err := DecodeFrame("[CTD],7.3413,2.45966,23.2697", 21)
	require.NoError(t, err)

	assert.Empty(t, frame.Records[TagCTD])
	require.Len(t, frame.Dropped, 1)
	assert.Equal(t, TagMalformed, frame.Dropped[0].Status)
}

func TestDecodeFrame_UnknownTagIgnored(t *testing.T) {
	frame, err := DecodeFrame("[ZZZZ],1,2,3\n"+ctdLine, 21)
	require.NoError(t, err)

	assert.NotContains(t, frame.Records, Tag("ZZZZ"))
	assert.Empty(t, frame.Dropped)
	assert.NotNil(t, frame.Record1(TagCTD))
}

func TestDecodeFrame_UnsupportedTag(t *testing.T) {
	frame, err := DecodeFrame("[OCR],29,220916", 21)
	require.NoError(t, err)

	assert.Empty(t, frame.Records)
	require.Len(t, frame.Dropped, 1)
	assert.Equal(t, TagOCR, frame.Dropped[0].Tag)
	assert.Equal(t, TagUnsupported, frame.Dropped[0].Status)
}

func TestDecodeFrame_MissingCentury(t *testing.T) {
	_, err := DecodeFrame(nomLine, 0)
	require.ErrorIs(t, err, ErrMissingCentury)
}

func TestDecodeFrame_RecordsMarshalToJSON(t *testing.T) {
	raw := nomLine + "\n" + compLine + "\n[CTD],7.3413,####,23.2697,18.1612"
	frame, err := DecodeFrame(raw, 21)
	require.NoError(t, err)

	data, err := json.Marshal(frame)
	require.NoError(t, err, "masked values must marshal as null, never NaN")
	assert.Contains(t, string(data), `"conductivity":null`)
}

func TestScanFrames(t *testing.T) {
	log := "garbage preamble\n" +
		nomLine + "\n" + ctdLine + "\n[FIN]\n" +
		nomLine + "\n" + compLine + "\n[FIN]\n" +
		nomLine + "\n[CTD], 1.0" // truncated block, no [FIN]

	frames := ScanFrames(log)
	require.Len(t, frames, 2)
	for _, f := range frames {
		assert.Contains(t, f, "[NOM]")
		assert.Contains(t, f, "[FIN]")
	}
}

func TestDecodeFrame_FullBlock(t *testing.T) {
	raw := nomLine + "\n" + compLine + "\n" + ctdLine + "\n" + gpsLine + "\n" + rdiLine + "\n[FIN]"
	frame, err := DecodeFrame(raw, 21)
	require.NoError(t, err)

	assert.Len(t, frame.Records, 5)
	assert.Empty(t, frame.Dropped)
	assert.NotContains(t, frame.Records, TagFIN)
}
