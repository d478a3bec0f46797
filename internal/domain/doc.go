// Package domain models the tagged telemetry frames transmitted by IML
// oceanographic buoys and decodes them into structured records.
//
// # Wire format
//
// A buoy transmits one frame per reporting interval. A frame is plain ASCII
// and contains a sequence of bracket-tagged segments:
//
//	[NOM],PMZA-RIKI,110000,240521,8.3.1,000018C0D36B,00.3,00.0,48 39.71N,068 34.90W
//	[COMP],000DA1B4,FFC58202,-4.634,88.61,0.654,27.98,11.14,24.94
//	[CTD],   7.3413,  2.45966,  23.2697, 18.1612
//	...
//	[FIN]
//
// A segment runs from its opening tag to the next '[' and may span newlines
// (ECO-Triplet rows are tab separated on their own line; the RTI profile spans
// two lines). Tags may repeat within a frame: the WXT520 weather station
// emits several lines, each under its own [WXT520] tag, covering different
// measurement groups.
//
// Two controller generations are supported:
//
//   - Viking (2022 format): tags NOM, COMP, Triplet, Par_digi, SUNA, GPS,
//     CTD, CTDO, RTI, RDI, WAVE_M, WAVE_S, WXT520, WMT700, WpH, CO2_W,
//     CO2_A, Debit, VEMCO, MO. Dates are compact DDMMYY and need an external
//     century hint. Decoded by [DecodeFrame].
//   - Metis (2024 logger): tags INIT, POWR, ECO1, CTD, PH, NO3, WIND, ATMS,
//     WAVE, ADCP, PCO2, WNCH. Dates are ISO, no century hint is needed.
//     Decoded by [DecodeMetisFrame].
//
// # Data conventions
//
// Positions:
//
//	Viking NOM: "48 39.71N" / "068 34.90W" — whole degrees, decimal minutes,
//	hemisphere suffix. Decimal degrees = sign × (deg + min/60) with the
//	minute fraction rounded to 4 decimals; sign is {N,E: +1, S,W: -1}.
//	Viking GPS: NMEA-style "4839.7541,N" (DDmm.mmmm).
//	Metis INIT: "48°38.459'N".
//
// Timestamps:
//
//	Viking frames carry HHMMSS and DDMMYY fields. The controller pairs the
//	two-digit year with century-1 (century 21 and "21" give 2021); the
//	convention is isolated in expandYear so it can be corrected in one place.
//	Output is the ISO-8601 form "2021-05-24T11:00:00".
//
// Masked values:
//
//	The controller pads unavailable readings with '#' runs ("####"), and some
//	instruments report NAN or NA sentinels. All of these decode to nil so
//	records marshal to JSON null rather than an unrepresentable NaN.
//
// # Failure semantics
//
// Decoding never fails a whole frame because of one bad segment. A segment
// with the wrong field count, or an unparseable mandatory field, is dropped
// and reported in the frame's Dropped metadata; the remaining segments still
// decode. Tags outside the vocabulary are skipped silently. Tags in the
// vocabulary without a decoder (OCR, p0, p1) are reported as unsupported.
// The only hard error is a missing century hint, which is a caller contract
// violation: guessing a century would silently corrupt every timestamp.
package domain
