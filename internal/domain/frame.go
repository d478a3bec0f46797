package domain

import (
	"context"
	"errors"
	"time"
)

// ErrMissingCentury is returned when frame decoding is requested without a
// century hint. Compact DDMMYY dates cannot be expanded without it.
var ErrMissingCentury = errors.New("century hint is required to decode compact dates")

// Tag identifies an instrument's segment within a telemetry frame, in its
// on-wire spelling.
type Tag string

// Viking controller tags.
const (
	TagNOM     Tag = "NOM"
	TagCOMP    Tag = "COMP"
	TagOCR     Tag = "OCR"
	TagTriplet Tag = "Triplet"
	TagParDigi Tag = "Par_digi"
	TagSUNA    Tag = "SUNA"
	TagGPS     Tag = "GPS"
	TagCTD     Tag = "CTD"
	TagCTDO    Tag = "CTDO"
	TagRTI     Tag = "RTI"
	TagRDI     Tag = "RDI"
	TagWaveM   Tag = "WAVE_M"
	TagWaveS   Tag = "WAVE_S"
	TagWXT520  Tag = "WXT520"
	TagWMT700  Tag = "WMT700"
	TagWpH     Tag = "WpH"
	TagCO2W    Tag = "CO2_W"
	TagCO2A    Tag = "CO2_A"
	TagDebit   Tag = "Debit"
	TagVEMCO   Tag = "VEMCO"
	TagMO      Tag = "MO"
	TagP0      Tag = "p0"
	TagP1      Tag = "p1"
	TagFIN     Tag = "FIN"
)

// Metis logger tags.
const (
	TagINIT Tag = "INIT"
	TagPOWR Tag = "POWR"
	TagECO1 Tag = "ECO1"
	TagPH   Tag = "PH"
	TagNO3  Tag = "NO3"
	TagWIND Tag = "WIND"
	TagATMS Tag = "ATMS"
	TagWAVE Tag = "WAVE"
	TagADCP Tag = "ADCP"
	TagPCO2 Tag = "PCO2"
	TagWNCH Tag = "WNCH"
	TagEND  Tag = "END"
)

// Record holds the decoded fields of one tagged segment. Values are float64,
// int64, or string; a masked or unreported value is stored as nil.
type Record map[string]any

// TagStatus classifies why a recognized segment contributed no record.
type TagStatus string

const (
	// TagMalformed marks a segment whose field count or content did not
	// match the tag's grammar.
	TagMalformed TagStatus = "malformed"
	// TagUnsupported marks a tag that is part of the vocabulary but has no
	// decoder (OCR, p0, p1).
	TagUnsupported TagStatus = "unsupported"
)

// DroppedTag reports one recognized segment that was dropped during frame
// decoding.
type DroppedTag struct {
	Tag    Tag       `json:"tag"`
	Status TagStatus `json:"status"`
	Reason string    `json:"reason,omitempty"`
}

// DecodedFrame is the structured result of decoding one telemetry frame.
// Repeated tags collect into a list in segment order. Dropped lists the
// recognized segments that failed to decode; unknown tags are not reported.
type DecodedFrame struct {
	Records map[Tag][]Record `json:"records"`
	Dropped []DroppedTag     `json:"dropped,omitempty"`
}

// Record1 returns the first record decoded for tag, or nil if the tag is
// absent from the frame.
func (f DecodedFrame) Record1(tag Tag) Record {
	recs := f.Records[tag]
	if len(recs) == 0 {
		return nil
	}
	return recs[0]
}

// RawEvent represents an unprocessed frame read from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Commit    func(ctx context.Context) error
}

// Platform holds station metadata for a deployed buoy, taken from the
// platform file.
type Platform struct {
	PlatformID   string  `json:"platform_id"`
	PlatformName string  `json:"platform_name"`
	PlatformType string  `json:"platform_type,omitempty"`
	Latitude     float64 `json:"latitude,omitempty"`
	Longitude    float64 `json:"longitude,omitempty"`
	Description  string  `json:"description,omitempty"`
}

// PlatformRegistry resolves a transmitted buoy name to its platform metadata.
type PlatformRegistry interface {
	Lookup(buoyName string) (Platform, bool)
}

// FrameEvent is the decoded, enriched form destined for the sink topic.
type FrameEvent struct {
	BuoyName  string   `json:"buoy_name"`
	Time      string   `json:"time,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Source    string   `json:"source"` // "viking" or "metis"

	Records map[Tag][]Record `json:"records"`
	Dropped []DroppedTag     `json:"dropped_tags,omitempty"`

	// Platform enrichment, populated when the buoy name matches the
	// platform registry.
	Platform *Platform `json:"platform,omitempty"`

	RawPayload  []byte    `json:"-"`
	ProcessedAt time.Time `json:"processed_at"`
}
