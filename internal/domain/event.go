package domain

// BuildFrameEvent assembles the sink-topic event from a decoded frame. The
// envelope segment (NOM for Viking frames, INIT for Metis) supplies the buoy
// identity, frame clock, and position; registry enrichment is skipped when
// the buoy name is unknown or the registry is nil.
func BuildFrameEvent(decoded DecodedFrame, source string, raw []byte, registry PlatformRegistry) FrameEvent {
	event := FrameEvent{
		Source:      source,
		Records:     decoded.Records,
		Dropped:     decoded.Dropped,
		RawPayload:  raw,
		ProcessedAt: clock.Now().UTC(),
	}

	envelope := decoded.Record1(TagNOM)
	if envelope == nil {
		envelope = decoded.Record1(TagINIT)
	}
	if envelope == nil {
		return event
	}

	if name, ok := envelope["buoy_name"].(string); ok {
		event.BuoyName = name
	}
	if t, ok := envelope["time"].(string); ok {
		event.Time = t
	}
	if lat, ok := envelope["latitude"].(float64); ok {
		event.Latitude = &lat
	}
	if lon, ok := envelope["longitude"].(float64); ok {
		event.Longitude = &lon
	}

	if registry != nil && event.BuoyName != "" {
		if platform, ok := registry.Lookup(event.BuoyName); ok {
			event.Platform = &platform
		}
	}
	return event
}
