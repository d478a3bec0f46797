package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/config"
	"github.com/iml-gddaiss/buoy-telemetry-etl/internal/domain"
)

// FrameTransformer implements Transformer by decoding telemetry frames and
// enriching them with platform metadata. The dialect is fixed per deployment:
// a topic carries either Viking or Metis frames, never both.
type FrameTransformer struct {
	format    string
	century   int
	platforms domain.PlatformRegistry
	logger    *slog.Logger
}

// NewTransformer creates a FrameTransformer. Pass a nil registry to disable
// platform enrichment.
func NewTransformer(format string, century int, platforms domain.PlatformRegistry, logger *slog.Logger) *FrameTransformer {
	return &FrameTransformer{
		format:    format,
		century:   century,
		platforms: platforms,
		logger:    logger,
	}
}

func (t *FrameTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.FrameEvent, error) {
	payload := string(raw.Value)

	var (
		decoded domain.DecodedFrame
		err     error
	)
	switch t.format {
	case config.FormatMetis:
		decoded, err = domain.DecodeMetisFrame(payload)
	default:
		decoded, err = domain.DecodeFrame(payload, t.century)
	}
	if err != nil {
		return domain.FrameEvent{}, fmt.Errorf("decode %s frame: %w", t.format, err)
	}
	if len(decoded.Records) == 0 {
		return domain.FrameEvent{}, errors.New("frame contained no decodable segments")
	}

	event := domain.BuildFrameEvent(decoded, t.format, raw.Value, t.platforms)
	if event.BuoyName == "" {
		t.logger.Debug("frame has no envelope segment",
			"topic", raw.Topic, "partition", raw.Partition, "offset", raw.Offset)
	}
	return event, nil
}
