package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRegistry map[string]Platform

func (r fakeRegistry) Lookup(buoyName string) (Platform, bool) {
	p, ok := r[buoyName]
	return p, ok
}

func TestBuildFrameEvent(t *testing.T) {
	fakeClock := clockwork.NewFakeClockAt(time.Date(2021, time.May, 24, 11, 5, 0, 0, time.UTC))
	SetClock(fakeClock)
	t.Cleanup(func() {
		SetClock(nil)
	})

	decoded, err := DecodeFrame(nomLine+"\n"+ctdLine, 21)
	require.NoError(t, err)

	registry := fakeRegistry{
		"PMZA-RIKI": {PlatformID: "PMZA-RIKI", PlatformName: "IML-4"},
	}

	event := BuildFrameEvent(decoded, "viking", []byte(nomLine), registry)

	assert.Equal(t, "PMZA-RIKI", event.BuoyName)
	assert.Equal(t, "2021-05-24T11:00:00", event.Time)
	require.NotNil(t, event.Latitude)
	assert.InDelta(t, 48.6618, *event.Latitude, 1e-4)
	require.NotNil(t, event.Longitude)
	assert.InDelta(t, -68.5817, *event.Longitude, 1e-4)
	assert.Equal(t, "viking", event.Source)
	require.NotNil(t, event.Platform)
	assert.Equal(t, "IML-4", event.Platform.PlatformName)
	assert.Equal(t, fakeClock.Now().UTC(), event.ProcessedAt)
	assert.Len(t, event.Records, 2)
}

func TestBuildFrameEvent_NoEnvelope(t *testing.T) {
	decoded, err := DecodeFrame(ctdLine, 21)
	require.NoError(t, err)

	event := BuildFrameEvent(decoded, "viking", nil, nil)

	assert.Empty(t, event.BuoyName)
	assert.Nil(t, event.Latitude)
	assert.Nil(t, event.Platform)
	assert.Len(t, event.Records, 1)
}

func TestBuildFrameEvent_MaskedPosition(t *testing.T) {
	decoded, err := DecodeFrame("[NOM],PMZA-RIKI,110000,240521,8.3.1,000018C0D36B,00.3,00.0,####,####", 21)
	require.NoError(t, err)

	event := BuildFrameEvent(decoded, "viking", nil, nil)

	assert.Equal(t, "PMZA-RIKI", event.BuoyName)
	assert.Nil(t, event.Latitude, "masked positions stay absent, not zero")
	assert.Nil(t, event.Longitude)
}
