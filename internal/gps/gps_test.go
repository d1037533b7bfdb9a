package gps

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	rmcValid   = "$GPRMC,123519,A,4807.038,N,01131.000,E,022.4,084.4,240826,003.1,W*6F\r\n"
	rmcInvalid = "$GPRMC,123519,V,4807.038,N,01131.000,E,022.4,084.4,240826,003.1,W*78\r\n"
	ggaFix     = "$GPGGA,123519,4807.038,N,01131.000,E,1,08,0.9,545.4,M,46.9,M,,*47\r\n"
)

func TestDrainParsesFix(t *testing.T) {
	r := NewReceiver(strings.NewReader(rmcValid+ggaFix), nil)

	assert.False(t, r.FixValid())
	r.Drain()

	require.True(t, r.FixValid())
	require.True(t, r.Updated())

	got := r.Read()
	assert.InDelta(t, 48.1173, got.Latitude, 0.0001)
	assert.InDelta(t, 11.5166, got.Longitude, 0.0001)
	assert.InDelta(t, 22.4*knotsToKmh, got.SpeedKmh, 0.01)
	assert.InDelta(t, 84.4, got.HeadingDeg, 0.01)
	assert.InDelta(t, 545.4, got.AltitudeM, 0.01)
	assert.Equal(t, 8, got.Satellites)
	require.True(t, got.TimeValid)
	assert.Equal(t, time.Date(2026, 8, 24, 12, 35, 19, 0, time.UTC), got.Time)

	// Read 清除新鲜标记，历史定位仍然有效
	assert.False(t, r.Updated())
	assert.True(t, r.FixValid())
}

func TestInvalidFixIgnored(t *testing.T) {
	r := NewReceiver(strings.NewReader(rmcInvalid), nil)
	r.Drain()

	assert.False(t, r.FixValid())
	assert.False(t, r.Updated())
}

func TestGarbageAndPartialLines(t *testing.T) {
	input := "garbage\r\n$GPRMC,bad*00\r\n" + rmcValid[:20]
	r := NewReceiver(strings.NewReader(input), nil)
	r.Drain()
	assert.False(t, r.FixValid())

	// 续传剩余半句后整句生效
	r2 := NewReceiver(strings.NewReader(rmcValid[:20]+rmcValid[20:]), nil)
	r2.Drain()
	assert.True(t, r2.FixValid())
}

func TestOverlongLineDiscarded(t *testing.T) {
	long := strings.Repeat("x", 500) + "\r\n" + rmcValid
	r := NewReceiver(strings.NewReader(long), nil)
	r.Drain()

	// 超长垃圾行不影响后续解析
	assert.True(t, r.FixValid())
}
