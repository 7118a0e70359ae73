package nmea2000

import (
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func systemTimeMessage(days uint16, ticks uint32) domain.Message {
	data := make([]byte, 8)
	data[0] = 1
	data[1] = 0xF0 // GPS source, reserved bits set
	binary.LittleEndian.PutUint16(data[2:], days)
	binary.LittleEndian.PutUint32(data[4:], ticks)
	return domain.Message{PGN: PGNSystemTime, Data: data}
}

func TestParseSystemTime(t *testing.T) {
	// 2024-03-15 12:34:56.5 UTC
	want := time.Date(2024, 3, 15, 12, 34, 56, 500_000_000, time.UTC)
	days := uint16(want.Unix() / 86400)
	ticks := uint32((12*3600+34*60+56)*10000 + 5000)

	st, ok := ParseSystemTime(systemTimeMessage(days, ticks))
	require.True(t, ok)
	assert.Equal(t, days, st.Days)
	assert.Equal(t, uint8(0), st.Source)
	assert.True(t, want.Equal(st.Time()), "got %v", st.Time())
}

func TestParseSystemTime_Unavailable(t *testing.T) {
	tests := []struct {
		name string
		msg  domain.Message
	}{
		{"days not available", systemTimeMessage(0xFFFF, 1000)},
		{"time not available", systemTimeMessage(19797, 0xFFFFFFFF)},
		{"time past midnight", systemTimeMessage(19797, 86400*10000)},
		{"short payload", domain.Message{PGN: PGNSystemTime, Data: []byte{1, 2, 3}}},
		{"wrong pgn", domain.Message{PGN: PGNPositionRapid, Data: make([]byte, 8)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseSystemTime(tt.msg)
			assert.False(t, ok)
		})
	}
}

func positionMessage(lat, lon float64) domain.Message {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[0:], uint32(int32(math.Round(lat*1e7))))
	binary.LittleEndian.PutUint32(data[4:], uint32(int32(math.Round(lon*1e7))))
	return domain.Message{PGN: PGNPositionRapid, Data: data}
}

func TestParsePositionRapid(t *testing.T) {
	pos, ok := ParsePositionRapid(positionMessage(60.1234567, -24.9876543))
	require.True(t, ok)
	assert.InDelta(t, 60.1234567, pos.Latitude, 1e-9)
	assert.InDelta(t, -24.9876543, pos.Longitude, 1e-9)

	na := domain.Message{PGN: PGNPositionRapid, Data: []byte{0xFF, 0xFF, 0xFF, 0x7F, 0, 0, 0, 0}}
	_, ok = ParsePositionRapid(na)
	assert.False(t, ok)
}

func TestParseHeading(t *testing.T) {
	data := []byte{7, 0, 0, 0xFF, 0x7F, 0xFF, 0x7F, byte(HeadingMagnetic)}
	binary.LittleEndian.PutUint16(data[1:], uint16(math.Round(90/radToDeg*1e4)))

	h, ok := ParseHeading(domain.Message{PGN: PGNVesselHeading, Data: data})
	require.True(t, ok)
	assert.InDelta(t, 90.0, h.Heading, 0.01)
	assert.False(t, Available(h.Deviation))
	assert.False(t, Available(h.Variation))
	assert.Equal(t, HeadingMagnetic, h.Reference)
}

func TestParseWaterDepth(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint32(data[1:], 1234) // 12.34 m
	offset := int16(-500)
	binary.LittleEndian.PutUint16(data[5:], uint16(offset))
	data[7] = 0xFF

	d, ok := ParseWaterDepth(domain.Message{PGN: PGNWaterDepth, Data: data})
	require.True(t, ok)
	assert.InDelta(t, 12.34, d.Depth, 1e-9)
	assert.InDelta(t, -0.5, d.Offset, 1e-9)
	assert.False(t, Available(d.Range))
}

func TestParseWind(t *testing.T) {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint16(data[1:], 514) // 5.14 m/s
	binary.LittleEndian.PutUint16(data[3:], uint16(math.Round(45/radToDeg*1e4)))
	data[5] = byte(WindApparent)

	w, ok := ParseWind(domain.Message{PGN: PGNWindData, Data: data})
	require.True(t, ok)
	assert.InDelta(t, 5.14, w.Speed, 1e-9)
	assert.InDelta(t, 45.0, w.Angle, 0.01)
	assert.Equal(t, WindApparent, w.Reference)
}

func TestParseCOGSOG(t *testing.T) {
	data := []byte{1, byte(HeadingTrue), 0, 0, 0, 0, 0xFF, 0xFF}
	binary.LittleEndian.PutUint16(data[2:], uint16(math.Round(180/radToDeg*1e4)))
	binary.LittleEndian.PutUint16(data[4:], 300)

	c, ok := ParseCOGSOG(domain.Message{PGN: PGNCOGSOGRapid, Data: data})
	require.True(t, ok)
	assert.InDelta(t, 180.0, c.COG, 0.01)
	assert.InDelta(t, 3.0, c.SOG, 1e-9)
}

func TestParseGNSSPosition(t *testing.T) {
	data := make([]byte, 43)
	binary.LittleEndian.PutUint16(data[1:], 19797)
	binary.LittleEndian.PutUint32(data[3:], 45296*10000) // 12:34:56
	binary.LittleEndian.PutUint64(data[7:], uint64(int64(601234567)*1e9))
	binary.LittleEndian.PutUint64(data[15:], uint64(int64(249876543)*1e9))
	binary.LittleEndian.PutUint64(data[23:], 12_500_000) // 12.5 m
	data[31] = 0x10                                      // GNSS fix
	data[33] = 9
	binary.LittleEndian.PutUint16(data[34:], 90) // HDOP 0.9
	binary.LittleEndian.PutUint32(data[38:], uint32(int32(1850)))

	g, ok := ParseGNSSPosition(domain.Message{PGN: PGNGNSSPosition, Data: data})
	require.True(t, ok)
	assert.InDelta(t, 60.1234567, g.Latitude, 1e-9)
	assert.InDelta(t, 24.9876543, g.Longitude, 1e-9)
	assert.InDelta(t, 12.5, g.Altitude, 1e-9)
	assert.InDelta(t, 45296.0, g.Seconds, 1e-6)
	assert.Equal(t, uint8(1), g.Method)
	assert.Equal(t, uint8(9), g.Satellites)
	assert.InDelta(t, 0.9, g.HDOP, 1e-9)
	assert.InDelta(t, 18.5, g.GeoidSeparation, 1e-9)
}
