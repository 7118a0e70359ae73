package nmea2000

import (
	"math"
	"time"

	"github.com/pscheid92/n2kbridge/internal/domain"
)

const (
	PGNSystemTime         uint32 = 126992
	PGNProductInformation uint32 = 126996
	PGNVesselHeading      uint32 = 127250
	PGNMagneticVariation  uint32 = 127258
	PGNSpeed              uint32 = 128259
	PGNWaterDepth         uint32 = 128267
	PGNPositionRapid      uint32 = 129025
	PGNCOGSOGRapid        uint32 = 129026
	PGNGNSSPosition       uint32 = 129029
	PGNAISClassAPosition  uint32 = 129038
	PGNAISClassBPosition  uint32 = 129039
	PGNGNSSSatellites     uint32 = 129540
	PGNAISStaticData      uint32 = 129794
	PGNWindData           uint32 = 130306
)

// ReceivePGNs are the groups the gateway forwards into its hubs.
var ReceivePGNs = []uint32{
	PGNSystemTime,
	PGNVesselHeading,
	PGNMagneticVariation,
	PGNSpeed,
	PGNWaterDepth,
	PGNPositionRapid,
	PGNCOGSOGRapid,
	PGNGNSSPosition,
	PGNWindData,
}

const (
	secondsPerDay = 86400
	radToDeg      = 180 / math.Pi
)

// HeadingReference distinguishes true and magnetic bearings.
type HeadingReference uint8

const (
	HeadingTrue     HeadingReference = 0
	HeadingMagnetic HeadingReference = 1
)

// SystemTime is PGN 126992.
type SystemTime struct {
	SID     uint8
	Source  uint8
	Days    uint16  // since 1970-01-01
	Seconds float64 // since midnight UTC
}

// Time combines the date and time-of-day fields into a UTC instant.
func (s SystemTime) Time() time.Time {
	whole, frac := math.Modf(s.Seconds)
	return time.Unix(int64(s.Days)*secondsPerDay+int64(whole), int64(math.Round(frac*1e9))).UTC()
}

func ParseSystemTime(m domain.Message) (SystemTime, bool) {
	if m.PGN != PGNSystemTime || len(m.Data) < 8 {
		return SystemTime{}, false
	}
	p := payload(m.Data)
	days, ok := p.uint16At(2)
	if !ok {
		return SystemTime{}, false
	}
	ticks, ok := p.uint32At(4)
	if !ok || ticks >= secondsPerDay*10000 {
		return SystemTime{}, false
	}
	return SystemTime{
		SID:     p[0],
		Source:  p[1] & 0x0F,
		Days:    days,
		Seconds: float64(ticks) * 1e-4,
	}, true
}

// Heading is PGN 127250. Angles are in degrees; Deviation and Variation are
// NaN when not transmitted.
type Heading struct {
	SID       uint8
	Heading   float64
	Deviation float64
	Variation float64
	Reference HeadingReference
}

func ParseHeading(m domain.Message) (Heading, bool) {
	if m.PGN != PGNVesselHeading || len(m.Data) < 8 {
		return Heading{}, false
	}
	p := payload(m.Data)
	h := Heading{
		SID:       p[0],
		Heading:   p.udouble16(1, 1e-4) * radToDeg,
		Deviation: p.double16(3, 1e-4) * radToDeg,
		Variation: p.double16(5, 1e-4) * radToDeg,
		Reference: HeadingReference(p[7] & 0x03),
	}
	if !Available(h.Heading) || h.Reference > HeadingMagnetic {
		return Heading{}, false
	}
	return h, true
}

// MagneticVariation is PGN 127258.
type MagneticVariation struct {
	SID       uint8
	Source    uint8
	Days      uint16
	Variation float64 // degrees, east positive
}

func ParseMagneticVariation(m domain.Message) (MagneticVariation, bool) {
	if m.PGN != PGNMagneticVariation || len(m.Data) < 6 {
		return MagneticVariation{}, false
	}
	p := payload(m.Data)
	v := MagneticVariation{
		SID:       p[0],
		Source:    p[1] & 0x0F,
		Variation: p.double16(4, 1e-4) * radToDeg,
	}
	v.Days, _ = p.uint16At(2)
	if !Available(v.Variation) {
		return MagneticVariation{}, false
	}
	return v, true
}

// BoatSpeed is PGN 128259. Speeds are in m/s, NaN when not transmitted.
type BoatSpeed struct {
	SID        uint8
	WaterRef   float64
	GroundRef  float64
	SensorType uint8
}

func ParseBoatSpeed(m domain.Message) (BoatSpeed, bool) {
	if m.PGN != PGNSpeed || len(m.Data) < 6 {
		return BoatSpeed{}, false
	}
	p := payload(m.Data)
	s := BoatSpeed{
		SID:        p[0],
		WaterRef:   p.udouble16(1, 0.01),
		GroundRef:  p.udouble16(3, 0.01),
		SensorType: p[5],
	}
	if !Available(s.WaterRef) {
		return BoatSpeed{}, false
	}
	return s, true
}

// WaterDepth is PGN 128267. Depth is below the transducer in metres; Offset
// is positive to the waterline, negative to the keel.
type WaterDepth struct {
	SID    uint8
	Depth  float64
	Offset float64
	Range  float64
}

func ParseWaterDepth(m domain.Message) (WaterDepth, bool) {
	if m.PGN != PGNWaterDepth || len(m.Data) < 7 {
		return WaterDepth{}, false
	}
	p := payload(m.Data)
	d := WaterDepth{
		SID:    p[0],
		Depth:  p.udouble32(1, 0.01),
		Offset: p.double16(5, 0.001),
		Range:  math.NaN(),
	}
	if r, ok := p.uint8At(7); ok {
		d.Range = float64(r) * 10
	}
	if !Available(d.Depth) {
		return WaterDepth{}, false
	}
	return d, true
}

// Position is PGN 129025 in decimal degrees.
type Position struct {
	Latitude  float64
	Longitude float64
}

func ParsePositionRapid(m domain.Message) (Position, bool) {
	if m.PGN != PGNPositionRapid || len(m.Data) < 8 {
		return Position{}, false
	}
	p := payload(m.Data)
	pos := Position{
		Latitude:  p.double32(0, 1e-7),
		Longitude: p.double32(4, 1e-7),
	}
	if !Available(pos.Latitude) || !Available(pos.Longitude) {
		return Position{}, false
	}
	return pos, true
}

// COGSOG is PGN 129026. COG in degrees, SOG in m/s.
type COGSOG struct {
	SID       uint8
	Reference HeadingReference
	COG       float64
	SOG       float64
}

func ParseCOGSOG(m domain.Message) (COGSOG, bool) {
	if m.PGN != PGNCOGSOGRapid || len(m.Data) < 6 {
		return COGSOG{}, false
	}
	p := payload(m.Data)
	c := COGSOG{
		SID:       p[0],
		Reference: HeadingReference(p[1] & 0x03),
		COG:       p.udouble16(2, 1e-4) * radToDeg,
		SOG:       p.udouble16(4, 0.01),
	}
	if !Available(c.COG) && !Available(c.SOG) {
		return COGSOG{}, false
	}
	return c, true
}

// GNSSPosition is PGN 129029.
type GNSSPosition struct {
	SID             uint8
	Days            uint16
	Seconds         float64
	Latitude        float64
	Longitude       float64
	Altitude        float64
	Method          uint8
	Satellites      uint8
	HDOP            float64
	GeoidSeparation float64
}

func ParseGNSSPosition(m domain.Message) (GNSSPosition, bool) {
	if m.PGN != PGNGNSSPosition || len(m.Data) < 43 {
		return GNSSPosition{}, false
	}
	p := payload(m.Data)
	g := GNSSPosition{
		SID:             p[0],
		Seconds:         p.udouble32(3, 1e-4),
		Latitude:        p.double64(7, 1e-16),
		Longitude:       p.double64(15, 1e-16),
		Altitude:        p.double64(23, 1e-6),
		Method:          p[31] >> 4,
		Satellites:      p[33],
		HDOP:            p.double16(34, 0.01),
		GeoidSeparation: p.double32(38, 0.01),
	}
	g.Days, _ = p.uint16At(1)
	if !Available(g.Latitude) || !Available(g.Longitude) {
		return GNSSPosition{}, false
	}
	return g, true
}

// WindReference is the reference of PGN 130306.
type WindReference uint8

const (
	WindTrueNorth     WindReference = 0
	WindMagneticNorth WindReference = 1
	WindApparent      WindReference = 2
	WindTrueBoat      WindReference = 3
	WindTrueWater     WindReference = 4
)

// Wind is PGN 130306. Speed in m/s, angle in degrees.
type Wind struct {
	SID       uint8
	Speed     float64
	Angle     float64
	Reference WindReference
}

func ParseWind(m domain.Message) (Wind, bool) {
	if m.PGN != PGNWindData || len(m.Data) < 6 {
		return Wind{}, false
	}
	p := payload(m.Data)
	w := Wind{
		SID:       p[0],
		Speed:     p.udouble16(1, 0.01),
		Angle:     p.udouble16(3, 1e-4) * radToDeg,
		Reference: WindReference(p[5] & 0x07),
	}
	if !Available(w.Speed) || !Available(w.Angle) {
		return Wind{}, false
	}
	return w, true
}
