package encoder

import (
	"fmt"
	"math"
	"strings"

	"github.com/pscheid92/n2kbridge/internal/domain"
	"github.com/pscheid92/n2kbridge/internal/nmea2000"
)

// MaxSentenceLength bounds an NMEA 0183 sentence, checksum included.
const MaxSentenceLength = 100

const (
	msToKnots = 3600.0 / 1852.0
	msToKmh   = 3.6
)

var sentencePGNs = map[uint32]bool{
	nmea2000.PGNPositionRapid: true,
	nmea2000.PGNCOGSOGRapid:   true,
	nmea2000.PGNGNSSPosition:  true,
	nmea2000.PGNVesselHeading: true,
	nmea2000.PGNSpeed:         true,
	nmea2000.PGNWaterDepth:    true,
	nmea2000.PGNWindData:      true,
}

// HasSentence reports whether EncodeSentence knows a translation for pgn.
func HasSentence(pgn uint32) bool {
	return sentencePGNs[pgn]
}

// EncodeSentence translates msg into one NMEA 0183 sentence.
func EncodeSentence(msg domain.Message) (string, bool) {
	var body string
	var ok bool

	switch msg.PGN {
	case nmea2000.PGNPositionRapid:
		body, ok = gll(msg)
	case nmea2000.PGNCOGSOGRapid:
		body, ok = vtg(msg)
	case nmea2000.PGNGNSSPosition:
		body, ok = gga(msg)
	case nmea2000.PGNVesselHeading:
		body, ok = heading(msg)
	case nmea2000.PGNSpeed:
		body, ok = vhw(msg)
	case nmea2000.PGNWaterDepth:
		body, ok = dpt(msg)
	case nmea2000.PGNWindData:
		body, ok = mwv(msg)
	}
	if !ok {
		return "", false
	}

	line := seal(body)
	if len(line) > MaxSentenceLength {
		return "", false
	}
	return line, true
}

func gll(msg domain.Message) (string, bool) {
	pos, ok := nmea2000.ParsePositionRapid(msg)
	if !ok {
		return "", false
	}
	lat, ns := latitude(pos.Latitude)
	lon, ew := longitude(pos.Longitude)
	return fmt.Sprintf("GPGLL,%s,%s,%s,%s,,A,A", lat, ns, lon, ew), true
}

func vtg(msg domain.Message) (string, bool) {
	c, ok := nmea2000.ParseCOGSOG(msg)
	if !ok {
		return "", false
	}
	trueCOG, magCOG := "", ""
	if nmea2000.Available(c.COG) {
		if c.Reference == nmea2000.HeadingMagnetic {
			magCOG = fixed(normalizeDegrees(c.COG), 1)
		} else {
			trueCOG = fixed(normalizeDegrees(c.COG), 1)
		}
	}
	knots, kmh := "", ""
	if nmea2000.Available(c.SOG) {
		knots = fixed(c.SOG*msToKnots, 1)
		kmh = fixed(c.SOG*msToKmh, 1)
	}
	return fmt.Sprintf("GPVTG,%s,T,%s,M,%s,N,%s,K,A", trueCOG, magCOG, knots, kmh), true
}

func gga(msg domain.Message) (string, bool) {
	g, ok := nmea2000.ParseGNSSPosition(msg)
	if !ok {
		return "", false
	}
	lat, ns := latitude(g.Latitude)
	lon, ew := longitude(g.Longitude)

	utc := ""
	if nmea2000.Available(g.Seconds) {
		utc = timeOfDay(g.Seconds)
	}
	hdop := ""
	if nmea2000.Available(g.HDOP) {
		hdop = fixed(g.HDOP, 1)
	}
	alt := ""
	if nmea2000.Available(g.Altitude) {
		alt = fixed(g.Altitude, 1)
	}
	sep := ""
	if nmea2000.Available(g.GeoidSeparation) {
		sep = fixed(g.GeoidSeparation, 1)
	}

	return fmt.Sprintf("GPGGA,%s,%s,%s,%s,%s,%d,%02d,%s,%s,M,%s,M,,",
		utc, lat, ns, lon, ew, fixQuality(g.Method), g.Satellites, hdop, alt, sep), true
}

// fixQuality maps the NMEA 2000 GNSS method to the GGA quality indicator.
func fixQuality(method uint8) int {
	switch method {
	case 1, 2, 3, 4, 5, 6, 8:
		return int(method)
	default:
		return 0
	}
}

func heading(msg domain.Message) (string, bool) {
	h, ok := nmea2000.ParseHeading(msg)
	if !ok {
		return "", false
	}
	if h.Reference == nmea2000.HeadingTrue {
		return fmt.Sprintf("GPHDT,%s,T", fixed(normalizeDegrees(h.Heading), 1)), true
	}
	dev, devDir := signedAngle(h.Deviation)
	vari, varDir := signedAngle(h.Variation)
	return fmt.Sprintf("GPHDG,%s,%s,%s,%s,%s", fixed(normalizeDegrees(h.Heading), 1), dev, devDir, vari, varDir), true
}

func vhw(msg domain.Message) (string, bool) {
	s, ok := nmea2000.ParseBoatSpeed(msg)
	if !ok {
		return "", false
	}
	return fmt.Sprintf("IIVHW,,T,,M,%s,N,%s,K", fixed(s.WaterRef*msToKnots, 1), fixed(s.WaterRef*msToKmh, 1)), true
}

func dpt(msg domain.Message) (string, bool) {
	d, ok := nmea2000.ParseWaterDepth(msg)
	if !ok {
		return "", false
	}
	offset := ""
	if nmea2000.Available(d.Offset) {
		offset = fixed(d.Offset, 1)
	}
	return fmt.Sprintf("IIDPT,%s,%s", fixed(d.Depth, 1), offset), true
}

func mwv(msg domain.Message) (string, bool) {
	w, ok := nmea2000.ParseWind(msg)
	if !ok {
		return "", false
	}
	var ref string
	switch w.Reference {
	case nmea2000.WindApparent:
		ref = "R"
	case nmea2000.WindTrueBoat, nmea2000.WindTrueWater:
		ref = "T"
	default:
		// ground-referenced wind has no MWV representation
		return "", false
	}
	return fmt.Sprintf("WIMWV,%s,%s,%s,N,A", fixed(normalizeDegrees(w.Angle), 1), ref, fixed(w.Speed*msToKnots, 1)), true
}

// latitude formats decimal degrees as ddmm.mmmm and a hemisphere.
func latitude(deg float64) (string, string) {
	hemi := "N"
	if deg < 0 {
		hemi = "S"
	}
	return degreesMinutes(math.Abs(deg), 2), hemi
}

// longitude formats decimal degrees as dddmm.mmmm and a hemisphere.
func longitude(deg float64) (string, string) {
	hemi := "E"
	if deg < 0 {
		hemi = "W"
	}
	return degreesMinutes(math.Abs(deg), 3), hemi
}

func degreesMinutes(deg float64, width int) string {
	d := math.Floor(deg)
	m := math.Round((deg-d)*60*1e4) / 1e4
	if m >= 60 {
		d++
		m -= 60
	}
	return fmt.Sprintf("%0*d%07.4f", width, int(d), m)
}

// timeOfDay formats seconds since midnight as hhmmss.ss. Rounding happens
// before the split so 59.996 s carries into the next minute.
func timeOfDay(seconds float64) string {
	cs := int64(math.Round(seconds*100)) % (24 * 3600 * 100)
	h := cs / 360000
	m := cs / 6000 % 60
	s := cs % 6000
	return fmt.Sprintf("%02d%02d%02d.%02d", h, m, s/100, s%100)
}

func signedAngle(deg float64) (string, string) {
	if !nmea2000.Available(deg) {
		return "", ""
	}
	if deg < 0 {
		return fixed(-deg, 1), "W"
	}
	return fixed(deg, 1), "E"
}

func normalizeDegrees(deg float64) float64 {
	deg = math.Mod(deg, 360)
	if deg < 0 {
		deg += 360
	}
	return deg
}

func fixed(v float64, decimals int) string {
	s := fmt.Sprintf("%.*f", decimals, v)
	if strings.HasPrefix(s, "-0.") && strings.Trim(s[3:], "0") == "" {
		return s[1:]
	}
	return s
}
