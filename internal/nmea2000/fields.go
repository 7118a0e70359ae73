package nmea2000

import (
	"encoding/binary"
	"math"
)

// payload reads little-endian NMEA 2000 fields. Values at or above a type's
// reserved range mean "data not available" and read as !ok.
type payload []byte

func (p payload) uint8At(i int) (uint8, bool) {
	if i >= len(p) || p[i] >= 0xFD {
		return 0, false
	}
	return p[i], true
}

func (p payload) uint16At(i int) (uint16, bool) {
	if i+2 > len(p) {
		return 0, false
	}
	v := binary.LittleEndian.Uint16(p[i:])
	return v, v < 0xFFFD
}

func (p payload) int16At(i int) (int16, bool) {
	if i+2 > len(p) {
		return 0, false
	}
	v := int16(binary.LittleEndian.Uint16(p[i:]))
	return v, v < 0x7FFD
}

func (p payload) uint32At(i int) (uint32, bool) {
	if i+4 > len(p) {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(p[i:])
	return v, v < 0xFFFFFFFD
}

func (p payload) int32At(i int) (int32, bool) {
	if i+4 > len(p) {
		return 0, false
	}
	v := int32(binary.LittleEndian.Uint32(p[i:]))
	return v, v < 0x7FFFFFFD
}

func (p payload) int64At(i int) (int64, bool) {
	if i+8 > len(p) {
		return 0, false
	}
	v := int64(binary.LittleEndian.Uint64(p[i:]))
	return v, v < 0x7FFFFFFFFFFFFFFD
}

// scaled helpers return NaN for unavailable fields.

func (p payload) udouble16(i int, resolution float64) float64 {
	if v, ok := p.uint16At(i); ok {
		return float64(v) * resolution
	}
	return math.NaN()
}

func (p payload) double16(i int, resolution float64) float64 {
	if v, ok := p.int16At(i); ok {
		return float64(v) * resolution
	}
	return math.NaN()
}

func (p payload) udouble32(i int, resolution float64) float64 {
	if v, ok := p.uint32At(i); ok {
		return float64(v) * resolution
	}
	return math.NaN()
}

func (p payload) double32(i int, resolution float64) float64 {
	if v, ok := p.int32At(i); ok {
		return float64(v) * resolution
	}
	return math.NaN()
}

func (p payload) double64(i int, resolution float64) float64 {
	if v, ok := p.int64At(i); ok {
		return float64(v) * resolution
	}
	return math.NaN()
}

// Available reports whether a parsed float field carried data.
func Available(v float64) bool {
	return !math.IsNaN(v)
}
