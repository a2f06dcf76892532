// Package polyline implements Google's encoded polyline algorithm at the
// standard precision of 5 decimal places, the format OSRM uses for route
// geometries.
package polyline

import "math"

// Decode decodes an encoded polyline into (lat, lon) pairs.
func Decode(encoded string) [][2]float64 {
	if encoded == "" {
		return nil
	}

	var coords [][2]float64
	index := 0
	lat := 0
	lon := 0

	for index < len(encoded) {
		latDelta, next := decodeValue(encoded, index)
		index = next
		lat += latDelta

		lonDelta, next := decodeValue(encoded, index)
		index = next
		lon += lonDelta

		coords = append(coords, [2]float64{float64(lat) / 1e5, float64(lon) / 1e5})
	}

	return coords
}

func decodeValue(encoded string, index int) (int, int) {
	shift := 0
	result := 0

	for index < len(encoded) {
		b := int(encoded[index]) - 63
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	if result&1 != 0 {
		return ^(result >> 1), index
	}
	return result >> 1, index
}

// Encode encodes (lat, lon) pairs into a polyline string.
func Encode(coords [][2]float64) string {
	if len(coords) == 0 {
		return ""
	}

	buf := make([]byte, 0, len(coords)*4)
	prevLat := 0
	prevLon := 0

	for _, c := range coords {
		lat := int(math.Round(c[0] * 1e5))
		lon := int(math.Round(c[1] * 1e5))

		buf = encodeValue(buf, lat-prevLat)
		buf = encodeValue(buf, lon-prevLon)

		prevLat = lat
		prevLon = lon
	}

	return string(buf)
}

func encodeValue(buf []byte, value int) []byte {
	if value < 0 {
		value = ^(value << 1)
	} else {
		value <<= 1
	}

	for value >= 0x20 {
		buf = append(buf, byte((value&0x1f)|0x20)+63)
		value >>= 5
	}
	return append(buf, byte(value)+63)
}
