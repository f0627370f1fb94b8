// Package geo converts FIT semicircle coordinates to WGS84 degrees.
package geo

import (
	"math"

	"openfms/fitstream/internal/protocol"
)

// semicircles per degree: 2^31 semicircles span 180 degrees
const semicirclesPerDegree = float64(1<<31) / 180

// Field name pairs annotated by AnnotateWGS84
var coordinateFields = [][2]string{
	{"position_lat", "position_long"},
	{"start_position_lat", "start_position_long"},
}

const (
	wgs84Suffix = "_wgs84"
	wgs84Units  = "wgs84"
)

// SemicirclesToDegrees converts a semicircle angle to degrees.
func SemicirclesToDegrees(s int32) float64 {
	return float64(s) / semicirclesPerDegree
}

// DegreesToSemicircles converts degrees to the nearest semicircle angle.
func DegreesToSemicircles(deg float64) int32 {
	return int32(math.Round(deg * semicirclesPerDegree))
}

// AnnotateWGS84 returns a copy of rec with <name>_wgs84 degree fields added
// after each complete latitude/longitude pair. rec is returned unchanged if
// it carries no coordinates.
func AnnotateWGS84(rec *protocol.Record) *protocol.Record {
	var extra []protocol.Field
	for _, pair := range coordinateFields {
		lat, okLat := degrees(rec, pair[0])
		lon, okLon := degrees(rec, pair[1])
		if !okLat || !okLon {
			continue
		}
		extra = append(extra,
			protocol.Field{Name: pair[0] + wgs84Suffix, Value: protocol.Float64(lat), Units: wgs84Units},
			protocol.Field{Name: pair[1] + wgs84Suffix, Value: protocol.Float64(lon), Units: wgs84Units},
		)
	}
	if len(extra) == 0 {
		return rec
	}
	return rec.With(extra...)
}

func degrees(rec *protocol.Record, name string) (float64, bool) {
	v, ok := rec.Value(name)
	if !ok || v.Kind() != protocol.KindSInt32 {
		return 0, false
	}
	s, _ := v.Int()
	return SemicirclesToDegrees(int32(s)), true
}
