// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

// Package geo provides great-circle distance and travel speed computation
// for GPS fixes. All functions are pure and deterministic.
package geo

import (
	"math"
	"time"
)

// CoordinateEpsilon is the threshold for considering two coordinates equal.
// DETERMINISM: Direct float equality is unreliable under IEEE 754; 1e-7
// degrees is roughly 1.1cm at the equator, well below GPS accuracy.
const CoordinateEpsilon = 1e-7

const earthRadiusKm = 6371.0

// SameCoordinates returns true if two coordinate pairs are equal within
// CoordinateEpsilon. Used by the spoofing heuristic, which must compare a
// submitted fix against a published challenge location without tripping on
// floating-point representation.
func SameCoordinates(lat1, lon1, lat2, lon2 float64) bool {
	return math.Abs(lat1-lat2) < CoordinateEpsilon && math.Abs(lon1-lon2) < CoordinateEpsilon
}

// IsZeroLocation returns true if the coordinates are the (0, 0) sentinel,
// which indicates that no geolocation data is available.
func IsZeroLocation(lat, lon float64) bool {
	return math.Abs(lat) < CoordinateEpsilon && math.Abs(lon) < CoordinateEpsilon
}

// DistanceKm calculates the great-circle distance between two points on
// Earth using the Haversine formula. Returns distance in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := lat1 * math.Pi / 180.0
	lon1Rad := lon1 * math.Pi / 180.0
	lat2Rad := lat2 * math.Pi / 180.0
	lon2Rad := lon2 * math.Pi / 180.0

	dLat := lat2Rad - lat1Rad
	dLon := lon2Rad - lon1Rad

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// DistanceMeters is DistanceKm in meters, matching the unit used by
// challenge verification radii and GPS accuracy values.
func DistanceMeters(lat1, lon1, lat2, lon2 float64) float64 {
	return DistanceKm(lat1, lon1, lat2, lon2) * 1000.0
}

// ImpliedSpeedKmH returns the travel speed in km/h required to cover the
// distance between two timestamped fixes. Returns 0 when the second fix is
// not after the first (out-of-order or duplicate timestamps carry no speed
// information).
func ImpliedSpeedKmH(lat1, lon1 float64, t1 time.Time, lat2, lon2 float64, t2 time.Time) float64 {
	elapsed := t2.Sub(t1)
	if elapsed <= 0 {
		return 0
	}

	// DETERMINISM: epsilon guard instead of a direct float comparison with
	// zero. 1e-9 hours (3.6µs) is below any meaningful travel time delta.
	const floatEpsilon = 1e-9
	hours := elapsed.Hours()
	if math.Abs(hours) < floatEpsilon {
		hours = 0.001
	}

	return DistanceKm(lat1, lon1, lat2, lon2) / hours
}

// RoundTo2Decimals rounds a float64 to 2 decimal places, used when embedding
// distances and speeds in human-readable fraud reasons.
func RoundTo2Decimals(f float64) float64 {
	return math.Round(f*100) / 100
}
