// Proofcheck - Proof-of-Visit Verification for Location Challenges
// Copyright 2026 WanderWin
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wanderwin/proofcheck

package geo

import (
	"math"
	"testing"
	"time"
)

func TestDistanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		wantKm                 float64
		toleranceKm            float64
	}{
		{
			name: "same point",
			lat1: 42.3314, lon1: -83.0458,
			lat2: 42.3314, lon2: -83.0458,
			wantKm:      0,
			toleranceKm: 0.001,
		},
		{
			name: "NYC to London",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 51.5074, lon2: -0.1278,
			wantKm:      5570,
			toleranceKm: 50,
		},
		{
			name: "NYC to Boston",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 42.3601, lon2: -71.0589,
			wantKm:      306,
			toleranceKm: 10,
		},
		{
			name: "antimeridian crossing",
			lat1: 0, lon1: 179.5,
			lat2: 0, lon2: -179.5,
			wantKm:      111.19,
			toleranceKm: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DistanceKm(tt.lat1, tt.lon1, tt.lat2, tt.lon2)
			if math.Abs(got-tt.wantKm) > tt.toleranceKm {
				t.Errorf("DistanceKm() = %.2f km, want %.2f ± %.2f km", got, tt.wantKm, tt.toleranceKm)
			}
		})
	}
}

func TestDistanceMeters(t *testing.T) {
	// A fix ~50m north of the challenge location must stay inside a 100m radius.
	const lat = 42.3314
	const lon = -83.0458
	offsetLat := lat + 50.0/111320.0 // ~50m north

	got := DistanceMeters(lat, lon, offsetLat, lon)
	if got < 40 || got > 60 {
		t.Errorf("DistanceMeters() = %.1f m, want ~50 m", got)
	}
}

func TestImpliedSpeedKmH(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name                   string
		lat1, lon1, lat2, lon2 float64
		elapsed                time.Duration
		wantMin, wantMax       float64
	}{
		{
			name: "stationary",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 40.7128, lon2: -74.0060,
			elapsed: time.Hour,
			wantMin: 0, wantMax: 0.1,
		},
		{
			name: "NYC to Boston in 4 hours is drivable",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 42.3601, lon2: -71.0589,
			elapsed: 4 * time.Hour,
			wantMin: 60, wantMax: 100,
		},
		{
			name: "NYC to London in 30 minutes is not",
			lat1: 40.7128, lon1: -74.0060,
			lat2: 51.5074, lon2: -0.1278,
			elapsed: 30 * time.Minute,
			wantMin: 10000, wantMax: 12000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImpliedSpeedKmH(tt.lat1, tt.lon1, base, tt.lat2, tt.lon2, base.Add(tt.elapsed))
			if got < tt.wantMin || got > tt.wantMax {
				t.Errorf("ImpliedSpeedKmH() = %.1f, want in [%.1f, %.1f]", got, tt.wantMin, tt.wantMax)
			}
		})
	}
}

func TestImpliedSpeedKmHOutOfOrder(t *testing.T) {
	base := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	got := ImpliedSpeedKmH(40.7128, -74.0060, base, 51.5074, -0.1278, base.Add(-time.Minute))
	if got != 0 {
		t.Errorf("ImpliedSpeedKmH() with out-of-order fixes = %.1f, want 0", got)
	}
}

func TestSameCoordinates(t *testing.T) {
	if !SameCoordinates(42.3314, -83.0458, 42.3314, -83.0458) {
		t.Error("identical coordinates should compare equal")
	}
	if !SameCoordinates(42.3314, -83.0458, 42.3314+1e-9, -83.0458) {
		t.Error("sub-epsilon difference should compare equal")
	}
	if SameCoordinates(42.3314, -83.0458, 42.3324, -83.0458) {
		t.Error("distinct coordinates should not compare equal")
	}
}
