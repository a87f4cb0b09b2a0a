// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"testing"
	"time"
)

func TestParseHorizon(t *testing.T) {
	tests := []struct {
		in      string
		want    Horizon
		wantErr bool
	}{
		{in: "forever", want: Horizon{Forever: true}},
		{in: "Forever ", want: Horizon{Forever: true}},
		{in: "never", want: Horizon{Never: true}},
		{in: "0", want: Horizon{Never: true}},
		{in: "", want: Horizon{Never: true}},
		{in: "4 weeks", want: Horizon{Duration: 28 * 24 * time.Hour}},
		{in: "1 hour", want: Horizon{Duration: time.Hour}},
		{in: "3 months", want: Horizon{Duration: 90 * 24 * time.Hour}},
		{in: "1 year", want: Horizon{Duration: 365 * 24 * time.Hour}},
		{in: "0 days", want: Horizon{Never: true}},
		{in: "36h", want: Horizon{Duration: 36 * time.Hour}},
		{in: "-1h", want: Horizon{Never: true}},
		{in: "4 fortnights", wantErr: true},
		{in: "many weeks", wantErr: true},
		{in: "-2 weeks", wantErr: true},
		{in: "soon", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseHorizon(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHorizon(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseHorizon(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestHorizon_Before(t *testing.T) {
	now := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	h := MustParseHorizon("4 weeks")
	if got, want := h.Before(now), now.Add(-28*24*time.Hour); !got.Equal(want) {
		t.Errorf("Before() = %v, want %v", got, want)
	}
}

func TestHorizon_String(t *testing.T) {
	tests := map[string]Horizon{
		"forever": {Forever: true},
		"never":   {Never: true},
		"1h0m0s":  {Duration: time.Hour},
	}
	for want, h := range tests {
		if got := h.String(); got != want {
			t.Errorf("String() = %q, want %q", got, want)
		}
	}
}
