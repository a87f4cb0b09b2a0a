// Recommender - Per-User Content Recommendation Pipeline
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/recommender

package recommend

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Horizon is a retention or freshness window. It is either unbounded
// (Forever), disabled (Never), or a positive duration.
type Horizon struct {
	Forever  bool
	Never    bool
	Duration time.Duration
}

var horizonUnits = map[string]time.Duration{
	"second": time.Second,
	"minute": time.Minute,
	"hour":   time.Hour,
	"day":    24 * time.Hour,
	"week":   7 * 24 * time.Hour,
	"month":  30 * 24 * time.Hour,
	"year":   365 * 24 * time.Hour,
}

// ParseHorizon accepts "forever", "never", "0", a Go duration ("36h") or a
// count followed by a unit ("4 weeks", "1 hour").
func ParseHorizon(s string) (Horizon, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch v {
	case "forever":
		return Horizon{Forever: true}, nil
	case "never", "0", "":
		return Horizon{Never: true}, nil
	}

	if d, err := time.ParseDuration(v); err == nil {
		if d <= 0 {
			return Horizon{Never: true}, nil
		}
		return Horizon{Duration: d}, nil
	}

	fields := strings.Fields(v)
	if len(fields) != 2 {
		return Horizon{}, fmt.Errorf("invalid horizon %q", s)
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 0 {
		return Horizon{}, fmt.Errorf("invalid horizon count %q", s)
	}
	unit, ok := horizonUnits[strings.TrimSuffix(fields[1], "s")]
	if !ok {
		return Horizon{}, fmt.Errorf("invalid horizon unit %q", s)
	}
	if n == 0 {
		return Horizon{Never: true}, nil
	}
	return Horizon{Duration: time.Duration(n) * unit}, nil
}

// MustParseHorizon is ParseHorizon for known-good literals.
func MustParseHorizon(s string) Horizon {
	h, err := ParseHorizon(s)
	if err != nil {
		panic(err)
	}
	return h
}

// Before returns the cutoff now minus the horizon.
func (h Horizon) Before(now time.Time) time.Time {
	return now.Add(-h.Duration)
}

func (h Horizon) String() string {
	switch {
	case h.Forever:
		return "forever"
	case h.Never:
		return "never"
	default:
		return h.Duration.String()
	}
}
