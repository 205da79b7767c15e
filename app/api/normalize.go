package api

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Plausible millisecond-epoch window. Anything below is assumed to be in
// seconds, anything at or above is scaled down until it fits. Backends have
// been observed sending ISO strings, seconds, milliseconds and values with
// spurious extra digits.
const (
	minPlausibleMs = int64(1_000_000_000_000)
	maxPlausibleMs = int64(1_000_000_000_000_000)
)

// normalizeExpiryMs turns whatever the backend sent as an expiry into an
// absolute millisecond epoch. Unusable input falls back to now + fallback so
// the countdown never starts at zero because of a backend clock/unit bug.
func normalizeExpiryMs(raw json.RawMessage, now time.Time, fallback time.Duration) int64 {
	fallbackMs := now.Add(fallback).UnixMilli()

	value := strings.TrimSpace(string(raw))
	if value == "" || value == "null" {
		return fallbackMs
	}

	if strings.HasPrefix(value, `"`) {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return fallbackMs
		}
		value = strings.TrimSpace(s)
		if value == "" {
			return fallbackMs
		}
		if ts, err := time.Parse(time.RFC3339, value); err == nil {
			return clampPlausibleMs(ts.UnixMilli(), fallbackMs)
		}
	}

	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return clampPlausibleMs(n, fallbackMs)
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return clampPlausibleMs(int64(f), fallbackMs)
	}

	return fallbackMs
}

func clampPlausibleMs(v, fallbackMs int64) int64 {
	if v <= 0 {
		return fallbackMs
	}
	for v >= maxPlausibleMs {
		v /= 1000
	}
	if v < minPlausibleMs {
		v *= 1000
	}
	if v < minPlausibleMs || v >= maxPlausibleMs {
		return fallbackMs
	}
	return v
}
