package enums

import "fmt"

// TrackingScope bounds what a tenant has authorized the platform to capture.
type TrackingScope string

const (
	TrackingScopeBasic         TrackingScope = "basic"
	TrackingScopeFull          TrackingScope = "full"
	TrackingScopeAnalyticsOnly TrackingScope = "analytics_only"
)

var validTrackingScopes = []TrackingScope{
	TrackingScopeBasic,
	TrackingScopeFull,
	TrackingScopeAnalyticsOnly,
}

// String implements fmt.Stringer.
func (t TrackingScope) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingScope.
func (t TrackingScope) IsValid() bool {
	for _, candidate := range validTrackingScopes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTrackingScope converts raw input into a TrackingScope.
func ParseTrackingScope(value string) (TrackingScope, error) {
	for _, candidate := range validTrackingScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking scope %q", value)
}
