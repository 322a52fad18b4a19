package enums

import (
	"fmt"
	"strings"
)

// ListingStatus mirrors the availability flag owned by listing authoring.
type ListingStatus string

const (
	ListingStatusAvailable ListingStatus = "AVAILABLE"
	ListingStatusSoldOut   ListingStatus = "SOLD_OUT"
	ListingStatusInactive  ListingStatus = "INACTIVE"
)

var validListingStatuses = []ListingStatus{
	ListingStatusAvailable,
	ListingStatusSoldOut,
	ListingStatusInactive,
}

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known ListingStatus.
func (s ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validListingStatuses {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
