package enums

import "fmt"

// ConversionStatus tracks the lifecycle of a referral click.
type ConversionStatus string

const (
	ConversionStatusPending   ConversionStatus = "pending"
	ConversionStatusConverted ConversionStatus = "converted"
	ConversionStatusAbandoned ConversionStatus = "abandoned"
)

var validConversionStatuses = []ConversionStatus{
	ConversionStatusPending,
	ConversionStatusConverted,
	ConversionStatusAbandoned,
}

// String implements fmt.Stringer.
func (c ConversionStatus) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ConversionStatus.
func (c ConversionStatus) IsValid() bool {
	for _, candidate := range validConversionStatuses {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is allowed.
func (c ConversionStatus) IsTerminal() bool {
	return c == ConversionStatusConverted || c == ConversionStatusAbandoned
}

// ParseConversionStatus converts raw input into a ConversionStatus.
func ParseConversionStatus(value string) (ConversionStatus, error) {
	for _, candidate := range validConversionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid conversion status %q", value)
}
