package enums

import "fmt"

// AggregateField names a counter on the per-tenant daily rollup.
type AggregateField string

const (
	AggregateFieldSessions     AggregateField = "sessions"
	AggregateFieldProductViews AggregateField = "product_views"
)

var validAggregateFields = []AggregateField{
	AggregateFieldSessions,
	AggregateFieldProductViews,
}

// String implements fmt.Stringer.
func (a AggregateField) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AggregateField.
func (a AggregateField) IsValid() bool {
	for _, candidate := range validAggregateFields {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAggregateField converts raw input into an AggregateField.
func ParseAggregateField(value string) (AggregateField, error) {
	for _, candidate := range validAggregateFields {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate field %q", value)
}
