// Package datefmt converts between the gateway wire formats for dates and
// times and the formats shown to staff.
package datefmt

import (
	"fmt"
	"strings"
	"time"
)

const (
	wireDateLayout    = "2006-01-02"
	displayDateLayout = "2-Jan-2006"
	wireTimeLayout    = "15:04"
	displayTimeLayout = "3:04 PM"
)

// InvalidDate is shown in place of a date that failed to parse.
const InvalidDate = "Invalid Date"

// FormatError reports a value that could not be parsed in the expected layout.
type FormatError struct {
	Value  string
	Layout string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Value, e.Layout)
}

// ToDisplayDate converts a wire date (2024-03-01) to display form (1-Mar-2024).
// An empty input stays empty; anything else that does not parse is a FormatError,
// and callers render InvalidDate instead.
func ToDisplayDate(wireDate string) (string, error) {
	if wireDate == "" {
		return "", nil
	}
	t, err := time.Parse(wireDateLayout, wireDate)
	if err != nil {
		return "", &FormatError{Value: wireDate, Layout: wireDateLayout}
	}
	return t.Format(displayDateLayout), nil
}

// ToWireDate converts a display date back to wire form. Date pickers hand us
// values already in wire form, so that layout is accepted too.
func ToWireDate(value string) (string, error) {
	if t, err := time.Parse(displayDateLayout, value); err == nil {
		return t.Format(wireDateLayout), nil
	}
	if t, err := time.Parse(wireDateLayout, value); err == nil {
		return t.Format(wireDateLayout), nil
	}
	return "", &FormatError{Value: value, Layout: displayDateLayout}
}

// To12Hour converts 14:30 to 2:30 PM. Values without a ":" separator, or that
// otherwise fail to parse, are not times and pass through unchanged.
func To12Hour(time24 string) string {
	if !strings.Contains(time24, ":") {
		return time24
	}
	t, err := time.Parse(wireTimeLayout, time24)
	if err != nil {
		return time24
	}
	return t.Format(displayTimeLayout)
}

// To24Hour converts 2:30 PM to 14:30, passing non-time input through unchanged.
func To24Hour(time12 string) string {
	if !strings.Contains(time12, ":") {
		return time12
	}
	for _, layout := range []string{displayTimeLayout, "3:04 pm"} {
		if t, err := time.Parse(layout, time12); err == nil {
			return t.Format(wireTimeLayout)
		}
	}
	return time12
}
