package datefmt

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToDisplayDate(t *testing.T) {
	got, err := ToDisplayDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "1-Mar-2024", got)

	got, err = ToDisplayDate("2024-12-25")
	require.NoError(t, err)
	assert.Equal(t, "25-Dec-2024", got)

	got, err = ToDisplayDate("")
	require.NoError(t, err)
	assert.Equal(t, "", got)

	_, err = ToDisplayDate("not-a-date")
	var fmtErr *FormatError
	require.ErrorAs(t, err, &fmtErr)
	assert.Equal(t, "not-a-date", fmtErr.Value)
}

func TestToWireDate(t *testing.T) {
	got, err := ToWireDate("1-Mar-2024")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got)

	// Date pickers already emit wire form.
	got, err = ToWireDate("2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", got)

	_, err = ToWireDate("garbage")
	var fmtErr *FormatError
	assert.ErrorAs(t, err, &fmtErr)
}

func TestDateRoundTrip(t *testing.T) {
	wireDates := []string{"2024-01-01", "2024-02-29", "2024-12-31", "1999-06-15", "2025-08-09"}
	for _, d := range wireDates {
		display, err := ToDisplayDate(d)
		require.NoError(t, err)
		back, err := ToWireDate(display)
		require.NoError(t, err)
		assert.Equal(t, d, back, "round trip through %s", display)
	}
}

func TestTo12Hour(t *testing.T) {
	assert.Equal(t, "2:30 PM", To12Hour("14:30"))
	assert.Equal(t, "12:05 AM", To12Hour("00:05"))
	assert.Equal(t, "12:00 PM", To12Hour("12:00"))

	// Non-time data passes through unchanged.
	assert.Equal(t, "soon", To12Hour("soon"))
	assert.Equal(t, "25:99", To12Hour("25:99"))
}

func TestTo24Hour(t *testing.T) {
	assert.Equal(t, "14:30", To24Hour("2:30 PM"))
	assert.Equal(t, "00:05", To24Hour("12:05 AM"))
	assert.Equal(t, "09:15", To24Hour("9:15 am"))

	assert.Equal(t, "soon", To24Hour("soon"))
	assert.Equal(t, "14:30", To24Hour("14:30"))
}

func TestTimeRoundTrip(t *testing.T) {
	for hour := 0; hour < 24; hour++ {
		for _, minute := range []int{0, 1, 30, 59} {
			t24 := fmt.Sprintf("%02d:%02d", hour, minute)
			assert.Equal(t, t24, To24Hour(To12Hour(t24)))
		}
	}
}
