package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeUnit(t *testing.T) {
	tests := []struct {
		input    string
		expected TimeUnit
		duration time.Duration
	}{
		{input: "nanosecond", expected: Nanosecond, duration: time.Nanosecond},
		{input: "microseconds", expected: Microsecond, duration: time.Microsecond},
		{input: "millisecond", expected: Millisecond, duration: time.Millisecond},
		{input: "second", expected: Second, duration: time.Second},
		{input: "SECONDS", expected: Second, duration: time.Second},
		{input: " Minute ", expected: Minute, duration: time.Minute},
		{input: "hours", expected: Hour, duration: time.Hour},
		{input: "day", expected: Day, duration: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			unit, err := ParseTimeUnit(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, unit)
			assert.Equal(t, tt.duration, unit.Duration())
		})
	}
}

func TestParseTimeUnit_Invalid(t *testing.T) {
	for _, input := range []string{"", "s", "fortnight", "1m"} {
		_, err := ParseTimeUnit(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestTimeUnit_String(t *testing.T) {
	assert.Equal(t, "second", Second.String())
	assert.Equal(t, "day", Day.String())
	assert.Equal(t, "TimeUnit(42)", TimeUnit(42).String())
	assert.Equal(t, time.Duration(0), TimeUnit(42).Duration())
}
