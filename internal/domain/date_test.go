package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_AddRollsOverMonths(t *testing.T) {
	d := NewDate(2020, time.January, 31)

	assert.Equal(t, NewDate(2020, time.February, 1), d.Add(1))
	assert.Equal(t, NewDate(2020, time.January, 30), d.Add(-1))
}

func TestDate_AddRollsOverLeapYear(t *testing.T) {
	d := NewDate(2020, time.February, 28)

	// 2020 is a leap year
	assert.Equal(t, NewDate(2020, time.February, 29), d.Add(1))
	assert.Equal(t, NewDate(2020, time.March, 1), d.Add(2))
}

func TestDate_OrderingAndEquality(t *testing.T) {
	earlier := NewDate(2020, time.February, 1)
	later := NewDate(2020, time.February, 6)

	assert.True(t, earlier.Before(later))
	assert.True(t, later.After(earlier))
	assert.False(t, earlier.Before(earlier))

	// Dates are comparable values, usable as map keys
	assert.Equal(t, NewDate(2020, time.February, 1), earlier)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2020-02-15")

	require.NoError(t, err)
	assert.Equal(t, NewDate(2020, time.February, 15), d)
	assert.Equal(t, "2020-02-15", d.String())
}

func TestParseDate_Invalid(t *testing.T) {
	_, err := ParseDate("15/02/2020")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "invalid date")
}

func TestDateOf_TruncatesTime(t *testing.T) {
	ts := time.Date(2020, time.February, 15, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, NewDate(2020, time.February, 15), DateOf(ts))
}

func TestDate_IsZero(t *testing.T) {
	assert.True(t, Date{}.IsZero())
	assert.False(t, NewDate(2020, time.January, 1).IsZero())
}
