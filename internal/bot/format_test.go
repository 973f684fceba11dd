package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPeriodRangeDay(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC)
	from, to := periodRange("day", now)
	assert.Equal(t, time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), to)
}

func TestPeriodRangeWeekAndMonth(t *testing.T) {
	now := time.Date(2026, 3, 14, 18, 45, 0, 0, time.UTC)

	from, to := periodRange("week", now)
	assert.Equal(t, now.AddDate(0, 0, -7), from)
	assert.Equal(t, now, to)

	from, _ = periodRange("month", now)
	assert.Equal(t, now.AddDate(0, -1, 0), from)
}

func TestParseDateRangeSingleDay(t *testing.T) {
	from, to, err := parseDateRange("05.03.2026", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, from.Add(24*time.Hour), to)
}

func TestParseDateRangeSpan(t *testing.T) {
	from, to, err := parseDateRange("01.03.2026-07.03.2026", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), from)
	// Inclusive range: the 7th itself is covered.
	assert.Equal(t, time.Date(2026, 3, 8, 0, 0, 0, 0, time.UTC), to)
}

func TestParseDateRangeRejectsGarbage(t *testing.T) {
	_, _, err := parseDateRange("2026-03-01", time.UTC)
	require.Error(t, err)

	_, _, err = parseDateRange("07.03.2026-01.03.2026", time.UTC)
	require.Error(t, err)
}

func TestParseAmount(t *testing.T) {
	v, err := parseAmount("1500")
	require.NoError(t, err)
	assert.Equal(t, 1500.0, v)

	v, err = parseAmount("99,50")
	require.NoError(t, err)
	assert.Equal(t, 99.5, v)

	_, err = parseAmount("0")
	require.Error(t, err)
	_, err = parseAmount("-10")
	require.Error(t, err)
	_, err = parseAmount("тысяча")
	require.Error(t, err)
}

func TestParseSettlement(t *testing.T) {
	gross, exp, err := parseSettlement("10000 1000")
	require.NoError(t, err)
	assert.Equal(t, 10000.0, gross)
	assert.Equal(t, 1000.0, exp)

	_, _, err = parseSettlement("10000")
	require.Error(t, err)
	_, _, err = parseSettlement("10000 1000 5")
	require.Error(t, err)
	_, _, err = parseSettlement("-1 0")
	require.Error(t, err)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "4500", formatMoney(4500))
	assert.Equal(t, "4500.5", formatMoney(4500.5))
	assert.Equal(t, "0", formatMoney(0))
}
