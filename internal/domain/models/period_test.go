package models

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePeriod(t *testing.T) {
	p, err := ParsePeriod("2024-01")
	require.NoError(t, err)
	assert.Equal(t, Period{Year: 2024, Month: time.January}, p)
	assert.Equal(t, "2024-01", p.String())

	for _, raw := range []string{"", "2024-1", "2024-13", "24-01", "2024-01-01", "abcd-ef", "0000-01"} {
		_, err := ParsePeriod(raw)
		assert.Truef(t, errors.Is(err, ErrInvalidPeriod), "expected invalid period for %q", raw)
	}
}

func TestPeriod_Bounds(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	p := Period{Year: 2024, Month: time.December}
	assert.Equal(t, time.Date(2024, time.December, 1, 0, 0, 0, 0, paris), p.Start(paris))
	assert.Equal(t, time.Date(2025, time.January, 1, 0, 0, 0, 0, paris), p.End(paris))
	assert.Equal(t, Period{Year: 2024, Month: time.November}, p.Previous())
	assert.Equal(t, Period{Year: 2023, Month: time.December}, Period{Year: 2024, Month: time.January}.Previous())
}

func TestPeriod_MonthsUntil(t *testing.T) {
	now := Period{Year: 2025, Month: time.February}

	cases := map[string]int{
		"2023-12": 14,
		"2024-02": 12,
		"2024-03": 11,
		"2025-02": 0,
		"2025-03": -1,
	}
	for raw, want := range cases {
		p, err := ParsePeriod(raw)
		require.NoError(t, err)
		assert.Equal(t, want, p.MonthsUntil(now), raw)
	}
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("boom")
	key := ArchiveKey{TenantID: "t1", Period: Period{Year: 2024, Month: time.January}}

	assert.ErrorIs(t, &QueryError{TenantID: "t1", Cause: cause}, cause)
	assert.ErrorIs(t, &PersistError{Key: key, Cause: cause}, cause)
	assert.ErrorIs(t, &PurgeError{Key: key, Cause: cause}, cause)
	assert.ErrorIs(t, &RenderError{Structural: true, Cause: cause}, cause)
	assert.ErrorIs(t, &ConflictError{Field: "_id", Cause: cause}, cause)
	assert.Equal(t, "validation failed: zone_id is required", (&ValidationError{Field: "zone_id"}).Error())
	assert.Equal(t, "report:t1:2024-01", key.LockKey())
}
