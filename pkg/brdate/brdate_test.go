package brdate

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    time.Time
		wantErr bool
	}{
		{name: "regional", input: "15/03/2024", want: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
		{name: "iso", input: "2024-03-15", want: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)},
		{name: "leap day", input: "29/02/2024", want: time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC)},
		{name: "non leap", input: "29/02/2023", wantErr: true},
		{name: "impossible day", input: "2024-04-31", wantErr: true},
		{name: "month zero", input: "10/00/2024", wantErr: true},
		{name: "single digit day", input: "5/03/2024", wantErr: true},
		{name: "timestamp", input: "2024-03-15T10:00:00Z", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "ontem", wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := Parse(tc.input)
			if tc.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidFormat))
				return
			}
			require.NoError(t, err)
			assert.True(t, tc.want.Equal(got), "got %s", got)
			assert.Equal(t, time.UTC, got.Location())
		})
	}
}

func TestRoundTripIgnoresServerZone(t *testing.T) {
	zones := []string{"UTC", "America/Sao_Paulo", "America/Manaus", "Asia/Tokyo", "Pacific/Auckland"}
	inputs := []string{"01/01/2024", "31/12/1999", "2024-07-09", "2000-02-29"}

	original := time.Local
	t.Cleanup(func() { time.Local = original })

	for _, zone := range zones {
		loc, err := time.LoadLocation(zone)
		if err != nil {
			t.Skipf("zone %s unavailable: %v", zone, err)
		}
		time.Local = loc

		for _, input := range inputs {
			parsed, err := Parse(input)
			require.NoError(t, err)

			rendered := Format(parsed)
			again, err := Parse(rendered)
			require.NoError(t, err, zone)
			assert.True(t, parsed.Equal(again), "%s in %s", input, zone)

			// the local calendar day matches as long as the zone is within ±11h
			if _, offset := parsed.In(loc).Zone(); offset > -12*3600 && offset < 12*3600 {
				assert.Equal(t, parsed.Day(), parsed.In(loc).Day(), "%s in %s", input, zone)
			}
		}
	}
}

func TestFormat(t *testing.T) {
	sp := time.FixedZone("BRT", -3*3600)
	// 22:30 in São Paulo is already the next day in UTC.
	assert.Equal(t, "16/03/2024", Format(time.Date(2024, 3, 15, 22, 30, 0, 0, sp)))
	assert.Equal(t, "", Format(time.Time{}))
}

func TestFormatPtr(t *testing.T) {
	assert.Nil(t, FormatPtr(nil))
	zero := time.Time{}
	assert.Nil(t, FormatPtr(&zero))

	ts := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)
	got := FormatPtr(&ts)
	require.NotNil(t, got)
	assert.Equal(t, "02/01/2024", *got)
}

func TestParseISO(t *testing.T) {
	got, err := ParseISO("2024-01-31")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), got)

	_, err = ParseISO("31/01/2024")
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDayBounds(t *testing.T) {
	ts := time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), StartOfDay(ts))
	assert.Equal(t, time.Date(2024, 1, 31, 23, 59, 59, int(999*time.Millisecond), time.UTC), EndOfDay(ts))
	assert.Equal(t, ts, Normalize(time.Date(2024, 1, 31, 3, 4, 5, 6, time.UTC)))
}

func TestISOToBR(t *testing.T) {
	assert.Equal(t, "01/02/2024", ISOToBR("2024-02-01"))
	assert.Equal(t, "nada", ISOToBR("nada"))
}

func TestValid(t *testing.T) {
	assert.True(t, Valid("01/02/2024"))
	assert.True(t, Valid("2024-02-01"))
	assert.False(t, Valid("2024/02/01"))
	assert.False(t, Valid(""))
	assert.False(t, Valid("31/02/2024"))
	assert.False(t, Valid("2023-02-29"))
	assert.True(t, Valid("29/02/2024"))
}
