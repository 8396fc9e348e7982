package semester

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"college/internal/apperr"
)

func TestWindowNormalizeSortsCalendar(t *testing.T) {
	w, err := Window{
		StartDate: "2026-07-01",
		EndDate:   "2026-11-30",
		Calendar: Calendar{
			{Date: "2026-10-20", Description: "Diwali", Type: "Holiday"},
			{Date: "2026-07-01", Description: "Orientation"},
		},
	}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, Calendar{
		{Date: "2026-07-01", Description: "Orientation", Type: DayNormal},
		{Date: "2026-10-20", Description: "Diwali", Type: DayHoliday},
	}, w.Calendar)
}

func TestWindowNormalizeErrors(t *testing.T) {
	cases := []struct {
		name   string
		window Window
		fields []string
	}{
		{"bad dates", Window{StartDate: "01-07-2026", EndDate: ""}, []string{"startDate", "endDate"}},
		{"reversed", Window{StartDate: "2026-11-30", EndDate: "2026-07-01"}, []string{"endDate"}},
		{"calendar outside", Window{
			StartDate: "2026-07-01", EndDate: "2026-11-30",
			Calendar: Calendar{{Date: "2026-12-25", Type: "holiday"}, {Date: "2026-08-15", Type: "festival"}},
		}, []string{"calendar[0].date", "calendar[1].type"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.window.Normalize()
			e, ok := apperr.As(err)
			require.True(t, ok)
			var got []string
			for _, f := range e.Fields {
				got = append(got, f.Field)
			}
			assert.Equal(t, tc.fields, got)
		})
	}
}

func TestCalendarScan(t *testing.T) {
	var c Calendar
	require.NoError(t, c.Scan([]byte(`[{"date":"2026-08-15","description":"Independence Day","type":"holiday"}]`)))
	assert.Equal(t, "holiday", c[0].Type)

	require.NoError(t, c.Scan(nil))
	assert.Empty(t, c)

	v, err := Calendar(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)
}
