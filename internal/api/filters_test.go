package api

import (
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/internal/models"
)

func TestParseFilterSpec(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/chats/c1/dashboard?participants=Alice,%20Bob&from=2024-01-01&to=2024-01-31&period=Morning", nil)

	spec, err := parseFilterSpec(r)
	require.NoError(t, err)

	assert.Equal(t, []string{"Alice", "Bob"}, spec.Participants)
	assert.Equal(t, models.PeriodMorning, spec.TimePeriod)
	require.NotNil(t, spec.DateRange)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), spec.DateRange.From)
	require.NotNil(t, spec.DateRange.To)
	assert.Equal(t, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), *spec.DateRange.To)
}

func TestParseFilterSpec_Defaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/chats/c1/dashboard", nil)

	spec, err := parseFilterSpec(r)
	require.NoError(t, err)
	assert.Empty(t, spec.Participants)
	assert.Nil(t, spec.DateRange)
	assert.Empty(t, spec.TimePeriod)
	assert.Empty(t, spec.SentimentTypes)
	assert.Empty(t, spec.Granularity)
}

func TestParseFilterSpec_SentimentParams(t *testing.T) {
	r := httptest.NewRequest("GET",
		"/api/chats/c1/sentiment?sentiments=positive,negative&granularity=segment", nil)

	spec, err := parseFilterSpec(r)
	require.NoError(t, err)
	assert.Equal(t, []string{"positive", "negative"}, spec.SentimentTypes)
	assert.Equal(t, models.GranularitySegment, spec.Granularity)
}

func TestParseFilterSpec_AcceptsKnownPeriods(t *testing.T) {
	periods := []string{
		models.PeriodAllDay, models.PeriodMorning, models.PeriodAfternoon,
		models.PeriodEvening, models.PeriodNight,
	}
	for _, period := range periods {
		r := httptest.NewRequest("GET", "/x?period="+url.QueryEscape(period), nil)
		spec, err := parseFilterSpec(r)
		require.NoError(t, err)
		assert.Equal(t, period, spec.TimePeriod)
	}
}

func TestParseFilterSpec_Errors(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"bad from date", "/x?from=01-01-2024"},
		{"bad to date", "/x?from=2024-01-01&to=Jan31"},
		{"to without from", "/x?to=2024-01-31"},
		{"bad granularity", "/x?granularity=weekly"},
		{"bad period", "/x?period=Dawn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFilterSpec(httptest.NewRequest("GET", tt.url, nil))
			assert.Error(t, err)
		})
	}
}
