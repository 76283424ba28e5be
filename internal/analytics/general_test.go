package analytics

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatlens/chatlens/internal/models"
)

func TestBuildKPIMetrics(t *testing.T) {
	messages := []models.Message{
		msg("Alice", time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)),
		msg("Alice", time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)),
		msg("Bob", time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)),
		msg("Alice", time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)),
	}

	kpis := BuildKPIMetrics(messages)
	require.Len(t, kpis, 4)

	assert.Equal(t, "Total Messages", kpis[0].Title)
	assert.Equal(t, 4.0, kpis[0].Value)
	require.Len(t, kpis[0].Spark, 2)
	assert.Equal(t, SparkPoint{Date: "2024-03-01", Value: 3}, kpis[0].Spark[0])
	assert.Equal(t, SparkPoint{Date: "2024-03-02", Value: 1}, kpis[0].Spark[1])

	assert.Equal(t, "Active Participants", kpis[1].Title)
	assert.Equal(t, 2.0, kpis[1].Value)
	require.Len(t, kpis[1].Spark, 2)
	assert.Equal(t, 2, kpis[1].Spark[0].Value)
	assert.Equal(t, 1, kpis[1].Spark[1].Value)

	assert.Equal(t, "Active Days", kpis[2].Title)
	assert.Equal(t, 2.0, kpis[2].Value)
	assert.Empty(t, kpis[2].Spark)

	assert.Equal(t, "Avg Messages/Day", kpis[3].Title)
	assert.Equal(t, 2.0, kpis[3].Value)
}

func TestBuildKPIMetrics_Empty(t *testing.T) {
	kpis := BuildKPIMetrics(nil)
	require.Len(t, kpis, 4)
	for _, kpi := range kpis {
		assert.Equal(t, 0.0, kpi.Value, kpi.Title)
		assert.Empty(t, kpi.Spark)
	}
}

func TestBuildMessagesOverTime_ZeroFillsGaps(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 3, 1)),
		msg("Bob", day(2024, 3, 1)),
		msg("Alice", day(2024, 3, 10)),
	}

	series := BuildMessagesOverTime(messages)
	require.Len(t, series, 10)
	assert.Equal(t, TimeSeriesPoint{Date: "2024-03-01", Count: 2}, series[0])
	assert.Equal(t, TimeSeriesPoint{Date: "2024-03-05", Count: 0}, series[4])
	assert.Equal(t, TimeSeriesPoint{Date: "2024-03-10", Count: 1}, series[9])
}

func TestBuildMessagesOverTime_Empty(t *testing.T) {
	assert.Equal(t, []TimeSeriesPoint{}, BuildMessagesOverTime(nil))
}

func TestBuildActivityByDay(t *testing.T) {
	messages := []models.Message{
		msg("Alice", time.Date(2024, 3, 3, 9, 0, 0, 0, time.UTC)),  // Sunday
		msg("Alice", time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)), // Sunday
		msg("Bob", time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC)),    // Wednesday
	}

	activity := BuildActivityByDay(messages)
	require.Len(t, activity, 7)

	assert.Equal(t, "Sun", activity[0].Day)
	assert.Equal(t, 2, activity[0].Messages)
	assert.Equal(t, "Wed", activity[3].Day)
	assert.Equal(t, 1, activity[3].Messages)
	assert.Equal(t, 0, activity[1].Messages)

	seen := make(map[string]struct{})
	for _, entry := range activity {
		assert.True(t, strings.HasPrefix(entry.Fill, "#"), "fill %q", entry.Fill)
		seen[entry.Fill] = struct{}{}
	}
	// The lightness ramp makes every weekday color distinct.
	assert.Len(t, seen, 7)
}

func TestBuildHourlyActivity(t *testing.T) {
	messages := []models.Message{
		msg("Alice", time.Date(2024, 3, 1, 0, 5, 0, 0, time.UTC)),
		msg("Alice", time.Date(2024, 3, 1, 23, 5, 0, 0, time.UTC)),
		msg("Bob", time.Date(2024, 3, 2, 23, 40, 0, 0, time.UTC)),
	}

	activity := BuildHourlyActivity(messages)
	require.Len(t, activity, 24)
	assert.Equal(t, HourActivity{Hour: 0, Messages: 1}, activity[0])
	assert.Equal(t, HourActivity{Hour: 12, Messages: 0}, activity[12])
	assert.Equal(t, HourActivity{Hour: 23, Messages: 2}, activity[23])
}

func TestBuildContribution_SingleShareOfVoice(t *testing.T) {
	var all []models.Message
	for i := 0; i < 10; i++ {
		all = append(all, msg("Alice", day(2024, 3, 1+i%5)))
	}
	for i := 0; i < 30; i++ {
		all = append(all, msg("Bob", day(2024, 3, 1+i%5)))
	}

	spec := models.FilterSpec{Participants: []string{"Alice"}}
	filtered := FilterMessages(all, spec)
	contribution := BuildContribution(filtered, all, spec)

	assert.Equal(t, ContributionSingle, contribution.Type)
	data, ok := contribution.Data.(SingleContribution)
	require.True(t, ok)
	assert.Equal(t, "Alice", data.Name)
	assert.Equal(t, 25.0, data.Percentage)
	assert.Equal(t, 75.0, data.OthersPercentage)
}

func TestBuildContribution_SingleWithoutParticipantFilter(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 3, 1)),
		msg("Alice", day(2024, 3, 2)),
	}

	contribution := BuildContribution(messages, messages, models.FilterSpec{})
	data, ok := contribution.Data.(SingleContribution)
	require.True(t, ok)
	assert.Equal(t, 100.0, data.Percentage)
	assert.Equal(t, 0.0, data.OthersPercentage)
}

func TestBuildContribution_Two(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 3, 1)),
		msg("Bob", day(2024, 3, 1)),
		msg("Bob", day(2024, 3, 2)),
	}

	contribution := BuildContribution(messages, messages, models.FilterSpec{})
	assert.Equal(t, ContributionTwo, contribution.Type)
	data, ok := contribution.Data.(TwoContribution)
	require.True(t, ok)
	assert.Equal(t, 3, data.TotalMessages)
	require.Len(t, data.Participants, 2)
	assert.Equal(t, ParticipantMessages{Name: "Alice", Messages: 1}, data.Participants[0])
	assert.Equal(t, ParticipantMessages{Name: "Bob", Messages: 2}, data.Participants[1])
}

func TestBuildContribution_MultiRankedDescending(t *testing.T) {
	var messages []models.Message
	counts := map[string]int{"Alice": 2, "Bob": 5, "Carol": 3, "Dave": 1}
	for name, n := range counts {
		for i := 0; i < n; i++ {
			messages = append(messages, msg(name, day(2024, 3, 1)))
		}
	}

	contribution := BuildContribution(messages, messages, models.FilterSpec{})
	assert.Equal(t, ContributionMulti, contribution.Type)
	data, ok := contribution.Data.(MultiContribution)
	require.True(t, ok)
	require.Len(t, data, 4)
	assert.Equal(t, "Bob", data[0].Name)
	assert.Equal(t, 5, data[0].Messages)
	assert.Equal(t, "Carol", data[1].Name)
	assert.Equal(t, "Dave", data[3].Name)
}

func TestBuildContribution_EmptyIsMulti(t *testing.T) {
	contribution := BuildContribution(nil, nil, models.FilterSpec{})
	assert.Equal(t, ContributionMulti, contribution.Type)
	data, ok := contribution.Data.(MultiContribution)
	require.True(t, ok)
	assert.Empty(t, data)
}

func TestBuildActivityProfile(t *testing.T) {
	messages := []models.Message{
		{Sender: "Alice", WordCount: 3, Date: day(2024, 3, 1)},
		{Sender: "Alice", IsMedia: true, Date: day(2024, 3, 1)},
		{Sender: "Alice", WordCount: 5, IsQuestion: true, LinksCount: 2, EmojisCount: 1, Date: day(2024, 3, 2)},
		{Sender: "Bob", WordCount: 1, Date: day(2024, 3, 2)},
	}

	profile := BuildActivityProfile(messages)
	require.Len(t, profile, 2)

	assert.Equal(t, StyleStats{Name: "Alice", Text: 2, Media: 1, Links: 2, Questions: 1, Emojis: 1}, profile[0])
	assert.Equal(t, StyleStats{Name: "Bob", Text: 1}, profile[1])
}

func TestBuildActivityProfile_TopThreeWhenCrowded(t *testing.T) {
	var messages []models.Message
	counts := map[string]int{"Alice": 4, "Bob": 6, "Carol": 1, "Dave": 5}
	for name, n := range counts {
		for i := 0; i < n; i++ {
			messages = append(messages, models.Message{Sender: name, WordCount: 1, Date: day(2024, 3, 1)})
		}
	}

	profile := BuildActivityProfile(messages)
	require.Len(t, profile, 3)

	names := []string{profile[0].Name, profile[1].Name, profile[2].Name}
	assert.ElementsMatch(t, []string{"Bob", "Dave", "Alice"}, names)
}

func TestBuildActivityProfile_Empty(t *testing.T) {
	assert.Nil(t, BuildActivityProfile(nil))
}

func TestBuildTimeline_TwoParticipantsKeepsSilentSide(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 1, 5)),
		msg("Bob", day(2024, 1, 6)),
		msg("Alice", day(2024, 2, 10)),
		msg("Alice", day(2024, 2, 10)),
	}

	timeline := BuildTimeline(messages)
	assert.Equal(t, ContributionTwo, timeline.Type)
	require.Len(t, timeline.Segments, 2)

	january := timeline.Segments[0]
	assert.Equal(t, "January 2024", january.Month)
	assert.Equal(t, 2, january.TotalMessages)
	require.Len(t, january.ConversationBalance, 2)
	assert.Equal(t, 50.0, january.ConversationBalance[0].Percentage)
	assert.Equal(t, 50.0, january.ConversationBalance[1].Percentage)

	// Bob is silent in February but still appears with 0.
	february := timeline.Segments[1]
	assert.Equal(t, "February 2024", february.Month)
	assert.Equal(t, "10th", february.PeakDay)
	require.Len(t, february.ConversationBalance, 2)
	assert.Equal(t, BalanceEntry{Name: "Alice", Percentage: 100.0}, february.ConversationBalance[0])
	assert.Equal(t, BalanceEntry{Name: "Bob", Percentage: 0.0}, february.ConversationBalance[1])
}

func TestBuildTimeline_MultiParticipantFields(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 1, 1)),
		msg("Bob", day(2024, 1, 2)),
		msg("Carol", day(2024, 1, 2)),
		msg("Bob", day(2024, 1, 3)),
	}

	timeline := BuildTimeline(messages)
	assert.Equal(t, ContributionMulti, timeline.Type)
	require.Len(t, timeline.Segments, 1)

	segment := timeline.Segments[0]
	assert.Equal(t, 3, segment.ActiveParticipants)
	assert.Equal(t, "Bob", segment.MostActive)
	assert.Empty(t, segment.ConversationBalance)
}

func TestBuildTimeline_SingleParticipantBaseOnly(t *testing.T) {
	messages := []models.Message{
		msg("Alice", day(2024, 1, 1)),
		msg("Alice", day(2024, 1, 1)),
		msg("Alice", day(2024, 1, 21)),
	}

	timeline := BuildTimeline(messages)
	assert.Equal(t, ContributionSingle, timeline.Type)
	require.Len(t, timeline.Segments, 1)
	assert.Equal(t, "1st", timeline.Segments[0].PeakDay)
	assert.Empty(t, timeline.Segments[0].ConversationBalance)
	assert.Zero(t, timeline.Segments[0].ActiveParticipants)
	assert.Empty(t, timeline.Segments[0].MostActive)
}

func TestOrdinal(t *testing.T) {
	tests := map[int]string{
		1: "1st", 2: "2nd", 3: "3rd", 4: "4th",
		11: "11th", 12: "12th", 13: "13th",
		21: "21st", 22: "22nd", 23: "23rd", 31: "31st",
	}
	for day, expected := range tests {
		assert.Equal(t, expected, ordinal(day))
	}
}
