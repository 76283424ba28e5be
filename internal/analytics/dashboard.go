package analytics

import "github.com/chatlens/chatlens/internal/models"

// GeneralDashboard is the complete view-model of the activity dashboard.
// AllParticipants always reflects the unfiltered chat so the filter UI never
// loses options as filters narrow; ActiveParticipants reflects the current
// filter.
type GeneralDashboard struct {
	AllParticipants    []string          `json:"allParticipants"`
	ActiveParticipants []string          `json:"activeParticipants"`
	KPIs               []KPIMetric       `json:"kpis"`
	MessagesOverTime   []TimeSeriesPoint `json:"messagesOverTime"`
	ActivityByDay      []DayActivity     `json:"activityByDay"`
	HourlyActivity     []HourActivity    `json:"hourlyActivity"`
	Contribution       Contribution      `json:"contribution"`
	ActivityProfile    []StyleStats      `json:"activityProfile,omitempty"`
	Timeline           Timeline          `json:"timeline"`
}

// SentimentDashboard is the complete view-model of the sentiment dashboard.
// Nil blocks mean "no data" and render as empty states downstream.
type SentimentDashboard struct {
	AllParticipants []string                 `json:"allParticipants"`
	KPI             *SentimentKPI            `json:"kpi,omitempty"`
	Trend           []SentimentTrendPoint    `json:"trend"`
	Breakdown       []SentimentByParticipant `json:"breakdown,omitempty"`
	ByDay           []SentimentDayStat       `json:"byDay,omitempty"`
	ByHour          []SentimentHourStat      `json:"byHour,omitempty"`
	Highlights      *Highlights              `json:"highlights,omitempty"`
}

// BuildGeneralDashboard applies the filter once and runs every activity
// aggregator over the result. Each aggregator fails closed on empty input,
// so one empty block never suppresses the others.
func BuildGeneralDashboard(all []models.Message, spec models.FilterSpec) GeneralDashboard {
	filtered := FilterMessages(all, spec)

	return GeneralDashboard{
		AllParticipants:    ActiveParticipants(all),
		ActiveParticipants: ActiveParticipants(filtered),
		KPIs:               BuildKPIMetrics(filtered),
		MessagesOverTime:   BuildMessagesOverTime(filtered),
		ActivityByDay:      BuildActivityByDay(filtered),
		HourlyActivity:     BuildHourlyActivity(filtered),
		Contribution:       BuildContribution(filtered, all, spec),
		ActivityProfile:    BuildActivityProfile(filtered),
		Timeline:           BuildTimeline(filtered),
	}
}

// BuildSentimentDashboard applies the filter once and runs every sentiment
// aggregator over the result.
func BuildSentimentDashboard(all []models.SentimentRecord, spec models.FilterSpec) SentimentDashboard {
	filtered := FilterSentiment(all, spec)

	return SentimentDashboard{
		AllParticipants: sentimentParticipants(all),
		KPI:             BuildSentimentKPI(filtered),
		Trend:           BuildSentimentTrend(filtered),
		Breakdown:       BuildSentimentBreakdown(filtered),
		ByDay:           BuildSentimentByDay(filtered),
		ByHour:          BuildSentimentByHour(filtered),
		Highlights:      BuildHighlights(filtered),
	}
}

func sentimentParticipants(records []models.SentimentRecord) []string {
	seen := make(map[string]struct{}, 8)
	var participants []string
	for _, rec := range records {
		if _, ok := seen[rec.Sender]; !ok {
			seen[rec.Sender] = struct{}{}
			participants = append(participants, rec.Sender)
		}
	}
	return participants
}
