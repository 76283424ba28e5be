package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/chatlens/chatlens/internal/models"
)

const dateLayout = "2006-01-02"

// parseFilterSpec reads a FilterSpec from query parameters:
//
//	participants=Alice,Bob
//	from=2024-01-01&to=2024-01-31
//	period=Morning
//	sentiments=positive,negative
//	granularity=segment
//
// Omitted parameters fall back to "no restriction". A from without a to
// selects that single day.
func parseFilterSpec(r *http.Request) (models.FilterSpec, error) {
	query := r.URL.Query()
	spec := models.FilterSpec{
		TimePeriod:  query.Get("period"),
		Granularity: query.Get("granularity"),
	}

	if raw := query.Get("participants"); raw != "" {
		for _, name := range strings.Split(raw, ",") {
			if name = strings.TrimSpace(name); name != "" {
				spec.Participants = append(spec.Participants, name)
			}
		}
	}

	if raw := query.Get("sentiments"); raw != "" {
		for _, label := range strings.Split(raw, ",") {
			if label = strings.TrimSpace(label); label != "" {
				spec.SentimentTypes = append(spec.SentimentTypes, label)
			}
		}
	}

	if rawFrom := query.Get("from"); rawFrom != "" {
		from, err := time.Parse(dateLayout, rawFrom)
		if err != nil {
			return spec, fmt.Errorf("invalid from date %q, expected YYYY-MM-DD", rawFrom)
		}
		dateRange := &models.DateRange{From: from}

		if rawTo := query.Get("to"); rawTo != "" {
			to, err := time.Parse(dateLayout, rawTo)
			if err != nil {
				return spec, fmt.Errorf("invalid to date %q, expected YYYY-MM-DD", rawTo)
			}
			dateRange.To = &to
		}
		spec.DateRange = dateRange
	} else if query.Get("to") != "" {
		return spec, fmt.Errorf("to date requires a from date")
	}

	switch spec.TimePeriod {
	case "", models.PeriodAllDay, models.PeriodMorning, models.PeriodAfternoon,
		models.PeriodEvening, models.PeriodNight:
	default:
		return spec, fmt.Errorf("invalid period %q", spec.TimePeriod)
	}

	switch spec.Granularity {
	case "", models.GranularityMessage, models.GranularitySegment:
	default:
		return spec, fmt.Errorf("invalid granularity %q", spec.Granularity)
	}

	return spec, nil
}
