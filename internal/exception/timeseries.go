package exception

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// SeriesPoint is one day in a person's trend series: the five category
// verdicts, the aggregate, and the six source-attribution indicators.
type SeriesPoint struct {
	Date string

	Thought    bool
	Body       bool
	Spirit     bool
	Training   bool
	Management bool
	Total      bool

	MedicalScreening    bool
	PoliticalAssessment bool
	PhysicalExam        bool
	DailyStatus         bool
	TownInterview       bool
	LeaderInterview     bool
}

// TimeSeries produces a dense daily series for one person over the inclusive
// range: exactly one point per calendar day, every dimension defaulting to
// false on days without observations. A from after to yields an empty
// series; only this query gap-fills.
func (e *Engine) TimeSeries(ctx context.Context, personID, dateFrom, dateTo string) ([]SeriesPoint, Diagnostics, error) {
	from, err := time.Parse("2006-01-02", dateFrom)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("parse series start %q: %w", dateFrom, err)
	}
	to, err := time.Parse("2006-01-02", dateTo)
	if err != nil {
		return nil, Diagnostics{}, fmt.Errorf("parse series end %q: %w", dateTo, err)
	}

	s, err := e.load(ctx)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	var points []SeriesPoint
	for day := from; !day.After(to); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		flags, attributed := s.evaluate(personID, date)

		point := SeriesPoint{
			Date:       date,
			Thought:    flags.Thought,
			Body:       flags.Body,
			Spirit:     flags.Spirit,
			Training:   flags.Training,
			Management: flags.Management,
			Total:      flags.Any(),
		}
		for _, source := range attributed {
			switch source {
			case SourceMedicalScreening:
				point.MedicalScreening = true
			case SourcePoliticalAssessment:
				point.PoliticalAssessment = true
			case SourcePhysicalExam:
				point.PhysicalExam = true
			case SourceDailyStatus:
				point.DailyStatus = true
			case SourceTownInterview:
				point.TownInterview = true
			case SourceLeaderInterview:
				point.LeaderInterview = true
			}
		}
		points = append(points, point)
	}

	return points, s.diag, nil
}

// DateUniverse returns the sorted set of distinct observation dates across
// all subsystems.
func (e *Engine) DateUniverse(ctx context.Context) ([]string, Diagnostics, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, Diagnostics{}, err
	}
	dates := make([]string, 0, len(s.dates))
	for date := range s.dates {
		dates = append(dates, date)
	}
	sort.Strings(dates)
	return dates, s.diag, nil
}
