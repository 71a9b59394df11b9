package exception

import (
	"context"
	"sort"
	"strings"
)

// Record is one derived exception row: a person and a date on which at least
// one category is abnormal, with the contributing sources and denormalized
// person fields for display.
type Record struct {
	Date             string
	PersonID         string
	Name             string
	Gender           string
	Company          string
	Platoon          string
	Squad            string
	SquadLeader      string
	RecruitmentPlace string

	Thought    bool
	Body       bool
	Spirit     bool
	Training   bool
	Management bool

	Sources []Source
}

// SourceLabel renders the attribution set as an ordered, de-duplicated,
// comma-joined display string.
func (r Record) SourceLabel() string {
	names := make([]string, 0, len(r.Sources))
	for _, s := range r.Sources {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}

// Filter narrows a listing. Zero values pass everything. Name and PersonID
// are substring matches; unit fields are equality; dates bound inclusively.
type Filter struct {
	DateFrom string
	DateTo   string
	Name     string
	PersonID string
	Company  string
	Platoon  string
	Squad    string
}

func (f Filter) matches(r Record) bool {
	if f.DateFrom != "" && r.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && r.Date > f.DateTo {
		return false
	}
	if f.Name != "" && !strings.Contains(r.Name, f.Name) {
		return false
	}
	if f.PersonID != "" && !strings.Contains(r.PersonID, f.PersonID) {
		return false
	}
	if f.Company != "" && r.Company != f.Company {
		return false
	}
	if f.Platoon != "" && r.Platoon != f.Platoon {
		return false
	}
	if f.Squad != "" && r.Squad != f.Squad {
		return false
	}
	return true
}

// ListExceptions materializes the derived dataset under the filter, sorted
// by date descending then name ascending. A record appears iff at least one
// category flag is true for the (person, date) pair.
func (e *Engine) ListExceptions(ctx context.Context, filter Filter) ([]Record, Diagnostics, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, Diagnostics{}, err
	}

	var records []Record
	for _, pd := range s.candidates {
		flags, attributed := s.evaluate(pd.personID, pd.date)
		if !flags.Any() {
			continue
		}
		person := s.persons[pd.personID]
		record := Record{
			Date:             pd.date,
			PersonID:         person.ID,
			Name:             person.Name,
			Gender:           person.Gender,
			Company:          person.Company,
			Platoon:          person.Platoon,
			Squad:            person.Squad,
			SquadLeader:      person.SquadLeader,
			RecruitmentPlace: person.RecruitmentPlace,
			Thought:          flags.Thought,
			Body:             flags.Body,
			Spirit:           flags.Spirit,
			Training:         flags.Training,
			Management:       flags.Management,
			Sources:          attributed,
		}
		if !filter.matches(record) {
			continue
		}
		records = append(records, record)
	}

	sort.Slice(records, func(i, j int) bool {
		if records[i].Date != records[j].Date {
			return records[i].Date > records[j].Date
		}
		if records[i].Name != records[j].Name {
			return records[i].Name < records[j].Name
		}
		return records[i].PersonID < records[j].PersonID
	})

	return records, s.diag, nil
}

// Summary aggregates a filtered listing.
type Summary struct {
	Thought    int
	Body       int
	Spirit     int
	Training   int
	Management int

	Records int
	Persons int
	Dates   int
}

func (e *Engine) Summarize(ctx context.Context, dateFrom, dateTo string) (Summary, Diagnostics, error) {
	records, diag, err := e.ListExceptions(ctx, Filter{DateFrom: dateFrom, DateTo: dateTo})
	if err != nil {
		return Summary{}, Diagnostics{}, err
	}

	var summary Summary
	persons := map[string]struct{}{}
	dates := map[string]struct{}{}
	for _, r := range records {
		if r.Thought {
			summary.Thought++
		}
		if r.Body {
			summary.Body++
		}
		if r.Spirit {
			summary.Spirit++
		}
		if r.Training {
			summary.Training++
		}
		if r.Management {
			summary.Management++
		}
		persons[r.PersonID] = struct{}{}
		dates[r.Date] = struct{}{}
	}
	summary.Records = len(records)
	summary.Persons = len(persons)
	summary.Dates = len(dates)
	return summary, diag, nil
}

// DetailField is one labeled raw value from an underlying observation,
// ordered for display in the detail dialog.
type DetailField struct {
	Label string
	Value string
}

// Detail is the raw observation content behind one source's contribution on
// a date. Observations holds one field set per observation row.
type Detail struct {
	Source       Source
	PersonID     string
	Date         string
	Observations [][]DetailField
}

// SourceDetail returns the raw fields of one source's observations for a
// (person, date), or nil when that source recorded nothing there.
func (e *Engine) SourceDetail(ctx context.Context, personID, date string, source Source) (*Detail, error) {
	s, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	normalized, ok := normalizeDate(date)
	if !ok {
		return nil, nil
	}
	key := obsKey(personID, normalized)

	var observations [][]DetailField
	switch source {
	case SourceMedicalScreening:
		for _, m := range s.medical[key] {
			observations = append(observations, []DetailField{
				{Label: "physical status", Value: m.PhysicalStatus},
				{Label: "mental status", Value: m.MentalStatus},
				{Label: "hospital", Value: m.Hospital},
				{Label: "conclusion", Value: m.Conclusion},
				{Label: "recorded by", Value: m.RecordedBy},
			})
		}
	case SourcePoliticalAssessment:
		for _, a := range s.political[key] {
			observations = append(observations, []DetailField{
				{Label: "thoughts", Value: a.Thoughts},
				{Label: "spirit", Value: a.Spirit},
				{Label: "background", Value: a.Background},
				{Label: "conclusion", Value: a.Conclusion},
				{Label: "recorded by", Value: a.RecordedBy},
			})
		}
	case SourcePhysicalExam:
		for _, exam := range s.exams[key] {
			observations = append(observations, []DetailField{
				{Label: "body status", Value: exam.BodyStatus},
				{Label: "district exam date", Value: exam.DistrictDate},
				{Label: "city exam date", Value: exam.CityDate},
				{Label: "special exam date", Value: exam.SpecialDate},
				{Label: "height", Value: exam.Height},
				{Label: "weight", Value: exam.Weight},
				{Label: "vision", Value: exam.Vision},
				{Label: "conclusion", Value: exam.Conclusion},
			})
		}
	case SourceDailyStatus:
		for _, d := range s.daily[key] {
			observations = append(observations, []DetailField{
				{Label: "mood", Value: d.Mood},
				{Label: "physical condition", Value: d.PhysicalCondition},
				{Label: "mental state", Value: d.MentalState},
				{Label: "training", Value: d.Training},
				{Label: "management", Value: d.Management},
				{Label: "notes", Value: d.Notes},
			})
		}
	case SourceTownInterview:
		for _, i := range s.town[key] {
			observations = append(observations, []DetailField{
				{Label: "thoughts", Value: i.Thoughts},
				{Label: "spirit", Value: i.Spirit},
				{Label: "interviewer", Value: i.Interviewer},
				{Label: "location", Value: i.Location},
				{Label: "summary", Value: i.Summary},
			})
		}
	case SourceLeaderInterview:
		for _, i := range s.leader[key] {
			observations = append(observations, []DetailField{
				{Label: "thoughts", Value: i.Thoughts},
				{Label: "spirit", Value: i.Spirit},
				{Label: "interviewer", Value: i.Interviewer},
				{Label: "summary", Value: i.Summary},
			})
		}
	}

	if len(observations) == 0 {
		return nil, nil
	}
	return &Detail{
		Source:       source,
		PersonID:     personID,
		Date:         normalized,
		Observations: observations,
	}, nil
}
