package exception

import (
	"context"
	"fmt"
	"strings"
	"time"

	"vigil/api/internal/store"
)

// Store is the read-only slice of the data layer the engine needs. Every
// derivation reloads through it, so results always reflect observation
// mutations committed before the call.
type Store interface {
	ListPersons(ctx context.Context, filter store.PersonFilter) ([]store.Person, error)
	ListMedicalScreenings(ctx context.Context) ([]store.MedicalScreening, error)
	ListPoliticalAssessments(ctx context.Context) ([]store.PoliticalAssessment, error)
	ListPhysicalExams(ctx context.Context) ([]store.PhysicalExam, error)
	ListDailyStatuses(ctx context.Context) ([]store.DailyStatus, error)
	ListTownInterviews(ctx context.Context) ([]store.TownInterview, error)
	ListLeaderInterviews(ctx context.Context) ([]store.LeaderInterview, error)
}

type Engine struct {
	store Store
}

func New(store Store) *Engine {
	return &Engine{store: store}
}

// Diagnostics counts per-record problems that were excluded from a
// derivation instead of failing it.
type Diagnostics struct {
	OrphanedObservations int
	MalformedDates       int
}

// normalizeDate parses an observation date into canonical YYYY-MM-DD form.
// Empty input is simply absent; non-empty unparseable input is malformed.
func normalizeDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	t, err := time.Parse("2006-01-02", trimmed)
	if err != nil {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

func obsKey(personID, date string) string {
	return personID + "|" + date
}

// snapshot is one consistent in-memory view of the registry and all six
// observation collections, indexed by (person, date).
type snapshot struct {
	persons map[string]store.Person

	medical   map[string][]store.MedicalScreening
	political map[string][]store.PoliticalAssessment
	exams     map[string][]store.PhysicalExam
	daily     map[string][]store.DailyStatus
	town      map[string][]store.TownInterview
	leader    map[string][]store.LeaderInterview

	// candidates holds every (person, date) pair carrying at least one
	// observation; the materializer never evaluates outside it.
	candidates map[string]personDate

	// dates is the date universe: every distinct observation date.
	dates map[string]struct{}

	diag Diagnostics
}

type personDate struct {
	personID string
	date     string
}

func (s *snapshot) addCandidate(personID, date string) {
	key := obsKey(personID, date)
	if _, ok := s.candidates[key]; !ok {
		s.candidates[key] = personDate{personID: personID, date: date}
	}
	s.dates[date] = struct{}{}
}

// admit validates one observation's person reference and raw date. It
// returns the canonical date, or false when the row must be excluded.
func (s *snapshot) admit(personID, rawDate string) (string, bool) {
	if _, ok := s.persons[personID]; !ok {
		s.diag.OrphanedObservations++
		return "", false
	}
	date, ok := normalizeDate(rawDate)
	if !ok {
		if strings.TrimSpace(rawDate) != "" {
			s.diag.MalformedDates++
		}
		return "", false
	}
	return date, true
}

func (e *Engine) load(ctx context.Context) (*snapshot, error) {
	s := &snapshot{
		persons:    map[string]store.Person{},
		medical:    map[string][]store.MedicalScreening{},
		political:  map[string][]store.PoliticalAssessment{},
		exams:      map[string][]store.PhysicalExam{},
		daily:      map[string][]store.DailyStatus{},
		town:       map[string][]store.TownInterview{},
		leader:     map[string][]store.LeaderInterview{},
		candidates: map[string]personDate{},
		dates:      map[string]struct{}{},
	}

	persons, err := e.store.ListPersons(ctx, store.PersonFilter{})
	if err != nil {
		return nil, fmt.Errorf("load persons: %w", err)
	}
	for _, p := range persons {
		s.persons[p.ID] = p
	}

	screenings, err := e.store.ListMedicalScreenings(ctx)
	if err != nil {
		return nil, fmt.Errorf("load medical screenings: %w", err)
	}
	for _, m := range screenings {
		date, ok := s.admit(m.PersonID, m.ObsDate)
		if !ok {
			continue
		}
		key := obsKey(m.PersonID, date)
		s.medical[key] = append(s.medical[key], m)
		s.addCandidate(m.PersonID, date)
	}

	assessments, err := e.store.ListPoliticalAssessments(ctx)
	if err != nil {
		return nil, fmt.Errorf("load political assessments: %w", err)
	}
	for _, a := range assessments {
		date, ok := s.admit(a.PersonID, a.ObsDate)
		if !ok {
			continue
		}
		key := obsKey(a.PersonID, date)
		s.political[key] = append(s.political[key], a)
		s.addCandidate(a.PersonID, date)
	}

	exams, err := e.store.ListPhysicalExams(ctx)
	if err != nil {
		return nil, fmt.Errorf("load physical exams: %w", err)
	}
	for _, exam := range exams {
		// An exam is observed on each of its scheduled dates.
		for _, raw := range []string{exam.DistrictDate, exam.CityDate, exam.SpecialDate} {
			date, ok := s.admit(exam.PersonID, raw)
			if !ok {
				continue
			}
			key := obsKey(exam.PersonID, date)
			s.exams[key] = append(s.exams[key], exam)
			s.addCandidate(exam.PersonID, date)
		}
	}

	statuses, err := e.store.ListDailyStatuses(ctx)
	if err != nil {
		return nil, fmt.Errorf("load daily statuses: %w", err)
	}
	for _, d := range statuses {
		date, ok := s.admit(d.PersonID, d.ObsDate)
		if !ok {
			continue
		}
		key := obsKey(d.PersonID, date)
		s.daily[key] = append(s.daily[key], d)
		s.addCandidate(d.PersonID, date)
	}

	townInterviews, err := e.store.ListTownInterviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("load town interviews: %w", err)
	}
	for _, i := range townInterviews {
		date, ok := s.admit(i.PersonID, i.ObsDate)
		if !ok {
			continue
		}
		key := obsKey(i.PersonID, date)
		s.town[key] = append(s.town[key], i)
		s.addCandidate(i.PersonID, date)
	}

	leaderInterviews, err := e.store.ListLeaderInterviews(ctx)
	if err != nil {
		return nil, fmt.Errorf("load leader interviews: %w", err)
	}
	for _, i := range leaderInterviews {
		date, ok := s.admit(i.PersonID, i.ObsDate)
		if !ok {
			continue
		}
		key := obsKey(i.PersonID, date)
		s.leader[key] = append(s.leader[key], i)
		s.addCandidate(i.PersonID, date)
	}

	return s, nil
}

// sourceFlags evaluates one source's category rules for a (person, date),
// OR-ing across all of that source's observations on the date.
func (s *snapshot) sourceFlags(source Source, personID, date string) Flags {
	key := obsKey(personID, date)
	var flags Flags
	switch source {
	case SourceMedicalScreening:
		for _, m := range s.medical[key] {
			flags.merge(medicalFlags(m))
		}
	case SourcePoliticalAssessment:
		for _, a := range s.political[key] {
			flags.merge(politicalFlags(a))
		}
	case SourcePhysicalExam:
		for _, e := range s.exams[key] {
			flags.merge(physicalExamFlags(e))
		}
	case SourceDailyStatus:
		for _, d := range s.daily[key] {
			flags.merge(dailyFlags(d))
		}
	case SourceTownInterview:
		for _, i := range s.town[key] {
			flags.merge(interviewFlags(i.Thoughts, i.Spirit))
		}
	case SourceLeaderInterview:
		for _, i := range s.leader[key] {
			flags.merge(interviewFlags(i.Thoughts, i.Spirit))
		}
	}
	return flags
}

// evaluate computes the aggregate category flags and the attribution set for
// one (person, date). The aggregate is the OR of the per-source flags, so a
// true aggregate always traces back to at least one attributed source.
func (s *snapshot) evaluate(personID, date string) (Flags, []Source) {
	var total Flags
	var attributed []Source
	for _, source := range Sources {
		flags := s.sourceFlags(source, personID, date)
		if !flags.Any() {
			continue
		}
		total.merge(flags)
		attributed = append(attributed, source)
	}
	return total, attributed
}
