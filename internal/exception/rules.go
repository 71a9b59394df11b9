package exception

import (
	"strings"

	"vigil/api/internal/store"
)

// interviewKeywords flag free-text interview fields. Matching is
// case-sensitive substring containment; an empty field never matches.
var interviewKeywords = []string{
	"abnormal",
	"problem",
	"negative",
	"resistant",
	"poor condition",
	"difficulty",
	"worried",
	"anxious",
	"depressed",
	"poor",
}

const statusAbnormal = "abnormal"

var (
	moodAbnormal       = valueSet("abnormal", "poor", "very poor", "depressed", "anxious")
	conditionAbnormal  = valueSet("abnormal", "poor", "very poor", "sick", "injured")
	mentalAbnormal     = valueSet("abnormal", "poor", "very poor", "depressed", "anxious", "tense")
	trainingAbnormal   = valueSet("abnormal", "poor", "very poor", "unqualified", "refused")
	managementAbnormal = valueSet("abnormal", "poor", "very poor", "disciplinary violation", "conflict")
)

func valueSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

func inSet(value string, set map[string]struct{}) bool {
	if value == "" {
		return false
	}
	_, ok := set[value]
	return ok
}

func containsKeyword(text string) bool {
	if text == "" {
		return false
	}
	for _, kw := range interviewKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// Flags holds the five category verdicts for one (person, date) against one
// source, or the aggregate across sources.
type Flags struct {
	Thought    bool
	Body       bool
	Spirit     bool
	Training   bool
	Management bool
}

func (f Flags) Any() bool {
	return f.Thought || f.Body || f.Spirit || f.Training || f.Management
}

func (f *Flags) merge(other Flags) {
	f.Thought = f.Thought || other.Thought
	f.Body = f.Body || other.Body
	f.Spirit = f.Spirit || other.Spirit
	f.Training = f.Training || other.Training
	f.Management = f.Management || other.Management
}

// Per-source rules. Each evaluates exactly one observation row; date scoping
// happens in the snapshot indexes, so these stay pure value tests.

func medicalFlags(m store.MedicalScreening) Flags {
	return Flags{
		Body:   m.PhysicalStatus == statusAbnormal,
		Spirit: m.MentalStatus == statusAbnormal,
	}
}

func politicalFlags(a store.PoliticalAssessment) Flags {
	return Flags{
		Thought: a.Thoughts == statusAbnormal,
		Spirit:  a.Spirit == statusAbnormal,
	}
}

// physicalExamFlags applies only on dates equal to one of the exam's three
// scheduled dates; the snapshot indexes the exam under those dates.
func physicalExamFlags(e store.PhysicalExam) Flags {
	return Flags{
		Body: e.BodyStatus == statusAbnormal,
	}
}

func dailyFlags(d store.DailyStatus) Flags {
	return Flags{
		Thought:    inSet(d.Mood, moodAbnormal),
		Body:       inSet(d.PhysicalCondition, conditionAbnormal),
		Spirit:     inSet(d.MentalState, mentalAbnormal),
		Training:   inSet(d.Training, trainingAbnormal),
		Management: inSet(d.Management, managementAbnormal),
	}
}

func interviewFlags(thoughts, spirit string) Flags {
	return Flags{
		Thought: containsKeyword(thoughts),
		Spirit:  containsKeyword(spirit),
	}
}
