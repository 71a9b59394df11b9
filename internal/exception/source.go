// Package exception derives the cross-source exception dataset: for every
// person and every date on which any subsystem recorded an observation, it
// decides which of the five categories are abnormal, attributes abnormal
// dates to the contributing subsystems, and answers listing, summary, detail
// and time-series queries over the derived records.
//
// Derivation is recompute-on-call: every query reloads the observation
// subsets and evaluates the rules against current store state. The package
// performs no mutation and holds no state between calls.
package exception

// Source identifies one of the six observation subsystems. The string value
// doubles as the external display tag in attribution strings.
type Source string

const (
	SourceMedicalScreening    Source = "medical-screening"
	SourcePoliticalAssessment Source = "political-assessment"
	SourcePhysicalExam        Source = "physical-exam"
	SourceDailyStatus         Source = "daily-status"
	SourceTownInterview       Source = "town-interview"
	SourceLeaderInterview     Source = "leader-interview"
)

// Sources is the fixed evaluation and attribution order.
var Sources = []Source{
	SourceMedicalScreening,
	SourcePoliticalAssessment,
	SourcePhysicalExam,
	SourceDailyStatus,
	SourceTownInterview,
	SourceLeaderInterview,
}

func ValidSource(s Source) bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// Category is one of the five abnormality dimensions.
type Category string

const (
	CategoryThought    Category = "thought"
	CategoryBody       Category = "body"
	CategorySpirit     Category = "spirit"
	CategoryTraining   Category = "training"
	CategoryManagement Category = "management"
)

var Categories = []Category{
	CategoryThought,
	CategoryBody,
	CategorySpirit,
	CategoryTraining,
	CategoryManagement,
}
