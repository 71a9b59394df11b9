package store

import "time"

// Person is a tracked recruit in the screening/training program. The ID is
// the citizen identity number and is immutable after registration.
type Person struct {
	ID               string
	Name             string
	Gender           string
	Company          string
	Platoon          string
	Squad            string
	SquadLeader      string
	RecruitmentPlace string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Observation dates are stored as text in YYYY-MM-DD form. Legacy spreadsheet
// imports wrote free text into the date columns, so rows may carry values the
// exception engine cannot parse; those rows are skipped and counted there.

type MedicalScreening struct {
	ID             string
	PersonID       string
	ObsDate        string
	PhysicalStatus string
	MentalStatus   string
	Hospital       string
	Conclusion     string
	RecordedBy     string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type PoliticalAssessment struct {
	ID         string
	PersonID   string
	ObsDate    string
	Thoughts   string
	Spirit     string
	Background string
	Conclusion string
	RecordedBy string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PhysicalExam carries the three scheduled exam dates (district, city,
// special) and a single body status. The exam contributes an observation on a
// date iff the date equals one of the three.
type PhysicalExam struct {
	ID           string
	PersonID     string
	BodyStatus   string
	DistrictDate string
	CityDate     string
	SpecialDate  string
	Height       string
	Weight       string
	Vision       string
	Conclusion   string
	RecordedBy   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type DailyStatus struct {
	ID                string
	PersonID          string
	ObsDate           string
	Mood              string
	PhysicalCondition string
	MentalState       string
	Training          string
	Management        string
	Notes             string
	RecordedBy        string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type TownInterview struct {
	ID          string
	PersonID    string
	ObsDate     string
	Thoughts    string
	Spirit      string
	Interviewer string
	Location    string
	Summary     string
	RecordedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type LeaderInterview struct {
	ID          string
	PersonID    string
	ObsDate     string
	Thoughts    string
	Spirit      string
	Interviewer string
	Summary     string
	RecordedBy  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// User is an operator account for the recording/console UI, not a tracked
// person.
type User struct {
	ID            string
	Username      string
	DisplayName   string
	PasswordHash  string
	Role          string
	DeactivatedAt *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PersonFilter narrows registry listings.
type PersonFilter struct {
	Name    string
	Company string
	Platoon string
	Squad   string
	Limit   int
	Offset  int
}
