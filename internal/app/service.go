package app

import (
	"context"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"vigil/api/internal/auth"
	"vigil/api/internal/authpw"
	"vigil/api/internal/config"
	"vigil/api/internal/dossier"
	"vigil/api/internal/exception"
	"vigil/api/internal/export"
	"vigil/api/internal/photos"
	"vigil/api/internal/rbac"
	"vigil/api/internal/search"
	"vigil/api/internal/store"
	"vigil/api/internal/util"
)

type Session struct {
	Token        string
	RefreshToken string
	UserID       string
	UserName     string
	Role         string
	JTI          string
	ExpiresAt    time.Time
}

type PersonInput struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Gender           string `json:"gender"`
	Company          string `json:"company"`
	Platoon          string `json:"platoon"`
	Squad            string `json:"squad"`
	SquadLeader      string `json:"squadLeader"`
	RecruitmentPlace string `json:"recruitmentPlace"`
}

type MedicalScreeningInput struct {
	PersonID       string `json:"personId"`
	ObsDate        string `json:"obsDate"`
	PhysicalStatus string `json:"physicalStatus"`
	MentalStatus   string `json:"mentalStatus"`
	Hospital       string `json:"hospital"`
	Conclusion     string `json:"conclusion"`
}

type PoliticalAssessmentInput struct {
	PersonID   string `json:"personId"`
	ObsDate    string `json:"obsDate"`
	Thoughts   string `json:"thoughts"`
	Spirit     string `json:"spirit"`
	Background string `json:"background"`
	Conclusion string `json:"conclusion"`
}

type PhysicalExamInput struct {
	PersonID     string `json:"personId"`
	BodyStatus   string `json:"bodyStatus"`
	DistrictDate string `json:"districtDate"`
	CityDate     string `json:"cityDate"`
	SpecialDate  string `json:"specialDate"`
	Height       string `json:"height"`
	Weight       string `json:"weight"`
	Vision       string `json:"vision"`
	Conclusion   string `json:"conclusion"`
}

type DailyStatusInput struct {
	PersonID          string `json:"personId"`
	ObsDate           string `json:"obsDate"`
	Mood              string `json:"mood"`
	PhysicalCondition string `json:"physicalCondition"`
	MentalState       string `json:"mentalState"`
	Training          string `json:"training"`
	Management        string `json:"management"`
	Notes             string `json:"notes"`
}

type TownInterviewInput struct {
	PersonID    string `json:"personId"`
	ObsDate     string `json:"obsDate"`
	Thoughts    string `json:"thoughts"`
	Spirit      string `json:"spirit"`
	Interviewer string `json:"interviewer"`
	Location    string `json:"location"`
	Summary     string `json:"summary"`
}

type LeaderInterviewInput struct {
	PersonID    string `json:"personId"`
	ObsDate     string `json:"obsDate"`
	Thoughts    string `json:"thoughts"`
	Spirit      string `json:"spirit"`
	Interviewer string `json:"interviewer"`
	Summary     string `json:"summary"`
}

type dataStore interface {
	CreatePerson(context.Context, store.Person) error
	UpdatePerson(context.Context, store.Person) error
	DeletePerson(context.Context, string) error
	GetPerson(context.Context, string) (store.Person, error)
	ListPersons(context.Context, store.PersonFilter) ([]store.Person, error)

	InsertMedicalScreening(context.Context, store.MedicalScreening) error
	ListMedicalScreeningsForPerson(context.Context, string) ([]store.MedicalScreening, error)
	InsertPoliticalAssessment(context.Context, store.PoliticalAssessment) error
	ListPoliticalAssessmentsForPerson(context.Context, string) ([]store.PoliticalAssessment, error)
	InsertPhysicalExam(context.Context, store.PhysicalExam) error
	ListPhysicalExamsForPerson(context.Context, string) ([]store.PhysicalExam, error)
	InsertDailyStatus(context.Context, store.DailyStatus) error
	ListDailyStatusesForPerson(context.Context, string) ([]store.DailyStatus, error)
	InsertTownInterview(context.Context, store.TownInterview) error
	ListTownInterviewsForPerson(context.Context, string) ([]store.TownInterview, error)
	InsertLeaderInterview(context.Context, store.LeaderInterview) error
	ListLeaderInterviewsForPerson(context.Context, string) ([]store.LeaderInterview, error)
	DeleteObservation(context.Context, string, string) error

	GetUserByID(context.Context, string) (store.User, error)
	Ping(ctx context.Context) error
}

// SessionStore holds hashed refresh tokens. Backed by Redis when configured,
// falling back to the refresh_sessions table in Postgres.
type SessionStore interface {
	SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error
	LookupRefreshSession(ctx context.Context, tokenHash string) (string, error)
	RevokeRefreshSession(ctx context.Context, tokenHash string) error
}

type dossierStore interface {
	SaveSnapshot(personID, source, recordID string, payload any, author string) (dossier.Entry, error)
	History(personID string, limit int) ([]dossier.Entry, error)
}

type Service struct {
	cfg       config.Config
	store     dataStore
	engine    *exception.Engine
	passwords *authpw.Service
	sessions  SessionStore
	search    *search.Service
	photos    *photos.Service
	dossiers  dossierStore
}

func New(cfg config.Config, dataStore *store.PostgresStore, dossiers *dossier.Service, searchService *search.Service) *Service {
	return NewWithSessionStore(cfg, dataStore, pgSessions{store: dataStore}, dossiers, searchService)
}

func NewWithSessionStore(cfg config.Config, dataStore *store.PostgresStore, sessions SessionStore, dossiers *dossier.Service, searchService *search.Service) *Service {
	return &Service{
		cfg:       cfg,
		store:     dataStore,
		engine:    exception.New(dataStore),
		passwords: authpw.NewService(dataStore),
		sessions:  sessions,
		search:    searchService,
		dossiers:  dossiers,
	}
}

// SetPhotos enables screening photo storage. A nil service keeps photo
// endpoints returning 503.
func (s *Service) SetPhotos(p *photos.Service) {
	s.photos = p
}

// pgSessions adapts the Postgres refresh_sessions table to SessionStore.
type pgSessions struct {
	store *store.PostgresStore
}

func (p pgSessions) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	return p.store.SaveRefreshSession(ctx, tokenHash, userID, expiresAt)
}

func (p pgSessions) LookupRefreshSession(ctx context.Context, tokenHash string) (string, error) {
	user, err := p.store.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return "", err
	}
	return user.ID, nil
}

func (p pgSessions) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	return p.store.RevokeRefreshSession(ctx, tokenHash)
}

// Bootstrap provisions the initial admin account and warms the search index.
func (s *Service) Bootstrap(ctx context.Context) error {
	if err := s.passwords.EnsureAdmin(ctx, s.cfg.AdminUsername, s.cfg.AdminPassword); err != nil {
		return err
	}
	if s.search != nil {
		persons, err := s.store.ListPersons(ctx, store.PersonFilter{})
		if err != nil {
			return err
		}
		records := make([]search.PersonRecord, 0, len(persons))
		for _, p := range persons {
			records = append(records, personSearchRecord(p))
		}
		s.search.ReindexPersons(records)
	}
	return nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) Can(role string, action rbac.Action) bool {
	return rbac.Can(rbac.Normalize(role), action)
}

// ---- Sessions ----

func (s *Service) SignIn(ctx context.Context, username, password string) (Session, error) {
	user, err := s.passwords.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return s.issueSession(ctx, user)
}

func (s *Service) Refresh(ctx context.Context, refreshToken string) (Session, error) {
	tokenHash := auth.HashToken(refreshToken)
	userID, err := s.sessions.LookupRefreshSession(ctx, tokenHash)
	if err != nil {
		return Session{}, err
	}
	if err := s.sessions.RevokeRefreshSession(ctx, tokenHash); err != nil {
		return Session{}, err
	}
	// Role and display name are re-read so role changes and deactivation
	// take effect on the next refresh.
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, authpw.ErrAccountDisabled
	}
	return s.issueSession(ctx, user)
}

func (s *Service) issueSession(ctx context.Context, user store.User) (Session, error) {
	now := time.Now()
	expiresAt := now.Add(s.cfg.AccessTTL)
	jti := util.NewID("jti")

	token, err := auth.IssueToken([]byte(s.cfg.JWTSecret), auth.Claims{
		Sub:  user.ID,
		Name: user.DisplayName,
		Role: user.Role,
		JTI:  jti,
		Exp:  expiresAt.Unix(),
	})
	if err != nil {
		return Session{}, err
	}

	refresh := util.NewID("rft") + util.NewID("")
	refreshExpires := now.Add(s.cfg.RefreshTTL)
	if err := s.sessions.SaveRefreshSession(ctx, auth.HashToken(refresh), user.ID, refreshExpires); err != nil {
		return Session{}, err
	}

	return Session{
		Token:        token,
		RefreshToken: refresh,
		UserID:       user.ID,
		UserName:     user.DisplayName,
		Role:         user.Role,
		JTI:          jti,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Service) SessionFromToken(ctx context.Context, token string) (Session, error) {
	claims, err := auth.ParseToken([]byte(s.cfg.JWTSecret), token)
	if err != nil {
		return Session{}, err
	}

	user, err := s.store.GetUserByID(ctx, claims.Sub)
	if err != nil {
		return Session{}, err
	}
	if user.DeactivatedAt != nil {
		return Session{}, auth.ErrInvalidToken
	}

	return Session{
		Token:     token,
		UserID:    user.ID,
		UserName:  user.DisplayName,
		Role:      user.Role,
		JTI:       claims.JTI,
		ExpiresAt: time.Unix(claims.Exp, 0),
	}, nil
}

func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken != "" {
		_ = s.sessions.RevokeRefreshSession(ctx, auth.HashToken(refreshToken))
	}
	return nil
}

func (s *Service) ChangePassword(ctx context.Context, session Session, current, next string) error {
	return s.passwords.ChangePassword(ctx, session.UserID, current, next)
}

func (s *Service) CreateOperator(ctx context.Context, username, displayName, password, role string) (map[string]any, error) {
	user, err := s.passwords.CreateOperator(ctx, username, displayName, password, role)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"id":          user.ID,
		"username":    user.Username,
		"displayName": user.DisplayName,
		"role":        user.Role,
	}, nil
}

// ---- Person registry ----

func (s *Service) CreatePerson(ctx context.Context, input PersonInput) (map[string]any, error) {
	id := strings.TrimSpace(input.ID)
	if id == "" {
		return nil, validationError("id is required")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationError("name is required")
	}
	if _, err := s.store.GetPerson(ctx, id); err == nil {
		return nil, domainError(http.StatusConflict, "PERSON_EXISTS", "Person already registered", nil)
	} else if !store.IsNotFound(err) {
		return nil, err
	}

	person := store.Person{
		ID:               id,
		Name:             strings.TrimSpace(input.Name),
		Gender:           input.Gender,
		Company:          input.Company,
		Platoon:          input.Platoon,
		Squad:            input.Squad,
		SquadLeader:      input.SquadLeader,
		RecruitmentPlace: input.RecruitmentPlace,
	}
	if err := s.store.CreatePerson(ctx, person); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexPerson(personSearchRecord(person))
	}
	return personPayload(person), nil
}

func (s *Service) UpdatePerson(ctx context.Context, id string, input PersonInput) (map[string]any, error) {
	person, err := s.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.ID) != "" && strings.TrimSpace(input.ID) != person.ID {
		return nil, validationError("id is immutable")
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationError("name is required")
	}

	person.Name = strings.TrimSpace(input.Name)
	person.Gender = input.Gender
	person.Company = input.Company
	person.Platoon = input.Platoon
	person.Squad = input.Squad
	person.SquadLeader = input.SquadLeader
	person.RecruitmentPlace = input.RecruitmentPlace
	if err := s.store.UpdatePerson(ctx, person); err != nil {
		return nil, err
	}
	if s.search != nil {
		s.search.IndexPerson(personSearchRecord(person))
	}
	return personPayload(person), nil
}

func (s *Service) DeletePerson(ctx context.Context, id string) error {
	if _, err := s.store.GetPerson(ctx, id); err != nil {
		return err
	}
	if err := s.store.DeletePerson(ctx, id); err != nil {
		return err
	}
	if s.search != nil {
		s.search.RemovePerson(id)
	}
	return nil
}

func (s *Service) GetPerson(ctx context.Context, id string) (map[string]any, error) {
	person, err := s.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	return personPayload(person), nil
}

func (s *Service) ListPersons(ctx context.Context, filter store.PersonFilter) ([]map[string]any, error) {
	persons, err := s.store.ListPersons(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(persons))
	for _, p := range persons {
		items = append(items, personPayload(p))
	}
	return items, nil
}

func personPayload(p store.Person) map[string]any {
	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"gender":           p.Gender,
		"company":          p.Company,
		"platoon":          p.Platoon,
		"squad":            p.Squad,
		"squadLeader":      p.SquadLeader,
		"recruitmentPlace": p.RecruitmentPlace,
		"createdAt":        p.CreatedAt,
		"updatedAt":        p.UpdatedAt,
	}
}

func personSearchRecord(p store.Person) search.PersonRecord {
	return search.PersonRecord{
		ID:               p.ID,
		Name:             p.Name,
		Company:          p.Company,
		Platoon:          p.Platoon,
		Squad:            p.Squad,
		RecruitmentPlace: p.RecruitmentPlace,
	}
}

// ---- Observations ----

func (s *Service) requirePerson(ctx context.Context, personID string) error {
	id := strings.TrimSpace(personID)
	if id == "" {
		return validationError("personId is required")
	}
	if _, err := s.store.GetPerson(ctx, id); err != nil {
		if store.IsNotFound(err) {
			return notFoundError("Person not registered")
		}
		return err
	}
	return nil
}

// requireDate validates a new observation date. Unparseable dates in the
// tables come only from legacy imports; the API refuses to add more.
func requireDate(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return validationError(field + " is required")
	}
	if _, err := time.Parse("2006-01-02", value); err != nil {
		return validationError(field + " must be YYYY-MM-DD")
	}
	return nil
}

func (s *Service) snapshotObservation(personID, source, recordID string, payload any, author string) {
	if s.dossiers == nil {
		return
	}
	if _, err := s.dossiers.SaveSnapshot(personID, source, recordID, payload, author); err != nil {
		log.Printf("dossier snapshot failed for %s %s: %v", source, recordID, err)
	}
}

func (s *Service) RecordMedicalScreening(ctx context.Context, session Session, input MedicalScreeningInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if err := requireDate("obsDate", input.ObsDate); err != nil {
		return nil, err
	}
	record := store.MedicalScreening{
		ID:             util.NewID("ms"),
		PersonID:       strings.TrimSpace(input.PersonID),
		ObsDate:        input.ObsDate,
		PhysicalStatus: input.PhysicalStatus,
		MentalStatus:   input.MentalStatus,
		Hospital:       input.Hospital,
		Conclusion:     input.Conclusion,
		RecordedBy:     session.UserName,
	}
	if err := s.store.InsertMedicalScreening(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourceMedicalScreening), record.ID, record, session.UserName)
	return medicalPayload(record), nil
}

func (s *Service) RecordPoliticalAssessment(ctx context.Context, session Session, input PoliticalAssessmentInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if err := requireDate("obsDate", input.ObsDate); err != nil {
		return nil, err
	}
	record := store.PoliticalAssessment{
		ID:         util.NewID("pa"),
		PersonID:   strings.TrimSpace(input.PersonID),
		ObsDate:    input.ObsDate,
		Thoughts:   input.Thoughts,
		Spirit:     input.Spirit,
		Background: input.Background,
		Conclusion: input.Conclusion,
		RecordedBy: session.UserName,
	}
	if err := s.store.InsertPoliticalAssessment(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourcePoliticalAssessment), record.ID, record, session.UserName)
	return politicalPayload(record), nil
}

func (s *Service) RecordPhysicalExam(ctx context.Context, session Session, input PhysicalExamInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.DistrictDate) == "" && strings.TrimSpace(input.CityDate) == "" && strings.TrimSpace(input.SpecialDate) == "" {
		return nil, validationError("at least one exam date is required")
	}
	for field, value := range map[string]string{
		"districtDate": input.DistrictDate,
		"cityDate":     input.CityDate,
		"specialDate":  input.SpecialDate,
	} {
		if strings.TrimSpace(value) == "" {
			continue
		}
		if err := requireDate(field, value); err != nil {
			return nil, err
		}
	}
	record := store.PhysicalExam{
		ID:           util.NewID("pe"),
		PersonID:     strings.TrimSpace(input.PersonID),
		BodyStatus:   input.BodyStatus,
		DistrictDate: input.DistrictDate,
		CityDate:     input.CityDate,
		SpecialDate:  input.SpecialDate,
		Height:       input.Height,
		Weight:       input.Weight,
		Vision:       input.Vision,
		Conclusion:   input.Conclusion,
		RecordedBy:   session.UserName,
	}
	if err := s.store.InsertPhysicalExam(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourcePhysicalExam), record.ID, record, session.UserName)
	return physicalPayload(record), nil
}

func (s *Service) RecordDailyStatus(ctx context.Context, session Session, input DailyStatusInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if err := requireDate("obsDate", input.ObsDate); err != nil {
		return nil, err
	}
	record := store.DailyStatus{
		ID:                util.NewID("ds"),
		PersonID:          strings.TrimSpace(input.PersonID),
		ObsDate:           input.ObsDate,
		Mood:              input.Mood,
		PhysicalCondition: input.PhysicalCondition,
		MentalState:       input.MentalState,
		Training:          input.Training,
		Management:        input.Management,
		Notes:             input.Notes,
		RecordedBy:        session.UserName,
	}
	if err := s.store.InsertDailyStatus(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourceDailyStatus), record.ID, record, session.UserName)
	return dailyPayload(record), nil
}

func (s *Service) RecordTownInterview(ctx context.Context, session Session, input TownInterviewInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if err := requireDate("obsDate", input.ObsDate); err != nil {
		return nil, err
	}
	record := store.TownInterview{
		ID:          util.NewID("ti"),
		PersonID:    strings.TrimSpace(input.PersonID),
		ObsDate:     input.ObsDate,
		Thoughts:    input.Thoughts,
		Spirit:      input.Spirit,
		Interviewer: input.Interviewer,
		Location:    input.Location,
		Summary:     input.Summary,
		RecordedBy:  session.UserName,
	}
	if err := s.store.InsertTownInterview(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourceTownInterview), record.ID, record, session.UserName)
	return townPayload(record), nil
}

func (s *Service) RecordLeaderInterview(ctx context.Context, session Session, input LeaderInterviewInput) (map[string]any, error) {
	if err := s.requirePerson(ctx, input.PersonID); err != nil {
		return nil, err
	}
	if err := requireDate("obsDate", input.ObsDate); err != nil {
		return nil, err
	}
	record := store.LeaderInterview{
		ID:          util.NewID("li"),
		PersonID:    strings.TrimSpace(input.PersonID),
		ObsDate:     input.ObsDate,
		Thoughts:    input.Thoughts,
		Spirit:      input.Spirit,
		Interviewer: input.Interviewer,
		Summary:     input.Summary,
		RecordedBy:  session.UserName,
	}
	if err := s.store.InsertLeaderInterview(ctx, record); err != nil {
		return nil, err
	}
	s.snapshotObservation(record.PersonID, string(exception.SourceLeaderInterview), record.ID, record, session.UserName)
	return leaderPayload(record), nil
}

func (s *Service) ListObservations(ctx context.Context, personID, source string) ([]map[string]any, error) {
	if err := s.requirePerson(ctx, personID); err != nil {
		return nil, err
	}
	switch exception.Source(source) {
	case exception.SourceMedicalScreening:
		records, err := s.store.ListMedicalScreeningsForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, medicalPayload(r))
		}
		return items, nil
	case exception.SourcePoliticalAssessment:
		records, err := s.store.ListPoliticalAssessmentsForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, politicalPayload(r))
		}
		return items, nil
	case exception.SourcePhysicalExam:
		records, err := s.store.ListPhysicalExamsForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, physicalPayload(r))
		}
		return items, nil
	case exception.SourceDailyStatus:
		records, err := s.store.ListDailyStatusesForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, dailyPayload(r))
		}
		return items, nil
	case exception.SourceTownInterview:
		records, err := s.store.ListTownInterviewsForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, townPayload(r))
		}
		return items, nil
	case exception.SourceLeaderInterview:
		records, err := s.store.ListLeaderInterviewsForPerson(ctx, personID)
		if err != nil {
			return nil, err
		}
		items := make([]map[string]any, 0, len(records))
		for _, r := range records {
			items = append(items, leaderPayload(r))
		}
		return items, nil
	default:
		return nil, validationError("unknown observation source")
	}
}

func (s *Service) DeleteObservation(ctx context.Context, source, id string) error {
	if !exception.ValidSource(exception.Source(source)) {
		return validationError("unknown observation source")
	}
	return s.store.DeleteObservation(ctx, source, id)
}

func medicalPayload(r store.MedicalScreening) map[string]any {
	return map[string]any{
		"id":             r.ID,
		"personId":       r.PersonID,
		"obsDate":        r.ObsDate,
		"physicalStatus": r.PhysicalStatus,
		"mentalStatus":   r.MentalStatus,
		"hospital":       r.Hospital,
		"conclusion":     r.Conclusion,
		"recordedBy":     r.RecordedBy,
	}
}

func politicalPayload(r store.PoliticalAssessment) map[string]any {
	return map[string]any{
		"id":         r.ID,
		"personId":   r.PersonID,
		"obsDate":    r.ObsDate,
		"thoughts":   r.Thoughts,
		"spirit":     r.Spirit,
		"background": r.Background,
		"conclusion": r.Conclusion,
		"recordedBy": r.RecordedBy,
	}
}

func physicalPayload(r store.PhysicalExam) map[string]any {
	return map[string]any{
		"id":           r.ID,
		"personId":     r.PersonID,
		"bodyStatus":   r.BodyStatus,
		"districtDate": r.DistrictDate,
		"cityDate":     r.CityDate,
		"specialDate":  r.SpecialDate,
		"height":       r.Height,
		"weight":       r.Weight,
		"vision":       r.Vision,
		"conclusion":   r.Conclusion,
		"recordedBy":   r.RecordedBy,
	}
}

func dailyPayload(r store.DailyStatus) map[string]any {
	return map[string]any{
		"id":                r.ID,
		"personId":          r.PersonID,
		"obsDate":           r.ObsDate,
		"mood":              r.Mood,
		"physicalCondition": r.PhysicalCondition,
		"mentalState":       r.MentalState,
		"training":          r.Training,
		"management":        r.Management,
		"notes":             r.Notes,
		"recordedBy":        r.RecordedBy,
	}
}

func townPayload(r store.TownInterview) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"personId":    r.PersonID,
		"obsDate":     r.ObsDate,
		"thoughts":    r.Thoughts,
		"spirit":      r.Spirit,
		"interviewer": r.Interviewer,
		"location":    r.Location,
		"summary":     r.Summary,
		"recordedBy":  r.RecordedBy,
	}
}

func leaderPayload(r store.LeaderInterview) map[string]any {
	return map[string]any{
		"id":          r.ID,
		"personId":    r.PersonID,
		"obsDate":     r.ObsDate,
		"thoughts":    r.Thoughts,
		"spirit":      r.Spirit,
		"interviewer": r.Interviewer,
		"summary":     r.Summary,
		"recordedBy":  r.RecordedBy,
	}
}

// ---- Exception views ----

func (s *Service) Exceptions(ctx context.Context, filter exception.Filter) (map[string]any, error) {
	records, diag, err := s.engine.ListExceptions(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]map[string]any, 0, len(records))
	for _, r := range records {
		items = append(items, recordPayload(r))
	}
	return map[string]any{
		"records":     items,
		"diagnostics": diagnosticsPayload(diag),
	}, nil
}

func (s *Service) ExceptionSummary(ctx context.Context, dateFrom, dateTo string) (map[string]any, error) {
	summary, diag, err := s.engine.Summarize(ctx, dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"thought":     summary.Thought,
		"body":        summary.Body,
		"spirit":      summary.Spirit,
		"training":    summary.Training,
		"management":  summary.Management,
		"records":     summary.Records,
		"persons":     summary.Persons,
		"dates":       summary.Dates,
		"diagnostics": diagnosticsPayload(diag),
	}, nil
}

func (s *Service) ExceptionDetail(ctx context.Context, personID, date, source string) (map[string]any, error) {
	if !exception.ValidSource(exception.Source(source)) {
		return nil, validationError("unknown observation source")
	}
	detail, err := s.engine.SourceDetail(ctx, personID, date, exception.Source(source))
	if err != nil {
		return nil, err
	}
	if detail == nil {
		return nil, notFoundError("No observation recorded by this source on this date")
	}

	observations := make([]any, 0, len(detail.Observations))
	for _, fields := range detail.Observations {
		items := make([]map[string]any, 0, len(fields))
		for _, f := range fields {
			items = append(items, map[string]any{"label": f.Label, "value": f.Value})
		}
		observations = append(observations, items)
	}
	return map[string]any{
		"source":       string(detail.Source),
		"personId":     detail.PersonID,
		"date":         detail.Date,
		"observations": observations,
	}, nil
}

func (s *Service) PersonSeries(ctx context.Context, personID, dateFrom, dateTo string) (map[string]any, error) {
	if err := s.requirePerson(ctx, personID); err != nil {
		return nil, err
	}
	points, diag, err := s.engine.TimeSeries(ctx, personID, dateFrom, dateTo)
	if err != nil {
		return nil, validationError(err.Error())
	}
	items := make([]map[string]any, 0, len(points))
	for _, p := range points {
		items = append(items, map[string]any{
			"date":                p.Date,
			"thought":             p.Thought,
			"body":                p.Body,
			"spirit":              p.Spirit,
			"training":            p.Training,
			"management":          p.Management,
			"total":               p.Total,
			"medicalScreening":    p.MedicalScreening,
			"politicalAssessment": p.PoliticalAssessment,
			"physicalExam":        p.PhysicalExam,
			"dailyStatus":         p.DailyStatus,
			"townInterview":       p.TownInterview,
			"leaderInterview":     p.LeaderInterview,
		})
	}
	return map[string]any{
		"personId":    personID,
		"series":      items,
		"diagnostics": diagnosticsPayload(diag),
	}, nil
}

func (s *Service) ObservationDates(ctx context.Context) (map[string]any, error) {
	dates, diag, err := s.engine.DateUniverse(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"dates":       dates,
		"diagnostics": diagnosticsPayload(diag),
	}, nil
}

func (s *Service) ExportExceptions(ctx context.Context, filter exception.Filter, format string) (*export.Result, error) {
	records, _, err := s.engine.ListExceptions(ctx, filter)
	if err != nil {
		return nil, err
	}
	rows := make([]export.Row, 0, len(records))
	for _, r := range records {
		rows = append(rows, export.Row{
			Date:             r.Date,
			Name:             r.Name,
			Gender:           r.Gender,
			PersonID:         r.PersonID,
			Company:          r.Company,
			Platoon:          r.Platoon,
			Squad:            r.Squad,
			SquadLeader:      r.SquadLeader,
			RecruitmentPlace: r.RecruitmentPlace,
			Thought:          r.Thought,
			Body:             r.Body,
			Spirit:           r.Spirit,
			Training:         r.Training,
			Management:       r.Management,
			Sources:          r.SourceLabel(),
		})
	}
	return export.ExportListing(rows, format, filter.DateFrom, filter.DateTo)
}

func recordPayload(r exception.Record) map[string]any {
	return map[string]any{
		"date":             r.Date,
		"personId":         r.PersonID,
		"name":             r.Name,
		"gender":           r.Gender,
		"company":          r.Company,
		"platoon":          r.Platoon,
		"squad":            r.Squad,
		"squadLeader":      r.SquadLeader,
		"recruitmentPlace": r.RecruitmentPlace,
		"thought":          r.Thought,
		"body":             r.Body,
		"spirit":           r.Spirit,
		"training":         r.Training,
		"management":       r.Management,
		"sources":          r.Sources,
		"sourceLabel":      r.SourceLabel(),
	}
}

func diagnosticsPayload(d exception.Diagnostics) map[string]any {
	return map[string]any{
		"orphanedObservations": d.OrphanedObservations,
		"malformedDates":       d.MalformedDates,
	}
}

// ---- Quick-find ----

func (s *Service) SearchPersons(q search.Query) search.Response {
	if s.search == nil {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

// ---- Screening photos ----

func (s *Service) photosEnabled() error {
	if s.photos == nil {
		return domainError(http.StatusServiceUnavailable, "PHOTOS_DISABLED", "Photo storage is not configured", nil)
	}
	return nil
}

func (s *Service) UploadPhoto(ctx context.Context, personID, filename, contentType string, r io.Reader, size int64) (map[string]any, error) {
	if err := s.photosEnabled(); err != nil {
		return nil, err
	}
	if err := s.requirePerson(ctx, personID); err != nil {
		return nil, err
	}
	key, err := s.photos.Upload(ctx, personID, filename, contentType, r, size)
	if err != nil {
		return nil, err
	}
	return map[string]any{"key": key}, nil
}

func (s *Service) ListPhotos(ctx context.Context, personID string) ([]photos.Photo, error) {
	if err := s.photosEnabled(); err != nil {
		return nil, err
	}
	if err := s.requirePerson(ctx, personID); err != nil {
		return nil, err
	}
	return s.photos.List(ctx, personID)
}

func (s *Service) PhotoURL(ctx context.Context, key string) (map[string]any, error) {
	if err := s.photosEnabled(); err != nil {
		return nil, err
	}
	url, err := s.photos.PresignedGet(ctx, key, 15*time.Minute)
	if err != nil {
		return nil, err
	}
	return map[string]any{"url": url}, nil
}

func (s *Service) DeletePhoto(ctx context.Context, key string) error {
	if err := s.photosEnabled(); err != nil {
		return err
	}
	return s.photos.Delete(ctx, key)
}

// ---- Audit dossier ----

func (s *Service) PersonDossier(ctx context.Context, personID string, limit int) (map[string]any, error) {
	if err := s.requirePerson(ctx, personID); err != nil {
		return nil, err
	}
	entries := []dossier.Entry{}
	if s.dossiers != nil {
		loaded, err := s.dossiers.History(personID, limit)
		if err != nil {
			return nil, err
		}
		entries = loaded
	}
	return map[string]any{
		"personId": personID,
		"entries":  entries,
	}, nil
}
