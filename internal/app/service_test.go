package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"vigil/api/internal/authpw"
	"vigil/api/internal/config"
	"vigil/api/internal/dossier"
	"vigil/api/internal/exception"
	"vigil/api/internal/store"
)

type fakeStore struct {
	mu sync.Mutex

	persons     map[string]store.Person
	medical     []store.MedicalScreening
	political   []store.PoliticalAssessment
	physical    []store.PhysicalExam
	daily       []store.DailyStatus
	town        []store.TownInterview
	leader      []store.LeaderInterview
	users       map[string]store.User
	byUsername  map[string]string
	deletedObs  []string
	insertErr   error
	listPersErr error
	pingErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		persons:    map[string]store.Person{},
		users:      map[string]store.User{},
		byUsername: map[string]string{},
	}
}

func (f *fakeStore) CreatePerson(_ context.Context, p store.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.persons[p.ID] = p
	return nil
}

func (f *fakeStore) UpdatePerson(_ context.Context, p store.Person) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.persons[p.ID]; !ok {
		return store.ErrNotFound
	}
	f.persons[p.ID] = p
	return nil
}

func (f *fakeStore) DeletePerson(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.persons, id)
	return nil
}

func (f *fakeStore) GetPerson(_ context.Context, id string) (store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.persons[id]
	if !ok {
		return store.Person{}, store.ErrNotFound
	}
	return p, nil
}

func (f *fakeStore) ListPersons(_ context.Context, _ store.PersonFilter) ([]store.Person, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listPersErr != nil {
		return nil, f.listPersErr
	}
	out := make([]store.Person, 0, len(f.persons))
	for _, p := range f.persons {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) InsertMedicalScreening(_ context.Context, m store.MedicalScreening) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.medical = append(f.medical, m)
	return nil
}

func (f *fakeStore) ListMedicalScreenings(_ context.Context) ([]store.MedicalScreening, error) {
	return f.medical, nil
}

func (f *fakeStore) ListMedicalScreeningsForPerson(_ context.Context, personID string) ([]store.MedicalScreening, error) {
	var out []store.MedicalScreening
	for _, m := range f.medical {
		if m.PersonID == personID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertPoliticalAssessment(_ context.Context, a store.PoliticalAssessment) error {
	f.political = append(f.political, a)
	return nil
}

func (f *fakeStore) ListPoliticalAssessments(_ context.Context) ([]store.PoliticalAssessment, error) {
	return f.political, nil
}

func (f *fakeStore) ListPoliticalAssessmentsForPerson(_ context.Context, personID string) ([]store.PoliticalAssessment, error) {
	var out []store.PoliticalAssessment
	for _, a := range f.political {
		if a.PersonID == personID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertPhysicalExam(_ context.Context, e store.PhysicalExam) error {
	f.physical = append(f.physical, e)
	return nil
}

func (f *fakeStore) ListPhysicalExams(_ context.Context) ([]store.PhysicalExam, error) {
	return f.physical, nil
}

func (f *fakeStore) ListPhysicalExamsForPerson(_ context.Context, personID string) ([]store.PhysicalExam, error) {
	var out []store.PhysicalExam
	for _, e := range f.physical {
		if e.PersonID == personID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertDailyStatus(_ context.Context, d store.DailyStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	f.daily = append(f.daily, d)
	return nil
}

func (f *fakeStore) ListDailyStatuses(_ context.Context) ([]store.DailyStatus, error) {
	return f.daily, nil
}

func (f *fakeStore) ListDailyStatusesForPerson(_ context.Context, personID string) ([]store.DailyStatus, error) {
	var out []store.DailyStatus
	for _, d := range f.daily {
		if d.PersonID == personID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertTownInterview(_ context.Context, i store.TownInterview) error {
	f.town = append(f.town, i)
	return nil
}

func (f *fakeStore) ListTownInterviews(_ context.Context) ([]store.TownInterview, error) {
	return f.town, nil
}

func (f *fakeStore) ListTownInterviewsForPerson(_ context.Context, personID string) ([]store.TownInterview, error) {
	var out []store.TownInterview
	for _, i := range f.town {
		if i.PersonID == personID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) InsertLeaderInterview(_ context.Context, i store.LeaderInterview) error {
	f.leader = append(f.leader, i)
	return nil
}

func (f *fakeStore) ListLeaderInterviews(_ context.Context) ([]store.LeaderInterview, error) {
	return f.leader, nil
}

func (f *fakeStore) ListLeaderInterviewsForPerson(_ context.Context, personID string) ([]store.LeaderInterview, error) {
	var out []store.LeaderInterview
	for _, i := range f.leader {
		if i.PersonID == personID {
			out = append(out, i)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteObservation(_ context.Context, source, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletedObs = append(f.deletedObs, source+"/"+id)
	return nil
}

func (f *fakeStore) CreateUser(_ context.Context, u store.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byUsername[u.Username]; ok {
		return errors.New("duplicate username")
	}
	f.users[u.ID] = u
	f.byUsername[u.Username] = u.ID
	return nil
}

func (f *fakeStore) GetUserByUsername(_ context.Context, username string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, ok := f.byUsername[username]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return f.users[id], nil
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (store.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrNotFound
	}
	return u, nil
}

func (f *fakeStore) UpdateUserPassword(_ context.Context, userID, passwordHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	f.users[userID] = u
	return nil
}

func (f *fakeStore) CountUsers(_ context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.users), nil
}

func (f *fakeStore) Ping(context.Context) error { return f.pingErr }

type fakeSessions struct {
	mu     sync.Mutex
	tokens map[string]string
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{tokens: map[string]string{}}
}

func (f *fakeSessions) SaveRefreshSession(_ context.Context, tokenHash, userID string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens[tokenHash] = userID
	return nil
}

func (f *fakeSessions) LookupRefreshSession(_ context.Context, tokenHash string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	userID, ok := f.tokens[tokenHash]
	if !ok {
		return "", store.ErrNotFound
	}
	return userID, nil
}

func (f *fakeSessions) RevokeRefreshSession(_ context.Context, tokenHash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.tokens, tokenHash)
	return nil
}

type snapshotCall struct {
	PersonID string
	Source   string
	RecordID string
	Author   string
}

type fakeDossier struct {
	mu        sync.Mutex
	snapshots []snapshotCall
	failWith  error
}

func (f *fakeDossier) SaveSnapshot(personID, source, recordID string, _ any, author string) (dossier.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return dossier.Entry{}, f.failWith
	}
	f.snapshots = append(f.snapshots, snapshotCall{PersonID: personID, Source: source, RecordID: recordID, Author: author})
	return dossier.Entry{Hash: "abc123", Message: source + ": record " + recordID, Author: author, When: time.Now()}, nil
}

func (f *fakeDossier) History(personID string, limit int) ([]dossier.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []dossier.Entry
	for _, s := range f.snapshots {
		if s.PersonID == personID {
			out = append(out, dossier.Entry{Hash: "abc123", Message: s.Source + ": record " + s.RecordID, Author: s.Author})
		}
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func testConfig() config.Config {
	return config.Config{
		JWTSecret:     "test-secret",
		AccessTTL:     15 * time.Minute,
		RefreshTTL:    time.Hour,
		AdminUsername: "admin",
		AdminPassword: "admin-pass-1",
	}
}

func newTestService(fs *fakeStore) (*Service, *fakeSessions, *fakeDossier) {
	sessions := newFakeSessions()
	dossiers := &fakeDossier{}
	svc := &Service{
		cfg:       testConfig(),
		store:     fs,
		engine:    exception.New(fs),
		passwords: authpw.NewService(fs),
		sessions:  sessions,
		dossiers:  dossiers,
	}
	return svc, sessions, dossiers
}

func seedOperator(t *testing.T, svc *Service, username, password, role string) Session {
	t.Helper()
	if _, err := svc.CreateOperator(context.Background(), username, username, password, role); err != nil {
		t.Fatalf("CreateOperator(%s): %v", username, err)
	}
	sess, err := svc.SignIn(context.Background(), username, password)
	if err != nil {
		t.Fatalf("SignIn(%s): %v", username, err)
	}
	return sess
}

func seedPerson(t *testing.T, fs *fakeStore, id, name string) {
	t.Helper()
	fs.persons[id] = store.Person{ID: id, Name: name, Company: "3", Platoon: "2", Squad: "1"}
}

func TestBootstrapCreatesAdminOnce(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("Bootstrap: %v", err)
	}
	if len(fs.users) != 1 {
		t.Fatalf("expected 1 bootstrap user, got %d", len(fs.users))
	}
	if err := svc.Bootstrap(context.Background()); err != nil {
		t.Fatalf("second Bootstrap: %v", err)
	}
	if len(fs.users) != 1 {
		t.Fatalf("expected admin to be created once, got %d users", len(fs.users))
	}

	if _, err := svc.SignIn(context.Background(), "admin", "admin-pass-1"); err != nil {
		t.Fatalf("admin sign-in after bootstrap: %v", err)
	}
}

func TestSignInAndSessionRoundTrip(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	sess := seedOperator(t, svc, "zhao", "recorder-pass", "recorder")
	if sess.Role != "recorder" {
		t.Fatalf("expected recorder role, got %q", sess.Role)
	}

	parsed, err := svc.SessionFromToken(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("SessionFromToken: %v", err)
	}
	if parsed.UserID != sess.UserID || parsed.Role != "recorder" {
		t.Fatalf("unexpected parsed session %+v", parsed)
	}
}

func TestSignInRejectsBadPassword(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedOperator(t, svc, "zhao", "recorder-pass", "recorder")

	if _, err := svc.SignIn(context.Background(), "zhao", "wrong-password"); !errors.Is(err, authpw.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.SignIn(context.Background(), "nobody", "whatever-pass"); !errors.Is(err, authpw.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	sess := seedOperator(t, svc, "zhao", "recorder-pass", "recorder")

	next, err := svc.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.RefreshToken == sess.RefreshToken {
		t.Fatal("expected refresh token rotation")
	}

	// The consumed token must not work a second time.
	if _, err := svc.Refresh(context.Background(), sess.RefreshToken); err == nil {
		t.Fatal("expected reuse of a rotated refresh token to fail")
	}
}

func TestRefreshPicksUpRoleChange(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	sess := seedOperator(t, svc, "zhao", "recorder-pass", "recorder")

	user := fs.users[sess.UserID]
	user.Role = "viewer"
	fs.users[sess.UserID] = user

	next, err := svc.Refresh(context.Background(), sess.RefreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if next.Role != "viewer" {
		t.Fatalf("expected demoted role after refresh, got %q", next.Role)
	}
}

func TestRefreshRejectsDeactivatedAccount(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	sess := seedOperator(t, svc, "zhao", "recorder-pass", "recorder")

	now := time.Now()
	user := fs.users[sess.UserID]
	user.DeactivatedAt = &now
	fs.users[sess.UserID] = user

	if _, err := svc.Refresh(context.Background(), sess.RefreshToken); !errors.Is(err, authpw.ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if _, err := svc.SessionFromToken(context.Background(), sess.Token); err == nil {
		t.Fatal("expected access token of deactivated account to be rejected")
	}
}

func TestSignOutRevokesRefreshToken(t *testing.T) {
	fs := newFakeStore()
	svc, sessions, _ := newTestService(fs)
	sess := seedOperator(t, svc, "zhao", "recorder-pass", "recorder")

	if err := svc.SignOut(context.Background(), sess.RefreshToken); err != nil {
		t.Fatalf("SignOut: %v", err)
	}
	if len(sessions.tokens) != 0 {
		t.Fatalf("expected refresh token revoked, %d remain", len(sessions.tokens))
	}
}

func TestCreatePersonValidation(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	if _, err := svc.CreatePerson(context.Background(), PersonInput{Name: "Li Ming"}); err == nil {
		t.Fatal("expected missing id to be rejected")
	}
	if _, err := svc.CreatePerson(context.Background(), PersonInput{ID: "110101199001011234"}); err == nil {
		t.Fatal("expected missing name to be rejected")
	}

	if _, err := svc.CreatePerson(context.Background(), PersonInput{ID: "110101199001011234", Name: "Li Ming", Company: "3"}); err != nil {
		t.Fatalf("CreatePerson: %v", err)
	}

	_, err := svc.CreatePerson(context.Background(), PersonInput{ID: "110101199001011234", Name: "Li Ming"})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PERSON_EXISTS" {
		t.Fatalf("expected PERSON_EXISTS, got %v", err)
	}
}

func TestUpdatePersonKeepsIDImmutable(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	_, err := svc.UpdatePerson(context.Background(), "110101199001011234", PersonInput{
		ID:   "999999999999999999",
		Name: "Li Ming",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected id change to be rejected, got %v", err)
	}

	payload, err := svc.UpdatePerson(context.Background(), "110101199001011234", PersonInput{
		Name:    "Li Ming",
		Company: "5",
	})
	if err != nil {
		t.Fatalf("UpdatePerson: %v", err)
	}
	if payload["company"] != "5" {
		t.Fatalf("expected updated company, got %v", payload["company"])
	}
}

func TestRecordDailyStatusRejectsUnknownPerson(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	_, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "zhao"}, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected unknown person rejection, got %v", err)
	}
}

func TestRecordDailyStatusRejectsBadDate(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	for _, date := range []string{"", "March 1st", "2024-13-01", "2024/03/01"} {
		_, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "zhao"}, DailyStatusInput{
			PersonID: "110101199001011234",
			ObsDate:  date,
			Mood:     "good",
		})
		var domainErr *DomainError
		if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
			t.Fatalf("expected date %q to be rejected, got %v", date, err)
		}
	}
}

func TestRecordObservationWritesDossierSnapshot(t *testing.T) {
	fs := newFakeStore()
	svc, _, dossiers := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	payload, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "Sgt. Zhao"}, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	})
	if err != nil {
		t.Fatalf("RecordDailyStatus: %v", err)
	}
	if len(dossiers.snapshots) != 1 {
		t.Fatalf("expected 1 dossier snapshot, got %d", len(dossiers.snapshots))
	}
	snap := dossiers.snapshots[0]
	if snap.Source != "daily-status" || snap.PersonID != "110101199001011234" || snap.Author != "Sgt. Zhao" {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if snap.RecordID != payload["id"] {
		t.Fatalf("snapshot record id %q does not match payload id %v", snap.RecordID, payload["id"])
	}
}

func TestRecordSurvivesDossierFailure(t *testing.T) {
	fs := newFakeStore()
	svc, _, dossiers := newTestService(fs)
	dossiers.failWith = errors.New("disk full")
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	if _, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "zhao"}, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "good",
	}); err != nil {
		t.Fatalf("expected write to survive dossier failure, got %v", err)
	}
	if len(fs.daily) != 1 {
		t.Fatalf("expected daily status stored, got %d", len(fs.daily))
	}
}

func TestRecordPhysicalExamRequiresOneDate(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	_, err := svc.RecordPhysicalExam(context.Background(), Session{UserName: "zhao"}, PhysicalExamInput{
		PersonID:   "110101199001011234",
		BodyStatus: "abnormal",
	})
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected missing exam dates rejection, got %v", err)
	}

	if _, err := svc.RecordPhysicalExam(context.Background(), Session{UserName: "zhao"}, PhysicalExamInput{
		PersonID:     "110101199001011234",
		BodyStatus:   "abnormal",
		DistrictDate: "2024-03-01",
	}); err != nil {
		t.Fatalf("RecordPhysicalExam: %v", err)
	}
}

func TestExceptionsReflectRecordedObservations(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	if _, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "zhao"}, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	}); err != nil {
		t.Fatalf("RecordDailyStatus: %v", err)
	}

	payload, err := svc.Exceptions(context.Background(), exception.Filter{})
	if err != nil {
		t.Fatalf("Exceptions: %v", err)
	}
	records := payload["records"].([]map[string]any)
	if len(records) != 1 {
		t.Fatalf("expected 1 exception record, got %d", len(records))
	}
	if records[0]["thought"] != true {
		t.Fatalf("expected thought category flagged, got %v", records[0])
	}
	if records[0]["sourceLabel"] != "daily-status" {
		t.Fatalf("unexpected source label %v", records[0]["sourceLabel"])
	}
}

func TestExceptionDetailErrors(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	_, err := svc.ExceptionDetail(context.Background(), "110101199001011234", "2024-03-01", "palm-reading")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "VALIDATION_ERROR" {
		t.Fatalf("expected unknown source rejection, got %v", err)
	}

	_, err = svc.ExceptionDetail(context.Background(), "110101199001011234", "2024-03-01", "daily-status")
	if !errors.As(err, &domainErr) || domainErr.Code != "NOT_FOUND" {
		t.Fatalf("expected NOT_FOUND for absent detail, got %v", err)
	}
}

func TestPersonSeriesValidatesBounds(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	if _, err := svc.PersonSeries(context.Background(), "110101199001011234", "not-a-date", "2024-03-05"); err == nil {
		t.Fatal("expected unparseable bound to be rejected")
	}

	payload, err := svc.PersonSeries(context.Background(), "110101199001011234", "2024-03-01", "2024-03-05")
	if err != nil {
		t.Fatalf("PersonSeries: %v", err)
	}
	series := payload["series"].([]map[string]any)
	if len(series) != 5 {
		t.Fatalf("expected 5 daily points, got %d", len(series))
	}
}

func TestDeleteObservationRejectsUnknownSource(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)

	if err := svc.DeleteObservation(context.Background(), "palm-reading", "x_1"); err == nil {
		t.Fatal("expected unknown source to be rejected")
	}
	if err := svc.DeleteObservation(context.Background(), "daily-status", "ds_1"); err != nil {
		t.Fatalf("DeleteObservation: %v", err)
	}
	if len(fs.deletedObs) != 1 || fs.deletedObs[0] != "daily-status/ds_1" {
		t.Fatalf("unexpected deletions %v", fs.deletedObs)
	}
}

func TestPhotosDisabledByDefault(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	_, err := svc.ListPhotos(context.Background(), "110101199001011234")
	var domainErr *DomainError
	if !errors.As(err, &domainErr) || domainErr.Code != "PHOTOS_DISABLED" {
		t.Fatalf("expected PHOTOS_DISABLED, got %v", err)
	}
}

func TestExportExceptionsCSV(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	if _, err := svc.RecordDailyStatus(context.Background(), Session{UserName: "zhao"}, DailyStatusInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Mood:     "abnormal",
	}); err != nil {
		t.Fatalf("RecordDailyStatus: %v", err)
	}

	result, err := svc.ExportExceptions(context.Background(), exception.Filter{}, "csv")
	if err != nil {
		t.Fatalf("ExportExceptions: %v", err)
	}
	if result.MimeType != "text/csv; charset=utf-8" {
		t.Fatalf("unexpected mime type %q", result.MimeType)
	}
	if len(result.Data) == 0 {
		t.Fatal("expected CSV data")
	}

	if _, err := svc.ExportExceptions(context.Background(), exception.Filter{}, "docx"); err == nil {
		t.Fatal("expected unknown export format to be rejected")
	}
}

func TestPersonDossierReturnsHistory(t *testing.T) {
	fs := newFakeStore()
	svc, _, _ := newTestService(fs)
	seedPerson(t, fs, "110101199001011234", "Li Ming")

	if _, err := svc.RecordTownInterview(context.Background(), Session{UserName: "zhao"}, TownInterviewInput{
		PersonID: "110101199001011234",
		ObsDate:  "2024-03-01",
		Thoughts: "worried about family",
	}); err != nil {
		t.Fatalf("RecordTownInterview: %v", err)
	}

	payload, err := svc.PersonDossier(context.Background(), "110101199001011234", 0)
	if err != nil {
		t.Fatalf("PersonDossier: %v", err)
	}
	entries := payload["entries"].([]dossier.Entry)
	if len(entries) != 1 {
		t.Fatalf("expected 1 dossier entry, got %d", len(entries))
	}
}
