package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---- Person registry ----

func (s *PostgresStore) CreatePerson(ctx context.Context, p Person) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO persons (id, name, gender, company, platoon, squad, squad_leader, recruitment_place)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, p.ID, p.Name, p.Gender, p.Company, p.Platoon, p.Squad, p.SquadLeader, p.RecruitmentPlace)
	if err != nil {
		return fmt.Errorf("insert person: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdatePerson(ctx context.Context, p Person) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE persons
		SET name=$2, gender=$3, company=$4, platoon=$5, squad=$6, squad_leader=$7, recruitment_place=$8, updated_at=NOW()
		WHERE id=$1
	`, p.ID, p.Name, p.Gender, p.Company, p.Platoon, p.Squad, p.SquadLeader, p.RecruitmentPlace)
	if err != nil {
		return fmt.Errorf("update person: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update person rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *PostgresStore) DeletePerson(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete person: %w", err)
	}
	return nil
}

const personColumns = `id, name, gender, company, platoon, squad, squad_leader, recruitment_place, created_at, updated_at`

func scanPerson(row interface{ Scan(...any) error }) (Person, error) {
	var p Person
	err := row.Scan(&p.ID, &p.Name, &p.Gender, &p.Company, &p.Platoon, &p.Squad, &p.SquadLeader, &p.RecruitmentPlace, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (s *PostgresStore) GetPerson(ctx context.Context, id string) (Person, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+personColumns+` FROM persons WHERE id=$1`, id)
	return scanPerson(row)
}

func (s *PostgresStore) ListPersons(ctx context.Context, filter PersonFilter) ([]Person, error) {
	query := `SELECT ` + personColumns + ` FROM persons`
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.Name != "" {
		conditions = append(conditions, "name LIKE "+arg("%"+filter.Name+"%"))
	}
	if filter.Company != "" {
		conditions = append(conditions, "company = "+arg(filter.Company))
	}
	if filter.Platoon != "" {
		conditions = append(conditions, "platoon = "+arg(filter.Platoon))
	}
	if filter.Squad != "" {
		conditions = append(conditions, "squad = "+arg(filter.Squad))
	}
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY company, platoon, squad, name"
	if filter.Limit > 0 {
		query += " LIMIT " + arg(filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET " + arg(filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []Person
	for rows.Next() {
		p, err := scanPerson(rows)
		if err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// ---- Medical screenings ----

const medicalColumns = `id, person_id, obs_date, physical_status, mental_status, hospital, conclusion, recorded_by, created_at, updated_at`

func scanMedicalScreening(row interface{ Scan(...any) error }) (MedicalScreening, error) {
	var m MedicalScreening
	err := row.Scan(&m.ID, &m.PersonID, &m.ObsDate, &m.PhysicalStatus, &m.MentalStatus, &m.Hospital, &m.Conclusion, &m.RecordedBy, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

func (s *PostgresStore) InsertMedicalScreening(ctx context.Context, m MedicalScreening) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO medical_screenings (id, person_id, obs_date, physical_status, mental_status, hospital, conclusion, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, m.ID, m.PersonID, m.ObsDate, m.PhysicalStatus, m.MentalStatus, m.Hospital, m.Conclusion, m.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert medical screening: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMedicalScreenings(ctx context.Context) ([]MedicalScreening, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+medicalColumns+` FROM medical_screenings`)
	if err != nil {
		return nil, fmt.Errorf("list medical screenings: %w", err)
	}
	defer rows.Close()

	var items []MedicalScreening
	for rows.Next() {
		m, err := scanMedicalScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medical screening: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListMedicalScreeningsForPerson(ctx context.Context, personID string) ([]MedicalScreening, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+medicalColumns+` FROM medical_screenings WHERE person_id=$1 ORDER BY obs_date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list medical screenings for person: %w", err)
	}
	defer rows.Close()

	var items []MedicalScreening
	for rows.Next() {
		m, err := scanMedicalScreening(rows)
		if err != nil {
			return nil, fmt.Errorf("scan medical screening: %w", err)
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// ---- Political assessments ----

const politicalColumns = `id, person_id, obs_date, thoughts, spirit, background, conclusion, recorded_by, created_at, updated_at`

func scanPoliticalAssessment(row interface{ Scan(...any) error }) (PoliticalAssessment, error) {
	var a PoliticalAssessment
	err := row.Scan(&a.ID, &a.PersonID, &a.ObsDate, &a.Thoughts, &a.Spirit, &a.Background, &a.Conclusion, &a.RecordedBy, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

func (s *PostgresStore) InsertPoliticalAssessment(ctx context.Context, a PoliticalAssessment) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO political_assessments (id, person_id, obs_date, thoughts, spirit, background, conclusion, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, a.ID, a.PersonID, a.ObsDate, a.Thoughts, a.Spirit, a.Background, a.Conclusion, a.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert political assessment: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPoliticalAssessments(ctx context.Context) ([]PoliticalAssessment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+politicalColumns+` FROM political_assessments`)
	if err != nil {
		return nil, fmt.Errorf("list political assessments: %w", err)
	}
	defer rows.Close()

	var items []PoliticalAssessment
	for rows.Next() {
		a, err := scanPoliticalAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan political assessment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListPoliticalAssessmentsForPerson(ctx context.Context, personID string) ([]PoliticalAssessment, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+politicalColumns+` FROM political_assessments WHERE person_id=$1 ORDER BY obs_date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list political assessments for person: %w", err)
	}
	defer rows.Close()

	var items []PoliticalAssessment
	for rows.Next() {
		a, err := scanPoliticalAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan political assessment: %w", err)
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// ---- Physical exams ----

const physicalColumns = `id, person_id, body_status, district_date, city_date, special_date, height, weight, vision, conclusion, recorded_by, created_at, updated_at`

func scanPhysicalExam(row interface{ Scan(...any) error }) (PhysicalExam, error) {
	var e PhysicalExam
	err := row.Scan(&e.ID, &e.PersonID, &e.BodyStatus, &e.DistrictDate, &e.CityDate, &e.SpecialDate, &e.Height, &e.Weight, &e.Vision, &e.Conclusion, &e.RecordedBy, &e.CreatedAt, &e.UpdatedAt)
	return e, err
}

func (s *PostgresStore) InsertPhysicalExam(ctx context.Context, e PhysicalExam) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO physical_exams (id, person_id, body_status, district_date, city_date, special_date, height, weight, vision, conclusion, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, e.ID, e.PersonID, e.BodyStatus, e.DistrictDate, e.CityDate, e.SpecialDate, e.Height, e.Weight, e.Vision, e.Conclusion, e.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert physical exam: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListPhysicalExams(ctx context.Context) ([]PhysicalExam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+physicalColumns+` FROM physical_exams`)
	if err != nil {
		return nil, fmt.Errorf("list physical exams: %w", err)
	}
	defer rows.Close()

	var items []PhysicalExam
	for rows.Next() {
		e, err := scanPhysicalExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan physical exam: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListPhysicalExamsForPerson(ctx context.Context, personID string) ([]PhysicalExam, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+physicalColumns+` FROM physical_exams WHERE person_id=$1 ORDER BY created_at DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list physical exams for person: %w", err)
	}
	defer rows.Close()

	var items []PhysicalExam
	for rows.Next() {
		e, err := scanPhysicalExam(rows)
		if err != nil {
			return nil, fmt.Errorf("scan physical exam: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

// ---- Daily statuses ----

const dailyColumns = `id, person_id, obs_date, mood, physical_condition, mental_state, training, management, notes, recorded_by, created_at, updated_at`

func scanDailyStatus(row interface{ Scan(...any) error }) (DailyStatus, error) {
	var d DailyStatus
	err := row.Scan(&d.ID, &d.PersonID, &d.ObsDate, &d.Mood, &d.PhysicalCondition, &d.MentalState, &d.Training, &d.Management, &d.Notes, &d.RecordedBy, &d.CreatedAt, &d.UpdatedAt)
	return d, err
}

func (s *PostgresStore) InsertDailyStatus(ctx context.Context, d DailyStatus) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_statuses (id, person_id, obs_date, mood, physical_condition, mental_state, training, management, notes, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, d.ID, d.PersonID, d.ObsDate, d.Mood, d.PhysicalCondition, d.MentalState, d.Training, d.Management, d.Notes, d.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert daily status: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListDailyStatuses(ctx context.Context) ([]DailyStatus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+dailyColumns+` FROM daily_statuses`)
	if err != nil {
		return nil, fmt.Errorf("list daily statuses: %w", err)
	}
	defer rows.Close()

	var items []DailyStatus
	for rows.Next() {
		d, err := scanDailyStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily status: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListDailyStatusesForPerson(ctx context.Context, personID string) ([]DailyStatus, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+dailyColumns+` FROM daily_statuses WHERE person_id=$1 ORDER BY obs_date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list daily statuses for person: %w", err)
	}
	defer rows.Close()

	var items []DailyStatus
	for rows.Next() {
		d, err := scanDailyStatus(rows)
		if err != nil {
			return nil, fmt.Errorf("scan daily status: %w", err)
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

// ---- Town interviews ----

const townColumns = `id, person_id, obs_date, thoughts, spirit, interviewer, location, summary, recorded_by, created_at, updated_at`

func scanTownInterview(row interface{ Scan(...any) error }) (TownInterview, error) {
	var i TownInterview
	err := row.Scan(&i.ID, &i.PersonID, &i.ObsDate, &i.Thoughts, &i.Spirit, &i.Interviewer, &i.Location, &i.Summary, &i.RecordedBy, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (s *PostgresStore) InsertTownInterview(ctx context.Context, i TownInterview) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO town_interviews (id, person_id, obs_date, thoughts, spirit, interviewer, location, summary, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, i.ID, i.PersonID, i.ObsDate, i.Thoughts, i.Spirit, i.Interviewer, i.Location, i.Summary, i.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert town interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListTownInterviews(ctx context.Context) ([]TownInterview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+townColumns+` FROM town_interviews`)
	if err != nil {
		return nil, fmt.Errorf("list town interviews: %w", err)
	}
	defer rows.Close()

	var items []TownInterview
	for rows.Next() {
		i, err := scanTownInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan town interview: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListTownInterviewsForPerson(ctx context.Context, personID string) ([]TownInterview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+townColumns+` FROM town_interviews WHERE person_id=$1 ORDER BY obs_date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list town interviews for person: %w", err)
	}
	defer rows.Close()

	var items []TownInterview
	for rows.Next() {
		i, err := scanTownInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan town interview: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// ---- Leader interviews ----

const leaderColumns = `id, person_id, obs_date, thoughts, spirit, interviewer, summary, recorded_by, created_at, updated_at`

func scanLeaderInterview(row interface{ Scan(...any) error }) (LeaderInterview, error) {
	var i LeaderInterview
	err := row.Scan(&i.ID, &i.PersonID, &i.ObsDate, &i.Thoughts, &i.Spirit, &i.Interviewer, &i.Summary, &i.RecordedBy, &i.CreatedAt, &i.UpdatedAt)
	return i, err
}

func (s *PostgresStore) InsertLeaderInterview(ctx context.Context, i LeaderInterview) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO leader_interviews (id, person_id, obs_date, thoughts, spirit, interviewer, summary, recorded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, i.ID, i.PersonID, i.ObsDate, i.Thoughts, i.Spirit, i.Interviewer, i.Summary, i.RecordedBy)
	if err != nil {
		return fmt.Errorf("insert leader interview: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListLeaderInterviews(ctx context.Context) ([]LeaderInterview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leaderColumns+` FROM leader_interviews`)
	if err != nil {
		return nil, fmt.Errorf("list leader interviews: %w", err)
	}
	defer rows.Close()

	var items []LeaderInterview
	for rows.Next() {
		i, err := scanLeaderInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leader interview: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

func (s *PostgresStore) ListLeaderInterviewsForPerson(ctx context.Context, personID string) ([]LeaderInterview, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+leaderColumns+` FROM leader_interviews WHERE person_id=$1 ORDER BY obs_date DESC`, personID)
	if err != nil {
		return nil, fmt.Errorf("list leader interviews for person: %w", err)
	}
	defer rows.Close()

	var items []LeaderInterview
	for rows.Next() {
		i, err := scanLeaderInterview(rows)
		if err != nil {
			return nil, fmt.Errorf("scan leader interview: %w", err)
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// observationTables whitelists deletable observation tables by source tag.
var observationTables = map[string]string{
	"medical-screening":    "medical_screenings",
	"political-assessment": "political_assessments",
	"physical-exam":        "physical_exams",
	"daily-status":         "daily_statuses",
	"town-interview":       "town_interviews",
	"leader-interview":     "leader_interviews",
}

func (s *PostgresStore) DeleteObservation(ctx context.Context, source, id string) error {
	table, ok := observationTables[source]
	if !ok {
		return fmt.Errorf("unknown observation source %q", source)
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE id=$1`, id)
	if err != nil {
		return fmt.Errorf("delete %s observation: %w", source, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete observation rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ---- Operator accounts ----

const userColumns = `id, username, display_name, password_hash, role, deactivated_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.DisplayName, &u.PasswordHash, &u.Role, &u.DeactivatedAt, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}

func (s *PostgresStore) CreateUser(ctx context.Context, u User) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, username, display_name, password_hash, role)
		VALUES ($1, $2, $3, $4, $5)
	`, u.ID, u.Username, u.DisplayName, u.PasswordHash, u.Role)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
	return scanUser(row)
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id string) (User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (s *PostgresStore) UpdateUserPassword(ctx context.Context, userID, passwordHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE users SET password_hash=$2, updated_at=NOW() WHERE id=$1`, userID, passwordHash)
	if err != nil {
		return fmt.Errorf("update user password: %w", err)
	}
	return nil
}

func (s *PostgresStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return n, nil
}

// ---- Refresh sessions (Postgres fallback when Redis is not configured) ----

func (s *PostgresStore) SaveRefreshSession(ctx context.Context, tokenHash, userID string, expiresAt time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO refresh_sessions (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (token_hash) DO UPDATE SET user_id=EXCLUDED.user_id, expires_at=EXCLUDED.expires_at, revoked_at=NULL
	`, tokenHash, userID, expiresAt)
	if err != nil {
		return fmt.Errorf("save refresh session: %w", err)
	}
	return nil
}

func (s *PostgresStore) LookupRefreshSession(ctx context.Context, tokenHash string) (User, error) {
	const query = `
		SELECT u.id, u.username, u.display_name, u.password_hash, u.role, u.deactivated_at, u.created_at, u.updated_at
		FROM refresh_sessions rs
		JOIN users u ON u.id = rs.user_id
		WHERE rs.token_hash = $1
			AND rs.revoked_at IS NULL
			AND rs.expires_at > NOW()
	`
	row := s.db.QueryRowContext(ctx, query, tokenHash)
	user, err := scanUser(row)
	if err != nil {
		return User{}, err
	}
	return user, nil
}

func (s *PostgresStore) RevokeRefreshSession(ctx context.Context, tokenHash string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE refresh_sessions SET revoked_at=NOW() WHERE token_hash=$1`, tokenHash)
	if err != nil {
		return fmt.Errorf("revoke refresh session: %w", err)
	}
	return nil
}

var ErrNotFound = errors.New("not found")

// IsNotFound reports whether err is a missing-row condition from this store.
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows) || errors.Is(err, ErrNotFound)
}
