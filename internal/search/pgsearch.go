package search

import (
	"database/sql"
	"fmt"
	"strings"
)

// PgSearch implements Searcher with ILIKE matching over the person registry,
// used as the fallback when Meilisearch is not configured or down. Names and
// citizen IDs are short, so trigram-style ranking buys nothing here.
type PgSearch struct {
	db *sql.DB
}

func NewPgSearch(db *sql.DB) *PgSearch {
	return &PgSearch{db: db}
}

// Healthy always returns true. If Postgres is down, the whole app is down.
func (p *PgSearch) Healthy() bool {
	return true
}

func (p *PgSearch) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	pattern := "%" + q.Text + "%"
	where := `(name ILIKE $1 OR id ILIKE $1 OR recruitment_place ILIKE $1)`
	args := []any{pattern}
	if q.Company != "" {
		where += fmt.Sprintf(" AND company = $%d", len(args)+1)
		args = append(args, q.Company)
	}

	var total int
	if err := p.db.QueryRow(`SELECT COUNT(*) FROM persons WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count persons: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, company, platoon, squad, recruitment_place
		FROM persons
		WHERE %s
		ORDER BY name, id
		LIMIT $%d OFFSET $%d`, where, len(args)+1, len(args)+2)
	args = append(args, limit, offset)

	rows, err := p.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search persons: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.PersonID, &r.Name, &r.Company, &r.Platoon, &r.Squad, &r.RecruitmentPlace); err != nil {
			return nil, 0, fmt.Errorf("scan person hit: %w", err)
		}
		results = append(results, r)
	}
	return results, total, rows.Err()
}
