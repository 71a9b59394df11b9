package search

import "log"

// Service is the facade that tries Meilisearch first and falls back to the
// Postgres matcher.
type Service struct {
	meili *Meili
	pg    *PgSearch
}

// NewService creates a search service. meili may be nil if Meilisearch is not
// configured.
func NewService(meili *Meili, pg *PgSearch) *Service {
	return &Service{meili: meili, pg: pg}
}

// Search tries Meilisearch if healthy, otherwise falls back to Postgres.
func (s *Service) Search(q Query) Response {
	if s.meili != nil && s.meili.Healthy() {
		results, total, err := s.meili.Search(q)
		if err == nil {
			return Response{Results: nonNil(results), Total: total, Query: q.Text}
		}
		log.Printf("search: meilisearch error, falling back to postgres: %v", err)
	}

	results, total, err := s.pg.Search(q)
	if err != nil {
		log.Printf("search: postgres error: %v", err)
		return Response{Results: []Result{}, Total: 0, Query: q.Text}
	}
	return Response{Results: nonNil(results), Total: total, Query: q.Text}
}

// IndexPerson indexes a person (fire-and-forget to Meilisearch).
func (s *Service) IndexPerson(p PersonRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.IndexPerson(p); err != nil {
			log.Printf("search: index person %s: %v", p.ID, err)
		}
	}()
}

// ReindexPersons bulk-indexes the whole registry, used on bootstrap.
func (s *Service) ReindexPersons(persons []PersonRecord) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	if err := s.meili.IndexPersons(persons); err != nil {
		log.Printf("search: reindex persons: %v", err)
	}
}

// RemovePerson drops a person from the index (fire-and-forget).
func (s *Service) RemovePerson(id string) {
	if s.meili == nil || !s.meili.Healthy() {
		return
	}
	go func() {
		if err := s.meili.DeletePerson(id); err != nil {
			log.Printf("search: delete person %s: %v", id, err)
		}
	}()
}

func nonNil(results []Result) []Result {
	if results == nil {
		return []Result{}
	}
	return results
}
