// Package search provides the person quick-find used by the console UI:
// Meilisearch when configured and healthy, Postgres matching otherwise.
package search

// Result is a single person hit.
type Result struct {
	PersonID         string `json:"personId"`
	Name             string `json:"name"`
	Company          string `json:"company"`
	Platoon          string `json:"platoon"`
	Squad            string `json:"squad"`
	RecruitmentPlace string `json:"recruitmentPlace"`
}

// Query describes a quick-find request.
type Query struct {
	Text    string
	Company string
	Limit   int
	Offset  int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a person search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push persons into a search index.
type Indexer interface {
	IndexPerson(p PersonRecord) error
	IndexPersons(persons []PersonRecord) error
	DeletePerson(id string) error
}

// PersonRecord is the data we index for a person.
type PersonRecord struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Company          string `json:"company"`
	Platoon          string `json:"platoon"`
	Squad            string `json:"squad"`
	RecruitmentPlace string `json:"recruitmentPlace"`
}
