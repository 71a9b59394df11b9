package search

import (
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
)

const idxPersons = "vigil_persons"

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
}

// NewMeili creates a Meilisearch client and configures the person index.
// The client starts unhealthy if the initial connection fails; the caller
// should proceed and let the health loop pick it up.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
	}

	if _, err := client.Health(); err != nil {
		log.Printf("search: meilisearch unavailable at %s: %v", url, err)
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndex()
	}

	go m.healthLoop()
	return m
}

func (m *Meili) configureIndex() {
	if _, err := m.client.CreateIndex(&meili.IndexConfig{
		Uid:        idxPersons,
		PrimaryKey: "id",
	}); err != nil {
		log.Printf("search: create index %s (may already exist): %v", idxPersons, err)
	}

	index := m.client.Index(idxPersons)
	filterable := []interface{}{"company", "platoon", "squad"}
	if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("search: update filterable attrs for %s: %v", idxPersons, err)
	}
	searchable := []string{"name", "id", "recruitmentPlace"}
	if _, err := index.UpdateSearchableAttributes(&searchable); err != nil {
		log.Printf("search: update searchable attrs for %s: %v", idxPersons, err)
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				log.Println("search: meilisearch recovered, reconfiguring index")
				m.configureIndex()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries the person index.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	limit := int64(q.Limit)
	if limit == 0 {
		limit = 20
	}

	sr := &meili.SearchRequest{
		Limit:  limit,
		Offset: int64(q.Offset),
	}
	if q.Company != "" {
		sr.Filter = []string{fmt.Sprintf("company = %q", q.Company)}
	}

	resp, err := m.client.Index(idxPersons).Search(q.Text, sr)
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch search: %w", err)
	}

	results := make([]Result, 0, len(resp.Hits))
	for _, hit := range resp.Hits {
		results = append(results, Result{
			PersonID:         decodeString(hit, "id"),
			Name:             decodeString(hit, "name"),
			Company:          decodeString(hit, "company"),
			Platoon:          decodeString(hit, "platoon"),
			Squad:            decodeString(hit, "squad"),
			RecruitmentPlace: decodeString(hit, "recruitmentPlace"),
		})
	}
	return results, int(resp.EstimatedTotalHits), nil
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return ""
}

// IndexPerson adds or updates one person in the search index.
func (m *Meili) IndexPerson(p PersonRecord) error {
	_, err := m.client.Index(idxPersons).AddDocuments([]PersonRecord{p}, nil)
	return err
}

// IndexPersons bulk-indexes persons, used on bootstrap reindex.
func (m *Meili) IndexPersons(persons []PersonRecord) error {
	if len(persons) == 0 {
		return nil
	}
	_, err := m.client.Index(idxPersons).AddDocuments(persons, nil)
	return err
}

// DeletePerson removes a person from the search index.
func (m *Meili) DeletePerson(id string) error {
	_, err := m.client.Index(idxPersons).DeleteDocument(id, nil)
	return err
}
