// Package dossier keeps an append-only audit trail of observation records:
// one git repository per person, one JSON snapshot file per record, one
// commit per write. Screening records are sensitive; the trail answers who
// recorded what, and when, independent of the live database.
package dossier

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

type Service struct {
	baseDir string
	lockMu  sync.Mutex
	locks   map[string]*sync.Mutex
}

// Entry is one audit trail commit.
type Entry struct {
	Hash    string    `json:"hash"`
	Message string    `json:"message"`
	Author  string    `json:"author"`
	When    time.Time `json:"when"`
}

func New(baseDir string) *Service {
	return &Service{
		baseDir: baseDir,
		locks:   make(map[string]*sync.Mutex),
	}
}

func (s *Service) personLock(personID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	lock, ok := s.locks[personID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[personID] = lock
	}
	return lock
}

func (s *Service) repoPath(personID string) string {
	return filepath.Join(s.baseDir, sanitizePathSegment(personID))
}

// SaveSnapshot writes one record's JSON snapshot into the person's dossier
// and commits it. Creates the repository on first write.
func (s *Service) SaveSnapshot(personID, source, recordID string, payload any, author string) (Entry, error) {
	lock := s.personLock(personID)
	lock.Lock()
	defer lock.Unlock()

	path := s.repoPath(personID)
	repo, err := s.openOrInit(path)
	if err != nil {
		return Entry{}, err
	}

	relative := filepath.Join(sanitizePathSegment(source), sanitizePathSegment(recordID)+".json")
	absolute := filepath.Join(path, relative)
	if err := os.MkdirAll(filepath.Dir(absolute), 0o755); err != nil {
		return Entry{}, fmt.Errorf("create snapshot dir: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return Entry{}, fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := os.WriteFile(absolute, append(data, '\n'), 0o644); err != nil {
		return Entry{}, fmt.Errorf("write snapshot: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return Entry{}, fmt.Errorf("open worktree: %w", err)
	}
	if _, err := worktree.Add(relative); err != nil {
		return Entry{}, fmt.Errorf("git add snapshot: %w", err)
	}

	message := fmt.Sprintf("%s: record %s", source, recordID)
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: signature(author),
	})
	if err != nil {
		return Entry{}, fmt.Errorf("commit snapshot: %w", err)
	}

	commit, err := repo.CommitObject(hash)
	if err != nil {
		return Entry{}, fmt.Errorf("read commit object: %w", err)
	}
	return toEntry(commit), nil
}

// History lists the person's audit trail, newest first. A person with no
// dossier yet has an empty history.
func (s *Service) History(personID string, limit int) ([]Entry, error) {
	lock := s.personLock(personID)
	lock.Lock()
	defer lock.Unlock()

	repo, err := git.PlainOpen(s.repoPath(personID))
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return []Entry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open dossier: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return []Entry{}, nil
		}
		return nil, fmt.Errorf("resolve head: %w", err)
	}

	iter, err := repo.Log(&git.LogOptions{From: head.Hash()})
	if err != nil {
		return nil, fmt.Errorf("read log: %w", err)
	}
	defer iter.Close()

	var entries []Entry
	err = iter.ForEach(func(commit *object.Commit) error {
		entries = append(entries, toEntry(commit))
		if limit > 0 && len(entries) >= limit {
			return errStopIteration
		}
		return nil
	})
	if err != nil && !errors.Is(err, errStopIteration) {
		return nil, fmt.Errorf("walk log: %w", err)
	}
	if entries == nil {
		entries = []Entry{}
	}
	return entries, nil
}

// ReadSnapshot returns the latest committed snapshot of one record.
func (s *Service) ReadSnapshot(personID, source, recordID string) (json.RawMessage, error) {
	lock := s.personLock(personID)
	lock.Lock()
	defer lock.Unlock()

	path := filepath.Join(s.repoPath(personID), sanitizePathSegment(source), sanitizePathSegment(recordID)+".json")
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return json.RawMessage(data), nil
}

var errStopIteration = errors.New("stop iteration")

func (s *Service) openOrInit(path string) (*git.Repository, error) {
	repo, err := git.PlainOpen(path)
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("open dossier: %w", err)
	}

	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("create dossier dir: %w", err)
	}
	repo, err = git.PlainInit(path, false)
	if err != nil {
		return nil, fmt.Errorf("init dossier: %w", err)
	}
	return repo, nil
}

func signature(author string) *object.Signature {
	name := strings.TrimSpace(author)
	if name == "" {
		name = "vigil"
	}
	return &object.Signature{
		Name:  name,
		Email: sanitizePathSegment(strings.ToLower(name)) + "@local.vigil.dev",
		When:  time.Now(),
	}
}

func toEntry(commit *object.Commit) Entry {
	return Entry{
		Hash:    commit.Hash.String(),
		Message: strings.TrimSpace(commit.Message),
		Author:  commit.Author.Name,
		When:    commit.Author.When,
	}
}

func sanitizePathSegment(segment string) string {
	var b strings.Builder
	for _, r := range segment {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		}
	}
	out := strings.Trim(b.String(), ".")
	if out == "" {
		return "unknown"
	}
	return out
}
