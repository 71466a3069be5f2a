// Package registry stores the mapping from repository URLs to webhook
// secrets and notification destinations.
//
// The set is kept in memory and mirrored to a single JSON document on
// every mutation. A failed write rolls the in-memory change back so the
// two never disagree for longer than one operation.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gitrelay/internal/log"
)

var (
	ErrMissingField  = errors.New("repo URL, secret and destination are all required")
	ErrDuplicate     = errors.New("repository is already registered")
	ErrPathCollision = errors.New("repository path collides with an existing registration")
	ErrNotFound      = errors.New("repository is not registered")
)

// Registration is one monitored repository.
type Registration struct {
	RepoURL     string    `json:"repo_url"`
	Secret      string    `json:"secret"`
	Destination string    `json:"destination"`
	CreatedAt   time.Time `json:"created_at"`
}

type fileDoc struct {
	Registrations []Registration `json:"registrations"`
}

// Store is the registration set. Reads may run concurrently; mutations
// are exclusive and include the synchronous file write.
type Store struct {
	path   string
	logger *slog.Logger

	mu    sync.RWMutex
	regs  []Registration
	index map[string]int // exact RepoURL -> position in regs
}

// Open loads the store from path. A missing file yields an empty store;
// a malformed file is an error.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("registrations path is empty")
	}

	s := &Store{
		path:   path,
		logger: log.WithComponent("registry"),
		index:  map[string]int{},
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("registrations file not found, starting empty", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read registrations: %w", err)
	}

	var doc fileDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse registrations %s: %w", path, err)
	}

	s.regs = doc.Registrations
	for i := range s.regs {
		s.index[s.regs[i].RepoURL] = i
	}

	s.logger.Info("registrations loaded", "path", path, "count", len(s.regs))
	return s, nil
}

// Register adds a new repository. It rejects empty fields, exact
// duplicates and normalized-path collisions with a different URL.
func (s *Store) Register(repoURL, secret, destination string) error {
	if repoURL == "" || secret == "" || destination == "" {
		s.logger.Warn("registration rejected, missing field")
		return ErrMissingField
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[repoURL]; ok {
		s.logger.Warn("registration rejected, duplicate", "repo", repoURL)
		return ErrDuplicate
	}

	norm := NormalizePath(repoURL)
	for i := range s.regs {
		if NormalizePath(s.regs[i].RepoURL) == norm {
			s.logger.Warn("registration rejected, path collision",
				"repo", repoURL,
				"existing", s.regs[i].RepoURL,
			)
			return ErrPathCollision
		}
	}

	reg := Registration{
		RepoURL:     repoURL,
		Secret:      secret,
		Destination: destination,
		CreatedAt:   time.Now().UTC(),
	}

	s.regs = append(s.regs, reg)
	s.index[repoURL] = len(s.regs) - 1

	if err := s.save(); err != nil {
		// Roll back so memory matches the file.
		s.regs = s.regs[:len(s.regs)-1]
		delete(s.index, repoURL)
		s.logger.Error("registration persist failed", "repo", repoURL, "error", err)
		return fmt.Errorf("persist registration: %w", err)
	}

	s.logger.Info("repository registered",
		"repo", repoURL,
		"destination", destination,
		"secret_fp", SecretFingerprint(secret),
	)
	return nil
}

// Unregister removes a repository by exact URL. Unlike Lookup it does not
// fall back to normalized-path matching, so a cross-domain alias can never
// delete someone else's entry.
func (s *Store) Unregister(repoURL string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[repoURL]
	if !ok {
		s.logger.Warn("unregister rejected, not found", "repo", repoURL)
		return ErrNotFound
	}

	removed := s.regs[i]
	s.regs = append(s.regs[:i], s.regs[i+1:]...)
	s.rebuildIndex()

	if err := s.save(); err != nil {
		s.regs = append(s.regs[:i], append([]Registration{removed}, s.regs[i:]...)...)
		s.rebuildIndex()
		s.logger.Error("unregister persist failed", "repo", repoURL, "error", err)
		return fmt.Errorf("persist registrations: %w", err)
	}

	s.logger.Info("repository unregistered", "repo", repoURL)
	return nil
}

// Lookup finds the registration for a repository URL. Exact match wins;
// otherwise entries are scanned for the same normalized path, so one
// repository reachable at several URLs still resolves to one entry.
func (s *Store) Lookup(repoURL string) (Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if i, ok := s.index[repoURL]; ok {
		return s.regs[i], true
	}

	norm := NormalizePath(repoURL)
	if norm == "" {
		return Registration{}, false
	}
	for i := range s.regs {
		if NormalizePath(s.regs[i].RepoURL) == norm {
			return s.regs[i], true
		}
	}
	return Registration{}, false
}

// List returns all registrations in insertion order.
func (s *Store) List() []Registration {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Registration, len(s.regs))
	copy(out, s.regs)
	return out
}

// save rewrites the whole document. Caller holds the write lock.
func (s *Store) save() error {
	doc := fileDoc{Registrations: s.regs}
	if doc.Registrations == nil {
		doc.Registrations = []Registration{}
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal registrations: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create registrations directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write registrations: %w", err)
	}
	return nil
}

func (s *Store) rebuildIndex() {
	s.index = make(map[string]int, len(s.regs))
	for i := range s.regs {
		s.index[s.regs[i].RepoURL] = i
	}
}
