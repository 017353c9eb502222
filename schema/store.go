// Package schema implements the in-memory table/column model (this file's
// siblings) plus the versioned persistence of schema snapshots: a JSON tree
// mutated through a restricted JSON Patch vocabulary, kept per (domain,
// entity id, environment) with strictly monotone versions.
package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"
)

// Environment distinguishes a development snapshot from its published
// production counterpart.
type Environment string

const (
	EnvDev Environment = "DEV"
	EnvPro Environment = "PRO"
)

// Record is one versioned snapshot of a schema document.
type Record struct {
	ID          string
	Domain      string
	EntityID    string
	Environment Environment
	Version     int
	Schema      any
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Clone returns a copy of r safe to hand to a caller without letting them
// mutate the store's own history.
func (r *Record) Clone() *Record {
	clone := *r
	return &clone
}

// ErrSchemaNotFound is returned by Latest/ApplyPatch/Publish when no
// snapshot exists yet for the requested (domain, entity, environment).
var ErrSchemaNotFound = errors.New("schema: no snapshot for domain/entity/environment")

type storeKey struct {
	domain      string
	entityID    string
	environment Environment
}

// Store keeps versioned schema snapshots in memory, keyed by
// (domain, entity id, environment).
type Store struct {
	mu      sync.Mutex
	newID   func() string
	now     func() time.Time
	history map[storeKey][]*Record
}

// NewStore returns an empty store. newID generates record ids (typically
// the id package's New); now is injectable for deterministic tests.
func NewStore(newID func() string, now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{newID: newID, now: now, history: make(map[storeKey][]*Record)}
}

// Create starts a new (domain, entity, environment) schema at version 1.
// It errors if a snapshot already exists for that key.
func (s *Store) Create(domain, entityID string, env Environment, initial any) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := storeKey{domain, entityID, env}
	if len(s.history[key]) > 0 {
		return nil, fmt.Errorf("schema: snapshot already exists for %s/%s/%s", domain, entityID, env)
	}
	rec := &Record{
		ID:          s.newID(),
		Domain:      domain,
		EntityID:    entityID,
		Environment: env,
		Version:     1,
		Schema:      initial,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	s.history[key] = append(s.history[key], rec)
	return rec.Clone(), nil
}

// Latest returns the highest-version snapshot for the given key.
func (s *Store) Latest(domain, entityID string, env Environment) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latestLocked(domain, entityID, env)
}

func (s *Store) latestLocked(domain, entityID string, env Environment) (*Record, error) {
	key := storeKey{domain, entityID, env}
	hist := s.history[key]
	if len(hist) == 0 {
		return nil, ErrSchemaNotFound
	}
	return hist[len(hist)-1], nil
}

// ApplyPatch applies ops to the latest snapshot for the given key,
// fail-at-first (see Apply). If any operation succeeds, a new version is
// appended with a strictly greater version number; if none succeed, the
// store is unchanged and version does not advance.
func (s *Store) ApplyPatch(domain, entityID string, env Environment, ops []Op) (*Record, []Op, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, err := s.latestLocked(domain, entityID, env)
	if err != nil {
		return nil, nil, err
	}
	newDoc, applied, applyErr := Apply(cur.Schema, ops)
	if len(applied) == 0 {
		return cur.Clone(), applied, applyErr
	}
	key := storeKey{domain, entityID, env}
	rec := &Record{
		ID:          s.newID(),
		Domain:      domain,
		EntityID:    entityID,
		Environment: env,
		Version:     cur.Version + 1,
		Schema:      newDoc,
		CreatedAt:   cur.CreatedAt,
		UpdatedAt:   s.now(),
	}
	s.history[key] = append(s.history[key], rec)
	return rec.Clone(), applied, applyErr
}

// Publish copies the highest DEV version of (domain, entityID) into a new
// PRO version (one past the highest existing PRO version) and returns the new PRO record plus a JSON
// Merge Patch (RFC 7396) describing PRO's prior state versus the new one,
// for caller-side changelog display. Subsequent DEV patches do not affect
// PRO until Publish is called again.
func (s *Store) Publish(domain, entityID string) (*Record, []byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	devRec, err := s.latestLocked(domain, entityID, EnvDev)
	if err != nil {
		return nil, nil, err
	}

	var priorJSON []byte = []byte("{}")
	priorVersion := 0
	if proRec, err := s.latestLocked(domain, entityID, EnvPro); err == nil {
		priorVersion = proRec.Version
		encoded, marshalErr := json.Marshal(proRec.Schema)
		if marshalErr != nil {
			return nil, nil, fmt.Errorf("schema: marshal prior PRO snapshot: %w", marshalErr)
		}
		priorJSON = encoded
	}

	newJSON, err := json.Marshal(devRec.Schema)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: marshal DEV snapshot: %w", err)
	}
	mergePatch, err := jsonpatch.CreateMergePatch(priorJSON, newJSON)
	if err != nil {
		return nil, nil, fmt.Errorf("schema: create merge patch: %w", err)
	}

	key := storeKey{domain, entityID, EnvPro}
	rec := &Record{
		ID:          s.newID(),
		Domain:      domain,
		EntityID:    entityID,
		Environment: EnvPro,
		Version:     priorVersion + 1,
		Schema:      devRec.Schema,
		CreatedAt:   s.now(),
		UpdatedAt:   s.now(),
	}
	s.history[key] = append(s.history[key], rec)
	return rec.Clone(), mergePatch, nil
}

// History returns every version kept for a key, oldest first. Intended for
// diagnostics and tests, not the hot path.
func (s *Store) History(domain, entityID string, env Environment) []*Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	hist := s.history[storeKey{domain, entityID, env}]
	out := make([]*Record, len(hist))
	for i, r := range hist {
		out[i] = r.Clone()
	}
	return out
}
