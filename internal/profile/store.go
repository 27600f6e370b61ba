// Libraria - Book Discovery and Hybrid Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/libraria

package profile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/libraria/internal/config"
	"github.com/tomtom215/libraria/internal/logging"
	"github.com/tomtom215/libraria/internal/metrics"
)

// profileKeyPrefix namespaces profile records in BadgerDB.
const profileKeyPrefix = "profile:"

// ErrInvalidIndex indicates a history removal index out of range.
var ErrInvalidIndex = errors.New("history index out of range")

// Store persists user profiles in BadgerDB. Writes for the same user
// are serialized through a per-user lock so concurrent mutations cannot
// interleave between the read-modify-write of Append/Remove; reads and
// writes for different users proceed without coordination.
//
// Records are stored as JSON. Unknown fields present in a stored record
// are preserved across rewrites so newer deployments can add fields
// without older ones erasing them.
type Store struct {
	db *badger.DB

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Open opens the profile database at the configured path.
func Open(cfg *config.ProfilesConfig) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path).
		WithInMemory(cfg.InMemory).
		WithLogger(nil)
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open profile database: %w", err)
	}

	logging.Info().Str("path", cfg.Path).Bool("in_memory", cfg.InMemory).Msg("Profile store opened")

	return NewStore(db), nil
}

// NewStore wraps an already-open BadgerDB.
func NewStore(db *badger.DB) *Store {
	return &Store{
		db:    db,
		locks: make(map[string]*sync.Mutex),
	}
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// RunGC runs the badger value log garbage collector until ctx is done.
// Intended to be started in its own goroutine.
func (s *Store) RunGC(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// ErrNoRewrite just means there was nothing to collect.
			if err := s.db.RunValueLogGC(0.5); err != nil && !errors.Is(err, badger.ErrNoRewrite) {
				logging.Warn().Err(err).Msg("Profile store value log GC failed")
			}
		}
	}
}

// userLock returns the mutex serializing writes for one user.
func (s *Store) userLock(userID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[userID] = lock
	}
	return lock
}

// Load returns the profile for a user with derived fields freshly
// recomputed. An unknown user gets a new empty profile; a corrupted
// record is reset to an empty profile, logged, and counted, never
// surfaced as an error.
func (s *Store) Load(ctx context.Context, userID string) (*UserProfile, error) {
	p, _, err := s.load(ctx, userID)
	if err != nil {
		metrics.ProfileOps.WithLabelValues("load", "failure").Inc()
		return nil, err
	}

	metrics.ProfileOps.WithLabelValues("load", "success").Inc()
	p.Derive()
	return p, nil
}

// load fetches the raw record, returning the decoded profile and any
// unknown JSON fields alongside it.
func (s *Store) load(ctx context.Context, userID string) (*UserProfile, map[string]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(profileKeyPrefix + userID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("get profile: %w", err)
		}
		return item.Value(func(val []byte) error {
			raw = append([]byte(nil), val...)
			return nil
		})
	})
	if err != nil {
		return nil, nil, err
	}

	if raw == nil {
		return NewProfile(userID), nil, nil
	}

	var fields map[string]json.RawMessage
	var p UserProfile
	if err := json.Unmarshal(raw, &fields); err == nil {
		err = json.Unmarshal(raw, &p)
	}
	if err != nil {
		logging.Warn().
			Err(err).
			Str("user_id", userID).
			Msg("Corrupted profile record, resetting to empty profile")
		metrics.ProfileResets.Inc()
		return NewProfile(userID), nil, nil
	}

	p.UserID = userID
	return &p, unknownFields(fields), nil
}

// Save recomputes derived fields and persists the profile. The badger
// transaction makes the write atomic; a crash mid-save leaves the
// previous record intact.
func (s *Store) Save(ctx context.Context, p *UserProfile) error {
	lock := s.userLock(p.UserID)
	lock.Lock()
	defer lock.Unlock()

	_, extra, err := s.load(ctx, p.UserID)
	if err != nil {
		metrics.ProfileOps.WithLabelValues("save", "failure").Inc()
		return err
	}

	if err := s.write(p, extra); err != nil {
		metrics.ProfileOps.WithLabelValues("save", "failure").Inc()
		return err
	}

	metrics.ProfileOps.WithLabelValues("save", "success").Inc()
	return nil
}

// Append adds a history entry to a user's profile and persists it.
func (s *Store) Append(ctx context.Context, userID string, entry ReadingHistoryEntry) (*UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, extra, err := s.load(ctx, userID)
	if err != nil {
		metrics.ProfileOps.WithLabelValues("append", "failure").Inc()
		return nil, err
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	p.History = append(p.History, entry)

	if err := s.write(p, extra); err != nil {
		metrics.ProfileOps.WithLabelValues("append", "failure").Inc()
		return nil, err
	}

	metrics.ProfileOps.WithLabelValues("append", "success").Inc()
	return p, nil
}

// Remove deletes the history entry at index and persists the profile.
func (s *Store) Remove(ctx context.Context, userID string, index int) (*UserProfile, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	p, extra, err := s.load(ctx, userID)
	if err != nil {
		metrics.ProfileOps.WithLabelValues("remove", "failure").Inc()
		return nil, err
	}

	if index < 0 || index >= len(p.History) {
		metrics.ProfileOps.WithLabelValues("remove", "failure").Inc()
		return nil, fmt.Errorf("%w: %d of %d", ErrInvalidIndex, index, len(p.History))
	}
	p.History = append(p.History[:index], p.History[index+1:]...)

	if err := s.write(p, extra); err != nil {
		metrics.ProfileOps.WithLabelValues("remove", "failure").Inc()
		return nil, err
	}

	metrics.ProfileOps.WithLabelValues("remove", "success").Inc()
	return p, nil
}

// write derives, merges preserved unknown fields, and stores the record.
func (s *Store) write(p *UserProfile, extra map[string]json.RawMessage) error {
	p.Derive()

	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("marshal profile: %w", err)
	}

	if len(extra) > 0 {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(data, &fields); err != nil {
			return fmt.Errorf("remarshal profile: %w", err)
		}
		for k, v := range extra {
			if _, known := fields[k]; !known {
				fields[k] = v
			}
		}
		if data, err = json.Marshal(fields); err != nil {
			return fmt.Errorf("merge profile fields: %w", err)
		}
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(profileKeyPrefix+p.UserID), data)
	})
}

// knownProfileFields are the JSON keys owned by this version of the
// record format.
var knownProfileFields = map[string]struct{}{
	"user_id":          {},
	"name":             {},
	"reading_history":  {},
	"favorite_authors": {},
	"favorite_genres":  {},
	"average_rating":   {},
	"preferences":      {},
	"created_at":       {},
}

// unknownFields filters a decoded record down to the keys this version
// does not own.
func unknownFields(fields map[string]json.RawMessage) map[string]json.RawMessage {
	if len(fields) == 0 {
		return nil
	}

	extra := make(map[string]json.RawMessage)
	for k, v := range fields {
		if _, known := knownProfileFields[k]; !known {
			extra[k] = v
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
