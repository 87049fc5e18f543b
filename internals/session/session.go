// Package session keeps per-user state between the link message and the
// quality choice. Entries live for the whole process; a new link from the
// same user replaces the previous entry.
package session

import "sync"

// Entry is what the bot remembers about a user's last submitted link.
type Entry struct {
	URL   string
	Title string
}

const shardCount = 16

type shard struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

// Store is a sharded map keyed by user ID, safe for concurrent use.
type Store struct {
	shards [shardCount]*shard
}

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i] = &shard{entries: make(map[int64]Entry)}
	}
	return s
}

func (s *Store) shardFor(userID int64) *shard {
	return s.shards[uint64(userID)%shardCount]
}

// Put stores the entry for the user, replacing any previous one.
func (s *Store) Put(userID int64, e Entry) {
	sh := s.shardFor(userID)
	sh.mu.Lock()
	sh.entries[userID] = e
	sh.mu.Unlock()
}

// Get returns the entry for the user, if one exists.
func (s *Store) Get(userID int64) (Entry, bool) {
	sh := s.shardFor(userID)
	sh.mu.RLock()
	e, ok := sh.entries[userID]
	sh.mu.RUnlock()
	return e, ok
}

// Len reports how many users currently have an entry.
func (s *Store) Len() int {
	n := 0
	for _, sh := range s.shards {
		sh.mu.RLock()
		n += len(sh.entries)
		sh.mu.RUnlock()
	}
	return n
}
