package mediation

import (
	"sync"
	"time"

	"mediator/internal/models"
)

// suggestionTTL bounds how long an unconsumed contact suggestion survives.
const suggestionTTL = 10 * time.Minute

type cachedSuggestion struct {
	suggestion models.ContactSuggestion
	storedAt   time.Time
}

// SuggestionCache holds at most one pending contact suggestion per session.
// A newer suggestion for the same session replaces the old one; Take consumes.
type SuggestionCache struct {
	mu      sync.Mutex
	entries map[string]cachedSuggestion
	now     func() time.Time
}

func NewSuggestionCache() *SuggestionCache {
	return &SuggestionCache{
		entries: make(map[string]cachedSuggestion),
		now:     time.Now,
	}
}

// Put stores a suggestion for a session, replacing any pending one.
func (c *SuggestionCache) Put(connID string, s models.ContactSuggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[connID] = cachedSuggestion{suggestion: s, storedAt: c.now()}
}

// Take returns and clears the pending suggestion for a session. Expired
// entries are treated as absent.
func (c *SuggestionCache) Take(connID string) (models.ContactSuggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[connID]
	if !ok {
		return models.ContactSuggestion{}, false
	}
	delete(c.entries, connID)

	if c.now().Sub(entry.storedAt) > suggestionTTL {
		return models.ContactSuggestion{}, false
	}
	return entry.suggestion, true
}

// Drop discards any pending suggestion for a session, used on disconnect.
func (c *SuggestionCache) Drop(connID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, connID)
}
