// Package cache holds the in-memory, per-lead conversation log used to build
// prompt history.
package cache

import (
	"sort"
	"sync"

	"github.com/capitalize-ai/leasing-assistant/internal/model"
	"github.com/capitalize-ai/leasing-assistant/pkg/metrics"
)

// DefaultMaxPerIdentity bounds each identity's log when no limit is given.
const DefaultMaxPerIdentity = 200

// identityLog is one identity's ordered message sequence.
type identityLog struct {
	mu       sync.Mutex
	messages []model.Message
}

// ConversationCache is an in-memory ordered log of messages per identity.
// Identities never share a lock: the map lock is only held to find or create
// an identity's log.
type ConversationCache struct {
	maxPerIdentity int

	mu   sync.RWMutex
	logs map[string]*identityLog
}

// New creates a cache that retains at most maxPerIdentity messages per
// identity, dropping the oldest first.
func New(maxPerIdentity int) *ConversationCache {
	if maxPerIdentity <= 0 {
		maxPerIdentity = DefaultMaxPerIdentity
	}
	return &ConversationCache{
		maxPerIdentity: maxPerIdentity,
		logs:           make(map[string]*identityLog),
	}
}

func (c *ConversationCache) get(identity string) *identityLog {
	c.mu.RLock()
	l := c.logs[identity]
	c.mu.RUnlock()
	return l
}

func (c *ConversationCache) getOrCreate(identity string) *identityLog {
	if l := c.get(identity); l != nil {
		return l
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.logs[identity]
	if !ok {
		l = &identityLog{}
		c.logs[identity] = l
	}
	return l
}

// Append adds msg to the end of identity's log.
func (c *ConversationCache) Append(identity string, msg model.Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	l := c.getOrCreate(identity)
	l.mu.Lock()
	l.messages = append(l.messages, msg)
	if over := len(l.messages) - c.maxPerIdentity; over > 0 {
		kept := make([]model.Message, c.maxPerIdentity)
		copy(kept, l.messages[over:])
		l.messages = kept
	}
	l.mu.Unlock()

	metrics.CacheAppendsTotal.Inc()
	return nil
}

// History returns the last limit messages of identity's log, oldest first.
// With visibleOnly, hidden messages are dropped before the window is taken, so
// the result holds up to limit visible messages. A limit of zero or less
// returns the whole log. Unknown identities yield an empty slice.
func (c *ConversationCache) History(identity string, limit int, visibleOnly bool) []model.Message {
	l := c.get(identity)
	if l == nil {
		return []model.Message{}
	}

	l.mu.Lock()
	out := make([]model.Message, 0, len(l.messages))
	for _, m := range l.messages {
		if visibleOnly && !m.Visible {
			continue
		}
		out = append(out, m)
	}
	l.mu.Unlock()

	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// BulkLoad replaces identity's log with msgs. It is meant for startup warm-up;
// a second call for the same identity overwrites the first.
func (c *ConversationCache) BulkLoad(identity string, msgs []model.Message) {
	if len(msgs) > c.maxPerIdentity {
		msgs = msgs[len(msgs)-c.maxPerIdentity:]
	}
	loaded := make([]model.Message, len(msgs))
	copy(loaded, msgs)

	l := c.getOrCreate(identity)
	l.mu.Lock()
	l.messages = loaded
	l.mu.Unlock()
}

// Len returns the number of messages held for identity.
func (c *ConversationCache) Len(identity string) int {
	l := c.get(identity)
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Identities returns the identities with a log, sorted.
func (c *ConversationCache) Identities() []string {
	c.mu.RLock()
	ids := make([]string, 0, len(c.logs))
	for id := range c.logs {
		ids = append(ids, id)
	}
	c.mu.RUnlock()

	sort.Strings(ids)
	return ids
}
