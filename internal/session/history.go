package session

import "github.com/alebed/magebot/internal/provider"

// Entry is one stored history element. Notice entries are locally injected
// acknowledgements (mode switches, status text) that belong in the visible
// transcript but are never real conversation turns.
type Entry struct {
	Message provider.Message
	Notice  bool
}

// History is an ordered bounded message buffer. Appending past capacity
// silently evicts the oldest entry. Not safe for concurrent use; callers
// serialize access through Store.Do.
type History struct {
	capacity int
	entries  []Entry
}

// NewHistory creates a history with the given capacity. Panics if capacity
// is not positive: capacities come from validated configuration, so a bad
// value here is a programming error.
func NewHistory(capacity int) *History {
	if capacity <= 0 {
		panic("session: history capacity must be positive")
	}
	return &History{capacity: capacity}
}

// Append adds a conversation turn, evicting the oldest entry when full.
func (h *History) Append(msg provider.Message) {
	h.push(Entry{Message: msg})
}

// AppendNotice adds a locally injected annotation. It occupies buffer space
// like any entry but is excluded from provider submissions.
func (h *History) AppendNotice(text string) {
	h.push(Entry{Message: provider.Message{Role: provider.RoleAssistant, Content: text}, Notice: true})
}

func (h *History) push(e Entry) {
	if len(h.entries) == h.capacity {
		h.entries = append(h.entries[:0], h.entries[1:]...)
		h.entries[len(h.entries)-1] = e
		return
	}
	h.entries = append(h.entries, e)
}

// Len returns the number of stored entries, notices included.
func (h *History) Len() int { return len(h.entries) }

// Clear empties the buffer.
func (h *History) Clear() { h.entries = h.entries[:0] }

// Entries returns a copy of the raw buffer, notices included.
func (h *History) Entries() []Entry {
	out := make([]Entry, len(h.entries))
	copy(out, h.entries)
	return out
}

// ForProvider returns the messages to submit upstream: notices are filtered
// out, then the result is capped to the most recent window turns. A window
// of 0 means no cap beyond the buffer itself.
func (h *History) ForProvider(window int) []provider.Message {
	msgs := make([]provider.Message, 0, len(h.entries))
	for _, e := range h.entries {
		if e.Notice {
			continue
		}
		msgs = append(msgs, e.Message)
	}
	if window > 0 && len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}
	return msgs
}
