package chat

import "sort"

// ContextSnapshot captures the request context of a completion round-trip:
// the mode, the persisted conversation id and the selection fingerprint at
// the moment the request was dispatched. A response is only applied if the
// live session still matches its snapshot.
type ContextSnapshot struct {
	Mode           Mode
	ConversationID string
	DocumentIDs    []string // sorted
}

// ContextSnapshot returns the current request context of the session.
func (s *Session) ContextSnapshot() ContextSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.selection.IDs()
	sort.Strings(ids)
	return ContextSnapshot{
		Mode:           s.mode,
		ConversationID: s.conversationID,
		DocumentIDs:    ids,
	}
}

// Matches reports whether the session still has the context the snapshot was
// taken under. A response arriving after a mismatch is stale and must be
// discarded by the caller.
func (s *Session) Matches(snap ContextSnapshot) bool {
	cur := s.ContextSnapshot()
	if cur.Mode != snap.Mode || cur.ConversationID != snap.ConversationID {
		return false
	}
	if len(cur.DocumentIDs) != len(snap.DocumentIDs) {
		return false
	}
	for i := range cur.DocumentIDs {
		if cur.DocumentIDs[i] != snap.DocumentIDs[i] {
			return false
		}
	}
	return true
}
