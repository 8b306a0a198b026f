package chat

import (
	"sync"
	"time"
)

// Session owns the chat state for one dashboard session: the active mode,
// the bounded document selection, one message list per mode, and the id of
// the backing conversation record once it has been persisted.
//
// Invariants held across every operation:
//   - mode == ModeGrounded exactly when the selection is non-empty
//   - the selection never exceeds MaxSelectedDocuments
//   - conversationID is reset on any live mode or selection change
//
// Mutations are rejected (state unchanged, false returned) rather than
// raising errors; callers surface feedback to the user.
//
// All operations are atomic under the session lock, so readers never observe
// a partial transition.
type Session struct {
	token     string
	creatorID int32

	mu               sync.RWMutex
	mode             Mode
	selection        Selection
	generalMessages  []Message
	groundedMessages []Message
	conversationID   string // empty until the backend confirms creation

	createdAt  time.Time
	lastActive time.Time
}

// NewSession creates a fresh session in general mode with nothing selected.
func NewSession(token string, creatorID int32) *Session {
	now := time.Now()
	return &Session{
		token:      token,
		creatorID:  creatorID,
		mode:       ModeGeneral,
		createdAt:  now,
		lastActive: now,
	}
}

// Token returns the client-generated session token.
func (s *Session) Token() string {
	return s.token
}

// CreatorID returns the owning user id.
func (s *Session) CreatorID() int32 {
	return s.creatorID
}

// Mode returns the active chat mode.
func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SelectedDocuments returns a copy of the current selection.
func (s *Session) SelectedDocuments() []DocumentRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.selection.Docs()
}

// ConversationID returns the persisted conversation id, or "" if the live
// conversation has not been created on the backend yet.
func (s *Session) ConversationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conversationID
}

// Messages returns a copy of the message list for the given mode.
func (s *Session) Messages(mode Mode) []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src := s.generalMessages
	if mode == ModeGrounded {
		src = s.groundedMessages
	}
	out := make([]Message, len(src))
	copy(out, src)
	return out
}

// ActiveMessages returns a copy of the message list for the active mode.
func (s *Session) ActiveMessages() []Message {
	return s.Messages(s.Mode())
}

// LastActive returns the time of the last mutation or touch.
func (s *Session) LastActive() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastActive
}

// Touch updates the idle timer without mutating chat state.
func (s *Session) Touch() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActive = time.Now()
}

// SetMode switches the active chat mode.
//
// Switching to grounded mode is rejected while the selection is empty: a
// grounded chat cannot exist without at least one document. Switching to
// general mode clears the selection. Either switch starts a fresh
// conversation, so the conversation id is reset. No network call is made
// here; callers persist lazily on the first message.
func (s *Session) SetMode(target Mode) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if target == ModeGrounded && s.selection.IsEmpty() {
		return false
	}

	if target == ModeGeneral {
		s.selection = Selection{}
	}
	s.mode = target
	s.conversationID = ""
	s.lastActive = time.Now()
	return true
}

// SetSelectedDocuments replaces the document selection and derives the mode
// from it: a non-empty selection forces grounded mode, an empty one forces
// general mode.
//
// The call is rejected if the proposed set exceeds MaxSelectedDocuments or
// contains duplicate ids. A set with the same ids as the current selection
// (any order) is a no-op so redundant UI updates cannot flip modes or reset
// the live conversation.
//
// Carry-over: on the general -> grounded transition, if general messages
// exist and the general conversation was never persisted, they are copied
// into the grounded list so the visible conversation continues seamlessly.
// Any other entry into grounded mode starts with an empty list. Returning to
// general mode leaves both lists untouched; the orphaned grounded list is
// replaced on the next grounded entry.
func (s *Session) SetSelectedDocuments(docs []DocumentRef) bool {
	next, ok := NewSelection(docs)
	if !ok {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applySelectionLocked(next)
}

// AddDocument appends one document to the selection.
// No-op success if the id is already selected; rejected at the cap.
func (s *Session) AddDocument(doc DocumentRef) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.selection.Contains(doc.ID) {
		return true
	}
	next, ok := s.selection.withAppended(doc)
	if !ok {
		return false
	}
	return s.applySelectionLocked(next)
}

// RemoveDocument filters one document out of the selection. Removing the
// last document collapses the session back to general mode.
func (s *Session) RemoveDocument(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applySelectionLocked(s.selection.withRemoved(id))
}

// applySelectionLocked is the single transition point for selection changes.
// Caller must hold the write lock.
func (s *Session) applySelectionLocked(next Selection) bool {
	if next.SameIDs(s.selection) {
		// Same id set: nothing changes, conversation stays live.
		return true
	}

	prevMode := s.mode
	if next.IsEmpty() {
		s.mode = ModeGeneral
	} else {
		s.mode = ModeGrounded
		if prevMode == ModeGeneral && len(s.generalMessages) > 0 && s.conversationID == "" {
			// The general conversation was never persisted; keep it visible
			// under the new grounding instead of discarding it.
			carried := make([]Message, len(s.generalMessages))
			copy(carried, s.generalMessages)
			s.groundedMessages = carried
		} else {
			s.groundedMessages = nil
		}
	}

	s.selection = next
	// The grounding context changed, so any persisted conversation no longer
	// applies even when the mode label stayed the same.
	s.conversationID = ""
	s.lastActive = time.Now()
	return true
}

// AppendMessage appends to the message list matching the given mode.
// Timestamps are caller-supplied and not reordered.
func (s *Session) AppendMessage(msg Message, mode Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mode == ModeGrounded {
		s.groundedMessages = append(s.groundedMessages, msg)
	} else {
		s.generalMessages = append(s.generalMessages, msg)
	}
	s.lastActive = time.Now()
}

// SetConversationID records the backend conversation id once the first
// exchange of a live conversation has been persisted.
func (s *Session) SetConversationID(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conversationID = id
	s.lastActive = time.Now()
}

// StartNewConversation resets the conversation id and clears the message
// list for the current mode only. Mode and selection are untouched.
func (s *Session) StartNewConversation() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.mode == ModeGrounded {
		s.groundedMessages = nil
	} else {
		s.generalMessages = nil
	}
	s.conversationID = ""
	s.lastActive = time.Now()
}

// SelectExistingConversation atomically loads a previously persisted
// conversation: mode, selection, message list and conversation id are all
// replaced from the snapshot. Because the conversation is already saved,
// this is the one path that installs a non-empty conversation id directly.
//
// Rejected if the snapshot itself violates the invariants (grounded with an
// empty or oversized selection, general with a non-empty one).
func (s *Session) SelectExistingConversation(conversationID string, mode Mode, docs []DocumentRef, messages []Message) bool {
	sel, ok := NewSelection(docs)
	if !ok {
		return false
	}
	if mode == ModeGrounded && sel.IsEmpty() {
		return false
	}
	if mode == ModeGeneral && !sel.IsEmpty() {
		return false
	}

	msgs := make([]Message, len(messages))
	copy(msgs, messages)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.mode = mode
	s.selection = sel
	if mode == ModeGrounded {
		s.groundedMessages = msgs
	} else {
		s.generalMessages = msgs
	}
	s.conversationID = conversationID
	s.lastActive = time.Now()
	return true
}
