package chat

import (
	"fmt"
	"testing"
	"time"
)

func doc(id string) DocumentRef {
	return DocumentRef{
		ID:           id,
		Title:        "Document " + id,
		ContentType:  "text/plain",
		HasEmbedding: true,
	}
}

func userMsg(content string) Message {
	return Message{
		ID:        "msg-" + content,
		Role:      RoleUser,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// TestSession_SelectionCap verifies the selection never exceeds the cap for
// any sequence of AddDocument calls.
func TestSession_SelectionCap(t *testing.T) {
	sess := NewSession("tok-cap", 1)

	for i := 0; i < 10; i++ {
		sess.AddDocument(doc(fmt.Sprintf("d%d", i)))
		if got := len(sess.SelectedDocuments()); got > MaxSelectedDocuments {
			t.Fatalf("selection size = %d, want <= %d", got, MaxSelectedDocuments)
		}
	}

	if got := len(sess.SelectedDocuments()); got != MaxSelectedDocuments {
		t.Errorf("selection size = %d, want %d", got, MaxSelectedDocuments)
	}

	t.Run("fourth_distinct_document_rejected", func(t *testing.T) {
		if sess.AddDocument(doc("d99")) {
			t.Error("AddDocument beyond cap = true, want false")
		}
		for _, d := range sess.SelectedDocuments() {
			if d.ID == "d99" {
				t.Error("fourth distinct document was added")
			}
		}
	})

	t.Run("re_adding_selected_document_is_noop_success", func(t *testing.T) {
		before := sess.ConversationID()
		if !sess.AddDocument(doc("d0")) {
			t.Error("AddDocument of already-selected id = false, want true")
		}
		if got := len(sess.SelectedDocuments()); got != MaxSelectedDocuments {
			t.Errorf("selection size = %d, want %d", got, MaxSelectedDocuments)
		}
		if sess.ConversationID() != before {
			t.Error("no-op add changed conversation id")
		}
	})
}

// TestSession_ModeSelectionCoupling verifies mode == grounded exactly when
// the selection is non-empty, across a mixed sequence of operations.
func TestSession_ModeSelectionCoupling(t *testing.T) {
	sess := NewSession("tok-coupling", 1)

	check := func(step string) {
		t.Helper()
		grounded := sess.Mode() == ModeGrounded
		nonEmpty := len(sess.SelectedDocuments()) > 0
		if grounded != nonEmpty {
			t.Errorf("%s: mode=%s with %d selected documents", step, sess.Mode(), len(sess.SelectedDocuments()))
		}
	}

	check("initial")
	sess.AddDocument(doc("a"))
	check("after add a")
	sess.AddDocument(doc("b"))
	check("after add b")
	sess.RemoveDocument("a")
	check("after remove a")
	sess.RemoveDocument("b")
	check("after remove b")
	sess.SetSelectedDocuments([]DocumentRef{doc("c"), doc("d"), doc("e")})
	check("after bulk select")
	sess.SetMode(ModeGeneral)
	check("after setMode general")
	sess.SetMode(ModeGrounded) // rejected: empty selection
	check("after rejected setMode grounded")
}

// TestSession_SetModeGuard verifies grounded mode cannot be entered without
// a selection.
func TestSession_SetModeGuard(t *testing.T) {
	sess := NewSession("tok-guard", 1)
	sess.AppendMessage(userMsg("hello"), ModeGeneral)
	sess.SetConversationID("conv-1")

	if sess.SetMode(ModeGrounded) {
		t.Fatal("SetMode(grounded) with empty selection = true, want false")
	}
	if sess.Mode() != ModeGeneral {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGeneral)
	}
	if sess.ConversationID() != "conv-1" {
		t.Error("rejected SetMode mutated conversation id")
	}

	t.Run("back_to_general_clears_selection_and_conversation", func(t *testing.T) {
		sess.SetSelectedDocuments([]DocumentRef{doc("a")})
		sess.SetConversationID("conv-2")

		if !sess.SetMode(ModeGeneral) {
			t.Fatal("SetMode(general) = false, want true")
		}
		if got := len(sess.SelectedDocuments()); got != 0 {
			t.Errorf("selection size = %d, want 0", got)
		}
		if sess.ConversationID() != "" {
			t.Errorf("conversation id = %q, want empty", sess.ConversationID())
		}
	})
}

// TestSession_SetSelectedDocuments_Idempotent verifies that re-selecting the
// same id set (any order) is a no-op.
func TestSession_SetSelectedDocuments_Idempotent(t *testing.T) {
	sess := NewSession("tok-idem", 1)
	sess.SetSelectedDocuments([]DocumentRef{doc("a"), doc("b")})
	sess.AppendMessage(userMsg("grounded question"), ModeGrounded)
	sess.SetConversationID("conv-7")

	if !sess.SetSelectedDocuments([]DocumentRef{doc("b"), doc("a")}) {
		t.Fatal("same-id-set select = false, want true")
	}

	if sess.ConversationID() != "conv-7" {
		t.Errorf("conversation id = %q, want conv-7", sess.ConversationID())
	}
	if got := len(sess.Messages(ModeGrounded)); got != 1 {
		t.Errorf("grounded messages = %d, want 1 (list must be untouched)", got)
	}
	if sess.Mode() != ModeGrounded {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGrounded)
	}
}

// TestSession_SetSelectedDocuments_Rejections verifies oversized and
// duplicate-id sets leave state unchanged.
func TestSession_SetSelectedDocuments_Rejections(t *testing.T) {
	sess := NewSession("tok-reject", 1)
	sess.SetSelectedDocuments([]DocumentRef{doc("a")})
	sess.SetConversationID("conv-9")

	t.Run("oversized_set", func(t *testing.T) {
		if sess.SetSelectedDocuments([]DocumentRef{doc("w"), doc("x"), doc("y"), doc("z")}) {
			t.Error("oversized set accepted")
		}
	})

	t.Run("duplicate_ids", func(t *testing.T) {
		if sess.SetSelectedDocuments([]DocumentRef{doc("w"), doc("w")}) {
			t.Error("duplicate-id set accepted")
		}
	})

	if got := sess.SelectedDocuments(); len(got) != 1 || got[0].ID != "a" {
		t.Errorf("selection mutated by rejected call: %v", got)
	}
	if sess.ConversationID() != "conv-9" {
		t.Error("conversation id mutated by rejected call")
	}
}

// TestSession_CarryOver verifies the general -> grounded carry-over when the
// general conversation was never persisted.
func TestSession_CarryOver(t *testing.T) {
	sess := NewSession("tok-carry", 1)
	m1, m2 := userMsg("m1"), userMsg("m2")
	sess.AppendMessage(m1, ModeGeneral)
	sess.AppendMessage(m2, ModeGeneral)

	if !sess.SetSelectedDocuments([]DocumentRef{doc("a")}) {
		t.Fatal("select = false, want true")
	}

	if sess.Mode() != ModeGrounded {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGrounded)
	}
	grounded := sess.Messages(ModeGrounded)
	if len(grounded) != 2 || grounded[0].ID != m1.ID || grounded[1].ID != m2.ID {
		t.Errorf("grounded messages = %v, want carry-over of [m1 m2]", grounded)
	}
	general := sess.Messages(ModeGeneral)
	if len(general) != 2 {
		t.Errorf("general messages = %d, want 2 (unchanged)", len(general))
	}
	if sess.ConversationID() != "" {
		t.Errorf("conversation id = %q, want empty", sess.ConversationID())
	}
}

// TestSession_NoCarryOverWhenPersisted verifies an already-persisted general
// conversation is not carried into grounded mode.
func TestSession_NoCarryOverWhenPersisted(t *testing.T) {
	sess := NewSession("tok-nocarry", 1)
	sess.AppendMessage(userMsg("m1"), ModeGeneral)
	sess.AppendMessage(userMsg("m2"), ModeGeneral)
	sess.SetConversationID("conv123")

	if !sess.SetSelectedDocuments([]DocumentRef{doc("a")}) {
		t.Fatal("select = false, want true")
	}

	if got := len(sess.Messages(ModeGrounded)); got != 0 {
		t.Errorf("grounded messages = %d, want 0 (no carry-over)", got)
	}
	if sess.ConversationID() != "" {
		t.Errorf("conversation id = %q, want empty after selection change", sess.ConversationID())
	}
}

// TestSession_RemoveLastDocument verifies removing the last document
// collapses the session back to general mode.
func TestSession_RemoveLastDocument(t *testing.T) {
	sess := NewSession("tok-collapse", 1)
	sess.SetSelectedDocuments([]DocumentRef{doc("a")})

	if !sess.RemoveDocument("a") {
		t.Fatal("RemoveDocument = false, want true")
	}
	if got := len(sess.SelectedDocuments()); got != 0 {
		t.Errorf("selection size = %d, want 0", got)
	}
	if sess.Mode() != ModeGeneral {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGeneral)
	}
}

// TestSession_StartNewConversationScope verifies only the current mode's
// list is cleared.
func TestSession_StartNewConversationScope(t *testing.T) {
	sess := NewSession("tok-newconv", 1)
	sess.AppendMessage(userMsg("general"), ModeGeneral)
	sess.SetSelectedDocuments([]DocumentRef{doc("a"), doc("b")})
	sess.AppendMessage(userMsg("grounded"), ModeGrounded)
	sess.SetConversationID("conv-55")

	sess.StartNewConversation()

	if got := len(sess.Messages(ModeGrounded)); got != 0 {
		t.Errorf("grounded messages = %d, want 0", got)
	}
	if got := len(sess.Messages(ModeGeneral)); got == 0 {
		t.Error("general messages cleared, want untouched")
	}
	if got := len(sess.SelectedDocuments()); got != 2 {
		t.Errorf("selection size = %d, want 2 (untouched)", got)
	}
	if sess.Mode() != ModeGrounded {
		t.Errorf("mode = %s, want %s (untouched)", sess.Mode(), ModeGrounded)
	}
	if sess.ConversationID() != "" {
		t.Errorf("conversation id = %q, want empty", sess.ConversationID())
	}
}

// TestSession_SelectExistingConversation verifies loading a persisted
// conversation replaces state atomically, including a non-empty
// conversation id.
func TestSession_SelectExistingConversation(t *testing.T) {
	sess := NewSession("tok-resume", 1)
	sess.AppendMessage(userMsg("live"), ModeGeneral)
	sess.SetSelectedDocuments([]DocumentRef{doc("x")})

	saved := []Message{userMsg("old1"), userMsg("old2")}
	if !sess.SelectExistingConversation("old1", ModeGrounded, []DocumentRef{doc("a"), doc("b")}, saved) {
		t.Fatal("SelectExistingConversation = false, want true")
	}

	if sess.ConversationID() != "old1" {
		t.Errorf("conversation id = %q, want old1", sess.ConversationID())
	}
	if sess.Mode() != ModeGrounded {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGrounded)
	}
	if got := len(sess.SelectedDocuments()); got != 2 {
		t.Errorf("selection size = %d, want 2", got)
	}
	if got := len(sess.Messages(ModeGrounded)); got != 2 {
		t.Errorf("grounded messages = %d, want 2", got)
	}

	t.Run("general_snapshot_clears_selection", func(t *testing.T) {
		if !sess.SelectExistingConversation("old2", ModeGeneral, nil, saved) {
			t.Fatal("SelectExistingConversation = false, want true")
		}
		if got := len(sess.SelectedDocuments()); got != 0 {
			t.Errorf("selection size = %d, want 0", got)
		}
		if sess.ConversationID() != "old2" {
			t.Errorf("conversation id = %q, want old2", sess.ConversationID())
		}
	})

	t.Run("invalid_snapshots_rejected", func(t *testing.T) {
		if sess.SelectExistingConversation("bad1", ModeGrounded, nil, saved) {
			t.Error("grounded snapshot with empty selection accepted")
		}
		if sess.SelectExistingConversation("bad2", ModeGeneral, []DocumentRef{doc("a")}, saved) {
			t.Error("general snapshot with selection accepted")
		}
		if sess.ConversationID() != "old2" {
			t.Error("rejected snapshot mutated state")
		}
	})
}

// TestSession_EndToEndScenario walks the full dashboard flow: general chat,
// attaching a document mid-conversation, persisting, then detaching.
func TestSession_EndToEndScenario(t *testing.T) {
	sess := NewSession("tok-e2e", 1)

	// User sends "hello" in general mode.
	hello := userMsg("hello")
	sess.AppendMessage(hello, ModeGeneral)

	// User selects one embedded document.
	if !sess.SetSelectedDocuments([]DocumentRef{doc("d1")}) {
		t.Fatal("select d1 = false, want true")
	}
	if sess.Mode() != ModeGrounded {
		t.Fatalf("mode = %s, want %s", sess.Mode(), ModeGrounded)
	}
	if got := sess.Messages(ModeGrounded); len(got) != 1 || got[0].ID != hello.ID {
		t.Fatalf("grounded messages = %v, want carried [hello]", got)
	}
	if sess.ConversationID() != "" {
		t.Fatal("conversation id set before first persisted exchange")
	}

	// Follow-up persists and the backend returns an id.
	sess.AppendMessage(userMsg("follow-up"), ModeGrounded)
	sess.SetConversationID("c42")
	if sess.ConversationID() != "c42" {
		t.Fatalf("conversation id = %q, want c42", sess.ConversationID())
	}

	// User removes the document: back to general, fresh conversation.
	if !sess.RemoveDocument("d1") {
		t.Fatal("remove d1 = false, want true")
	}
	if sess.Mode() != ModeGeneral {
		t.Errorf("mode = %s, want %s", sess.Mode(), ModeGeneral)
	}
	if got := len(sess.SelectedDocuments()); got != 0 {
		t.Errorf("selection size = %d, want 0", got)
	}
	if sess.ConversationID() != "" {
		t.Errorf("conversation id = %q, want empty", sess.ConversationID())
	}
	// General list still holds only the original "hello"; the grounded list
	// keeps its two messages until the next grounded entry replaces it.
	if got := sess.Messages(ModeGeneral); len(got) != 1 || got[0].ID != hello.ID {
		t.Errorf("general messages = %v, want [hello]", got)
	}
	if got := len(sess.Messages(ModeGrounded)); got != 2 {
		t.Errorf("grounded messages = %d, want 2 (orphaned until next grounded entry)", got)
	}
}
