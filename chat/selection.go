package chat

// MaxSelectedDocuments is the hard cap on grounded-chat document selection.
const MaxSelectedDocuments = 3

// Selection is an ordered, duplicate-free set of at most MaxSelectedDocuments
// document references. The zero value is an empty selection.
//
// The bound is enforced at construction so call sites cannot bypass it with
// ad-hoc length checks.
type Selection struct {
	docs []DocumentRef
}

// NewSelection builds a Selection from the given references.
// Returns ok=false if the input exceeds the cap or contains duplicate ids;
// the input is never truncated silently.
func NewSelection(docs []DocumentRef) (Selection, bool) {
	if len(docs) > MaxSelectedDocuments {
		return Selection{}, false
	}
	seen := make(map[string]struct{}, len(docs))
	for _, d := range docs {
		if _, dup := seen[d.ID]; dup {
			return Selection{}, false
		}
		seen[d.ID] = struct{}{}
	}
	s := Selection{docs: make([]DocumentRef, len(docs))}
	copy(s.docs, docs)
	return s, true
}

// Len returns the number of selected documents.
func (s Selection) Len() int {
	return len(s.docs)
}

// IsEmpty reports whether no documents are selected.
func (s Selection) IsEmpty() bool {
	return len(s.docs) == 0
}

// Contains reports whether the selection holds the given document id.
func (s Selection) Contains(id string) bool {
	for _, d := range s.docs {
		if d.ID == id {
			return true
		}
	}
	return false
}

// Docs returns a copy of the selected references in selection order.
func (s Selection) Docs() []DocumentRef {
	out := make([]DocumentRef, len(s.docs))
	copy(out, s.docs)
	return out
}

// IDs returns the selected document ids in selection order.
func (s Selection) IDs() []string {
	ids := make([]string, len(s.docs))
	for i, d := range s.docs {
		ids[i] = d.ID
	}
	return ids
}

// SameIDs reports whether two selections reference the same id set,
// ignoring order. Used to detect no-op selection updates.
func (s Selection) SameIDs(other Selection) bool {
	if len(s.docs) != len(other.docs) {
		return false
	}
	for _, d := range s.docs {
		if !other.Contains(d.ID) {
			return false
		}
	}
	return true
}

// withAppended returns a new selection with doc appended.
// Returns ok=false if the id is already present or the cap is reached.
func (s Selection) withAppended(doc DocumentRef) (Selection, bool) {
	if s.Contains(doc.ID) || len(s.docs) >= MaxSelectedDocuments {
		return Selection{}, false
	}
	return NewSelection(append(s.Docs(), doc))
}

// withRemoved returns a new selection with the given id filtered out.
func (s Selection) withRemoved(id string) Selection {
	kept := make([]DocumentRef, 0, len(s.docs))
	for _, d := range s.docs {
		if d.ID != id {
			kept = append(kept, d)
		}
	}
	return Selection{docs: kept}
}
