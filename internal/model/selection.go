package model

// Selection is the user's personal calendar: an ordered-by-insertion set of
// session IDs. Its lifecycle is independent of any Snapshot; IDs are kept
// verbatim across re-syncs and validated only at read/use time, so a session
// that vanished from the latest snapshot surfaces as a dangling reference
// instead of being silently dropped.
type Selection struct {
	ids []string
}

// NewSelection builds a selection from the given IDs, de-duplicating while
// preserving first-insertion order.
func NewSelection(ids []string) *Selection {
	s := &Selection{}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// IDs returns the selected session IDs in insertion order. The returned
// slice is a copy.
func (s *Selection) IDs() []string {
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// Len returns the number of selected sessions.
func (s *Selection) Len() int { return len(s.ids) }

// Contains reports whether id is selected.
func (s *Selection) Contains(id string) bool {
	for _, v := range s.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Add appends id if not already present and reports whether it was added.
func (s *Selection) Add(id string) bool {
	if id == "" || s.Contains(id) {
		return false
	}
	s.ids = append(s.ids, id)
	return true
}

// Remove deletes id and reports whether it was present.
func (s *Selection) Remove(id string) bool {
	for i, v := range s.ids {
		if v == id {
			s.ids = append(s.ids[:i], s.ids[i+1:]...)
			return true
		}
	}
	return false
}

// Toggle flips membership of id and reports whether it is now selected.
func (s *Selection) Toggle(id string) bool {
	if s.Contains(id) {
		s.Remove(id)
		return false
	}
	s.Add(id)
	return true
}

// Sessions resolves the selection against a snapshot, returning the selected
// sessions that exist (in selection order) and the IDs that do not.
func (s *Selection) Sessions(snap *Snapshot) (found []Session, dangling []string) {
	for _, id := range s.ids {
		if sess := snap.SessionByID(id); sess != nil {
			found = append(found, *sess)
		} else {
			dangling = append(dangling, id)
		}
	}
	return found, dangling
}
