// Package conflict computes time overlaps between selected sessions.
package conflict

import (
	"sort"

	"confplan/internal/model"
)

// Pair is an unordered conflicting session pair. A is always the session
// that sorts first (by day, start time, then ID), so (A,B) and (B,A) never
// both appear.
type Pair struct {
	A model.Session
	B model.Session
}

// Find returns every pairwise overlap among the given sessions. Two
// sessions conflict iff a.Start < b.End && b.Start < a.End under strict
// inequality, so back-to-back sessions do not conflict; since starts and
// ends are full timestamps, sessions on different days never do.
//
// The scan is O(n²) over the selection size, which is bounded by what a
// single user can select (at most a few hundred sessions), so no interval
// structure is warranted. Output order is deterministic: pairs sorted by
// day, then start time, then IDs.
func Find(sessions []model.Session) []Pair {
	var pairs []Pair

	for i := 0; i < len(sessions); i++ {
		for j := i + 1; j < len(sessions); j++ {
			a, b := sessions[i], sessions[j]
			if a.ID == b.ID {
				continue
			}
			if !a.Slot.Overlaps(b.Slot) {
				continue
			}
			if sessionLess(b, a) {
				a, b = b, a
			}
			pairs = append(pairs, Pair{A: a, B: b})
		}
	}

	sort.SliceStable(pairs, func(i, j int) bool {
		if sessionLess(pairs[i].A, pairs[j].A) {
			return true
		}
		if sessionLess(pairs[j].A, pairs[i].A) {
			return false
		}
		return sessionLess(pairs[i].B, pairs[j].B)
	})
	return pairs
}

// ByID indexes conflicts by session: each conflicting session maps to the
// sessions it overlaps, in deterministic order. Callers use this for
// per-session warnings and export annotations.
func ByID(pairs []Pair) map[string][]model.Session {
	out := make(map[string][]model.Session)
	for _, p := range pairs {
		out[p.A.ID] = append(out[p.A.ID], p.B)
		out[p.B.ID] = append(out[p.B.ID], p.A)
	}
	return out
}

func sessionLess(a, b model.Session) bool {
	if a.Slot.Day != b.Slot.Day {
		return a.Slot.Day < b.Slot.Day
	}
	if !a.Slot.Start.Equal(b.Slot.Start) {
		return a.Slot.Start.Before(b.Slot.Start)
	}
	return a.ID < b.ID
}
