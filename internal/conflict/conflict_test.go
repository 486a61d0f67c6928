package conflict

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"confplan/internal/model"
)

func session(id, day, start string, minutes int) model.Session {
	ts, err := time.Parse("2006-01-02 15:04", day+" "+start)
	if err != nil {
		panic(err)
	}
	return model.Session{
		ID:    id,
		Title: "Session " + id,
		Slot: model.TimeSlot{
			Day:      day,
			Start:    ts,
			Duration: time.Duration(minutes) * time.Minute,
		},
	}
}

func TestFindReportsOverlapOnce(t *testing.T) {
	x := session("x", "2026-02-23", "09:00", 45)
	y := session("y", "2026-02-23", "09:30", 45)

	want := []Pair{{A: x, B: y}}
	assert.Equal(t, want, Find([]model.Session{x, y}))
	assert.Equal(t, want, Find([]model.Session{y, x}), "input order must not matter")
}

func TestFindBackToBackIsNotAConflict(t *testing.T) {
	a := session("a", "2026-02-23", "09:00", 45)
	b := session("b", "2026-02-23", "09:45", 45)
	assert.Empty(t, Find([]model.Session{a, b}))
}

func TestFindDifferentDaysNeverConflict(t *testing.T) {
	a := session("a", "2026-02-23", "09:00", 45)
	b := session("b", "2026-02-24", "09:00", 45)
	assert.Empty(t, Find([]model.Session{a, b}))
}

func TestFindMultipleConflicts(t *testing.T) {
	a := session("a", "2026-02-23", "09:00", 60)
	b := session("b", "2026-02-23", "09:30", 60)
	c := session("c", "2026-02-23", "10:15", 30)
	d := session("d", "2026-02-24", "09:00", 45)

	pairs := Find([]model.Session{d, c, b, a})
	require.Len(t, pairs, 2)
	assert.Equal(t, "a", pairs[0].A.ID)
	assert.Equal(t, "b", pairs[0].B.ID)
	assert.Equal(t, "b", pairs[1].A.ID)
	assert.Equal(t, "c", pairs[1].B.ID)
}

func TestFindIgnoresSelfAndEmpty(t *testing.T) {
	a := session("a", "2026-02-23", "09:00", 45)
	assert.Empty(t, Find([]model.Session{a, a}), "same session counted once")
	assert.Empty(t, Find(nil))
	assert.Empty(t, Find([]model.Session{a}))
}

func TestByID(t *testing.T) {
	x := session("x", "2026-02-23", "09:00", 45)
	y := session("y", "2026-02-23", "09:30", 45)
	z := session("z", "2026-02-23", "09:40", 45)

	byID := ByID(Find([]model.Session{x, y, z}))
	require.Len(t, byID["y"], 2)
	assert.Len(t, byID["x"], 2, "x overlaps y and z")
	assert.Len(t, byID["z"], 2)
	assert.Empty(t, byID["missing"])
}
