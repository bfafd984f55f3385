package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Snapshot is the before/after document stored on a ChangeRecord. It is a
// tagged variant keyed by change kind: each kind captures only the fields it
// mutates (move -> scheduled date; skip -> skipped flag, timestamp, reason;
// swap -> scheduled date and workout reference). The same snapshot serves as
// the reversal payload for undo and as the drift-comparison baseline.
//
// A snapshot holds one sub-document per affected entry; the set of ids in
// before and after snapshots of a record always matches.
type Snapshot struct {
	Kind    ChangeType      `bson:"kind" json:"kind"`
	Entries []EntrySnapshot `bson:"entries" json:"entries"`
}

// EntrySnapshot captures the mutable fields of one schedule entry. Which
// fields are meaningful is determined by the owning Snapshot's Kind; the
// others stay at their zero value and are omitted from storage.
type EntrySnapshot struct {
	ScheduleID    primitive.ObjectID `bson:"scheduleId" json:"scheduleId"`
	ScheduledDate time.Time          `bson:"scheduledDate,omitempty" json:"scheduledDate,omitempty"`
	WorkoutID     primitive.ObjectID `bson:"workoutId,omitempty" json:"workoutId,omitempty"`
	Skipped       bool               `bson:"skipped" json:"skipped"`
	SkippedAt     *time.Time         `bson:"skippedAt,omitempty" json:"skippedAt,omitempty"`
	SkipReason    string             `bson:"skipReason,omitempty" json:"skipReason,omitempty"`
}

// CaptureSnapshot records the kind-relevant fields of the given entries.
// Entry order is preserved; it must match the record's affected-id order.
func CaptureSnapshot(kind ChangeType, entries ...*ScheduleEntry) Snapshot {
	snap := Snapshot{Kind: kind, Entries: make([]EntrySnapshot, 0, len(entries))}
	for _, entry := range entries {
		sub := EntrySnapshot{ScheduleID: entry.ID}
		switch kind {
		case ChangeMove:
			sub.ScheduledDate = entry.ScheduledDate
		case ChangeSkip:
			sub.Skipped = entry.Skipped
			sub.SkippedAt = entry.SkippedAt
			sub.SkipReason = entry.SkipReason
		case ChangeSwap:
			sub.ScheduledDate = entry.ScheduledDate
			sub.WorkoutID = entry.WorkoutID
		}
		snap.Entries = append(snap.Entries, sub)
	}
	return snap
}

// ScheduleIDs returns the affected entry ids in snapshot order.
func (s Snapshot) ScheduleIDs() []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(s.Entries))
	for _, sub := range s.Entries {
		ids = append(ids, sub.ScheduleID)
	}
	return ids
}

// Entry returns the sub-snapshot for the given schedule id.
func (s Snapshot) Entry(id primitive.ObjectID) (EntrySnapshot, bool) {
	for _, sub := range s.Entries {
		if sub.ScheduleID == id {
			return sub, true
		}
	}
	return EntrySnapshot{}, false
}

// Matches reports whether the entry's current kind-relevant fields equal the
// values captured for it. A missing sub-snapshot is a mismatch.
func (s Snapshot) Matches(entry *ScheduleEntry) bool {
	sub, ok := s.Entry(entry.ID)
	if !ok {
		return false
	}
	switch s.Kind {
	case ChangeMove:
		return sub.ScheduledDate.Equal(entry.ScheduledDate)
	case ChangeSkip:
		return sub.Skipped == entry.Skipped &&
			sub.SkipReason == entry.SkipReason &&
			equalTimePtr(sub.SkippedAt, entry.SkippedAt)
	case ChangeSwap:
		return sub.ScheduledDate.Equal(entry.ScheduledDate) &&
			sub.WorkoutID == entry.WorkoutID
	}
	return false
}

// Restore writes the captured kind-relevant fields back onto the entry.
// It reports whether a sub-snapshot for the entry existed.
func (s Snapshot) Restore(entry *ScheduleEntry) bool {
	sub, ok := s.Entry(entry.ID)
	if !ok {
		return false
	}
	switch s.Kind {
	case ChangeMove:
		entry.ScheduledDate = sub.ScheduledDate
	case ChangeSkip:
		entry.Skipped = sub.Skipped
		entry.SkippedAt = sub.SkippedAt
		entry.SkipReason = sub.SkipReason
	case ChangeSwap:
		entry.ScheduledDate = sub.ScheduledDate
		entry.WorkoutID = sub.WorkoutID
	}
	return true
}

func equalTimePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
