package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func snapshotEntry(scheduled time.Time) *ScheduleEntry {
	return &ScheduleEntry{
		ID:            primitive.NewObjectID(),
		OwnerID:       primitive.NewObjectID(),
		WorkoutID:     primitive.NewObjectID(),
		ScheduledDate: scheduled,
	}
}

func TestMoveSnapshotRoundTrip(t *testing.T) {
	entry := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	snap := CaptureSnapshot(ChangeMove, entry)

	require.True(t, snap.Matches(entry))

	entry.ScheduledDate = time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC)
	require.False(t, snap.Matches(entry))

	require.True(t, snap.Restore(entry))
	require.True(t, entry.ScheduledDate.Equal(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)))
	require.True(t, snap.Matches(entry))
}

func TestSkipSnapshotCapturesNilSkippedAt(t *testing.T) {
	entry := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	before := CaptureSnapshot(ChangeSkip, entry)

	skippedAt := time.Now().UTC()
	entry.Skipped = true
	entry.SkippedAt = &skippedAt
	entry.SkipReason = "sore"
	after := CaptureSnapshot(ChangeSkip, entry)

	require.False(t, before.Matches(entry))
	require.True(t, after.Matches(entry))

	// Restoring the before state clears the skip fields back to nil/empty.
	require.True(t, before.Restore(entry))
	require.False(t, entry.Skipped)
	require.Nil(t, entry.SkippedAt)
	require.Empty(t, entry.SkipReason)
}

func TestSkipSnapshotIgnoresDateDrift(t *testing.T) {
	// A skip snapshot only covers skip fields; a later move does not make
	// the skip state look drifted.
	entry := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	skippedAt := time.Now().UTC()
	entry.Skipped = true
	entry.SkippedAt = &skippedAt
	snap := CaptureSnapshot(ChangeSkip, entry)

	entry.ScheduledDate = time.Date(2025, time.June, 20, 0, 0, 0, 0, time.UTC)
	require.True(t, snap.Matches(entry))
}

func TestSwapSnapshotTracksWorkoutReference(t *testing.T) {
	entry := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	snap := CaptureSnapshot(ChangeSwap, entry)

	require.True(t, snap.Matches(entry))

	entry.WorkoutID = primitive.NewObjectID()
	require.False(t, snap.Matches(entry))
}

func TestSnapshotMissingEntry(t *testing.T) {
	entry := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	snap := CaptureSnapshot(ChangeMove, entry)

	stranger := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	require.False(t, snap.Matches(stranger))
	require.False(t, snap.Restore(stranger))

	_, ok := snap.Entry(stranger.ID)
	require.False(t, ok)
}

func TestSnapshotScheduleIDsPreserveOrder(t *testing.T) {
	entryA := snapshotEntry(time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC))
	entryB := snapshotEntry(time.Date(2025, time.June, 8, 0, 0, 0, 0, time.UTC))
	snap := CaptureSnapshot(ChangeSwap, entryA, entryB)

	require.Equal(t, []primitive.ObjectID{entryA.ID, entryB.ID}, snap.ScheduleIDs())
}

func TestNormalizeDate(t *testing.T) {
	loc := time.FixedZone("UTC+5", 5*3600)
	input := time.Date(2025, time.June, 1, 2, 30, 0, 0, loc) // May 31 21:30 UTC
	got := NormalizeDate(input)
	require.Equal(t, time.Date(2025, time.May, 31, 0, 0, 0, 0, time.UTC), got)
	require.Equal(t, time.UTC, got.Location())
}
