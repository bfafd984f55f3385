package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type undoFixture struct {
	scheduleSvc  ScheduleService
	undoSvc      UndoService
	scheduleRepo *stubScheduleRepo
	changeLog    *stubChangeLogRepo
	workoutRepo  *stubWorkoutRepo
	owner        primitive.ObjectID
}

func newUndoFixture(t *testing.T, policy SchedulePolicy) *undoFixture {
	t.Helper()
	scheduleRepo := newStubScheduleRepo()
	changeLog := newStubChangeLogRepo()
	workoutRepo := newStubWorkoutRepo()
	return &undoFixture{
		scheduleSvc:  NewScheduleService(scheduleRepo, changeLog, workoutRepo, stubTxRunner{}, policy),
		undoSvc:      NewUndoService(scheduleRepo, changeLog, stubTxRunner{}, policy),
		scheduleRepo: scheduleRepo,
		changeLog:    changeLog,
		workoutRepo:  workoutRepo,
		owner:        primitive.NewObjectID(),
	}
}

func (f *undoFixture) seed(t *testing.T, name string, scheduled time.Time) *domain.ScheduleEntry {
	t.Helper()
	workout := testWorkout(name)
	f.workoutRepo.workouts[workout.ID] = workout
	entry := testEntry(f.owner, workout, scheduled)
	f.scheduleRepo.entries[entry.ID] = entry
	return entry
}

func TestUndoMoveRestoresDate(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	original, err := f.scheduleSvc.Move(context.Background(), f.owner, entry.ID, date(2025, time.June, 8), date(2025, time.June, 1))
	require.NoError(t, err)

	undone, err := f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)
	require.NotNil(t, undone)

	require.Equal(t, domain.ChangeUndo, undone.ChangeType)
	require.Equal(t, "Undo: "+original.Description, undone.Description)
	require.Equal(t, "undo_last_change", undone.Operation)
	require.NotNil(t, undone.UndoOfID)
	require.Equal(t, original.ID, *undone.UndoOfID)

	// The undo record holds the original snapshots reversed.
	require.Equal(t, original.AfterState, undone.BeforeState)
	require.Equal(t, original.BeforeState, undone.AfterState)

	stored := f.scheduleRepo.mustGet(entry.ID)
	require.True(t, stored.ScheduledDate.Equal(date(2025, time.June, 1)))

	// The original record is now marked undone and chained to the undo record.
	origStored, err := f.changeLog.GetByID(context.Background(), original.ID)
	require.NoError(t, err)
	require.True(t, origStored.IsUndone)
	require.NotNil(t, origStored.UndoneAt)
	require.NotNil(t, origStored.UndoneByID)
	require.Equal(t, undone.ID, *origStored.UndoneByID)
}

func TestUndoSkipClearsSkipState(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	_, err := f.scheduleSvc.Skip(context.Background(), f.owner, entry.ID, "sore")
	require.NoError(t, err)

	_, err = f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)

	stored := f.scheduleRepo.mustGet(entry.ID)
	require.False(t, stored.Skipped)
	require.Nil(t, stored.SkippedAt)
	require.Empty(t, stored.SkipReason)
}

func TestUndoSwapRestoresBothSides(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entryA := f.seed(t, "Leg Day", date(2025, time.June, 1))
	entryB := f.seed(t, "Push Day", date(2025, time.June, 8))

	_, err := f.scheduleSvc.Swap(context.Background(), f.owner, entryA.ID, entryB.ID)
	require.NoError(t, err)

	_, err = f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)

	storedA := f.scheduleRepo.mustGet(entryA.ID)
	storedB := f.scheduleRepo.mustGet(entryB.ID)
	require.True(t, storedA.ScheduledDate.Equal(date(2025, time.June, 1)))
	require.True(t, storedB.ScheduledDate.Equal(date(2025, time.June, 8)))
}

func TestUndoWithNoHistory(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})

	_, err := f.undoSvc.UndoLast(context.Background(), f.owner)
	require.ErrorIs(t, err, ErrNoHistory)
}

func TestUndoConflictLeavesStateUntouched(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	original, err := f.scheduleSvc.Move(context.Background(), f.owner, entry.ID, date(2025, time.June, 8), date(2025, time.June, 1))
	require.NoError(t, err)

	// Something else moves the entry after the change was recorded.
	drifted := f.scheduleRepo.mustGet(entry.ID)
	drifted.ScheduledDate = date(2025, time.June, 15)
	require.NoError(t, f.scheduleRepo.Update(context.Background(), &drifted))

	_, err = f.undoSvc.UndoLast(context.Background(), f.owner)
	require.ErrorIs(t, err, ErrUndoConflict)

	// Neither the entry nor the ledger changed.
	stored := f.scheduleRepo.mustGet(entry.ID)
	require.True(t, stored.ScheduledDate.Equal(date(2025, time.June, 15)))
	origStored, err := f.changeLog.GetByID(context.Background(), original.ID)
	require.NoError(t, err)
	require.False(t, origStored.IsUndone)
	require.Len(t, f.changeLog.records, 1)
}

func TestUndoConflictWhenEntryDeleted(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	_, err := f.scheduleSvc.Move(context.Background(), f.owner, entry.ID, date(2025, time.June, 8), date(2025, time.June, 1))
	require.NoError(t, err)

	delete(f.scheduleRepo.entries, entry.ID)

	_, err = f.undoSvc.UndoLast(context.Background(), f.owner)
	require.ErrorIs(t, err, ErrUndoConflict)
}

func TestUndoOfUndoActsAsRedo(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	_, err := f.scheduleSvc.Move(context.Background(), f.owner, entry.ID, date(2025, time.June, 8), date(2025, time.June, 1))
	require.NoError(t, err)

	firstUndo, err := f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)
	stored := f.scheduleRepo.mustGet(entry.ID)
	require.True(t, stored.ScheduledDate.Equal(date(2025, time.June, 1)))

	secondUndo, err := f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)

	// Back on the moved date, with three ledger entries and the chain intact.
	stored = f.scheduleRepo.mustGet(entry.ID)
	require.True(t, stored.ScheduledDate.Equal(date(2025, time.June, 8)))
	require.Len(t, f.changeLog.records, 3)
	require.NotNil(t, secondUndo.UndoOfID)
	require.Equal(t, firstUndo.ID, *secondUndo.UndoOfID)

	firstStored, err := f.changeLog.GetByID(context.Background(), firstUndo.ID)
	require.NoError(t, err)
	require.True(t, firstStored.IsUndone)
}

func TestUndoExpiredWindow(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{UndoWindow: time.Hour})
	entry := f.seed(t, "Leg Day", date(2025, time.June, 1))

	record := &domain.ChangeRecord{
		OwnerID:             f.owner,
		ChangeType:          domain.ChangeMove,
		Description:         "Moved Leg Day from May 25 to Jun 1",
		AffectedScheduleIDs: []primitive.ObjectID{entry.ID},
		BeforeState: domain.Snapshot{Kind: domain.ChangeMove, Entries: []domain.EntrySnapshot{
			{ScheduleID: entry.ID, ScheduledDate: date(2025, time.May, 25)},
		}},
		AfterState: domain.Snapshot{Kind: domain.ChangeMove, Entries: []domain.EntrySnapshot{
			{ScheduleID: entry.ID, ScheduledDate: date(2025, time.June, 1)},
		}},
		CreatedAt: time.Now().UTC().Add(-2 * time.Hour),
		Operation: "move_workout",
	}
	_, err := f.changeLog.Append(context.Background(), record)
	require.NoError(t, err)

	_, err = f.undoSvc.UndoLast(context.Background(), f.owner)
	require.ErrorIs(t, err, ErrUndoExpired)
}

func TestLatestUndoableSkipsUndoneRecords(t *testing.T) {
	f := newUndoFixture(t, SchedulePolicy{})
	entryA := f.seed(t, "Leg Day", date(2025, time.June, 1))
	entryB := f.seed(t, "Push Day", date(2025, time.June, 3))

	_, err := f.scheduleSvc.Move(context.Background(), f.owner, entryA.ID, date(2025, time.June, 2), date(2025, time.June, 1))
	require.NoError(t, err)
	skipRecord, err := f.scheduleSvc.Skip(context.Background(), f.owner, entryB.ID, "")
	require.NoError(t, err)

	undoRecord, err := f.undoSvc.UndoLast(context.Background(), f.owner)
	require.NoError(t, err)

	// The consumed skip record is no longer a target; the undo record that
	// replaced it is.
	target, err := f.undoSvc.LatestUndoable(context.Background(), f.owner)
	require.NoError(t, err)
	require.NotEqual(t, skipRecord.ID, target.ID)
	require.Equal(t, undoRecord.ID, target.ID)
	require.Equal(t, domain.ChangeUndo, target.ChangeType)
}
