package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrScheduleNotFound     = errors.New("schedule entry not found")
	ErrScheduleAccessDenied = errors.New("schedule entry belongs to another user")
	ErrScheduleCompleted    = errors.New("cannot modify a completed workout")
	ErrSameDate             = errors.New("workout is already scheduled on that date")
	ErrPastDate             = errors.New("cannot move a workout into the past")
	// ErrStorageFailure classifies unexpected transaction errors. The
	// transaction rolled back fully, so this is the only error class a
	// caller may safely retry.
	ErrStorageFailure = errors.New("storage operation failed")
)

// Display format for dates inside change descriptions, e.g. "Jun 8".
const descDateFormat = "Jan 2"

// SchedulePolicy carries the caller-configurable preconditions of the
// mutation operations.
type SchedulePolicy struct {
	// AllowPastDates permits moving a workout to a date before "today".
	AllowPastDates bool
	// UndoWindow is how long after creation a change stays undoable.
	// Zero means no limit.
	UndoWindow time.Duration
}

// --- Service Interface ---
type ScheduleService interface {
	// Move reschedules a workout to newDate. today anchors the past-date
	// check and is supplied by the caller, not read from the wall clock.
	Move(ctx context.Context, ownerID, scheduleID primitive.ObjectID, newDate, today time.Time) (*domain.ChangeRecord, error)
	// Skip marks a workout as skipped. Skipping an already-skipped entry is
	// a no-op success returning a nil record.
	Skip(ctx context.Context, ownerID, scheduleID primitive.ObjectID, reason string) (*domain.ChangeRecord, error)
	// Swap exchanges the calendar slots of two workouts owned by the same user.
	Swap(ctx context.Context, ownerID, scheduleIDA, scheduleIDB primitive.ObjectID) (*domain.ChangeRecord, error)

	// Read-only calendar views.
	GetRange(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) ([]domain.ScheduleEntry, error)
	GetToday(ctx context.Context, ownerID primitive.ObjectID, today time.Time) (*domain.ScheduleEntry, error)
	GetUpcoming(ctx context.Context, ownerID primitive.ObjectID, today time.Time, daysAhead int) ([]domain.ScheduleEntry, error)
}

// --- Service Implementation ---

// scheduleService implements the ScheduleService interface. Every mutation
// runs inside one transaction: lock/read the affected rows, capture the
// before-snapshot, apply the change, capture the after-snapshot, and append
// exactly one change record. A failure at any point rolls everything back.
type scheduleService struct {
	scheduleRepo repository.ScheduleRepository
	changeLog    repository.ChangeLogRepository
	workoutRepo  repository.WorkoutRepository
	tx           repository.TxRunner
	policy       SchedulePolicy
}

// NewScheduleService creates a new instance of scheduleService.
func NewScheduleService(
	scheduleRepo repository.ScheduleRepository,
	changeLog repository.ChangeLogRepository,
	workoutRepo repository.WorkoutRepository,
	tx repository.TxRunner,
	policy SchedulePolicy,
) ScheduleService {
	return &scheduleService{
		scheduleRepo: scheduleRepo,
		changeLog:    changeLog,
		workoutRepo:  workoutRepo,
		tx:           tx,
		policy:       policy,
	}
}

// Move reschedules a single workout and records the change.
func (s *scheduleService) Move(ctx context.Context, ownerID, scheduleID primitive.ObjectID, newDate, today time.Time) (*domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID || scheduleID == primitive.NilObjectID {
		return nil, errors.New("owner ID and schedule ID are required")
	}
	newDate = domain.NormalizeDate(newDate)
	today = domain.NormalizeDate(today)

	var record *domain.ChangeRecord
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.getOwnedEntry(ctx, ownerID, scheduleID)
		if err != nil {
			return err
		}
		if entry.Completed {
			return ErrScheduleCompleted
		}
		if entry.ScheduledDate.Equal(newDate) {
			return ErrSameDate
		}
		if !s.policy.AllowPastDates && newDate.Before(today) {
			return ErrPastDate
		}

		before := domain.CaptureSnapshot(domain.ChangeMove, entry)
		oldDate := entry.ScheduledDate

		now := time.Now().UTC()
		entry.ScheduledDate = newDate
		entry.ModifiedAt = now
		if err := s.scheduleRepo.Update(ctx, entry); err != nil {
			return err
		}
		after := domain.CaptureSnapshot(domain.ChangeMove, entry)

		record = &domain.ChangeRecord{
			OwnerID:    ownerID,
			ChangeType: domain.ChangeMove,
			Description: fmt.Sprintf("Moved %s from %s to %s",
				s.workoutName(ctx, entry.WorkoutID),
				oldDate.Format(descDateFormat),
				newDate.Format(descDateFormat)),
			AffectedScheduleIDs: []primitive.ObjectID{entry.ID},
			BeforeState:         before,
			AfterState:          after,
			CreatedAt:           now,
			Operation:           "move_workout",
		}
		recordID, err := s.changeLog.Append(ctx, record)
		if err != nil {
			return err
		}
		record.ID = recordID
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return record, nil
}

// Skip marks a workout as skipped and records the change. Re-skipping an
// already-skipped entry succeeds without touching anything.
func (s *scheduleService) Skip(ctx context.Context, ownerID, scheduleID primitive.ObjectID, reason string) (*domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID || scheduleID == primitive.NilObjectID {
		return nil, errors.New("owner ID and schedule ID are required")
	}

	var record *domain.ChangeRecord
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		entry, err := s.getOwnedEntry(ctx, ownerID, scheduleID)
		if err != nil {
			return err
		}
		if entry.Completed {
			return ErrScheduleCompleted
		}
		if entry.Skipped {
			// Idempotence guard: already skipped, nothing to record.
			return nil
		}

		before := domain.CaptureSnapshot(domain.ChangeSkip, entry)

		now := time.Now().UTC()
		entry.Skipped = true
		entry.SkippedAt = &now
		entry.SkipReason = reason
		entry.ModifiedAt = now
		if err := s.scheduleRepo.Update(ctx, entry); err != nil {
			return err
		}
		after := domain.CaptureSnapshot(domain.ChangeSkip, entry)

		record = &domain.ChangeRecord{
			OwnerID:    ownerID,
			ChangeType: domain.ChangeSkip,
			Description: fmt.Sprintf("Skipped %s on %s",
				s.workoutName(ctx, entry.WorkoutID),
				entry.ScheduledDate.Format(descDateFormat)),
			AffectedScheduleIDs: []primitive.ObjectID{entry.ID},
			BeforeState:         before,
			AfterState:          after,
			CreatedAt:           now,
			Operation:           "skip_workout",
		}
		recordID, err := s.changeLog.Append(ctx, record)
		if err != nil {
			return err
		}
		record.ID = recordID
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return record, nil
}

// Swap exchanges the scheduled dates of two workouts. The snapshot captures
// both the date and the workout reference on each side so the undo engine
// can detect drift on either field. Affected ids keep caller order [A, B].
func (s *scheduleService) Swap(ctx context.Context, ownerID, scheduleIDA, scheduleIDB primitive.ObjectID) (*domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID || scheduleIDA == primitive.NilObjectID || scheduleIDB == primitive.NilObjectID {
		return nil, errors.New("owner ID and both schedule IDs are required")
	}
	if scheduleIDA == scheduleIDB {
		return nil, errors.New("cannot swap a workout with itself")
	}

	var record *domain.ChangeRecord
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		entryA, err := s.getOwnedEntry(ctx, ownerID, scheduleIDA)
		if err != nil {
			return err
		}
		entryB, err := s.getOwnedEntry(ctx, ownerID, scheduleIDB)
		if err != nil {
			return err
		}
		if entryA.Completed || entryB.Completed {
			return ErrScheduleCompleted
		}

		before := domain.CaptureSnapshot(domain.ChangeSwap, entryA, entryB)

		now := time.Now().UTC()
		entryA.ScheduledDate, entryB.ScheduledDate = entryB.ScheduledDate, entryA.ScheduledDate
		entryA.ModifiedAt = now
		entryB.ModifiedAt = now
		if err := s.scheduleRepo.Update(ctx, entryA); err != nil {
			return err
		}
		if err := s.scheduleRepo.Update(ctx, entryB); err != nil {
			return err
		}
		after := domain.CaptureSnapshot(domain.ChangeSwap, entryA, entryB)

		record = &domain.ChangeRecord{
			OwnerID:    ownerID,
			ChangeType: domain.ChangeSwap,
			// Dates shown are post-swap: each workout with the slot it now holds.
			Description: fmt.Sprintf("Swapped %s (%s) with %s (%s)",
				s.workoutName(ctx, entryA.WorkoutID),
				entryA.ScheduledDate.Format(descDateFormat),
				s.workoutName(ctx, entryB.WorkoutID),
				entryB.ScheduledDate.Format(descDateFormat)),
			AffectedScheduleIDs: []primitive.ObjectID{entryA.ID, entryB.ID},
			BeforeState:         before,
			AfterState:          after,
			CreatedAt:           now,
			Operation:           "swap_workouts",
		}
		recordID, err := s.changeLog.Append(ctx, record)
		if err != nil {
			return err
		}
		record.ID = recordID
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return record, nil
}

// === Read-only calendar views ===

// GetRange returns the owner's entries between from and to inclusive.
func (s *scheduleService) GetRange(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) ([]domain.ScheduleEntry, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	return s.scheduleRepo.GetByOwnerAndRange(ctx, ownerID, from, to)
}

// GetToday returns the first uncompleted, unskipped workout scheduled for
// today, or nil when there is none.
func (s *scheduleService) GetToday(ctx context.Context, ownerID primitive.ObjectID, today time.Time) (*domain.ScheduleEntry, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	entries, err := s.scheduleRepo.GetByOwnerAndRange(ctx, ownerID, today, today)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		if !entries[i].Completed && !entries[i].Skipped {
			return &entries[i], nil
		}
	}
	return nil, nil
}

// GetUpcoming returns the owner's entries for the next daysAhead days.
func (s *scheduleService) GetUpcoming(ctx context.Context, ownerID primitive.ObjectID, today time.Time, daysAhead int) ([]domain.ScheduleEntry, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	if daysAhead <= 0 {
		daysAhead = 7
	}
	from := domain.NormalizeDate(today)
	to := from.AddDate(0, 0, daysAhead)
	return s.scheduleRepo.GetByOwnerAndRange(ctx, ownerID, from, to)
}

// === Helpers ===

// getOwnedEntry reads an entry and enforces the owner scope.
func (s *scheduleService) getOwnedEntry(ctx context.Context, ownerID, scheduleID primitive.ObjectID) (*domain.ScheduleEntry, error) {
	entry, err := s.scheduleRepo.GetByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrScheduleNotFound
		}
		return nil, err
	}
	if entry.OwnerID != ownerID {
		return nil, ErrScheduleAccessDenied
	}
	return entry, nil
}

// workoutName resolves a workout's display name for descriptions. A missing
// workout degrades to a placeholder rather than failing the mutation.
func (s *scheduleService) workoutName(ctx context.Context, workoutID primitive.ObjectID) string {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil || workout.Name == "" {
		return "workout"
	}
	return workout.Name
}

// classifyTxError passes through the service's own sentinels and wraps
// everything else (driver errors, aborted transactions) as ErrStorageFailure.
func classifyTxError(err error) error {
	for _, known := range []error{
		ErrScheduleNotFound,
		ErrScheduleAccessDenied,
		ErrScheduleCompleted,
		ErrSameDate,
		ErrPastDate,
		ErrNoHistory,
		ErrUndoConflict,
		ErrUndoExpired,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", ErrStorageFailure, err)
}
