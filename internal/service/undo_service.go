package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrNoHistory    = errors.New("no recent changes to undo")
	ErrUndoConflict = errors.New("schedule was modified after this change; undo it manually instead")
	ErrUndoExpired  = errors.New("this change is too old to undo")
)

// --- Service Interface ---
type UndoService interface {
	// UndoLast reverses the owner's most recent not-yet-undone change and
	// returns the undo record it appended. Undoing an undo record restores
	// the original change (a single-step redo).
	UndoLast(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error)
	// LatestUndoable returns the change UndoLast would target, without
	// touching anything. Returns ErrNoHistory when the log is empty.
	LatestUndoable(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error)
}

// --- Service Implementation ---

// undoService reverses logged schedule changes. It keeps no state of its
// own: the undo target is always derived from the change log, so the
// service survives restarts and concurrent sessions for free.
type undoService struct {
	scheduleRepo repository.ScheduleRepository
	changeLog    repository.ChangeLogRepository
	tx           repository.TxRunner
	policy       SchedulePolicy
}

// NewUndoService creates a new instance of undoService.
func NewUndoService(
	scheduleRepo repository.ScheduleRepository,
	changeLog repository.ChangeLogRepository,
	tx repository.TxRunner,
	policy SchedulePolicy,
) UndoService {
	return &undoService{
		scheduleRepo: scheduleRepo,
		changeLog:    changeLog,
		tx:           tx,
		policy:       policy,
	}
}

func (s *undoService) LatestUndoable(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	record, err := s.changeLog.LatestUndoable(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoHistory
		}
		return nil, err
	}
	return record, nil
}

// UndoLast reverses the most recent undoable change in one transaction:
//
//  1. find the target record and check the undo window;
//  2. verify every affected entry still matches the record's after-state,
//     refusing to clobber anything touched since (ErrUndoConflict);
//  3. restore the before-state;
//  4. append an undo record whose before/after are the original's reversed,
//     so it can itself be undone;
//  5. mark the original undone, pointing it at the undo record.
//
// Nothing is written unless every step succeeds.
func (s *undoService) UndoLast(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}

	var undoRecord *domain.ChangeRecord
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		target, err := s.changeLog.LatestUndoable(ctx, ownerID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrNoHistory
			}
			return err
		}

		now := time.Now().UTC()
		if s.policy.UndoWindow > 0 && now.Sub(target.CreatedAt) > s.policy.UndoWindow {
			return ErrUndoExpired
		}

		// Conflict check first: load every affected entry and compare it
		// against the state this change left behind. Only then mutate.
		entries := make(map[primitive.ObjectID]*domain.ScheduleEntry, len(target.AffectedScheduleIDs))
		for _, scheduleID := range target.AffectedScheduleIDs {
			entry, err := s.scheduleRepo.GetByID(ctx, scheduleID)
			if err != nil {
				if errors.Is(err, repository.ErrNotFound) {
					// Entry deleted since the change was made.
					return ErrUndoConflict
				}
				return err
			}
			if entry.OwnerID != ownerID {
				return ErrScheduleAccessDenied
			}
			if !target.AfterState.Matches(entry) {
				return ErrUndoConflict
			}
			entries[scheduleID] = entry
		}

		for _, scheduleID := range target.AffectedScheduleIDs {
			entry := entries[scheduleID]
			if !target.BeforeState.Restore(entry) {
				return ErrUndoConflict
			}
			entry.ModifiedAt = now
			if err := s.scheduleRepo.Update(ctx, entry); err != nil {
				return err
			}
		}

		undoRecord = &domain.ChangeRecord{
			OwnerID:             ownerID,
			ChangeType:          domain.ChangeUndo,
			Description:         "Undo: " + target.Description,
			AffectedScheduleIDs: append([]primitive.ObjectID(nil), target.AffectedScheduleIDs...),
			// Reversed snapshots make the undo itself undoable: undoing it
			// re-applies the original change.
			BeforeState: target.AfterState,
			AfterState:  target.BeforeState,
			CreatedAt:   now,
			Operation:   "undo_last_change",
			UndoOfID:    &target.ID,
		}
		undoRecordID, err := s.changeLog.Append(ctx, undoRecord)
		if err != nil {
			return err
		}
		undoRecord.ID = undoRecordID

		// The filtered update fails if the record was undone concurrently,
		// aborting the whole transaction instead of double-reversing.
		if err := s.changeLog.MarkUndone(ctx, target.ID, now, undoRecordID); err != nil {
			if errors.Is(err, repository.ErrUpdateFailed) {
				return ErrUndoConflict
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return undoRecord, nil
}
