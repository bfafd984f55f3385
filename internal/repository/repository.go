package repository

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDuplicate    = RepositoryError("duplicate key")
)

// RepositoryError helps distinguish repository errors
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// TxRunner executes a function inside one atomic storage transaction.
// The context passed to fn carries the transaction; repository calls made
// with it participate in the transaction and commit or roll back together.
// Concurrent transactions writing the same documents conflict and abort,
// which serializes mutations the way row locks would.
type TxRunner interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// UserRepository defines the interface for interacting with user accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error)
}

// WorkoutRepository provides read-only access to workout definitions.
// Workout content is owned by the program generation pipeline.
type WorkoutRepository interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error)
}

// ScheduleRepository defines the interface for interacting with schedule entries.
type ScheduleRepository interface {
	Create(ctx context.Context, entry *domain.ScheduleEntry) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleEntry, error)
	GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.ScheduleEntry, error)
	// GetByOwnerAndRange returns the owner's entries with from <= scheduledDate <= to,
	// ordered by scheduled date ascending.
	GetByOwnerAndRange(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) ([]domain.ScheduleEntry, error)
	// Update persists the entry's mutable fields (date, skip/complete state,
	// deload fields, modifiedAt). Owner and creation fields are never rewritten.
	Update(ctx context.Context, entry *domain.ScheduleEntry) error
}

// ChangeLogRepository defines the interface for the append-only change ledger.
type ChangeLogRepository interface {
	Append(ctx context.Context, record *domain.ChangeRecord) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChangeRecord, error)
	// LatestUndoable returns the owner's most recent record with isUndone=false,
	// or ErrNotFound when no such record exists.
	LatestUndoable(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error)
	// MarkUndone transitions a record from active to undone exactly once.
	// It fails with ErrUpdateFailed if the record is missing or already undone.
	MarkUndone(ctx context.Context, id primitive.ObjectID, undoneAt time.Time, undoneBy primitive.ObjectID) error
	// ListByOwner returns the owner's records, newest first, capped at limit.
	ListByOwner(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]domain.ChangeRecord, error)
}
