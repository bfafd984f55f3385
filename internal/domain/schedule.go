package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ScheduleEntry is one planned occurrence of a workout on a user's calendar.
// Entries are created by the program generation pipeline and mutated only
// through the schedule service and the undo engine, which record every change.
//
// Invariants:
//   - Completed and Skipped are never both true.
//   - SkipReason/SkippedAt are set only while Skipped is true.
//   - DeloadIntensityModifier is present only when IsDeload is true.
//   - ModifiedAt is bumped on every mutation and never moves backwards.
type ScheduleEntry struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	OwnerID       primitive.ObjectID `bson:"ownerId" json:"ownerId"`
	WorkoutID     primitive.ObjectID `bson:"workoutId" json:"workoutId"`
	ScheduledDate time.Time          `bson:"scheduledDate" json:"scheduledDate"` // UTC midnight, date precision only
	Completed     bool               `bson:"completed" json:"completed"`
	CompletedAt   *time.Time         `bson:"completedAt,omitempty" json:"completedAt,omitempty"`
	Skipped       bool               `bson:"skipped" json:"skipped"`
	SkipReason    string             `bson:"skipReason,omitempty" json:"skipReason,omitempty"`
	SkippedAt     *time.Time         `bson:"skippedAt,omitempty" json:"skippedAt,omitempty"`
	IsDeload      bool               `bson:"isDeload" json:"isDeload"`
	// Intensity multiplier for deload weeks (e.g. 0.6). Only meaningful when IsDeload.
	DeloadIntensityModifier *float64  `bson:"deloadIntensityModifier,omitempty" json:"deloadIntensityModifier,omitempty"`
	CreatedAt               time.Time `bson:"createdAt" json:"createdAt"`
	ModifiedAt              time.Time `bson:"modifiedAt" json:"modifiedAt"`
}

// NormalizeDate truncates a timestamp to its calendar day at UTC midnight.
// Scheduled dates are stored and compared at date precision only.
func NormalizeDate(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
