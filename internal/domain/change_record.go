package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChangeType identifies what kind of schedule mutation a ChangeRecord describes.
type ChangeType string

const (
	ChangeMove ChangeType = "move"
	ChangeSkip ChangeType = "skip"
	ChangeSwap ChangeType = "swap"
	ChangeUndo ChangeType = "undo"
)

// ChangeRecord is one immutable ledger entry describing a schedule mutation
// and how to reverse it. Records are append-only: after insertion the only
// permitted transition is active -> undone, which sets IsUndone, UndoneAt and
// UndoneByID exactly once. Records are never deleted.
//
// An "undo" record is a normal record whose before/after snapshots are the
// original record's, reversed, so undoing an undo acts as a redo.
// UndoOfID and UndoneByID are plain id references, not object pointers; the
// ledger forms a chain through the collection rather than through memory.
type ChangeRecord struct {
	ID                  primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	OwnerID             primitive.ObjectID   `bson:"ownerId" json:"ownerId"`
	ChangeType          ChangeType           `bson:"changeType" json:"changeType"`
	Description         string               `bson:"description" json:"description"`
	AffectedScheduleIDs []primitive.ObjectID `bson:"affectedScheduleIds" json:"affectedScheduleIds"`
	BeforeState         Snapshot             `bson:"beforeState" json:"beforeState"` // captured strictly before the mutation
	AfterState          Snapshot             `bson:"afterState" json:"afterState"`   // captured strictly after the mutation
	CreatedAt           time.Time            `bson:"createdAt" json:"createdAt"`
	Operation           string               `bson:"operation,omitempty" json:"operation,omitempty"` // originating operation name
	IsUndone            bool                 `bson:"isUndone" json:"isUndone"`
	UndoneAt            *time.Time           `bson:"undoneAt,omitempty" json:"undoneAt,omitempty"`
	UndoOfID            *primitive.ObjectID  `bson:"undoOfId,omitempty" json:"undoOfId,omitempty"`     // set on "undo" records: the record this one reverses
	UndoneByID          *primitive.ObjectID  `bson:"undoneById,omitempty" json:"undoneById,omitempty"` // set on undone records: the "undo" record that reversed it
}
