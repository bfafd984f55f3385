package mongo

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const changeHistoryCollectionName = "schedule_change_history"

// mongoChangeLogRepository implements repository.ChangeLogRepository.
// The collection is append-only: documents are inserted once and the only
// update ever issued is the single active -> undone transition.
type mongoChangeLogRepository struct {
	collection *mongo.Collection
}

// NewMongoChangeLogRepository creates a new change ledger repository.
func NewMongoChangeLogRepository(db *mongo.Database) repository.ChangeLogRepository {
	return &mongoChangeLogRepository{
		collection: db.Collection(changeHistoryCollectionName),
	}
}

// Append inserts a new change record, assigning its id and creation time.
// The _id tiebreaker in the sort keeps ledger order stable when two records
// share a createdAt.
func (r *mongoChangeLogRepository) Append(ctx context.Context, record *domain.ChangeRecord) (primitive.ObjectID, error) {
	if record.OwnerID == primitive.NilObjectID || record.ChangeType == "" {
		return primitive.NilObjectID, errors.New("change record requires ownerId and changeType")
	}
	if len(record.AffectedScheduleIDs) == 0 {
		return primitive.NilObjectID, errors.New("change record requires at least one affected schedule id")
	}
	record.ID = primitive.NewObjectID()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	record.IsUndone = false

	result, err := r.collection.InsertOne(ctx, record)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted change record ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single change record.
func (r *mongoChangeLogRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChangeRecord, error) {
	var record domain.ChangeRecord
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// LatestUndoable returns the owner's newest record that has not been undone.
// Derived by query every time; there is no mutable "latest" cursor, so the
// undo engine stays stateless across restarts.
func (r *mongoChangeLogRepository) LatestUndoable(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error) {
	var record domain.ChangeRecord
	filter := bson.M{"ownerId": ownerID, "isUndone": false}
	findOptions := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})

	err := r.collection.FindOne(ctx, filter, findOptions).Decode(&record)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &record, nil
}

// MarkUndone sets isUndone, undoneAt and undoneById on an active record.
// The isUndone=false filter makes the transition exactly-once: a second
// attempt matches nothing and fails.
func (r *mongoChangeLogRepository) MarkUndone(ctx context.Context, id primitive.ObjectID, undoneAt time.Time, undoneBy primitive.ObjectID) error {
	filter := bson.M{"_id": id, "isUndone": false}
	updateDoc := bson.M{
		"$set": bson.M{
			"isUndone":   true,
			"undoneAt":   undoneAt,
			"undoneById": undoneBy,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrUpdateFailed
	}
	return nil
}

// ListByOwner returns the owner's records, newest first.
func (r *mongoChangeLogRepository) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]domain.ChangeRecord, error) {
	var records []domain.ChangeRecord
	filter := bson.M{"ownerId": ownerID}
	findOptions := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if limit > 0 {
		findOptions = findOptions.SetLimit(limit)
	}

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// EnsureChangeHistoryIndexes creates necessary indexes. Call during startup.
func EnsureChangeHistoryIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// History listing and latest-record queries
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index(),
		},
		{
			// Latest-undoable lookup
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "isUndone", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
