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

const scheduleCollectionName = "schedule"

// mongoScheduleRepository implements repository.ScheduleRepository
type mongoScheduleRepository struct {
	collection *mongo.Collection
}

// NewMongoScheduleRepository creates a new schedule entry repository.
func NewMongoScheduleRepository(db *mongo.Database) repository.ScheduleRepository {
	return &mongoScheduleRepository{
		collection: db.Collection(scheduleCollectionName),
	}
}

// Create inserts a new schedule entry. Normally called by the program
// generation pipeline; exposed here so seeds and tests share one path.
func (r *mongoScheduleRepository) Create(ctx context.Context, entry *domain.ScheduleEntry) (primitive.ObjectID, error) {
	if entry.OwnerID == primitive.NilObjectID || entry.WorkoutID == primitive.NilObjectID {
		return primitive.NilObjectID, errors.New("schedule entry requires ownerId and workoutId")
	}
	entry.ID = primitive.NewObjectID()
	now := time.Now().UTC()
	entry.CreatedAt = now
	entry.ModifiedAt = now
	entry.ScheduledDate = domain.NormalizeDate(entry.ScheduledDate)

	result, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		return primitive.NilObjectID, err
	}
	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("failed to convert inserted schedule ID")
	}
	return insertedID, nil
}

// GetByID retrieves a single schedule entry by its ID.
func (r *mongoScheduleRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleEntry, error) {
	var entry domain.ScheduleEntry
	filter := bson.M{"_id": id}
	err := r.collection.FindOne(ctx, filter).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// GetByIDs retrieves multiple entries at once (swap and undo touch several rows).
func (r *mongoScheduleRepository) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.ScheduleEntry, error) {
	if len(ids) == 0 {
		return []domain.ScheduleEntry{}, nil
	}
	var entries []domain.ScheduleEntry
	filter := bson.M{"_id": bson.M{"$in": ids}}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// GetByOwnerAndRange retrieves an owner's entries within a date range,
// ordered by scheduled date ascending.
func (r *mongoScheduleRepository) GetByOwnerAndRange(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) ([]domain.ScheduleEntry, error) {
	var entries []domain.ScheduleEntry
	filter := bson.M{
		"ownerId": ownerID,
		"scheduledDate": bson.M{
			"$gte": domain.NormalizeDate(from),
			"$lte": domain.NormalizeDate(to),
		},
	}
	findOptions := options.Find().SetSort(bson.D{{Key: "scheduledDate", Value: 1}})

	cursor, err := r.collection.Find(ctx, filter, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err = cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// Update persists the mutable fields of an entry. OwnerID, WorkoutID linkage
// changes only through swap, which still goes through this method.
func (r *mongoScheduleRepository) Update(ctx context.Context, entry *domain.ScheduleEntry) error {
	if entry.ID == primitive.NilObjectID {
		return errors.New("schedule entry ID is required for update")
	}

	filter := bson.M{"_id": entry.ID}
	updateDoc := bson.M{
		"$set": bson.M{
			"workoutId":               entry.WorkoutID,
			"scheduledDate":           entry.ScheduledDate,
			"completed":               entry.Completed,
			"completedAt":             entry.CompletedAt,
			"skipped":                 entry.Skipped,
			"skipReason":              entry.SkipReason,
			"skippedAt":               entry.SkippedAt,
			"isDeload":                entry.IsDeload,
			"deloadIntensityModifier": entry.DeloadIntensityModifier,
			"modifiedAt":              entry.ModifiedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, filter, updateDoc)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// EnsureScheduleIndexes creates necessary indexes. Call during startup.
func EnsureScheduleIndexes(ctx context.Context, collection *mongo.Collection) {
	indexes := []mongo.IndexModel{
		{
			// Calendar queries: one owner's entries by date
			Keys:    bson.D{{Key: "ownerId", Value: 1}, {Key: "scheduledDate", Value: 1}},
			Options: options.Index(),
		},
	}
	_, _ = collection.Indexes().CreateMany(ctx, indexes)
}
