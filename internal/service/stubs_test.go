package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"context"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// In-memory repository stubs. They clone on read and write so service code
// mutating a fetched entry cannot leak changes into the store without
// calling Update, matching how a real driver behaves.

type stubTxRunner struct{}

func (stubTxRunner) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// --- schedule repo ---

type stubScheduleRepo struct {
	entries   map[primitive.ObjectID]*domain.ScheduleEntry
	updateErr error
}

func newStubScheduleRepo(entries ...*domain.ScheduleEntry) *stubScheduleRepo {
	repo := &stubScheduleRepo{entries: make(map[primitive.ObjectID]*domain.ScheduleEntry)}
	for _, entry := range entries {
		clone := *entry
		repo.entries[entry.ID] = &clone
	}
	return repo
}

func (r *stubScheduleRepo) Create(ctx context.Context, entry *domain.ScheduleEntry) (primitive.ObjectID, error) {
	if entry.ID == primitive.NilObjectID {
		entry.ID = primitive.NewObjectID()
	}
	clone := *entry
	r.entries[entry.ID] = &clone
	return entry.ID, nil
}

func (r *stubScheduleRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ScheduleEntry, error) {
	entry, ok := r.entries[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *entry
	return &clone, nil
}

func (r *stubScheduleRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.ScheduleEntry, error) {
	out := make([]domain.ScheduleEntry, 0, len(ids))
	for _, id := range ids {
		if entry, ok := r.entries[id]; ok {
			out = append(out, *entry)
		}
	}
	return out, nil
}

func (r *stubScheduleRepo) GetByOwnerAndRange(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) ([]domain.ScheduleEntry, error) {
	from = domain.NormalizeDate(from)
	to = domain.NormalizeDate(to)
	var out []domain.ScheduleEntry
	for _, entry := range r.entries {
		if entry.OwnerID != ownerID {
			continue
		}
		if entry.ScheduledDate.Before(from) || entry.ScheduledDate.After(to) {
			continue
		}
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScheduledDate.Before(out[j].ScheduledDate) })
	return out, nil
}

func (r *stubScheduleRepo) Update(ctx context.Context, entry *domain.ScheduleEntry) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	if _, ok := r.entries[entry.ID]; !ok {
		return repository.ErrNotFound
	}
	clone := *entry
	r.entries[entry.ID] = &clone
	return nil
}

// mustGet reads an entry directly from the store for assertions.
func (r *stubScheduleRepo) mustGet(id primitive.ObjectID) domain.ScheduleEntry {
	return *r.entries[id]
}

// --- change log repo ---

type stubChangeLogRepo struct {
	records []*domain.ChangeRecord
}

func newStubChangeLogRepo() *stubChangeLogRepo {
	return &stubChangeLogRepo{}
}

func (r *stubChangeLogRepo) Append(ctx context.Context, record *domain.ChangeRecord) (primitive.ObjectID, error) {
	clone := *record
	if clone.ID == primitive.NilObjectID {
		clone.ID = primitive.NewObjectID()
	}
	if clone.CreatedAt.IsZero() {
		clone.CreatedAt = time.Now().UTC()
	}
	clone.IsUndone = false
	r.records = append(r.records, &clone)
	return clone.ID, nil
}

func (r *stubChangeLogRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.ChangeRecord, error) {
	for _, record := range r.records {
		if record.ID == id {
			clone := *record
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubChangeLogRepo) LatestUndoable(ctx context.Context, ownerID primitive.ObjectID) (*domain.ChangeRecord, error) {
	for i := len(r.records) - 1; i >= 0; i-- {
		record := r.records[i]
		if record.OwnerID == ownerID && !record.IsUndone {
			clone := *record
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubChangeLogRepo) MarkUndone(ctx context.Context, id primitive.ObjectID, undoneAt time.Time, undoneBy primitive.ObjectID) error {
	for _, record := range r.records {
		if record.ID == id {
			if record.IsUndone {
				return repository.ErrUpdateFailed
			}
			record.IsUndone = true
			record.UndoneAt = &undoneAt
			record.UndoneByID = &undoneBy
			return nil
		}
	}
	return repository.ErrUpdateFailed
}

func (r *stubChangeLogRepo) ListByOwner(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]domain.ChangeRecord, error) {
	var out []domain.ChangeRecord
	for i := len(r.records) - 1; i >= 0 && int64(len(out)) < limit; i-- {
		if r.records[i].OwnerID == ownerID {
			out = append(out, *r.records[i])
		}
	}
	return out, nil
}

// --- workout repo ---

type stubWorkoutRepo struct {
	workouts map[primitive.ObjectID]*domain.Workout
}

func newStubWorkoutRepo(workouts ...*domain.Workout) *stubWorkoutRepo {
	repo := &stubWorkoutRepo{workouts: make(map[primitive.ObjectID]*domain.Workout)}
	for _, workout := range workouts {
		clone := *workout
		repo.workouts[workout.ID] = &clone
	}
	return repo
}

func (r *stubWorkoutRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Workout, error) {
	workout, ok := r.workouts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *workout
	return &clone, nil
}

func (r *stubWorkoutRepo) GetByIDs(ctx context.Context, ids []primitive.ObjectID) ([]domain.Workout, error) {
	out := make([]domain.Workout, 0, len(ids))
	for _, id := range ids {
		if workout, ok := r.workouts[id]; ok {
			out = append(out, *workout)
		}
	}
	return out, nil
}

// --- user repo ---

type stubUserRepo struct {
	users map[primitive.ObjectID]*domain.User
}

func newStubUserRepo() *stubUserRepo {
	return &stubUserRepo{users: make(map[primitive.ObjectID]*domain.User)}
}

func (r *stubUserRepo) Create(ctx context.Context, user *domain.User) (primitive.ObjectID, error) {
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return primitive.NilObjectID, repository.ErrDuplicate
		}
	}
	clone := *user
	clone.ID = primitive.NewObjectID()
	clone.CreatedAt = time.Now().UTC()
	r.users[clone.ID] = &clone
	return clone.ID, nil
}

func (r *stubUserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, user := range r.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubUserRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.User, error) {
	user, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

// --- shared fixtures ---

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func testWorkout(name string) *domain.Workout {
	return &domain.Workout{ID: primitive.NewObjectID(), Name: name}
}

func testEntry(ownerID primitive.ObjectID, workout *domain.Workout, scheduled time.Time) *domain.ScheduleEntry {
	now := time.Now().UTC()
	return &domain.ScheduleEntry{
		ID:            primitive.NewObjectID(),
		OwnerID:       ownerID,
		WorkoutID:     workout.ID,
		ScheduledDate: scheduled,
		CreatedAt:     now,
		ModifiedAt:    now,
	}
}
