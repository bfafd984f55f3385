package service

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/repository"
	"alcyxob/fitness-scheduler/internal/storage"
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// How long an export download link stays valid.
const exportURLExpiry = time.Hour

// --- Service Interface ---
type ExportService interface {
	// ExportSchedule renders the owner's schedule between from and to as a
	// markdown document, uploads it to object storage, and returns a
	// presigned download URL.
	ExportSchedule(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) (string, error)
}

// --- Service Implementation ---
type exportService struct {
	scheduleRepo repository.ScheduleRepository
	workoutRepo  repository.WorkoutRepository
	history      HistoryService
	fileStorage  storage.FileStorage
}

// NewExportService creates a new instance of exportService.
func NewExportService(
	scheduleRepo repository.ScheduleRepository,
	workoutRepo repository.WorkoutRepository,
	history HistoryService,
	fileStorage storage.FileStorage,
) ExportService {
	return &exportService{
		scheduleRepo: scheduleRepo,
		workoutRepo:  workoutRepo,
		history:      history,
		fileStorage:  fileStorage,
	}
}

func (s *exportService) ExportSchedule(ctx context.Context, ownerID primitive.ObjectID, from, to time.Time) (string, error) {
	if ownerID == primitive.NilObjectID {
		return "", errors.New("owner ID is required")
	}

	entries, err := s.scheduleRepo.GetByOwnerAndRange(ctx, ownerID, from, to)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	changes, err := s.history.RecentChanges(ctx, ownerID, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	doc := s.renderMarkdown(ctx, entries, changes, from, to)

	objectKey := fmt.Sprintf("exports/%s/%s.md", ownerID.Hex(), uuid.NewString())
	if err := s.fileStorage.UploadObject(ctx, objectKey, "text/markdown", []byte(doc)); err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}

	url, err := s.fileStorage.GeneratePresignedDownloadURL(ctx, objectKey, exportURLExpiry)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrStorageFailure, err)
	}
	return url, nil
}

// renderMarkdown lays out one line per scheduled workout plus a recent
// changes section at the bottom.
func (s *exportService) renderMarkdown(ctx context.Context, entries []domain.ScheduleEntry, changes []domain.ChangeRecord, from, to time.Time) string {
	var b strings.Builder
	now := time.Now().UTC()

	fmt.Fprintf(&b, "# Workout Schedule\n\n")
	fmt.Fprintf(&b, "%s to %s\n\n", from.Format("Jan 2, 2006"), to.Format("Jan 2, 2006"))

	if len(entries) == 0 {
		b.WriteString("_No workouts scheduled._\n")
	}
	for i := range entries {
		entry := &entries[i]
		name := s.workoutName(ctx, entry.WorkoutID)
		fmt.Fprintf(&b, "- **%s**: %s", entry.ScheduledDate.Format("Mon Jan 2"), name)
		switch {
		case entry.Completed:
			b.WriteString(" ✓ completed")
		case entry.Skipped:
			b.WriteString(" (skipped")
			if entry.SkipReason != "" {
				fmt.Fprintf(&b, ": %s", entry.SkipReason)
			}
			b.WriteString(")")
		}
		if entry.IsDeload {
			b.WriteString(" [deload]")
		}
		b.WriteString("\n")
	}

	if len(changes) > 0 {
		b.WriteString("\n## Recent Changes\n\n")
		for i := range changes {
			fmt.Fprintf(&b, "- %s\n", s.history.FormatChange(&changes[i], now))
		}
	}
	return b.String()
}

func (s *exportService) workoutName(ctx context.Context, workoutID primitive.ObjectID) string {
	workout, err := s.workoutRepo.GetByID(ctx, workoutID)
	if err != nil || workout.Name == "" {
		return "workout"
	}
	return workout.Name
}
