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

// --- Service Interface ---
type HistoryService interface {
	// RecentChanges returns the owner's change records, newest first.
	// limit <= 0 falls back to the configured default.
	RecentChanges(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]domain.ChangeRecord, error)
	// FormatChange renders one record as a display line, e.g.
	// "Moved Leg Day from Jun 1 to Jun 8 (2 hours ago)".
	FormatChange(record *domain.ChangeRecord, now time.Time) string
}

// --- Service Implementation ---
type historyService struct {
	changeLog    repository.ChangeLogRepository
	defaultLimit int64
}

// NewHistoryService creates a new instance of historyService.
func NewHistoryService(changeLog repository.ChangeLogRepository, defaultLimit int64) HistoryService {
	if defaultLimit <= 0 {
		defaultLimit = 10
	}
	return &historyService{changeLog: changeLog, defaultLimit: defaultLimit}
}

func (s *historyService) RecentChanges(ctx context.Context, ownerID primitive.ObjectID, limit int64) ([]domain.ChangeRecord, error) {
	if ownerID == primitive.NilObjectID {
		return nil, errors.New("owner ID is required")
	}
	if limit <= 0 {
		limit = s.defaultLimit
	}
	return s.changeLog.ListByOwner(ctx, ownerID, limit)
}

func (s *historyService) FormatChange(record *domain.ChangeRecord, now time.Time) string {
	line := fmt.Sprintf("%s (%s)", record.Description, humanizeAge(now.Sub(record.CreatedAt)))
	if record.IsUndone {
		line += " [UNDONE]"
	}
	return line
}

// humanizeAge renders a change's age the way a person would say it.
func humanizeAge(age time.Duration) string {
	if age < 0 {
		age = 0
	}
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		minutes := int(age.Minutes())
		if minutes == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", minutes)
	case age < 24*time.Hour:
		hours := int(age.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case age < 48*time.Hour:
		return "yesterday"
	default:
		return fmt.Sprintf("%d days ago", int(age.Hours()/24))
	}
}
