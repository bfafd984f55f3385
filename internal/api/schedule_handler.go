package api

import (
	"alcyxob/fitness-scheduler/internal/domain"
	"alcyxob/fitness-scheduler/internal/service"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Date format accepted in query params and request bodies.
const dateLayout = "2006-01-02"

// ScheduleHandler holds the schedule-facing service dependencies.
type ScheduleHandler struct {
	scheduleService service.ScheduleService
	undoService     service.UndoService
	historyService  service.HistoryService
	exportService   service.ExportService
}

// NewScheduleHandler creates a new ScheduleHandler.
func NewScheduleHandler(
	scheduleService service.ScheduleService,
	undoService service.UndoService,
	historyService service.HistoryService,
	exportService service.ExportService,
) *ScheduleHandler {
	return &ScheduleHandler{
		scheduleService: scheduleService,
		undoService:     undoService,
		historyService:  historyService,
		exportService:   exportService,
	}
}

// --- Request/Response Structs ---

type MoveRequest struct {
	NewDate string `json:"newDate" binding:"required"`
}

type SkipRequest struct {
	Reason string `json:"reason"`
}

type SwapRequest struct {
	ScheduleIDA string `json:"scheduleIdA" binding:"required"`
	ScheduleIDB string `json:"scheduleIdB" binding:"required"`
}

type ScheduleEntryResponse struct {
	ID            string     `json:"id"`
	WorkoutID     string     `json:"workoutId"`
	ScheduledDate string     `json:"scheduledDate"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completedAt,omitempty"`
	Skipped       bool       `json:"skipped"`
	SkipReason    string     `json:"skipReason,omitempty"`
	SkippedAt     *time.Time `json:"skippedAt,omitempty"`
	IsDeload      bool       `json:"isDeload,omitempty"`
}

type ChangeRecordResponse struct {
	ID                  string    `json:"id"`
	ChangeType          string    `json:"changeType"`
	Description         string    `json:"description"`
	Display             string    `json:"display"`
	AffectedScheduleIDs []string  `json:"affectedScheduleIds"`
	CreatedAt           time.Time `json:"createdAt"`
	IsUndone            bool      `json:"isUndone"`
}

type ExportResponse struct {
	URL string `json:"url"`
}

// --- Handler Methods ---

// GetSchedule returns the caller's entries between ?from= and ?to=.
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	from, ok := h.dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.dateQuery(c, "to")
	if !ok {
		return
	}

	entries, err := h.scheduleService.GetRange(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapEntriesToResponse(entries))
}

// GetToday returns today's pending workout, or 204 when there is none.
func (h *ScheduleHandler) GetToday(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	entry, err := h.scheduleService.GetToday(c.Request.Context(), ownerID, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if entry == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, mapEntryToResponse(entry))
}

// GetUpcoming returns the next ?days= of schedule (default 7).
func (h *ScheduleHandler) GetUpcoming(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))

	entries, err := h.scheduleService.GetUpcoming(c.Request.Context(), ownerID, time.Now().UTC(), days)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, mapEntriesToResponse(entries))
}

// MoveWorkout reschedules one entry to a new date.
func (h *ScheduleHandler) MoveWorkout(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	scheduleID, ok := h.pathObjectID(c, "scheduleId")
	if !ok {
		return
	}

	var req MoveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	newDate, err := time.Parse(dateLayout, req.NewDate)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "newDate must be formatted as YYYY-MM-DD")
		return
	}

	record, err := h.scheduleService.Move(c.Request.Context(), ownerID, scheduleID, newDate, time.Now().UTC())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.mapChangeToResponse(record))
}

// SkipWorkout marks one entry as skipped. Repeating the call is a no-op.
func (h *ScheduleHandler) SkipWorkout(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	scheduleID, ok := h.pathObjectID(c, "scheduleId")
	if !ok {
		return
	}

	// The body is optional; skipping without a reason is allowed.
	var req SkipRequest
	_ = c.ShouldBindJSON(&req)

	record, err := h.scheduleService.Skip(c.Request.Context(), ownerID, scheduleID, req.Reason)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if record == nil {
		// Already skipped.
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, h.mapChangeToResponse(record))
}

// SwapWorkouts exchanges the dates of two entries.
func (h *ScheduleHandler) SwapWorkouts(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	var req SwapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("Validation error: %v", err))
		return
	}
	scheduleIDA, err := primitive.ObjectIDFromHex(req.ScheduleIDA)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "scheduleIdA is not a valid ID")
		return
	}
	scheduleIDB, err := primitive.ObjectIDFromHex(req.ScheduleIDB)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "scheduleIdB is not a valid ID")
		return
	}

	record, err := h.scheduleService.Swap(c.Request.Context(), ownerID, scheduleIDA, scheduleIDB)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.mapChangeToResponse(record))
}

// UndoLastChange reverses the caller's most recent change.
func (h *ScheduleHandler) UndoLastChange(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}

	record, err := h.undoService.UndoLast(c.Request.Context(), ownerID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.mapChangeToResponse(record))
}

// GetHistory lists the caller's recent changes, newest first.
func (h *ScheduleHandler) GetHistory(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "0"), 10, 64)

	records, err := h.historyService.RecentChanges(c.Request.Context(), ownerID, limit)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	out := make([]ChangeRecordResponse, len(records))
	for i := range records {
		out[i] = h.mapChangeToResponse(&records[i])
	}
	c.JSON(http.StatusOK, out)
}

// ExportSchedule renders a date range as markdown and returns a download URL.
func (h *ScheduleHandler) ExportSchedule(c *gin.Context) {
	ownerID, ok := h.ownerID(c)
	if !ok {
		return
	}
	from, ok := h.dateQuery(c, "from")
	if !ok {
		return
	}
	to, ok := h.dateQuery(c, "to")
	if !ok {
		return
	}

	url, err := h.exportService.ExportSchedule(c.Request.Context(), ownerID, from, to)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, ExportResponse{URL: url})
}

// --- Helpers ---

func (h *ScheduleHandler) ownerID(c *gin.Context) (primitive.ObjectID, bool) {
	idStr, err := getUserIDFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
		return primitive.NilObjectID, false
	}
	ownerID, err := primitive.ObjectIDFromHex(idStr)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, "Invalid user ID in token")
		return primitive.NilObjectID, false
	}
	return ownerID, true
}

func (h *ScheduleHandler) pathObjectID(c *gin.Context, param string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(param))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("%s is not a valid ID", param))
		return primitive.NilObjectID, false
	}
	return id, true
}

func (h *ScheduleHandler) dateQuery(c *gin.Context, param string) (time.Time, bool) {
	raw := c.Query(param)
	if raw == "" {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("query parameter '%s' is required (YYYY-MM-DD)", param))
		return time.Time{}, false
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		abortWithError(c, http.StatusBadRequest, fmt.Sprintf("query parameter '%s' must be formatted as YYYY-MM-DD", param))
		return time.Time{}, false
	}
	return t, true
}

// handleServiceError maps service sentinels onto HTTP statuses.
func (h *ScheduleHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrScheduleNotFound), errors.Is(err, service.ErrNoHistory):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrScheduleAccessDenied):
		abortWithError(c, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrScheduleCompleted), errors.Is(err, service.ErrUndoConflict):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, service.ErrSameDate), errors.Is(err, service.ErrPastDate):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrUndoExpired):
		abortWithError(c, http.StatusGone, err.Error())
	default:
		abortWithError(c, http.StatusInternalServerError, "An unexpected error occurred")
	}
}

func mapEntryToResponse(entry *domain.ScheduleEntry) ScheduleEntryResponse {
	return ScheduleEntryResponse{
		ID:            entry.ID.Hex(),
		WorkoutID:     entry.WorkoutID.Hex(),
		ScheduledDate: entry.ScheduledDate.Format(dateLayout),
		Completed:     entry.Completed,
		CompletedAt:   entry.CompletedAt,
		Skipped:       entry.Skipped,
		SkipReason:    entry.SkipReason,
		SkippedAt:     entry.SkippedAt,
		IsDeload:      entry.IsDeload,
	}
}

func mapEntriesToResponse(entries []domain.ScheduleEntry) []ScheduleEntryResponse {
	out := make([]ScheduleEntryResponse, len(entries))
	for i := range entries {
		out[i] = mapEntryToResponse(&entries[i])
	}
	return out
}

func (h *ScheduleHandler) mapChangeToResponse(record *domain.ChangeRecord) ChangeRecordResponse {
	affected := make([]string, len(record.AffectedScheduleIDs))
	for i, id := range record.AffectedScheduleIDs {
		affected[i] = id.Hex()
	}
	return ChangeRecordResponse{
		ID:                  record.ID.Hex(),
		ChangeType:          string(record.ChangeType),
		Description:         record.Description,
		Display:             h.historyService.FormatChange(record, time.Now().UTC()),
		AffectedScheduleIDs: affected,
		CreatedAt:           record.CreatedAt,
		IsUndone:            record.IsUndone,
	}
}
