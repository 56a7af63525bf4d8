package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"example.com/eventhub/internal/cache"
	"example.com/eventhub/internal/messaging"
	"example.com/eventhub/internal/metrics"
	"example.com/eventhub/internal/model"
	"example.com/eventhub/internal/repository"
)

// CreateEventRequest defines the request to create an event
type CreateEventRequest struct {
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Location    string    `json:"location" binding:"required"`
	CreatorID   string    `json:"-"`
}

// UpdateEventRequest defines the request to update an event's simple fields
type UpdateEventRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
}

// LifecycleService drives the participation lifecycle: event creation,
// registration, and approve/reject transitions, each fanning out into
// the notification sink.
type LifecycleService interface {
	CreateEvent(ctx context.Context, req *CreateEventRequest) (*model.Event, error)
	GetEvent(ctx context.Context, id string) (*model.Event, error)
	ListEvents(ctx context.Context) ([]*model.Event, error)
	UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	Register(ctx context.Context, eventID, subjectID string) (*model.Participation, error)
	SetStatus(ctx context.Context, eventID, participationID string, status model.ParticipationStatus) (*model.Participation, error)
	ListParticipants(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error)
	ListApprovedAcrossEvents(ctx context.Context) ([]*model.Participation, error)
}

// LifecycleConfig holds the engine's policy knobs
type LifecycleConfig struct {
	// StrictTransitions rejects writes on terminal records instead of
	// overwriting them unconditionally
	StrictTransitions bool
	// QueryTimeout bounds every store round-trip
	QueryTimeout time.Duration
	// NotifyQueue is the service bus queue for best-effort fan-out
	NotifyQueue string
}

// lifecycleService implements LifecycleService
type lifecycleService struct {
	events        repository.EventRepository
	participation repository.ParticipationRepository
	notifications repository.NotificationRepository
	subjects      repository.SubjectRepository
	cache         cache.CacheClient
	publisher     messaging.Publisher
	log           *logrus.Logger
	cfg           LifecycleConfig
}

// NewLifecycleService creates a new lifecycle service
func NewLifecycleService(
	events repository.EventRepository,
	participation repository.ParticipationRepository,
	notifications repository.NotificationRepository,
	subjects repository.SubjectRepository,
	cacheClient cache.CacheClient,
	publisher messaging.Publisher,
	log *logrus.Logger,
	cfg LifecycleConfig,
) LifecycleService {
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 5 * time.Second
	}
	return &lifecycleService{
		events:        events,
		participation: participation,
		notifications: notifications,
		subjects:      subjects,
		cache:         cacheClient,
		publisher:     publisher,
		log:           log,
		cfg:           cfg,
	}
}

// opCtx bounds a store round-trip so no call can hang indefinitely
func (s *lifecycleService) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.cfg.QueryTimeout)
}

// CreateEvent durably creates an event, then emits exactly one creation
// notification
func (s *lifecycleService) CreateEvent(ctx context.Context, req *CreateEventRequest) (*model.Event, error) {
	startTime := time.Now()
	collector := metrics.GetMetricsCollector()

	event := &model.Event{
		Base:        model.Base{UUID: uuid.New().String()},
		Title:       req.Title,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		CreatorID:   req.CreatorID,
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.events.Create(opCtx, event); err != nil {
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, fmt.Errorf("create event: %w", err)
	}

	creator := s.displayName(ctx, req.CreatorID)
	message := fmt.Sprintf("Event %q created by %s", event.Title, creator)
	if err := s.emitNotification(ctx, message, model.EventCreatedNotification, model.NotificationData{
		EventID: event.UUID,
	}); err != nil {
		// The event is durable; the notification fault is propagated, not
		// rolled back into the write.
		return nil, err
	}

	collector.RecordLifecycle(metrics.LifecycleEventCreate, time.Since(startTime))
	return event, nil
}

// GetEvent gets an event with its participations
func (s *lifecycleService) GetEvent(ctx context.Context, id string) (*model.Event, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.events.FindByID(opCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListEvents lists all events
func (s *lifecycleService) ListEvents(ctx context.Context) ([]*model.Event, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	return s.events.FindAll(opCtx)
}

// UpdateEvent updates an event's simple fields
func (s *lifecycleService) UpdateEvent(ctx context.Context, id string, req *UpdateEventRequest) (*model.Event, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.events.FindByID(opCtx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	if req.Title != "" {
		event.Title = req.Title
	}
	if req.Description != "" {
		event.Description = req.Description
	}
	if !req.Date.IsZero() {
		event.Date = req.Date
	}
	if req.Location != "" {
		event.Location = req.Location
	}

	if err := s.events.Update(opCtx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	return event, nil
}

// DeleteEvent removes an event and its participations. Participations are
// owned by the event and do not outlive it.
func (s *lifecycleService) DeleteEvent(ctx context.Context, id string) error {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.events.FindByID(opCtx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrEventNotFound
		}
		return err
	}

	if err := s.participation.DeleteByEvent(opCtx, id); err != nil {
		return fmt.Errorf("delete participations: %w", err)
	}
	if err := s.events.Delete(opCtx, id); err != nil {
		return fmt.Errorf("delete event: %w", err)
	}
	return nil
}

// Register creates a Pending participation for a subject in an event.
// Duplicate registration surfaces ErrAlreadyRegistered: exactly one of
// any number of concurrent attempts for the same (event, subject) pair
// wins, decided by the store's uniqueness constraint.
func (s *lifecycleService) Register(ctx context.Context, eventID, subjectID string) (*model.Participation, error) {
	startTime := time.Now()
	collector := metrics.GetMetricsCollector()

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.events.FindByID(opCtx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, err
	}

	subject, err := s.resolveSubject(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	participation := &model.Participation{
		Base:        model.Base{UUID: uuid.New().String()},
		EventID:     eventID,
		SubjectID:   subjectID,
		SubjectName: subject.Username,
		Status:      model.PendingParticipationStatus,
	}

	if err := s.participation.Create(opCtx, participation); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			collector.RecordConflict()
			return nil, ErrAlreadyRegistered
		}
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, fmt.Errorf("create participation: %w", err)
	}

	collector.RecordLifecycle(metrics.LifecycleRegister, time.Since(startTime))
	return participation, nil
}

// SetStatus applies an approve or reject transition and emits exactly one
// notification describing it. The status write is authoritative: a failed
// notification append is propagated but never rolls the write back, and
// the bus fan-out is best-effort.
func (s *lifecycleService) SetStatus(ctx context.Context, eventID, participationID string, status model.ParticipationStatus) (*model.Participation, error) {
	startTime := time.Now()
	collector := metrics.GetMetricsCollector()

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	event, err := s.events.FindByID(opCtx, eventID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, err
	}

	participation, err := s.participation.FindByID(opCtx, eventID, participationID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrParticipantNotFound
		}
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, err
	}

	if s.cfg.StrictTransitions && participation.Status.Terminal() {
		return nil, ErrInvalidTransition
	}

	participation, err = s.participation.UpdateStatus(opCtx, eventID, participationID, status)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrParticipantNotFound
		}
		collector.RecordError(metrics.ErrorTypeDatabase)
		return nil, fmt.Errorf("update participation status: %w", err)
	}

	// Snapshot the display name at emission time; later registry changes
	// do not rewrite historical notifications.
	name := s.displayName(ctx, participation.SubjectID)

	notificationType := model.ParticipantApprovedNotification
	operation := metrics.LifecycleApprove
	if status == model.RejectedParticipationStatus {
		notificationType = model.ParticipantRejectedNotification
		operation = metrics.LifecycleReject
	}

	message := fmt.Sprintf("%s %s for event %q", name, statusVerb(status), event.Title)
	if err := s.emitNotification(ctx, message, notificationType, model.NotificationData{
		EventID:   event.UUID,
		SubjectID: participation.SubjectID,
	}); err != nil {
		return nil, err
	}

	collector.RecordLifecycle(operation, time.Since(startTime))
	return participation, nil
}

// ListParticipants lists participants of an event ordered by registration
// time, optionally filtered by status
func (s *lifecycleService) ListParticipants(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if _, err := s.events.FindByID(opCtx, eventID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}

	return s.participation.FindByEvent(opCtx, eventID, status)
}

// ListApprovedAcrossEvents returns the approved roster across all events
func (s *lifecycleService) ListApprovedAcrossEvents(ctx context.Context) ([]*model.Participation, error) {
	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	return s.participation.FindByStatusAcrossEvents(opCtx, model.ApprovedParticipationStatus)
}

// emitNotification appends a notification to the sink and fans it out to
// the message bus asynchronously
func (s *lifecycleService) emitNotification(ctx context.Context, message string, notificationType model.NotificationType, data model.NotificationData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	notification := &model.Notification{
		Base:    model.Base{UUID: uuid.New().String()},
		Message: message,
		Type:    notificationType,
		Data:    payload,
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	if err := s.notifications.Append(opCtx, notification); err != nil {
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeDatabase)
		return fmt.Errorf("append notification: %w", err)
	}
	metrics.GetMetricsCollector().RecordNotification()

	// Advisory fan-out: retried, never blocks the caller, never fails the
	// lifecycle operation.
	go func() {
		pubCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		err := messaging.RetryWithBackoff(pubCtx, func() error {
			return s.publisher.PublishMessage(pubCtx, notification, s.cfg.NotifyQueue)
		}, 3)
		if err != nil {
			s.log.WithError(err).Error("Failed to publish notification to message bus")
		}
	}()

	return nil
}

// resolveSubject resolves a subject from the registry, cache-aside
func (s *lifecycleService) resolveSubject(ctx context.Context, subjectID string) (*model.Subject, error) {
	subject, err := s.cache.GetSubject(ctx, subjectID)
	if err == nil {
		return subject, nil
	}
	if err != redis.Nil {
		s.log.WithError(err).Warn("Failed to get subject from cache")
	}

	opCtx, cancel := s.opCtx(ctx)
	defer cancel()

	subject, err = s.subjects.FindByID(opCtx, subjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSubjectNotFound
		}
		metrics.GetMetricsCollector().RecordError(metrics.ErrorTypeDatabase)
		return nil, err
	}

	if err := s.cache.SetSubject(ctx, subject); err != nil {
		s.log.WithError(err).Warn("Failed to cache subject")
	}

	return subject, nil
}

// displayName resolves a subject's name for notification text, falling
// back to the raw id when the registry cannot answer
func (s *lifecycleService) displayName(ctx context.Context, subjectID string) string {
	subject, err := s.resolveSubject(ctx, subjectID)
	if err != nil {
		return subjectID
	}
	if subject.Username != "" {
		return subject.Username
	}
	if subject.Email != "" {
		return subject.Email
	}
	return subjectID
}

// statusVerb renders a status as the verb used in notification text
func statusVerb(status model.ParticipationStatus) string {
	if status == model.RejectedParticipationStatus {
		return "rejected"
	}
	return "approved"
}
