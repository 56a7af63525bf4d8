package repository

import (
	"context"

	"gorm.io/gorm"

	"example.com/eventhub/internal/database"
	"example.com/eventhub/internal/model"
)

// EventApprovalCount is a popularity row: approved participations per event
type EventApprovalCount struct {
	EventID string `json:"event_id"`
	Title   string `json:"title"`
	Count   int64  `json:"count"`
}

// ParticipationRepository defines the interface for the participation store
type ParticipationRepository interface {
	// Create inserts a participation. Uniqueness per (event, subject) is
	// enforced by the database index, never by a read-then-write check;
	// a losing concurrent insert surfaces ErrDuplicateKey.
	Create(ctx context.Context, participation *model.Participation) error
	FindByID(ctx context.Context, eventID, id string) (*model.Participation, error)
	FindByEventAndSubject(ctx context.Context, eventID, subjectID string) (*model.Participation, error)
	FindByEvent(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error)
	FindByStatusAcrossEvents(ctx context.Context, status model.ParticipationStatus) ([]*model.Participation, error)
	// UpdateStatus overwrites the status unconditionally; the prior-state
	// policy lives in the service layer.
	UpdateStatus(ctx context.Context, eventID, id string, status model.ParticipationStatus) (*model.Participation, error)
	DeleteByEvent(ctx context.Context, eventID string) error
	CountByStatus(ctx context.Context) (map[model.ParticipationStatus]int64, error)
	CountApprovedByEvent(ctx context.Context) ([]EventApprovalCount, error)
}

// participationRepository implements ParticipationRepository
type participationRepository struct {
	db *gorm.DB
}

// NewParticipationRepository creates a new participation repository
func NewParticipationRepository(db *gorm.DB) ParticipationRepository {
	return &participationRepository{db: db}
}

// Create inserts a new participation
func (r *participationRepository) Create(ctx context.Context, participation *model.Participation) error {
	err := r.db.WithContext(ctx).Omit("Event").Create(participation).Error
	if err != nil {
		if database.IsDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return err
	}
	return nil
}

// FindByID finds a participation by ID within an event
func (r *participationRepository) FindByID(ctx context.Context, eventID, id string) (*model.Participation, error) {
	var participation model.Participation
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND uuid = ?", eventID, id).
		First(&participation).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &participation, nil
}

// FindByEventAndSubject finds the participation for a subject in an event
func (r *participationRepository) FindByEventAndSubject(ctx context.Context, eventID, subjectID string) (*model.Participation, error) {
	var participation model.Participation
	err := r.db.WithContext(ctx).
		Where("event_id = ? AND subject_id = ?", eventID, subjectID).
		First(&participation).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &participation, nil
}

// FindByEvent finds participations for an event, ordered by registration
// time, optionally restricted to a status
func (r *participationRepository) FindByEvent(ctx context.Context, eventID string, status *model.ParticipationStatus) ([]*model.Participation, error) {
	var participations []*model.Participation
	query := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at")

	if status != nil {
		query = query.Where("status = ?", *status)
	}

	if err := query.Find(&participations).Error; err != nil {
		return nil, err
	}
	return participations, nil
}

// FindByStatusAcrossEvents finds participations with a status across all
// events, with the owning event preloaded
func (r *participationRepository) FindByStatusAcrossEvents(ctx context.Context, status model.ParticipationStatus) ([]*model.Participation, error) {
	var participations []*model.Participation
	err := r.db.WithContext(ctx).
		Preload("Event").
		Where("status = ?", status).
		Order("created_at").
		Find(&participations).Error
	if err != nil {
		return nil, err
	}
	return participations, nil
}

// UpdateStatus overwrites the status of a participation
func (r *participationRepository) UpdateStatus(ctx context.Context, eventID, id string, status model.ParticipationStatus) (*model.Participation, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Participation{}).
		Where("event_id = ? AND uuid = ?", eventID, id).
		Update("status", status)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, eventID, id)
}

// DeleteByEvent removes all participations of an event. Participations do
// not outlive their event; this backs the event deletion cascade only.
func (r *participationRepository) DeleteByEvent(ctx context.Context, eventID string) error {
	return r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Delete(&model.Participation{}).Error
}

// CountByStatus counts participations grouped by status across all events
func (r *participationRepository) CountByStatus(ctx context.Context) (map[model.ParticipationStatus]int64, error) {
	var rows []struct {
		Status model.ParticipationStatus
		Count  int64
	}
	err := r.db.WithContext(ctx).
		Model(&model.Participation{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[model.ParticipationStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

// CountApprovedByEvent counts approved participations per event, ordered
// by count descending with event UUID as a deterministic tie-breaker
func (r *participationRepository) CountApprovedByEvent(ctx context.Context) ([]EventApprovalCount, error) {
	var rows []EventApprovalCount
	err := r.db.WithContext(ctx).
		Model(&model.Participation{}).
		Select("participations.event_id AS event_id, events.title AS title, COUNT(*) AS count").
		Joins("JOIN events ON events.uuid = participations.event_id").
		Where("participations.status = ?", model.ApprovedParticipationStatus).
		Group("participations.event_id, events.title").
		Order("count DESC, event_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
