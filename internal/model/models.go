package model

import (
	"time"
)

// Base model fields shared by all models
type Base struct {
	UUID      string    `json:"uuid" gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Event represents a schedulable activity published by an administrator
type Event struct {
	Base
	Title          string          `json:"title" gorm:"column:title;not null"`
	Description    string          `json:"description"`
	Date           time.Time       `json:"date"`
	Location       string          `json:"location"`
	CreatorID      string          `json:"creator_id" gorm:"column:creator_id;type:uuid;index"`
	Participations []Participation `json:"participations,omitempty" gorm:"foreignKey:EventID"`
}

// ParticipationStatus defines the status of a participation
type ParticipationStatus uint

const (
	// PendingParticipationStatus represents a participation awaiting review
	PendingParticipationStatus ParticipationStatus = iota
	// ApprovedParticipationStatus represents an approved participation
	ApprovedParticipationStatus
	// RejectedParticipationStatus represents a rejected participation
	RejectedParticipationStatus
)

// Participation represents one subject's relationship to one event.
// The composite unique index enforces at most one record per
// (event, subject) pair regardless of concurrent registrations.
type Participation struct {
	Base
	EventID     string              `json:"event_id" gorm:"column:event_id;type:uuid;uniqueIndex:idx_participations_event_subject"`
	Event       *Event              `json:"event,omitempty" gorm:"foreignKey:EventID"`
	SubjectID   string              `json:"subject_id" gorm:"column:subject_id;type:uuid;uniqueIndex:idx_participations_event_subject"`
	SubjectName string              `json:"subject_name"`
	Status      ParticipationStatus `json:"status"`
}

// NotificationType defines the type of lifecycle notification
type NotificationType string

const (
	// EventCreatedNotification is emitted after an event is durably created
	EventCreatedNotification NotificationType = "event_created"
	// ParticipantApprovedNotification is emitted after an approval
	ParticipantApprovedNotification NotificationType = "participant_approved"
	// ParticipantRejectedNotification is emitted after a rejection
	ParticipantRejectedNotification NotificationType = "participant_rejected"
)

// Notification is an append-only record of a lifecycle event. Only the
// Read flag is ever mutated, and only from false to true.
type Notification struct {
	Base
	Message string           `json:"message" gorm:"not null"`
	Type    NotificationType `json:"type" gorm:"column:type;index"`
	Data    []byte           `json:"data" gorm:"type:jsonb"`
	Read    bool             `json:"read" gorm:"default:false;index"`
}

// NotificationData is the structured payload carried by a notification
type NotificationData struct {
	EventID   string `json:"event_id"`
	SubjectID string `json:"subject_id,omitempty"`
}

// Subject is an identity record from the external subject registry.
// This service only reads it; writes belong to the registry's owner.
type Subject struct {
	Base
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// StatusFromString converts a string to a ParticipationStatus
func StatusFromString(status string) (ParticipationStatus, bool) {
	switch status {
	case "Pending":
		return PendingParticipationStatus, true
	case "Approved":
		return ApprovedParticipationStatus, true
	case "Rejected":
		return RejectedParticipationStatus, true
	default:
		return PendingParticipationStatus, false
	}
}

// String returns a string representation of ParticipationStatus
func (s ParticipationStatus) String() string {
	statusMap := map[ParticipationStatus]string{
		PendingParticipationStatus:  "Pending",
		ApprovedParticipationStatus: "Approved",
		RejectedParticipationStatus: "Rejected",
	}

	if str, ok := statusMap[s]; ok {
		return str
	}
	return "unknown"
}

// Terminal reports whether no further transition is defined for the status
func (s ParticipationStatus) Terminal() bool {
	return s == ApprovedParticipationStatus || s == RejectedParticipationStatus
}
