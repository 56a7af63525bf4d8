package service

import "errors"

// Domain errors surfaced by the lifecycle engine
var (
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrSubjectNotFound     = errors.New("subject not found")
	ErrAlreadyRegistered   = errors.New("already participating in this event")
	ErrInvalidTransition   = errors.New("participation is already in a terminal status")
)
