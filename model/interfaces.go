package model

import (
	"context"
	"errors"
)

// ErrSubjectNotFound is returned by an Enforcer when the user a reversal
// targets cannot be resolved in the guild.
var ErrSubjectNotFound = errors.New("subject not found")

// Enforcer applies and reverses punishments on the chat platform.
// Unban and Unmute must tolerate being called for a subject whose
// punishment has already been lifted.
type Enforcer interface {
	Unban(ctx context.Context, guildID, userID string) error
	Unmute(ctx context.Context, guildID, userID string) error
}

// EventKind tells notification consumers why a case was emitted.
type EventKind string

const (
	EventRecorded EventKind = "recorded"
	EventExpired  EventKind = "expired"
)

// CaseEvent is what the notification port receives.
type CaseEvent struct {
	Kind EventKind `json:"kind"`
	Case Case      `json:"case"`
}

// Notifier delivers case events to whoever watches them. Delivery is
// best-effort: callers never fail a case write because Notify failed.
type Notifier interface {
	Notify(ctx context.Context, event CaseEvent) error
}
