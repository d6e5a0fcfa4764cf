package application

import (
	"time"

	"github.com/google/uuid"
)

type ChangeKind string

const (
	ChangeCreated       ChangeKind = "created"
	ChangeUpdated       ChangeKind = "updated"
	ChangeStatusChanged ChangeKind = "status_changed"
	ChangeDeleted       ChangeKind = "deleted"
)

// Change describes a mutation the record store has acknowledged.
type Change struct {
	Kind   ChangeKind `json:"kind"`
	Owner  uuid.UUID  `json:"owner"`
	ID     uuid.UUID  `json:"id"`
	Status Status     `json:"status,omitempty"`
	At     time.Time  `json:"at"`
}
