package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

// AuditKind names a state change recorded in the audit trail.
type AuditKind string

const (
	AuditEntrySubmitted AuditKind = "entry_submitted"
	AuditEntryEdited    AuditKind = "entry_edited"
	AuditEntryDeleted   AuditKind = "entry_deleted"
	AuditRateChanged    AuditKind = "rate_changed"
	AuditRateCleared    AuditKind = "rate_cleared"
	AuditUserAdded      AuditKind = "user_added"
	AuditCustomerAdded  AuditKind = "customer_added"
)

// EntityKind is the table a rate or audit event refers to.
type EntityKind string

const (
	EntityUser     EntityKind = "user"
	EntityCustomer EntityKind = "customer"
	EntityEntry    EntityKind = "entry"
)

// AuditEvent records who changed what.
type AuditEvent struct {
	ID         string         `json:"id"`
	Kind       AuditKind      `json:"kind"`
	ActorID    int64          `json:"actor_id"`
	ActorRole  Role           `json:"actor_role"`
	EntityKind EntityKind     `json:"entity_kind"`
	EntityID   int64          `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	At         time.Time      `json:"at"`
}

// NewAuditEvent stamps an event with a fresh id and the current time.
func NewAuditEvent(kind AuditKind, actor Actor, entity EntityKind, entityID int64, details map[string]any) AuditEvent {
	return AuditEvent{
		ID:         uuid.NewString(),
		Kind:       kind,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		EntityKind: entity,
		EntityID:   entityID,
		Details:    details,
		At:         time.Now().UTC(),
	}
}

// EntityKey identifies the audited entity, e.g. "entry:42".
func (e AuditEvent) EntityKey() string {
	return string(e.EntityKind) + ":" + strconv.FormatInt(e.EntityID, 10)
}
