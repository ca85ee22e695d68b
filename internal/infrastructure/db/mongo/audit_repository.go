package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sirpyerre/timesheet-ledger/internal/core/domain"
	"github.com/sirpyerre/timesheet-ledger/internal/core/ports"
)

const auditCollection = "audit_events"

// AuditRepository implements ports.AuditRepository using MongoDB.
type AuditRepository struct {
	col *mongo.Collection
}

var _ ports.AuditRepository = (*AuditRepository)(nil)

// NewAuditRepository creates a new AuditRepository.
func NewAuditRepository(db *mongo.Database) *AuditRepository {
	return &AuditRepository{col: db.Collection(auditCollection)}
}

type auditDocument struct {
	ID         string         `bson:"_id"`
	Kind       string         `bson:"kind"`
	ActorID    int64          `bson:"actor_id"`
	ActorRole  string         `bson:"actor_role"`
	EntityKind string         `bson:"entity_kind"`
	EntityID   int64          `bson:"entity_id"`
	Details    map[string]any `bson:"details,omitempty"`
	At         time.Time      `bson:"at"`
	StoredAt   time.Time      `bson:"stored_at"`
}

// InsertEvent persists an audit event. Re-inserting the same event id is a no-op
// so retried deliveries do not duplicate the trail.
func (r *AuditRepository) InsertEvent(ctx context.Context, ev domain.AuditEvent) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	doc := auditDocument{
		ID:         ev.ID,
		Kind:       string(ev.Kind),
		ActorID:    ev.ActorID,
		ActorRole:  string(ev.ActorRole),
		EntityKind: string(ev.EntityKind),
		EntityID:   ev.EntityID,
		Details:    ev.Details,
		At:         ev.At.UTC(),
		StoredAt:   time.Now().UTC(),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// ListByEntity returns the trail of one entity, oldest first.
func (r *AuditRepository) ListByEntity(ctx context.Context, kind domain.EntityKind, id int64) ([]domain.AuditEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	cur, err := r.col.Find(ctx,
		bson.M{"entity_kind": string(kind), "entity_id": id},
		options.Find().SetSort(bson.D{{Key: "at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find audit events: %w", err)
	}
	defer cur.Close(ctx)

	var docs []auditDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode audit events: %w", err)
	}
	out := make([]domain.AuditEvent, 0, len(docs))
	for _, d := range docs {
		out = append(out, domain.AuditEvent{
			ID:         d.ID,
			Kind:       domain.AuditKind(d.Kind),
			ActorID:    d.ActorID,
			ActorRole:  domain.Role(d.ActorRole),
			EntityKind: domain.EntityKind(d.EntityKind),
			EntityID:   d.EntityID,
			Details:    d.Details,
			At:         d.At,
		})
	}
	return out, nil
}

// EnsureIndexes creates the indexes used by entity and actor lookups.
func (r *AuditRepository) EnsureIndexes(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	indexes := []mongo.IndexModel{
		{Keys: bson.D{{Key: "entity_kind", Value: 1}, {Key: "entity_id", Value: 1}, {Key: "at", Value: 1}}},
		{Keys: bson.D{{Key: "actor_id", Value: 1}}},
	}
	_, err := r.col.Indexes().CreateMany(ctx, indexes)
	return err
}
