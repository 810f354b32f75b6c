// Package types provides common types used across Factor.
package types

import "time"

// Entity is the base type for all Factor entities with timestamps and a
// revision counter. Embed this in domain types to get automatic timestamp
// handling and optimistic-concurrency support.
//
// Version is the fencing token for conditional writes: stores accept an
// update only when the stored version equals the entity's loaded Version,
// and bump it by one on success. A mismatch means another writer got there
// first and surfaces as factor.ErrVersionConflict.
type Entity struct {
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int64     `json:"version"`
}

// NewEntity creates a new Entity with current timestamps at version 1.
func NewEntity() Entity {
	now := time.Now().UTC()
	return Entity{
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
}

// Touch updates the UpdatedAt timestamp to now. The Version counter is
// owned by the store and only advances on a successful conditional write.
func (e *Entity) Touch() {
	e.UpdatedAt = time.Now().UTC()
}

// Age returns how long ago the entity was created.
func (e Entity) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// LastModified returns how long ago the entity was last updated.
func (e Entity) LastModified() time.Duration {
	return time.Since(e.UpdatedAt)
}
