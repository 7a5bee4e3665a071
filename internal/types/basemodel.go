package types

import "time"

// Status represents the lifecycle state of a persisted row, independent of
// any domain-specific status field the entity itself carries.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusDeleted  Status = "deleted"
)

// BaseModel carries the bookkeeping fields every persisted entity has.
type BaseModel struct {
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewBaseModel returns a BaseModel stamped with the current time.
func NewBaseModel(now time.Time) BaseModel {
	return BaseModel{
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
