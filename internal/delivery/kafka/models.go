package kafka

import "time"

type GrantEventPayload struct {
	SchemaVersion int        `json:"schema_version"`
	EventID       string     `json:"event_id"`
	OccurredAt    time.Time  `json:"occurred_at"`
	GrantID       int64      `json:"grant_id"`
	DefinitionID  int64      `json:"definition_id"`
	UserID        string     `json:"user_id"`
	Code          string     `json:"code"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
}

type DefinitionEventPayload struct {
	SchemaVersion  int        `json:"schema_version"`
	EventID        string     `json:"event_id"`
	OccurredAt     time.Time  `json:"occurred_at"`
	DefinitionUUID string     `json:"definition_uuid"`
	StoreID        string     `json:"store_id"`
	ExpiryDate     *time.Time `json:"expiry_date,omitempty"`
}
