// Package audit defines the regulatory audit trail contract.
// Excise mutations are recorded with before/after snapshots; the postgres
// implementation compresses large snapshots.
package audit

import (
	"context"
	"encoding/json"

	"brauer/internal/core/id"
)

// Action is the type of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReverse Action = "reverse"
	ActionSubmit  Action = "submit"
	ActionRevert  Action = "revert"
)

// Entry is one audit record.
type Entry struct {
	EntityType string
	EntityID   id.ID
	Action     Action
	Changes    json.RawMessage
}

// Recorder persists audit entries. Recording is best-effort inside the
// caller's transaction; a nil Recorder disables auditing.
type Recorder interface {
	Record(ctx context.Context, entry Entry) error
}

// Snapshot marshals an entity into an audit changes payload.
func Snapshot(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
