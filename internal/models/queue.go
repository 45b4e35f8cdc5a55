package models

import "encoding/json"

type OperationType string

const (
	OpCreateOrder    OperationType = "CREATE_ORDER"
	OpUpdateOrder    OperationType = "UPDATE_ORDER"
	OpDeleteOrder    OperationType = "DELETE_ORDER"
	OpToggleComplete OperationType = "TOGGLE_COMPLETE"
	OpUpdateNote     OperationType = "UPDATE_NOTE"
)

// QueuedOperation is one pending mutation staged on disk while the remote
// store is unreachable. Payload stays raw JSON so deduplication can merge
// successive payloads for the same target key by key (see MergeJSON).
type QueuedOperation struct {
	ID        string          `json:"id"`
	Type      OperationType   `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp int64           `json:"timestamp"`
	Retries   int             `json:"retries"`
}

// TargetID extracts the id of the order the operation applies to. Falls back
// to the operation's own id when the payload carries none.
func (op QueuedOperation) TargetID() string {
	var probe struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(op.Payload, &probe); err == nil && probe.ID != "" {
		return probe.ID.String()
	}
	return op.ID
}

// UpdatePayload is the payload shape of UPDATE_ORDER, TOGGLE_COMPLETE and
// UPDATE_NOTE operations.
type UpdatePayload struct {
	ID        int64                  `json:"id"`
	Updates   map[string]interface{} `json:"updates,omitempty"`
	Completed *bool                  `json:"completed,omitempty"`
	Note      *string                `json:"note,omitempty"`
}

// DeletePayload is the payload shape of DELETE_ORDER operations.
type DeletePayload struct {
	ID int64 `json:"id"`
}

// MergeJSON overlays b's top-level keys onto a, matching how repeated
// CREATE_ORDER payloads for the same order collapse during queue dedup.
func MergeJSON(a, b json.RawMessage) json.RawMessage {
	var base, overlay map[string]json.RawMessage
	if err := json.Unmarshal(a, &base); err != nil {
		return b
	}
	if err := json.Unmarshal(b, &overlay); err != nil {
		return a
	}
	for k, v := range overlay {
		base[k] = v
	}
	merged, err := json.Marshal(base)
	if err != nil {
		return b
	}
	return merged
}
