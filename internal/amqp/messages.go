package amqp

import (
	"encoding/json"
	"time"
)

// Event names carried in sync messages.
const (
	EventUpserted = "upserted"
	EventDeleted  = "deleted"
)

// SyncMessage tells the worker that a transaction changed. It carries
// only the ID and version; the worker fetches the full record from the
// database so the queue never holds stale payloads.
type SyncMessage struct {
	TransactionID string    `json:"transactionId"`
	AccountID     string    `json:"accountId"`
	Event         string    `json:"event"`
	Version       int64     `json:"version"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewUpsertMessage builds a sync message for a created or updated record.
func NewUpsertMessage(transactionID, accountID string, version int64) *SyncMessage {
	return &SyncMessage{
		TransactionID: transactionID,
		AccountID:     accountID,
		Event:         EventUpserted,
		Version:       version,
		Timestamp:     time.Now(),
	}
}

// NewDeleteMessage builds a sync message for a removed record.
func NewDeleteMessage(transactionID, accountID string) *SyncMessage {
	return &SyncMessage{
		TransactionID: transactionID,
		AccountID:     accountID,
		Event:         EventDeleted,
		Timestamp:     time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *SyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// SyncMessageFromJSON parses a message from JSON bytes.
func SyncMessageFromJSON(data []byte) (*SyncMessage, error) {
	var msg SyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
