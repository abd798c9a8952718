package amqp

import (
	"encoding/json"
	"fmt"
	"time"
)

// Ledger sync operations. The worker fetches the current row for upserts;
// deletes only carry the ID.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// LedgerSyncMessage tells the sync worker that a ledger entry changed.
// It carries only the ID, operation and version; the worker reads the
// full entry from the database so stale messages can be skipped.
type LedgerSyncMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

func NewLedgerSyncMessage(id int64, op string, version int64) *LedgerSyncMessage {
	return &LedgerSyncMessage{
		ID:        id,
		Op:        op,
		Version:   version,
		Timestamp: time.Now(),
	}
}

func (m *LedgerSyncMessage) Validate() error {
	if m.ID <= 0 {
		return fmt.Errorf("invalid entry id %d", m.ID)
	}
	if m.Op != OpUpsert && m.Op != OpDelete {
		return fmt.Errorf("unknown sync op %q", m.Op)
	}
	return nil
}

func (m *LedgerSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func LedgerSyncMessageFromJSON(data []byte) (*LedgerSyncMessage, error) {
	var msg LedgerSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
