package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Op is the kind of change a message reports.
type Op string

const (
	OpCreate    Op = "create"
	OpUpdate    Op = "update"
	OpDelete    Op = "delete"
	OpRecurring Op = "recurring"
)

// RecordChangedMessage tells the projection worker that an owner's ledger
// changed. It carries only keys; the worker reloads what it needs.
type RecordChangedMessage struct {
	OwnerID   string    `json:"owner_id"`
	Entity    string    `json:"entity"`
	RecordID  string    `json:"record_id,omitempty"`
	Month     string    `json:"month,omitempty"`
	Op        Op        `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordChangedMessage stamps the message with the current time.
func NewRecordChangedMessage(owner, entity, id, month string, op Op) *RecordChangedMessage {
	return &RecordChangedMessage{
		OwnerID:   owner,
		Entity:    entity,
		RecordID:  id,
		Month:     month,
		Op:        op,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordChangedMessageFromJSON parses and checks a message body.
func RecordChangedMessageFromJSON(data []byte) (*RecordChangedMessage, error) {
	var msg RecordChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.OwnerID == "" {
		return nil, errors.New("message has no owner_id")
	}
	return &msg, nil
}
