package amqp

import (
	"encoding/json"
	"time"
)

// TransactionSubmittedMessage announces a new outbox record. It carries
// only the ID; the worker reads the full transaction from the outbox.
type TransactionSubmittedMessage struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionSubmittedMessage creates a message stamped with the current time
func NewTransactionSubmittedMessage(id string, userID int64) *TransactionSubmittedMessage {
	return &TransactionSubmittedMessage{
		ID:        id,
		UserID:    userID,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSubmittedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSubmittedMessageFromJSON decodes a message body
func TransactionSubmittedMessageFromJSON(data []byte) (*TransactionSubmittedMessage, error) {
	var msg TransactionSubmittedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
