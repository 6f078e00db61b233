package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseChangeMessage announces that one user's expenses changed for a
// given month. It carries only the coordinates, the report worker recomputes
// the total from the database.
type ExpenseChangeMessage struct {
	UserID    int64     `json:"user_id"`
	Month     string    `json:"month"` // "2006-01"
	Timestamp time.Time `json:"timestamp"`
}

// NewExpenseChangeMessage creates a change message for a user and month
func NewExpenseChangeMessage(userID int64, month string) *ExpenseChangeMessage {
	return &ExpenseChangeMessage{
		UserID:    userID,
		Month:     month,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseChangeMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func ExpenseChangeMessageFromJSON(data []byte) (*ExpenseChangeMessage, error) {
	var msg ExpenseChangeMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
