package amqp

import (
	"encoding/json"
	"time"
)

// NotificationMessage carries one user notification through the broker. The
// worker side only needs the recipient and the rendered text.
type NotificationMessage struct {
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// NewNotificationMessage creates a notification message stamped with now.
func NewNotificationMessage(userID, message string) *NotificationMessage {
	return &NotificationMessage{
		UserID:    userID,
		Message:   message,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *NotificationMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// NotificationMessageFromJSON creates a message from JSON bytes
func NotificationMessageFromJSON(data []byte) (*NotificationMessage, error) {
	var msg NotificationMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
