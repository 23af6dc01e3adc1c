package natsadapter

import (
	"context"
	"encoding/json"

	nats "github.com/nats-io/nats.go"

	"github.com/iolowookere217/xdulist/internal/usecase"
)

// ReminderNotifier publishes due todo reminders. Delivery to end users
// (email, push) is a consumer's concern.
type ReminderNotifier struct {
	conn    *nats.Conn
	subject string
}

func NewReminderNotifier(conn *nats.Conn, subject string) *ReminderNotifier {
	return &ReminderNotifier{conn: conn, subject: subject}
}

func (n *ReminderNotifier) TodoReminder(ctx context.Context, reminder usecase.Reminder) error {
	data, err := json.Marshal(reminder)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}
