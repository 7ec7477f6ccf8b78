// Package push hands push notification requests to the external push worker.
package push

import (
	"context"
	"time"
	"unicode/utf8"
)

const RoutingKey = "push.requests"

// PreviewLength is the number of characters of a message or notification
// carried in a push body.
const PreviewLength = 100

// Notifier requests a push notification for one user.
type Notifier interface {
	Notify(ctx context.Context, userID int, title, body string) error
}

// Publisher is the RabbitMQ publisher the AMQP notifier writes to.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// Request is the message consumed by the push worker.
type Request struct {
	UserID      int    `json:"user_id"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	RequestedAt string `json:"requested_at"`
}

// AMQPNotifier publishes push requests on RoutingKey.
type AMQPNotifier struct {
	publisher Publisher
	now       func() time.Time
}

func NewAMQPNotifier(publisher Publisher) *AMQPNotifier {
	return &AMQPNotifier{publisher: publisher, now: time.Now}
}

func (n *AMQPNotifier) Notify(ctx context.Context, userID int, title, body string) error {
	return n.publisher.Publish(ctx, RoutingKey, Request{
		UserID:      userID,
		Title:       title,
		Body:        body,
		RequestedAt: n.now().UTC().Format(time.RFC3339),
	}, nil)
}

// Preview truncates text to PreviewLength characters.
func Preview(text string) string {
	if utf8.RuneCountInString(text) <= PreviewLength {
		return text
	}
	return string([]rune(text)[:PreviewLength])
}
