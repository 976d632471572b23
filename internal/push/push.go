package push

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/stan.go"
)

// EventReceiveNotification is the event name pushed to user channels
const EventReceiveNotification = "ReceiveNotification"

// Channel delivers real-time payloads to a user's topic. Delivery is
// best-effort and at-most-once; implementations must not return errors.
// The durable notification queue is the source of truth, the push channel
// only shaves latency.
type Channel interface {
	Publish(topic, event string, payload any)
}

// UserTopic is the per-user push topic
func UserTopic(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

type Config struct {
	URL       string
	ClusterID string
	ClientID  string
}

type envelope struct {
	Event     string    `json:"event"`
	Payload   any       `json:"payload"`
	Timestamp time.Time `json:"timestamp"`
}

// NATSChannel publishes push events over NATS Streaming
type NATSChannel struct {
	conn stan.Conn
}

func Connect(cfg Config) (*NATSChannel, error) {
	// Unique client ID to avoid conflicts between instances
	clientID := fmt.Sprintf("%s-%s", cfg.ClientID, uuid.New().String()[:8])

	conn, err := stan.Connect(cfg.ClusterID, clientID, stan.NatsURL(cfg.URL))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS Streaming: %w", err)
	}

	slog.Info("Connected to NATS Streaming",
		"url", cfg.URL, "cluster", cfg.ClusterID, "client", clientID)

	return &NATSChannel{conn: conn}, nil
}

// Publish sends the payload to the topic. Failures are logged and
// swallowed per the best-effort contract.
func (c *NATSChannel) Publish(topic, event string, payload any) {
	data, err := json.Marshal(envelope{
		Event:     event,
		Payload:   payload,
		Timestamp: time.Now(),
	})
	if err != nil {
		slog.Error("Failed to marshal push payload", "topic", topic, "error", err)
		return
	}

	if err := c.conn.Publish(topic, data); err != nil {
		slog.Error("Failed to publish push event", "topic", topic, "event", event, "error", err)
		return
	}

	slog.Debug("Published push event", "topic", topic, "event", event)
}

func (c *NATSChannel) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Noop is the push channel used when no NATS Streaming cluster is
// configured; the durable queue still delivers.
type Noop struct{}

func (Noop) Publish(topic, event string, payload any) {}
