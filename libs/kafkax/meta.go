package kafkax

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventMeta is the metadata every published message carries in headers.
// Consumers use EventID for inbox dedupe and EventType for routing.
type EventMeta struct {
	EventID   string
	EventType string
}

// ExtractEventMeta reads the metadata headers, falling back to the message
// key and topic for messages produced outside the outbox.
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, "event_id"),
		EventType: HeaderValue(msg.Headers, "event_type"),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

// SplitBrokers turns a comma-separated broker list into addresses,
// dropping empty entries.
func SplitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func dialBroker(ctx context.Context, addr string, timeout time.Duration) (net.Conn, error) {
	dialer := kafka.Dialer{Timeout: timeout}
	return dialer.DialContext(ctx, "tcp", addr)
}
