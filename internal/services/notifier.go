package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notification topics.
const (
	TopicFundraisers = "fundraisers"
	TopicSettings    = "settings"
)

const channelPrefix = "storefront:"

// Notification tells subscribers that something they display has changed.
type Notification struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
	SentAt  time.Time       `json:"sent_at"`
}

// Notifier fans change notifications out to live storefront clients.
// Subscriptions end when ctx is cancelled; the channel is then closed.
type Notifier interface {
	Publish(ctx context.Context, topic string, payload interface{}) error
	Subscribe(ctx context.Context, topic string) (<-chan Notification, error)
}

// ValidTopic reports whether topic is one clients may subscribe to.
func ValidTopic(topic string) bool {
	return topic == TopicFundraisers || topic == TopicSettings
}

func newNotification(topic string, payload interface{}) (Notification, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Notification{}, fmt.Errorf("failed to marshal notification: %w", err)
	}
	return Notification{Topic: topic, Payload: data, SentAt: time.Now().UTC()}, nil
}

// RedisNotifier publishes over Redis pub/sub so every server instance sees
// every change.
type RedisNotifier struct {
	client *redis.Client
	log    zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, log zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{client: client, log: log}
}

func (n *RedisNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	note, err := newNotification(topic, payload)
	if err != nil {
		return err
	}
	data, err := json.Marshal(note)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := n.client.Publish(ctx, channelPrefix+topic, data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

func (n *RedisNotifier) Subscribe(ctx context.Context, topic string) (<-chan Notification, error) {
	sub := n.client.Subscribe(ctx, channelPrefix+topic)
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}

	out := make(chan Notification, 16)
	go func() {
		defer close(out)
		defer sub.Close()

		messages := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-messages:
				if !ok {
					return
				}
				var note Notification
				if err := json.Unmarshal([]byte(msg.Payload), &note); err != nil {
					n.log.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed notification")
					continue
				}
				select {
				case out <- note:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// MemoryNotifier delivers notifications within one process. Slow
// subscribers miss notifications rather than block publishers.
type MemoryNotifier struct {
	mu   sync.RWMutex
	subs map[string]map[chan Notification]struct{}
	log  zerolog.Logger
}

func NewMemoryNotifier(log zerolog.Logger) *MemoryNotifier {
	return &MemoryNotifier{subs: make(map[string]map[chan Notification]struct{}), log: log}
}

func (n *MemoryNotifier) Publish(ctx context.Context, topic string, payload interface{}) error {
	note, err := newNotification(topic, payload)
	if err != nil {
		return err
	}

	n.mu.RLock()
	defer n.mu.RUnlock()
	for ch := range n.subs[topic] {
		select {
		case ch <- note:
		default:
			n.log.Warn().Str("topic", topic).Msg("subscriber too slow, notification dropped")
		}
	}
	return nil
}

func (n *MemoryNotifier) Subscribe(ctx context.Context, topic string) (<-chan Notification, error) {
	ch := make(chan Notification, 16)

	n.mu.Lock()
	if n.subs[topic] == nil {
		n.subs[topic] = make(map[chan Notification]struct{})
	}
	n.subs[topic][ch] = struct{}{}
	n.mu.Unlock()

	go func() {
		<-ctx.Done()
		n.mu.Lock()
		delete(n.subs[topic], ch)
		n.mu.Unlock()
		close(ch)
	}()

	return ch, nil
}
