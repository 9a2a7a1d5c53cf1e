package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// Room event types mirrored onto the feed.
const (
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventSongAdded       = "song_added"
	EventSongVoteUpdated = "song_vote_updated"
	EventQueueUpdated    = "queue_updated"
	EventChatMessage     = "chat_message"
	EventRoomClosed      = "room_closed"
)

// Event is the feed envelope. Origin identifies the producing instance so
// a consumer can skip events it already broadcast locally.
type Event struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"room_id"`
	UserID    string          `json:"user_id"`
	Origin    string          `json:"origin"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

type KafkaClient struct {
	writer *kafka.Writer
	reader *kafka.Reader
	origin string
}

func NewKafkaClient(brokers []string, topic string, groupID string) *KafkaClient {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		Topic:       topic,
		GroupID:     groupID,
		StartOffset: kafka.LastOffset,
	})

	return &KafkaClient{
		writer: writer,
		reader: reader,
		origin: uuid.New().String(),
	}
}

// Origin returns this instance's producer id.
func (k *KafkaClient) Origin() string {
	return k.origin
}

// PublishRoomEvent writes one event keyed by room id, so the feed preserves
// per-room ordering.
func (k *KafkaClient) PublishRoomEvent(ctx context.Context, eventType, roomID, userID string, payload any) error {
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	event := Event{
		Type:      eventType,
		RoomID:    roomID,
		UserID:    userID,
		Origin:    k.origin,
		Timestamp: time.Now().UTC(),
		Payload:   payloadJSON,
	}
	eventJSON, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(roomID),
		Value: eventJSON,
	}
	if err := k.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message: %w", err)
	}
	return nil
}

// ConsumeEvents reads the feed until the context is canceled, passing each
// event to handler.
func (k *KafkaClient) ConsumeEvents(ctx context.Context, handler func(Event) error) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msg, err := k.reader.ReadMessage(ctx)
			if err != nil {
				return fmt.Errorf("failed to read message: %w", err)
			}

			var event Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal event: %w", err)
			}

			if err := handler(event); err != nil {
				return fmt.Errorf("failed to handle event: %w", err)
			}
		}
	}
}

func (k *KafkaClient) Close() error {
	if err := k.writer.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %w", err)
	}
	if err := k.reader.Close(); err != nil {
		return fmt.Errorf("failed to close reader: %w", err)
	}
	return nil
}
