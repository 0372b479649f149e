package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/yeremiapane/restaurant-pos/utils"
)

const DefaultRelayChannel = "pos:realtime"

type envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

func encodeEnvelope(topic string, payload []byte) ([]byte, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("payload for %s is not valid JSON", topic)
	}
	return json.Marshal(envelope{Topic: topic, Payload: payload})
}

func decodeEnvelope(raw []byte) (envelope, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return envelope{}, err
	}
	if env.Topic == "" {
		return envelope{}, fmt.Errorf("relay envelope without topic")
	}
	return env, nil
}

// RedisRelay shares broadcasts between processes through a Redis pub/sub
// channel, so a socket connected to one instance sees transitions made on
// another.
type RedisRelay struct {
	client  *redis.Client
	channel string
}

func NewRedisRelay(client *redis.Client, channel string) *RedisRelay {
	if channel == "" {
		channel = DefaultRelayChannel
	}
	return &RedisRelay{client: client, channel: channel}
}

func (r *RedisRelay) Publish(ctx context.Context, topic string, payload []byte) error {
	body, err := encodeEnvelope(topic, payload)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, body).Err()
}

// Start subscribes and waits for Redis to confirm, then delivers relayed
// messages into hub in the background until ctx is done.
func (r *RedisRelay) Start(ctx context.Context, hub *Hub) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	go r.run(ctx, hub, pubsub)
	return nil
}

func (r *RedisRelay) run(ctx context.Context, hub *Hub, pubsub *redis.PubSub) {
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			env, err := decodeEnvelope([]byte(msg.Payload))
			if err != nil {
				utils.ErrorLogger.Errorf("discarding relay message: %v", err)
				continue
			}
			hub.Deliver(env.Topic, env.Payload)
		}
	}
}
