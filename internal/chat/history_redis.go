package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const historyTTL = 7 * 24 * time.Hour

// RedisHistoryStore keeps conversation history in Redis so chats survive
// process restarts and can be shared across instances.
type RedisHistoryStore struct {
	redis  *redis.Client
	tracer trace.Tracer
}

func NewRedisHistoryStore(client *redis.Client, tracer trace.Tracer) *RedisHistoryStore {
	if client == nil {
		panic("chat: redis client cannot be nil")
	}
	if tracer == nil {
		tracer = otel.Tracer("persona.internal.chat.history")
	}
	return &RedisHistoryStore{
		redis:  client,
		tracer: tracer,
	}
}

func (s *RedisHistoryStore) Load(ctx context.Context, personaID string) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.load_history")
	defer span.End()

	data, err := s.redis.Get(ctx, historyKey(personaID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to load history: %w", err)
	}

	var history []Message
	if err := json.Unmarshal(data, &history); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to decode history: %w", err)
	}
	return history, nil
}

func (s *RedisHistoryStore) Append(ctx context.Context, personaID string, msgs ...Message) ([]Message, error) {
	ctx, span := s.tracer.Start(ctx, "chat.append_history")
	defer span.End()

	history, err := s.Load(ctx, personaID)
	if err != nil {
		return nil, err
	}
	history = append(history, msgs...)

	data, err := json.Marshal(history)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to marshal history: %w", err)
	}
	if err := s.redis.Set(ctx, historyKey(personaID), data, historyTTL).Err(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("chat: failed to persist history: %w", err)
	}
	return history, nil
}

func (s *RedisHistoryStore) Clear(ctx context.Context, personaID string) error {
	ctx, span := s.tracer.Start(ctx, "chat.clear_history")
	defer span.End()

	if err := s.redis.Del(ctx, historyKey(personaID)).Err(); err != nil {
		span.RecordError(err)
		return fmt.Errorf("chat: failed to clear history: %w", err)
	}
	return nil
}

func historyKey(personaID string) string {
	return fmt.Sprintf("chat_history:%s", personaID)
}
