package corpus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// RedisPrefix is the default key prefix used by RedisStore.
	RedisPrefix = "mimic:corpus"
	keysSuffix  = ":keys"
)

// RedisStore is a Store backed by Redis. Each corpus is a hash of message ID to
// text named by the prefix and Key.Encode, and the set "<prefix>:keys" lists
// every non-empty corpus by its encoded key.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects to the Redis server at url and verifies the connection.
func NewRedisStore(url, prefix string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}

	if prefix == "" {
		prefix = RedisPrefix
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{
		client: client,
		prefix: prefix,
	}, nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) corpusKey(key Key) string {
	return s.prefix + ":" + key.Encode()
}

// GetCorpus returns every recorded fragment for key.
func (s *RedisStore) GetCorpus(ctx context.Context, key Key) ([]string, error) {
	fragments, err := s.client.HVals(ctx, s.corpusKey(key)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get corpus for %s: %w", key, err)
	}
	if len(fragments) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return fragments, nil
}

// Record stores a message and reports whether it was newly recorded.
func (s *RedisStore) Record(ctx context.Context, msg *Message) (bool, error) {
	text := msg.Text()
	if text == "" {
		return false, nil
	}
	key := msg.Key()

	added, err := s.client.HSetNX(ctx, s.corpusKey(key), msg.ID, text).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record message %s: %w", msg.ID, err)
	}
	if !added {
		return false, nil
	}
	if err := s.client.SAdd(ctx, s.prefix+keysSuffix, key.Encode()).Err(); err != nil {
		return true, fmt.Errorf("failed to index key %s: %w", key, err)
	}
	return true, nil
}

// Edit replaces the text of a recorded message.
func (s *RedisStore) Edit(ctx context.Context, key Key, messageID, content string) error {
	text := CleanText(content)
	if text == "" {
		return s.Delete(ctx, key, messageID)
	}

	exists, err := s.client.HExists(ctx, s.corpusKey(key), messageID).Result()
	if err != nil {
		return fmt.Errorf("failed to look up message %s: %w", messageID, err)
	}
	if !exists {
		return fmt.Errorf("%w: message %s in %s", ErrNotFound, messageID, key)
	}
	if err := s.client.HSet(ctx, s.corpusKey(key), messageID, text).Err(); err != nil {
		return fmt.Errorf("failed to edit message %s: %w", messageID, err)
	}
	return nil
}

// Delete removes a message, and drops the key from the index once its corpus
// is empty.
func (s *RedisStore) Delete(ctx context.Context, key Key, messageID string) error {
	corpusKey := s.corpusKey(key)
	if err := s.client.HDel(ctx, corpusKey, messageID).Err(); err != nil {
		return fmt.Errorf("failed to delete message %s: %w", messageID, err)
	}

	remaining, err := s.client.HLen(ctx, corpusKey).Result()
	if err != nil {
		return fmt.Errorf("failed to count corpus %s: %w", key, err)
	}
	if remaining == 0 {
		if err := s.client.SRem(ctx, s.prefix+keysSuffix, key.Encode()).Err(); err != nil {
			return fmt.Errorf("failed to unindex key %s: %w", key, err)
		}
	}
	return nil
}

// Keys lists every key with at least one recorded message.
func (s *RedisStore) Keys(ctx context.Context) ([]Key, error) {
	members, err := s.client.SMembers(ctx, s.prefix+keysSuffix).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list keys: %w", err)
	}
	keys := make([]Key, 0, len(members))
	for _, member := range members {
		if key, ok := DecodeKey(member); ok {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// Count returns the number of messages recorded for key.
func (s *RedisStore) Count(ctx context.Context, key Key) (int, error) {
	n, err := s.client.HLen(ctx, s.corpusKey(key)).Result()
	return int(n), err
}
