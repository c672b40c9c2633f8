// forge/pkg/store/redis_store.go

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"threathawk/forge/pkg/logging"
)

var ctx = context.Background()

type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection with a ping.
func NewRedisStore(addr, password string, db int) (*RedisStore, error) {
	logging.Logger.Info().Str("addr", addr).Int("db", db).Msg("Connecting to Redis")

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if _, err := client.Ping(ctx).Result(); err != nil {
		client.Close()
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to connect to Redis", err,
			map[string]interface{}{"addr": addr, "db": db})
	}

	logging.Logger.Info().Msg("Successfully connected to Redis")
	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) prepare(f *RuleFile) ([]byte, error) {
	if !f.Kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, f.Kind)
	}
	if f.Name == "" {
		return nil, fmt.Errorf("rule document name is required")
	}
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	f.UpdatedAt = time.Now().Unix()
	return json.Marshal(f)
}

// SaveRuleFile stores f as JSON under its key. A missing id is generated.
func (s *RedisStore) SaveRuleFile(f RuleFile) error {
	data, err := s.prepare(&f)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, f.Key(), data, 0).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to save rule document", err,
			map[string]interface{}{"key": f.Key()})
	}
	logging.Logger.Debug().Str("key", f.Key()).Int("bytes", len(f.Content)).Msg("Saved rule document")
	return nil
}

// SaveAndPublishRuleFile stores f and announces the update on the channel named
// after its kind. The message is the document key.
func (s *RedisStore) SaveAndPublishRuleFile(f RuleFile) error {
	if err := s.SaveRuleFile(f); err != nil {
		return err
	}
	channel := strings.Split(f.Key(), ":")[0]
	if err := s.client.Publish(ctx, channel, f.Key()).Err(); err != nil {
		logging.Logger.Error().Err(err).Str("channel", channel).Str("key", f.Key()).Msg("Failed to publish document update")
		return logging.NewError(logging.ErrorTypeStore, "failed to publish rule document update", err,
			map[string]interface{}{"key": f.Key(), "channel": channel})
	}
	logging.Logger.Info().Str("channel", channel).Str("key", f.Key()).Msg("Published document update")
	return nil
}

func (s *RedisStore) GetRuleFile(kind Kind, name string) (*RuleFile, error) {
	key := DocumentKey(kind, name)
	data, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		logging.Logger.Debug().Str("key", key).Msg("Rule document not found in Redis")
		return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
	} else if err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("Failed to get rule document from Redis")
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to get rule document", err,
			map[string]interface{}{"key": key})
	}

	var f RuleFile
	if err := json.Unmarshal([]byte(data), &f); err != nil {
		logging.Logger.Error().Err(err).Str("key", key).Msg("Failed to unmarshal rule document")
		return nil, logging.NewError(logging.ErrorTypeStore, "corrupt rule document", err,
			map[string]interface{}{"key": key})
	}
	return &f, nil
}

// MGetRuleFiles fetches several documents of one kind at once. Missing names map
// to nil.
func (s *RedisStore) MGetRuleFiles(kind Kind, names ...string) (map[string]*RuleFile, error) {
	files := make(map[string]*RuleFile, len(names))
	if len(names) == 0 {
		return files, nil
	}

	keys := make([]string, len(names))
	for i, n := range names {
		keys[i] = DocumentKey(kind, n)
	}
	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, logging.NewError(logging.ErrorTypeStore, "failed to get rule documents", err, nil)
	}

	for i, result := range results {
		if result == nil {
			files[names[i]] = nil
			continue
		}
		var raw []byte
		switch v := result.(type) {
		case string:
			raw = []byte(v)
		case []byte:
			raw = v
		default:
			return nil, fmt.Errorf("unexpected value type %T for %s", v, keys[i])
		}
		var f RuleFile
		if err := json.Unmarshal(raw, &f); err != nil {
			return nil, logging.NewError(logging.ErrorTypeStore, "corrupt rule document", err,
				map[string]interface{}{"key": keys[i]})
		}
		files[names[i]] = &f
	}
	return files, nil
}

// ListRuleFiles returns the names of every stored document of a kind in scan
// order.
func (s *RedisStore) ListRuleFiles(kind Kind) ([]string, error) {
	prefix := string(kind) + ":"
	keys, err := s.scanKeys(prefix + "*")
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, strings.TrimPrefix(k, prefix))
	}
	return names, nil
}

func (s *RedisStore) scanKeys(pattern string) ([]string, error) {
	var cursor uint64
	var keys []string
	for {
		batch, next, err := s.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, logging.NewError(logging.ErrorTypeStore, "failed to scan keys", err,
				map[string]interface{}{"pattern": pattern})
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *RedisStore) DeleteRuleFile(kind Kind, name string) error {
	key := DocumentKey(kind, name)
	n, err := s.client.Del(ctx, key).Result()
	if err != nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to delete rule document", err,
			map[string]interface{}{"key": key})
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrDocumentNotFound, key)
	}
	return nil
}

// PublishFragment pushes raw rule text onto a channel, the way an external
// drafting service hands fragments to the daemon.
func (s *RedisStore) PublishFragment(channel, fragment string) error {
	if err := s.client.Publish(ctx, channel, fragment).Err(); err != nil {
		return logging.NewError(logging.ErrorTypeStore, "failed to publish fragment", err,
			map[string]interface{}{"channel": channel})
	}
	return nil
}

func (s *RedisStore) Subscribe(channels ...string) *redis.PubSub {
	logging.Logger.Info().Strs("channels", channels).Msg("Subscribing to Redis channels")

	pubsub := s.client.Subscribe(ctx, channels...)

	// Verify the subscription was successful
	_, err := pubsub.Receive(ctx)
	if err != nil {
		logging.Logger.Error().Err(err).Msg("Failed to subscribe to Redis channels")
		pubsub.Close()
		return nil
	}

	logging.Logger.Info().Strs("channels", channels).Msg("Successfully subscribed to Redis channels")
	return pubsub
}
