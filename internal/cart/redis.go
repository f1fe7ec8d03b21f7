package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"shopfront/internal/models"
)

const DefaultTTL = 30 * 24 * time.Hour // 30 jours

const (
	EventUpdated = "updated"
	EventCleared = "cleared"
)

// RedisStore garde chaque panier sous "cart:<sid>" (JSON des lignes) et
// notifie les changements sur le canal du même nom.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// Key retourne la clé (et le canal pub/sub) du panier d'une session.
func Key(sessionID string) string {
	return "cart:" + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*Cart, error) {
	data, err := s.rdb.Get(ctx, Key(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return &Cart{}, nil
	}
	if err != nil {
		return nil, err
	}

	var lines []models.CartLine
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("décodage panier: %w", err)
	}
	return &Cart{Lines: lines}, nil
}

func (s *RedisStore) Save(ctx context.Context, sessionID string, c *Cart) error {
	key := Key(sessionID)

	if c.IsEmpty() {
		pipe := s.rdb.TxPipeline()
		pipe.Del(ctx, key)
		pipe.Publish(ctx, key, EventCleared)
		_, err := pipe.Exec(ctx)
		return err
	}

	data, err := json.Marshal(c.Lines)
	if err != nil {
		return fmt.Errorf("encodage panier: %w", err)
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, key, data, s.ttl)
	pipe.Publish(ctx, key, EventUpdated)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) error {
	key := Key(sessionID)
	pipe := s.rdb.TxPipeline()
	pipe.Del(ctx, key)
	pipe.Publish(ctx, key, EventCleared)
	_, err := pipe.Exec(ctx)
	return err
}

// Subscribe s'abonne aux notifications du panier ; l'appelant ferme le PubSub.
func (s *RedisStore) Subscribe(ctx context.Context, sessionID string) *redis.PubSub {
	return s.rdb.Subscribe(ctx, Key(sessionID))
}
