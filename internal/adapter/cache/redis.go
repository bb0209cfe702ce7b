package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"marketsync/internal/domain/model"
)

const (
	quoteKeyPrefix = "quote:"
	channelPrefix  = "quotes."
)

// RedisQuoteStore keeps the last quote per symbol and publishes every write
// on quotes.<SYMBOL> for other processes.
type RedisQuoteStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisQuoteStore(addr, password string, db int, ttl time.Duration) (*RedisQuoteStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return NewRedisQuoteStoreFromClient(client, ttl), nil
}

func NewRedisQuoteStoreFromClient(client *redis.Client, ttl time.Duration) *RedisQuoteStore {
	return &RedisQuoteStore{client: client, ttl: ttl}
}

func QuoteKey(symbol string) string { return quoteKeyPrefix + symbol }

func Channel(symbol string) string { return channelPrefix + symbol }

func (s *RedisQuoteStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisQuoteStore) SaveQuote(ctx context.Context, q model.Quote) error {
	data, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("failed to marshal quote: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, QuoteKey(q.Symbol), data, s.ttl)
	pipe.Publish(ctx, Channel(q.Symbol), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save quote in redis: %w", err)
	}
	return nil
}

// LoadQuotes returns the stored quotes for symbols. Missing symbols are
// skipped.
func (s *RedisQuoteStore) LoadQuotes(ctx context.Context, symbols []string) ([]model.Quote, error) {
	if len(symbols) == 0 {
		return nil, nil
	}
	keys := make([]string, len(symbols))
	for i, sym := range symbols {
		keys[i] = QuoteKey(sym)
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to load quotes from redis: %w", err)
	}

	quotes := make([]model.Quote, 0, len(values))
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			continue
		}
		var q model.Quote
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quote %s: %w", keys[i], err)
		}
		quotes = append(quotes, q)
	}
	return quotes, nil
}

func (s *RedisQuoteStore) Close() error {
	return s.client.Close()
}
