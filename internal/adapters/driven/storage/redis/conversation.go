// Package redis provides a driven.ConversationStore on Redis lists.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/ragline/internal/adapters/driven/apierr"
	"github.com/custodia-labs/ragline/internal/core/domain"
	"github.com/custodia-labs/ragline/internal/core/ports/driven"
	"github.com/custodia-labs/ragline/internal/logger"
)

// Ensure ConversationStore implements the interface.
var _ driven.ConversationStore = (*ConversationStore)(nil)

// Default configuration values.
const (
	DefaultKeyPrefix      = "ragline:conversation:"
	DefaultConnectRetries = 3
)

// Options configures the store.
type Options struct {
	Addr     string
	Password string
	DB       int

	// TTL expires a conversation after inactivity. Zero keeps it forever.
	TTL time.Duration

	// MaxTurns bounds each list. Zero is unbounded.
	MaxTurns int

	// KeyPrefix namespaces the keys (default: ragline:conversation:).
	KeyPrefix string

	// ConnectRetries is how many pings are attempted on startup.
	ConnectRetries int
}

// ConversationStore keeps one JSON-encoded list per conversation.
type ConversationStore struct {
	client   *redis.Client
	prefix   string
	ttl      time.Duration
	maxTurns int
}

// Connect pings the server with exponential backoff before returning.
func Connect(ctx context.Context, opts Options) (*ConversationStore, error) {
	if opts.KeyPrefix == "" {
		opts.KeyPrefix = DefaultKeyPrefix
	}
	if opts.ConnectRetries <= 0 {
		opts.ConnectRetries = DefaultConnectRetries
	}

	client := redis.NewClient(&redis.Options{
		Addr:            opts.Addr,
		Password:        opts.Password,
		DB:              opts.DB,
		MaxRetries:      3,
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
	})

	var err error
	for i := range opts.ConnectRetries {
		if i > 0 {
			backoff := time.Duration(1<<uint(i)) * time.Second
			logger.Logger().Info().Dur("backoff", backoff).Msg("Waiting before Redis retry")
			select {
			case <-ctx.Done():
				client.Close()
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err = client.Ping(ctx).Err(); err == nil {
			logger.Logger().Info().Str("addr", opts.Addr).Int("attempts_needed", i+1).Msg("Redis connected")
			return newStore(client, opts), nil
		}
		logger.Logger().Warn().Err(err).Int("attempt", i+1).Msg("Redis ping failed")
	}

	client.Close()
	return nil, domain.NewServiceError(domain.ErrStoreUnavailable, "connect", true,
		fmt.Errorf("redis unreachable after %d attempts: %w", opts.ConnectRetries, err))
}

func newStore(client *redis.Client, opts Options) *ConversationStore {
	return &ConversationStore{
		client:   client,
		prefix:   opts.KeyPrefix,
		ttl:      opts.TTL,
		maxTurns: opts.MaxTurns,
	}
}

func (s *ConversationStore) key(conversationID string) string {
	return s.prefix + conversationID
}

// Append pushes the turn and trims and refreshes the list in one pipeline.
func (s *ConversationStore) Append(ctx context.Context, turn domain.ConversationTurn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshalling turn: %w", err)
	}

	key := s.key(turn.ConversationID)
	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.RPush(ctx, key, data)
		if s.maxTurns > 0 {
			p.LTrim(ctx, key, int64(-s.maxTurns), -1)
		}
		if s.ttl > 0 {
			p.Expire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return apierr.FromTransport(domain.ErrStoreUnavailable, "append", err)
	}
	return nil
}

// Recent reads the tail of the list.
func (s *ConversationStore) Recent(
	ctx context.Context, conversationID string, limit int,
) ([]domain.ConversationTurn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, s.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, apierr.FromTransport(domain.ErrStoreUnavailable, "recent", err)
	}

	turns := make([]domain.ConversationTurn, 0, len(items))
	for _, item := range items {
		var turn domain.ConversationTurn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			logger.Warn("Skipping unreadable turn in conversation %s: %v", conversationID, err)
			continue
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

// Delete removes a conversation.
func (s *ConversationStore) Delete(ctx context.Context, conversationID string) error {
	if err := s.client.Del(ctx, s.key(conversationID)).Err(); err != nil {
		return apierr.FromTransport(domain.ErrStoreUnavailable, "delete", err)
	}
	return nil
}

// Close closes the client.
func (s *ConversationStore) Close() error {
	return s.client.Close()
}
