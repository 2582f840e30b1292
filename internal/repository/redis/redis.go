package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"storefront/domain"

	"github.com/redis/go-redis/v9"
)

var ErrSessionNotFound = errors.New("session not found or expired")

// TokenRepository keeps one key per issued session token plus a per-user
// set, so a user can be signed in on the storefront and the mobile app at
// the same time.
type TokenRepository struct {
	client *redis.Client
}

func NewTokenRepository(client *redis.Client) *TokenRepository {
	return &TokenRepository{
		client: client,
	}
}

func sessionKey(token string) string {
	return fmt.Sprintf("session:token:%s", token)
}

func userSessionsKey(userID string) string {
	return fmt.Sprintf("session:user:%s", userID)
}

func (r *TokenRepository) StoreToken(ctx context.Context, token string, data domain.Session, ttl time.Duration) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal token data: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.Set(ctx, sessionKey(token), jsonData, ttl)
	pipe.SAdd(ctx, userSessionsKey(data.UserID), token)
	pipe.Expire(ctx, userSessionsKey(data.UserID), ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store token in Redis: %w", err)
	}

	return nil
}

func (r *TokenRepository) GetTokenData(ctx context.Context, token string) (*domain.Session, error) {
	val, err := r.client.Get(ctx, sessionKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var tokenData domain.Session
	if err := json.Unmarshal([]byte(val), &tokenData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token data: %w", err)
	}

	return &tokenData, nil
}

// ValidateToken returns the user id that owns a live session token.
func (r *TokenRepository) ValidateToken(ctx context.Context, token string) (string, error) {
	data, err := r.GetTokenData(ctx, token)
	if err != nil {
		return "", err
	}

	return data.UserID, nil
}

func (r *TokenRepository) DeleteToken(ctx context.Context, userID, token string) error {
	pipe := r.client.TxPipeline()
	pipe.Del(ctx, sessionKey(token))
	pipe.SRem(ctx, userSessionsKey(userID), token)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}

	return nil
}

// DeleteAllTokens ends every session of the user, used after a password
// change.
func (r *TokenRepository) DeleteAllTokens(ctx context.Context, userID string) error {
	tokens, err := r.client.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return fmt.Errorf("failed to list sessions: %w", err)
	}

	keys := make([]string, 0, len(tokens)+1)
	for _, token := range tokens {
		keys = append(keys, sessionKey(token))
	}
	keys = append(keys, userSessionsKey(userID))

	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to delete sessions: %w", err)
	}

	return nil
}
