package redis

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/redis/go-redis/v9"

	"pixellar-backend/internal/features/wallet/models"
	"pixellar-backend/internal/features/wallet/repository"
)

const (
	sessionKey         = "wallet:session"
	transactionsKey    = "wallet:transactions"
	fallbackCountKey   = "wallet:fallback:count"
	fallbackAllowedKey = "wallet:fallback:allowed"
)

type sessionStore struct {
	client *redis.Client
}

// NewSessionStore creates a redis-backed session store.
func NewSessionStore(client *redis.Client) repository.SessionStore {
	return &sessionStore{client: client}
}

func (s *sessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, sessionKey, data, 0).Err()
}

func (s *sessionStore) LoadSession(ctx context.Context) (*models.Session, error) {
	data, err := s.client.Get(ctx, sessionKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionStore) DeleteSession(ctx context.Context) error {
	return s.client.Del(ctx, sessionKey).Err()
}

func (s *sessionStore) SaveTransactions(ctx context.Context, transactions []models.Transaction) error {
	data, err := json.Marshal(transactions)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, transactionsKey, data, 0).Err()
}

func (s *sessionStore) LoadTransactions(ctx context.Context) ([]models.Transaction, error) {
	data, err := s.client.Get(ctx, transactionsKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}

	var transactions []models.Transaction
	if err := json.Unmarshal(data, &transactions); err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *sessionStore) ClearTransactions(ctx context.Context) error {
	return s.client.Del(ctx, transactionsKey).Err()
}

func (s *sessionStore) FallbackState(ctx context.Context) (int, bool, error) {
	count := 0
	allowed := true

	countStr, err := s.client.Get(ctx, fallbackCountKey).Result()
	if err != nil && err != redis.Nil {
		return 0, true, err
	}
	if err == nil {
		if n, convErr := strconv.Atoi(countStr); convErr == nil {
			count = n
		}
	}

	allowedStr, err := s.client.Get(ctx, fallbackAllowedKey).Result()
	if err != nil && err != redis.Nil {
		return 0, true, err
	}
	if err == nil {
		allowed = allowedStr == "true" || allowedStr == "1"
	}

	return count, allowed, nil
}

func (s *sessionStore) SetFallbackState(ctx context.Context, count int, allowed bool) error {
	if err := s.client.Set(ctx, fallbackCountKey, strconv.Itoa(count), 0).Err(); err != nil {
		return err
	}
	return s.client.Set(ctx, fallbackAllowedKey, strconv.FormatBool(allowed), 0).Err()
}
